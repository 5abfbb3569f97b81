package port

import (
	"time"

	"kwsearch/internal/adapter/index"
)

// IndexMeta is persisted next to the index structures.
type IndexMeta struct {
	SchemaVersion int
	Analyzer      string
	BuiltAt       time.Time
}

// IndexStore persists an index snapshot as one unit.
type IndexStore interface {
	Save(idx *index.Index, meta IndexMeta) error

	// Load returns ErrMissingIndex, ErrCorruptIndex or ErrAnalyzerMismatch
	// rather than a partially initialized index.
	Load(analyzer string) (*index.Index, IndexMeta, error)
}
