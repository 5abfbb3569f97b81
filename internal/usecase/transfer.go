package usecase

import (
	"fmt"
	"time"

	"kwsearch/internal/adapter/snapshot"
	"kwsearch/internal/adapter/store"
	"kwsearch/internal/domain"
	"kwsearch/internal/port"
)

// Export writes the persisted index to a portable snapshot file.
func Export(indexStore port.IndexStore, tokenizer port.Tokenizer, path string, tag snapshot.CompressionTag) (*domain.IndexStats, error) {
	idx, meta, err := indexStore.Load(tokenizer.Fingerprint())
	if err != nil {
		return nil, err
	}
	if err := snapshot.WriteFile(path, idx, meta.Analyzer, tag); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	return &domain.IndexStats{
		Documents:    idx.DocCount(),
		Terms:        idx.TermCount(),
		AvgDocLength: idx.AvgDocLength(),
		Analyzer:     meta.Analyzer,
		BuiltAt:      meta.BuiltAt,
	}, nil
}

// Import replaces the persisted index with the contents of a snapshot
// file. The snapshot must have been built with the same analyzer.
func Import(indexStore port.IndexStore, tokenizer port.Tokenizer, path string, lock *store.BuildLock) (*domain.IndexStats, error) {
	snap, err := snapshot.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if want := tokenizer.Fingerprint(); snap.Analyzer != want {
		return nil, fmt.Errorf("%w: snapshot has %s, configured %s", domain.ErrAnalyzerMismatch, snap.Analyzer, want)
	}

	if lock != nil {
		if err := lock.TryLock(); err != nil {
			return nil, err
		}
		defer lock.Unlock()
	}

	meta := port.IndexMeta{
		SchemaVersion: store.CurrentSchemaVersion,
		Analyzer:      snap.Analyzer,
		BuiltAt:       time.Now().UTC(),
	}
	if err := indexStore.Save(snap.Index, meta); err != nil {
		return nil, fmt.Errorf("failed to save index: %w", err)
	}
	return &domain.IndexStats{
		Documents:    snap.Index.DocCount(),
		Terms:        snap.Index.TermCount(),
		AvgDocLength: snap.Index.AvgDocLength(),
		Analyzer:     snap.Analyzer,
		BuiltAt:      meta.BuiltAt,
	}, nil
}
