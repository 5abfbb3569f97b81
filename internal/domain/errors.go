package domain

import "errors"

var (
	// ErrInvalidArgument is returned when a term lookup is given text that
	// does not normalize to exactly one token, or a query is blank where
	// one is required.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMissingIndex means no persisted index exists yet.
	ErrMissingIndex = errors.New("index not found")

	// ErrCorruptIndex means a persisted index exists but is partial,
	// unreadable or violates index invariants.
	ErrCorruptIndex = errors.New("index corrupt")

	// ErrAnalyzerMismatch means the index was built with a different
	// tokenizer configuration than the one used to query it.
	ErrAnalyzerMismatch = errors.New("index built with a different analyzer")

	ErrDuplicateDocument = errors.New("duplicate document id")

	ErrBuildInProgress = errors.New("another build is in progress")

	ErrEmbeddingsUnavailable = errors.New("embeddings not available")
)
