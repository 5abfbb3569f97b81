package port

import "kwsearch/internal/domain"

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// CorpusLoader reads the raw document corpus.
type CorpusLoader interface {
	Load() ([]domain.Document, error)
}
