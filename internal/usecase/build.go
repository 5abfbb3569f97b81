package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"kwsearch/internal/adapter/index"
	"kwsearch/internal/adapter/store"
	"kwsearch/internal/logging"
	"kwsearch/internal/port"
)

// BuildUseCase scans the whole corpus into a fresh index and persists it.
type BuildUseCase struct {
	corpus    port.CorpusLoader
	tokenizer port.Tokenizer
	store     port.IndexStore
	lock      *store.BuildLock
	log       *slog.Logger
	now       func() time.Time
}

func NewBuildUseCase(
	corpus port.CorpusLoader,
	tokenizer port.Tokenizer,
	indexStore port.IndexStore,
	lock *store.BuildLock,
) *BuildUseCase {
	return &BuildUseCase{
		corpus:    corpus,
		tokenizer: tokenizer,
		store:     indexStore,
		lock:      lock,
		log:       logging.WithComponent("build"),
		now:       time.Now,
	}
}

// BuildResult contains the results of a build.
type BuildResult struct {
	Documents    int
	Terms        int
	AvgDocLength float64
	Analyzer     string
	BuiltAt      time.Time
	Elapsed      time.Duration
	Index        *index.Index
}

// Build replaces the persisted index. A build already running in another
// process fails with ErrBuildInProgress.
func (u *BuildUseCase) Build(progress index.ProgressFunc) (*BuildResult, error) {
	start := u.now()

	if u.lock != nil {
		if err := u.lock.TryLock(); err != nil {
			return nil, err
		}
		defer u.lock.Unlock()
	}

	docs, err := u.corpus.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	u.log.Info("corpus loaded", "documents", len(docs))

	idx, err := index.NewBuilder(u.tokenizer).WithProgress(progress).Build(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	meta := port.IndexMeta{
		SchemaVersion: store.CurrentSchemaVersion,
		Analyzer:      u.tokenizer.Fingerprint(),
		BuiltAt:       u.now().UTC(),
	}
	if err := u.store.Save(idx, meta); err != nil {
		return nil, fmt.Errorf("failed to save index: %w", err)
	}

	result := &BuildResult{
		Documents:    idx.DocCount(),
		Terms:        idx.TermCount(),
		AvgDocLength: idx.AvgDocLength(),
		Analyzer:     meta.Analyzer,
		BuiltAt:      meta.BuiltAt,
		Elapsed:      u.now().Sub(start),
		Index:        idx,
	}
	u.log.Info("index saved",
		"documents", result.Documents,
		"terms", result.Terms,
		"analyzer", result.Analyzer,
		"elapsed", result.Elapsed)
	return result, nil
}
