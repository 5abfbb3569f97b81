package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"kwsearch/internal/adapter/cache"
	"kwsearch/internal/adapter/index"
	"kwsearch/internal/adapter/metrics"
	"kwsearch/internal/adapter/retriever"
	"kwsearch/internal/domain"
	"kwsearch/internal/logging"
	"kwsearch/internal/port"
)

type Mode string

const (
	ModeBM25     Mode = "bm25"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBM25, ModeSemantic, ModeHybrid:
		return Mode(s), nil
	case "":
		return ModeBM25, nil
	}
	return "", fmt.Errorf("%w: unknown search mode %q", domain.ErrInvalidArgument, s)
}

// EngineOptions wires an Engine. Vectors, Embedder, Embeddings, Cache and
// Metrics are optional. With Embeddings set, every Reload brings the stored
// vectors in line with the new documents before the swap.
type EngineOptions struct {
	Store      port.IndexStore
	Tokenizer  port.Tokenizer
	Params     retriever.Params
	RRFK       int
	BM25Weight float64
	MinScore   float64

	Vectors    port.VectorStore
	Embedder   port.Embedder
	Embeddings *EmbeddingsUseCase
	Cache      *cache.QueryCache
	Metrics    *metrics.Metrics
}

// Engine answers queries against an immutable index snapshot. Reload swaps
// in a new snapshot atomically; searches already running keep the old one.
type Engine struct {
	opts  EngineOptions
	state atomic.Pointer[engineState]
	log   *slog.Logger
}

type engineState struct {
	idx        *index.Index
	meta       port.IndexMeta
	scorer     *retriever.Scorer
	retrievers map[Mode]*RetrieveUseCase
}

func NewEngine(opts EngineOptions) *Engine {
	return &Engine{
		opts: opts,
		log:  logging.WithComponent("engine"),
	}
}

// Reload loads the persisted index and serves it from now on. On failure
// the previous snapshot, if any, stays in place.
func (e *Engine) Reload() error {
	idx, meta, err := e.opts.Store.Load(e.opts.Tokenizer.Fingerprint())
	if err == nil && e.opts.Embeddings != nil {
		_, err = e.opts.Embeddings.LoadOrCreate(context.Background(), idx.Documents(), nil)
	}
	if err != nil {
		e.opts.Metrics.IndexLoaded(0, err)
		e.log.Warn("index reload failed", "error", err)
		return err
	}
	e.Use(idx, meta)
	return nil
}

// Use serves idx without touching the store.
func (e *Engine) Use(idx *index.Index, meta port.IndexMeta) {
	e.state.Store(e.newState(idx, meta))
	if e.opts.Cache != nil {
		e.opts.Cache.Invalidate()
	}
	e.opts.Metrics.IndexLoaded(idx.DocCount(), nil)
	e.log.Info("index loaded", "documents", idx.DocCount(), "terms", idx.TermCount())
}

func (e *Engine) newState(idx *index.Index, meta port.IndexMeta) *engineState {
	s := &engineState{
		idx:        idx,
		meta:       meta,
		scorer:     retriever.NewScorer(idx, e.opts.Tokenizer),
		retrievers: make(map[Mode]*RetrieveUseCase),
	}

	bm25 := retriever.NewBM25Retriever(idx, e.opts.Tokenizer, e.opts.Params)
	var semantic port.Retriever
	if e.opts.Vectors != nil && e.opts.Embedder != nil {
		semantic = retriever.NewSemanticRetriever(e.opts.Vectors, e.opts.Embedder, idx)
	}

	byMode := map[Mode]port.Retriever{
		ModeBM25:   bm25,
		ModeHybrid: retriever.NewHybridRetriever(bm25, semantic, e.opts.RRFK, e.opts.BM25Weight),
	}
	if semantic != nil {
		byMode[ModeSemantic] = semantic
	}

	for mode, r := range byMode {
		if e.opts.Cache != nil {
			r = cache.NewCachedRetriever(r, e.opts.Cache, string(mode)).OnLookup(e.opts.Metrics.CacheLookup)
		}
		s.retrievers[mode] = NewRetrieveUseCase(r, e.opts.MinScore)
	}
	return s
}

func (e *Engine) current() (*engineState, error) {
	s := e.state.Load()
	if s == nil {
		return nil, fmt.Errorf("%w: run 'kwsearch build' first", domain.ErrMissingIndex)
	}
	return s, nil
}

// Search ranks documents for query with the given mode.
func (e *Engine) Search(mode Mode, query string, limit int) ([]domain.ScoredDocument, error) {
	start := time.Now()
	results, err := e.search(mode, query, limit)
	e.opts.Metrics.ObserveSearch(string(mode), len(results), time.Since(start), err)
	return results, err
}

func (e *Engine) search(mode Mode, query string, limit int) ([]domain.ScoredDocument, error) {
	s, err := e.current()
	if err != nil {
		return nil, err
	}
	r, ok := s.retrievers[mode]
	if !ok {
		if mode == ModeSemantic {
			return nil, fmt.Errorf("%w: enable embeddings and run 'kwsearch semantic verify-embeddings'", domain.ErrEmbeddingsUnavailable)
		}
		return nil, fmt.Errorf("%w: unknown search mode %q", domain.ErrInvalidArgument, mode)
	}
	return r.Retrieve(query, limit)
}

// Scorer exposes per-term scores over the current snapshot.
func (e *Engine) Scorer() (*retriever.Scorer, error) {
	s, err := e.current()
	if err != nil {
		return nil, err
	}
	return s.scorer, nil
}

// Index returns the current snapshot.
func (e *Engine) Index() (*index.Index, error) {
	s, err := e.current()
	if err != nil {
		return nil, err
	}
	return s.idx, nil
}

func (e *Engine) Stats() (domain.IndexStats, error) {
	s, err := e.current()
	if err != nil {
		return domain.IndexStats{}, err
	}
	return domain.IndexStats{
		Documents:    s.idx.DocCount(),
		Terms:        s.idx.TermCount(),
		AvgDocLength: s.idx.AvgDocLength(),
		Analyzer:     s.meta.Analyzer,
		BuiltAt:      s.meta.BuiltAt,
	}, nil
}
