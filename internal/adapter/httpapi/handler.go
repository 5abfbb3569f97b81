// Package httpapi serves search over HTTP for the long-running service mode.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"kwsearch/internal/adapter/metrics"
	"kwsearch/internal/domain"
	"kwsearch/internal/logging"
	"kwsearch/internal/usecase"
)

const DefaultMaxResults = 100

// Engine is the part of usecase.Engine the handler drives.
type Engine interface {
	Search(mode usecase.Mode, query string, limit int) ([]domain.ScoredDocument, error)
	Stats() (domain.IndexStats, error)
	Reload() error
}

type Handler struct {
	engine       Engine
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	defaultMode  usecase.Mode
	logger       *slog.Logger
}

type Options struct {
	DefaultLimit int
	MaxResults   int
	DefaultMode  usecase.Mode
	Metrics      *metrics.Metrics
}

func New(engine Engine, opts Options) *Handler {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 5
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = usecase.ModeBM25
	}
	return &Handler{
		engine:       engine,
		metrics:      opts.Metrics,
		defaultLimit: opts.DefaultLimit,
		maxResults:   opts.MaxResults,
		defaultMode:  opts.DefaultMode,
		logger:       logging.WithComponent("http"),
	}
}

// Routes returns the mux with every endpoint registered. Requests are
// counted by the metrics middleware when metrics are configured.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", h.Search)
	mux.HandleFunc("GET /stats", h.Stats)
	mux.HandleFunc("POST /reload", h.Reload)
	mux.HandleFunc("GET /healthz", h.Health)
	if h.metrics == nil {
		return mux
	}
	mux.Handle("GET /metrics", h.metrics.Handler())
	return h.metrics.Middleware(mux)
}

type searchResponse struct {
	Query   string                `json:"query"`
	Mode    usecase.Mode          `json:"mode"`
	Results []domain.SearchResult `json:"results"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := r.URL.Query()

	if !params.Has("q") {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	query := params.Get("q")

	limit := h.defaultLimit
	if limitStr := params.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	mode := h.defaultMode
	if m := params.Get("mode"); m != "" {
		parsed, err := usecase.ParseMode(m)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = parsed
	}

	docs, err := h.engine.Search(mode, query, limit)
	if err != nil {
		h.writeEngineError(w, "search failed", err)
		return
	}

	results := make([]domain.SearchResult, len(docs))
	for i, d := range docs {
		results[i] = domain.NewSearchResult(d)
	}

	h.logger.Debug("search completed",
		"query", query,
		"mode", mode,
		"returned", len(results),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, searchResponse{Query: query, Mode: mode, Results: results})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats()
	if err != nil {
		h.writeEngineError(w, "stats unavailable", err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reload(); err != nil {
		h.writeEngineError(w, "reload failed", err)
		return
	}
	stats, err := h.engine.Stats()
	if err != nil {
		h.writeEngineError(w, "stats unavailable", err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMissingIndex), errors.Is(err, domain.ErrEmbeddingsUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeEngineError(w http.ResponseWriter, msg string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	}
	h.writeError(w, status, msg+": "+err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
