package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"kwsearch/internal/adapter/cache"
	"kwsearch/internal/adapter/httpapi"
	"kwsearch/internal/adapter/metrics"
	"kwsearch/internal/domain"
	"kwsearch/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve search over HTTP",
	Long: `Serve the index over HTTP until interrupted.

Endpoints:
  GET  /search?q=&limit=&mode=   ranked results as JSON
  GET  /stats                    index statistics
  POST /reload                   load the latest built index
  GET  /healthz                  liveness
  GET  /metrics                  Prometheus metrics

SIGHUP reloads the index as well.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	addr := cfg.Serve.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	tokenizer, err := newTokenizer()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	opts := usecase.EngineOptions{
		Store:      newIndexStore(),
		Tokenizer:  tokenizer,
		Params:     searchParams(),
		RRFK:       cfg.Search.RRFK,
		BM25Weight: cfg.Search.BM25Weight,
		MinScore:   cfg.Search.MinScore,
		Cache:      cache.NewQueryCache(cfg.Search.CacheSize, cfg.Search.CacheTTL),
		Metrics:    m,
	}
	if cfg.Embedding.Enabled {
		vectors, embedder, err := openVectors()
		if err != nil {
			return err
		}
		defer vectors.Close()
		opts.Vectors, opts.Embedder = vectors, embedder
		opts.Embeddings = usecase.NewEmbeddingsUseCase(embedder, vectors, cfg.Embedding.BatchSize)
	}

	engine := usecase.NewEngine(opts)
	if err := engine.Reload(); err != nil {
		if !errors.Is(err, domain.ErrMissingIndex) {
			return err
		}
		slog.Warn("no index yet; serving 503 until POST /reload", "index", cfg.IndexDBPath(GetRootDir()))
	}

	mode, err := usecase.ParseMode(cfg.Search.Mode)
	if err != nil {
		return err
	}
	handler := httpapi.New(engine, httpapi.Options{
		DefaultLimit: cfg.Search.Limit,
		DefaultMode:  mode,
		Metrics:      m,
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Serve.ReadTimeout,
		WriteTimeout: cfg.Serve.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-hup:
				if err := engine.Reload(); err == nil {
					slog.Info("index reloaded on SIGHUP")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Serve.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", addr)
	fmt.Printf("Listening on %s\n", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("search service stopped")
	return nil
}
