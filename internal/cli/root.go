package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kwsearch/config"
	"kwsearch/internal/adapter/analyzer"
	"kwsearch/internal/adapter/cache"
	"kwsearch/internal/adapter/embedding"
	"kwsearch/internal/adapter/fs"
	"kwsearch/internal/adapter/retriever"
	"kwsearch/internal/adapter/store"
	"kwsearch/internal/domain"
	"kwsearch/internal/logging"
	"kwsearch/internal/port"
	"kwsearch/internal/usecase"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "kwsearch",
	Short: "Keyword search over a document corpus with TF-IDF and BM25",
	Long: `kwsearch builds an inverted index over a JSON corpus, persists it, and
ranks documents against free-text queries with BM25. An optional embedding
backend adds semantic and hybrid ranking.

Example usage:
  kwsearch build                 # Index the configured corpus
  kwsearch search "bear"         # Rank documents with BM25
  kwsearch tf 2 bear             # Term frequency of "bear" in document 2
  kwsearch serve --addr :8080    # Serve search over HTTP`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, domain.ErrMissingIndex) {
			fmt.Fprintln(os.Stderr, "Hint: run 'kwsearch build' first")
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./kwsearch.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func newTokenizer() (*analyzer.Tokenizer, error) {
	stemmer, err := analyzer.NewStemmer(cfg.Index.Stemmer)
	if err != nil {
		return nil, err
	}
	stopwords, err := analyzer.LoadStopwords(config.ResolvePath(rootDir, cfg.Corpus.Stopwords))
	if err != nil {
		return nil, fmt.Errorf("failed to load stopwords: %w", err)
	}
	return analyzer.NewTokenizer(stemmer, stopwords), nil
}

func newCorpusLoader() *fs.CorpusLoader {
	return fs.NewCorpusLoader(config.ResolvePath(rootDir, cfg.Corpus.Path), cfg.Corpus.Key, cfg.Corpus.Excludes)
}

func newIndexStore() *store.BoltStore {
	return store.NewBoltStore(cfg.IndexDBPath(rootDir))
}

func newEmbedder() (port.Embedder, error) {
	return embedding.New(embedding.Options{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		APIKeyEnv: cfg.Embedding.APIKeyEnv,
		Dimension: cfg.Embedding.Dimension,
		CacheSize: cfg.Embedding.CacheSize,
	})
}

func searchParams() retriever.Params {
	return retriever.Params{K1: cfg.Search.K1, B: cfg.Search.B}
}

// engineOptions describes how openEngine wires an engine.
type engineOptions struct {
	vectors  port.VectorStore // optional, enables semantic ranking
	embedder port.Embedder
	cache    bool
	params   retriever.Params
}

// openEngine loads the persisted index.
func openEngine(opts engineOptions) (*usecase.Engine, error) {
	tokenizer, err := newTokenizer()
	if err != nil {
		return nil, err
	}

	eo := usecase.EngineOptions{
		Store:      newIndexStore(),
		Tokenizer:  tokenizer,
		Params:     opts.params,
		RRFK:       cfg.Search.RRFK,
		BM25Weight: cfg.Search.BM25Weight,
		MinScore:   cfg.Search.MinScore,
		Vectors:    opts.vectors,
		Embedder:   opts.embedder,
	}
	if opts.cache {
		eo.Cache = cache.NewQueryCache(cfg.Search.CacheSize, cfg.Search.CacheTTL)
	}

	engine := usecase.NewEngine(eo)
	if err := engine.Reload(); err != nil {
		return nil, err
	}
	return engine, nil
}

func openVectors() (*store.BoltVectorStore, port.Embedder, error) {
	embedder, err := newEmbedder()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if err := cfg.EnsureIndexDir(rootDir); err != nil {
		return nil, nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	vectors, err := store.OpenBoltVectorStore(cfg.EmbeddingsDBPath(rootDir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	return vectors, embedder, nil
}

// formatScore renders a score with the configured precision.
func formatScore(v float64) string {
	return fmt.Sprintf("%.*f", cfg.Search.Precision, v)
}

func lockForBuild() *store.BuildLock {
	return store.NewBuildLock(cfg.IndexDir(rootDir))
}
