package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is looked up in the project root before DirName/config.yaml.
	FileName = "kwsearch.yaml"
	DirName  = ".kwsearch"
)

// Config holds all configuration for kwsearch.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Serve     ServeConfig     `yaml:"serve"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CorpusConfig locates the documents and the stopword list.
type CorpusConfig struct {
	Path      string   `yaml:"path"` // file or doublestar glob
	Key       string   `yaml:"key"`  // list key inside each file; bare arrays are accepted too
	Excludes  []string `yaml:"excludes"`
	Stopwords string   `yaml:"stopwords"`
}

// IndexConfig holds indexing configuration.
type IndexConfig struct {
	Dir         string `yaml:"dir"`
	Stemmer     string `yaml:"stemmer"`     // porter, snowball, none
	Compression string `yaml:"compression"` // export format: none, lz4, zstd
}

// SearchConfig holds ranking and query cache configuration.
type SearchConfig struct {
	Limit      int           `yaml:"limit"`
	Mode       string        `yaml:"mode"` // bm25, semantic, hybrid
	K1         float64       `yaml:"k1"`
	B          float64       `yaml:"b"`
	Precision  int           `yaml:"precision"`
	RRFK       int           `yaml:"rrf_k"`
	BM25Weight float64       `yaml:"bm25_weight"`
	MinScore   float64       `yaml:"min_score"` // 0 disables filtering
	CacheSize  int           `yaml:"cache_size"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Provider  string `yaml:"provider"` // ollama, openai, jina, deepseek, mock
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Dimension int    `yaml:"dimension"` // mock provider only
	BatchSize int    `yaml:"batch_size"`
	CacheSize int    `yaml:"cache_size"`
	ChunkSize int    `yaml:"chunk_size"`
}

type ServeConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Path:      "data/movies.json",
			Key:       "movies",
			Stopwords: "data/stopwords.txt",
		},
		Index: IndexConfig{
			Dir:         DirName,
			Stemmer:     "porter",
			Compression: "zstd",
		},
		Search: SearchConfig{
			Limit:      5,
			Mode:       "bm25",
			K1:         1.2,
			B:          0.75,
			Precision:  2,
			RRFK:       60,
			BM25Weight: 0.5,
			CacheSize:  100,
			CacheTTL:   5 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Enabled:   false,
			Provider:  "ollama",
			Model:     "all-minilm",
			BaseURL:   "",
			BatchSize: 100,
			CacheSize: 1000,
			ChunkSize: 200,
		},
		Serve: ServeConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads kwsearch.yaml or .kwsearch/config.yaml from dir.
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, DirName, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return Load("")
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Index.Stemmer {
	case "porter", "snowball", "none":
	default:
		return fmt.Errorf("index.stemmer: unknown stemmer %q", c.Index.Stemmer)
	}
	switch c.Index.Compression {
	case "none", "lz4", "zstd":
	default:
		return fmt.Errorf("index.compression: unknown codec %q", c.Index.Compression)
	}
	switch c.Search.Mode {
	case "bm25", "semantic", "hybrid":
	default:
		return fmt.Errorf("search.mode: unknown mode %q", c.Search.Mode)
	}
	if c.Corpus.Path == "" {
		return fmt.Errorf("corpus.path is required")
	}
	if c.Search.K1 < 0 {
		return fmt.Errorf("search.k1 must not be negative")
	}
	if c.Search.B < 0 || c.Search.B > 1 {
		return fmt.Errorf("search.b must be in [0, 1]")
	}
	if c.Search.Precision < 0 {
		return fmt.Errorf("search.precision must not be negative")
	}
	if c.Search.RRFK < 0 {
		return fmt.Errorf("search.rrf_k must not be negative")
	}
	if c.Search.BM25Weight < 0 || c.Search.BM25Weight > 1 {
		return fmt.Errorf("search.bm25_weight must be in [0, 1]")
	}
	if c.Embedding.ChunkSize <= 0 {
		return fmt.Errorf("embedding.chunk_size must be positive")
	}
	return nil
}

// applyEnvOverrides reads KWSEARCH_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KWSEARCH_CORPUS"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("KWSEARCH_STOPWORDS"); v != "" {
		cfg.Corpus.Stopwords = v
	}
	if v := os.Getenv("KWSEARCH_INDEX_DIR"); v != "" {
		cfg.Index.Dir = v
	}
	if v := os.Getenv("KWSEARCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KWSEARCH_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("KWSEARCH_ADDR"); v != "" {
		cfg.Serve.Addr = v
	}
	if v := os.Getenv("KWSEARCH_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("KWSEARCH_EMBEDDING_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Embedding.Enabled = enabled
		}
	}
}

// ResolvePath makes p absolute relative to root.
func ResolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// IndexDir returns the directory holding index artifacts for root.
func (c *Config) IndexDir(root string) string {
	return ResolvePath(root, c.Index.Dir)
}

// IndexDBPath returns the path to the index database.
func (c *Config) IndexDBPath(root string) string {
	return filepath.Join(c.IndexDir(root), "index.db")
}

// EmbeddingsDBPath returns the path to the stored document vectors.
func (c *Config) EmbeddingsDBPath(root string) string {
	return filepath.Join(c.IndexDir(root), "embeddings.db")
}

// EnsureIndexDir ensures the index directory exists.
func (c *Config) EnsureIndexDir(root string) error {
	return os.MkdirAll(c.IndexDir(root), 0755)
}
