package embedding

import (
	"fmt"

	"kwsearch/internal/port"
)

// Options selects and configures an embedding provider.
type Options struct {
	Provider  string // openai, ollama, jina, deepseek, mock
	Model     string
	BaseURL   string // overrides the provider default
	APIKeyEnv string
	Dimension int // mock only
	CacheSize int // 0 uses DefaultCacheSize, negative disables caching
}

// New builds the embedder described by opts.
func New(opts Options) (port.Embedder, error) {
	var (
		emb port.Embedder
		err error
	)

	switch opts.Provider {
	case "ollama", "":
		emb, err = NewOllamaEmbedder(opts.Model, opts.BaseURL)
	case "openai":
		emb, err = NewOpenAICompatibleEmbedder(keyEnv(opts.APIKeyEnv, "OPENAI_API_KEY"), model(opts.Model, "text-embedding-3-small"), baseURL(opts.BaseURL, "https://api.openai.com/v1"))
	case "jina":
		emb, err = NewOpenAICompatibleEmbedder(keyEnv(opts.APIKeyEnv, "JINA_API_KEY"), model(opts.Model, "jina-embeddings-v3"), baseURL(opts.BaseURL, "https://api.jina.ai/v1"))
	case "deepseek":
		emb, err = NewOpenAICompatibleEmbedder(keyEnv(opts.APIKeyEnv, "DEEPSEEK_API_KEY"), opts.Model, baseURL(opts.BaseURL, "https://api.deepseek.com/v1"))
	case "mock":
		emb = NewMockEmbedder(opts.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	if opts.CacheSize < 0 {
		return emb, nil
	}
	return NewCachedEmbedder(emb, opts.CacheSize), nil
}

func keyEnv(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func model(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func baseURL(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
