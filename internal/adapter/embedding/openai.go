package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// MaxBatch is the largest number of texts sent in one request.
const MaxBatch = 100

// maxErrorBody bounds how much of a failed response ends up in an error.
const maxErrorBody = 200

// knownDimensions lists output sizes of models we have defaults for.
// Unlisted models fall back to the provider default.
var knownDimensions = map[string]int{
	"all-minilm":             384,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"jina-embeddings-v3":     1024,
	"jina-embeddings-v4":     2048,
}

// OpenAIEmbedder talks to any service exposing the OpenAI /embeddings API.
type OpenAIEmbedder struct {
	apiKey    string
	model     string
	endpoint  string
	dimension int
	client    *http.Client
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
}

// NewOllamaEmbedder uses a local Ollama server; no API key is needed.
func NewOllamaEmbedder(model, baseURL string) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	if model == "" {
		model = "all-minilm"
	}
	return newOpenAIEmbedder("ollama", model, baseURL, 768, 120*time.Second), nil
}

// NewOpenAICompatibleEmbedder reads the API key from apiKeyEnv.
func NewOpenAICompatibleEmbedder(apiKeyEnv, model, baseURL string) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	return newOpenAIEmbedder(apiKey, model, baseURL, 1536, 60*time.Second), nil
}

func newOpenAIEmbedder(apiKey, model, baseURL string, defaultDim int, timeout time.Duration) *OpenAIEmbedder {
	dim, ok := knownDimensions[model]
	if !ok {
		dim = defaultDim
	}
	return &OpenAIEmbedder{
		apiKey:    apiKey,
		model:     model,
		endpoint:  baseURL + "/embeddings",
		dimension: dim,
		client:    &http.Client{Timeout: timeout},
	}
}

// Embed returns one vector per text, in input order, sending at most
// MaxBatch texts per request.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatch {
		end := min(start+MaxBatch, len(texts))
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed texts %d-%d: %w", start, end-1, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(embeddingRequest{Input: texts, Model: e.model}); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, preview(body))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response (body: %s): %w", preview(body), err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("API error: %s", parsed.Error.Message)
	}

	// Providers may answer out of order; place each vector by its index.
	vecs := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index >= 0 && d.Index < len(vecs) {
			vecs[d.Index] = d.Embedding
		}
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("API returned no embedding for input %d", i)
		}
	}
	return vecs, nil
}

func preview(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(bytes.TrimSpace(body))
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
