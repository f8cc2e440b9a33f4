// Package embed generates vector embeddings for pattern text. A missing
// vector is a valid degraded outcome: patterns stored without one stay
// retrievable through strength-ordered listing only.
package embed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(text string) ([]float32, error)
	EmbedBatch(texts []string) ([][]float32, error)
	Dimensions() int
}

// NewDefault returns the best available embedder: OpenAI when an API key is
// configured, the local hashing embedder otherwise. The result is wrapped in
// a cache and a sticky local fallback.
func NewDefault() Embedder {
	var base Embedder
	if e, err := NewOpenAIEmbedder(); err == nil {
		base = NewFallbackEmbedder(e)
	} else {
		base = NewLocalEmbedder()
	}
	cached, err := NewCachedEmbedder(base)
	if err != nil {
		return base
	}
	return cached
}

// FallbackEmbedder wraps a primary embedder and falls back to the local one
// on errors (e.g. expired API keys). The failure is sticky for the session.
// Safe for concurrent use; compaction runs for different conversations share
// one embedder.
type FallbackEmbedder struct {
	primary  Embedder
	fallback Embedder
	failed   atomic.Bool
}

func NewFallbackEmbedder(primary Embedder) *FallbackEmbedder {
	return &FallbackEmbedder{
		primary:  primary,
		fallback: NewLocalEmbedder(),
	}
}

func (f *FallbackEmbedder) Embed(text string) ([]float32, error) {
	if f.failed.Load() {
		return f.fallback.Embed(text)
	}
	result, err := f.primary.Embed(text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "primary embedder failed (%v), falling back to local\n", err)
		f.failed.Store(true)
		return f.fallback.Embed(text)
	}
	return result, nil
}

func (f *FallbackEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	if f.failed.Load() {
		return f.fallback.EmbedBatch(texts)
	}
	result, err := f.primary.EmbedBatch(texts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "primary embedder failed (%v), falling back to local\n", err)
		f.failed.Store(true)
		return f.fallback.EmbedBatch(texts)
	}
	return result, nil
}

func (f *FallbackEmbedder) Dimensions() int {
	if f.failed.Load() {
		return f.fallback.Dimensions()
	}
	return f.primary.Dimensions()
}

// OpenAIEmbedder uses OpenAI's embedding API.
type OpenAIEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

// NewOpenAIEmbedder creates an embedder backed by OpenAI's API. Requires
// OPENAI_API_KEY in the environment.
func NewOpenAIEmbedder() (*OpenAIEmbedder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	return &OpenAIEmbedder{
		apiKey:     apiKey,
		model:      "text-embedding-3-small",
		dimensions: 1536,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (e *OpenAIEmbedder) Embed(text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	return callEmbeddingAPI(e.client, "https://api.openai.com/v1/embeddings", e.apiKey, e.model, texts)
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// callEmbeddingAPI is shared logic for OpenAI-compatible embedding endpoints.
func callEmbeddingAPI(client *http.Client, url, apiKey, model string, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"model": model,
		"input": texts,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}
	return embeddings, nil
}
