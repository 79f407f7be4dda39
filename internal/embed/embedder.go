// Package embed computes text embeddings for semantic similarity in the
// consistency engine. The Embedder interface keeps the engine replaceable:
// the default implementation calls the OpenAI embeddings API with an
// in-memory cache in front of it.
package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"

	"github.com/bytefield-ai/chronicle/internal/resilience"
)

// Embedder produces a vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder implements Embedder via the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	cache  *gocache.Cache
	retry  resilience.RetryConfig
}

// NewOpenAIEmbedder creates an embedder. Model defaults to
// text-embedding-3-small when empty.
func NewOpenAIEmbedder(apiKey, baseURL, model string) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.EmbeddingModel(model),
		cache:  gocache.New(30*time.Minute, 10*time.Minute),
		retry:  resilience.DefaultRetryConfig(),
	}
}

// Embed returns the embedding for text, memoized by content hash. Channel
// history claims are re-embedded on every episode otherwise.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if v, found := e.cache.Get(key); found {
		return v.([]float32), nil
	}

	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (openai.EmbeddingResponse, error) {
		return e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: e.model,
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "embed: create embeddings")
	}
	if len(resp.Data) == 0 {
		return nil, eris.New("embed: empty response")
	}

	vec := resp.Data[0].Embedding
	e.cache.Set(key, vec, gocache.DefaultExpiration)
	return vec, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Cosine computes cosine similarity between two vectors. Returns 0 for
// mismatched or zero-length vectors.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
