package model

import (
	"context"
	"fmt"
	"math"

	"docqa/types"
)

// EmbedMode distinguishes query-time from document-time embedding. Some
// backends use asymmetric encoders and prefix the input accordingly.
type EmbedMode string

const (
	EmbedQuery    EmbedMode = "query"
	EmbedDocument EmbedMode = "document"
)

// EmbedderInterface produces one fixed-dimension vector per input text,
// in input order.
type EmbedderInterface interface {
	Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error)
}

// NewEmbedder selects the embedding backend from config.
func NewEmbedder(cfg types.Config) (EmbedderInterface, error) {
	switch cfg.EmbedderBackend {
	case "ollama":
		return NewOllamaEmbedder(cfg.OllamaURL, cfg.OllamaModel), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.OpenAIModel)
	default:
		return nil, fmt.Errorf("unknown embedder backend %q", cfg.EmbedderBackend)
	}
}

// l2normalize scales the vector to unit length so that cosine distance from
// the index stays in [0, 2] and similarity in [-1, 1].
func l2normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	for i, x := range v {
		v[i] = float32(float64(x) / norm)
	}
	return v
}
