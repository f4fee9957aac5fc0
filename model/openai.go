package model

import (
	"context"
	"errors"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder uses the OpenAI API for embeddings. The API encoder is
// symmetric, so the mode only matters for backends that need it.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

func NewOpenAIEmbedder(model string) (*OpenAIEmbedder, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(key),
		model:  model,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string, _ EmbedMode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("cannot embed empty input")
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
		// keep vectors comparable with the 768-dim schema
		Dimensions: 768,
	})
	if err != nil {
		return nil, errors.New("OpenAI API error: " + err.Error())
	}

	if len(resp.Data) != len(texts) {
		return nil, errors.New("embedding count mismatch from API")
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		v := make([]float32, len(d.Embedding))
		copy(v, d.Embedding)
		out[i] = l2normalize(v)
	}
	return out, nil
}
