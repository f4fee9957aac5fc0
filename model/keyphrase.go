package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Keyphrase is one extracted phrase with its relevance score.
type Keyphrase struct {
	Phrase string  `json:"phrase"`
	Score  float64 `json:"score"`
}

// KeyphraseExtractor derives ranked key phrases from free text. Treated as a
// pure function text -> ordered list of phrases; the backing service runs a
// KeyBERT-style unsupervised model.
type KeyphraseExtractor interface {
	Extract(ctx context.Context, text string, minGram, maxGram, topN int) ([]Keyphrase, error)
}

type KeyphraseClient struct {
	apiURL string
}

type keyphraseRequest struct {
	Text       string `json:"text"`
	NgramRange [2]int `json:"ngram_range"`
	TopN       int    `json:"top_n"`
}

type keyphraseResponse struct {
	Keyphrases []Keyphrase `json:"keyphrases"`
}

func NewKeyphraseClient(apiURL string) *KeyphraseClient {
	return &KeyphraseClient{apiURL: apiURL}
}

func (c *KeyphraseClient) Extract(ctx context.Context, text string, minGram, maxGram, topN int) ([]Keyphrase, error) {
	req := keyphraseRequest{
		Text:       text,
		NgramRange: [2]int{minGram, maxGram},
		TopN:       topN,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("keyphrase API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var kpResp keyphraseResponse
	if err := json.Unmarshal(respBody, &kpResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return kpResp.Keyphrases, nil
}
