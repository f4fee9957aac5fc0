package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pkoukk/tiktoken-go"
)

// LLMInterface is the completion service: prompt in, raw answer text out.
type LLMInterface interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type GenerateRequest struct {
	Model  string `json:"model"`
	System string `json:"system"`
	Prompt string `json:"prompt"`
}

type GenerateResponse struct {
	Response string `json:"response"`
}

type LLMClient struct {
	apiURL string
	model  string
	system string
}

func NewLLMClient(apiURL, model, system string) *LLMClient {
	return &LLMClient{
		apiURL: apiURL,
		model:  model,
		system: system,
	}
}

func (l *LLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	defer func() {
		log.Printf("LLM answer took %v", time.Since(start))
	}()

	reqBody, err := json.Marshal(GenerateRequest{
		Model:  l.model,
		System: l.system,
		Prompt: prompt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	if count, err := CountTokens(prompt); err == nil {
		log.Printf("Prompt size: %d tokens, %d bytes", count, len(reqBody))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", l.apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("LLM API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(body, &genResp); err == nil && genResp.Response != "" {
		return genResp.Response, nil
	}

	// streaming backend: collect the chunked responses into one string
	var output bytes.Buffer
	decoder := json.NewDecoder(bytes.NewReader(body))
	for decoder.More() {
		var chunk GenerateResponse
		if err := decoder.Decode(&chunk); err != nil {
			break
		}
		output.WriteString(chunk.Response)
	}
	if output.Len() == 0 {
		return "", fmt.Errorf("no valid response from LLM API")
	}
	return output.String(), nil
}

// CountTokens estimates the prompt size with a gpt-3.5 compatible encoding.
func CountTokens(data string) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return 0, err
	}
	tokens := enc.Encode(data, nil, nil)
	return len(tokens), nil
}
