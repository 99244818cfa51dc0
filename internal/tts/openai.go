package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient implements the Client interface using OpenAI's speech API.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	modelID    string
	httpClient *http.Client
}

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string       // defaults to the public API; tests point this at a local server
	ModelID    string       // e.g. "gpt-4o-mini-tts"
	HTTPClient *http.Client // optional shared client with connection pooling
}

// NewOpenAIClient creates a new OpenAI speech client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = "gpt-4o-mini-tts" // supports per-request voice instructions
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		modelID:    modelID,
		httpClient: httpClient,
	}
}

// speechRequest represents an OpenAI audio/speech request.
type speechRequest struct {
	Model        string `json:"model"`
	Input        string `json:"input"`
	Voice        string `json:"voice"`
	Instructions string `json:"instructions,omitempty"`
}

// Synthesize converts text to speech and returns MP3 audio data.
func (c *OpenAIClient) Synthesize(ctx context.Context, text string, voice Voice) (*Result, error) {
	preset := voice.OpenAIVoice
	if preset == "" {
		preset = "alloy"
	}

	req := speechRequest{
		Model:        c.modelID,
		Input:        text,
		Voice:        preset,
		Instructions: voice.Prompt,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("OpenAI API error: %s - %s", resp.Status, string(respBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// The speech endpoint returns raw audio bytes and no duration.
	return &Result{Audio: audio, Format: "mp3"}, nil
}
