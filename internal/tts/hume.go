package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultHumeBaseURL = "https://api.hume.ai"

// humeSpeed slows delivery slightly; narration reads better below
// conversational pace.
const humeSpeed = 0.7

// HumeClient implements the Client interface using Hume's Octave TTS API.
type HumeClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// HumeConfig holds configuration for the Hume client.
type HumeConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewHumeClient creates a new Hume TTS client.
func NewHumeClient(cfg HumeConfig) *HumeClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultHumeBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HumeClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// humeUtterance is one segment of a Hume TTS request. Description is
// the acting instruction for the generated voice.
type humeUtterance struct {
	Text        string  `json:"text"`
	Description string  `json:"description,omitempty"`
	Speed       float64 `json:"speed,omitempty"`
}

type humeRequest struct {
	Utterances []humeUtterance `json:"utterances"`
}

type humeResponse struct {
	Generations []struct {
		Audio    string  `json:"audio"` // base64 encoded
		Duration float64 `json:"duration"`
	} `json:"generations"`
}

// Synthesize converts text to speech and returns decoded MP3 audio data
// along with the duration reported by Hume.
func (c *HumeClient) Synthesize(ctx context.Context, text string, voice Voice) (*Result, error) {
	req := humeRequest{
		Utterances: []humeUtterance{
			{
				Text:        text,
				Description: voice.Prompt,
				Speed:       humeSpeed,
			},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v0/tts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Hume-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("Hume API error: %s - %s", resp.Status, string(respBody))
	}

	var decoded humeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded.Generations) == 0 {
		return nil, fmt.Errorf("Hume API returned no generations")
	}

	gen := decoded.Generations[0]
	audio, err := base64.StdEncoding.DecodeString(gen.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio payload: %w", err)
	}

	return &Result{Audio: audio, Duration: gen.Duration, Format: "mp3"}, nil
}
