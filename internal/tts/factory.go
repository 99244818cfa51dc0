package tts

import (
	"context"
	"fmt"
)

// Provider names accepted in Voice.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderHume   = "hume"
)

// MultiClient dispatches synthesis requests to the provider named in the
// voice descriptor.
type MultiClient struct {
	openai *OpenAIClient
	hume   *HumeClient
}

// NewMultiClient creates a client that routes per-voice between the
// configured providers.
func NewMultiClient(openai *OpenAIClient, hume *HumeClient) *MultiClient {
	return &MultiClient{openai: openai, hume: hume}
}

// Synthesize routes to the provider named in voice.Provider.
func (m *MultiClient) Synthesize(ctx context.Context, text string, voice Voice) (*Result, error) {
	switch voice.Provider {
	case ProviderOpenAI:
		return m.openai.Synthesize(ctx, text, voice)
	case ProviderHume:
		return m.hume.Synthesize(ctx, text, voice)
	default:
		return nil, fmt.Errorf("unsupported TTS provider %q", voice.Provider)
	}
}
