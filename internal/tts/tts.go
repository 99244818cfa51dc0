package tts

import "context"

// Voice describes how a piece of text should be spoken: which provider
// synthesizes it, the provider preset (OpenAI only) and the instruction
// prompt.
type Voice struct {
	Provider    string // "openai" or "hume"
	OpenAIVoice string // preset name, openai provider only
	Prompt      string // provider instruction text
}

// Result carries the synthesized audio and what the provider reported
// about it. Duration is zero when the provider does not return one.
type Result struct {
	Audio    []byte
	Duration float64 // seconds
	Format   string  // e.g. "mp3"
}

// Client defines the interface for text-to-speech providers.
type Client interface {
	// Synthesize converts text to speech using the given voice.
	Synthesize(ctx context.Context, text string, voice Voice) (*Result, error)
}
