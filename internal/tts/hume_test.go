package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHumeSynthesize(t *testing.T) {
	audio := []byte("hume-mp3-bytes")
	var gotReq humeRequest
	var gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/v0/tts" {
			t.Errorf("path = %q, want /v0/tts", req.URL.Path)
		}
		gotKey = req.Header.Get("X-Hume-Api-Key")
		if err := json.NewDecoder(req.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		resp := map[string]any{
			"generations": []map[string]any{
				{"audio": base64.StdEncoding.EncodeToString(audio), "duration": 2.4},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewHumeClient(HumeConfig{APIKey: "hume-test", BaseURL: srv.URL})

	res, err := c.Synthesize(context.Background(), "Hello there", Voice{
		Provider: ProviderHume,
		Prompt:   "The speaker whispers softly",
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(res.Audio) != string(audio) {
		t.Errorf("audio = %q, want %q", res.Audio, audio)
	}
	if res.Duration != 2.4 {
		t.Errorf("duration = %v, want 2.4", res.Duration)
	}
	if gotKey != "hume-test" {
		t.Errorf("X-Hume-Api-Key = %q, want hume-test", gotKey)
	}
	if len(gotReq.Utterances) != 1 {
		t.Fatalf("utterances = %d, want 1", len(gotReq.Utterances))
	}
	if gotReq.Utterances[0].Text != "Hello there" {
		t.Errorf("text = %q, want %q", gotReq.Utterances[0].Text, "Hello there")
	}
	if gotReq.Utterances[0].Description != "The speaker whispers softly" {
		t.Errorf("description = %q, want the voice prompt", gotReq.Utterances[0].Description)
	}
}

func TestHumeSynthesizeEmptyGenerations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"generations": []any{}})
	}))
	defer srv.Close()

	c := NewHumeClient(HumeConfig{APIKey: "hume-test", BaseURL: srv.URL})
	if _, err := c.Synthesize(context.Background(), "Hi", Voice{Provider: ProviderHume}); err == nil {
		t.Fatal("expected error when response has no generations")
	}
}

func TestHumeSynthesizeBadAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp := map[string]any{
			"generations": []map[string]any{{"audio": "not base64!!!", "duration": 1.0}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewHumeClient(HumeConfig{APIKey: "hume-test", BaseURL: srv.URL})
	if _, err := c.Synthesize(context.Background(), "Hi", Voice{Provider: ProviderHume}); err == nil {
		t.Fatal("expected error on undecodable audio payload")
	}
}

func TestMultiClientDispatch(t *testing.T) {
	m := NewMultiClient(
		NewOpenAIClient(OpenAIConfig{APIKey: "x"}),
		NewHumeClient(HumeConfig{APIKey: "y"}),
	)

	_, err := m.Synthesize(context.Background(), "Hi", Voice{Provider: "espeak"})
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}
