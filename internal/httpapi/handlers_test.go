package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mhruby/voicescript/internal/eventlog"
	"github.com/mhruby/voicescript/internal/scriptstate"
	"github.com/mhruby/voicescript/internal/storage"
	"github.com/mhruby/voicescript/internal/store"
	"github.com/mhruby/voicescript/internal/tts"
)

// newTestRouter builds a router without database or NATS backends.
// Only routes that validate before touching the store can be exercised.
func newTestRouter() *Router {
	r := &Router{
		logger:   log.New(io.Discard, "", 0),
		eventLog: eventlog.New(nil),
		editors:  NewEditorRegistry(),
		mux:      http.NewServeMux(),
	}
	r.routes()
	return r
}

func doJSON(t *testing.T, r *Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateScriptValidation(t *testing.T) {
	r := newTestRouter()

	t.Run("rejects invalid JSON", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/scripts", "{not json")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("rejects missing name", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/scripts", `{"description": "no name"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		var resp map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp["error"] != "name is required" {
			t.Errorf("error = %q, want %q", resp["error"], "name is required")
		}
	})
}

func TestUpdateScriptValidation(t *testing.T) {
	r := newTestRouter()

	rec := doJSON(t, r, http.MethodPut, "/api/scripts/abc", `{"sections": []}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestVoiceRequestValidate(t *testing.T) {
	alloy := "alloy"
	empty := ""

	tests := []struct {
		name    string
		req     voiceRequest
		wantMsg string
	}{
		{
			name:    "valid hume voice",
			req:     voiceRequest{Name: "Whisper", Provider: tts.ProviderHume, Prompt: "whisper softly"},
			wantMsg: "",
		},
		{
			name:    "valid openai voice",
			req:     voiceRequest{Name: "Narrator", Provider: tts.ProviderOpenAI, OpenAIVoice: &alloy, Prompt: "read calmly"},
			wantMsg: "",
		},
		{
			name:    "missing name",
			req:     voiceRequest{Provider: tts.ProviderHume, Prompt: "p"},
			wantMsg: "name is required",
		},
		{
			name:    "missing prompt",
			req:     voiceRequest{Name: "n", Provider: tts.ProviderHume},
			wantMsg: "prompt is required",
		},
		{
			name:    "unknown provider",
			req:     voiceRequest{Name: "n", Provider: "elevenlabs", Prompt: "p"},
			wantMsg: "provider must be openai or hume",
		},
		{
			name:    "openai without preset",
			req:     voiceRequest{Name: "n", Provider: tts.ProviderOpenAI, Prompt: "p"},
			wantMsg: "openaiVoice is required for the openai provider",
		},
		{
			name:    "openai with empty preset",
			req:     voiceRequest{Name: "n", Provider: tts.ProviderOpenAI, OpenAIVoice: &empty, Prompt: "p"},
			wantMsg: "openaiVoice is required for the openai provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if msg := tt.req.validate(); msg != tt.wantMsg {
				t.Errorf("validate() = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestSynthesizeValidation(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", "{"},
		{"missing text", `{"voiceId": "v1"}`},
		{"whitespace-only text", `{"text": "   \n\t "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/api/tts", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestEditorEndpointsRequireOpenSession(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/editor/script-1/state"},
		{http.MethodPost, "/api/editor/script-1/blocks"},
		{http.MethodPatch, "/api/editor/script-1/blocks/b1"},
		{http.MethodDelete, "/api/editor/script-1/blocks/b1"},
		{http.MethodPost, "/api/editor/script-1/blocks/b1/audio"},
		{http.MethodPut, "/api/editor/script-1/voice"},
		{http.MethodPut, "/api/editor/script-1/active-block"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := doJSON(t, r, tt.method, tt.path, `{}`)
			if rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
			}
		})
	}
}

type stubSynth struct{}

func (stubSynth) Synthesize(_ context.Context, _ string, _ tts.Voice) (*tts.Result, error) {
	return &tts.Result{Audio: []byte("mp3-bytes"), Duration: 1.5, Format: "mp3"}, nil
}

type stubResolver struct{}

func (stubResolver) ResolveVoice(_ context.Context, _ string) (tts.Voice, error) {
	return tts.Voice{Provider: tts.ProviderHume, Prompt: "whisper"}, nil
}

// openTestSession registers a live editor session backed by in-memory
// fakes so the editor handlers can be exercised end to end.
func openTestSession(t *testing.T, r *Router, scriptID string, saver scriptstate.Saver, up scriptstate.Uploader) *scriptstate.Manager {
	t.Helper()
	m, err := r.editors.Open(scriptID, func() (*scriptstate.Manager, error) {
		return scriptstate.New(scriptstate.Config{
			ScriptID: scriptID,
			Name:     "demo",
			Sections: []store.Section{{ID: "b1", Text: "first block"}},
			Saver:    saver,
			Synth:    stubSynth{},
			Uploader: up,
			Voices:   stubResolver{},
			Logger:   log.New(io.Discard, "", 0),
		}), nil
	})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return m
}

type urlUploader struct{}

func (urlUploader) Upload(_ context.Context, _ []byte, filename string, _ storage.Metadata) (string, error) {
	return "https://cdn.test/audio/" + filename, nil
}

func TestEditorBlockFlow(t *testing.T) {
	r := newTestRouter()
	saver := &recordingSaver{}
	openTestSession(t, r, "script-1", saver, urlUploader{})

	// Add a block.
	rec := doJSON(t, r, http.MethodPost, "/api/editor/script-1/blocks", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("add block: status = %d, want %d", rec.Code, http.StatusCreated)
	}
	var added map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&added); err != nil {
		t.Fatalf("decode add response: %v", err)
	}
	blockID := added["blockId"]
	if blockID == "" {
		t.Fatal("add block returned empty blockId")
	}

	// Adding a block alone must not persist anything.
	if saver.count() != 0 {
		t.Errorf("saves = %d, want 0 after add", saver.count())
	}

	// Edit it.
	rec = doJSON(t, r, http.MethodPatch, "/api/editor/script-1/blocks/"+blockID, `{"text": "spoken words"}`)
	if rec.Code != http.StatusAccepted {
		t.Errorf("update block: status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	// State reflects the edit immediately, ahead of any save.
	rec = doJSON(t, r, http.MethodGet, "/api/editor/script-1/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("state: status = %d, want %d", rec.Code, http.StatusOK)
	}
	var st scriptstate.State
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(st.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(st.Sections))
	}
	if st.Sections[1].Text != "spoken words" {
		t.Errorf("section text = %q, want %q", st.Sections[1].Text, "spoken words")
	}
	if st.ActiveBlockID != blockID {
		t.Errorf("activeBlockId = %q, want %q", st.ActiveBlockID, blockID)
	}

	// Remove it; removal saves synchronously.
	rec = doJSON(t, r, http.MethodDelete, "/api/editor/script-1/blocks/"+blockID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("remove block: status = %d, want %d", rec.Code, http.StatusOK)
	}
	if saver.count() == 0 {
		t.Error("remove block must persist synchronously")
	}
}

func TestEditorGenerateAudio(t *testing.T) {
	r := newTestRouter()
	saver := &recordingSaver{}
	openTestSession(t, r, "script-1", saver, urlUploader{})

	rec := doJSON(t, r, http.MethodPost, "/api/editor/script-1/blocks/b1/audio", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp["url"], "https://cdn.test/audio/") {
		t.Errorf("url = %q, want cdn prefix", resp["url"])
	}
	if !strings.HasSuffix(resp["url"], ".mp3") {
		t.Errorf("url = %q, want .mp3 suffix", resp["url"])
	}
}

func TestEditorGenerateAudioUnknownBlock(t *testing.T) {
	r := newTestRouter()
	saver := &recordingSaver{}
	openTestSession(t, r, "script-1", saver, urlUploader{})

	rec := doJSON(t, r, http.MethodPost, "/api/editor/script-1/blocks/no-such-block/audio", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["url"] != "" {
		t.Errorf("url = %q, want empty for a missing block", resp["url"])
	}
}

func TestEditorSetVoiceAndActiveBlock(t *testing.T) {
	r := newTestRouter()
	saver := &recordingSaver{}
	openTestSession(t, r, "script-1", saver, urlUploader{})

	rec := doJSON(t, r, http.MethodPut, "/api/editor/script-1/voice", `{"voiceId": "v-42"}`)
	if rec.Code != http.StatusAccepted {
		t.Errorf("set voice: status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	rec = doJSON(t, r, http.MethodPut, "/api/editor/script-1/active-block", `{"blockId": "b1"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("set active block: status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/editor/script-1/state", "")
	var st scriptstate.State
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.VoiceID != "v-42" {
		t.Errorf("voiceId = %q, want %q", st.VoiceID, "v-42")
	}
	if st.ActiveBlockID != "b1" {
		t.Errorf("activeBlockId = %q, want %q", st.ActiveBlockID, "b1")
	}
}

func TestEditorUpdateBlockBadJSON(t *testing.T) {
	r := newTestRouter()
	saver := &recordingSaver{}
	openTestSession(t, r, "script-1", saver, urlUploader{})

	rec := doJSON(t, r, http.MethodPatch, "/api/editor/script-1/blocks/b1", "{bad")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := withCORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("preflight must not reach the next handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/scripts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "*")
	}
}
