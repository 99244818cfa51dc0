package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/mhruby/voicescript/internal/eventlog"
	"github.com/mhruby/voicescript/internal/store"
	"github.com/mhruby/voicescript/internal/tts"
)

type voiceRequest struct {
	Name        string  `json:"name"`
	Provider    string  `json:"provider"`
	OpenAIVoice *string `json:"openaiVoice"`
	Prompt      string  `json:"prompt"`
}

// validate enforces the voice record contract: name and prompt are
// required, provider must be a known one, and the openai provider needs
// a preset name.
func (v voiceRequest) validate() string {
	if v.Name == "" {
		return "name is required"
	}
	if v.Prompt == "" {
		return "prompt is required"
	}
	if v.Provider != tts.ProviderOpenAI && v.Provider != tts.ProviderHume {
		return "provider must be openai or hume"
	}
	if v.Provider == tts.ProviderOpenAI && (v.OpenAIVoice == nil || *v.OpenAIVoice == "") {
		return "openaiVoice is required for the openai provider"
	}
	return ""
}

func (r *Router) handleListVoices(w http.ResponseWriter, req *http.Request) {
	voices, err := r.store.ListVoices(req.Context())
	if err != nil {
		r.logger.Printf("voices: list failed: %v", err)
		captureError(req, err, "list voices")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch voices"})
		return
	}
	if voices == nil {
		voices = []store.Voice{}
	}
	writeJSON(w, http.StatusOK, voices)
}

func (r *Router) handleCreateVoice(w http.ResponseWriter, req *http.Request) {
	var body voiceRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := body.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	v, err := r.store.CreateVoice(req.Context(), body.Name, body.Provider, body.OpenAIVoice, body.Prompt)
	if err != nil {
		r.logger.Printf("voices: create failed: %v", err)
		captureError(req, err, "create voice")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create voice"})
		return
	}

	r.eventLog.LogAsync(v.ID, eventlog.EventVoiceCreated, map[string]any{
		"name":     v.Name,
		"provider": v.Provider,
	})
	writeJSON(w, http.StatusCreated, v)
}

func (r *Router) handleGetVoice(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")

	v, err := r.store.GetVoice(req.Context(), id)
	if err != nil {
		r.logger.Printf("voices: get %s failed: %v", id, err)
		captureError(req, err, "get voice")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch voice"})
		return
	}
	if v == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "voice not found"})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (r *Router) handleUpdateVoice(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")

	var body voiceRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := body.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	v, err := r.store.UpdateVoice(req.Context(), id, store.VoiceUpdate{
		Name:        &body.Name,
		Provider:    &body.Provider,
		OpenAIVoice: body.OpenAIVoice,
		Prompt:      &body.Prompt,
	})
	if err != nil {
		r.logger.Printf("voices: update %s failed: %v", id, err)
		captureError(req, err, "update voice")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update voice"})
		return
	}
	if v == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "voice not found"})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (r *Router) handleDeleteVoice(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")

	ok, err := r.store.DeleteVoice(req.Context(), id)
	if err != nil {
		r.logger.Printf("voices: delete %s failed: %v", id, err)
		captureError(req, err, "delete voice")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete voice"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "voice not found"})
		return
	}

	r.eventLog.LogAsync(id, eventlog.EventVoiceDeleted, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
