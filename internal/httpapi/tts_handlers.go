package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mhruby/voicescript/internal/eventlog"
	"github.com/mhruby/voicescript/internal/storage"
)

type synthesizeRequest struct {
	Text     string `json:"text"`
	VoiceID  string `json:"voiceId"`
	ScriptID string `json:"scriptId"` // optional, for the activity log
}

type synthesizeResponse struct {
	AudioData string `json:"audioData"` // base64 encoded
	URL       string `json:"url"`
	Format    string `json:"format"`
	Text      string `json:"text"`
}

// handleSynthesize is the one-shot synthesis endpoint: text in, audio
// uploaded, URL out.
func (r *Router) handleSynthesize(w http.ResponseWriter, req *http.Request) {
	var body synthesizeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	voice, err := voiceResolver{store: r.store}.ResolveVoice(req.Context(), body.VoiceID)
	if err != nil {
		r.logger.Printf("tts: resolve voice %q failed: %v", body.VoiceID, err)
		captureError(req, err, "resolve voice")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process text-to-speech request"})
		return
	}

	res, err := r.tts.Synthesize(req.Context(), body.Text, voice)
	if err != nil {
		r.logger.Printf("tts: synthesis failed: %v", err)
		captureError(req, err, "synthesize")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process text-to-speech request"})
		return
	}

	filename := storage.AudioFilename(body.Text, time.Now())
	url, err := r.audio.Upload(req.Context(), res.Audio, filename, storage.Metadata{
		Duration: res.Duration,
		VoiceID:  body.VoiceID,
	})
	if err != nil {
		r.logger.Printf("tts: upload %s failed: %v", filename, err)
		captureError(req, err, "upload audio")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process text-to-speech request"})
		return
	}

	r.eventLog.LogAsync(body.ScriptID, eventlog.EventAudioGenerated, map[string]any{
		"voice_id":    body.VoiceID,
		"url":         url,
		"duration_s":  res.Duration,
		"text_length": len(body.Text),
	})

	writeJSON(w, http.StatusOK, synthesizeResponse{
		AudioData: base64.StdEncoding.EncodeToString(res.Audio),
		URL:       url,
		Format:    res.Format,
		Text:      body.Text,
	})
}

// handleGetAudio streams a stored audio file.
func (r *Router) handleGetAudio(w http.ResponseWriter, req *http.Request) {
	filename := req.PathValue("filename")

	data, err := r.audio.Download(req.Context(), filename)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "audio not found"})
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(data)
}
