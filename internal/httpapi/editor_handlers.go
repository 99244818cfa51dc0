package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/mhruby/voicescript/internal/eventlog"
	"github.com/mhruby/voicescript/internal/scriptstate"
)

// handleEditorOpen loads the script and starts an editor session for
// it. Opening an already-open script returns the live session state,
// not a fresh copy from the database.
func (r *Router) handleEditorOpen(w http.ResponseWriter, req *http.Request) {
	scriptID := req.PathValue("scriptId")

	m, err := r.editors.Open(scriptID, func() (*scriptstate.Manager, error) {
		sc, err := r.store.GetScript(req.Context(), scriptID)
		if err != nil {
			return nil, err
		}
		if sc == nil {
			return nil, nil
		}

		voiceID := ""
		if sc.VoiceID != nil {
			voiceID = *sc.VoiceID
		}
		return scriptstate.New(scriptstate.Config{
			ScriptID:    sc.ID,
			Name:        sc.Name,
			Description: sc.Description,
			VoiceID:     voiceID,
			Sections:    sc.Sections,
			Saver:       scriptSaver{store: r.store, eventLog: r.eventLog},
			Synth:       r.tts,
			Uploader:    r.audio,
			Voices:      voiceResolver{store: r.store},
			SaveWindow:  r.cfg.SaveWindow,
			Logger:      r.logger,
			OnSaveError: func(err error) { sentry.CaptureException(err) },
		}), nil
	})
	if err != nil {
		r.logger.Printf("editor: open %s failed: %v", scriptID, err)
		captureError(req, err, "open editor")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to open script"})
		return
	}
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "script not found"})
		return
	}

	writeJSON(w, http.StatusOK, m.State())
}

func (r *Router) handleEditorState(w http.ResponseWriter, req *http.Request) {
	m := r.editors.Get(req.PathValue("scriptId"))
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "editor not open"})
		return
	}
	writeJSON(w, http.StatusOK, m.State())
}

// handleEditorClose flushes any pending save and ends the session.
func (r *Router) handleEditorClose(w http.ResponseWriter, req *http.Request) {
	scriptID := req.PathValue("scriptId")

	if err := r.editors.Close(req.Context(), scriptID); err != nil {
		r.logger.Printf("editor: close %s flush failed: %v", scriptID, err)
		captureError(req, err, "close editor")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save script"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"closed": true})
}

func (r *Router) handleEditorAddBlock(w http.ResponseWriter, req *http.Request) {
	m := r.editors.Get(req.PathValue("scriptId"))
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "editor not open"})
		return
	}

	id := m.AddBlock()
	writeJSON(w, http.StatusCreated, map[string]string{"blockId": id})
}

func (r *Router) handleEditorUpdateBlock(w http.ResponseWriter, req *http.Request) {
	m := r.editors.Get(req.PathValue("scriptId"))
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "editor not open"})
		return
	}

	var body struct {
		Text *string `json:"text"`
		URL  *string `json:"url"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	m.UpdateBlock(req.PathValue("blockId"), scriptstate.BlockUpdate{Text: body.Text, URL: body.URL})
	// Persistence is debounced; the edit is only accepted at this point.
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

func (r *Router) handleEditorRemoveBlock(w http.ResponseWriter, req *http.Request) {
	scriptID := req.PathValue("scriptId")
	blockID := req.PathValue("blockId")

	m := r.editors.Get(scriptID)
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "editor not open"})
		return
	}

	if err := m.RemoveBlock(req.Context(), blockID); err != nil {
		// The block is gone locally either way; only the save failed.
		captureError(req, err, "remove block")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save script"})
		return
	}

	r.eventLog.LogAsync(scriptID, eventlog.EventBlockRemoved, map[string]any{"block_id": blockID})
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (r *Router) handleEditorGenerateAudio(w http.ResponseWriter, req *http.Request) {
	scriptID := req.PathValue("scriptId")
	blockID := req.PathValue("blockId")

	m := r.editors.Get(scriptID)
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "editor not open"})
		return
	}

	url, err := m.GenerateAudio(req.Context(), blockID)
	if err != nil {
		r.logger.Printf("editor: generate audio for %s/%s failed: %v", scriptID, blockID, err)
		captureError(req, err, "generate audio")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to generate audio"})
		return
	}

	// An empty URL means the block was missing or blank; that is a
	// silent skip, not an error.
	if url != "" {
		r.eventLog.LogAsync(scriptID, eventlog.EventAudioGenerated, map[string]any{
			"block_id": blockID,
			"url":      url,
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (r *Router) handleEditorSetVoice(w http.ResponseWriter, req *http.Request) {
	m := r.editors.Get(req.PathValue("scriptId"))
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "editor not open"})
		return
	}

	var body struct {
		VoiceID string `json:"voiceId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	m.SetVoiceID(body.VoiceID)
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

func (r *Router) handleEditorSetActiveBlock(w http.ResponseWriter, req *http.Request) {
	m := r.editors.Get(req.PathValue("scriptId"))
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "editor not open"})
		return
	}

	var body struct {
		BlockID string `json:"blockId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	m.SetActiveBlock(body.BlockID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
