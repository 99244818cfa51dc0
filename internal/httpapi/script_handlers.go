package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/mhruby/voicescript/internal/eventlog"
	"github.com/mhruby/voicescript/internal/store"
)

type createScriptRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Sections    []store.Section `json:"sections"`
	VoiceID     *string         `json:"voiceId"`
}

type updateScriptRequest struct {
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Sections    *[]store.Section `json:"sections"`
	VoiceID     *string          `json:"voiceId"`
}

func (r *Router) handleListScripts(w http.ResponseWriter, req *http.Request) {
	scripts, err := r.store.ListScripts(req.Context())
	if err != nil {
		r.logger.Printf("scripts: list failed: %v", err)
		captureError(req, err, "list scripts")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch scripts"})
		return
	}
	if scripts == nil {
		scripts = []store.Script{}
	}
	writeJSON(w, http.StatusOK, scripts)
}

func (r *Router) handleCreateScript(w http.ResponseWriter, req *http.Request) {
	var body createScriptRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	sc, err := r.store.CreateScript(req.Context(), body.Name, body.Description, body.Sections, body.VoiceID)
	if err != nil {
		r.logger.Printf("scripts: create failed: %v", err)
		captureError(req, err, "create script")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create script"})
		return
	}

	r.eventLog.LogAsync(sc.ID, eventlog.EventScriptCreated, map[string]any{"name": sc.Name})
	writeJSON(w, http.StatusCreated, sc)
}

func (r *Router) handleGetScript(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("scriptId")

	sc, err := r.store.GetScript(req.Context(), id)
	if err != nil {
		r.logger.Printf("scripts: get %s failed: %v", id, err)
		captureError(req, err, "get script")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch script"})
		return
	}
	if sc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "script not found"})
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (r *Router) handleUpdateScript(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("scriptId")

	var body updateScriptRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	upd := store.ScriptUpdate{
		Name:        &body.Name,
		Description: body.Description,
	}
	// A present-but-empty voiceId clears the voice; absent leaves it.
	if body.VoiceID != nil {
		if *body.VoiceID == "" {
			upd.ClearVoiceID = true
		} else {
			upd.VoiceID = body.VoiceID
		}
	}
	if body.Sections != nil {
		upd.Sections = *body.Sections
		if upd.Sections == nil {
			upd.Sections = []store.Section{}
		}
	}

	sc, err := r.store.UpdateScript(req.Context(), id, upd)
	if err != nil {
		r.logger.Printf("scripts: update %s failed: %v", id, err)
		captureError(req, err, "update script")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update script"})
		return
	}
	if sc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "script not found"})
		return
	}

	r.eventLog.LogAsync(sc.ID, eventlog.EventScriptUpdated, map[string]any{"sections": len(sc.Sections)})
	writeJSON(w, http.StatusOK, sc)
}

func (r *Router) handleDeleteScript(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("scriptId")

	// Drop any open editor session first; its pending save would
	// otherwise race the delete.
	_ = r.editors.Close(req.Context(), id)

	ok, err := r.store.DeleteScript(req.Context(), id)
	if err != nil {
		r.logger.Printf("scripts: delete %s failed: %v", id, err)
		captureError(req, err, "delete script")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete script"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "script not found"})
		return
	}

	r.eventLog.LogAsync(id, eventlog.EventScriptDeleted, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
