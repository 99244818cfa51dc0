package httpapi

import (
	"context"
	"fmt"

	"github.com/mhruby/voicescript/internal/eventlog"
	"github.com/mhruby/voicescript/internal/scriptstate"
	"github.com/mhruby/voicescript/internal/store"
	"github.com/mhruby/voicescript/internal/tts"
)

// defaultVoice is used when a script has no voice selected or the
// selected voice no longer exists.
var defaultVoice = tts.Voice{
	Provider: tts.ProviderHume,
	Prompt:   "The speaker talks super slowly, whispering softly every word",
}

// scriptSaver adapts the store to the editor session's Saver interface.
// Each save writes the whole script row; last write wins.
type scriptSaver struct {
	store    *store.Store
	eventLog *eventlog.Logger
}

func (s scriptSaver) SaveScript(ctx context.Context, snap scriptstate.Snapshot) error {
	upd := store.ScriptUpdate{
		Name:        &snap.Name,
		Description: &snap.Description,
		Sections:    snap.Sections,
	}
	if snap.Sections == nil {
		upd.Sections = []store.Section{}
	}
	// Saves carry the whole snapshot: an empty voice means no voice,
	// and must clear the stored column rather than keep the old value.
	if snap.VoiceID != "" {
		upd.VoiceID = &snap.VoiceID
	} else {
		upd.ClearVoiceID = true
	}

	updated, err := s.store.UpdateScript(ctx, snap.ScriptID, upd)
	if err != nil {
		s.eventLog.LogAsync(snap.ScriptID, eventlog.EventSaveFailed, map[string]any{
			"error": err.Error(),
		})
		return err
	}
	if updated == nil {
		return fmt.Errorf("script %s not found", snap.ScriptID)
	}

	s.eventLog.LogAsync(snap.ScriptID, eventlog.EventScriptUpdated, map[string]any{
		"sections": len(snap.Sections),
	})
	return nil
}

// voiceResolver looks up a stored voice and maps it to a synthesis
// descriptor. Unknown or empty ids fall back to the default voice so a
// deleted voice never blocks generation.
type voiceResolver struct {
	store *store.Store
}

func (r voiceResolver) ResolveVoice(ctx context.Context, voiceID string) (tts.Voice, error) {
	if voiceID == "" {
		return defaultVoice, nil
	}

	v, err := r.store.GetVoice(ctx, voiceID)
	if err != nil {
		return tts.Voice{}, err
	}
	if v == nil {
		return defaultVoice, nil
	}

	out := tts.Voice{Provider: v.Provider, Prompt: v.Prompt}
	if v.OpenAIVoice != nil {
		out.OpenAIVoice = *v.OpenAIVoice
	}
	return out, nil
}
