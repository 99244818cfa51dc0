package httpapi

import (
	"context"
	"sync"

	"github.com/mhruby/voicescript/internal/scriptstate"
)

// EditorRegistry tracks the editor session for each open script. At
// most one session exists per script id; opening an already-open script
// returns the existing session so edits keep going to the same
// in-memory state.
type EditorRegistry struct {
	mu      sync.Mutex
	editors map[string]*scriptstate.Manager
}

// NewEditorRegistry creates an empty registry.
func NewEditorRegistry() *EditorRegistry {
	return &EditorRegistry{editors: make(map[string]*scriptstate.Manager)}
}

// Get returns the session for a script, or nil when it is not open.
func (er *EditorRegistry) Get(scriptID string) *scriptstate.Manager {
	er.mu.Lock()
	defer er.mu.Unlock()
	return er.editors[scriptID]
}

// Open returns the existing session for a script or builds one via
// load. The lock is held across load so two concurrent opens cannot
// create competing sessions for the same script.
func (er *EditorRegistry) Open(scriptID string, load func() (*scriptstate.Manager, error)) (*scriptstate.Manager, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	if m, ok := er.editors[scriptID]; ok {
		return m, nil
	}
	m, err := load()
	if err != nil {
		return nil, err
	}
	if m != nil {
		er.editors[scriptID] = m
	}
	return m, nil
}

// Close flushes any pending save and drops the session. Closing a
// script that is not open is a no-op.
func (er *EditorRegistry) Close(ctx context.Context, scriptID string) error {
	er.mu.Lock()
	m := er.editors[scriptID]
	delete(er.editors, scriptID)
	er.mu.Unlock()

	if m == nil {
		return nil
	}
	return m.Flush(ctx)
}

// CloseAll flushes and drops every open session. Used on shutdown.
func (er *EditorRegistry) CloseAll(ctx context.Context) {
	er.mu.Lock()
	editors := er.editors
	er.editors = make(map[string]*scriptstate.Manager)
	er.mu.Unlock()

	for _, m := range editors {
		_ = m.Flush(ctx)
	}
}

// Count returns the number of open sessions.
func (er *EditorRegistry) Count() int {
	er.mu.Lock()
	defer er.mu.Unlock()
	return len(er.editors)
}
