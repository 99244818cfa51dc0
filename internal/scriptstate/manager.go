// Package scriptstate owns the in-memory block list for one open
// script. Every mutation is reflected locally at once; persistence
// happens through a trailing-edge debounced save so a burst of edits
// produces a single write carrying the final state.
package scriptstate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mhruby/voicescript/internal/storage"
	"github.com/mhruby/voicescript/internal/store"
	"github.com/mhruby/voicescript/internal/tts"
)

// DefaultSaveWindow is the quiet period after the last qualifying edit
// before the coalesced save fires.
const DefaultSaveWindow = time.Second

// Snapshot is the full script state handed to the Saver. Saves always
// carry the whole script, never a delta.
type Snapshot struct {
	ScriptID    string
	Name        string
	Description string
	VoiceID     string
	Sections    []store.Section
}

// Saver persists a script snapshot. The manager never retries a failed
// save; the next mutation arms a fresh one.
type Saver interface {
	SaveScript(ctx context.Context, snap Snapshot) error
}

// Synthesizer produces audio for a block's text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice tts.Voice) (*tts.Result, error)
}

// Uploader stores an audio payload and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string, meta storage.Metadata) (string, error)
}

// VoiceResolver maps a stored voice id to a synthesis descriptor.
// An empty id resolves to the default voice.
type VoiceResolver interface {
	ResolveVoice(ctx context.Context, voiceID string) (tts.Voice, error)
}

// BlockUpdate holds the partial fields UpdateBlock can merge into a
// block. Nil fields are left unchanged.
type BlockUpdate struct {
	Text *string
	URL  *string
}

// Config wires a Manager to its collaborators.
type Config struct {
	ScriptID    string
	Name        string
	Description string
	VoiceID     string
	Sections    []store.Section

	Saver    Saver
	Synth    Synthesizer
	Uploader Uploader
	Voices   VoiceResolver

	SaveWindow  time.Duration // defaults to DefaultSaveWindow
	Logger      *log.Logger
	OnSaveError func(error) // called when a background save fails; may be nil
}

// State is a read-only copy of the manager's current state.
type State struct {
	ScriptID      string          `json:"scriptId"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	VoiceID       string          `json:"voiceId,omitempty"`
	Sections      []store.Section `json:"sections"`
	ActiveBlockID string          `json:"activeBlockId,omitempty"`
}

// Manager coordinates block edits, the debounced save and audio
// generation for one open script. Safe for concurrent use.
type Manager struct {
	mu            sync.Mutex
	scriptID      string
	name          string
	description   string
	voiceID       string
	sections      []store.Section
	activeBlockID string

	saver       Saver
	synth       Synthesizer
	uploader    Uploader
	voices      VoiceResolver
	logger      *log.Logger
	onSaveError func(error)

	// Single-slot debounce: arming replaces both the timer and the
	// pending snapshot; firing clears both and issues one save.
	window  time.Duration
	timer   *time.Timer
	pending *Snapshot
	saveGen uint64
}

// New creates a manager seeded with the script's loaded state.
func New(cfg Config) *Manager {
	window := cfg.SaveWindow
	if window <= 0 {
		window = DefaultSaveWindow
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	sections := make([]store.Section, len(cfg.Sections))
	copy(sections, cfg.Sections)

	return &Manager{
		scriptID:    cfg.ScriptID,
		name:        cfg.Name,
		description: cfg.Description,
		voiceID:     cfg.VoiceID,
		sections:    sections,
		saver:       cfg.Saver,
		synth:       cfg.Synth,
		uploader:    cfg.Uploader,
		voices:      cfg.Voices,
		logger:      logger,
		onSaveError: cfg.OnSaveError,
		window:      window,
	}
}

// ScriptID returns the id of the script this manager edits.
func (m *Manager) ScriptID() string {
	return m.scriptID
}

// State returns a copy of the current in-memory script state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	sections := make([]store.Section, len(m.sections))
	copy(sections, m.sections)
	return State{
		ScriptID:      m.scriptID,
		Name:          m.name,
		Description:   m.description,
		VoiceID:       m.voiceID,
		Sections:      sections,
		ActiveBlockID: m.activeBlockID,
	}
}

// AddBlock appends a new empty block, makes it the active edit target
// and returns its id. Nothing is persisted until the block is edited.
func (m *Manager) AddBlock() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.sections = append(m.sections, store.Section{ID: id})
	m.activeBlockID = id
	return id
}

// UpdateBlock merges the given fields into the block matching id and
// arms the debounced save. An unknown id leaves the block list
// untouched but still re-arms the save, matching the UI contract that
// edit events are never rejected.
func (m *Manager) UpdateBlock(id string, upd BlockUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.sections {
		if m.sections[i].ID != id {
			continue
		}
		if upd.Text != nil {
			m.sections[i].Text = *upd.Text
		}
		if upd.URL != nil {
			m.sections[i].URL = *upd.URL
		}
		break
	}
	m.armSaveLocked()
}

// RemoveBlock deletes the block and persists synchronously, bypassing
// the debounce. Any pending coalesced snapshot is discarded first so a
// stale save can never resurrect the removed block.
func (m *Manager) RemoveBlock(ctx context.Context, id string) error {
	m.mu.Lock()

	kept := m.sections[:0]
	for _, s := range m.sections {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	m.sections = kept
	if m.activeBlockID == id {
		m.activeBlockID = ""
	}

	m.cancelPendingLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	return m.save(ctx, snap)
}

// SetActiveBlock records which block the UI is editing. Local state
// only, never persisted.
func (m *Manager) SetActiveBlock(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeBlockID = id
}

// SetVoiceID updates the script-level default voice and arms the
// debounced save.
func (m *Manager) SetVoiceID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voiceID = id
	m.armSaveLocked()
}

// GenerateAudio synthesizes the block's current text with the script's
// voice, uploads the result and writes the URL back into the block.
// Missing blocks and whitespace-only text are silent no-ops that make
// no network calls.
func (m *Manager) GenerateAudio(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	var text string
	found := false
	for _, s := range m.sections {
		if s.ID == id {
			text = s.Text
			found = true
			break
		}
	}
	voiceID := m.voiceID
	m.mu.Unlock()

	if !found || strings.TrimSpace(text) == "" {
		return "", nil
	}

	voice, err := m.voices.ResolveVoice(ctx, voiceID)
	if err != nil {
		return "", fmt.Errorf("resolve voice: %w", err)
	}

	res, err := m.synth.Synthesize(ctx, text, voice)
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}

	url, err := m.uploader.Upload(ctx, res.Audio, storage.AudioFilename(text, time.Now()), storage.Metadata{
		Duration: res.Duration,
		VoiceID:  voiceID,
	})
	if err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}

	m.UpdateBlock(id, BlockUpdate{URL: &url})
	return url, nil
}

// Flush fires any pending debounced save immediately. Called when the
// editor session closes or the process shuts down.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	snap := m.pending
	m.cancelPendingLocked()
	m.mu.Unlock()

	if snap == nil {
		return nil
	}
	return m.save(ctx, *snap)
}

// armSaveLocked replaces the pending snapshot with the current state
// and restarts the quiet-period timer. Only the most recently armed
// snapshot is ever sent.
func (m *Manager) armSaveLocked() {
	snap := m.snapshotLocked()
	m.pending = &snap

	m.saveGen++
	gen := m.saveGen
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.window, func() { m.fireSave(gen) })
}

// cancelPendingLocked drops the pending snapshot and invalidates any
// timer already in flight.
func (m *Manager) cancelPendingLocked() {
	m.saveGen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.pending = nil
}

func (m *Manager) fireSave(gen uint64) {
	m.mu.Lock()
	if gen != m.saveGen || m.pending == nil {
		// A later arm or cancel superseded this timer.
		m.mu.Unlock()
		return
	}
	snap := *m.pending
	m.pending = nil
	m.timer = nil
	m.mu.Unlock()

	_ = m.save(context.Background(), snap)
}

// save issues one persistence call. Failures are logged and reported
// through the notify callback; in-memory state is never rolled back, so
// local and stored state may diverge until the next successful save.
func (m *Manager) save(ctx context.Context, snap Snapshot) error {
	err := m.saver.SaveScript(ctx, snap)
	if err != nil {
		m.logger.Printf("scriptstate: save script %s failed: %v", snap.ScriptID, err)
		if m.onSaveError != nil {
			m.onSaveError(err)
		}
	}
	return err
}

func (m *Manager) snapshotLocked() Snapshot {
	sections := make([]store.Section, len(m.sections))
	copy(sections, m.sections)
	return Snapshot{
		ScriptID:    m.scriptID,
		Name:        m.name,
		Description: m.description,
		VoiceID:     m.voiceID,
		Sections:    sections,
	}
}
