package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventType represents the type of activity event
type EventType string

const (
	EventScriptCreated  EventType = "script_created"
	EventScriptUpdated  EventType = "script_updated"
	EventScriptDeleted  EventType = "script_deleted"
	EventBlockRemoved   EventType = "block_removed"
	EventAudioGenerated EventType = "audio_generated"
	EventSaveFailed     EventType = "save_failed"
	EventVoiceCreated   EventType = "voice_created"
	EventVoiceDeleted   EventType = "voice_deleted"
)

// Logger provides best-effort activity logging to the database. Events
// are keyed by the id of the entity they concern, a script or a voice.
type Logger struct {
	db *pgxpool.Pool
}

// New creates a new event logger
func New(db *pgxpool.Pool) *Logger {
	return &Logger{db: db}
}

// Log writes an event to the database synchronously
func (l *Logger) Log(ctx context.Context, entityID string, eventType EventType, data map[string]any) error {
	if l.db == nil || entityID == "" {
		return nil // Silently skip if no DB or entity ID
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		dataJSON = []byte("{}")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO events (entity_id, event_type, event_data)
		VALUES ($1, $2, $3)
	`, entityID, string(eventType), dataJSON)

	return err
}

// LogAsync logs an event without blocking the caller
func (l *Logger) LogAsync(entityID string, eventType EventType, data map[string]any) {
	if l.db == nil || entityID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Log(ctx, entityID, eventType, data)
	}()
}
