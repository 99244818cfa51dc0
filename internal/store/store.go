package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Section is one paragraph-level block of a script. URL points at the
// last successfully generated audio for the block; it is not guaranteed
// to match the current text.
type Section struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// Script is the persisted form of a voice script. Sections keep
// insertion order.
type Script struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Sections    []Section `json:"sections"`
	VoiceID     *string   `json:"voiceId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Voice is a named synthesis preset. OpenAIVoice is only set for the
// openai provider; Prompt carries the provider instruction text.
type Voice struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Provider    string    `json:"provider"`
	OpenAIVoice *string   `json:"openaiVoice,omitempty"`
	Prompt      string    `json:"prompt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ScriptUpdate holds partial fields for UpdateScript. Nil fields are
// left unchanged; a non-nil empty Sections slice clears the blocks.
// ClearVoiceID writes NULL to the voice column and wins over VoiceID.
type ScriptUpdate struct {
	Name         *string
	Description  *string
	Sections     []Section
	VoiceID      *string
	ClearVoiceID bool
}

// VoiceUpdate holds partial fields for UpdateVoice.
type VoiceUpdate struct {
	Name        *string
	Provider    *string
	OpenAIVoice *string
	Prompt      *string
}

func marshalSections(sections []Section) ([]byte, error) {
	if sections == nil {
		sections = []Section{}
	}
	data, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("marshal sections: %w", err)
	}
	return data, nil
}

// ============================================================================
// Script operations
// ============================================================================

func (s *Store) CreateScript(ctx context.Context, name, description string, sections []Section, voiceID *string) (*Script, error) {
	sectionsJSON, err := marshalSections(sections)
	if err != nil {
		return nil, err
	}

	var sc Script
	var raw []byte
	err = s.db.QueryRow(ctx, `
		INSERT INTO scripts (name, description, sections, voice_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, sections, voice_id, created_at, updated_at
	`, name, description, sectionsJSON, voiceID).Scan(
		&sc.ID, &sc.Name, &sc.Description, &raw, &sc.VoiceID, &sc.CreatedAt, &sc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &sc.Sections); err != nil {
		return nil, fmt.Errorf("unmarshal sections: %w", err)
	}
	return &sc, nil
}

// GetScript retrieves a script by ID. Returns (nil, nil) when the
// script does not exist.
func (s *Store) GetScript(ctx context.Context, id string) (*Script, error) {
	var sc Script
	var raw []byte
	err := s.db.QueryRow(ctx, `
		SELECT id, name, description, sections, voice_id, created_at, updated_at
		FROM scripts
		WHERE id = $1
	`, id).Scan(&sc.ID, &sc.Name, &sc.Description, &raw, &sc.VoiceID, &sc.CreatedAt, &sc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &sc.Sections); err != nil {
		return nil, fmt.Errorf("unmarshal sections: %w", err)
	}
	return &sc, nil
}

func (s *Store) ListScripts(ctx context.Context) ([]Script, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, sections, voice_id, created_at, updated_at
		FROM scripts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Script
	for rows.Next() {
		var sc Script
		var raw []byte
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.Description, &raw, &sc.VoiceID, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &sc.Sections); err != nil {
			return nil, fmt.Errorf("unmarshal sections: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// UpdateScript applies a partial update and returns the stored row.
// Returns (nil, nil) when the script does not exist. The whole-row
// write is last-write-wins; there is no concurrency token.
func (s *Store) UpdateScript(ctx context.Context, id string, upd ScriptUpdate) (*Script, error) {
	var sectionsJSON []byte
	if upd.Sections != nil {
		var err error
		sectionsJSON, err = marshalSections(upd.Sections)
		if err != nil {
			return nil, err
		}
	}

	var sc Script
	var raw []byte
	err := s.db.QueryRow(ctx, `
		UPDATE scripts
		SET name        = COALESCE($2, name),
		    description = COALESCE($3, description),
		    sections    = COALESCE($4, sections),
		    voice_id    = CASE WHEN $6 THEN NULL ELSE COALESCE($5, voice_id) END,
		    updated_at  = now()
		WHERE id = $1
		RETURNING id, name, description, sections, voice_id, created_at, updated_at
	`, id, upd.Name, upd.Description, sectionsJSON, upd.VoiceID, upd.ClearVoiceID).Scan(
		&sc.ID, &sc.Name, &sc.Description, &raw, &sc.VoiceID, &sc.CreatedAt, &sc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &sc.Sections); err != nil {
		return nil, fmt.Errorf("unmarshal sections: %w", err)
	}
	return &sc, nil
}

// DeleteScript removes a script. Returns false when no row matched.
func (s *Store) DeleteScript(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM scripts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ============================================================================
// Voice operations
// ============================================================================

func (s *Store) CreateVoice(ctx context.Context, name, provider string, openaiVoice *string, prompt string) (*Voice, error) {
	var v Voice
	err := s.db.QueryRow(ctx, `
		INSERT INTO voices (name, provider, openai_voice, prompt)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, provider, openai_voice, prompt, created_at, updated_at
	`, name, provider, openaiVoice, prompt).Scan(
		&v.ID, &v.Name, &v.Provider, &v.OpenAIVoice, &v.Prompt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVoice retrieves a voice by ID. Returns (nil, nil) when the voice
// does not exist.
func (s *Store) GetVoice(ctx context.Context, id string) (*Voice, error) {
	var v Voice
	err := s.db.QueryRow(ctx, `
		SELECT id, name, provider, openai_voice, prompt, created_at, updated_at
		FROM voices
		WHERE id = $1
	`, id).Scan(&v.ID, &v.Name, &v.Provider, &v.OpenAIVoice, &v.Prompt, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) ListVoices(ctx context.Context) ([]Voice, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, provider, openai_voice, prompt, created_at, updated_at
		FROM voices
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Voice
	for rows.Next() {
		var v Voice
		if err := rows.Scan(&v.ID, &v.Name, &v.Provider, &v.OpenAIVoice, &v.Prompt, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateVoice applies a partial update and returns the stored row.
// Returns (nil, nil) when the voice does not exist.
func (s *Store) UpdateVoice(ctx context.Context, id string, upd VoiceUpdate) (*Voice, error) {
	var v Voice
	err := s.db.QueryRow(ctx, `
		UPDATE voices
		SET name         = COALESCE($2, name),
		    provider     = COALESCE($3, provider),
		    openai_voice = COALESCE($4, openai_voice),
		    prompt       = COALESCE($5, prompt),
		    updated_at   = now()
		WHERE id = $1
		RETURNING id, name, provider, openai_voice, prompt, created_at, updated_at
	`, id, upd.Name, upd.Provider, upd.OpenAIVoice, upd.Prompt).Scan(
		&v.ID, &v.Name, &v.Provider, &v.OpenAIVoice, &v.Prompt, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteVoice removes a voice. Returns false when no row matched.
// Scripts referencing the voice keep the stale id; there is no FK.
func (s *Store) DeleteVoice(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM voices WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
