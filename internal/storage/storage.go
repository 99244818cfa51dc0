// Package storage keeps generated audio files in a NATS JetStream
// object store bucket and hands out the public URLs they are served
// under.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// AudioFilename derives a storage key from the spoken text and the
// current time, e.g. "Helloworld-1700000000000.mp3". The prefix is the
// first 10 characters of the text, truncated on rune boundaries so
// multibyte text never leaves a mangled partial character.
func AudioFilename(text string, now time.Time) string {
	prefix := []rune(text)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	cleaned := nonAlnum.ReplaceAllString(string(prefix), "")
	return fmt.Sprintf("%s-%d.mp3", cleaned, now.UnixMilli())
}

// Metadata is attached to every uploaded audio object.
type Metadata struct {
	Duration float64 // seconds, zero when the provider reported none
	VoiceID  string
}

// Store uploads audio payloads into a JetStream object store bucket and
// serves them back for the /audio/{filename} route.
type Store struct {
	bucket        string
	publicBaseURL string
	store         nats.ObjectStore
}

// New creates the audio bucket or binds to it when it already exists.
func New(js nats.JetStreamContext, bucketName, publicBaseURL string) (*Store, error) {
	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: "Generated TTS audio files",
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("create object store bucket %q: %w", bucketName, err)
		}
		store, err = js.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("bind to object store bucket %q: %w", bucketName, err)
		}
	}

	return &Store{
		bucket:        bucketName,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		store:         store,
	}, nil
}

// Upload stores an audio payload under filename and returns the public
// URL it will be served from.
func (s *Store) Upload(_ context.Context, data []byte, filename string, meta Metadata) (string, error) {
	objMeta := map[string]string{
		"voiceId": meta.VoiceID,
	}
	if meta.Duration > 0 {
		objMeta["duration"] = strconv.FormatFloat(meta.Duration, 'f', -1, 64)
	}

	_, err := s.store.Put(&nats.ObjectMeta{
		Name:     filename,
		Metadata: objMeta,
	}, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("put object %q to bucket %q: %w", filename, s.bucket, err)
	}

	return s.URL(filename), nil
}

// Download retrieves a stored audio payload by filename.
func (s *Store) Download(_ context.Context, filename string) ([]byte, error) {
	obj, err := s.store.Get(filename)
	if err != nil {
		return nil, fmt.Errorf("get object %q from bucket %q: %w", filename, s.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("read object %q: %w", filename, readErr)
	}
	if closeErr != nil {
		return data, fmt.Errorf("close object %q: %w", filename, closeErr)
	}

	return data, nil
}

// URL returns the public URL for a stored filename.
func (s *Store) URL(filename string) string {
	return s.publicBaseURL + "/audio/" + filename
}
