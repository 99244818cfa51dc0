package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/mhruby/voicescript/internal/eventlog"
	"github.com/mhruby/voicescript/internal/storage"
	"github.com/mhruby/voicescript/internal/store"
	"github.com/mhruby/voicescript/internal/tts"
)

type RouterConfig struct {
	PublicBaseURL string

	// TTS providers
	OpenAIAPIKey string
	HumeAPIKey   string
	TTSModelID   string

	// Debounce window for editor session saves
	SaveWindow time.Duration

	// Shared HTTP client with connection pooling for provider calls
	TTSHTTPClient *http.Client
}

type Router struct {
	cfg      RouterConfig
	logger   *log.Logger
	store    *store.Store
	eventLog *eventlog.Logger
	audio    *storage.Store
	tts      tts.Client
	editors  *EditorRegistry
	mux      *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, s *store.Store, eventLog *eventlog.Logger, audio *storage.Store, editors *EditorRegistry) http.Handler {
	r := &Router{
		cfg:      cfg,
		logger:   logger,
		store:    s,
		eventLog: eventLog,
		audio:    audio,
		tts: tts.NewMultiClient(
			tts.NewOpenAIClient(tts.OpenAIConfig{
				APIKey:     cfg.OpenAIAPIKey,
				ModelID:    cfg.TTSModelID,
				HTTPClient: cfg.TTSHTTPClient,
			}),
			tts.NewHumeClient(tts.HumeConfig{
				APIKey:     cfg.HumeAPIKey,
				HTTPClient: cfg.TTSHTTPClient,
			}),
		),
		editors: editors,
		mux:     http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health check
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)

	// Script CRUD
	r.mux.HandleFunc("GET /api/scripts", r.handleListScripts)
	r.mux.HandleFunc("POST /api/scripts", r.handleCreateScript)
	r.mux.HandleFunc("GET /api/scripts/{scriptId}", r.handleGetScript)
	r.mux.HandleFunc("PUT /api/scripts/{scriptId}", r.handleUpdateScript)
	r.mux.HandleFunc("DELETE /api/scripts/{scriptId}", r.handleDeleteScript)

	// Voice CRUD
	r.mux.HandleFunc("GET /api/voices", r.handleListVoices)
	r.mux.HandleFunc("POST /api/voices", r.handleCreateVoice)
	r.mux.HandleFunc("GET /api/voices/{id}", r.handleGetVoice)
	r.mux.HandleFunc("PUT /api/voices/{id}", r.handleUpdateVoice)
	r.mux.HandleFunc("DELETE /api/voices/{id}", r.handleDeleteVoice)

	// One-shot synthesis and stored audio
	r.mux.HandleFunc("POST /api/tts", r.handleSynthesize)
	r.mux.HandleFunc("GET /audio/{filename}", r.handleGetAudio)

	// Editor sessions (one per open script)
	r.mux.HandleFunc("POST /api/editor/{scriptId}/open", r.handleEditorOpen)
	r.mux.HandleFunc("GET /api/editor/{scriptId}/state", r.handleEditorState)
	r.mux.HandleFunc("POST /api/editor/{scriptId}/close", r.handleEditorClose)
	r.mux.HandleFunc("POST /api/editor/{scriptId}/blocks", r.handleEditorAddBlock)
	r.mux.HandleFunc("PATCH /api/editor/{scriptId}/blocks/{blockId}", r.handleEditorUpdateBlock)
	r.mux.HandleFunc("DELETE /api/editor/{scriptId}/blocks/{blockId}", r.handleEditorRemoveBlock)
	r.mux.HandleFunc("POST /api/editor/{scriptId}/blocks/{blockId}/audio", r.handleEditorGenerateAudio)
	r.mux.HandleFunc("PUT /api/editor/{scriptId}/voice", r.handleEditorSetVoice)
	r.mux.HandleFunc("PUT /api/editor/{scriptId}/active-block", r.handleEditorSetActiveBlock)
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
