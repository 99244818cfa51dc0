package app

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"

	"github.com/mhruby/voicescript/internal/eventlog"
	"github.com/mhruby/voicescript/internal/httpapi"
	"github.com/mhruby/voicescript/internal/storage"
	"github.com/mhruby/voicescript/internal/store"
)

type App struct {
	cfg        Config
	logger     *log.Logger
	db         *pgxpool.Pool
	nc         *nats.Conn
	store      *store.Store
	eventLog   *eventlog.Logger
	audio      *storage.Store
	httpClient *http.Client // Shared HTTP client with connection pooling for TTS
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("voicescript"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		db.Close()
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		db.Close()
		return nil, err
	}
	audio, err := storage.New(js, cfg.AudioBucket, cfg.PublicBaseURL)
	if err != nil {
		nc.Close()
		db.Close()
		return nil, err
	}

	// Migrations are applied externally by the deploy job; no automatic
	// migration runner at startup.

	// Shared HTTP client with connection pooling. Keeps TCP connections
	// alive to reduce latency for repeated provider calls.
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		nc:         nc,
		store:      store.New(db),
		eventLog:   eventlog.New(db),
		audio:      audio,
		httpClient: httpClient,
	}, nil
}

func (a *App) Router(editors *httpapi.EditorRegistry) http.Handler {
	routerCfg := httpapi.RouterConfig{
		PublicBaseURL: a.cfg.PublicBaseURL,
		OpenAIAPIKey:  a.cfg.OpenAIAPIKey,
		HumeAPIKey:    a.cfg.HumeAPIKey,
		TTSModelID:    a.cfg.TTSModelID,
		SaveWindow:    a.cfg.SaveWindow,
		TTSHTTPClient: a.httpClient,
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.store, a.eventLog, a.audio, editors)
}

func (a *App) Close() error {
	if a.nc != nil {
		a.nc.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
