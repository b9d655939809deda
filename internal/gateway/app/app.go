package app

import (
	"context"
	"errors"
	"fmt"

	"genstudio/internal/gateway/config"
	"genstudio/internal/gateway/handler"
	"genstudio/internal/gateway/server"
	"genstudio/internal/gateway/service/generation"
	"genstudio/internal/log"
)

type App struct {
	server   *server.Server
	sessions *generation.Sessions
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig wires the gateway from an already loaded Config.
func NewWithConfig(cfg *config.Config) (*App, error) {
	log.SetLevel(cfg.LogLevel)

	// Dependencies
	store, err := initArtifactStore(cfg)
	if err != nil {
		return nil, err
	}
	sessions, err := generation.NewSessions(newClientFactory(cfg), cfg.SessionCacheSize, lineageOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sessions: %w", err)
	}
	limits := uploadLimits(cfg)
	svc := generation.New(generation.Config{
		DefaultAPIKey: cfg.GeminiAPIKey,
		PollInterval:  cfg.PollInterval,
		VideoTimeout:  cfg.VideoTimeout,
		Refusal:       generation.ParseRefusalPhrases(cfg.RefusalPhrases),
		Upload:        limits,
	}, sessions, store)

	generationHandler := handler.NewGenerationHandler(svc, store, limits)
	healthHandler := handler.NewHealthHandler()

	// Routing & Server
	mux := server.NewMux(generationHandler, healthHandler)
	srv := server.New(cfg.Port, mux)

	return &App{
		server:   srv,
		sessions: sessions,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown stops accepting requests, then releases every session.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.sessions.Close()
	log.Sync()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("graceful shutdown timed out: %w", err)
	}
	return err
}
