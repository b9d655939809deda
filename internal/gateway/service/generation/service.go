// Package generation runs the image and video use cases: it validates
// requests, drives the provider client of the caller's session, stores the
// results and keeps each session's video lineage.
package generation

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"genstudio/internal/gateway/repository/artifact"
	"genstudio/internal/log"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultVideoTimeout = 10 * time.Minute
)

type Config struct {
	// DefaultAPIKey is used when a request carries none.
	DefaultAPIKey string
	PollInterval  time.Duration
	VideoTimeout  time.Duration
	Refusal       RefusalPolicy
	Upload        artifact.Limits
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.VideoTimeout <= 0 {
		c.VideoTimeout = DefaultVideoTimeout
	}
	if len(c.Refusal.Phrases) == 0 {
		c.Refusal = DefaultRefusalPolicy()
	}
	return c
}

// Service implements the generation use cases.
type Service struct {
	cfg      Config
	sessions *Sessions
	store    artifact.Store
	log      *zap.SugaredLogger
}

func New(cfg Config, sessions *Sessions, store artifact.Store) *Service {
	return &Service{
		cfg:      cfg.withDefaults(),
		sessions: sessions,
		store:    store,
		log:      log.Named("generation"),
	}
}

func (s *Service) resolveKey(apiKey string) string {
	if k := strings.TrimSpace(apiKey); k != "" {
		return k
	}
	return strings.TrimSpace(s.cfg.DefaultAPIKey)
}

func (s *Service) session(ctx context.Context, apiKey string) (*Session, error) {
	key := s.resolveKey(apiKey)
	if key == "" {
		return nil, newError(KindConfiguration, "API Key is required", nil)
	}
	sess, err := s.sessions.Get(ctx, key)
	if err != nil {
		return nil, wrap("failed to initialize client", err)
	}
	return sess, nil
}

func (s *Service) save(ctx context.Context, kind artifact.Kind, name string, data []byte) (artifact.Artifact, error) {
	a, err := s.store.Save(ctx, kind, name, data)
	if err != nil {
		s.log.Errorf("save %s/%s: %v", kind, name, err)
		return artifact.Artifact{}, storageError(err)
	}
	s.log.Infof("saved %s (%d bytes)", a.URL(), a.Size)
	return a, nil
}

// discard removes artifacts written by a request that then failed.
func (s *Service) discard(ctx context.Context, saved []artifact.Artifact) {
	ctx = context.WithoutCancel(ctx)
	for _, a := range saved {
		if err := s.store.Delete(ctx, a.Kind, a.Name); err != nil {
			s.log.Warnf("discard %s: %v", a.URL(), err)
			continue
		}
		s.log.Infof("discarded %s", a.URL())
	}
}

// Status reports whether a session exists for the credential and how many
// of its videos can be extended.
func (s *Service) Status(apiKey string) *Result {
	key := s.resolveKey(apiKey)
	data := map[string]any{
		"initialized":        false,
		"api_key_configured": key != "",
		"extendable_videos":  0,
	}
	if sess, found := s.sessions.Peek(key); found {
		data["initialized"] = true
		data["extendable_videos"] = sess.Lineage().Len()
	}
	return ok("Client status", data)
}
