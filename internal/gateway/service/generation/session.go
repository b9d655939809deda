package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"genstudio/internal/cache/lineage"
	"genstudio/internal/log"
	"genstudio/internal/mediaclient"
)

// Session pairs one provider client with the lineage of the videos it
// produced. Only videos recorded here can be extended through it.
type Session struct {
	client    mediaclient.Client
	lineage   *lineage.Cache[mediaclient.VideoHandle]
	createdAt time.Time
}

func NewSession(client mediaclient.Client, opts lineage.Options) *Session {
	return &Session{
		client:    client,
		lineage:   lineage.NewWithOptions[mediaclient.VideoHandle](opts),
		createdAt: time.Now(),
	}
}

func (s *Session) Client() mediaclient.Client                       { return s.client }
func (s *Session) Lineage() *lineage.Cache[mediaclient.VideoHandle] { return s.lineage }
func (s *Session) CreatedAt() time.Time                             { return s.createdAt }

// ClientFactory builds a provider client for a credential.
type ClientFactory func(ctx context.Context, apiKey string) (mediaclient.Client, error)

// DefaultSessionCacheSize is the session limit used when none is configured.
// Zero keeps every credential's session until the process exits.
const DefaultSessionCacheSize = 0

// Sessions hands out one Session per credential. Credentials are hashed
// before use as keys and never stored.
type Sessions struct {
	factory ClientFactory
	lineage lineage.Options
	flight  singleflight.Group
	log     log.Logger

	mu      sync.Mutex
	all     map[string]*Session
	bounded *lru.Cache[string, *Session] // nil when unbounded
}

// NewSessions keeps at most size sessions, evicting the least recently used
// one together with its lineage. size <= 0 means no limit.
func NewSessions(factory ClientFactory, size int, opts lineage.Options) (*Sessions, error) {
	if factory == nil {
		return nil, fmt.Errorf("client factory is required")
	}
	r := &Sessions{factory: factory, lineage: opts, log: log.Named("sessions")}
	if size <= 0 {
		r.all = make(map[string]*Session)
		return r, nil
	}
	cache, err := lru.NewWithEvict[string, *Session](size, func(key string, s *Session) {
		r.log.Infof("session %s evicted with %d extendable videos", key[:8], s.lineage.Len())
		r.closeClient(s)
	})
	if err != nil {
		return nil, err
	}
	r.bounded = cache
	return r, nil
}

// Get returns the session for apiKey, creating it on first use. The client
// is built without holding the registry lock; concurrent first requests for
// one credential share a single build.
func (r *Sessions) Get(ctx context.Context, apiKey string) (*Session, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, mediaclient.ErrMissingAPIKey
	}
	key := sessionKey(apiKey)
	if s, ok := r.get(key); ok {
		return s, nil
	}

	v, err, _ := r.flight.Do(key, func() (any, error) {
		if s, ok := r.get(key); ok {
			return s, nil
		}
		client, err := r.factory(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		s := NewSession(client, r.lineage)
		r.add(key, s)
		r.log.Infof("session %s created (%s)", key[:8], client.Name())
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Peek returns an existing session without creating one.
func (r *Sessions) Peek(apiKey string) (*Session, bool) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, false
	}
	key := sessionKey(apiKey)
	if r.bounded != nil {
		return r.bounded.Peek(key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.all[key]
	return s, ok
}

func (r *Sessions) Len() int {
	if r.bounded != nil {
		return r.bounded.Len()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.all)
}

// Close releases every session's client.
func (r *Sessions) Close() {
	if r.bounded != nil {
		r.bounded.Purge()
		return
	}
	r.mu.Lock()
	all := r.all
	r.all = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range all {
		r.closeClient(s)
	}
}

func (r *Sessions) get(key string) (*Session, bool) {
	if r.bounded != nil {
		return r.bounded.Get(key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.all[key]
	return s, ok
}

func (r *Sessions) add(key string, s *Session) {
	if r.bounded != nil {
		r.bounded.Add(key, s)
		return
	}
	r.mu.Lock()
	r.all[key] = s
	r.mu.Unlock()
}

func (r *Sessions) closeClient(s *Session) {
	if err := s.client.Close(); err != nil {
		r.log.Warnf("close client: %v", err)
	}
}

func sessionKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
