// Package artifact caches a remote artifact store (S3) in front of the
// gateway: directory listings for a short TTL and small blobs by name.
package artifact

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	artifactrepo "genstudio/internal/gateway/repository/artifact"
)

type Store = artifactrepo.Store

type CacheConfig struct {
	BlobTTL        time.Duration
	BlobMaxEntries int
	// BlobMaxBytes is the largest single object kept in memory. Videos are
	// usually larger and always stream from the origin.
	BlobMaxBytes int64

	ListTTL time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		BlobTTL:        5 * time.Minute,
		BlobMaxEntries: 256,
		BlobMaxBytes:   4 * 1024 * 1024, // 4MiB
		ListTTL:        30 * time.Second,
	}
}

type MetricsSnapshot struct {
	BlobHits     uint64
	BlobMisses   uint64
	ListHits     uint64
	ListMisses   uint64
	OriginReads  uint64
	OriginWrites uint64
}

type Metrics struct {
	blobHits     atomic.Uint64
	blobMisses   atomic.Uint64
	listHits     atomic.Uint64
	listMisses   atomic.Uint64
	originReads  atomic.Uint64
	originWrites atomic.Uint64
}

func (m *Metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		BlobHits:     m.blobHits.Load(),
		BlobMisses:   m.blobMisses.Load(),
		ListHits:     m.listHits.Load(),
		ListMisses:   m.listMisses.Load(),
		OriginReads:  m.originReads.Load(),
		OriginWrites: m.originWrites.Load(),
	}
}

type cachedBlob struct {
	data []byte
	info artifactrepo.Artifact
}

// CachedStore is a read-through Store. Writes go to the origin first and
// then invalidate the affected listing.
type CachedStore struct {
	origin  Store
	maxBlob int64

	blobs   *expirable.LRU[string, cachedBlob]
	lists   *expirable.LRU[artifactrepo.Kind, []artifactrepo.Artifact]
	metrics Metrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.BlobTTL <= 0 {
		cfg.BlobTTL = def.BlobTTL
	}
	if cfg.BlobMaxEntries <= 0 {
		cfg.BlobMaxEntries = def.BlobMaxEntries
	}
	if cfg.BlobMaxBytes < 0 {
		cfg.BlobMaxBytes = def.BlobMaxBytes
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	return &CachedStore{
		origin:  origin,
		maxBlob: cfg.BlobMaxBytes,
		blobs:   expirable.NewLRU[string, cachedBlob](cfg.BlobMaxEntries, nil, cfg.BlobTTL),
		lists:   expirable.NewLRU[artifactrepo.Kind, []artifactrepo.Artifact](2, nil, cfg.ListTTL),
	}
}

func (s *CachedStore) Save(ctx context.Context, kind artifactrepo.Kind, name string, content []byte) (artifactrepo.Artifact, error) {
	s.metrics.originWrites.Add(1)
	a, err := s.origin.Save(ctx, kind, name, content)
	if err != nil {
		return a, err
	}
	s.lists.Remove(kind)
	if s.cacheable(int64(len(content))) {
		s.blobs.Add(blobKey(kind, a.Name), cachedBlob{data: append([]byte(nil), content...), info: a})
	}
	return a, nil
}

func (s *CachedStore) Open(ctx context.Context, kind artifactrepo.Kind, name string) (io.ReadCloser, artifactrepo.Artifact, error) {
	key := blobKey(kind, name)
	if b, ok := s.blobs.Get(key); ok {
		s.metrics.blobHits.Add(1)
		return artifactrepo.NopSeekCloser(bytes.NewReader(b.data)), b.info, nil
	}
	s.metrics.blobMisses.Add(1)
	s.metrics.originReads.Add(1)

	rc, info, err := s.origin.Open(ctx, kind, name)
	if err != nil || !s.cacheable(info.Size) {
		return rc, info, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, artifactrepo.Artifact{}, err
	}
	s.blobs.Add(key, cachedBlob{data: data, info: info})
	return artifactrepo.NopSeekCloser(bytes.NewReader(data)), info, nil
}

func (s *CachedStore) List(ctx context.Context, kind artifactrepo.Kind) ([]artifactrepo.Artifact, error) {
	if list, ok := s.lists.Get(kind); ok {
		s.metrics.listHits.Add(1)
		return append([]artifactrepo.Artifact(nil), list...), nil
	}
	s.metrics.listMisses.Add(1)
	s.metrics.originReads.Add(1)

	list, err := s.origin.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	s.lists.Add(kind, append([]artifactrepo.Artifact(nil), list...))
	return list, nil
}

func (s *CachedStore) Delete(ctx context.Context, kind artifactrepo.Kind, name string) error {
	s.metrics.originWrites.Add(1)
	s.blobs.Remove(blobKey(kind, name))
	s.lists.Remove(kind)
	return s.origin.Delete(ctx, kind, name)
}

func (s *CachedStore) cacheable(size int64) bool {
	return s.maxBlob > 0 && size > 0 && size <= s.maxBlob
}

func blobKey(kind artifactrepo.Kind, name string) string {
	return string(kind) + "/" + name
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{}
	}
	return s.metrics.snapshot()
}
