package artifact

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	artifactrepo "genstudio/internal/gateway/repository/artifact"
)

// countingStore records origin traffic.
type countingStore struct {
	*artifactrepo.MemoryStore
	mu        sync.Mutex
	openCalls int
	listCalls int
}

func (s *countingStore) Open(ctx context.Context, kind artifactrepo.Kind, name string) (io.ReadCloser, artifactrepo.Artifact, error) {
	s.mu.Lock()
	s.openCalls++
	s.mu.Unlock()
	return s.MemoryStore.Open(ctx, kind, name)
}

func (s *countingStore) List(ctx context.Context, kind artifactrepo.Kind) ([]artifactrepo.Artifact, error) {
	s.mu.Lock()
	s.listCalls++
	s.mu.Unlock()
	return s.MemoryStore.List(ctx, kind)
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestCachedStoreReadThroughAndMetrics(t *testing.T) {
	ctx := context.Background()
	origin := &countingStore{MemoryStore: artifactrepo.NewMemoryStore()}
	_, err := origin.MemoryStore.Save(ctx, artifactrepo.KindImages, "a.png", []byte("hello"))
	require.NoError(t, err)

	store := NewCachedStore(origin, CacheConfig{BlobTTL: time.Minute, BlobMaxEntries: 8, BlobMaxBytes: 1024, ListTTL: time.Minute})

	for i := 0; i < 3; i++ {
		rc, info, err := store.Open(ctx, artifactrepo.KindImages, "a.png")
		require.NoError(t, err)
		assert.Equal(t, "hello", readAll(t, rc))
		assert.Equal(t, int64(5), info.Size)
	}
	assert.Equal(t, 1, origin.openCalls)

	m := store.Metrics()
	assert.Equal(t, uint64(2), m.BlobHits)
	assert.Equal(t, uint64(1), m.BlobMisses)
}

func TestCachedStoreSkipsLargeBlobs(t *testing.T) {
	ctx := context.Background()
	origin := &countingStore{MemoryStore: artifactrepo.NewMemoryStore()}
	store := NewCachedStore(origin, CacheConfig{BlobMaxBytes: 4})

	_, err := store.Save(ctx, artifactrepo.KindVideos, "v.mp4", []byte("0123456789"))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		rc, _, err := store.Open(ctx, artifactrepo.KindVideos, "v.mp4")
		require.NoError(t, err)
		assert.Equal(t, "0123456789", readAll(t, rc))
	}
	assert.Equal(t, 2, origin.openCalls)
}

func TestCachedStoreListInvalidatedOnWrite(t *testing.T) {
	ctx := context.Background()
	origin := &countingStore{MemoryStore: artifactrepo.NewMemoryStore()}
	store := NewCachedStore(origin, DefaultCacheConfig())

	_, err := store.Save(ctx, artifactrepo.KindVideos, "one.mp4", []byte("1"))
	require.NoError(t, err)

	list, err := store.List(ctx, artifactrepo.KindVideos)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = store.List(ctx, artifactrepo.KindVideos)
	require.NoError(t, err)
	assert.Equal(t, 1, origin.listCalls)

	_, err = store.Save(ctx, artifactrepo.KindVideos, "two.mp4", []byte("2"))
	require.NoError(t, err)
	list, err = store.List(ctx, artifactrepo.KindVideos)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, origin.listCalls)

	require.NoError(t, store.Delete(ctx, artifactrepo.KindVideos, "one.mp4"))
	list, err = store.List(ctx, artifactrepo.KindVideos)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, _, err = store.Open(ctx, artifactrepo.KindVideos, "one.mp4")
	assert.ErrorIs(t, err, artifactrepo.ErrNotFound)
}
