package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genstudio/internal/cache/lineage"
	"genstudio/internal/mediaclient"
)

func stubFactory(created *atomic.Int32) ClientFactory {
	return func(context.Context, string) (mediaclient.Client, error) {
		created.Add(1)
		return &stubClient{}, nil
	}
}

func TestSessionsUnboundedKeepsEveryLineage(t *testing.T) {
	var created atomic.Int32
	sessions, err := NewSessions(stubFactory(&created), DefaultSessionCacheSize, lineage.Options{})
	require.NoError(t, err)
	ctx := context.Background()

	first, err := sessions.Get(ctx, "key-0")
	require.NoError(t, err)
	first.Lineage().Record("/outputs/videos/a.mp4", &stubVideo{uri: "a"}, "")

	for i := 1; i < 200; i++ {
		_, err := sessions.Get(ctx, fmt.Sprintf("key-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 200, sessions.Len())

	again, err := sessions.Get(ctx, "key-0")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.True(t, again.Lineage().IsExtendable("/outputs/videos/a.mp4"))
	assert.Equal(t, int32(200), created.Load())
}

func TestSessionsBoundedEvictsLeastRecentlyUsed(t *testing.T) {
	var created atomic.Int32
	sessions, err := NewSessions(stubFactory(&created), 2, lineage.Options{})
	require.NoError(t, err)
	ctx := context.Background()

	a, err := sessions.Get(ctx, "a")
	require.NoError(t, err)
	_, err = sessions.Get(ctx, "b")
	require.NoError(t, err)
	_, err = sessions.Get(ctx, "c")
	require.NoError(t, err)

	assert.Equal(t, 2, sessions.Len())
	_, ok := sessions.Peek("a")
	assert.False(t, ok)
	assert.True(t, a.Client().(*stubClient).closed.Load())
}

func TestSessionsCloseReleasesClients(t *testing.T) {
	var created atomic.Int32
	sessions, err := NewSessions(stubFactory(&created), 0, lineage.Options{})
	require.NoError(t, err)
	s, err := sessions.Get(context.Background(), "k")
	require.NoError(t, err)

	sessions.Close()
	assert.Zero(t, sessions.Len())
	assert.True(t, s.Client().(*stubClient).closed.Load())
}

func TestSessionsFactoryErrorIsNotCached(t *testing.T) {
	calls := 0
	sessions, err := NewSessions(func(context.Context, string) (mediaclient.Client, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("dial failed")
		}
		return &stubClient{}, nil
	}, 0, lineage.Options{})
	require.NoError(t, err)

	_, err = sessions.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Zero(t, sessions.Len())

	_, err = sessions.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSessionsSlowClientDoesNotBlockOtherCredentials(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	sessions, err := NewSessions(func(_ context.Context, apiKey string) (mediaclient.Client, error) {
		if apiKey == "slow" {
			close(entered)
			<-release
		}
		return &stubClient{}, nil
	}, 0, lineage.Options{})
	require.NoError(t, err)
	ctx := context.Background()

	slowDone := make(chan error, 1)
	go func() {
		_, err := sessions.Get(ctx, "slow")
		slowDone <- err
	}()
	<-entered

	fastDone := make(chan error, 1)
	go func() {
		_, err := sessions.Get(ctx, "fast")
		fastDone <- err
	}()
	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session for another credential waited on a slow client build")
	}

	close(release)
	require.NoError(t, <-slowDone)
	assert.Equal(t, 2, sessions.Len())
}

func TestSessionsConcurrentFirstUseSharesOneClient(t *testing.T) {
	var created atomic.Int32
	sessions, err := NewSessions(stubFactory(&created), 0, lineage.Options{})
	require.NoError(t, err)

	const n = 16
	got := make([]*Session, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := sessions.Get(context.Background(), "shared")
			assert.NoError(t, err)
			got[i] = s
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	for _, s := range got {
		assert.Same(t, got[0], s)
	}
}
