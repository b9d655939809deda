package lineage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainFollowsExtensions(t *testing.T) {
	c := New[string]()
	root := "/outputs/videos/text_to_video_root.mp4"
	require.True(t, c.Record(root, "h-root", ""))

	want := []string{root}
	parent := root
	for i := 1; i <= 5; i++ {
		ref := fmt.Sprintf("/outputs/videos/extended_video_%d.mp4", i)
		require.True(t, c.Record(ref, fmt.Sprintf("h-%d", i), parent))
		want = append(want, ref)
		assert.Equal(t, want, c.ChainOf(ref))
		parent = ref
	}
}

func TestRootChainIsItself(t *testing.T) {
	c := New[int]()
	c.Record("/outputs/videos/a.mp4", 1, "")
	assert.Equal(t, []string{"/outputs/videos/a.mp4"}, c.ChainOf("/outputs/videos/a.mp4"))

	e, ok := c.Get("/outputs/videos/a.mp4")
	require.True(t, ok)
	assert.Empty(t, e.Chain)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestUnknownReferences(t *testing.T) {
	c := New[int]()
	c.Record("/outputs/videos/known.mp4", 7, "")

	assert.True(t, c.IsExtendable("/outputs/videos/known.mp4"))
	assert.False(t, c.IsExtendable("/outputs/videos/never_existed.mp4"))
	assert.Equal(t, []string{"/outputs/videos/never_existed.mp4"}, c.ChainOf("/outputs/videos/never_existed.mp4"))

	_, err := c.HandleOf("/outputs/videos/never_existed.mp4")
	assert.ErrorIs(t, err, ErrNotFound)

	h, err := c.HandleOf("/outputs/videos/known.mp4")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
}

func TestUnknownParentDegradesToRoot(t *testing.T) {
	c := New[int]()
	require.True(t, c.Record("/outputs/videos/child.mp4", 1, "/outputs/videos/other_session.mp4"))
	assert.Equal(t, []string{"/outputs/videos/child.mp4"}, c.ChainOf("/outputs/videos/child.mp4"))
}

func TestRecordNeverOverwrites(t *testing.T) {
	c := New[string]()
	require.True(t, c.Record("v.mp4", "first", ""))
	assert.False(t, c.Record("v.mp4", "second", ""))

	h, err := c.HandleOf("v.mp4")
	require.NoError(t, err)
	assert.Equal(t, "first", h)
	assert.Equal(t, 1, c.Len())
}

func TestChainOfReturnsCopy(t *testing.T) {
	c := New[int]()
	c.Record("a", 1, "")
	c.Record("b", 2, "a")

	chain := c.ChainOf("b")
	chain[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, c.ChainOf("b"))
}

func TestBoundedCacheEvictsOldest(t *testing.T) {
	c := NewWithOptions[int](Options{MaxEntries: 2})
	c.Record("a", 1, "")
	c.Record("b", 2, "a")
	c.Record("c", 3, "b")

	assert.False(t, c.IsExtendable("a"))
	assert.Equal(t, 2, c.Len())
	// Chains recorded before eviction are kept intact.
	assert.Equal(t, []string{"a", "b", "c"}, c.ChainOf("c"))
}

func TestBoundedCacheExpires(t *testing.T) {
	c := NewWithOptions[int](Options{TTL: 30 * time.Millisecond})
	c.Record("a", 1, "")
	require.True(t, c.IsExtendable("a"))

	assert.Eventually(t, func() bool { return !c.IsExtendable("a") }, time.Second, 10*time.Millisecond)
}

func TestConcurrentRecordAndLookup(t *testing.T) {
	c := New[int]()
	c.Record("root", 0, "")

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := fmt.Sprintf("child-%d", i)
			c.Record(ref, i, "root")
			assert.Equal(t, []string{"root", ref}, c.ChainOf(ref))
			assert.True(t, c.IsExtendable("root"))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 33, c.Len())
}

func TestNilCache(t *testing.T) {
	var c *Cache[int]
	assert.False(t, c.Record("a", 1, ""))
	assert.False(t, c.IsExtendable("a"))
	assert.Equal(t, []string{"a"}, c.ChainOf("a"))
	assert.Equal(t, 0, c.Len())
}
