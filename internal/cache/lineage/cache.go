// Package lineage tracks which generated videos can be extended and the
// chain of videos each one descends from.
//
// A Cache is owned by a single generation session. Entries are written once,
// when a generated or extended video has been downloaded and stored, and are
// never updated. Lookups of unknown references are not errors: ChainOf treats
// them as roots and IsExtendable reports false.
package lineage

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var ErrNotFound = errors.New("video not in lineage cache")

// Entry is the lineage record of one stored video.
type Entry[H any] struct {
	// Handle is the upstream reference needed to extend this video.
	Handle H
	// Chain lists every ancestor, oldest first, excluding the entry's own key.
	Chain []string
	// CreatedAt is informational only.
	CreatedAt time.Time
}

// Options bound the cache. The zero value keeps every entry for the life of
// the process.
type Options struct {
	MaxEntries int
	TTL        time.Duration
}

func (o Options) bounded() bool { return o.MaxEntries > 0 || o.TTL > 0 }

// Cache maps artifact references to lineage entries. It is safe for
// concurrent use.
type Cache[H any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[H]
	lru     *expirable.LRU[string, Entry[H]]
	now     func() time.Time
}

// New returns an unbounded cache.
func New[H any]() *Cache[H] {
	return NewWithOptions[H](Options{})
}

// NewWithOptions returns a cache that evicts by count and/or age when opts
// sets either bound.
func NewWithOptions[H any](opts Options) *Cache[H] {
	c := &Cache[H]{now: time.Now}
	if opts.bounded() {
		c.lru = expirable.NewLRU[string, Entry[H]](opts.MaxEntries, nil, opts.TTL)
		return c
	}
	c.entries = make(map[string]Entry[H])
	return c
}

// Record inserts ref. When parent is non-empty and known, the new chain is
// chain(parent)+[parent]; an unknown or empty parent makes ref a root.
// It returns false, leaving the cache untouched, if ref is already present.
func (c *Cache[H]) Record(ref string, handle H, parent string) bool {
	ref = strings.TrimSpace(ref)
	if c == nil || ref == "" {
		return false
	}
	parent = strings.TrimSpace(parent)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.peekLocked(ref); exists {
		return false
	}
	chain := []string{}
	if parent != "" {
		if p, ok := c.peekLocked(parent); ok {
			chain = make([]string, 0, len(p.Chain)+1)
			chain = append(chain, p.Chain...)
			chain = append(chain, parent)
		}
	}
	c.addLocked(ref, Entry[H]{Handle: handle, Chain: chain, CreatedAt: c.now()})
	return true
}

// IsExtendable reports whether ref was recorded and has not been evicted.
func (c *Cache[H]) IsExtendable(ref string) bool {
	_, ok := c.lookup(ref)
	return ok
}

// ChainOf returns the ancestors of ref followed by ref itself. Unknown
// references yield a single-element chain.
func (c *Cache[H]) ChainOf(ref string) []string {
	ref = strings.TrimSpace(ref)
	e, ok := c.lookup(ref)
	if !ok {
		return []string{ref}
	}
	out := make([]string, 0, len(e.Chain)+1)
	out = append(out, e.Chain...)
	return append(out, ref)
}

// HandleOf returns the upstream handle recorded for ref.
func (c *Cache[H]) HandleOf(ref string) (H, error) {
	e, ok := c.lookup(ref)
	if !ok {
		var zero H
		return zero, ErrNotFound
	}
	return e.Handle, nil
}

// Get returns a copy of the entry for ref.
func (c *Cache[H]) Get(ref string) (Entry[H], bool) {
	e, ok := c.lookup(ref)
	if !ok {
		return Entry[H]{}, false
	}
	e.Chain = append([]string(nil), e.Chain...)
	return e, true
}

// Len is the number of live entries.
func (c *Cache[H]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lru != nil {
		return c.lru.Len()
	}
	return len(c.entries)
}

func (c *Cache[H]) lookup(ref string) (Entry[H], bool) {
	ref = strings.TrimSpace(ref)
	if c == nil || ref == "" {
		return Entry[H]{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peekLocked(ref)
}

func (c *Cache[H]) peekLocked(ref string) (Entry[H], bool) {
	if c.lru != nil {
		return c.lru.Peek(ref)
	}
	e, ok := c.entries[ref]
	return e, ok
}

func (c *Cache[H]) addLocked(ref string, e Entry[H]) {
	if c.lru != nil {
		c.lru.Add(ref, e)
		return
	}
	c.entries[ref] = e
}
