// Package thinkingcache remembers the signature of a "thinking" block so
// it can be replayed on the next turn of a tool-call round trip: Anthropic
// requires a signed thinking block to be echoed back verbatim whenever
// thinking and tools are both enabled, but OpenAI's wire format has no
// field for that signature, so gatewayd has to carry it out-of-band keyed
// by the tool_use id it was attached to.
package thinkingcache

import (
	"container/list"
	"sync"
	"time"
)

// Entry is one cached thinking block.
type Entry struct {
	Thinking  string
	Signature string
	storedAt  time.Time
}

type node struct {
	key   string
	entry Entry
}

// Cache is a TTL + LRU cache keyed by tool-use id. A Put call without a
// signature is silently rejected — a thinking block with no signature
// can't be legitimately replayed, so caching it would just corrupt a
// future request.
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	items      map[string]*list.Element
	order      *list.List // front = most recently used
	now        func() time.Time
}

// New creates a Cache with the given TTL and maximum entry count.
func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

// Put stores the signature for key, evicting the least-recently-used entry
// if the cache is at capacity. A missing signature is a no-op.
func (c *Cache) Put(key, thinking, signature string) {
	if signature == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*node).entry = Entry{Thinking: thinking, Signature: signature, storedAt: c.now()}
		return
	}

	el := c.order.PushFront(&node{key: key, entry: Entry{Thinking: thinking, Signature: signature, storedAt: c.now()}})
	c.items[key] = el

	for c.order.Len() > c.maxEntries {
		c.evictOldest()
	}
}

// Get returns the cached entry for key, or ok=false if absent or expired.
// An expired entry is evicted as a side effect.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return Entry{}, false
	}

	n := el.Value.(*node)
	if c.ttl > 0 && c.now().Sub(n.entry.storedAt) > c.ttl {
		c.removeElement(el)
		return Entry{}, false
	}

	c.order.MoveToFront(el)
	return n.entry, true
}

// Len returns the current number of live entries, including ones that have
// expired but not yet been evicted by a Get/Put.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) evictOldest() {
	oldest := c.order.Back()
	if oldest != nil {
		c.removeElement(oldest)
	}
}

func (c *Cache) removeElement(el *list.Element) {
	n := el.Value.(*node)
	delete(c.items, n.key)
	c.order.Remove(el)
}
