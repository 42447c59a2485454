package thinkingcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndGet(t *testing.T) {
	c := New(time.Minute, 10)
	c.Put("tool_1", "thinking text", "sig-1")

	entry, ok := c.Get("tool_1")
	require.True(t, ok)
	assert.Equal(t, "sig-1", entry.Signature)
	assert.Equal(t, "thinking text", entry.Thinking)
}

func TestGetNonexistentReturnsFalse(t *testing.T) {
	c := New(time.Minute, 10)
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestPutRequiresSignature(t *testing.T) {
	c := New(time.Minute, 10)
	c.Put("tool_1", "thinking text", "")

	_, ok := c.Get("tool_1")
	assert.False(t, ok, "a thinking block without a signature must never be cached")
}

func TestOverwriteExisting(t *testing.T) {
	c := New(time.Minute, 10)
	c.Put("tool_1", "first", "sig-1")
	c.Put("tool_1", "second", "sig-2")

	entry, ok := c.Get("tool_1")
	require.True(t, ok)
	assert.Equal(t, "sig-2", entry.Signature)
	assert.Equal(t, 1, c.Len())
}

func TestMultipleKeys(t *testing.T) {
	c := New(time.Minute, 10)
	c.Put("a", "x", "sig-a")
	c.Put("b", "y", "sig-b")

	a, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "sig-a", a.Signature)

	b, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, "sig-b", b.Signature)
}

func TestTTLExpiration(t *testing.T) {
	c := New(50*time.Millisecond, 10)
	c.Put("a", "x", "sig-a")
	time.Sleep(80 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestMaxEntriesEviction(t *testing.T) {
	c := New(time.Minute, 2)
	c.Put("a", "x", "sig-a")
	c.Put("b", "y", "sig-b")
	c.Put("c", "z", "sig-c") // evicts "a", the least recently used

	_, ok := c.Get("a")
	assert.False(t, ok)

	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestGetRefreshesRecency(t *testing.T) {
	c := New(time.Minute, 2)
	c.Put("a", "x", "sig-a")
	c.Put("b", "y", "sig-b")
	c.Get("a") // touch "a" so "b" becomes the least recently used
	c.Put("c", "z", "sig-c")

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
}
