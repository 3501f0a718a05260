package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiringBasics(t *testing.T) {
	c := New[string, string](time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", "v")
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestExpiringTTL(t *testing.T) {
	c := New[string, int](time.Minute)

	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("k", 42)

	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, got)

	current = current.Add(2 * time.Minute)

	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry evicted on read")
}

func TestExpiringPurge(t *testing.T) {
	c := New[int, string](time.Minute)

	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set(1, "a")
	c.Set(2, "b")

	current = current.Add(2 * time.Minute)
	c.Set(3, "c")

	assert.Equal(t, 2, c.Purge())
	assert.Equal(t, 1, c.Len())

	got, ok := c.Get(3)
	assert.True(t, ok)
	assert.Equal(t, "c", got)
}

func TestExpiringDisabled(t *testing.T) {
	c := New[string, string](0)

	c.Set("k", "v")
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestExpiringClear(t *testing.T) {
	c := New[string, string](time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
