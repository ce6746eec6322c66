package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLRU[T any](size int, ttl time.Duration) (*LRU[T], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[T](size, ttl)
	c.now = clk.Now
	return c, clk
}

func TestLRUGetSet(t *testing.T) {
	c, _ := newTestLRU[string](2, time.Minute)
	c.Set("a", "1")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRUExpiry(t *testing.T) {
	c, clk := newTestLRU[int](10, time.Minute)
	c.Set("short", 1)
	c.SetWithTTL("long", 2, time.Hour)

	clk.Advance(2 * time.Minute)
	_, ok := c.Get("short")
	assert.False(t, ok)
	_, ok = c.Get("long")
	assert.True(t, ok)

	c.Set("x", 3)
	clk.Advance(2 * time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Len())
}

func TestLRUDeleteFuncAndPurge(t *testing.T) {
	c, _ := newTestLRU[int](10, time.Minute)
	c.Set("analytics:a:6", 1)
	c.Set("analytics:b:6", 2)
	c.Set("other", 3)

	n := c.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, "analytics:") })
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestManagerSweep(t *testing.T) {
	c, clk := newTestLRU[int](10, time.Second)
	c.Set("a", 1)
	c.Set("b", 2)
	clk.Advance(time.Minute)

	m := NewManager(nil)
	m.Register("test", c)
	assert.Equal(t, 2, m.Sweep())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
