package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the test says so.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestCache(ttl time.Duration) (*MemoryScoreCache, *fakeClock) {
	clk := &fakeClock{now: time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)}
	return NewMemoryScoreCache(ttl, clk.Now), clk
}

func TestMemoryScoreCache_SetGet(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ff-1", 4.2))

	score, ok, err := c.Get(ctx, "ff-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4.2, score)
}

func TestMemoryScoreCache_MissForUnknownProvider(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)

	_, ok, err := c.Get(context.Background(), "ff-unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryScoreCache_ExpiresAfterTTL(t *testing.T) {
	c, clk := newTestCache(5 * time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ff-1", 3.9))

	clk.Advance(4 * time.Minute)
	_, ok, err := c.Get(ctx, "ff-1")
	require.NoError(t, err)
	assert.True(t, ok, "entry should still be fresh before the TTL")

	clk.Advance(2 * time.Minute)
	_, ok, err = c.Get(ctx, "ff-1")
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire once the TTL has elapsed")
}

func TestMemoryScoreCache_SetRefreshesTTL(t *testing.T) {
	c, clk := newTestCache(5 * time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ff-1", 3.0))
	clk.Advance(4 * time.Minute)
	require.NoError(t, c.Set(ctx, "ff-1", 3.5))
	clk.Advance(4 * time.Minute)

	score, ok, err := c.Get(ctx, "ff-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3.5, score)
}

func TestMemoryScoreCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ff-1", 4.8))
	require.NoError(t, c.Invalidate(ctx, "ff-1"))

	_, ok, err := c.Get(ctx, "ff-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
