package cache

import (
	"context"
	"testing"
	"time"

	"github.com/mikey/email-priority/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Minute)
	defer c.Stop()
	ctx := context.Background()

	result := &core.ScoreResult{EmailID: "e1", TotalScore: 72, Label: core.LabelHigh}
	require.NoError(t, c.Set(ctx, "key1", result, time.Minute))

	got, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, 72, got.TotalScore)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Minute)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", &core.ScoreResult{EmailID: "e1"}, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := c.Get(ctx, "key1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Minute)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", &core.ScoreResult{EmailID: "e1"}, time.Minute))
	require.NoError(t, c.Delete(ctx, "key1"))

	_, err := c.Get(ctx, "key1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryCacheCleanup(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "stale", &core.ScoreResult{EmailID: "e1"}, 10*time.Millisecond))
	require.NoError(t, c.Set(ctx, "fresh", &core.ScoreResult{EmailID: "e2"}, time.Hour))
	time.Sleep(30 * time.Millisecond)

	require.NoError(t, c.Cleanup(ctx))

	c.mu.RLock()
	defer c.mu.RUnlock()
	assert.NotContains(t, c.entries, "stale")
	assert.Contains(t, c.entries, "fresh")
}
