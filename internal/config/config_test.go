package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "none", cfg.GetString("sentiment.provider"))
	assert.Equal(t, "memory", cfg.GetString("store.type"))
	assert.Equal(t, "smtp", cfg.GetString("server.ingress_type"))
	assert.Equal(t, "X-Priority-Score", cfg.GetString("server.headers.score"))
	assert.True(t, cfg.GetBool("cache.enabled"))
	assert.Equal(t, 4, cfg.GetInt("scoring.batch_workers"))
	assert.Empty(t, cfg.GetStringSlice("contacts.seed"))

	ttl, err := cfg.GetDuration("cache.ttl")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)
}

func TestGetDurationRejectsMalformed(t *testing.T) {
	v := NewEmptyViper()
	v.Set("cache.ttl", "not-a-duration")
	cfg := NewFromViper(v)

	_, err := cfg.GetDuration("cache.ttl")
	assert.Error(t, err)
}
