package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, 30*time.Minute, c.Cache.InProcessTTL.D())
	require.Equal(t, 2*time.Hour, c.Cache.EphemeralTTL.D())
	require.Equal(t, c.Cache.EphemeralTTL, c.Cache.EphemeralStoreTTL)
	require.Equal(t, 4, c.Layout.CodeColumn)
	require.Equal(t, "fs", c.Snapshot.Driver)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	p := writeYAML(t, `
source:
  driver: sqlite
  path: /tmp/pos.db
cache:
  driver: redis
  ephemeral_ttl: 1h
snapshot:
  driver: sqlite
`)
	t.Setenv("HELLOPOS_IN_PROCESS_TTL", "5m")
	t.Setenv("REDIS_ADDR", "redis:6380")

	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "sqlite", c.Source.Driver)
	require.Equal(t, time.Hour, c.Cache.EphemeralTTL.D())
	require.Equal(t, time.Hour, c.Cache.EphemeralStoreTTL.D())
	require.Equal(t, 5*time.Minute, c.Cache.InProcessTTL.D())
	require.Equal(t, "redis:6380", c.Cache.Redis.Addr)
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(writeYAML(t, "cache:\n  ephemeral_ttl: soon\n"))
	require.ErrorContains(t, err, "invalid duration")
}

func TestValidate(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	c.Cache.EphemeralStoreTTL = Duration(time.Minute)
	c.Cache.Driver = "memcached"
	c.Snapshot.Driver = "s3"
	err := c.Validate()
	require.ErrorContains(t, err, "ephemeral_store_ttl")
	require.ErrorContains(t, err, "memcached")
	require.ErrorContains(t, err, "bucket")
}

func TestLoad_ServerRateLimit(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Zero(t, c.Server.RateLimit.Requests)
	require.Equal(t, time.Minute, c.Server.RateLimit.Window.D())

	require.False(t, c.Server.TrustProxy)

	t.Setenv("HELLOPOS_RATE_LIMIT", "120")
	t.Setenv("HELLOPOS_TRUST_PROXY", "true")
	c, err = Load(writeYAML(t, "server:\n  rate_limit:\n    window: 30s\n"))
	require.NoError(t, err)
	require.Equal(t, 120, c.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, c.Server.RateLimit.Window.D())
	require.True(t, c.Server.TrustProxy)

	c.Server.RateLimit.Requests = -1
	require.ErrorContains(t, c.Validate(), "rate_limit")
}
