package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anam145/go-credential-sdk/credential/common/canonical"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "anam145", cfg.DID.Method)
	assert.Equal(t, "memory", cfg.Ledger.Kind)
	assert.Equal(t, "none", cfg.Cache.Kind)

	profile, err := cfg.Profile()
	require.NoError(t, err)
	assert.Equal(t, canonical.ServerProfile.Name, profile.Name)

	timeout, err := cfg.LedgerTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", `
canonical:
  profile: mobile-legacy
ledger:
  kind: http
  url: http://ledger:8080
  timeout: 2s
cache:
  kind: redis
  ttl: 30s
  redis:
    addr: localhost:6379
`)
	t.Setenv("LEDGER_TIMEOUT", "750ms")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	profile, err := cfg.Profile()
	require.NoError(t, err)
	assert.Equal(t, canonical.BindingSuffix, profile.Binding)
	assert.Equal(t, "http://ledger:8080", cfg.Ledger.URL)

	timeout, err := cfg.LedgerTimeout()
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, timeout)
	assert.Equal(t, 3, cfg.Cache.Redis.DB)

	ttl, err := cfg.CacheTTL()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, ttl)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "Unknown profile", content: "canonical:\n  profile: browser\n", errMsg: "unknown canonical profile"},
		{name: "HTTP ledger without URL", content: "ledger:\n  kind: http\n", errMsg: "ledger.url is required"},
		{name: "Bad timeout", content: "ledger:\n  timeout: soon\n", errMsg: "invalid ledger.timeout"},
		{name: "Redis without address", content: "cache:\n  kind: redis\n", errMsg: "cache.redis.addr is required"},
		{name: "Malformed YAML", content: "ledger: [", errMsg: "failed to parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "CANONICAL_PROFILE=mobile-legacy\nDID_METHOD=example\n")
	t.Setenv("DID_METHOD", "preset")
	require.NoError(t, os.Unsetenv("CANONICAL_PROFILE"))
	t.Cleanup(func() { os.Unsetenv("CANONICAL_PROFILE") })

	require.NoError(t, LoadEnvFile(path))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, canonical.MobileLegacyProfile.Name, cfg.Canonical.Profile)
	assert.Equal(t, "preset", cfg.DID.Method)

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
	assert.NoError(t, LoadEnvFile(""))
}
