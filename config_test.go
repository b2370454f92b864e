package goSession

import (
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigNeedsKeys(t *testing.T) {
	cfg := DefaultConfig()
	require.Error(t, cfg.Validate(), "signing key is required")

	cfg.JWT.SigningKey = testSigningKey
	require.NoError(t, cfg.Validate(), "master key is optional until a vault is configured")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty issuer", func(c *Config) { c.JWT.Issuer = " " }},
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }},
		{"refresh not longer than access", func(c *Config) { c.JWT.RefreshTTL = c.JWT.AccessTTL }},
		{"negative skew", func(c *Config) { c.JWT.ClockSkew = -time.Second }},
		{"huge skew", func(c *Config) { c.JWT.ClockSkew = time.Hour }},
		{"short signing key", func(c *Config) { c.JWT.SigningKey = []byte("0123456789") }},
		{"short verify key", func(c *Config) {
			c.JWT.KeyID = "k1"
			c.JWT.VerifyKeys = map[string][]byte{"k1": testSigningKey, "k0": []byte("short")}
		}},
		{"kid missing from verify keys", func(c *Config) {
			c.JWT.KeyID = "k2"
			c.JWT.VerifyKeys = map[string][]byte{"k1": testSigningKey}
		}},
		{"short master key", func(c *Config) { c.Vault.MasterKey = []byte("short") }},
		{"unknown cipher", func(c *Config) { c.Vault.Algorithm = "des" }},
		{"empty provider", func(c *Config) { c.Vault.Provider = "" }},
		{"zero store timeout", func(c *Config) { c.Session.OperationTimeout = 0 }},
		{"zero revocation timeout", func(c *Config) { c.Upstream.RevocationTimeout = 0 }},
		{"same cookie names", func(c *Config) { c.Cookie.RefreshName = c.Cookie.AccessName }},
		{"relative refresh path", func(c *Config) { c.Cookie.RefreshPath = "auth/refresh" }},
		{"samesite none without secure", func(c *Config) { c.Cookie.Secure = false }},
		{"throttle without attempts", func(c *Config) {
			c.Security.EnableRefreshThrottle = true
			c.Security.MaxRefreshAttempts = 0
		}},
		{"audit without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigValidateMasterKeyError(t *testing.T) {
	cfg := testConfig()
	cfg.Vault.MasterKey = make([]byte, 31)
	assert.True(t, errors.Is(cfg.Validate(), ErrCryptoKeyMisconfigured))
}

func TestCloneConfigDeepCopiesKeys(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.KeyID = "k1"
	cfg.JWT.VerifyKeys = map[string][]byte{"k1": append([]byte(nil), testSigningKey...)}

	clone := cloneConfig(cfg)
	cfg.JWT.SigningKey[0] = 'x'
	cfg.Vault.MasterKey[0] = 0
	cfg.JWT.VerifyKeys["k1"][0] = 'x'

	assert.Equal(t, byte('s'), clone.JWT.SigningKey[0])
	assert.Equal(t, byte(0x42), clone.Vault.MasterKey[0])
	assert.Equal(t, byte('s'), clone.JWT.VerifyKeys["k1"][0])
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SIGNING_SECRET", string(testSigningKey))
	t.Setenv("SESSION_MASTER_KEY", base64.StdEncoding.EncodeToString(testMasterKey))
}

func TestLoadConfigFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_ISSUER", "sessions.example.com")
	t.Setenv("SESSION_ACCESS_TTL", "10m")
	t.Setenv("SESSION_REFRESH_TTL", "240h")
	t.Setenv("SESSION_CLOCK_SKEW", "5s")
	t.Setenv("SESSION_COOKIE_SAMESITE", "lax")
	t.Setenv("SESSION_COOKIE_SECURE", "false")
	t.Setenv("SESSION_REFRESH_PATH", "/api/auth/refresh")
	t.Setenv("SESSION_CIPHER", "chacha20-poly1305")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sessions.example.com", cfg.JWT.Issuer)
	assert.Equal(t, 10*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 240*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 5*time.Second, cfg.JWT.ClockSkew)
	assert.Equal(t, testMasterKey, cfg.Vault.MasterKey)
	assert.Equal(t, http.SameSiteLaxMode, cfg.Cookie.SameSite)
	assert.False(t, cfg.Cookie.Secure)
	assert.Equal(t, "/api/auth/refresh", cfg.Cookie.RefreshPath)
	assert.Equal(t, "chacha20-poly1305", string(cfg.Vault.Algorithm))
}

func TestLoadConfigFromEnvRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SIGNING_SECRET", "")
	t.Setenv("SESSION_MASTER_KEY", "")
	os.Unsetenv("SESSION_SIGNING_SECRET")
	os.Unsetenv("SESSION_MASTER_KEY")

	_, err := LoadConfigFromEnv()
	require.Error(t, err)
}

func TestLoadConfigFromEnvRejectsBadMasterKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_MASTER_KEY", base64.StdEncoding.EncodeToString([]byte("too-short")))

	_, err := LoadConfigFromEnv()
	require.ErrorIs(t, err, ErrCryptoKeyMisconfigured)
}

func TestLoadConfigFromEnvRejectsShortSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_SIGNING_SECRET", "short-secret")

	_, err := LoadConfigFromEnv()
	require.Error(t, err)
}

func TestLoadConfigFromEnvVerifySecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_SIGNING_KEY_ID", "2026-10")
	t.Setenv("SESSION_VERIFY_SECRETS", "2026-04:previous-secret-previous-secret-xx")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Len(t, cfg.JWT.VerifyKeys, 2)
	assert.Equal(t, testSigningKey, cfg.JWT.VerifyKeys["2026-10"])
}

func TestLoadEnvReadsDotenvFile(t *testing.T) {
	t.Setenv("SESSION_MASTER_KEY", base64.StdEncoding.EncodeToString(testMasterKey))
	t.Setenv("SESSION_SIGNING_SECRET", "")
	os.Unsetenv("SESSION_SIGNING_SECRET")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SESSION_SIGNING_SECRET="+string(testSigningKey)+"\n"), 0o600))

	ec, err := LoadEnv(filepath.Join(dir, "missing.env"), path)
	require.NoError(t, err)
	assert.Equal(t, string(testSigningKey), ec.SigningSecret)
}
