package goSession

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/vault"
)

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Vault    VaultConfig
	Upstream UpstreamConfig
	Cookie   CookieConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by goSession APIs.
//
// SigningKey is the HS256 secret (>= 32 bytes). KeyID and VerifyKeys enable
// rotation: tokens are signed with SigningKey under KeyID and verified with
// whichever key their kid names.
type JWTConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ClockSkew  time.Duration
	SigningKey []byte
	KeyID      string
	VerifyKeys map[string][]byte
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis refresh session slot.
type SessionConfig struct {
	RedisPrefix      string
	OperationTimeout time.Duration
}

/*
====================================
VAULT CONFIG
====================================
*/

// VaultConfig controls at-rest encryption of provider tokens.
type VaultConfig struct {
	// MasterKey must be exactly 32 bytes.
	MasterKey []byte
	Algorithm vault.Algorithm
	// Provider is bound into the ciphertext associated data.
	Provider string
}

/*
====================================
UPSTREAM CONFIG
====================================
*/

// UpstreamConfig bounds outbound calls to the identity provider.
type UpstreamConfig struct {
	RevocationTimeout time.Duration
	RefreshTimeout    time.Duration
	// ExpiryMargin refreshes provider access tokens this long before they expire.
	ExpiryMargin time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig defines the session token carriers.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Domain      string
	// RefreshPath scopes the refresh cookie to the refresh endpoint.
	RefreshPath string
	Secure      bool
	SameSite    http.SameSite
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by goSession APIs.
type SecurityConfig struct {
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
	EnableReplayTracking    bool
	ReplayWindow            time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by goSession APIs.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goSession APIs.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Issuer:     "goSession",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
			ClockSkew:  30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix:      "gs",
			OperationTimeout: 2 * time.Second,
		},
		Vault: VaultConfig{
			Algorithm: vault.AlgorithmAESGCM,
			Provider:  "google",
		},
		Upstream: UpstreamConfig{
			RevocationTimeout: 5 * time.Second,
			RefreshTimeout:    10 * time.Second,
			ExpiryMargin:      30 * time.Second,
		},
		Cookie: CookieConfig{
			AccessName:  "AT",
			RefreshName: "RT",
			RefreshPath: "/auth/refresh",
			Secure:      true,
			SameSite:    http.SameSiteNoneMode,
		},
		Security: SecurityConfig{
			EnableRefreshThrottle:   false,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: time.Minute,
			EnableReplayTracking:    true,
			ReplayWindow:            24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the baseline configuration. SigningKey and MasterKey
// are left empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.SigningKey = cloneBytes(cfg.JWT.SigningKey)
	out.Vault.MasterKey = cloneBytes(cfg.Vault.MasterKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate rejects key material below the minimum length so a misconfigured
// process fails at startup instead of at the first request.
func (c *Config) Validate() error {
	// JWT
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must be set")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be > AccessTTL")
	}
	if c.JWT.ClockSkew < 0 || c.JWT.ClockSkew > 5*time.Minute {
		return errors.New("JWT ClockSkew must be between 0 and 5m")
	}
	if len(c.JWT.SigningKey) < jwt.MinKeyLength {
		return errors.New("JWT SigningKey must be >= 32 bytes")
	}
	for kid, key := range c.JWT.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return errors.New("JWT VerifyKeys contains an empty kid")
		}
		if len(key) < jwt.MinKeyLength {
			return errors.New("JWT VerifyKeys entries must be >= 32 bytes")
		}
	}
	if len(c.JWT.VerifyKeys) > 0 {
		if _, ok := c.JWT.VerifyKeys[c.JWT.KeyID]; !ok {
			return errors.New("JWT KeyID must be present in VerifyKeys")
		}
	}

	// Session
	if c.Session.OperationTimeout <= 0 {
		return errors.New("Session OperationTimeout must be > 0")
	}
	if strings.Contains(c.Session.RedisPrefix, " ") {
		return errors.New("Session RedisPrefix must not contain spaces")
	}

	// Vault
	if len(c.Vault.MasterKey) != 0 && len(c.Vault.MasterKey) != vault.KeySize {
		return ErrCryptoKeyMisconfigured
	}
	switch c.Vault.Algorithm {
	case vault.AlgorithmAESGCM, vault.AlgorithmChaCha20Poly1305:
	default:
		return errors.New("Vault Algorithm is invalid")
	}
	if strings.TrimSpace(c.Vault.Provider) == "" {
		return errors.New("Vault Provider must be set")
	}

	// Upstream
	if c.Upstream.RevocationTimeout <= 0 {
		return errors.New("Upstream RevocationTimeout must be > 0")
	}
	if c.Upstream.RefreshTimeout <= 0 {
		return errors.New("Upstream RefreshTimeout must be > 0")
	}
	if c.Upstream.ExpiryMargin < 0 {
		return errors.New("Upstream ExpiryMargin must be >= 0")
	}

	// Cookie
	if c.Cookie.AccessName == "" || c.Cookie.RefreshName == "" {
		return errors.New("Cookie names must be set")
	}
	if c.Cookie.AccessName == c.Cookie.RefreshName {
		return errors.New("Cookie AccessName and RefreshName must differ")
	}
	if !strings.HasPrefix(c.Cookie.RefreshPath, "/") {
		return errors.New("Cookie RefreshPath must start with /")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// Security
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("Security MaxRefreshAttempts must be > 0 when refresh throttle is enabled")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("Security RefreshCooldownDuration must be > 0 when refresh throttle is enabled")
		}
	}
	if c.Security.EnableReplayTracking && c.Security.ReplayWindow <= 0 {
		return errors.New("Security ReplayWindow must be > 0 when replay tracking is enabled")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
