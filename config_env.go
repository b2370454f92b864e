package goSession

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/vault"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvConfig is the environment surface of a deployed session service. Secrets
// are raw strings here and converted by [EnvConfig.Config].
type EnvConfig struct {
	SigningSecret string            `env:"SESSION_SIGNING_SECRET,required"`
	SigningKeyID  string            `env:"SESSION_SIGNING_KEY_ID"`
	VerifySecrets map[string]string `env:"SESSION_VERIFY_SECRETS"`
	Issuer        string            `env:"SESSION_ISSUER" envDefault:"goSession"`
	AccessTTL     time.Duration     `env:"SESSION_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration     `env:"SESSION_REFRESH_TTL" envDefault:"720h"`
	ClockSkew     time.Duration     `env:"SESSION_CLOCK_SKEW" envDefault:"30s"`

	MasterKey string `env:"SESSION_MASTER_KEY,required"`
	Cipher    string `env:"SESSION_CIPHER" envDefault:"aes-256-gcm"`
	Provider  string `env:"SESSION_PROVIDER" envDefault:"google"`

	RedisURL     string        `env:"SESSION_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPrefix  string        `env:"SESSION_REDIS_PREFIX" envDefault:"gs"`
	StoreTimeout time.Duration `env:"SESSION_STORE_TIMEOUT" envDefault:"2s"`
	DatabaseURL  string        `env:"SESSION_DATABASE_URL"`

	RevocationURL     string        `env:"SESSION_REVOCATION_URL"`
	RevocationTimeout time.Duration `env:"SESSION_REVOCATION_TIMEOUT" envDefault:"5s"`
	OIDCIssuer        string        `env:"SESSION_OIDC_ISSUER"`
	OIDCClientID      string        `env:"SESSION_OIDC_CLIENT_ID"`
	OIDCClientSecret  string        `env:"SESSION_OIDC_CLIENT_SECRET"`
	UpstreamTimeout   time.Duration `env:"SESSION_UPSTREAM_REFRESH_TIMEOUT" envDefault:"10s"`

	CookieSecure   bool   `env:"SESSION_COOKIE_SECURE" envDefault:"true"`
	CookieSameSite string `env:"SESSION_COOKIE_SAMESITE" envDefault:"none"`
	CookieDomain   string `env:"SESSION_COOKIE_DOMAIN"`
	RefreshPath    string `env:"SESSION_REFRESH_PATH" envDefault:"/auth/refresh"`

	RefreshThrottle    bool          `env:"SESSION_REFRESH_THROTTLE" envDefault:"false"`
	MaxRefreshAttempts int           `env:"SESSION_REFRESH_MAX_ATTEMPTS" envDefault:"20"`
	RefreshCooldown    time.Duration `env:"SESSION_REFRESH_COOLDOWN" envDefault:"1m"`

	AuditEnabled   bool `env:"SESSION_AUDIT_ENABLED" envDefault:"true"`
	MetricsEnabled bool `env:"SESSION_METRICS_ENABLED" envDefault:"true"`

	ListenAddr string `env:"SESSION_LISTEN_ADDR" envDefault:":8080"`
	LogLevel   string `env:"SESSION_LOG_LEVEL" envDefault:"info"`
}

// LoadEnv loads the given .env files (missing files are skipped, existing
// process variables win) and parses the environment into an [EnvConfig].
func LoadEnv(envFiles ...string) (EnvConfig, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return EnvConfig{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromEnv is LoadEnv followed by [EnvConfig.Config].
func LoadConfigFromEnv(envFiles ...string) (Config, error) {
	ec, err := LoadEnv(envFiles...)
	if err != nil {
		return Config{}, err
	}
	return ec.Config()
}

// Config converts the environment values into a validated [Config].
func (ec EnvConfig) Config() (Config, error) {
	masterKey, err := vault.ParseKey(ec.MasterKey)
	if err != nil {
		return Config{}, err
	}
	sameSite, err := parseSameSite(ec.CookieSameSite)
	if err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	cfg.JWT.Issuer = ec.Issuer
	cfg.JWT.AccessTTL = ec.AccessTTL
	cfg.JWT.RefreshTTL = ec.RefreshTTL
	cfg.JWT.ClockSkew = ec.ClockSkew
	cfg.JWT.SigningKey = []byte(ec.SigningSecret)
	cfg.JWT.KeyID = ec.SigningKeyID
	if len(ec.VerifySecrets) > 0 {
		cfg.JWT.VerifyKeys = make(map[string][]byte, len(ec.VerifySecrets)+1)
		for kid, secret := range ec.VerifySecrets {
			cfg.JWT.VerifyKeys[kid] = []byte(secret)
		}
		if _, ok := cfg.JWT.VerifyKeys[ec.SigningKeyID]; !ok && ec.SigningKeyID != "" {
			cfg.JWT.VerifyKeys[ec.SigningKeyID] = []byte(ec.SigningSecret)
		}
	}

	cfg.Vault.MasterKey = masterKey
	cfg.Vault.Algorithm = vault.Algorithm(strings.ToLower(ec.Cipher))
	cfg.Vault.Provider = ec.Provider

	cfg.Session.RedisPrefix = ec.RedisPrefix
	cfg.Session.OperationTimeout = ec.StoreTimeout

	cfg.Upstream.RevocationTimeout = ec.RevocationTimeout
	cfg.Upstream.RefreshTimeout = ec.UpstreamTimeout

	cfg.Cookie.Secure = ec.CookieSecure
	cfg.Cookie.SameSite = sameSite
	cfg.Cookie.Domain = ec.CookieDomain
	cfg.Cookie.RefreshPath = ec.RefreshPath

	cfg.Security.EnableRefreshThrottle = ec.RefreshThrottle
	cfg.Security.MaxRefreshAttempts = ec.MaxRefreshAttempts
	cfg.Security.RefreshCooldownDuration = ec.RefreshCooldown

	cfg.Audit.Enabled = ec.AuditEnabled
	cfg.Metrics.Enabled = ec.MetricsEnabled

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseSameSite(raw string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none":
		return http.SameSiteNoneMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	default:
		return 0, fmt.Errorf("invalid cookie SameSite %q", raw)
	}
}
