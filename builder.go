package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/vault"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder defines a public type used by goSession APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	credentials vault.Repository
	identities  IdentityRepository
	revoker     Revoker
	refresher   ProviderRefresher
	verifier    IdentityVerifier
	auditSink   AuditSink
	logger      *zerolog.Logger

	built bool
}

// New starts a Builder from [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// The config is copied; later changes by the caller have no effect.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing refresh sessions and the refresh throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialRepository enables the credential vault. A 32-byte master key
// becomes mandatory.
func (b *Builder) WithCredentialRepository(repo vault.Repository) *Builder {
	b.credentials = repo
	return b
}

func (b *Builder) WithIdentityRepository(repo IdentityRepository) *Builder {
	b.identities = repo
	return b
}

// WithRevoker sets the upstream revocation client used by Disconnect.
func (b *Builder) WithRevoker(r Revoker) *Builder {
	b.revoker = r
	return b
}

// WithRefresher sets the upstream refresh client used by ProviderAccessToken.
func (b *Builder) WithRefresher(r ProviderRefresher) *Builder {
	b.refresher = r
	return b
}

// WithIdentityVerifier sets the ID token verifier used by LoginWithIDToken.
func (b *Builder) WithIdentityVerifier(v IdentityVerifier) *Builder {
	b.verifier = v
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration and key material and wires every
// component. A Builder can be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	// -------- TOKEN ISSUER --------
	jm, err := jwt.NewManager(jwt.Config{
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Leeway:     cfg.JWT.ClockSkew,
		SigningKey: cloneBytes(cfg.JWT.SigningKey),
		KeyID:      cfg.JWT.KeyID,
		VerifyKeys: cfg.JWT.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}

	// -------- CREDENTIAL VAULT --------
	var v *vault.Vault
	if b.credentials != nil {
		cipher, err := vault.NewCipher(cloneBytes(cfg.Vault.MasterKey), cfg.Vault.Algorithm, cfg.Vault.Provider)
		if err != nil {
			return nil, err
		}
		v, err = vault.New(cipher, b.credentials)
		if err != nil {
			return nil, err
		}
	}

	engine := &Engine{
		config:     cloneConfig(cfg),
		jwtManager: jm,
		sessionStore: session.NewRefreshStore(
			b.redis,
			cfg.Session.RedisPrefix,
			cfg.Session.OperationTimeout,
		),
		rateLimiter: rate.New(b.redis, rate.Config{
			EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
			MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
			Prefix:                  cfg.Session.RedisPrefix,
		}),
		vault:      v,
		identities: b.identities,
		revoker:    b.revoker,
		refresher:  b.refresher,
		verifier:   b.verifier,
		logger:     logger.With().Str("component", "gosession").Logger(),
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, engine.logger)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
