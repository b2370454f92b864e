// Command sessiond serves the goSession endpoints over HTTP.
//
// Configuration is read from the environment (and an optional .env file);
// see goSession.EnvConfig. Key material problems stop the process before it
// listens.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/upstream"
	"github.com/MrEthical07/goSession/vault"
	"github.com/MrEthical07/goSession/vault/postgres"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ec, err := goSession.LoadEnv(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("load environment")
	}
	setupLogger(ec.LogLevel)

	cfg, err := ec.Config()
	if err != nil {
		log.Fatal().Err(err).Str("code", goSession.ErrorCode(err)).Msg("invalid configuration")
	}

	redisOpts, err := redis.ParseURL(ec.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("parse redis url")
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	builder := goSession.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(log.Logger).
		WithAuditSink(goSession.NewZerologSink(log.Logger))

	if err := wireStorage(ctx, ec, builder); err != nil {
		log.Fatal().Err(err).Msg("storage")
	}
	if err := wireUpstream(ctx, ec, builder); err != nil {
		log.Fatal().Err(err).Msg("upstream provider")
	}

	engine, err := builder.Build()
	if err != nil {
		log.Fatal().Err(err).Str("code", goSession.ErrorCode(err)).Msg("build session engine")
	}
	defer engine.Close()

	if _, err := engine.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis not reachable yet")
	}

	srv := &http.Server{
		Addr:              ec.ListenAddr,
		Handler:           newRouter(engine),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info().Str("addr", ec.ListenAddr).Msg("sessiond listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "sessiond").Logger()
}

// wireStorage uses Postgres when SESSION_DATABASE_URL is set and in-memory
// repositories otherwise.
func wireStorage(ctx context.Context, ec goSession.EnvConfig, b *goSession.Builder) error {
	if ec.DatabaseURL == "" {
		log.Warn().Msg("SESSION_DATABASE_URL not set; identities and credentials are kept in memory")
		b.WithIdentityRepository(goSession.NewMemoryIdentityRepository()).
			WithCredentialRepository(vault.NewMemoryRepository())
		return nil
	}

	pool, err := postgres.Connect(ctx, ec.DatabaseURL, 5)
	if err != nil {
		return err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return err
	}

	store := postgres.New(pool)
	b.WithIdentityRepository(store).WithCredentialRepository(store)
	return nil
}

func wireUpstream(ctx context.Context, ec goSession.EnvConfig, b *goSession.Builder) error {
	httpClient := &http.Client{Timeout: ec.UpstreamTimeout}

	if ec.RevocationURL != "" {
		revoker, err := upstream.NewRevoker(ec.RevocationURL,
			upstream.WithRevokerHTTPClient(httpClient),
			upstream.WithClientCredentials(ec.OIDCClientID, ec.OIDCClientSecret),
			upstream.WithRevokerLogger(log.Logger.With().Str("component", "revoker").Logger()),
		)
		if err != nil {
			return err
		}
		b.WithRevoker(revoker)
	}

	if ec.OIDCIssuer == "" {
		log.Warn().Msg("SESSION_OIDC_ISSUER not set; id token login and provider refresh are disabled")
		return nil
	}

	disc, err := upstream.Discover(ctx, ec.OIDCIssuer, ec.OIDCClientID, httpClient)
	if err != nil {
		return err
	}
	refresher, err := upstream.NewRefresher(&oauth2.Config{
		ClientID:     ec.OIDCClientID,
		ClientSecret: ec.OIDCClientSecret,
		Endpoint:     disc.Endpoint,
	},
		upstream.WithRefresherHTTPClient(httpClient),
		upstream.WithRefresherLogger(log.Logger.With().Str("component", "refresher").Logger()),
	)
	if err != nil {
		return err
	}

	b.WithIdentityVerifier(disc.Verifier).WithRefresher(refresher)
	return nil
}
