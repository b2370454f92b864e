package goSession_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
)

// This test guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = goSession.New

	var _ *goSession.Engine
	var _ goSession.Config
	var _ goSession.TokenPair
	var _ goSession.Principal
	var _ goSession.Identity
	var _ goSession.IdentityRepository
	var _ goSession.Revoker
	var _ goSession.ProviderRefresher
	var _ goSession.IdentityVerifier
	var _ goSession.AuditSink

	var _ error = goSession.ErrTokenMissing
	var _ error = goSession.ErrTokenExpired
	var _ error = goSession.ErrTokenMalformed
	var _ error = goSession.ErrTokenWrongType
	var _ error = goSession.ErrRefreshReuseDetected
	var _ error = goSession.ErrScopesMissing
	var _ error = goSession.ErrCredentialRevoked
	var _ error = goSession.ErrCryptoDecryptFailed
	var _ error = goSession.ErrCryptoKeyMisconfigured
	var _ error = goSession.ErrUpstreamRevocationFailed

	var _ func(*goSession.Engine, ...middleware.GatewayOption) func(http.Handler) http.Handler = middleware.Gateway
	var _ func(http.Handler) http.Handler = middleware.RequireAuthenticated
	var _ func(*goSession.Engine, ...string) func(http.Handler) http.Handler = middleware.RequireScopes

	var _ func(*goSession.Engine, context.Context, goSession.LoginInput) (goSession.TokenPair, error) = (*goSession.Engine).CompleteLogin
	var _ func(*goSession.Engine, context.Context, string) (goSession.TokenPair, error) = (*goSession.Engine).Refresh
	var _ func(*goSession.Engine, string) (goSession.Principal, error) = (*goSession.Engine).ValidateAccess
	var _ func(*goSession.Engine, context.Context, string, ...string) error = (*goSession.Engine).RequireScopes
	var _ func(*goSession.Engine, context.Context, string) error = (*goSession.Engine).Logout
	var _ func(*goSession.Engine, context.Context, string) error = (*goSession.Engine).Disconnect
	var _ func(*goSession.Engine, context.Context, string) (string, time.Time, error) = (*goSession.Engine).ProviderAccessToken
}
