package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	goSession "github.com/MrEthical07/goSession"
)

var _ goSession.ProviderRefresher = (*Refresher)(nil)

// Refresher exchanges provider refresh tokens at the provider token endpoint.
type Refresher struct {
	config     *oauth2.Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithRefresherHTTPClient sets the client used for token requests.
func WithRefresherHTTPClient(client *http.Client) RefresherOption {
	return func(r *Refresher) {
		r.httpClient = client
	}
}

// WithRefresherLogger sets the logger.
func WithRefresherLogger(logger zerolog.Logger) RefresherOption {
	return func(r *Refresher) {
		r.logger = logger
	}
}

// NewRefresher creates a refresher for the OAuth client described by cfg.
// Only ClientID, ClientSecret and Endpoint.TokenURL are used.
func NewRefresher(cfg *oauth2.Config, opts ...RefresherOption) (*Refresher, error) {
	if cfg == nil {
		return nil, errors.New("oauth2 config is required")
	}
	if cfg.Endpoint.TokenURL == "" {
		return nil, errors.New("token endpoint is required")
	}

	r := &Refresher{config: cfg, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Refresh redeems refreshToken for a new grant. An invalid_grant answer means
// the user revoked access at the provider and is reported as
// [goSession.ErrCredentialRevoked]. Providers that do not rotate refresh
// tokens leave RefreshToken empty in the result.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (goSession.ProviderTokens, error) {
	if refreshToken == "" {
		return goSession.ProviderTokens{}, errors.New("refresh token is required")
	}
	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}

	r.logger.Debug().Str("token_endpoint", r.config.Endpoint.TokenURL).Msg("refreshing provider token")

	tok, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			return goSession.ProviderTokens{}, fmt.Errorf("%w: %s", goSession.ErrCredentialRevoked, re.ErrorDescription)
		}
		return goSession.ProviderTokens{}, fmt.Errorf("token refresh failed: %w", err)
	}

	out := goSession.ProviderTokens{
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
	}
	// x/oauth2 echoes the input refresh token when the provider omits one.
	if tok.RefreshToken != refreshToken {
		out.RefreshToken = tok.RefreshToken
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scopes = strings.Fields(scope)
	}
	return out, nil
}
