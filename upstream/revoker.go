package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	goSession "github.com/MrEthical07/goSession"
)

// GoogleRevocationEndpoint is Google's RFC 7009 endpoint.
const GoogleRevocationEndpoint = "https://oauth2.googleapis.com/revoke"

const maxResponseSize = 64 << 10

var _ goSession.Revoker = (*Revoker)(nil)

// Revoker revokes provider tokens at an RFC 7009 endpoint.
type Revoker struct {
	endpoint     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	maxTries     uint
	interval     time.Duration
	logger       zerolog.Logger
}

// RevokerOption configures a Revoker.
type RevokerOption func(*Revoker)

// WithRevokerHTTPClient sets a custom HTTP client.
func WithRevokerHTTPClient(client *http.Client) RevokerOption {
	return func(r *Revoker) {
		r.httpClient = client
	}
}

// WithClientCredentials authenticates revocation requests with the OAuth
// client id and secret as form parameters.
func WithClientCredentials(clientID, clientSecret string) RevokerOption {
	return func(r *Revoker) {
		r.clientID = clientID
		r.clientSecret = clientSecret
	}
}

// WithRetry sets the attempt budget and the initial backoff interval.
func WithRetry(maxTries uint, initialInterval time.Duration) RevokerOption {
	return func(r *Revoker) {
		r.maxTries = maxTries
		r.interval = initialInterval
	}
}

// WithRevokerLogger sets the logger.
func WithRevokerLogger(logger zerolog.Logger) RevokerOption {
	return func(r *Revoker) {
		r.logger = logger
	}
}

// NewRevoker creates a revoker for endpoint.
func NewRevoker(endpoint string, opts ...RevokerOption) (*Revoker, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid revocation endpoint %q", endpoint)
	}

	r := &Revoker{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		maxTries:   3,
		interval:   200 * time.Millisecond,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxTries == 0 {
		r.maxTries = 1
	}
	return r, nil
}

type revocationErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Revoke asks the provider to revoke token. A token the provider already
// considers invalid counts as revoked. Server errors and network failures are
// retried within the attempt budget and the deadline of ctx; client errors
// are not. Every returned error wraps [goSession.ErrUpstreamRevocationFailed].
func (r *Revoker) Revoke(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: empty token", goSession.ErrUpstreamRevocationFailed)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.interval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, r.revokeOnce(ctx, token)
	},
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Debug().Err(err).Dur("retry_in", next).Msg("revocation attempt failed")
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", goSession.ErrUpstreamRevocationFailed, err)
	}
	return nil
}

func (r *Revoker) revokeOnce(ctx context.Context, token string) error {
	params := url.Values{"token": {token}}
	if r.clientID != "" {
		params.Set("client_id", r.clientID)
	}
	if r.clientSecret != "" {
		params.Set("client_secret", r.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create revocation request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return fmt.Errorf("revocation request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read revocation response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("revocation endpoint returned %d", resp.StatusCode)
	}

	var eb revocationErrorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error == "invalid_token" {
		r.logger.Debug().Msg("token already invalid at provider")
		return nil
	}
	if eb.Error != "" {
		return backoff.Permanent(fmt.Errorf("revocation rejected: %s %s", eb.Error, eb.ErrorDescription))
	}
	return backoff.Permanent(fmt.Errorf("revocation endpoint returned %d", resp.StatusCode))
}
