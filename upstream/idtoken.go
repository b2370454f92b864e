package upstream

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	goSession "github.com/MrEthical07/goSession"
)

// GoogleIssuer is the issuer Google signs ID tokens with.
const GoogleIssuer = "https://accounts.google.com"

var _ goSession.IdentityVerifier = (*IdentityVerifier)(nil)

// IdentityVerifier verifies provider ID tokens.
type IdentityVerifier struct {
	verifier   *oidc.IDTokenVerifier
	httpClient *http.Client
}

// Discovery is the result of provider discovery: an ID token verifier and
// the provider's OAuth endpoint.
type Discovery struct {
	Verifier *IdentityVerifier
	Endpoint oauth2.Endpoint
}

// Discover fetches the provider's discovery document and signing keys.
// httpClient may be nil.
func Discover(ctx context.Context, issuer, clientID string, httpClient *http.Client) (*Discovery, error) {
	if issuer == "" || clientID == "" {
		return nil, errors.New("issuer and client id are required")
	}
	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", issuer, err)
	}

	return &Discovery{
		Verifier: &IdentityVerifier{
			verifier:   provider.Verifier(&oidc.Config{ClientID: clientID}),
			httpClient: httpClient,
		},
		Endpoint: provider.Endpoint(),
	}, nil
}

// NewStaticIdentityVerifier verifies tokens against a fixed key set without
// discovery. now may be nil.
func NewStaticIdentityVerifier(issuer, clientID string, keys []crypto.PublicKey, now func() time.Time) *IdentityVerifier {
	return &IdentityVerifier{
		verifier: oidc.NewVerifier(issuer, &oidc.StaticKeySet{PublicKeys: keys}, &oidc.Config{
			ClientID: clientID,
			Now:      now,
		}),
	}
}

type identityClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verify checks signature, issuer, audience and expiry of raw and returns the
// identity it asserts. An email the provider marks unverified is dropped.
func (v *IdentityVerifier) Verify(ctx context.Context, raw string) (goSession.Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return goSession.Identity{}, errors.New("id token is required")
	}
	if v.httpClient != nil {
		ctx = oidc.ClientContext(ctx, v.httpClient)
	}

	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return goSession.Identity{}, fmt.Errorf("verify id token: %w", err)
	}

	var claims identityClaims
	if err := tok.Claims(&claims); err != nil {
		return goSession.Identity{}, fmt.Errorf("decode id token claims: %w", err)
	}

	id := goSession.Identity{
		SubjectID:   tok.Subject,
		DisplayName: claims.Name,
		AvatarURL:   claims.Picture,
	}
	if claims.EmailVerified == nil || *claims.EmailVerified {
		id.Email = claims.Email
	}
	return id, nil
}
