package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	goSession "github.com/MrEthical07/goSession"
)

func newTestRefresher(t *testing.T, handler http.HandlerFunc) *Refresher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r, err := NewRefresher(&oauth2.Config{
		ClientID:     "client-1",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			TokenURL:  srv.URL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, WithRefresherHTTPClient(srv.Client()))
	require.NoError(t, err)
	return r
}

func TestRefresherExchangesRefreshToken(t *testing.T) {
	r := newTestRefresher(t, func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, req.ParseForm())
		assert.Equal(t, "refresh_token", req.PostForm.Get("grant_type"))
		assert.Equal(t, "provider-rt", req.PostForm.Get("refresh_token"))
		assert.Equal(t, "client-1", req.PostForm.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-at","token_type":"Bearer","expires_in":3600,"refresh_token":"new-rt","scope":"openid youtube.readonly"}`))
	})

	before := time.Now()
	tokens, err := r.Refresh(context.Background(), "provider-rt")
	require.NoError(t, err)
	assert.Equal(t, "new-at", tokens.AccessToken)
	assert.Equal(t, "new-rt", tokens.RefreshToken)
	assert.Equal(t, []string{"openid", "youtube.readonly"}, tokens.Scopes)
	assert.True(t, tokens.Expiry.After(before.Add(59*time.Minute)))
}

func TestRefresherKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	r := newTestRefresher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-at","token_type":"Bearer","expires_in":3600}`))
	})

	tokens, err := r.Refresh(context.Background(), "provider-rt")
	require.NoError(t, err)
	assert.Empty(t, tokens.RefreshToken)
	assert.Nil(t, tokens.Scopes)
}

func TestRefresherMapsInvalidGrantToRevoked(t *testing.T) {
	r := newTestRefresher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
	})

	_, err := r.Refresh(context.Background(), "provider-rt")
	require.ErrorIs(t, err, goSession.ErrCredentialRevoked)
}

func TestRefresherReportsOtherFailures(t *testing.T) {
	r := newTestRefresher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := r.Refresh(context.Background(), "provider-rt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, goSession.ErrCredentialRevoked)
}

func TestNewRefresherRequiresTokenURL(t *testing.T) {
	_, err := NewRefresher(&oauth2.Config{ClientID: "x"})
	require.Error(t, err)
	_, err = NewRefresher(nil)
	require.Error(t, err)
}
