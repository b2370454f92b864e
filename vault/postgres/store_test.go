package postgres

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/vault"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("GOSESSION_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("GOSESSION_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := Connect(ctx, dsn, 3)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE credentials, identities`)
	require.NoError(t, err)
	return New(pool)
}

func TestIdentityUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.FindIdentity(ctx, "sub-1")
	assert.ErrorIs(t, err, goSession.ErrIdentityNotFound)

	first, err := s.UpsertIdentity(ctx, goSession.Identity{SubjectID: "sub-1", Email: "a@example.com", DisplayName: "A"})
	require.NoError(t, err)
	second, err := s.UpsertIdentity(ctx, goSession.Identity{SubjectID: "sub-1", Email: "b@example.com", DisplayName: "B"})
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	got, err := s.FindIdentity(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", got.Email)
	assert.Equal(t, "B", got.DisplayName)
}

func TestCredentialLifecycleThroughVault(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertIdentity(ctx, goSession.Identity{SubjectID: "sub-1"})
	require.NoError(t, err)

	c, err := vault.NewCipher(bytes.Repeat([]byte{1}, vault.KeySize), vault.AlgorithmAESGCM, "google")
	require.NoError(t, err)
	v, err := vault.New(c, s)
	require.NoError(t, err)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)
	require.NoError(t, v.SaveOrUpdate(ctx, "sub-1", "access-1", "refresh-1", expiry, vault.NewScopeSet("openid", "email")))
	require.NoError(t, v.SaveOrUpdate(ctx, "sub-1", "access-2", "", expiry, vault.NewScopeSet("openid", "email")))

	cred, err := v.FindDecrypted(ctx, "sub-1")
	require.NoError(t, err)
	access, err := cred.AccessToken()
	require.NoError(t, err)
	refresh, err := cred.RefreshToken()
	require.NoError(t, err)
	assert.Equal(t, "access-2", access)
	assert.Equal(t, "refresh-1", refresh)
	assert.True(t, cred.AccessExpiry.Equal(expiry))
	assert.Equal(t, "email openid", cred.Scopes.String())

	require.NoError(t, v.MarkRevoked(ctx, "sub-1"))
	cred, err = v.FindDecrypted(ctx, "sub-1")
	require.NoError(t, err)
	assert.True(t, cred.Revoked)

	require.NoError(t, v.Disconnect(ctx, "sub-1"))
	require.NoError(t, v.Disconnect(ctx, "sub-1"))
	_, err = v.FindDecrypted(ctx, "sub-1")
	assert.ErrorIs(t, err, vault.ErrCredentialNotFound)
	assert.ErrorIs(t, v.MarkRevoked(ctx, "sub-1"), vault.ErrCredentialNotFound)
}
