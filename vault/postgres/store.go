package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/vault"
)

// Store implements [vault.Repository] and [goSession.IdentityRepository].
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ vault.Repository             = (*Store)(nil)
	_ goSession.IdentityRepository = (*Store)(nil)
)

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool and pings it, retrying with exponential backoff up to
// attempts times.
func Connect(ctx context.Context, dsn string, attempts uint) (*pgxpool.Pool, error) {
	if attempts == 0 {
		attempts = 3
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	return backoff.Retry(ctx, func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(attempts),
	)
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const upsertIdentitySQL = `
INSERT INTO identities (subject_id, email, display_name, avatar_url)
VALUES ($1, $2, $3, $4)
ON CONFLICT (subject_id) DO UPDATE SET
    email        = EXCLUDED.email,
    display_name = EXCLUDED.display_name,
    avatar_url   = EXCLUDED.avatar_url,
    updated_at   = now()
RETURNING created_at, updated_at`

// UpsertIdentity creates or updates an identity by subject id.
func (s *Store) UpsertIdentity(ctx context.Context, id goSession.Identity) (goSession.Identity, error) {
	row := s.pool.QueryRow(ctx, upsertIdentitySQL, id.SubjectID, id.Email, id.DisplayName, id.AvatarURL)
	if err := row.Scan(&id.CreatedAt, &id.UpdatedAt); err != nil {
		return goSession.Identity{}, fmt.Errorf("upsert identity: %w", err)
	}
	return id, nil
}

const findIdentitySQL = `
SELECT subject_id, email, display_name, avatar_url, created_at, updated_at
FROM identities WHERE subject_id = $1`

// FindIdentity loads an identity or returns goSession.ErrIdentityNotFound.
func (s *Store) FindIdentity(ctx context.Context, subjectID string) (goSession.Identity, error) {
	var id goSession.Identity
	err := s.pool.QueryRow(ctx, findIdentitySQL, subjectID).Scan(
		&id.SubjectID, &id.Email, &id.DisplayName, &id.AvatarURL, &id.CreatedAt, &id.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return goSession.Identity{}, goSession.ErrIdentityNotFound
	}
	if err != nil {
		return goSession.Identity{}, fmt.Errorf("find identity: %w", err)
	}
	return id, nil
}

// An empty refresh ciphertext arrives as NULL and COALESCE keeps the stored one.
const upsertCredentialSQL = `
INSERT INTO credentials (subject_id, access_ciphertext, refresh_ciphertext, access_expiry, scopes, revoked, updated_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, FALSE, now())
ON CONFLICT (subject_id) DO UPDATE SET
    access_ciphertext  = EXCLUDED.access_ciphertext,
    refresh_ciphertext = COALESCE(EXCLUDED.refresh_ciphertext, credentials.refresh_ciphertext),
    access_expiry      = EXCLUDED.access_expiry,
    scopes             = EXCLUDED.scopes,
    revoked            = FALSE,
    updated_at         = now()`

func (s *Store) UpsertCredential(ctx context.Context, rec vault.Record) error {
	var expiry *time.Time
	if !rec.AccessExpiry.IsZero() {
		expiry = &rec.AccessExpiry
	}
	if _, err := s.pool.Exec(ctx, upsertCredentialSQL,
		rec.SubjectID, rec.AccessCiphertext, rec.RefreshCiphertext, expiry, rec.Scopes,
	); err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

const findCredentialSQL = `
SELECT subject_id, access_ciphertext, COALESCE(refresh_ciphertext, ''), access_expiry, scopes, revoked, updated_at
FROM credentials WHERE subject_id = $1`

func (s *Store) FindCredential(ctx context.Context, subjectID string) (vault.Record, error) {
	var (
		rec    vault.Record
		expiry *time.Time
	)
	err := s.pool.QueryRow(ctx, findCredentialSQL, subjectID).Scan(
		&rec.SubjectID, &rec.AccessCiphertext, &rec.RefreshCiphertext, &expiry, &rec.Scopes, &rec.Revoked, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return vault.Record{}, vault.ErrCredentialNotFound
	}
	if err != nil {
		return vault.Record{}, fmt.Errorf("find credential: %w", err)
	}
	if expiry != nil {
		rec.AccessExpiry = expiry.UTC()
	}
	return rec, nil
}

func (s *Store) DeleteCredential(ctx context.Context, subjectID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM credentials WHERE subject_id = $1`, subjectID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

func (s *Store) MarkRevoked(ctx context.Context, subjectID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE credentials SET revoked = TRUE, updated_at = now() WHERE subject_id = $1`, subjectID)
	if err != nil {
		return fmt.Errorf("mark credential revoked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return vault.ErrCredentialNotFound
	}
	return nil
}
