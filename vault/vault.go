package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSubjectRequired is returned when an operation is called with an empty subject id.
var ErrSubjectRequired = errors.New("vault subject required")

// Credential is a stored provider credential. Token fields stay sealed until
// AccessToken or RefreshToken is called.
type Credential struct {
	SubjectID    string
	AccessExpiry time.Time
	Scopes       ScopeSet
	Revoked      bool
	UpdatedAt    time.Time

	cipher        *Cipher
	accessSealed  string
	refreshSealed string
}

// AccessToken opens the provider access token.
func (c *Credential) AccessToken() (string, error) {
	return c.cipher.Decrypt(c.accessSealed, c.SubjectID)
}

// HasRefreshToken reports whether a provider refresh token is stored.
func (c *Credential) HasRefreshToken() bool {
	return c.refreshSealed != ""
}

// RefreshToken opens the provider refresh token. It returns "" and no error
// when none is stored.
func (c *Credential) RefreshToken() (string, error) {
	if c.refreshSealed == "" {
		return "", nil
	}
	return c.cipher.Decrypt(c.refreshSealed, c.SubjectID)
}

// Expired reports whether the access token is past its expiry at now.
func (c *Credential) Expired(now time.Time) bool {
	return !c.AccessExpiry.IsZero() && !now.Before(c.AccessExpiry)
}

// Vault encrypts provider tokens and persists them through a [Repository].
//
// Vault instances are immutable after construction and safe for concurrent use
// when the repository is.
type Vault struct {
	cipher *Cipher
	repo   Repository
}

// New returns a Vault over cipher and repo.
func New(cipher *Cipher, repo Repository) (*Vault, error) {
	if cipher == nil {
		return nil, fmt.Errorf("%w: cipher is nil", ErrKeyMisconfigured)
	}
	if repo == nil {
		return nil, errors.New("vault repository is nil")
	}
	return &Vault{cipher: cipher, repo: repo}, nil
}

// Cipher returns the vault's cipher.
func (v *Vault) Cipher() *Cipher { return v.cipher }

// SaveOrUpdate seals access and refresh independently and upserts them by
// subject. An empty refresh keeps the previously stored refresh token. Saving
// clears the revoked flag.
func (v *Vault) SaveOrUpdate(ctx context.Context, subjectID, access, refresh string, accessExpiry time.Time, scopes ScopeSet) error {
	if strings.TrimSpace(subjectID) == "" {
		return ErrSubjectRequired
	}
	if access == "" {
		return errors.New("vault access token required")
	}

	accessSealed, err := v.cipher.Encrypt(access, subjectID)
	if err != nil {
		return err
	}
	var refreshSealed string
	if refresh != "" {
		refreshSealed, err = v.cipher.Encrypt(refresh, subjectID)
		if err != nil {
			return err
		}
	}

	return v.repo.UpsertCredential(ctx, Record{
		SubjectID:         subjectID,
		AccessCiphertext:  accessSealed,
		RefreshCiphertext: refreshSealed,
		AccessExpiry:      accessExpiry.UTC(),
		Scopes:            scopes.String(),
	})
}

// FindDecrypted loads the subject's credential. Token fields are opened lazily
// by the returned Credential.
func (v *Vault) FindDecrypted(ctx context.Context, subjectID string) (*Credential, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, ErrSubjectRequired
	}
	rec, err := v.repo.FindCredential(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return &Credential{
		SubjectID:     rec.SubjectID,
		AccessExpiry:  rec.AccessExpiry,
		Scopes:        ParseScopes(rec.Scopes),
		Revoked:       rec.Revoked,
		UpdatedAt:     rec.UpdatedAt,
		cipher:        v.cipher,
		accessSealed:  rec.AccessCiphertext,
		refreshSealed: rec.RefreshCiphertext,
	}, nil
}

// GrantedScopes returns the subject's stored scopes without opening any token.
func (v *Vault) GrantedScopes(ctx context.Context, subjectID string) (ScopeSet, error) {
	cred, err := v.FindDecrypted(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return cred.Scopes, nil
}

// MarkRevoked flags the stored credential as unusable without deleting it.
func (v *Vault) MarkRevoked(ctx context.Context, subjectID string) error {
	if strings.TrimSpace(subjectID) == "" {
		return ErrSubjectRequired
	}
	return v.repo.MarkRevoked(ctx, subjectID)
}

// Disconnect deletes the credential. Deleting a missing credential succeeds.
func (v *Vault) Disconnect(ctx context.Context, subjectID string) error {
	if strings.TrimSpace(subjectID) == "" {
		return ErrSubjectRequired
	}
	err := v.repo.DeleteCredential(ctx, subjectID)
	if errors.Is(err, ErrCredentialNotFound) {
		return nil
	}
	return err
}
