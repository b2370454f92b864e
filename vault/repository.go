package vault

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCredentialNotFound is returned when no credential exists for a subject.
var ErrCredentialNotFound = errors.New("credential not found")

// Record is the persisted, encrypted shape of a credential.
//
// An empty RefreshCiphertext on upsert means "keep the stored one".
type Record struct {
	SubjectID         string
	AccessCiphertext  string
	RefreshCiphertext string
	AccessExpiry      time.Time
	Scopes            string
	Revoked           bool
	UpdatedAt         time.Time
}

// Repository persists credential records. Implementations must enforce at most
// one record per subject and make UpsertCredential atomic per subject.
type Repository interface {
	UpsertCredential(ctx context.Context, rec Record) error
	FindCredential(ctx context.Context, subjectID string) (Record, error)
	DeleteCredential(ctx context.Context, subjectID string) error
	MarkRevoked(ctx context.Context, subjectID string) error
}

// MemoryRepository is an in-process [Repository] for tests and single-node tools.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

func (m *MemoryRepository) UpsertCredential(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.RefreshCiphertext == "" {
		if prev, ok := m.records[rec.SubjectID]; ok {
			rec.RefreshCiphertext = prev.RefreshCiphertext
		}
	}
	rec.Revoked = false
	rec.UpdatedAt = m.now()
	m.records[rec.SubjectID] = rec
	return nil
}

func (m *MemoryRepository) FindCredential(ctx context.Context, subjectID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[subjectID]
	if !ok {
		return Record{}, ErrCredentialNotFound
	}
	return rec, nil
}

func (m *MemoryRepository) DeleteCredential(ctx context.Context, subjectID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.records, subjectID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) MarkRevoked(ctx context.Context, subjectID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[subjectID]
	if !ok {
		return ErrCredentialNotFound
	}
	rec.Revoked = true
	rec.UpdatedAt = m.now()
	m.records[subjectID] = rec
	return nil
}
