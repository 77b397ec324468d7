package auth

import (
	"context"
	"sync"

	"github.com/habedi/pldl/db"
)

// repositoryStore adapts db.TokenRepository to CredentialStore.
type repositoryStore struct{ repo db.TokenRepository }

// NewRepositoryStore returns a CredentialStore backed by the SQLite token table.
func NewRepositoryStore(repo db.TokenRepository) CredentialStore {
	return &repositoryStore{repo: repo}
}

func (s *repositoryStore) Read(ctx context.Context) (*TokenRecord, error) {
	row, err := s.repo.Get(ctx)
	if err != nil || row == nil {
		return nil, err
	}
	return &TokenRecord{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		ExpiresAt:    row.ExpiresAt,
		TokenType:    row.TokenType,
	}, nil
}

func (s *repositoryStore) Write(ctx context.Context, rec TokenRecord) error {
	return s.repo.Upsert(ctx, &db.Token{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    rec.ExpiresAt,
		TokenType:    rec.TokenType,
	})
}

func (s *repositoryStore) Clear(ctx context.Context) error {
	return s.repo.Clear(ctx)
}

// MemoryStore keeps the record in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	rec *TokenRecord
}

// NewMemoryStore returns a store holding initial, which may be nil.
func NewMemoryStore(initial *TokenRecord) *MemoryStore {
	s := &MemoryStore{}
	if initial != nil {
		cp := *initial
		s.rec = &cp
	}
	return s
}

func (s *MemoryStore) Read(_ context.Context) (*TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec == nil {
		return nil, nil
	}
	cp := *s.rec
	return &cp, nil
}

func (s *MemoryStore) Write(_ context.Context, rec TokenRecord) error {
	s.mu.Lock()
	s.rec = &rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.rec = nil
	s.mu.Unlock()
	return nil
}
