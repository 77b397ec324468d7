package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the keyring service name entries are filed under.
	KeyringService = "pldl"
	// KeyringUser is the well-known key holding the serialized TokenRecord.
	KeyringUser = "spotify_token"
)

// KeyringStore keeps the record as JSON in the OS keyring.
type KeyringStore struct {
	Service string
	User    string
}

// NewKeyringStore returns a store using the default service and key.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{Service: KeyringService, User: KeyringUser}
}

func (s *KeyringStore) Read(_ context.Context) (*TokenRecord, error) {
	raw, err := keyring.Get(s.Service, s.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring entry: %w", err)
	}
	var rec TokenRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode keyring entry: %w", err)
	}
	return &rec, nil
}

func (s *KeyringStore) Write(_ context.Context, rec TokenRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := keyring.Set(s.Service, s.User, string(raw)); err != nil {
		return fmt.Errorf("failed to write keyring entry: %w", err)
	}
	return nil
}

func (s *KeyringStore) Clear(_ context.Context) error {
	err := keyring.Delete(s.Service, s.User)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keyring entry: %w", err)
	}
	return nil
}
