package auth_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/habedi/pldl/auth"
)

// mockExchanger counts refresh exchanges and can hold them open until released.
type mockExchanger struct {
	calls    atomic.Int64
	started  chan struct{}
	release  chan struct{}
	once     sync.Once
	lifetime time.Duration
	rotate   bool
	err      error
	lastSeen atomic.Value
}

func newMockExchanger() *mockExchanger {
	return &mockExchanger{lifetime: time.Hour, rotate: true}
}

// blocking makes every exchange wait for unblock.
func (m *mockExchanger) blocking() *mockExchanger {
	m.started = make(chan struct{})
	m.release = make(chan struct{})
	return m
}

func (m *mockExchanger) unblock() { close(m.release) }

func (m *mockExchanger) RefreshToken(ctx context.Context, refreshToken string) (auth.TokenRecord, error) {
	n := m.calls.Add(1)
	m.lastSeen.Store(refreshToken)
	if m.started != nil {
		m.once.Do(func() { close(m.started) })
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return auth.TokenRecord{}, ctx.Err()
		}
	}
	if m.err != nil {
		return auth.TokenRecord{}, m.err
	}
	rec := auth.TokenRecord{
		AccessToken: fmt.Sprintf("access-%d", n),
		ExpiresAt:   time.Now().Add(m.lifetime).Unix(),
		TokenType:   "Bearer",
	}
	if m.rotate {
		rec.RefreshToken = fmt.Sprintf("refresh-%d", n)
	}
	return rec, nil
}

type mockCodeExchanger struct {
	rec   auth.TokenRecord
	err   error
	codes []string
}

func (m *mockCodeExchanger) ExchangeCode(_ context.Context, code string) (auth.TokenRecord, error) {
	m.codes = append(m.codes, code)
	return m.rec, m.err
}

// failingStore fails every operation.
type failingStore struct{}

var errStoreDown = errors.New("store unavailable")

func (failingStore) Read(context.Context) (*auth.TokenRecord, error) { return nil, errStoreDown }
func (failingStore) Write(context.Context, auth.TokenRecord) error    { return errStoreDown }
func (failingStore) Clear(context.Context) error                      { return errStoreDown }

func recordExpiringIn(d time.Duration) *auth.TokenRecord {
	return &auth.TokenRecord{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Add(d).Unix(),
		TokenType:    "Bearer",
	}
}
