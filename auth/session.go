package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Session wires the credential store, the refresh coordinator and the renewal loop together.
// It is the only auth type the commands talk to.
type Session struct {
	store       CredentialStore
	codes       CodeExchanger
	coordinator *Coordinator
	loop        *RenewalLoop

	lifecycle sync.Mutex // serializes loop start and stop
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSession builds a session. A non-positive interval uses DefaultRenewalInterval.
func NewSession(store CredentialStore, codes CodeExchanger, coordinator *Coordinator, interval time.Duration) *Session {
	loop := NewRenewalLoop(store, coordinator)
	if interval > 0 {
		loop.Interval = interval
	}
	s := &Session{
		store:       store,
		codes:       codes,
		coordinator: coordinator,
		loop:        loop,
	}
	coordinator.OnFailure(s.handleRefreshFailure)
	return s
}

// Loop exposes the renewal loop so callers can tune its clock.
func (s *Session) Loop() *RenewalLoop { return s.loop }

// Login exchanges an authorization code, stores the result and starts renewal.
func (s *Session) Login(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: authorization code is empty", ErrUnauthenticated)
	}

	rec, err := s.codes.ExchangeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if rec.AccessToken == "" {
		return fmt.Errorf("%w: code exchange returned no access token", ErrUnauthenticated)
	}
	if err := s.coordinator.Replace(ctx, rec); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	s.startLoop()
	log.Info().Time("expires_at", rec.Expiry()).Msg("Login was successful")
	return nil
}

// Resume starts renewal when credentials are already stored.
// It reports whether the session is authenticated.
func (s *Session) Resume(ctx context.Context) (bool, error) {
	rec, err := s.store.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read stored credentials: %w", err)
	}
	if rec == nil {
		return false, nil
	}
	s.startLoop()
	return true, nil
}

// Logout stops renewal and clears the stored credentials.
func (s *Session) Logout(ctx context.Context) error {
	s.stopLoop()
	if err := s.coordinator.Reset(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	log.Info().Msg("Logged out")
	return nil
}

// Close stops renewal and leaves the stored credentials in place.
func (s *Session) Close() {
	s.stopLoop()
}

// IsAuthenticated reports whether credentials are currently stored.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	rec, err := s.store.Read(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read stored credentials")
		return false
	}
	return rec != nil
}

// Current returns the stored record or ErrUnauthenticated.
func (s *Session) Current(ctx context.Context) (TokenRecord, error) {
	rec, err := s.store.Read(ctx)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("failed to read stored credentials: %w", err)
	}
	if rec == nil {
		return TokenRecord{}, ErrUnauthenticated
	}
	return *rec, nil
}

// TokenSource returns an oauth2.TokenSource that renews the token when it is due.
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, session: s}
}

func (s *Session) startLoop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLoopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.loop.Run(ctx)
	}()
}

func (s *Session) stopLoop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLoopLocked()
}

func (s *Session) stopLoopLocked() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// handleRefreshFailure may run on the loop goroutine, so it cancels without waiting.
func (s *Session) handleRefreshFailure(cause error) {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	log.Info().Err(cause).Msg("Session ended, login required")
}

type sessionTokenSource struct {
	ctx     context.Context
	session *Session
}

func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	rec, err := ts.session.Current(ts.ctx)
	if err != nil {
		return nil, err
	}
	if RenewalDue(rec, time.Now(), RenewalThreshold) {
		rec, err = ts.session.coordinator.RefreshStale(ts.ctx, rec.AccessToken)
		if err != nil {
			return nil, err
		}
	}
	if rec.AccessToken == "" {
		return nil, errors.New("stored token has no access token")
	}
	return rec.OAuth2(), nil
}
