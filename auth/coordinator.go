package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	refreshKey = "refresh"

	// DefaultRefreshTimeout bounds a single refresh exchange.
	DefaultRefreshTimeout = 30 * time.Second
)

// Coordinator runs the refresh exchange at most once at a time.
// Concurrent callers of Refresh share the outcome of the exchange in flight.
type Coordinator struct {
	store     CredentialStore
	exchanger TokenExchanger
	group     singleflight.Group

	// Timeout bounds each exchange. Zero means DefaultRefreshTimeout.
	Timeout time.Duration

	mu        sync.Mutex
	epoch     uint64 // bumped by Replace and Reset
	onFailure func(error)
}

// NewCoordinator is the constructor for the refresh coordinator.
func NewCoordinator(store CredentialStore, exchanger TokenExchanger) *Coordinator {
	return &Coordinator{
		store:     store,
		exchanger: exchanger,
		Timeout:   DefaultRefreshTimeout,
	}
}

// OnFailure registers fn to be called after a failed refresh has cleared the store.
func (c *Coordinator) OnFailure(fn func(error)) {
	c.mu.Lock()
	c.onFailure = fn
	c.mu.Unlock()
}

// Refresh exchanges the stored refresh token for a new record and stores it.
// On failure the store is cleared and the error wraps ErrRefreshFailed.
// A caller whose ctx ends stops waiting; the shared exchange keeps running for the others.
func (c *Coordinator) Refresh(ctx context.Context) (TokenRecord, error) {
	return c.wait(ctx, c.start(ctx))
}

// RefreshStale refreshes only if the store still holds the access token stale.
// If another exchange already replaced it, the stored record is returned without a new exchange.
// An empty store yields ErrUnauthenticated.
func (c *Coordinator) RefreshStale(ctx context.Context, stale string) (TokenRecord, error) {
	c.mu.Lock()
	current, err := c.store.Read(ctx)
	switch {
	case err != nil:
		// The exchange reads the store again and reports the failure.
	case current == nil:
		c.mu.Unlock()
		return TokenRecord{}, fmt.Errorf("%w: no stored credentials", ErrUnauthenticated)
	case current.AccessToken != "" && current.AccessToken != stale:
		c.mu.Unlock()
		log.Debug().Msg("Token already renewed, skipping refresh")
		return *current, nil
	}
	// Joining under mu keeps an exchange from storing its result between the check and the join.
	ch := c.start(ctx)
	c.mu.Unlock()
	return c.wait(ctx, ch)
}

func (c *Coordinator) start(ctx context.Context) <-chan singleflight.Result {
	return c.group.DoChan(refreshKey, func() (interface{}, error) {
		return c.exchange(context.WithoutCancel(ctx))
	})
}

func (c *Coordinator) wait(ctx context.Context, ch <-chan singleflight.Result) (TokenRecord, error) {
	select {
	case res := <-ch:
		if res.Err != nil {
			return TokenRecord{}, res.Err
		}
		log.Debug().Bool("shared", res.Shared).Msg("Refresh result delivered")
		return res.Val.(TokenRecord), nil
	case <-ctx.Done():
		return TokenRecord{}, ctx.Err()
	}
}

// Replace stores rec and discards the result of any exchange still in flight.
func (c *Coordinator) Replace(ctx context.Context, rec TokenRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	return c.store.Write(ctx, rec)
}

// Reset clears the store and discards the result of any exchange still in flight.
func (c *Coordinator) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	return c.store.Clear(ctx)
}

func (c *Coordinator) exchange(parent context.Context) (TokenRecord, error) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	current, err := c.store.Read(ctx)
	if err != nil {
		return c.fail(parent, epoch, fmt.Errorf("failed to read stored credentials: %w", err))
	}
	if current == nil || current.RefreshToken == "" {
		return c.fail(parent, epoch, errors.New("no refresh token available"))
	}

	log.Info().Msg("Refreshing access token...")
	next, err := c.exchanger.RefreshToken(ctx, current.RefreshToken)
	if err != nil {
		return c.fail(parent, epoch, err)
	}
	if next.AccessToken == "" {
		return c.fail(parent, epoch, errors.New("refresh response carried no access token"))
	}
	// Providers that do not rotate refresh tokens omit them from the response.
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	if next.TokenType == "" {
		next.TokenType = current.TokenType
	}

	c.mu.Lock()
	if c.epoch != epoch {
		defer c.mu.Unlock()
		log.Info().Msg("Credentials changed during refresh, discarding result")
		return c.superseded(ctx)
	}
	err = c.store.Write(ctx, next)
	c.mu.Unlock()
	if err != nil {
		return c.fail(parent, epoch, fmt.Errorf("failed to save refreshed token: %w", err))
	}
	log.Info().Int64("expires_in", RemainingSeconds(next, time.Now())).Msg("Token refreshed and saved successfully.")
	return next, nil
}

func (c *Coordinator) fail(ctx context.Context, epoch uint64, cause error) (TokenRecord, error) {
	c.mu.Lock()
	if c.epoch != epoch {
		defer c.mu.Unlock()
		log.Info().Err(cause).Msg("Refresh failed for replaced credentials, keeping current ones")
		return c.superseded(ctx)
	}
	if err := c.store.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to clear credentials after refresh failure")
	}
	hook := c.onFailure
	c.mu.Unlock()

	log.Warn().Err(cause).Msg("Token refresh failed, credentials cleared")
	if hook != nil {
		hook(cause)
	}
	return TokenRecord{}, fmt.Errorf("%w: %w", ErrRefreshFailed, cause)
}

// superseded is the outcome of an exchange whose credentials a login or logout replaced
// while it ran: the record stored now, or ErrUnauthenticated after a logout.
// c.mu must be held.
func (c *Coordinator) superseded(ctx context.Context) (TokenRecord, error) {
	rec, err := c.store.Read(ctx)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("failed to read replaced credentials: %w", err)
	}
	if rec == nil || rec.AccessToken == "" {
		return TokenRecord{}, fmt.Errorf("%w: logged out during refresh", ErrUnauthenticated)
	}
	return *rec, nil
}
