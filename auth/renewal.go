package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRenewalInterval is how often the renewal loop checks the stored token.
const DefaultRenewalInterval = 60 * time.Second

// RenewalLoop refreshes the stored token before it expires.
type RenewalLoop struct {
	Store     CredentialStore
	Refresher Refresher
	Interval  time.Duration
	Threshold time.Duration
	Now       func() time.Time
}

// NewRenewalLoop returns a loop with the default interval and threshold.
func NewRenewalLoop(store CredentialStore, refresher Refresher) *RenewalLoop {
	return &RenewalLoop{
		Store:     store,
		Refresher: refresher,
		Interval:  DefaultRenewalInterval,
		Threshold: RenewalThreshold,
		Now:       time.Now,
	}
}

// Run checks immediately and then once per interval until ctx is done.
func (l *RenewalLoop) Run(ctx context.Context) {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultRenewalInterval
	}

	l.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Renewal loop stopped")
			return
		case <-ticker.C:
			l.Check(ctx)
		}
	}
}

// Check refreshes the stored token if renewal is due.
// It reports whether a refresh was attempted.
func (l *RenewalLoop) Check(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	rec, err := l.Store.Read(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Renewal check could not read credentials")
		return false
	}
	if rec == nil {
		return false
	}

	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	threshold := l.Threshold
	if threshold <= 0 {
		threshold = RenewalThreshold
	}
	if !RenewalDue(*rec, now, threshold) {
		log.Debug().Int64("remaining", RemainingSeconds(*rec, now)).Msg("Token still valid")
		return false
	}

	if _, err := l.Refresher.RefreshStale(ctx, rec.AccessToken); err != nil {
		log.Warn().Err(err).Msg("Proactive token renewal failed")
	}
	return true
}
