// Package cooldown implements the Cooldown Manager of spec.md §4.9: cooldown
// detection that prefers the authoritative expiration timestamp over the
// legacy numeric seconds field, clamped wait-duration computation, and a
// wait-then-refresh helper the Execution Manager calls before retrying a
// cooldown-classified step.
package cooldown

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/blentz/artifacts-goap/internal/gameapi"
)

// DefaultMinWait and DefaultMaxWait bound the synthesized wait duration so a
// clock skew or malformed expiration can't stall or spin the mission loop.
const (
	DefaultMinWait = 1 * time.Second
	DefaultMaxWait = 2 * time.Minute
)

// IsOnCooldown reports whether resp is on cooldown as of now.
// CooldownExpiration takes precedence when present (non-zero); the legacy
// CooldownSeconds field is consulted only when CooldownExpiration is zero,
// fixing the stale-seconds bug spec.md §4.9 calls out by name: a character
// that finished its cooldown minutes ago must never be reported as still
// cooling down just because a cached seconds-remaining value was never
// cleared.
func IsOnCooldown(resp gameapi.CharacterResponse, now time.Time) bool {
	if !resp.CooldownExpiration.IsZero() {
		return resp.CooldownExpiration.After(now)
	}
	return resp.CooldownSeconds > 0
}

// WaitDuration returns how long to wait before resp's cooldown clears,
// clamped to [minWait, maxWait]. If resp is not on cooldown it returns 0.
func WaitDuration(resp gameapi.CharacterResponse, now time.Time, minWait, maxWait time.Duration) time.Duration {
	if !IsOnCooldown(resp, now) {
		return 0
	}
	var d time.Duration
	if !resp.CooldownExpiration.IsZero() {
		d = resp.CooldownExpiration.Sub(now)
	} else {
		d = time.Duration(resp.CooldownSeconds) * time.Second
	}
	if d < minWait {
		d = minWait
	}
	if d > maxWait {
		d = maxWait
	}
	return d
}

// Manager tracks nothing beyond a last-refresh timestamp used to throttle
// character refreshes after a wait (spec.md §4.9 "keeps no mutable state
// beyond a last-refresh timestamp").
type Manager struct {
	mu             sync.Mutex
	lastRefresh    time.Time
	minWait        time.Duration
	maxWait        time.Duration
	refreshThrottle time.Duration
	logger         *slog.Logger
	sleep          func(context.Context, time.Duration) error
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithWaitBounds overrides the default [minWait, maxWait] clamp.
func WithWaitBounds(minWait, maxWait time.Duration) Option {
	return func(m *Manager) { m.minWait, m.maxWait = minWait, maxWait }
}

// WithRefreshThrottle sets the minimum interval between character refreshes
// triggered by HandleCooldownWithWait; zero disables throttling.
func WithRefreshThrottle(d time.Duration) Option {
	return func(m *Manager) { m.refreshThrottle = d }
}

// NewManager builds a Manager with the spec's default wait bounds.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		minWait: DefaultMinWait,
		maxWait: DefaultMaxWait,
		logger:  logger,
		sleep:   contextSleep,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleCooldownWithWait waits out resp's cooldown (clamped, cancellable via
// ctx), then calls refresh to fetch the post-cooldown character state. It
// returns false without waiting if resp is not on cooldown, and false if the
// wait was cancelled.
func (m *Manager) HandleCooldownWithWait(ctx context.Context, resp gameapi.CharacterResponse, refresh func(context.Context) (gameapi.CharacterResponse, error)) (gameapi.CharacterResponse, bool, error) {
	now := time.Now()
	if !IsOnCooldown(resp, now) {
		return resp, false, nil
	}

	wait := WaitDuration(resp, now, m.minWait, m.maxWait)
	m.logger.Info("waiting out cooldown", "duration", wait)

	if err := m.sleep(ctx, wait); err != nil {
		return resp, false, err
	}

	if !m.shouldRefresh() {
		return resp, true, nil
	}

	refreshed, err := refresh(ctx)
	if err != nil {
		return resp, true, err
	}
	m.markRefreshed()
	return refreshed, true, nil
}

func (m *Manager) shouldRefresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refreshThrottle <= 0 {
		return true
	}
	return time.Since(m.lastRefresh) >= m.refreshThrottle
}

func (m *Manager) markRefreshed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRefresh = time.Now()
}
