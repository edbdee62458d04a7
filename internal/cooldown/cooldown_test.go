package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/blentz/artifacts-goap/internal/gameapi"
)

func TestIsOnCooldownPrefersExpirationOverLegacySeconds(t *testing.T) {
	now := time.Now()

	// Scenario 3 (spec.md §8): expired cooldown_expiration with a stale
	// legacy cooldown seconds field still present must report false.
	resp := gameapi.CharacterResponse{
		CooldownExpiration: now.Add(-10 * time.Second),
		CooldownSeconds:    24,
	}
	if IsOnCooldown(resp, now) {
		t.Fatal("expected expired cooldown_expiration to take precedence over stale legacy seconds")
	}
}

func TestIsOnCooldownExpirationInFuture(t *testing.T) {
	now := time.Now()
	resp := gameapi.CharacterResponse{CooldownExpiration: now.Add(5 * time.Second)}
	if !IsOnCooldown(resp, now) {
		t.Fatal("expected future expiration to report on cooldown")
	}
}

func TestIsOnCooldownLegacyFieldUsedWhenExpirationAbsent(t *testing.T) {
	now := time.Now()
	resp := gameapi.CharacterResponse{CooldownSeconds: 3}
	if !IsOnCooldown(resp, now) {
		t.Fatal("expected legacy seconds field to be consulted when expiration is zero")
	}
	if IsOnCooldown(gameapi.CharacterResponse{}, now) {
		t.Fatal("expected no cooldown fields to report false")
	}
}

func TestWaitDurationClamps(t *testing.T) {
	now := time.Now()

	tooShort := gameapi.CharacterResponse{CooldownExpiration: now.Add(100 * time.Millisecond)}
	if got := WaitDuration(tooShort, now, time.Second, time.Minute); got != time.Second {
		t.Fatalf("expected clamp to min wait, got %v", got)
	}

	tooLong := gameapi.CharacterResponse{CooldownExpiration: now.Add(time.Hour)}
	if got := WaitDuration(tooLong, now, time.Second, time.Minute); got != time.Minute {
		t.Fatalf("expected clamp to max wait, got %v", got)
	}

	notOnCooldown := gameapi.CharacterResponse{}
	if got := WaitDuration(notOnCooldown, now, time.Second, time.Minute); got != 0 {
		t.Fatalf("expected zero wait when not on cooldown, got %v", got)
	}
}

func TestHandleCooldownWithWaitRefreshesAfterWait(t *testing.T) {
	m := NewManager(nil, WithWaitBounds(time.Millisecond, time.Millisecond))
	m.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	onCooldown := gameapi.CharacterResponse{CooldownExpiration: time.Now().Add(time.Millisecond)}
	refreshed := gameapi.CharacterResponse{Character: gameapi.Character{Name: "refreshed"}}

	calls := 0
	refresh := func(ctx context.Context) (gameapi.CharacterResponse, error) {
		calls++
		return refreshed, nil
	}

	got, waited, err := m.HandleCooldownWithWait(context.Background(), onCooldown, refresh)
	if err != nil {
		t.Fatal(err)
	}
	if !waited {
		t.Fatal("expected HandleCooldownWithWait to report it waited")
	}
	if calls != 1 {
		t.Fatalf("expected refresh to be called once, got %d", calls)
	}
	if got.Character.Name != "refreshed" {
		t.Fatalf("expected refreshed character, got %+v", got)
	}
}

func TestHandleCooldownWithWaitSkipsWaitWhenNotOnCooldown(t *testing.T) {
	m := NewManager(nil)
	calls := 0
	refresh := func(ctx context.Context) (gameapi.CharacterResponse, error) {
		calls++
		return gameapi.CharacterResponse{}, nil
	}
	_, waited, err := m.HandleCooldownWithWait(context.Background(), gameapi.CharacterResponse{}, refresh)
	if err != nil {
		t.Fatal(err)
	}
	if waited {
		t.Fatal("expected no wait when character is not on cooldown")
	}
	if calls != 0 {
		t.Fatalf("expected no refresh call, got %d", calls)
	}
}

func TestHandleCooldownWithWaitPropagatesCancellation(t *testing.T) {
	m := NewManager(nil, WithWaitBounds(time.Hour, time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	onCooldown := gameapi.CharacterResponse{CooldownExpiration: time.Now().Add(time.Hour)}
	_, _, err := m.HandleCooldownWithWait(ctx, onCooldown, func(context.Context) (gameapi.CharacterResponse, error) {
		t.Fatal("refresh should not be called when wait is cancelled")
		return gameapi.CharacterResponse{}, nil
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
