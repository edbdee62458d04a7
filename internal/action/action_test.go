package action

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/blentz/artifacts-goap/internal/actioncontext"
	"github.com/blentz/artifacts-goap/internal/gameapi"
	"github.com/blentz/artifacts-goap/internal/worldstate"
)

type fakeClient struct{ gameapi.Client }

func TestLoadDeclarations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "actions.yaml")
	contents := `
actions:
  move:
    conditions:
      character_status.cooldown_active: false
    reactions:
      location_context.at_target: true
    weight: 2
  attack:
    conditions:
      combat_context.status: ready
      location_context.at_target: true
    reactions:
      combat_context.status: completed
    weight: 1
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(nil)
	r.Register("move", func(ctx context.Context, api gameapi.Client, actx *actioncontext.Context) Result {
		return Result{Success: true}
	})
	if err := r.LoadDeclarations(path); err != nil {
		t.Fatal(err)
	}

	move := r.Lookup("move")
	if move == nil {
		t.Fatal("expected move action to be loaded")
	}
	if move.Weight != 2 {
		t.Fatalf("expected weight 2, got %v", move.Weight)
	}
	if move.Effects[worldstate.LocationAtTarget] != true {
		t.Fatalf("expected at_target effect true, got %v", move.Effects[worldstate.LocationAtTarget])
	}

	attack := r.Lookup("attack")
	if attack == nil || attack.Handler != nil {
		t.Fatal("attack should be declared with no handler registered")
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	r := NewRegistry(nil)
	result := r.Execute(context.Background(), "nope", fakeClient{}, actioncontext.New())
	if result.Success || result.Error == nil || result.Error.Kind != ErrorInvalid {
		t.Fatalf("expected invalid error for unknown action, got %+v", result)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("boom", func(ctx context.Context, api gameapi.Client, actx *actioncontext.Context) Result {
		panic("handler exploded")
	})
	result := r.Execute(context.Background(), "boom", fakeClient{}, actioncontext.New())
	if result.Success || result.Error == nil || result.Error.Kind != ErrorException {
		t.Fatalf("expected exception error from recovered panic, got %+v", result)
	}
}

func TestExecuteRespectsCancellation(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("noop", func(ctx context.Context, api gameapi.Client, actx *actioncontext.Context) Result {
		return Result{Success: true}
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := r.Execute(ctx, "noop", fakeClient{}, actioncontext.New())
	if result.Success || result.Error == nil || result.Error.Kind != ErrorCancelled {
		t.Fatalf("expected cancelled error, got %+v", result)
	}
}

func TestClassifyAPIErrorCooldownIsRetriable(t *testing.T) {
	err := ClassifyAPIError(&gameapi.APIError{Kind: gameapi.ErrorCooldown, Message: "on cooldown"})
	if err.Kind != ErrorCooldown || !err.IsCooldown || !err.Retriable {
		t.Fatalf("unexpected classification: %+v", err)
	}
}
