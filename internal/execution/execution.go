// Package execution implements the Execution Manager of spec.md §4.6: runs
// a GOAP plan step by step with cooldown-aware dispatch, selective
// replanning when a discovered fact invalidates an upcoming step, and
// subgoal suspend/resume. The retry/backoff shape for transport failures is
// grounded on the teacher's internal/dispatch retry policy.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/blentz/artifacts-goap/internal/action"
	"github.com/blentz/artifacts-goap/internal/actioncontext"
	"github.com/blentz/artifacts-goap/internal/cooldown"
	"github.com/blentz/artifacts-goap/internal/gameapi"
	"github.com/blentz/artifacts-goap/internal/goap"
	"github.com/blentz/artifacts-goap/internal/worldstate"
)

// DefaultMaxReplans bounds selective replans per plan (spec.md §4.6).
const DefaultMaxReplans = 3

// DefaultMaxTransportRetries bounds local retries of a transport-classified
// failure before it surfaces to the caller (spec.md §7).
const DefaultMaxTransportRetries = 2

// GoalResolver builds the target partial state for a named subgoal, the
// same substitution the Goal Manager performs for top-level goals
// (spec.md §4.7). The Execution Manager does not own goal templates; the
// Mission Executor wires its Goal Manager in here.
type GoalResolver func(ctx context.Context, goalName string, parameters map[string]any, state worldstate.WorldState) (worldstate.WorldState, error)

// CharacterRefresher fetches the character's current cooldown status.
type CharacterRefresher func(ctx context.Context) (gameapi.CharacterResponse, error)

// Manager runs plans against a live worldstate.Store.
type Manager struct {
	Registry            *action.Registry
	Cooldown            *cooldown.Manager
	Logger              *slog.Logger
	MaxReplans          int
	MaxTransportRetries int
}

// NewManager builds a Manager with spec.md's default bounds.
func NewManager(registry *action.Registry, cooldownMgr *cooldown.Manager, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		Registry:            registry,
		Cooldown:            cooldownMgr,
		Logger:              logger,
		MaxReplans:          DefaultMaxReplans,
		MaxTransportRetries: DefaultMaxTransportRetries,
	}
}

// Result is the outcome of running a plan (or subplan) to completion.
type Result struct {
	Success bool
	Error   *action.Error
	Replans int
}

// Run executes plan against store's live state toward goal, dispatching
// through api, threading actx through every action, and calling resolve to
// build subgoal target states on demand.
func (m *Manager) Run(ctx context.Context, plan goap.Plan, store *worldstate.Store, actx *actioncontext.Context, api gameapi.Client, goal worldstate.WorldState, actions []*action.Action, refresh CharacterRefresher, resolve GoalResolver) Result {
	return m.runSteps(ctx, plan.Steps, store, actx, api, goal, actions, refresh, resolve, 0)
}

func (m *Manager) runSteps(ctx context.Context, steps []goap.Step, store *worldstate.Store, actx *actioncontext.Context, api gameapi.Client, goal worldstate.WorldState, actions []*action.Action, refresh CharacterRefresher, resolve GoalResolver, replansSoFar int) Result {
	idx := 0
	replans := replansSoFar
	cooldownRetried := false
	transportRetries := 0

	for idx < len(steps) {
		if ctx.Err() != nil {
			return Result{Success: false, Error: &action.Error{Kind: action.ErrorCancelled, Message: ctx.Err().Error()}, Replans: replans}
		}

		step := steps[idx]
		a := m.Registry.Lookup(step.ActionName)
		if a == nil {
			return Result{Success: false, Error: &action.Error{Kind: action.ErrorInvalid, Message: fmt.Sprintf("unknown action %q in plan", step.ActionName)}, Replans: replans}
		}

		live := store.Snapshot()
		if !worldstate.Matches(live, a.Preconditions) {
			replanned, ok := m.replan(store.Snapshot(), goal, actions, &replans)
			if !ok {
				return Result{Success: false, Error: &action.Error{Kind: action.ErrorPrecondition, Message: "no plan satisfies goal after precondition invalidation"}, Replans: replans}
			}
			steps = replanned.Steps
			idx = 0
			cooldownRetried = false
			transportRetries = 0
			continue
		}

		if waited, err := m.waitOutCooldown(ctx, refresh); err != nil {
			return Result{Success: false, Error: &action.Error{Kind: action.ErrorCancelled, Message: err.Error()}, Replans: replans}
		} else if waited {
			continue
		}

		res := m.Registry.Execute(ctx, step.ActionName, api, actx)

		if ctx.Err() != nil {
			return Result{Success: false, Error: &action.Error{Kind: action.ErrorCancelled, Message: ctx.Err().Error()}, Replans: replans}
		}

		if res.Success {
			merged := worldstate.Merge(a.Effects, res.Data) // observed data wins over declared effects
			store.Merge(merged)
			cooldownRetried = false
			transportRetries = 0

			if res.Subgoal != nil {
				tail := append([]goap.Step(nil), steps[idx+1:]...)
				actx.Preserve(res.Subgoal.PreserveKeys)

				subState := store.Snapshot()
				subGoal, err := resolve(ctx, res.Subgoal.GoalName, res.Subgoal.Parameters, subState)
				if err != nil {
					return Result{Success: false, Error: &action.Error{Kind: action.ErrorInvalid, Message: fmt.Sprintf("resolving subgoal %q: %v", res.Subgoal.GoalName, err)}, Replans: replans}
				}
				subResult := goap.Search(subState, subGoal, actions, goap.Options{})
				if subResult.Plan == nil {
					return Result{Success: false, Error: &action.Error{Kind: action.ErrorPrecondition, Message: fmt.Sprintf("no plan for subgoal %q: %s", res.Subgoal.GoalName, subResult.Reason)}, Replans: replans}
				}

				sub := m.runSteps(ctx, subResult.Plan.Steps, store, actx, api, subGoal, actions, refresh, resolve, replans)
				replans = sub.Replans
				if !sub.Success {
					return sub
				}

				steps = tail
				idx = 0
				continue
			}

			idx++
			continue
		}

		// failure
		switch res.Error.Kind {
		case action.ErrorCooldown:
			if cooldownRetried {
				return Result{Success: false, Error: res.Error, Replans: replans}
			}
			cooldownRetried = true
			if _, err := m.waitOutCooldown(ctx, refresh); err != nil {
				return Result{Success: false, Error: &action.Error{Kind: action.ErrorCancelled, Message: err.Error()}, Replans: replans}
			}
			continue

		case action.ErrorPrecondition:
			replanned, ok := m.replan(store.Snapshot(), goal, actions, &replans)
			if !ok {
				return Result{Success: false, Error: res.Error, Replans: replans}
			}
			steps = replanned.Steps
			idx = 0
			cooldownRetried = false
			transportRetries = 0
			continue

		case action.ErrorTransport:
			if transportRetries >= m.MaxTransportRetries {
				return Result{Success: false, Error: res.Error, Replans: replans}
			}
			transportRetries++
			m.sleepBackoff(ctx, transportRetries)
			continue

		default: // invalid, exception, cancelled
			return Result{Success: false, Error: res.Error, Replans: replans}
		}
	}

	return Result{Success: true, Replans: replans}
}

// replan searches from state toward goal, bumping *replans and refusing once
// MaxReplans is exceeded (spec.md §4.6 "bound the number of replans per plan
// to prevent loops").
func (m *Manager) replan(state, goal worldstate.WorldState, actions []*action.Action, replans *int) (*goap.Plan, bool) {
	if *replans >= m.MaxReplans {
		return nil, false
	}
	*replans++
	result := goap.Search(state, goal, actions, goap.Options{})
	if result.Plan == nil {
		return nil, false
	}
	return result.Plan, true
}

// waitOutCooldown refreshes the character and, if on cooldown, waits it out.
// It reports whether a wait occurred.
func (m *Manager) waitOutCooldown(ctx context.Context, refresh CharacterRefresher) (bool, error) {
	if refresh == nil || m.Cooldown == nil {
		return false, nil
	}
	current, err := refresh(ctx)
	if err != nil {
		return false, nil // refresh failures are not fatal here; the next dispatch will surface the transport error
	}
	_, waited, err := m.Cooldown.HandleCooldownWithWait(ctx, current, refresh)
	if err != nil {
		return false, err
	}
	return waited, nil
}

func (m *Manager) sleepBackoff(ctx context.Context, attempt int) {
	base := 500 * time.Millisecond
	max := 10 * time.Second
	backoff := float64(base) * math.Pow(2, float64(attempt-1))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	jitter := 1.0 + rand.Float64()*0.1
	d := time.Duration(backoff * jitter)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
