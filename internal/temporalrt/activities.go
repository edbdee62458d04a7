// Package temporalrt runs a simplified Mission Executor loop of its own
// (reusing internal/mission's Params, not its Executor) inside a Temporal
// workflow, a durable alternative to cmd/agent's
// in-process supervising loop. Planning and goal selection are pure
// functions and run inline in the workflow; every call that touches the
// game API crosses the activity boundary so a worker restart replays from
// the last recorded event instead of losing mission progress. Grounded on
// the teacher's internal/temporal package (planning_workflow.go,
// activities.go, worker.go) — the ActivityOptions/RetryPolicy shape and the
// worker.New/RegisterWorkflow/RegisterActivity wiring are carried over
// unchanged; only the workflow body is domain-specific.
package temporalrt

import (
	"context"
	"fmt"

	"github.com/blentz/artifacts-goap/internal/action"
	"github.com/blentz/artifacts-goap/internal/actioncontext"
	"github.com/blentz/artifacts-goap/internal/gameapi"
	"github.com/blentz/artifacts-goap/internal/worldstate"
)

// Activities bundles the non-deterministic collaborators a workflow may not
// call directly: the game API client and the action registry that dispatches
// to it. A *Activities with a nil receiver is a valid activity reference for
// workflow.ExecuteActivity — only the method's name is resolved at workflow
// build time; the call itself always runs against the instance the worker
// registered.
type Activities struct {
	API       gameapi.Client
	Character string
	Registry  *action.Registry
}

// DispatchActionInput carries one plan step's name and the scratch values an
// ActionContext would hold, serialized as plain data since workflow state
// must cross the activity boundary as JSON.
type DispatchActionInput struct {
	ActionName string
	Context    map[worldstate.StateParameter]any
}

// DispatchActionOutput is DispatchActionInput's result: the same fields
// action.Result carries, flattened into JSON-friendly types, plus whatever
// the handler wrote into the action context via SetResult.
type DispatchActionOutput struct {
	Success      bool
	Data         worldstate.WorldState
	ContextAfter map[worldstate.StateParameter]any
	ErrorKind    string
	ErrorMessage string
	Subgoal      *action.SubgoalRequest
}

// DispatchActionActivity runs one named action against the live game API.
func (a *Activities) DispatchActionActivity(ctx context.Context, in DispatchActionInput) (DispatchActionOutput, error) {
	if a.Registry.Lookup(in.ActionName) == nil {
		return DispatchActionOutput{}, fmt.Errorf("temporalrt: unknown action %q", in.ActionName)
	}

	actx := actioncontext.New()
	for k, v := range in.Context {
		actx.Set(k, v)
	}

	result := a.Registry.Execute(ctx, in.ActionName, a.API, actx)

	out := DispatchActionOutput{
		Success:      result.Success,
		Data:         result.Data,
		ContextAfter: actx.Snapshot(),
		Subgoal:      result.Subgoal,
	}
	if result.Error != nil {
		out.ErrorKind = string(result.Error.Kind)
		out.ErrorMessage = result.Error.Message
	}
	return out, nil
}

// RefreshCharacterActivity fetches the character's current state, used to
// detect cooldowns and progression the same way cmd/agent's in-process loop
// does via execution.CharacterRefresher.
func (a *Activities) RefreshCharacterActivity(ctx context.Context) (gameapi.CharacterResponse, error) {
	return a.API.GetCharacter(ctx, a.Character)
}
