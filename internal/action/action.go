// Package action implements the action contract and registry of spec.md
// §4.4: declarative preconditions/effects/weight loaded from actions.yaml,
// paired at runtime with named Go handler functions, and dispatched through
// a single Execute entry point that centralizes logging, timing, panic
// recovery and cooldown classification. The registry's lookup/resolve shape
// is grounded on the teacher's internal/workflow.Registry.
package action

import (
	"context"
	"time"

	"github.com/blentz/artifacts-goap/internal/actioncontext"
	"github.com/blentz/artifacts-goap/internal/gameapi"
	"github.com/blentz/artifacts-goap/internal/worldstate"
)

// ErrorKind classifies an ActionResult's failure per spec.md §7.
type ErrorKind string

const (
	ErrorCooldown     ErrorKind = "cooldown"
	ErrorPrecondition ErrorKind = "precondition"
	ErrorTransport    ErrorKind = "transport"
	ErrorInvalid      ErrorKind = "invalid"
	ErrorException    ErrorKind = "exception"
	ErrorCancelled    ErrorKind = "cancelled"
)

// Error describes a failed ActionResult.
type Error struct {
	Kind       ErrorKind
	Message    string
	Retriable  bool
	IsCooldown bool
}

func (e *Error) Error() string { return e.Message }

// SubgoalRequest asks the execution manager to plan and run a nested goal
// before resuming the current plan (spec.md §3, §4.6).
type SubgoalRequest struct {
	GoalName     string
	Parameters   map[string]any
	PreserveKeys []worldstate.StateParameter
}

// Result is the outcome of dispatching one action (spec.md §3).
type Result struct {
	Success   bool
	Data      worldstate.WorldState // observed effects, merged over declared effects
	Error     *Error
	Subgoal   *SubgoalRequest
	StartedAt time.Time
	Duration  time.Duration
}

// Handler is the per-action business logic. It must be idempotent with
// respect to its declared effects (safe to retry after a cooldown wait),
// must not mutate state it does not own, and may request a subgoal instead
// of nesting its own planner call (spec.md §4.4).
type Handler func(ctx context.Context, api gameapi.Client, actx *actioncontext.Context) Result

// Action is one entry in the registry: declared preconditions/effects/weight
// paired with a handler.
type Action struct {
	Name          string
	Preconditions worldstate.WorldState
	Effects       worldstate.WorldState
	Weight        float64
	Handler       Handler
}
