package action

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blentz/artifacts-goap/internal/actioncontext"
	"github.com/blentz/artifacts-goap/internal/gameapi"
)

// Registry holds every registered action and exposes lookup plus a single
// Execute entry point the execution manager calls, exactly mirroring the
// teacher's internal/workflow.Registry (Get/Default/Resolve) shape but for
// actions instead of pipeline stages.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*Action
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{actions: make(map[string]*Action), logger: logger}
}

// Register adds or replaces an action's handler. Declarations (conditions,
// reactions, weight) are applied separately by LoadDeclarations so that
// actions.yaml can be hot-reloaded without re-registering Go handlers.
func (r *Registry) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.actions[name]
	if !ok {
		existing = &Action{Name: name}
		r.actions[name] = existing
	}
	existing.Handler = handler
}

// Lookup returns the named action, or nil if it isn't registered.
func (r *Registry) Lookup(name string) *Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actions[name]
}

// All returns every registered action, for the planner's search space.
func (r *Registry) All() []*Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Action, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a)
	}
	return out
}

// Execute dispatches the named action, centralizing start/end logging,
// timing, panic recovery and cooldown classification (spec.md §4.4).
func (r *Registry) Execute(ctx context.Context, name string, api gameapi.Client, actx *actioncontext.Context) (result Result) {
	a := r.Lookup(name)
	if a == nil || a.Handler == nil {
		return Result{Success: false, Error: &Error{Kind: ErrorInvalid, Message: fmt.Sprintf("action %q has no registered handler", name)}}
	}

	started := time.Now()
	r.logger.Debug("action started", "action", name)

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("action panicked", "action", name, "panic", rec)
			result = Result{
				Success: false,
				Error:   &Error{Kind: ErrorException, Message: fmt.Sprintf("panic: %v", rec)},
			}
		}
		result.StartedAt = started
		result.Duration = time.Since(started)

		if result.Success {
			r.logger.Info("action completed", "action", name, "duration", result.Duration)
		} else if result.Error != nil {
			level := slog.LevelWarn
			if result.Error.Kind == ErrorException || result.Error.Kind == ErrorInvalid {
				level = slog.LevelError
			}
			r.logger.Log(ctx, level, "action failed", "action", name, "error_kind", result.Error.Kind, "message", result.Error.Message, "duration", result.Duration)
		}
	}()

	if ctx.Err() != nil {
		return Result{Success: false, Error: &Error{Kind: ErrorCancelled, Message: ctx.Err().Error()}}
	}

	res := a.Handler(ctx, api, actx)
	if res.Error != nil {
		res.Error.Kind = classifyError(res.Error)
	}
	return res
}

// classifyError normalizes an ErrorKind against the IsCooldown flag set by
// the handler: if the handler marked the failure as a cooldown error, the
// kind is forced to ErrorCooldown regardless of what it initially reported,
// matching spec.md §7's taxonomy.
func classifyError(e *Error) ErrorKind {
	if e.IsCooldown {
		return ErrorCooldown
	}
	if e.Kind == "" {
		return ErrorInvalid
	}
	return e.Kind
}

// ClassifyAPIError converts a gameapi error into an action Error, the glue
// every handler uses at its single API call site instead of re-implementing
// substring classification.
func ClassifyAPIError(err error) *Error {
	if err == nil {
		return nil
	}
	switch gameapi.Classify(err) {
	case gameapi.ErrorCooldown:
		return &Error{Kind: ErrorCooldown, Message: err.Error(), Retriable: true, IsCooldown: true}
	case gameapi.ErrorNotFound, gameapi.ErrorInvalidState, gameapi.ErrorForbidden:
		return &Error{Kind: ErrorPrecondition, Message: err.Error(), Retriable: false}
	case gameapi.ErrorTransport:
		return &Error{Kind: ErrorTransport, Message: err.Error(), Retriable: true}
	default:
		return &Error{Kind: ErrorInvalid, Message: err.Error()}
	}
}
