package temporalrt

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/blentz/artifacts-goap/internal/action"
	"github.com/blentz/artifacts-goap/internal/cooldown"
	"github.com/blentz/artifacts-goap/internal/gameapi"
	"github.com/blentz/artifacts-goap/internal/goal"
	"github.com/blentz/artifacts-goap/internal/goap"
	"github.com/blentz/artifacts-goap/internal/health"
	"github.com/blentz/artifacts-goap/internal/mission"
	"github.com/blentz/artifacts-goap/internal/worldstate"
)

// MissionParams is mission.Params plus the file paths the workflow loads its
// own Goal Manager and Action Registry from; a workflow cannot share
// in-memory state with the worker process that started it, so the templates
// and declarations it needs are reloaded from disk at workflow start.
type MissionParams struct {
	mission.Params
	GoalTemplatesPath string
	ActionsPath       string
}

var defaultActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 30 * time.Second,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    30 * time.Second,
		MaximumAttempts:    5,
	},
}

// goalState tracks the workflow's current goal across loop iterations, a
// durable-execution analogue of mission.Executor's private goalState.
type goalState struct {
	name           string
	tmpl           goal.Template
	strategy       goal.Strategy
	startLevel     int
	iterationCount int
}

// MissionWorkflow runs a simplified Mission Executor loop durably: goal
// selection (internal/goal) and GOAP search (internal/goap) are pure
// functions and run inline in workflow code, while every action dispatch and
// character refresh is a Temporal Activity, so a worker restart resumes
// mid-mission instead of losing progress. Cooldown waits use workflow.Sleep,
// which — unlike the in-process timer internal/cooldown's non-durable path
// uses — survives the worker process being killed and restarted mid-wait.
func MissionWorkflow(ctx workflow.Context, params MissionParams) (bool, error) {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions)
	logger := workflow.GetLogger(ctx)
	p := params.Params
	if p.MaxMissionIterations <= 0 {
		p.MaxMissionIterations = mission.DefaultMaxMissionIterations
	}
	if p.MaxGoalFailures <= 0 {
		p.MaxGoalFailures = mission.DefaultMaxGoalFailures
	}
	if p.SafetyGoalName == "" {
		p.SafetyGoalName = "get_healthy"
	}
	stuckWindow := p.StuckWindow
	if stuckWindow <= 0 {
		stuckWindow = health.DefaultStuckWindow
	}
	stuckThreshold := p.StuckThreshold
	if stuckThreshold <= 0 {
		stuckThreshold = health.DefaultStuckThreshold
	}

	goalMgr := goal.NewManager()
	if err := goalMgr.LoadConfig(params.GoalTemplatesPath); err != nil {
		return false, fmt.Errorf("temporalrt: loading goal templates: %w", err)
	}
	registry := action.NewRegistry(nil)
	if err := registry.LoadDeclarations(params.ActionsPath); err != nil {
		return false, fmt.Errorf("temporalrt: loading actions: %w", err)
	}
	actions := registry.All()

	var acts *Activities

	state := worldstate.WorldState{}
	actxValues := map[worldstate.StateParameter]any{}
	failureCounts := map[string]int{}
	failedGoals := map[string]bool{}
	var stuckHistory []health.ProgressSample

	var current goalState

	for iter := 0; iter < p.MaxMissionIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return false, nil
		}

		var refreshed gameapi.CharacterResponse
		if err := workflow.ExecuteActivity(ctx, acts.RefreshCharacterActivity).Get(ctx, &refreshed); err != nil {
			logger.Warn("character refresh failed", "error", err)
		} else {
			state = worldstate.Merge(state, gameapi.ExtractCharacterState(refreshed))
			if wait := cooldown.WaitDuration(refreshed, workflow.Now(ctx), cooldown.DefaultMinWait, cooldown.DefaultMaxWait); wait > 0 {
				_ = workflow.Sleep(ctx, wait)
			}
		}

		if lvl, ok := state.Get(worldstate.CharacterLevel); ok {
			if n, numOK := toFloat(lvl); numOK && int(n) >= p.TargetLevel {
				return true, nil
			}
		}

		if shouldReselect(current, p, failedGoals, stuckHistory, stuckWindow, stuckThreshold) {
			names := p.AvailableGoals
			if names == nil {
				names = goalMgr.GoalNames()
			}
			available := excludeFailed(names, failedGoals)

			candidates := goalMgr.Candidates(state, available)
			if len(candidates) == 0 {
				logger.Debug("no goal candidate matches current state")
				continue
			}
			best := candidates[0]

			startLevel := 0
			if lvl, ok := state.Get(worldstate.CharacterLevel); ok {
				if n, numOK := toFloat(lvl); numOK {
					startLevel = int(n)
				}
			}
			current = goalState{
				name:       best.GoalName,
				tmpl:       best.Template,
				strategy:   goal.GetStrategy(best.Template),
				startLevel: startLevel,
			}
		}
		current.iterationCount++

		if v, ok := state.Get(worldstate.CombatStatus); ok {
			if s, isStr := v.(string); isStr && s == "completed" {
				state = worldstate.Merge(state, worldstate.WorldState{worldstate.CombatStatus: "idle"})
			}
		}

		targetState := goal.GenerateGoalState(current.tmpl, map[string]any{
			"target_level":   p.TargetLevel,
			"character_name": p.CharacterName,
		})

		if worldstate.Matches(state, targetState) {
			delete(failureCounts, current.name)
			current.name = ""
			continue
		}

		planResult := goap.Search(state, targetState, actions, goap.Options{})
		if planResult.Plan == nil {
			bumpFailure(current.name, failureCounts, failedGoals, p.MaxGoalFailures)
			current.name = ""
			continue
		}

		success, errKind := runPlanSteps(ctx, acts, registry, planResult.Plan.Steps, &state, actxValues)
		progress := progressFraction(targetState, state)
		stuckHistory = append(stuckHistory, health.ProgressSample{GoalName: current.name, Progress: progress})

		if success {
			delete(failureCounts, current.name)
			current.name = ""
			continue
		}
		if errKind == string(action.ErrorCancelled) {
			return false, nil
		}
		bumpFailure(current.name, failureCounts, failedGoals, p.MaxGoalFailures)
		current.name = ""
	}

	return false, nil
}

// shouldReselect reports whether to pick a new goal: there is no current
// goal, the current goal has been excluded after repeated failures, its
// iteration cap is reached, or (outside the safety goal) the mission is
// stuck. Unlike internal/mission's Executor it has no level-increase,
// HP-drop or combat-viability trigger.
func shouldReselect(current goalState, p mission.Params, failedGoals map[string]bool, stuckHistory []health.ProgressSample, window int, threshold float64) bool {
	if current.name == "" {
		return true
	}
	if failedGoals[current.name] {
		return true
	}
	if current.iterationCount >= current.strategy.MaxIterations {
		return true
	}
	if current.name != p.SafetyGoalName && health.IsMissionStuck(stuckHistory, window, threshold) {
		return true
	}
	return false
}

func bumpFailure(name string, counts map[string]int, failed map[string]bool, max int) {
	if name == "" {
		return
	}
	counts[name]++
	if counts[name] >= max {
		failed[name] = true
	}
}

func excludeFailed(names []string, failed map[string]bool) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !failed[n] {
			out = append(out, n)
		}
	}
	return out
}

// runPlanSteps dispatches each step as an activity, merging the observed
// effects back into state and updating the action-context scratch values the
// same way internal/execution.Manager threads an ActionContext through a
// plan. Subgoal requests are not expanded inline here: a step that returns
// one fails the plan with ErrorInvalid, matching how a plan step with an
// unresolvable precondition fails, rather than silently dropping the
// request.
func runPlanSteps(ctx workflow.Context, acts *Activities, planRegistry *action.Registry, steps []goap.Step, state *worldstate.WorldState, actxValues map[worldstate.StateParameter]any) (bool, string) {
	for _, step := range steps {
		var out DispatchActionOutput
		err := workflow.ExecuteActivity(ctx, acts.DispatchActionActivity, DispatchActionInput{
			ActionName: step.ActionName,
			Context:    actxValues,
		}).Get(ctx, &out)
		if err != nil {
			return false, string(action.ErrorTransport)
		}
		for k, v := range out.ContextAfter {
			actxValues[k] = v
		}
		if !out.Success {
			return false, out.ErrorKind
		}
		if out.Subgoal != nil {
			return false, string(action.ErrorInvalid)
		}
		declared := worldstate.WorldState{}
		if a := planRegistry.Lookup(step.ActionName); a != nil {
			declared = a.Effects
		}
		*state = worldstate.Merge(*state, worldstate.Merge(declared, out.Data))
	}
	return true, ""
}

func progressFraction(target, current worldstate.WorldState) float64 {
	if len(target) == 0 {
		return 1.0
	}
	var met float64
	for key, want := range target {
		if worldstate.Matches(current, worldstate.WorldState{key: want}) {
			met++
		}
	}
	return met / float64(len(target))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
