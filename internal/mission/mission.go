// Package mission implements the Mission Executor of spec.md §4.8: the
// outer loop that drives a character toward a top-level objective by
// repeatedly selecting a goal, planning toward it, and handing the plan to
// the Execution Manager, tracking per-goal failures and persistence
// weighting across iterations. Its tick-then-decide shape is grounded on
// the teacher's cmd/cortex/main.go supervising loop.
package mission

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/blentz/artifacts-goap/internal/action"
	"github.com/blentz/artifacts-goap/internal/actioncontext"
	"github.com/blentz/artifacts-goap/internal/execution"
	"github.com/blentz/artifacts-goap/internal/gameapi"
	"github.com/blentz/artifacts-goap/internal/goal"
	"github.com/blentz/artifacts-goap/internal/goap"
	"github.com/blentz/artifacts-goap/internal/health"
	"github.com/blentz/artifacts-goap/internal/knowledge"
	"github.com/blentz/artifacts-goap/internal/worldstate"
)

// Default tunables (spec.md §4.8).
const (
	DefaultMaxMissionIterations = 100
	DefaultMaxGoalFailures      = 3
	DefaultPersistenceBonus     = 10.0
	recentProgressWindow        = 5
	strongProgressThreshold     = 0.2
	safeHPPercentage            = 30.0
	combatNonViableWinRate      = 0.3
)

// Params describes one mission run.
type Params struct {
	CharacterName        string
	TargetLevel          int
	MaxMissionIterations int
	MaxGoalFailures      int
	PersistenceBonusBase float64
	AvailableGoals       []string // nil means every loaded goal template
	HuntingGoalName      string   // goal name checked for "combat non-viable" reselection
	SafetyGoalName       string   // goal name exempt from the HP-drop reselect trigger
	StuckWindow          int      // samples health.IsMissionStuck inspects; 0 uses the default
	StuckThreshold       float64  // progress floor below which a sample counts as flat; 0 uses the default
}

func (p Params) withDefaults() Params {
	if p.MaxMissionIterations <= 0 {
		p.MaxMissionIterations = DefaultMaxMissionIterations
	}
	if p.MaxGoalFailures <= 0 {
		p.MaxGoalFailures = DefaultMaxGoalFailures
	}
	if p.PersistenceBonusBase <= 0 {
		p.PersistenceBonusBase = DefaultPersistenceBonus
	}
	if p.SafetyGoalName == "" {
		p.SafetyGoalName = "get_healthy"
	}
	if p.StuckWindow <= 0 {
		p.StuckWindow = health.DefaultStuckWindow
	}
	if p.StuckThreshold <= 0 {
		p.StuckThreshold = health.DefaultStuckThreshold
	}
	return p
}

// Executor bundles every collaborator the Mission Executor needs: the
// Knowledge Base, the Goal Manager, the Execution Manager, the action
// registry and the live world-state store.
type Executor struct {
	Knowledge *knowledge.Store
	GoalMgr   *goal.Manager
	ExecMgr   *execution.Manager
	Actions   []*action.Action
	Store     *worldstate.Store
	ActionCtx *actioncontext.Context
	API       gameapi.Client
	Refresh   execution.CharacterRefresher
	Logger    *slog.Logger
}

// NewExecutor builds an Executor from its collaborators.
func NewExecutor(knowledgeStore *knowledge.Store, goalMgr *goal.Manager, execMgr *execution.Manager, actions []*action.Action, store *worldstate.Store, actx *actioncontext.Context, api gameapi.Client, refresh execution.CharacterRefresher, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		Knowledge: knowledgeStore,
		GoalMgr:   goalMgr,
		ExecMgr:   execMgr,
		Actions:   actions,
		Store:     store,
		ActionCtx: actx,
		API:       api,
		Refresh:   refresh,
		Logger:    logger,
	}
}

// goalState tracks the current goal's sticky bookkeeping across iterations.
type goalState struct {
	name           string
	tmpl           goal.Template
	strategy       goal.Strategy
	startLevel     int
	iterationCount int
}

// ExecuteProgressionMission runs spec.md §4.8's loop: refresh, check the
// objective, continue-or-reselect, plan, execute, record progress. It
// returns true once the character reaches params.TargetLevel, false if the
// iteration budget is exhausted first.
func (e *Executor) ExecuteProgressionMission(ctx context.Context, params Params) bool {
	params = params.withDefaults()

	failureCounts := make(map[string]int)
	failedGoals := make(map[string]bool)
	progressHistory := make(map[string][]float64)
	var stuckHistory []health.ProgressSample
	e.ActionCtx.Preserve(nil)

	var current goalState

	for iter := 0; iter < params.MaxMissionIterations; iter++ {
		if ctx.Err() != nil {
			return false
		}

		if e.Refresh != nil {
			resp, err := e.Refresh(ctx)
			if err != nil {
				e.Logger.Warn("mission: character refresh failed", "error", err)
			} else {
				e.Store.Merge(gameapi.ExtractCharacterState(resp))
			}
		}

		if lvl, ok := e.Store.Get(worldstate.CharacterLevel); ok {
			if n, numOK := toFloat(lvl); numOK && int(n) >= params.TargetLevel {
				return true
			}
		}

		if e.shouldReselect(current, params, failedGoals, stuckHistory) {
			names := params.AvailableGoals
			if names == nil {
				names = e.GoalMgr.GoalNames()
			}
			available := excludeFailed(names, failedGoals)

			candidates := e.GoalMgr.Candidates(e.Store.Snapshot(), available)
			if len(candidates) == 0 {
				e.Logger.Debug("mission: no goal candidate matches current state")
				continue
			}
			best := pickBestCandidate(candidates, progressHistory, params.PersistenceBonusBase)

			startLevel := 0
			if lvl, ok := e.Store.Get(worldstate.CharacterLevel); ok {
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

		e.preGoalSetup()

		targetState := goal.GenerateGoalState(current.tmpl, map[string]any{
			"target_level":   params.TargetLevel,
			"character_name": params.CharacterName,
		})

		before := e.Store.Snapshot()
		if worldstate.Matches(before, targetState) {
			recordProgress(progressHistory, current.name, 1.0)
			delete(failureCounts, current.name)
			current.name = ""
			continue
		}

		planResult := goap.Search(before, targetState, e.Actions, goap.Options{})
		if planResult.Plan == nil {
			e.bumpFailure(current.name, failureCounts, failedGoals, params.MaxGoalFailures)
			current.name = ""
			continue
		}

		runResult := e.ExecMgr.Run(ctx, *planResult.Plan, e.Store, e.ActionCtx, e.API, targetState, e.Actions, e.Refresh, e.resolveSubgoal)
		after := e.Store.Snapshot()
		progress := evaluateProgress(targetState, after)

		if runResult.Success {
			delete(failureCounts, current.name)
			recordProgress(progressHistory, current.name, progress)
			stuckHistory = append(stuckHistory, health.ProgressSample{GoalName: current.name, Progress: progress})
			current.name = ""
			continue
		}

		if runResult.Error != nil && runResult.Error.Kind == action.ErrorCancelled {
			return false
		}
		recordProgress(progressHistory, current.name, progress)
		stuckHistory = append(stuckHistory, health.ProgressSample{GoalName: current.name, Progress: progress})
		e.bumpFailure(current.name, failureCounts, failedGoals, params.MaxGoalFailures)
		current.name = ""
	}

	return false
}

// shouldReselect implements spec.md §4.8 step 3.
func (e *Executor) shouldReselect(current goalState, params Params, failedGoals map[string]bool, stuckHistory []health.ProgressSample) bool {
	if current.name == "" {
		return true
	}
	if failedGoals[current.name] {
		return true
	}
	if current.iterationCount >= current.strategy.MaxIterations {
		return true
	}
	if current.name != params.SafetyGoalName && health.IsMissionStuck(stuckHistory, params.StuckWindow, params.StuckThreshold) {
		return true
	}
	if lvl, ok := e.Store.Get(worldstate.CharacterLevel); ok {
		if n, numOK := toFloat(lvl); numOK && int(n) > current.startLevel {
			return true
		}
	}
	if hp, ok := e.Store.Get(worldstate.CharacterHPPercentage); ok {
		if n, numOK := toFloat(hp); numOK && n < safeHPPercentage && current.name != params.SafetyGoalName {
			return true
		}
	}
	if current.name == params.HuntingGoalName && e.Knowledge != nil {
		if code, ok := e.ActionCtx.Get(worldstate.CombatTargetK); ok {
			if codeStr, isStr := code.(string); isStr {
				lvl, _ := e.Store.Get(worldstate.CharacterLevel)
				level, _ := toFloat(lvl)
				rate, known := e.Knowledge.Base().MonsterWinRate(codeStr, int(level))
				if known && rate < combatNonViableWinRate {
					return true
				}
			}
		}
	}
	return false
}

// preGoalSetup resets stale combat context left "completed" by a prior
// iteration (spec.md §4.8 step 5).
func (e *Executor) preGoalSetup() {
	if v, ok := e.Store.Get(worldstate.CombatStatus); ok {
		if s, isStr := v.(string); isStr && s == "completed" {
			e.Store.Set(worldstate.CombatStatus, "idle")
		}
	}
}

func (e *Executor) bumpFailure(goalName string, failureCounts map[string]int, failedGoals map[string]bool, maxFailures int) {
	if goalName == "" {
		return
	}
	failureCounts[goalName]++
	if failureCounts[goalName] >= maxFailures {
		failedGoals[goalName] = true
	}
}

// resolveSubgoal builds a subgoal's target state the same way a top-level
// goal is built, using whatever template the Goal Manager has loaded under
// that name (spec.md §4.7, §4.8).
func (e *Executor) resolveSubgoal(ctx context.Context, goalName string, parameters map[string]any, state worldstate.WorldState) (worldstate.WorldState, error) {
	tmpl, ok := e.GoalMgr.Template(goalName)
	if !ok {
		return worldstate.WorldState{}, nil
	}
	return goal.GenerateGoalState(tmpl, parameters), nil
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

func recordProgress(history map[string][]float64, goalName string, value float64) {
	if goalName == "" {
		return
	}
	h := append(history[goalName], value)
	if len(h) > recentProgressWindow {
		h = h[len(h)-recentProgressWindow:]
	}
	history[goalName] = h
}

// pickBestCandidate re-ranks matching goal candidates by priority plus a
// persistence bonus (spec.md §4.8 "persistence weighting").
func pickBestCandidate(candidates []goal.Candidate, history map[string][]float64, baseBonus float64) goal.Candidate {
	best := candidates[0]
	bestScore := float64(best.Priority) + persistenceBonus(history[best.GoalName], baseBonus)
	for _, c := range candidates[1:] {
		score := float64(c.Priority) + persistenceBonus(history[c.GoalName], baseBonus)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best
}

// persistenceBonus implements spec.md §4.8's formula: bonus = min(max_recent
// * 0.5 * base, base), with a stronger bonus proportional to the most recent
// value when it showed at least 20% progress.
func persistenceBonus(recent []float64, base float64) float64 {
	if len(recent) == 0 {
		return 0
	}
	maxRecent := recent[0]
	for _, v := range recent[1:] {
		if v > maxRecent {
			maxRecent = v
		}
	}
	bonus := maxRecent * 0.5 * base
	if bonus > base {
		bonus = base
	}

	last := recent[len(recent)-1]
	if last >= strongProgressThreshold {
		strong := last * base
		if strong > bonus {
			bonus = strong
		}
	}
	if bonus > base {
		bonus = base
	}
	return bonus
}

// evaluateProgress flattens target against current and returns the
// fraction of conditions met, with numeric partial credit (spec.md §4.8
// "progress evaluation"). worldstate's comparator parsing is unexported, so
// the ">="/">" cases are re-parsed locally; everything else falls back to
// worldstate.Matches for an exact 0/1 credit.
func evaluateProgress(target, current worldstate.WorldState) float64 {
	if len(target) == 0 {
		return 1.0
	}
	var met float64
	for key, want := range target {
		if s, isStr := want.(string); isStr {
			if ratio, ok := numericRatio(s, current, key); ok {
				met += ratio
				continue
			}
		}
		if worldstate.Matches(current, worldstate.WorldState{key: want}) {
			met += 1
		}
	}
	return met / float64(len(target))
}

func numericRatio(want string, current worldstate.WorldState, key worldstate.StateParameter) (float64, bool) {
	trimmed := want
	switch {
	case strings.HasPrefix(want, ">="):
		trimmed = strings.TrimPrefix(want, ">=")
	case strings.HasPrefix(want, ">"):
		trimmed = strings.TrimPrefix(want, ">")
	default:
		return 0, false
	}
	target, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
	if err != nil || target <= 0 {
		return 0, false
	}
	got, ok := current.Get(key)
	if !ok {
		return 0, true
	}
	gotF, ok := toFloat(got)
	if !ok {
		return 0, true
	}
	ratio := gotF / target
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}
	return ratio, true
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
