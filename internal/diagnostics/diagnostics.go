// Package diagnostics implements the read-only operator dump carried
// forward from original_source/src/diagnostic_tools.py (SPEC_FULL.md C.1):
// a human-readable snapshot of the live WorldState, a Knowledge Base
// summary, and a trace of how the Goal Manager would rank every loaded
// goal against the current state. Nothing here mutates anything; it exists
// so an operator can answer "why did the agent pick that goal" without
// attaching a debugger.
package diagnostics

import (
	"fmt"
	"io"
	"sort"

	"github.com/blentz/artifacts-goap/internal/goal"
	"github.com/blentz/artifacts-goap/internal/knowledge"
	"github.com/blentz/artifacts-goap/internal/worldstate"
)

// RuleTrace is one goal-selection rule's verdict against the current state.
type RuleTrace struct {
	GoalName  string
	Priority  int
	Matched   bool
	Available bool
}

// Snapshot bundles everything Dump needs; building it has no side effects on
// any of its collaborators.
type Snapshot struct {
	State      worldstate.WorldState
	GoalMgr    *goal.Manager
	Knowledge  *knowledge.Base
	Available  []string // nil means every loaded goal template, matching goal.Manager.Candidates
	MonsterCodes []string // monster codes to report win rates for, if known
	CharacterLevel int
}

// Dump writes a human-readable report of s to w (spec.md §9's "dynamic
// attribute copying" adapter has a diagnostic-only counterpart here: every
// section names only StateParameter keys the core actually models, never a
// reflective field walk).
func Dump(w io.Writer, s Snapshot) error {
	if err := dumpWorldState(w, s.State); err != nil {
		return err
	}
	if err := dumpGoalTrace(w, s); err != nil {
		return err
	}
	if err := dumpKnowledge(w, s); err != nil {
		return err
	}
	return nil
}

func dumpWorldState(w io.Writer, state worldstate.WorldState) error {
	if _, err := fmt.Fprintln(w, "=== world state ==="); err != nil {
		return err
	}
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "  %-42s = %v\n", k, state[worldstate.StateParameter(k)]); err != nil {
			return err
		}
	}
	return nil
}

func dumpGoalTrace(w io.Writer, s Snapshot) error {
	if _, err := fmt.Fprintln(w, "\n=== goal selection trace ==="); err != nil {
		return err
	}
	if s.GoalMgr == nil {
		_, err := fmt.Fprintln(w, "  (no goal manager loaded)")
		return err
	}
	candidates := s.GoalMgr.Candidates(s.State, s.Available)
	matched := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		matched[c.GoalName] = true
	}
	names := s.GoalMgr.GoalNames()
	for _, name := range names {
		tmpl, _ := s.GoalMgr.Template(name)
		strategy := goal.GetStrategy(tmpl)
		mark := " "
		if matched[name] {
			mark = "*"
		}
		if _, err := fmt.Fprintf(w, "  %s %-24s max_iterations=%-4d hunt_radius=%-4d safety_priority=%v\n",
			mark, name, strategy.MaxIterations, strategy.HuntRadius, strategy.SafetyPriority); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "  (* = currently matches the live state)"); err != nil {
		return err
	}
	selected, _, ok := s.GoalMgr.SelectGoal(s.State, s.Available)
	if ok {
		_, err := fmt.Fprintf(w, "  would select: %s\n", selected)
		return err
	}
	_, err := fmt.Fprintln(w, "  would select: (no rule matches)")
	return err
}

func dumpKnowledge(w io.Writer, s Snapshot) error {
	if _, err := fmt.Fprintln(w, "\n=== knowledge base ==="); err != nil {
		return err
	}
	if s.Knowledge == nil {
		_, err := fmt.Fprintln(w, "  (no knowledge base loaded)")
		return err
	}
	for _, code := range s.MonsterCodes {
		stats, ok := s.Knowledge.MonsterStatsFor(code)
		rate, known := s.Knowledge.MonsterWinRate(code, s.CharacterLevel)
		if !ok && !known {
			if _, err := fmt.Fprintf(w, "  %-16s (no recorded combat)\n", code); err != nil {
				return err
			}
			continue
		}
		rateStr := "unknown"
		if known {
			rateStr = fmt.Sprintf("%.0f%%", rate*100)
		}
		if _, err := fmt.Fprintf(w, "  %-16s wins=%-3d losses=%-3d win_rate=%-8s est_damage=%-6.1f est_level=%.1f\n",
			code, stats.Wins, stats.Losses, rateStr, stats.EstimatedDamage, stats.EstimatedLevel); err != nil {
			return err
		}
	}
	return nil
}
