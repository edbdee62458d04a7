// Package goap implements the forward best-first GOAP planner of spec.md
// §4.5: given a start state, a partial goal state and the set of declared
// actions, it searches for the least-cost ordered action sequence whose
// effects satisfy the goal. The search-over-a-frontier shape is grounded on
// the teacher's internal/graph traversal idiom, generalized from a static
// dependency DAG to a dynamically expanded state-space graph.
package goap

import "github.com/blentz/artifacts-goap/internal/action"

// Step is one entry in a Plan: a reference into the action registry.
// ParameterOverrides holds optional per-step parameters; the planner leaves
// it empty and execution.Manager does not read it.
type Step struct {
	ActionName       string
	ParameterOverrides map[string]any
}

// Plan is the ordered action sequence the planner produces.
type Plan struct {
	Steps []Step
}

// Empty reports whether the plan has no steps — the correct result when the
// goal was already satisfied by the start state (spec.md §4.5 edge case).
func (p Plan) Empty() bool { return len(p.Steps) == 0 }

// ActionNames returns the plan's steps as a bare slice of action names, a
// convenience for tests that only assert on sequencing.
func (p Plan) ActionNames() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.ActionName
	}
	return out
}

func stepsFromActions(actions []*action.Action) []Step {
	out := make([]Step, len(actions))
	for i, a := range actions {
		out[i] = Step{ActionName: a.Name}
	}
	return out
}
