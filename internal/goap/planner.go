package goap

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/blentz/artifacts-goap/internal/action"
	"github.com/blentz/artifacts-goap/internal/worldstate"
)

// DefaultNodeBudget bounds how many nodes the search expands before giving
// up (spec.md §4.5). A node/expansion budget this small is deliberately
// generous for the small action sets a single character's registry holds;
// it exists as a backstop against unsatisfiable goals and cyclic action
// sets (spec.md §9 "GOAP infinite-loop fix").
const DefaultNodeBudget = 500

// Options configures a single Search call.
type Options struct {
	// NodeBudget bounds the number of node expansions. Zero uses
	// DefaultNodeBudget.
	NodeBudget int
}

type node struct {
	state  worldstate.WorldState
	parent *node
	action *action.Action
	gCost  float64
	hCost  float64
	depth  int
	index  int // heap bookkeeping
}

// Result is the outcome of a Search call. A nil Plan with a non-empty
// Reason means no plan was found within budget; spec.md §4.5 requires the
// planner never to error for this case — lack of a plan is a normal
// outcome, not a failure.
type Result struct {
	Plan   *Plan
	Reason string
}

// Search runs forward best-first search from start toward goal over the
// given actions, per spec.md §4.5.
//
// Termination: the first expanded node whose state satisfies goal wins.
// Tie-breaks, applied in order, keep the search deterministic: (1) lower
// total weight, (2) fewer steps, (3) lexicographically earlier action name
// for the step that produced the node.
func Search(start, goal worldstate.WorldState, actions []*action.Action, opts Options) Result {
	if worldstate.Matches(start, goal) {
		empty := Plan{}
		return Result{Plan: &empty}
	}

	budget := opts.NodeBudget
	if budget <= 0 {
		budget = DefaultNodeBudget
	}

	// Actions are pre-sorted by name so that, combined with the heap's
	// tie-break comparator, two calls over the same (start, goal, actions)
	// always expand nodes in the same order (spec.md §8 "planning is
	// deterministic").
	sorted := make([]*action.Action, len(actions))
	copy(sorted, actions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	startNode := &node{state: start, gCost: 0, depth: 0, hCost: heuristic(start, goal)}

	pq := &priorityQueue{startNode}
	heap.Init(pq)

	best := map[string]float64{worldstate.CanonicalHash(start): 0}

	expansions := 0
	for pq.Len() > 0 {
		if expansions >= budget {
			return Result{Reason: fmt.Sprintf("node budget (%d) exhausted; unsatisfied: %v", budget, worldstate.UnsatisfiedKeys(start, goal))}
		}
		current := heap.Pop(pq).(*node)
		expansions++

		if worldstate.Matches(current.state, goal) {
			p := reconstruct(current)
			return Result{Plan: &p}
		}

		for _, a := range sorted {
			if !worldstate.Matches(current.state, a.Preconditions) {
				continue
			}
			childState := worldstate.Merge(current.state, a.Effects)
			childG := current.gCost + effectiveWeight(a)
			hash := worldstate.CanonicalHash(childState)

			if prevBest, seen := best[hash]; seen && prevBest <= childG {
				continue
			}
			best[hash] = childG

			heap.Push(pq, &node{
				state:  childState,
				parent: current,
				action: a,
				gCost:  childG,
				hCost:  heuristic(childState, goal),
				depth:  current.depth + 1,
			})
		}
	}

	return Result{Reason: fmt.Sprintf("search exhausted; unsatisfied: %v", worldstate.UnsatisfiedKeys(start, goal))}
}

func effectiveWeight(a *action.Action) float64 {
	if a.Weight <= 0 {
		return 1
	}
	return a.Weight
}

// heuristic counts unsatisfied goal keys against state. It can overestimate
// the remaining cost when one action satisfies more goal keys than its
// weight (e.g. two keys at weight 1, or one key at weight 0.5), so in that
// case the returned plan is not guaranteed to be least-cost.
func heuristic(state, goal worldstate.WorldState) float64 {
	return float64(len(worldstate.UnsatisfiedKeys(state, goal)))
}

func reconstruct(n *node) Plan {
	var actions []*action.Action
	for cur := n; cur != nil && cur.action != nil; cur = cur.parent {
		actions = append(actions, cur.action)
	}
	// actions were collected leaf-to-root; reverse to root-to-leaf order
	for i, j := 0, len(actions)-1; i < j; i, j = i+1, j-1 {
		actions[i], actions[j] = actions[j], actions[i]
	}
	return Plan{Steps: stepsFromActions(actions)}
}
