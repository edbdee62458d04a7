package goap

import (
	"reflect"
	"testing"

	"github.com/blentz/artifacts-goap/internal/action"
	"github.com/blentz/artifacts-goap/internal/worldstate"
)

func levelTwoActions() []*action.Action {
	return []*action.Action{
		{
			Name:          "find_monsters",
			Preconditions: worldstate.WorldState{worldstate.CombatStatus: "idle"},
			Effects: worldstate.WorldState{
				worldstate.CombatStatus: "ready",
				worldstate.TargetX:      1,
				worldstate.TargetY:      1,
			},
			Weight: 1,
		},
		{
			Name:          "move",
			Preconditions: worldstate.WorldState{worldstate.CharacterCooldownActv: false},
			Effects:       worldstate.WorldState{worldstate.LocationAtTarget: true},
			Weight:        1,
		},
		{
			Name: "attack",
			Preconditions: worldstate.WorldState{
				worldstate.CombatStatus:      "ready",
				worldstate.LocationAtTarget: true,
			},
			Effects: worldstate.WorldState{
				worldstate.CombatStatus:       "completed",
				worldstate.GoalMonstersHunted: 1,
			},
			Weight: 1,
		},
	}
}

func TestSearchPlanToReachLevelTwo(t *testing.T) {
	start := worldstate.WorldState{
		worldstate.CharacterAlive:        true,
		worldstate.CharacterLevel:        1,
		worldstate.CharacterCooldownActv: false,
		worldstate.CombatStatus:          "idle",
		worldstate.GoalMonstersHunted:    0,
	}
	goal := worldstate.WorldState{worldstate.GoalMonstersHunted: ">=1"}

	result := Search(start, goal, levelTwoActions(), Options{})
	if result.Plan == nil {
		t.Fatalf("expected a plan, got none: %s", result.Reason)
	}
	want := []string{"find_monsters", "move", "attack"}
	if got := result.Plan.ActionNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected plan %v, got %v", want, got)
	}
}

func TestSearchAlreadyAchievedGoalReturnsEmptyPlan(t *testing.T) {
	start := worldstate.WorldState{worldstate.CombatStatus: "completed"}
	goal := worldstate.WorldState{worldstate.CombatStatus: "completed"}

	result := Search(start, goal, levelTwoActions(), Options{})
	if result.Plan == nil {
		t.Fatalf("expected a (possibly empty) plan, got none: %s", result.Reason)
	}
	if !result.Plan.Empty() {
		t.Fatalf("expected empty plan, got %v", result.Plan.ActionNames())
	}
}

func TestSearchEmptyRegistryWithNonTrivialGoalReturnsNoPlan(t *testing.T) {
	start := worldstate.WorldState{worldstate.GoalMonstersHunted: 0}
	goal := worldstate.WorldState{worldstate.GoalMonstersHunted: ">=1"}

	result := Search(start, goal, nil, Options{})
	if result.Plan != nil {
		t.Fatalf("expected no plan with an empty action registry, got %v", result.Plan.ActionNames())
	}
	if result.Reason == "" {
		t.Fatal("expected a non-empty reason when no plan is found")
	}
}

func TestSearchUnsatisfiableGoalRespectsNodeBudget(t *testing.T) {
	start := worldstate.WorldState{worldstate.CombatStatus: "idle"}
	goal := worldstate.WorldState{worldstate.CombatStatus: "never_happens"}

	result := Search(start, goal, levelTwoActions(), Options{NodeBudget: 10})
	if result.Plan != nil {
		t.Fatalf("expected no plan for an unsatisfiable goal, got %v", result.Plan.ActionNames())
	}
}

func TestSearchIsDeterministicAcrossRuns(t *testing.T) {
	start := worldstate.WorldState{
		worldstate.CharacterCooldownActv: false,
		worldstate.CombatStatus:          "idle",
		worldstate.GoalMonstersHunted:    0,
	}
	goal := worldstate.WorldState{worldstate.GoalMonstersHunted: ">=1"}

	first := Search(start, goal, levelTwoActions(), Options{})
	second := Search(start, goal, levelTwoActions(), Options{})
	if first.Plan == nil || second.Plan == nil {
		t.Fatal("expected both runs to find a plan")
	}
	if !reflect.DeepEqual(first.Plan.ActionNames(), second.Plan.ActionNames()) {
		t.Fatalf("expected identical plans across runs, got %v and %v", first.Plan.ActionNames(), second.Plan.ActionNames())
	}
}
