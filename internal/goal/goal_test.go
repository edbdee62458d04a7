package goal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blentz/artifacts-goap/internal/worldstate"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "goal_templates.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const testConfig = `
goal_templates:
  reach_level:
    target_state:
      character_status.level: ">={target_level}"
    strategy:
      max_iterations: 20
  get_healthy:
    target_state:
      character_status.healthy: true
  hunt_monsters:
    target_state:
      goal_progress.monsters_hunted: ">=1"

goal_selection_rules:
  - goal_name: get_healthy
    priority: 100
    condition:
      character_status.safe: false
  - goal_name: hunt_monsters
    priority: 10
    condition:
      character_status.safe: true
  - goal_name: reach_level
    priority: 5
    condition:
      character_status.safe: true
`

func TestSelectGoalPicksHighestPriorityMatch(t *testing.T) {
	m := NewManager()
	if err := m.LoadConfig(writeConfig(t, testConfig)); err != nil {
		t.Fatal(err)
	}

	state := worldstate.WorldState{worldstate.CharacterSafe: false}
	name, _, ok := m.SelectGoal(state, nil)
	if !ok || name != "get_healthy" {
		t.Fatalf("expected get_healthy to win on safety, got name=%q ok=%v", name, ok)
	}
}

func TestSelectGoalRespectsAvailableFilter(t *testing.T) {
	m := NewManager()
	if err := m.LoadConfig(writeConfig(t, testConfig)); err != nil {
		t.Fatal(err)
	}

	state := worldstate.WorldState{worldstate.CharacterSafe: true}
	name, _, ok := m.SelectGoal(state, []string{"reach_level"})
	if !ok || name != "reach_level" {
		t.Fatalf("expected reach_level when hunt_monsters is excluded, got name=%q ok=%v", name, ok)
	}
}

func TestSelectGoalReturnsFalseWhenNoRuleMatches(t *testing.T) {
	m := NewManager()
	if err := m.LoadConfig(writeConfig(t, testConfig)); err != nil {
		t.Fatal(err)
	}

	_, _, ok := m.SelectGoal(worldstate.WorldState{}, nil)
	if ok {
		t.Fatal("expected no match when character_status.safe is unset")
	}
}

func TestGenerateGoalStateSubstitutesPlaceholders(t *testing.T) {
	m := NewManager()
	if err := m.LoadConfig(writeConfig(t, testConfig)); err != nil {
		t.Fatal(err)
	}

	tmpl, ok := m.Template("reach_level")
	if !ok {
		t.Fatal("expected reach_level template to be loaded")
	}
	state := GenerateGoalState(tmpl, map[string]any{"target_level": 5})
	if state[worldstate.CharacterLevel] != ">=5" {
		t.Fatalf("expected substituted target >=5, got %v", state[worldstate.CharacterLevel])
	}
}

func TestGetStrategyMergesOverridesWithDefaults(t *testing.T) {
	m := NewManager()
	if err := m.LoadConfig(writeConfig(t, testConfig)); err != nil {
		t.Fatal(err)
	}

	tmpl, _ := m.Template("reach_level")
	s := GetStrategy(tmpl)
	if s.MaxIterations != 20 {
		t.Fatalf("expected overridden max_iterations 20, got %d", s.MaxIterations)
	}
	if s.HuntRadius != DefaultHuntRadius {
		t.Fatalf("expected default hunt radius %d, got %d", DefaultHuntRadius, s.HuntRadius)
	}

	healthyTmpl, _ := m.Template("get_healthy")
	defaults := GetStrategy(healthyTmpl)
	if defaults.MaxIterations != DefaultMaxIterations {
		t.Fatalf("expected default max_iterations %d, got %d", DefaultMaxIterations, defaults.MaxIterations)
	}
}
