package diagnostics

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/blentz/artifacts-goap/internal/goal"
	"github.com/blentz/artifacts-goap/internal/knowledge"
	"github.com/blentz/artifacts-goap/internal/worldstate"
)

func TestDump_ReportsStateGoalsAndKnowledge(t *testing.T) {
	state := worldstate.WorldState{
		worldstate.CharacterLevel: 3,
		worldstate.CombatStatus:   "idle",
	}

	mgr := goal.NewManager()
	path := writeTempGoalConfig(t)
	if err := mgr.LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	kb := knowledge.NewBase()
	kb.RecordCombatResult("chicken", "win", 3, 2)
	kb.RecordCombatResult("chicken", "win", 3, 4)

	var buf bytes.Buffer
	err := Dump(&buf, Snapshot{
		State:          state,
		GoalMgr:        mgr,
		Knowledge:      kb,
		MonsterCodes:   []string{"chicken"},
		CharacterLevel: 3,
	})
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"world state", "goal selection trace", "knowledge base", "chicken"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected dump to contain %q, got:\n%s", want, out)
		}
	}
}

func writeTempGoalConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/goal_templates.yaml"
	content := `
goal_templates:
  hunt:
    target_state:
      goal_progress.monsters_hunted: ">=1"
    strategy:
      max_iterations: 20
      hunt_radius: 5
goal_selection_rules:
  - goal_name: hunt
    priority: 10
    condition:
      combat_context.status: idle
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}
