package knowledge

import (
	"path/filepath"
	"testing"
)

func TestAnalyticsRecordsMissionAndGoalOutcomes(t *testing.T) {
	dir := t.TempDir()
	a, err := OpenAnalytics(filepath.Join(dir, "analytics.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	runID, err := a.RecordMissionStart("bob", "reach_level_2")
	if err != nil {
		t.Fatal(err)
	}

	if err := a.RecordGoalOutcome(runID, "reach_level_2", 0.4, false); err != nil {
		t.Fatal(err)
	}
	if err := a.RecordGoalOutcome(runID, "reach_level_2", 1.0, true); err != nil {
		t.Fatal(err)
	}
	if err := a.RecordMissionEnd(runID, true, 12); err != nil {
		t.Fatal(err)
	}

	progress, err := a.RecentProgress("reach_level_2", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(progress) != 2 {
		t.Fatalf("expected 2 recorded progress values, got %d", len(progress))
	}
	if progress[0] != 1.0 {
		t.Fatalf("expected most recent progress first (1.0), got %v", progress[0])
	}
}
