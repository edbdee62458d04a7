package knowledge

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// analyticsSchema mirrors the teacher's internal/store schema conventions
// (WAL mode, busy-timeout pragma, explicit indexes) but for mission-run
// history rather than dispatch records. This is a secondary side-store:
// the Knowledge Base's authoritative state is the YAML snapshot in Store;
// Analytics exists only so operators can query run history with SQL
// without re-deriving it from the snapshot file.
const analyticsSchema = `
CREATE TABLE IF NOT EXISTS mission_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	character_name TEXT NOT NULL,
	goal_name TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	completed_at DATETIME,
	succeeded INTEGER NOT NULL DEFAULT 0,
	iterations INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS goal_outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL,
	goal_name TEXT NOT NULL,
	progress REAL NOT NULL,
	succeeded INTEGER NOT NULL,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mission_runs_character ON mission_runs(character_name);
CREATE INDEX IF NOT EXISTS idx_goal_outcomes_run ON goal_outcomes(run_id);
CREATE INDEX IF NOT EXISTS idx_goal_outcomes_goal ON goal_outcomes(goal_name);
`

// Analytics is the sqlite-backed mission-run history store.
type Analytics struct {
	db *sql.DB
}

// OpenAnalytics opens (creating if necessary) the sqlite database at path.
func OpenAnalytics(path string) (*Analytics, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("knowledge: open analytics db %s: %w", path, err)
	}
	if _, err := db.Exec(analyticsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("knowledge: create analytics schema: %w", err)
	}
	return &Analytics{db: db}, nil
}

// Close releases the underlying database handle.
func (a *Analytics) Close() error { return a.db.Close() }

// RecordMissionStart inserts a new mission_runs row and returns its id.
func (a *Analytics) RecordMissionStart(characterName, goalName string) (int64, error) {
	res, err := a.db.Exec(
		`INSERT INTO mission_runs (character_name, goal_name, started_at) VALUES (?, ?, ?)`,
		characterName, goalName, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("knowledge: record mission start: %w", err)
	}
	return res.LastInsertId()
}

// RecordMissionEnd marks a mission_runs row complete.
func (a *Analytics) RecordMissionEnd(runID int64, succeeded bool, iterations int) error {
	_, err := a.db.Exec(
		`UPDATE mission_runs SET completed_at = ?, succeeded = ?, iterations = ? WHERE id = ?`,
		time.Now().UTC(), boolToInt(succeeded), iterations, runID,
	)
	if err != nil {
		return fmt.Errorf("knowledge: record mission end: %w", err)
	}
	return nil
}

// RecordGoalOutcome appends one goal-selection outcome for a run, the raw
// material the Mission Executor's persistence-weighting bonus (spec.md
// §4.8) is computed from in-memory, but which operators may also want to
// query historically across runs.
func (a *Analytics) RecordGoalOutcome(runID int64, goalName string, progress float64, succeeded bool) error {
	_, err := a.db.Exec(
		`INSERT INTO goal_outcomes (run_id, goal_name, progress, succeeded, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		runID, goalName, progress, boolToInt(succeeded), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("knowledge: record goal outcome: %w", err)
	}
	return nil
}

// RecentProgress returns the most recent progress values recorded for
// goalName, most recent first, up to limit entries. The Mission Executor
// uses the in-memory equivalent for its persistence-weighting bonus; this
// method exists for historical/cross-run analysis.
func (a *Analytics) RecentProgress(goalName string, limit int) ([]float64, error) {
	rows, err := a.db.Query(
		`SELECT progress FROM goal_outcomes WHERE goal_name = ? ORDER BY recorded_at DESC LIMIT ?`,
		goalName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("knowledge: query recent progress: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("knowledge: scan recent progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
