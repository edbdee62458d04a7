package worldstate

import "testing"

func TestMatchesEquality(t *testing.T) {
	state := WorldState{CharacterLevel: 5}
	if !Matches(state, WorldState{CharacterLevel: 5}) {
		t.Fatal("expected equality match")
	}
	if Matches(state, WorldState{CharacterLevel: 6}) {
		t.Fatal("expected mismatch")
	}
}

func TestMatchesComparators(t *testing.T) {
	state := WorldState{CharacterLevel: 5}
	cases := map[string]bool{
		">=5": true,
		">=6": false,
		"<=5": true,
		"<6":  true,
		">4":  true,
		">5":  false,
	}
	for expr, want := range cases {
		got := Matches(state, WorldState{CharacterLevel: expr})
		if got != want {
			t.Errorf("Matches(level=5, %q) = %v, want %v", expr, got, want)
		}
	}
}

func TestMatchesNullSentinel(t *testing.T) {
	state := WorldState{}
	if !Matches(state, WorldState{CharacterLevel: "null"}) {
		t.Fatal("unset key should match 'null'")
	}
	if Matches(state, WorldState{CharacterLevel: "!null"}) {
		t.Fatal("unset key should not match '!null'")
	}
	state[CharacterLevel] = 1
	if !Matches(state, WorldState{CharacterLevel: "!null"}) {
		t.Fatal("set key should match '!null'")
	}
}

func TestMatchesListMembership(t *testing.T) {
	state := WorldState{CombatStatus: "idle"}
	partial := WorldState{CombatStatus: []any{"idle", "ready"}}
	if !Matches(state, partial) {
		t.Fatal("expected list membership match")
	}
	state[CombatStatus] = "completed"
	if Matches(state, partial) {
		t.Fatal("expected list membership mismatch")
	}
}

func TestMergeIsPure(t *testing.T) {
	base := WorldState{CharacterLevel: 1}
	merged := Merge(base, WorldState{CharacterLevel: 2, CharacterXP: 10})
	if base[CharacterLevel] != 1 {
		t.Fatal("Merge must not mutate base")
	}
	if merged[CharacterLevel] != 2 || merged[CharacterXP] != 10 {
		t.Fatal("Merge did not apply overlay correctly")
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	store := NewStore()
	store.Set(CharacterLevel, 3)
	snap := store.Snapshot()
	snap[CharacterLevel] = 99 // mutating the snapshot must not affect the store
	if v, _ := store.Get(CharacterLevel); v != 3 {
		t.Fatal("Snapshot leaked a reference into the live state")
	}
}

func TestDerivedHealthy(t *testing.T) {
	store := NewStore()
	store.Set(CharacterHPPercentage, 50.0)
	healthy, ok := store.Get(CharacterHealthy)
	if !ok || healthy != true {
		t.Fatalf("expected derived healthy=true, got %v ok=%v", healthy, ok)
	}
	store.Set(CharacterHPPercentage, 10.0)
	healthy, _ = store.Get(CharacterHealthy)
	if healthy != false {
		t.Fatalf("expected derived healthy=false after hp drop, got %v", healthy)
	}
}

func TestUnsatisfiedKeys(t *testing.T) {
	state := WorldState{CharacterLevel: 1}
	goal := WorldState{CharacterLevel: ">=2", CombatStatus: "completed"}
	unsatisfied := UnsatisfiedKeys(state, goal)
	if len(unsatisfied) != 2 {
		t.Fatalf("expected 2 unsatisfied keys, got %d: %v", len(unsatisfied), unsatisfied)
	}
}

func TestCanonicalHashStableUnderOrdering(t *testing.T) {
	a := WorldState{CharacterLevel: 1, CombatStatus: "idle"}
	b := WorldState{CombatStatus: "idle", CharacterLevel: 1}
	if CanonicalHash(a) != CanonicalHash(b) {
		t.Fatal("canonical hash must be insertion-order independent")
	}
}
