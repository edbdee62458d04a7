package knowledge

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store wraps a Base with YAML file persistence: every successful mutating
// call snapshots the whole Base to disk (spec.md §4.2). A single file holds
// both content discoveries and combat history; map tile freshness is a
// derived view over content entries, not a separate file, to keep a single
// write path and avoid the two files drifting out of sync.
type Store struct {
	mu   sync.Mutex
	path string
	base *Base
}

// NewStore creates a Store backed by path. If path exists, its contents are
// loaded immediately; a missing file is not an error (fresh knowledge base).
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, base: NewBase()}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Base returns the underlying in-memory Knowledge Base for read operations
// (MonsterWinRate, FindNearestKnown, IsTileFresh, MonsterStatsFor) that do
// not need to trigger a snapshot.
func (s *Store) Base() *Base { return s.base }

// Load reads path and replaces the in-memory Base's contents. Malformed
// entries are dropped rather than failing the load (spec.md §4.2); a
// missing file leaves the Base empty.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("knowledge: reading %s: %w", s.path, err)
	}

	var snap snapshot
	if err := yaml.Unmarshal(raw, &snap); err != nil {
		// A corrupt file is treated as an empty knowledge base rather than a
		// fatal startup error, per spec.md §4.2's "validate structure and
		// drop malformed entries without failing".
		s.base.loadSnapshot(snapshot{})
		return nil
	}
	s.base.loadSnapshot(snap)
	return nil
}

// save serializes the current Base to path. Writes go to a temp file first
// and are renamed into place so a crash mid-write never leaves a truncated
// snapshot behind.
func (s *Store) save() error {
	out, err := yaml.Marshal(s.base.toSnapshot())
	if err != nil {
		return fmt.Errorf("knowledge: marshaling snapshot: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("knowledge: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("knowledge: renaming %s to %s: %w", tmp, s.path, err)
	}
	return nil
}

// RecordContentDiscovery upserts a content entry and snapshots to disk.
func (s *Store) RecordContentDiscovery(kind, code string, x, y int, details map[string]any) error {
	s.base.RecordContentDiscovery(kind, code, x, y, details)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// RecordCombatResult appends a combat record, updates aggregates, and
// snapshots to disk.
func (s *Store) RecordCombatResult(monsterCode, outcome string, characterLevel, damageTaken int) error {
	s.base.RecordCombatResult(monsterCode, outcome, characterLevel, damageTaken)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}
