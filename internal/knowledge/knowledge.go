// Package knowledge implements the Knowledge Base of spec.md §4.2: a
// persistent, append-mostly store of content discoveries and combat
// outcomes that survives across mission runs. It snapshots to YAML after
// every mutating call (spec.md §6) and tolerates a malformed on-disk file by
// dropping unreadable entries rather than failing to start, the same
// resilience posture the teacher's profile loader in internal/learner
// applies to malformed history rows.
package knowledge

import (
	"math"
	"sync"
	"time"
)

// ContentEntry is one discovered map feature: a monster spawn, a resource
// node, a workshop, or any other kind the registry's handlers report.
type ContentEntry struct {
	Kind           string
	Code           string
	X, Y           int
	Details        map[string]any
	EncounterCount int
	LastSeen       time.Time
}

// CombatRecord is one fight outcome against a monster.
type CombatRecord struct {
	MonsterCode   string
	Outcome       string // "win" or "loss"
	CharacterLevel int
	DamageTaken   int
	Timestamp     time.Time
}

// MonsterStats aggregates CombatRecords for one monster code.
type MonsterStats struct {
	Wins, Losses    int
	EstimatedDamage float64 // mean damage taken over wins
	EstimatedLevel  float64 // mean attacker (character) level over wins
}

// minWinRateSamples is the minimum number of within-proximity records
// MonsterWinRate requires before reporting a rate instead of "unknown"
// (spec.md §4.2).
const minWinRateSamples = 2

// levelProximity bounds how far a combat record's character level may be
// from the query level and still count toward MonsterWinRate.
const levelProximity = 2

// DefaultTileCacheDuration resolves spec.md §9's open question (map cache
// duration inconsistently 60s/180s/300s across the source): 180 seconds,
// configurable via agent.yaml (see internal/config).
const DefaultTileCacheDuration = 180 * time.Second

// Base is the in-memory Knowledge Base. It has no I/O of its own; Store
// wraps it with YAML snapshot persistence.
type Base struct {
	mu               sync.RWMutex
	content          []*ContentEntry
	combat           []CombatRecord
	stats            map[string]*MonsterStats
	tileCacheDuration time.Duration
}

// NewBase constructs an empty Knowledge Base with the default tile cache
// duration.
func NewBase() *Base {
	return &Base{
		stats:             make(map[string]*MonsterStats),
		tileCacheDuration: DefaultTileCacheDuration,
	}
}

// SetTileCacheDuration overrides the freshness window IsTileFresh uses.
func (b *Base) SetTileCacheDuration(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tileCacheDuration = d
}

// RecordContentDiscovery upserts a content entry at (x,y): if an entry with
// the same kind/code/coordinates already exists, its encounter counter is
// incremented and its timestamp refreshed; otherwise a new entry is added.
func (b *Base) RecordContentDiscovery(kind, code string, x, y int, details map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	for _, e := range b.content {
		if e.Kind == kind && e.Code == code && e.X == x && e.Y == y {
			e.EncounterCount++
			e.LastSeen = now
			if details != nil {
				if e.Details == nil {
					e.Details = make(map[string]any, len(details))
				}
				for k, v := range details {
					e.Details[k] = v
				}
			}
			return
		}
	}
	b.content = append(b.content, &ContentEntry{
		Kind:           kind,
		Code:           code,
		X:              x,
		Y:              y,
		Details:        details,
		EncounterCount: 1,
		LastSeen:       now,
	})
}

// RecordCombatResult appends a combat record and recomputes the monster's
// aggregate statistics: estimated damage and estimated level are the mean
// over winning fights only (spec.md §4.2).
func (b *Base) RecordCombatResult(monsterCode, outcome string, characterLevel, damageTaken int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	record := CombatRecord{
		MonsterCode:    monsterCode,
		Outcome:        outcome,
		CharacterLevel: characterLevel,
		DamageTaken:    damageTaken,
		Timestamp:      time.Now(),
	}
	b.combat = append(b.combat, record)

	stats, ok := b.stats[monsterCode]
	if !ok {
		stats = &MonsterStats{}
		b.stats[monsterCode] = stats
	}
	if outcome == "win" {
		stats.Wins++
	} else {
		stats.Losses++
	}

	var sumDamage, sumLevel float64
	var wins int
	for _, r := range b.combat {
		if r.MonsterCode != monsterCode || r.Outcome != "win" {
			continue
		}
		sumDamage += float64(r.DamageTaken)
		sumLevel += float64(r.CharacterLevel)
		wins++
	}
	if wins > 0 {
		stats.EstimatedDamage = sumDamage / float64(wins)
		stats.EstimatedLevel = sumLevel / float64(wins)
	}
}

// MonsterWinRate returns the win rate for code among combat records whose
// character level is within levelProximity of characterLevel. It requires
// at least minWinRateSamples such records; otherwise ok is false ("unknown"
// per spec.md §4.2).
func (b *Base) MonsterWinRate(code string, characterLevel int) (rate float64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var wins, total int
	for _, r := range b.combat {
		if r.MonsterCode != code {
			continue
		}
		if math.Abs(float64(r.CharacterLevel-characterLevel)) > levelProximity {
			continue
		}
		total++
		if r.Outcome == "win" {
			wins++
		}
	}
	if total < minWinRateSamples {
		return 0, false
	}
	return float64(wins) / float64(total), true
}

// MonsterStatsFor returns the aggregate stats recorded for code, if any.
func (b *Base) MonsterStatsFor(code string) (MonsterStats, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.stats[code]
	if !ok {
		return MonsterStats{}, false
	}
	return *s, true
}

// FindNearestKnown returns the nearest content entry of kind to (x,y) within
// maxDistance, using Chebyshev distance (max(|dx|,|dy|)), the same metric
// the game's grid movement uses for a single step.
func (b *Base) FindNearestKnown(kind string, x, y int, maxDistance float64) (nx, ny int, distance float64, found bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	best := math.Inf(1)
	var bestEntry *ContentEntry
	for _, e := range b.content {
		if e.Kind != kind {
			continue
		}
		d := chebyshev(e.X, e.Y, x, y)
		if d <= maxDistance && d < best {
			best = d
			bestEntry = e
		}
	}
	if bestEntry == nil {
		return 0, 0, 0, false
	}
	return bestEntry.X, bestEntry.Y, best, true
}

func chebyshev(x1, y1, x2, y2 int) float64 {
	dx := math.Abs(float64(x1 - x2))
	dy := math.Abs(float64(y1 - y2))
	return math.Max(dx, dy)
}

// IsTileFresh reports whether any content entry at (x,y) was last seen
// within the configured tile cache duration.
func (b *Base) IsTileFresh(x, y int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cutoff := time.Now().Add(-b.tileCacheDuration)
	for _, e := range b.content {
		if e.X == x && e.Y == y && e.LastSeen.After(cutoff) {
			return true
		}
	}
	return false
}

// snapshot is the YAML-serializable view of a Base, used by Store.
type snapshot struct {
	Content []*ContentEntry         `yaml:"content"`
	Combat  []CombatRecord          `yaml:"combat"`
	Stats   map[string]*MonsterStats `yaml:"stats"`
}

func (b *Base) toSnapshot() snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return snapshot{Content: b.content, Combat: b.combat, Stats: b.stats}
}

func (b *Base) loadSnapshot(s snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content = validContent(s.Content)
	b.combat = validCombat(s.Combat)
	if s.Stats != nil {
		b.stats = s.Stats
	} else {
		b.stats = make(map[string]*MonsterStats)
	}
}

// validContent drops malformed entries (empty kind/code or zero timestamp)
// rather than failing the whole load, per spec.md §4.2.
func validContent(in []*ContentEntry) []*ContentEntry {
	out := make([]*ContentEntry, 0, len(in))
	for _, e := range in {
		if e == nil || e.Kind == "" || e.Code == "" || e.LastSeen.IsZero() {
			continue
		}
		out = append(out, e)
	}
	return out
}

func validCombat(in []CombatRecord) []CombatRecord {
	out := make([]CombatRecord, 0, len(in))
	for _, r := range in {
		if r.MonsterCode == "" || (r.Outcome != "win" && r.Outcome != "loss") {
			continue
		}
		out = append(out, r)
	}
	return out
}
