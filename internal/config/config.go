// Package config loads and validates the agent's YAML runtime configuration
// (SPEC_FULL.md A.1). The shape — a Duration wrapper with custom
// (Un)MarshalYAML, a Config struct assembled from section structs, a
// Clone() deep copy and a Validate() pass — mirrors the teacher's TOML
// config package, ported to YAML because spec.md §6 specifies the GOAP data
// files (goal_templates.yaml, actions.yaml) as YAML and agent.yaml follows
// the same decoder for one consistent config surface.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "60s"
// or "2m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// API configures the game API client (internal/gameapi).
type API struct {
	BaseURL           string   `yaml:"base_url"`
	Token             string   `yaml:"token"`
	Character         string   `yaml:"character"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
	Timeout           Duration `yaml:"timeout"`
}

// Mission configures the Mission Executor (internal/mission).
type Mission struct {
	TargetLevel          int      `yaml:"target_level"`
	MaxMissionIterations int      `yaml:"max_mission_iterations"`
	MaxGoalFailures      int      `yaml:"max_goal_failures"`
	PersistenceBonusBase float64  `yaml:"persistence_bonus_base"`
	HuntingGoalName      string   `yaml:"hunting_goal_name"`
	SafetyGoalName       string   `yaml:"safety_goal_name"`
	TickInterval         Duration `yaml:"tick_interval"`
}

// GOAP configures the planner (internal/goap).
type GOAP struct {
	MaxNodeBudget int `yaml:"max_node_budget"`
}

// Thresholds holds the global defaults spec.md §6 names explicitly, plus
// the stuck-mission window this expansion adds (SPEC_FULL.md D.3).
type Thresholds struct {
	MaxGOAPIterations            int      `yaml:"max_goap_iterations"`
	DefaultSearchRadius          int      `yaml:"default_search_radius"`
	HPSafePercentage             int      `yaml:"hp_safe_percentage"`
	CooldownRefreshCacheDuration Duration `yaml:"cooldown_refresh_cache_duration"`
	TileCacheDuration            Duration `yaml:"tile_cache_duration"`
	StuckWindow                  int      `yaml:"stuck_window"`
	StuckThreshold               float64  `yaml:"stuck_threshold"`
}

// Hunt exposes the monster-selection weight formula spec.md §9 leaves open
// (distance vs. win-rate) as configuration instead of a magic constant
// (SPEC_FULL.md C.5).
type Hunt struct {
	DistanceWeight float64 `yaml:"distance_weight"`
	WinRateWeight  float64 `yaml:"win_rate_weight"`
}

// Paths names every file the core reads or writes (spec.md §6).
type Paths struct {
	GoalTemplates string `yaml:"goal_templates"`
	Actions       string `yaml:"actions"`
	WorldState    string `yaml:"world_state"`
	Knowledge     string `yaml:"knowledge"`
	Map           string `yaml:"map"`
}

// Logging configures log/slog construction (SPEC_FULL.md A.2).
type Logging struct {
	Level string `yaml:"level"`
	Dev   bool   `yaml:"dev"`
}

// Temporal configures the optional durable front end (internal/temporalrt,
// SPEC_FULL.md D.4). It is only consulted by cmd/agent-temporal.
type Temporal struct {
	HostPort  string `yaml:"host_port"`
	TaskQueue string `yaml:"task_queue"`
}

// Config is the top-level agent.yaml shape.
type Config struct {
	API        API        `yaml:"api"`
	Mission    Mission    `yaml:"mission"`
	GOAP       GOAP       `yaml:"goap"`
	Thresholds Thresholds `yaml:"thresholds"`
	Hunt       Hunt       `yaml:"hunt"`
	Paths      Paths      `yaml:"paths"`
	Logging    Logging    `yaml:"logging"`
	Temporal   Temporal   `yaml:"temporal"`
}

// Default returns a Config with every threshold spec.md §6 and
// SPEC_FULL.md name explicitly, so a caller that loads no file at all still
// gets a runnable configuration.
func Default() Config {
	return Config{
		API: API{
			BaseURL:           "https://api.artifactsmmo.com",
			RequestsPerSecond: 3,
			Burst:             3,
			Timeout:           Duration{15 * time.Second},
		},
		Mission: Mission{
			TargetLevel:          2,
			MaxMissionIterations: 100,
			MaxGoalFailures:      3,
			PersistenceBonusBase: 10,
			HuntingGoalName:      "hunt_monsters",
			SafetyGoalName:       "get_healthy",
			TickInterval:         Duration{2 * time.Second},
		},
		GOAP: GOAP{MaxNodeBudget: 500},
		Thresholds: Thresholds{
			MaxGOAPIterations:            50,
			DefaultSearchRadius:          2,
			HPSafePercentage:             30,
			CooldownRefreshCacheDuration: Duration{5 * time.Second},
			TileCacheDuration:            Duration{180 * time.Second},
			StuckWindow:                  5,
			StuckThreshold:               0.05,
		},
		Hunt: Hunt{DistanceWeight: 0.1, WinRateWeight: 1.0},
		Paths: Paths{
			GoalTemplates: "config/goal_templates.yaml",
			Actions:       "config/actions.yaml",
			WorldState:    "state/world.yaml",
			Knowledge:     "state/knowledge.yaml",
			Map:           "state/map.yaml",
		},
		Logging:  Logging{Level: "info"},
		Temporal: Temporal{HostPort: "127.0.0.1:7233", TaskQueue: "artifacts-goap-task-queue"},
	}
}

// Load reads and parses path, overlaying decoded values onto Default() so a
// partial file only needs to name what it overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects a Config that would make the mission loop meaningless,
// matching the teacher's validation pass over its own TOML sections.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Character == "" {
		return fmt.Errorf("api.character is required")
	}
	if c.Mission.TargetLevel <= 0 {
		return fmt.Errorf("mission.target_level must be positive")
	}
	if c.Mission.MaxMissionIterations <= 0 {
		return fmt.Errorf("mission.max_mission_iterations must be positive")
	}
	if c.GOAP.MaxNodeBudget <= 0 {
		return fmt.Errorf("goap.max_node_budget must be positive")
	}
	if c.Thresholds.HPSafePercentage < 0 || c.Thresholds.HPSafePercentage > 100 {
		return fmt.Errorf("thresholds.hp_safe_percentage must be within [0,100]")
	}
	if c.Paths.GoalTemplates == "" || c.Paths.Actions == "" {
		return fmt.Errorf("paths.goal_templates and paths.actions are required")
	}
	return nil
}

// Clone returns a deep copy; every field here is a value type so a shallow
// struct copy already is a deep copy, but Clone exists to keep the call
// site explicit about intent (the teacher's ConfigManager hands out Clone()
// results, never pointers into the guarded config).
func (c Config) Clone() Config {
	return c
}
