// Package goal implements the Goal Manager of spec.md §4.7: YAML-loaded
// goal templates and priority-ordered selection rules, condition evaluation
// via worldstate.Matches, and target-state hydration. No business logic
// beyond condition evaluation and template substitution lives here — goal
// failure tracking and persistence weighting belong to the Mission
// Executor (internal/mission). The priority-sort-then-first-match shape is
// grounded on the teacher's project-priority ordering in
// internal/scheduler/chief.go.
package goal

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blentz/artifacts-goap/internal/worldstate"
)

// Template describes one goal: the partial state that satisfies it and any
// strategy overrides (hunt radius, safety priority, iteration cap).
type Template struct {
	TargetState map[string]any `yaml:"target_state"`
	Strategy    map[string]any `yaml:"strategy"`
}

// SelectionRule is one entry in goal_selection_rules: a priority, the goal
// it selects, and the condition that must match the current state.
type SelectionRule struct {
	GoalName  string         `yaml:"goal_name"`
	Priority  int            `yaml:"priority"`
	Condition map[string]any `yaml:"condition"`
}

// Strategy is the hydrated, threshold-defaulted view GetStrategy returns.
type Strategy struct {
	MaxIterations  int
	HuntRadius     int
	SafetyPriority bool
}

// Default strategy thresholds (spec.md §4.7 "global thresholds").
const (
	DefaultMaxIterations  = 50
	DefaultHuntRadius     = 10
	DefaultSafetyPriority = true
)

type configFile struct {
	GoalTemplates      map[string]Template `yaml:"goal_templates"`
	GoalSelectionRules []SelectionRule     `yaml:"goal_selection_rules"`
}

// Manager holds the loaded templates and selection rules.
type Manager struct {
	templates map[string]Template
	rules     []SelectionRule
}

// NewManager returns an empty Manager; LoadConfig populates it.
func NewManager() *Manager {
	return &Manager{templates: make(map[string]Template)}
}

// LoadConfig reads goal_templates.yaml at path.
func (m *Manager) LoadConfig(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("goal: reading %s: %w", path, err)
	}
	var cfg configFile
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("goal: parsing %s: %w", path, err)
	}
	if cfg.GoalTemplates != nil {
		m.templates = cfg.GoalTemplates
	}
	m.rules = cfg.GoalSelectionRules
	return nil
}

// GoalNames returns every loaded template's name, used by the Mission
// Executor to compute an available set once failed goals are excluded.
func (m *Manager) GoalNames() []string {
	out := make([]string, 0, len(m.templates))
	for name := range m.templates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Template returns the named template, if loaded.
func (m *Manager) Template(name string) (Template, bool) {
	t, ok := m.templates[name]
	return t, ok
}

// SelectGoal flattens all rules, sorts by priority descending, and returns
// the first whose goal_name is in available (or all goals if available is
// nil) and whose condition matches state. Ties in priority preserve the
// rules' declaration order (stable sort), keeping selection deterministic.
func (m *Manager) SelectGoal(state worldstate.WorldState, available []string) (name string, tmpl Template, ok bool) {
	var allowed map[string]bool
	if available != nil {
		allowed = make(map[string]bool, len(available))
		for _, a := range available {
			allowed[a] = true
		}
	}

	sorted := append([]SelectionRule(nil), m.rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })

	for _, rule := range sorted {
		if allowed != nil && !allowed[rule.GoalName] {
			continue
		}
		if !worldstate.Matches(state, toWorldState(rule.Condition)) {
			continue
		}
		t, exists := m.templates[rule.GoalName]
		if !exists {
			continue
		}
		return rule.GoalName, t, true
	}
	return "", Template{}, false
}

// Candidate is one selection rule that currently matches state, paired with
// its template.
type Candidate struct {
	GoalName string
	Template Template
	Priority int
}

// Candidates returns every matching rule (priority-descending, stable),
// rather than only the first. The Mission Executor uses this to apply
// persistence weighting on top of raw priority (spec.md §4.8) — a
// re-ranking decision that does not belong in the Goal Manager itself.
func (m *Manager) Candidates(state worldstate.WorldState, available []string) []Candidate {
	var allowed map[string]bool
	if available != nil {
		allowed = make(map[string]bool, len(available))
		for _, a := range available {
			allowed[a] = true
		}
	}

	sorted := append([]SelectionRule(nil), m.rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })

	var out []Candidate
	for _, rule := range sorted {
		if allowed != nil && !allowed[rule.GoalName] {
			continue
		}
		if !worldstate.Matches(state, toWorldState(rule.Condition)) {
			continue
		}
		t, exists := m.templates[rule.GoalName]
		if !exists {
			continue
		}
		out = append(out, Candidate{GoalName: rule.GoalName, Template: t, Priority: rule.Priority})
	}
	return out
}

// GenerateGoalState hydrates tmpl's target_state, substituting any
// "{param}" placeholders in string values from parameters (spec.md §4.7
// "simple string interpolation on values"). Non-string values pass through
// unchanged.
func GenerateGoalState(tmpl Template, parameters map[string]any) worldstate.WorldState {
	out := make(worldstate.WorldState, len(tmpl.TargetState))
	for k, v := range tmpl.TargetState {
		out[worldstate.StateParameter(k)] = substitute(v, parameters)
	}
	return out
}

func substitute(v any, parameters map[string]any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	for name, value := range parameters {
		placeholder := "{" + name + "}"
		if strings.Contains(s, placeholder) {
			s = strings.ReplaceAll(s, placeholder, fmt.Sprint(value))
		}
	}
	return s
}

// GetStrategy merges tmpl's strategy overrides with the global default
// thresholds.
func GetStrategy(tmpl Template) Strategy {
	s := Strategy{
		MaxIterations:  DefaultMaxIterations,
		HuntRadius:     DefaultHuntRadius,
		SafetyPriority: DefaultSafetyPriority,
	}
	if v, ok := tmpl.Strategy["max_iterations"]; ok {
		if n, ok := toInt(v); ok {
			s.MaxIterations = n
		}
	}
	if v, ok := tmpl.Strategy["hunt_radius"]; ok {
		if n, ok := toInt(v); ok {
			s.HuntRadius = n
		}
	}
	if v, ok := tmpl.Strategy["safety_priority"]; ok {
		if b, ok := v.(bool); ok {
			s.SafetyPriority = b
		}
	}
	return s
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func toWorldState(m map[string]any) worldstate.WorldState {
	out := make(worldstate.WorldState, len(m))
	for k, v := range m {
		out[worldstate.StateParameter(k)] = v
	}
	return out
}
