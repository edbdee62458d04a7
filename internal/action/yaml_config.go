package action

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/blentz/artifacts-goap/internal/worldstate"
)

// declFile is the decoded shape of actions.yaml (spec.md §6).
type declFile struct {
	Actions map[string]actionDecl `yaml:"actions"`
}

type actionDecl struct {
	Conditions map[string]any `yaml:"conditions"`
	Reactions  map[string]any `yaml:"reactions"`
	Weight     float64        `yaml:"weight"`
}

// LoadDeclarations reads actions.yaml at path and applies each action's
// conditions/reactions/weight to the registry. An action named in the file
// with no Go handler registered yet is created with a nil handler and will
// fail with ErrorInvalid if scheduled before Register is called.
func (r *Registry) LoadDeclarations(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading actions config %s: %w", path, err)
	}

	var decoded declFile
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("parsing actions config %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for name, decl := range decoded.Actions {
		a, ok := r.actions[name]
		if !ok {
			a = &Action{Name: name}
			r.actions[name] = a
		}
		a.Preconditions = toWorldState(decl.Conditions)
		a.Effects = toWorldState(decl.Reactions)
		a.Weight = decl.Weight
		if a.Weight <= 0 {
			a.Weight = 1
		}
	}
	return nil
}

func toWorldState(m map[string]any) worldstate.WorldState {
	out := make(worldstate.WorldState, len(m))
	for k, v := range m {
		out[worldstate.StateParameter(k)] = normalizeYAMLValue(v)
	}
	return out
}

// normalizeYAMLValue returns yaml.v3's decoded scalars unchanged
// (worldstate.Matches coerces int and float64 itself when comparing numbers)
// and rebuilds list conditions element by element for the membership
// operator.
func normalizeYAMLValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeYAMLValue(item)
		}
		return out
	default:
		return v
	}
}
