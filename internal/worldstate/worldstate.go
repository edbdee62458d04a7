package worldstate

import (
	"fmt"
	"strconv"
	"strings"
)

// WorldState is an immutable-by-convention mapping from StateParameter to a
// scalar value (bool, int, float64, string, or nil). Callers never mutate a
// WorldState value in place; Merge and Clone always return a new map so that
// the planner can explore speculative states without touching the live
// state (spec.md §3 "State is copy-on-write").
type WorldState map[StateParameter]any

// A key that has never been written has no sentinel value: Get's ok return
// is false for it, which distinguishes it from a stored false/0/"".

// Get returns the value for key and whether it has ever been set.
func (s WorldState) Get(key StateParameter) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s[key]
	return v, ok
}

// Clone returns a shallow copy. Values are scalars so a shallow copy is a
// full copy.
func (s WorldState) Clone() WorldState {
	out := make(WorldState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ByPrefix materializes the nested view of all keys sharing a dotted domain
// prefix, keyed by their leaf name. This is built on demand, never stored.
func (s WorldState) ByPrefix(prefix string) map[string]any {
	out := make(map[string]any)
	for k, v := range s {
		if k.Prefix() == prefix {
			out[k.Leaf()] = v
		}
	}
	return out
}

// Merge overlays partial onto a clone of s and returns the result. Neither s
// nor partial is mutated.
func Merge(s, partial WorldState) WorldState {
	out := s.Clone()
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// Diff returns the subset of keys present in b whose value differs from a
// (including keys absent from a).
func Diff(a, b WorldState) WorldState {
	out := make(WorldState)
	for k, v := range b {
		if av, ok := a[k]; !ok || av != v {
			out[k] = v
		}
	}
	return out
}

// Matches reports whether state satisfies every condition in partial.
// Supported condition value shapes:
//
//   - scalar: value equality
//   - []any: list membership (state value ∈ list)
//   - string with a comparator prefix: ">=", "<=", "<", ">", "!null", "null"
//     — numeric comparisons coerce both sides to float64.
func Matches(state, partial WorldState) bool {
	for key, want := range partial {
		got, ok := state.Get(key)
		if !matchOne(got, ok, want) {
			return false
		}
	}
	return true
}

func matchOne(got any, ok bool, want any) bool {
	switch w := want.(type) {
	case string:
		if cmp, operand, isCmp := splitComparator(w); isCmp {
			return evalComparator(got, ok, cmp, operand)
		}
		return ok && fmt.Sprint(got) == w
	case []any:
		if !ok {
			return false
		}
		for _, item := range w {
			if item == got {
				return true
			}
		}
		return false
	default:
		return ok && got == want
	}
}

var comparators = []string{">=", "<=", "!=", "<", ">"}

func splitComparator(s string) (cmp, operand string, isCmp bool) {
	switch {
	case s == "!null" || s == "null":
		return s, "", true
	}
	for _, c := range comparators {
		if strings.HasPrefix(s, c) {
			return c, strings.TrimSpace(strings.TrimPrefix(s, c)), true
		}
	}
	return "", "", false
}

func evalComparator(got any, ok bool, cmp, operand string) bool {
	switch cmp {
	case "null":
		return !ok || got == nil
	case "!null":
		return ok && got != nil
	}
	if !ok {
		return false
	}
	gotF, gotIsNum := toFloat(got)
	wantF, wantErr := strconv.ParseFloat(operand, 64)
	if !gotIsNum || wantErr != nil {
		return false
	}
	switch cmp {
	case ">=":
		return gotF >= wantF
	case "<=":
		return gotF <= wantF
	case "<":
		return gotF < wantF
	case ">":
		return gotF > wantF
	case "!=":
		return gotF != wantF
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// UnsatisfiedKeys returns the keys of partial that state does not satisfy,
// used by the planner to report a no-plan reason (spec.md §4.5).
func UnsatisfiedKeys(state, partial WorldState) []StateParameter {
	var out []StateParameter
	for key, want := range partial {
		got, ok := state.Get(key)
		if !matchOne(got, ok, want) {
			out = append(out, key)
		}
	}
	return out
}
