package worldstate

import (
	"fmt"
	"sort"
	"strings"
)

// CanonicalHash returns a stable string representation of state suitable for
// dedup keys in the planner's frontier (spec.md §4.5 "dedupe by canonical
// state hash"). Keys are sorted so that two maps with identical contents
// hash identically regardless of insertion order.
func CanonicalHash(state WorldState) string {
	keys := make([]StateParameter, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, state[k])
	}
	return b.String()
}
