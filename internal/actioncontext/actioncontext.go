// Package actioncontext implements the per-mission scratchpad that carries
// parameters and results between actions within one plan (spec.md §4.3).
//
// The execution manager never inspects an action's parameters directly —
// actions read their inputs exclusively from the Context and write their
// outputs back to it under well-known worldstate.StateParameter keys. This
// is the fix for the "coordinate passing" bug described in spec.md §4.3:
// when one action writes target.x/target.y, the next action that reads
// those keys must see exactly what was written, untouched by anything in
// between.
package actioncontext

import (
	"sync"

	"github.com/blentz/artifacts-goap/internal/worldstate"
)

// identityKeys survive a Preserve([]) call because they identify the
// mission itself rather than scratch data for the current subplan.
var identityKeys = map[worldstate.StateParameter]bool{
	worldstate.CharacterLevel: true,
}

// Context is a typed key-value scratchpad, singular per mission.
type Context struct {
	mu     sync.Mutex
	values map[worldstate.StateParameter]any
	// results holds values written by SetResult; Get checks results first
	// so that an action handler's output shadows a caller-provided input
	// of the same key within the same step.
	results map[worldstate.StateParameter]any
}

// New creates an empty Context.
func New() *Context {
	return &Context{
		values:  make(map[worldstate.StateParameter]any),
		results: make(map[worldstate.StateParameter]any),
	}
}

// Get returns the value most recently written for key, preferring a value
// written via SetResult over one written via Set.
func (c *Context) Get(key worldstate.StateParameter) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.results[key]; ok {
		return v, true
	}
	v, ok := c.values[key]
	return v, ok
}

// Set writes a caller/plan-supplied parameter.
func (c *Context) Set(key worldstate.StateParameter, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// SetResult records an output produced by an action handler. Results take
// precedence over plan-supplied parameters on Get.
func (c *Context) SetResult(key worldstate.StateParameter, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[key] = value
}

// Snapshot returns the effective flat view (results shadowing values) as a
// worldstate.WorldState, useful for merging action outputs into the live
// world state.
func (c *Context) Snapshot() worldstate.WorldState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(worldstate.WorldState, len(c.values)+len(c.results))
	for k, v := range c.values {
		out[k] = v
	}
	for k, v := range c.results {
		out[k] = v
	}
	return out
}

// Clear drops all keys, including identity keys. Used at mission end.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[worldstate.StateParameter]any)
	c.results = make(map[worldstate.StateParameter]any)
}

// Preserve drops every key not listed in keep, except identity keys which
// always survive. Used between subplans when a subgoal completes and the
// parent plan resumes (spec.md §4.3, §4.6).
func (c *Context) Preserve(keep []worldstate.StateParameter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keepSet := make(map[worldstate.StateParameter]bool, len(keep))
	for _, k := range keep {
		keepSet[k] = true
	}

	filter := func(m map[worldstate.StateParameter]any) map[worldstate.StateParameter]any {
		out := make(map[worldstate.StateParameter]any, len(m))
		for k, v := range m {
			if keepSet[k] || identityKeys[k] {
				out[k] = v
			}
		}
		return out
	}

	c.values = filter(c.values)
	c.results = filter(c.results)
}
