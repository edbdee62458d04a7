// Package actions is the concrete action set the core (internal/action)
// requires but spec.md §1 places out of scope beyond conformance to the
// contract: "individual action implementations (movement, attack, gather,
// craft, rest...) beyond their conformance to the action contract." This
// package supplies a reference implementation — the same named actions the
// spec's own literal scenarios (§8) describe — so the runtime is actually
// runnable, grounded on the teacher's habit of a thin handler that does one
// API call, classifies its error through the shared helper, and writes only
// named StateParameter keys back (spec.md §9's typed-adapter principle).
package actions

import (
	"context"
	"fmt"
	"math"

	"github.com/blentz/artifacts-goap/internal/action"
	"github.com/blentz/artifacts-goap/internal/actioncontext"
	"github.com/blentz/artifacts-goap/internal/config"
	"github.com/blentz/artifacts-goap/internal/gameapi"
	"github.com/blentz/artifacts-goap/internal/knowledge"
	"github.com/blentz/artifacts-goap/internal/worldstate"
)

// safeHPPercentage mirrors internal/mission's safety threshold; attack uses
// it locally to decide whether to request the get_healthy subgoal (spec.md
// §8 scenario 4).
const safeHPPercentage = 30.0

// Deps bundles what every handler closure needs beyond the fixed
// (ctx, api, actx) signature action.Handler allows.
type Deps struct {
	Character string
	Knowledge *knowledge.Store
	Hunt      config.Hunt
	HuntRadius int
}

// Register binds every reference handler into reg under the name
// actions.yaml declares preconditions/effects/weight for. Go handler names
// and actions.yaml's keys are matched by this string, not by reflection
// (spec.md §9 rejects reflective discovery for the planner's own
// declarations; the same discipline applies to wiring handlers).
func Register(reg *action.Registry, d Deps) {
	reg.Register("find_monsters", findMonsters(d))
	reg.Register("move", move(d))
	reg.Register("attack", attack(d))
	reg.Register("rest", rest(d))
	reg.Register("gather", gather(d))
	reg.Register("craft", craft(d))
	reg.Register("scan_map", scanMap(d))
}

// findMonsters picks a target monster from the Knowledge Base (or scans the
// map when nothing is known nearby) and writes its coordinates to the
// ActionContext for move/attack to consume unchanged (spec.md §4.3's
// coordinate-passing contract). The monster code (combat_context.combat_target)
// is written only when the target comes from a scan; a target found in the
// Knowledge Base writes coordinates only. The distance-vs-win-rate weighting spec.md
// §9 leaves as an open question is resolved here as two configured weights
// (SPEC_FULL.md C.5) instead of a magic constant.
func findMonsters(d Deps) action.Handler {
	return func(ctx context.Context, api gameapi.Client, actx *actioncontext.Context) action.Result {
		x, y := currentLocation(actx)

		nx, ny, _, found := d.Knowledge.Base().FindNearestKnown("monster", x, y, float64(d.HuntRadius))
		if !found {
			tiles, err := api.ScanMonsters(ctx, x, y, d.HuntRadius)
			if err != nil {
				return action.Result{Error: action.ClassifyAPIError(err)}
			}
			best, ok := pickMonster(tiles, x, y, d.Hunt, d.Knowledge)
			if !ok {
				return action.Result{Error: &action.Error{Kind: action.ErrorPrecondition, Message: "no monster found within hunt radius"}}
			}
			nx, ny = best.X, best.Y
			d.Knowledge.RecordContentDiscovery("monster", best.Code, best.X, best.Y, map[string]any{"level": best.Level})
			actx.SetResult(worldstate.CombatTargetK, best.Code)
		}

		actx.SetResult(worldstate.TargetX, nx)
		actx.SetResult(worldstate.TargetY, ny)

		return action.Result{
			Success: true,
			Data: worldstate.WorldState{
				worldstate.CombatStatus: "ready",
				worldstate.TargetX:      nx,
				worldstate.TargetY:      ny,
			},
		}
	}
}

// pickMonster scores each scanned monster by
// winRateWeight*winRate - distanceWeight*distance (spec.md §9's open
// question, resolved as configuration rather than a hardcoded constant),
// treating an unknown win rate as neutral (0.5) so a never-fought monster
// isn't automatically deprioritized.
func pickMonster(tiles []gameapi.MonsterSchema, x, y int, hunt config.Hunt, kb *knowledge.Store) (gameapi.MonsterSchema, bool) {
	if len(tiles) == 0 {
		return gameapi.MonsterSchema{}, false
	}
	best := tiles[0]
	bestScore := math.Inf(-1)
	for _, t := range tiles {
		dist := chebyshev(t.X, t.Y, x, y)
		winRate, known := kb.Base().MonsterWinRate(t.Code, t.Level)
		if !known {
			winRate = 0.5
		}
		score := hunt.WinRateWeight*winRate - hunt.DistanceWeight*dist
		if score > bestScore {
			bestScore = score
			best = t
		}
	}
	return best, true
}

func chebyshev(x1, y1, x2, y2 int) float64 {
	dx := math.Abs(float64(x1 - x2))
	dy := math.Abs(float64(y1 - y2))
	return math.Max(dx, dy)
}

// move reads target.x/target.y from the ActionContext exactly as
// find_monsters wrote them (spec.md §4.3's coordinate bug fix) and moves the
// character there.
func move(d Deps) action.Handler {
	return func(ctx context.Context, api gameapi.Client, actx *actioncontext.Context) action.Result {
		x, ok1 := actx.Get(worldstate.TargetX)
		y, ok2 := actx.Get(worldstate.TargetY)
		if !ok1 || !ok2 {
			return action.Result{Error: &action.Error{Kind: action.ErrorPrecondition, Message: "move: no target coordinates in action context"}}
		}
		xi, yi := toInt(x), toInt(y)

		resp, err := api.MoveCharacter(ctx, d.Character, xi, yi)
		if err != nil {
			return action.Result{Error: action.ClassifyAPIError(err)}
		}
		data := gameapi.ExtractCharacterState(resp)
		data[worldstate.LocationAtTarget] = true
		return action.Result{Success: true, Data: data}
	}
}

// attack fights the monster find_monsters targeted, records the outcome in
// the Knowledge Base (spec.md §4.2), and — when the fight leaves the
// character below the safe HP threshold — requests the get_healthy subgoal
// instead of letting the mission discover low HP on its next iteration
// (spec.md §8 scenario 4, §3 "composite actions become subgoal requests").
func attack(d Deps) action.Handler {
	return func(ctx context.Context, api gameapi.Client, actx *actioncontext.Context) action.Result {
		resp, err := api.FightAt(ctx, d.Character)
		if err != nil {
			return action.Result{Error: action.ClassifyAPIError(err)}
		}

		data := gameapi.ExtractFightState(resp)

		outcome := "loss"
		if resp.Won {
			outcome = "win"
		}
		if resp.MonsterCode != "" {
			d.Knowledge.RecordCombatResult(resp.MonsterCode, outcome, resp.Character.Level, resp.DamageTaken)
		}

		result := action.Result{Success: true, Data: data}

		if resp.Character.MaxHP > 0 {
			hpPct := 100.0 * float64(resp.Character.HP) / float64(resp.Character.MaxHP)
			if hpPct < safeHPPercentage {
				result.Subgoal = &action.SubgoalRequest{GoalName: "get_healthy"}
			}
		}
		return result
	}
}

// rest restores HP via the game's rest action.
func rest(d Deps) action.Handler {
	return func(ctx context.Context, api gameapi.Client, actx *actioncontext.Context) action.Result {
		resp, err := api.RestCharacter(ctx, d.Character)
		if err != nil {
			return action.Result{Error: action.ClassifyAPIError(err)}
		}
		return action.Result{Success: true, Data: gameapi.ExtractCharacterState(resp)}
	}
}

// gather collects a resource at the character's current location.
func gather(d Deps) action.Handler {
	return func(ctx context.Context, api gameapi.Client, actx *actioncontext.Context) action.Result {
		resp, err := api.GatherAt(ctx, d.Character)
		if err != nil {
			return action.Result{Error: action.ClassifyAPIError(err)}
		}
		return action.Result{Success: true, Data: gameapi.ExtractGatherState(resp)}
	}
}

// craft reads the item code find_monsters-style prior steps wrote to
// target.item_code and crafts one unit.
func craft(d Deps) action.Handler {
	return func(ctx context.Context, api gameapi.Client, actx *actioncontext.Context) action.Result {
		code, ok := actx.Get(worldstate.ItemCode)
		if !ok {
			return action.Result{Error: &action.Error{Kind: action.ErrorPrecondition, Message: "craft: no item code in action context"}}
		}
		codeStr := fmt.Sprint(code)

		resp, err := api.CraftItem(ctx, d.Character, codeStr, 1)
		if err != nil {
			return action.Result{Error: action.ClassifyAPIError(err)}
		}
		data := gameapi.ExtractCharacterState(resp.CharacterResponse)
		data[worldstate.MaterialsHaveRequired] = false
		return action.Result{Success: true, Data: data}
	}
}

// scanMap records the content at the character's current tile so later
// find_monsters/find_resources calls can serve it from the Knowledge Base
// without another round trip within the tile's cache duration.
func scanMap(d Deps) action.Handler {
	return func(ctx context.Context, api gameapi.Client, actx *actioncontext.Context) action.Result {
		x, y := currentLocation(actx)
		tile, err := api.GetMap(ctx, x, y)
		if err != nil {
			return action.Result{Error: action.ClassifyAPIError(err)}
		}
		if tile.Kind != "" && tile.Kind != "empty" {
			d.Knowledge.RecordContentDiscovery(tile.Kind, tile.Code, x, y, nil)
		}
		return action.Result{Success: true}
	}
}

func currentLocation(actx *actioncontext.Context) (int, int) {
	x, _ := actx.Get(worldstate.LocationX)
	y, _ := actx.Get(worldstate.LocationY)
	return toInt(x), toInt(y)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
