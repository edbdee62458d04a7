package gameapi

import (
	"time"

	"github.com/blentz/artifacts-goap/internal/worldstate"
)

func extractCharacterResponse(env *wireEnvelope) CharacterResponse {
	wc := env.Data.Character
	out := CharacterResponse{
		Character: Character{
			Name:              wc.Name,
			Level:             wc.Level,
			HP:                wc.HP,
			MaxHP:             wc.MaxHP,
			XP:                wc.XP,
			X:                 wc.X,
			Y:                 wc.Y,
			Weapon:            wc.Weapon,
			InventorySlotsMax: wc.InventoryMaxItems,
			InventorySlotsUse: wc.InventoryItemCount,
		},
		CooldownSeconds: wc.Cooldown,
	}
	if wc.CooldownExpiration != "" {
		if t, err := time.Parse(time.RFC3339, wc.CooldownExpiration); err == nil {
			out.CooldownExpiration = t
		}
	}
	return out
}

// ExtractCharacterState is the typed adapter named in spec.md §9: it writes
// only known worldstate.StateParameter keys from a CharacterResponse,
// instead of reflectively mirroring every field on the wire struct. This is
// the single place HP percentage, cooldown-until and location get derived
// from a character payload.
func ExtractCharacterState(resp CharacterResponse) worldstate.WorldState {
	c := resp.Character
	out := worldstate.WorldState{
		worldstate.CharacterAlive:  c.HP > 0,
		worldstate.CharacterLevel:  c.Level,
		worldstate.CharacterHP:     c.HP,
		worldstate.CharacterMaxHP:  c.MaxHP,
		worldstate.CharacterXP:     c.XP,
		worldstate.LocationX:       c.X,
		worldstate.LocationY:       c.Y,
		worldstate.EquipmentWeapon: c.Weapon,
	}
	if c.MaxHP > 0 {
		out[worldstate.CharacterHPPercentage] = 100.0 * float64(c.HP) / float64(c.MaxHP)
	}
	if c.InventorySlotsMax > 0 {
		out[worldstate.InventorySlotsFree] = c.InventorySlotsMax - c.InventorySlotsUse
	}
	if !resp.CooldownExpiration.IsZero() {
		out[worldstate.CharacterCooldownUntil] = resp.CooldownExpiration
	}
	return out
}

// ExtractFightState adapts a fight outcome into worldstate writes, layered
// on top of ExtractCharacterState.
func ExtractFightState(resp FightResponse) worldstate.WorldState {
	out := ExtractCharacterState(resp.CharacterResponse)
	status := "defeated"
	if resp.Won {
		status = "completed"
	}
	out[worldstate.CombatStatus] = status
	return out
}

// ExtractGatherState adapts a gather outcome.
func ExtractGatherState(resp GatherResponse) worldstate.WorldState {
	out := ExtractCharacterState(resp.CharacterResponse)
	out[worldstate.MaterialsHaveRequired] = resp.Quantity > 0
	return out
}
