// Package gameapi defines the opaque transport boundary between the core
// runtime and the game's public HTTP API (spec.md §1 "out of scope"). Only
// the interface the core depends on lives here; the concrete HTTP
// implementation is a collaborator the core treats as a black box.
package gameapi

import (
	"context"
	"time"
)

// Client is the set of game RPCs an action handler may call. The core never
// type-asserts a Client to a concrete type; every handler depends on this
// interface so it can be faked in tests.
type Client interface {
	GetCharacter(ctx context.Context, name string) (CharacterResponse, error)
	MoveCharacter(ctx context.Context, name string, x, y int) (CharacterResponse, error)
	GatherAt(ctx context.Context, name string) (GatherResponse, error)
	FightAt(ctx context.Context, name string) (FightResponse, error)
	CraftItem(ctx context.Context, name, itemCode string, quantity int) (CraftResponse, error)
	RestCharacter(ctx context.Context, name string) (CharacterResponse, error)
	GetMap(ctx context.Context, x, y int) (MapTile, error)
	ScanMonsters(ctx context.Context, x, y, radius int) ([]MonsterSchema, error)
}

// Character mirrors the subset of the game's character schema the runtime
// consumes. Extra fields on the real API response are intentionally not
// modeled here; spec.md §9 rejects a reflective "copy every attribute"
// adapter in favor of named, typed extraction (see internal/gameapi/extract.go).
type Character struct {
	Name              string
	Level             int
	HP                int
	MaxHP             int
	XP                int
	X, Y              int
	Weapon            string
	InventorySlotsMax int
	InventorySlotsUse int
}

// CharacterResponse wraps a Character with the cooldown metadata the
// cooldown manager needs (spec.md §4.9).
type CharacterResponse struct {
	Character          Character
	CooldownExpiration time.Time // zero value means "absent"
	CooldownSeconds    int       // legacy field, used only when CooldownExpiration is zero
}

// FightResponse carries combat outcome data.
type FightResponse struct {
	CharacterResponse
	Won        bool
	MonsterCode string
	DamageTaken int
	XPGained    int
}

// GatherResponse carries gathering outcome data.
type GatherResponse struct {
	CharacterResponse
	ItemCode string
	Quantity int
}

// CraftResponse carries crafting outcome data.
type CraftResponse struct {
	CharacterResponse
	ItemCode string
	Quantity int
}

// MapTile describes the content of a single map cell.
type MapTile struct {
	X, Y    int
	Kind    string // "monster", "resource", "workshop", "empty"
	Code    string
	ScanAt  time.Time
}

// MonsterSchema describes a monster's static attributes as reported by the
// game's monster lookup RPC.
type MonsterSchema struct {
	Code  string
	Level int
	X, Y  int
}

// ErrorKind classifies a transport-level failure so the execution manager
// can apply spec.md §7's propagation policy without string-matching scattered
// throughout action handlers.
type ErrorKind string

const (
	ErrorCooldown     ErrorKind = "cooldown"
	ErrorNotFound     ErrorKind = "not_found"
	ErrorInvalidState ErrorKind = "invalid_state" // e.g. "already at this location"
	ErrorForbidden    ErrorKind = "forbidden"     // e.g. "action is not allowed"
	ErrorTransport    ErrorKind = "transport"
)

// APIError is the error type returned by Client implementations. Classify
// extracts an ErrorKind from it without the caller needing to know the
// underlying transport.
type APIError struct {
	Kind    ErrorKind
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Classify returns the ErrorKind of err, or ErrorTransport if err is not an
// *APIError (e.g. a raw network failure).
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Kind
	}
	return ErrorTransport
}
