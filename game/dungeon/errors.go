package dungeon

import "github.com/duskhollow/server/game"

var (
	ErrNotActive         = game.Conflict("dungeon is not active")
	ErrAlreadyActive     = game.Conflict("character already has an active dungeon")
	ErrBusy              = game.Conflict("character is busy")
	ErrNoHP              = game.Conflict("character must be healed before entering a dungeon")
	ErrEncounterPending  = game.Conflict("resolve the current encounter first")
	ErrNoCombat          = game.Conflict("no combat in progress")
	ErrNoTrap            = game.Conflict("no trap to resolve")
	ErrAllCleared        = game.Conflict("every stage is cleared; complete the dungeon")
	ErrNotCleared        = game.Conflict("the dungeon is not cleared yet")
	ErrNoLoot            = game.Conflict("there is no loot to pick up")
	ErrInventoryFull     = game.Invalid("temporary inventory is full")
	ErrBadLootIndex      = game.Invalid("invalid loot index")
	ErrUnknownDifficulty = game.Invalid("unknown difficulty")
)
