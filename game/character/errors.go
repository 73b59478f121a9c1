package character

import "github.com/duskhollow/server/game"

var (
	ErrInvalidName       = game.Invalid("name must be 2-24 letters, digits, spaces, ' or -")
	ErrNameTaken         = game.Invalid("character name already taken")
	ErrTooManyCharacters = game.Invalid("character limit reached")
	ErrUnknownClass      = game.Invalid("unknown class")
	ErrInDungeon         = game.Conflict("character is in a dungeon")
	ErrBusy              = game.Conflict("character is busy")
	ErrAlreadyHealthy    = game.Conflict("character is already at full health")
	ErrBadLaborHours     = game.Invalid("invalid number of labor hours")
	ErrNotLaboring       = game.Conflict("character is not working")
	ErrLaborNotFinished  = game.Conflict("labor shift has not finished yet")
	ErrNotEquippable     = game.Invalid("item cannot be equipped")
	ErrNotEquipped       = game.Conflict("item is not equipped")
	ErrNotConsumable     = game.Invalid("item cannot be used")
	ErrItemEquipped      = game.Conflict("unequip the item before selling it")
	ErrImageGenDisabled  = game.Unavailable("portrait generation is not configured")
)
