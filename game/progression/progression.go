// Package progression holds the experience curve, level-up growth and gold
// accounting rules shared by every payout path.
package progression

import (
	"fmt"

	"github.com/duskhollow/server/game"
	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/resource"
)

const MaxLevel = 50

var (
	ErrNegativeReward    = game.Invalid("rewards must be non-negative")
	ErrInsufficientGold  = game.PaymentRequired("insufficient gold")
	ErrInvalidGoldAmount = game.Invalid("gold amount must be positive")
)

// ExpToNext is the experience needed to go from level to level+1.
func ExpToNext(level int) int64 {
	l := int64(level)
	return 100*l + 25*l*(l-1)
}

// LevelResult describes what ApplyExperience changed.
type LevelResult struct {
	OldLevel int   `json:"old_level"`
	NewLevel int   `json:"new_level"`
	Gained   int64 `json:"gained"`
	ToNext   int64 `json:"to_next"` // 0 at max level
}

// LevelsGained is NewLevel - OldLevel.
func (r LevelResult) LevelsGained() int { return r.NewLevel - r.OldLevel }

// ApplyExperience adds exp to the character and applies every level-up it
// earns. Experience carries over between levels. Each level-up applies the
// class growth and restores HP and resource to full. At MaxLevel the
// experience bar stays at zero.
func ApplyExperience(c *model.Character, class *resource.Class, exp int64) LevelResult {
	res := LevelResult{OldLevel: c.Level, Gained: exp}
	if c.Level >= MaxLevel {
		c.Level = MaxLevel
		c.Experience = 0
		res.NewLevel = MaxLevel
		return res
	}

	c.Experience += exp
	for c.Level < MaxLevel && c.Experience >= ExpToNext(c.Level) {
		c.Experience -= ExpToNext(c.Level)
		c.Level++
		grow(c, class)
	}
	if c.Level >= MaxLevel {
		c.Experience = 0
	} else {
		res.ToNext = ExpToNext(c.Level) - c.Experience
	}
	res.NewLevel = c.Level
	return res
}

func grow(c *model.Character, class *resource.Class) {
	if class != nil {
		g := class.Growth
		c.MaxHP += g.HP
		c.MaxResource += g.Resource
		c.Strength += g.Str
		c.Agility += g.Agi
		c.Intelligence += g.Int
		c.Vitality += g.Vit
	}
	c.HP = c.MaxHP
	c.Resource = c.MaxResource
}

// NewCharacter builds a level 1 character from a class's base stats.
func NewCharacter(userID, name string, class *resource.Class, gold int64) *model.Character {
	b := class.Base
	return &model.Character{
		ID:           model.NewID(),
		UserID:       userID,
		Name:         name,
		Class:        class.Key,
		Level:        1,
		Gold:         gold,
		HP:           b.HP,
		MaxHP:        b.HP,
		Resource:     b.Resource,
		MaxResource:  b.Resource,
		ResourceKind: class.ResourceKind,
		Strength:     b.Str,
		Agility:      b.Agi,
		Intelligence: b.Int,
		Vitality:     b.Vit,
	}
}

// ValidateReward rejects negative experience or gold.
func ValidateReward(exp, gold int64) error {
	if exp < 0 || gold < 0 {
		return ErrNegativeReward
	}
	return nil
}

// AddGold credits a non-negative amount.
func AddGold(c *model.Character, amount int64) error {
	if amount < 0 {
		return ErrNegativeReward
	}
	c.Gold += amount
	return nil
}

// SpendGold debits amount, refusing to go below zero.
func SpendGold(c *model.Character, amount int64) error {
	if amount <= 0 {
		return ErrInvalidGoldAmount
	}
	if c.Gold < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientGold, c.Gold, amount)
	}
	c.Gold -= amount
	return nil
}

// Reward applies a validated experience and gold payout.
func Reward(c *model.Character, class *resource.Class, exp, gold int64) (LevelResult, error) {
	if err := ValidateReward(exp, gold); err != nil {
		return LevelResult{}, err
	}
	c.Gold += gold
	return ApplyExperience(c, class, exp), nil
}
