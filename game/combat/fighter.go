package combat

import (
	"github.com/duskhollow/server/game/formula"
	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/resource"
)

const (
	baseCrit = 5
	maxCrit  = 30
)

// Fighter is a character with its class and equipment resolved.
type Fighter struct {
	Char   *model.Character
	Class  *resource.Class
	Weapon *model.Item
	Armor  *model.Item
}

// NewFighter resolves equipped weapon and armor from the character's items.
func NewFighter(c *model.Character, class *resource.Class, items []model.Item) *Fighter {
	f := &Fighter{Char: c, Class: class}
	for i := range items {
		it := &items[i]
		if !it.Equipped {
			continue
		}
		switch {
		case it.ID == c.WeaponID && it.Kind == model.ItemKindWeapon:
			f.Weapon = it
		case it.ID == c.ArmorID && it.Kind == model.ItemKindArmor:
			f.Armor = it
		}
	}
	return f
}

// PrimaryStat is the class's main attribute.
func (f *Fighter) PrimaryStat() int {
	switch f.Class.PrimaryStat {
	case "agi":
		return f.Char.Agility
	case "int":
		return f.Char.Intelligence
	default:
		return f.Char.Strength
	}
}

// AttackPower is primary stat + weapon attack + level.
func (f *Fighter) AttackPower() int {
	p := f.PrimaryStat() + f.Char.Level
	if f.Weapon != nil {
		p += f.Weapon.Attack
	}
	return p
}

// Defense is half vitality plus armor.
func (f *Fighter) Defense() int {
	d := f.Char.Vitality / 2
	if f.Armor != nil {
		d += f.Armor.Defense
	}
	return d
}

// CritChance in percent, from agility, capped at 30.
func (f *Fighter) CritChance() int {
	c := baseCrit + f.Char.Agility/2
	if c > maxCrit {
		c = maxCrit
	}
	return c
}

// FleeChance in percent. Bosses can't be fled from.
func (f *Fighter) FleeChance() int {
	c := 40 + f.Char.Agility
	if c > 90 {
		c = 90
	}
	return c
}

func (f *Fighter) stats() *formula.Stats {
	c := f.Char
	return &formula.Stats{
		HP: c.HP, MaxHP: c.MaxHP, Resource: c.Resource,
		Str: c.Strength, Agi: c.Agility, Int: c.Intelligence, Vit: c.Vitality,
		Atk: f.AttackPower(), Def: f.Defense(), Level: c.Level,
	}
}

func enemyStats(e *model.Enemy) *formula.Stats {
	return &formula.Stats{HP: e.HP, MaxHP: e.MaxHP, Atk: e.Attack, Def: e.Defense, Level: 1}
}
