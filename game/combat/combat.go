// Package combat resolves fights and traps inside a dungeon run. Every random
// outcome comes from an injected Roller so results can be replayed in tests.
package combat

import (
	"fmt"
	"math"

	"github.com/duskhollow/server/game"
	"github.com/duskhollow/server/game/formula"
	"github.com/duskhollow/server/model"
)

const (
	ActionAttack = "attack"
	ActionSkill  = "skill"
	ActionDefend = "defend"
	ActionFlee   = "flee"

	TrapDisarm = "disarm"
	TrapEndure = "endure"
)

var (
	ErrInvalidAction     = game.Invalid("invalid action")
	ErrNotEnoughResource = game.Conflict("not enough resource for skill")
	ErrCannotFlee        = game.Conflict("cannot flee from a boss")
)

// RoundResult is the outcome of one combat round.
type RoundResult struct {
	Action      string   `json:"action"`
	Round       int      `json:"round"`
	DamageDealt int      `json:"damage_dealt"`
	DamageTaken int      `json:"damage_taken"`
	Healed      int      `json:"healed,omitempty"`
	Crit        bool     `json:"crit"`
	Victory     bool     `json:"victory"`
	Defeat      bool     `json:"defeat"`
	Fled        bool     `json:"fled"`
	Messages    []string `json:"messages"`
}

func (r *RoundResult) say(format string, args ...interface{}) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// variance scales v by a uniform 90%..110%.
func variance(r Roller, v float64) float64 {
	return v * float64(90+r.Intn(21)) / 100
}

func clampDamage(v float64) int {
	d := int(math.Round(v))
	if d < 1 {
		d = 1
	}
	return d
}

// PlayerAttack rolls a basic attack against the enemy: variance, then crit.
func PlayerAttack(r Roller, f *Fighter, e *model.Enemy) (int, bool) {
	base := float64(f.AttackPower()) - float64(e.Defense)/2
	return finish(r, f, base)
}

func finish(r Roller, f *Fighter, base float64) (int, bool) {
	v := variance(r, base)
	crit := Percent(r, f.CritChance())
	if crit {
		v *= 1.5
	}
	return clampDamage(v), crit
}

// EnemyAttack rolls the enemy's hit on the character.
func EnemyAttack(r Roller, f *Fighter, e *model.Enemy) int {
	base := float64(e.Attack) - float64(f.Defense())/2
	return clampDamage(variance(r, base))
}

// SkillAttack evaluates the class skill formula and rolls variance and crit.
func SkillAttack(r Roller, f *Fighter, e *model.Enemy) (int, bool, error) {
	base, err := formula.Eval(f.Class.Skill.Formula, f.stats(), enemyStats(e))
	if err != nil {
		return 0, false, err
	}
	dmg, crit := finish(r, f, base)
	return dmg, crit, nil
}

// Resolve plays one round of the combat encounter with the given action,
// mutating the character's HP/resource and the enemy's HP.
func Resolve(r Roller, f *Fighter, enc *model.Encounter, action string) (*RoundResult, error) {
	e := enc.Enemy
	if e == nil {
		return nil, fmt.Errorf("%w: no enemy", ErrInvalidAction)
	}
	c := f.Char
	res := &RoundResult{Action: action, Round: enc.Round + 1}
	defending := false

	switch action {
	case ActionAttack:
		dmg, crit := PlayerAttack(r, f, e)
		res.DamageDealt, res.Crit = dmg, crit
		res.say("%s hits %s for %d%s.", c.Name, e.Name, dmg, critSuffix(crit))

	case ActionSkill:
		sk := f.Class.Skill
		if c.Resource < sk.Cost {
			return nil, fmt.Errorf("%w: %s needs %d %s", ErrNotEnoughResource, sk.Name, sk.Cost, c.ResourceKind)
		}
		dmg, crit, err := SkillAttack(r, f, e)
		if err != nil {
			return nil, err
		}
		c.Resource -= sk.Cost
		res.DamageDealt, res.Crit = dmg, crit
		res.say("%s uses %s on %s for %d%s.", c.Name, sk.Name, e.Name, dmg, critSuffix(crit))
		if sk.HealPercent > 0 {
			res.Healed = heal(c, c.MaxHP*sk.HealPercent/100)
			if res.Healed > 0 {
				res.say("%s recovers %d HP.", c.Name, res.Healed)
			}
		}

	case ActionDefend:
		defending = true
		regen := c.MaxResource / 10
		c.Resource = min(c.MaxResource, c.Resource+regen)
		res.say("%s braces for the next blow.", c.Name)

	case ActionFlee:
		if e.Boss {
			return nil, ErrCannotFlee
		}
		if Percent(r, f.FleeChance()) {
			res.Fled = true
			res.say("%s escapes from %s.", c.Name, e.Name)
			enc.Round = res.Round
			return res, nil
		}
		res.say("%s fails to escape.", c.Name)

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	enc.Round = res.Round

	e.HP -= res.DamageDealt
	if e.HP <= 0 {
		e.HP = 0
		res.Victory = true
		res.say("%s is defeated.", e.Name)
		return res, nil
	}

	taken := EnemyAttack(r, f, e)
	if defending {
		taken = max(1, taken/2)
	}
	res.DamageTaken = taken
	c.HP -= taken
	res.say("%s strikes %s for %d.", e.Name, c.Name, taken)
	if c.HP <= 0 {
		c.HP = 0
		res.Defeat = true
		res.say("%s falls.", c.Name)
	}
	return res, nil
}

func critSuffix(crit bool) string {
	if crit {
		return " (critical)"
	}
	return ""
}

func heal(c *model.Character, amount int) int {
	if amount <= 0 {
		return 0
	}
	before := c.HP
	c.HP = min(c.MaxHP, c.HP+amount)
	return c.HP - before
}

// TrapResult is the outcome of dealing with a trap.
type TrapResult struct {
	Action     string   `json:"action"`
	Roll       int      `json:"roll,omitempty"`
	Success    bool     `json:"success"`
	Damage     int      `json:"damage"`
	Experience int64    `json:"experience"`
	Defeat     bool     `json:"defeat"`
	Messages   []string `json:"messages"`
}

// ResolveTrap disarms (d20 + agility/2 against the trap difficulty; failure
// takes full damage, success earns the trap's experience) or endures (half
// damage, no check).
func ResolveTrap(r Roller, f *Fighter, t *model.Trap, action string) (*TrapResult, error) {
	c := f.Char
	res := &TrapResult{Action: action}
	switch action {
	case TrapDisarm:
		res.Roll = D(r, 20) + c.Agility/2
		if res.Roll >= t.Difficulty {
			res.Success = true
			res.Experience = t.Experience
			res.Messages = append(res.Messages,
				fmt.Sprintf("%s disarms the %s (%d vs %d).", c.Name, t.Name, res.Roll, t.Difficulty))
		} else {
			res.Damage = t.Damage
			res.Messages = append(res.Messages,
				fmt.Sprintf("%s triggers the %s (%d vs %d) and takes %d.", c.Name, t.Name, res.Roll, t.Difficulty, t.Damage))
		}
	case TrapEndure:
		res.Success = true
		res.Damage = max(1, t.Damage/2)
		res.Messages = append(res.Messages,
			fmt.Sprintf("%s pushes through the %s and takes %d.", c.Name, t.Name, res.Damage))
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	c.HP -= res.Damage
	if c.HP <= 0 {
		c.HP = 0
		res.Defeat = true
		res.Messages = append(res.Messages, fmt.Sprintf("%s falls.", c.Name))
	}
	return res, nil
}
