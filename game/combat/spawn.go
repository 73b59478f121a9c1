package combat

import (
	"math"

	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/resource"
)

// Room kinds rolled when advancing.
const (
	RoomCombat   = "combat"
	RoomBoss     = "boss"
	RoomTrap     = "trap"
	RoomTreasure = "treasure"
	RoomEmpty    = "empty"
)

// RollRoom picks what the next stage holds. The last stage is always the
// boss; otherwise combat 50%, trap 20%, treasure 15%, empty 15%.
func RollRoom(r Roller, stage, maxStages int) string {
	if stage >= maxStages {
		return RoomBoss
	}
	switch roll := r.Intn(100); {
	case roll < 50:
		return RoomCombat
	case roll < 70:
		return RoomTrap
	case roll < 85:
		return RoomTreasure
	default:
		return RoomEmpty
	}
}

// Scale is the stat multiplier for enemies and traps: the difficulty
// multiplier, +10% per stage past the first, +5% per character level past 1.
func Scale(diff *resource.Difficulty, stage, level int) float64 {
	return diff.Multiplier *
		(1 + 0.10*float64(stage-1)) *
		(1 + 0.05*float64(level-1))
}

func scaled(v int, s float64) int {
	return max(1, int(math.Round(float64(v)*s)))
}

func scaled64(v int64, s float64) int64 {
	return int64(math.Round(float64(v) * s))
}

// SpawnEnemy instantiates a catalog enemy for the given stage and level.
func SpawnEnemy(t *resource.Enemy, diff *resource.Difficulty, stage, level int) *model.Enemy {
	s := Scale(diff, stage, level)
	hp := scaled(t.HP, s)
	return &model.Enemy{
		Key:        t.Key,
		Name:       t.Name,
		HP:         hp,
		MaxHP:      hp,
		Attack:     scaled(t.Attack, s),
		Defense:    int(math.Round(float64(t.Defense) * s)),
		Experience: scaled64(t.Experience, s),
		Gold:       scaled64(t.Gold, s),
		Boss:       t.Boss,
	}
}

// RollEnemy picks a regular enemy eligible for the stage and spawns it.
func RollEnemy(r Roller, cat *resource.Catalog, diff *resource.Difficulty, stage, level int) *model.Enemy {
	return SpawnEnemy(pick(r, cat.EnemiesForStage(stage)), diff, stage, level)
}

// SpawnBoss instantiates the difficulty's boss.
func SpawnBoss(cat *resource.Catalog, diff *resource.Difficulty, stage, level int) *model.Enemy {
	return SpawnEnemy(cat.EnemyByKey(diff.Boss), diff, stage, level)
}

// RollTrap picks a trap eligible for the stage. Damage scales like enemies;
// difficulty rises by one every two stages.
func RollTrap(r Roller, cat *resource.Catalog, diff *resource.Difficulty, stage, level int) *model.Trap {
	t := pick(r, cat.TrapsForStage(stage))
	s := Scale(diff, stage, level)
	return &model.Trap{
		Key:        t.Key,
		Name:       t.Name,
		Difficulty: t.Difficulty + (stage-1)/2,
		Damage:     scaled(t.Damage, s),
		Experience: scaled64(t.Experience, s),
	}
}

// LootItem converts a catalog entry into a staged loot item.
func LootItem(l *resource.Loot) model.LootItem {
	return model.LootItem{
		Key:     l.Key,
		Name:    l.Name,
		Kind:    l.Kind,
		Rarity:  l.Rarity,
		Value:   l.Value,
		Attack:  l.Attack,
		Defense: l.Defense,
		Heal:    l.Heal,
	}
}

// RollDrops runs the enemy's loot table; each row drops with 1/denominator.
func RollDrops(r Roller, cat *resource.Catalog, enemyKey string) []model.LootItem {
	t := cat.EnemyByKey(enemyKey)
	if t == nil {
		return nil
	}
	var out []model.LootItem
	for _, d := range t.Drops {
		if d.Denominator <= 0 {
			continue
		}
		if r.Intn(d.Denominator) != 0 {
			continue
		}
		if l := cat.LootByKey(d.Loot); l != nil {
			out = append(out, LootItem(l))
		}
	}
	return out
}

// RollTreasure rolls a treasure room: TreasureGold plus up to that much
// again, scaled by stage, and one treasure item.
func RollTreasure(r Roller, cat *resource.Catalog, diff *resource.Difficulty, stage int) (int64, model.LootItem) {
	base := diff.TreasureGold
	gold := base + int64(r.Intn(int(base)+1))
	gold = scaled64(gold, 1+0.10*float64(stage-1))
	item := LootItem(pick(r, cat.TreasureLoot()))
	return gold, item
}
