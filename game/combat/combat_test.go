package combat

import (
	"testing"

	"github.com/duskhollow/server/game/progression"
	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/resource"
	"github.com/duskhollow/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cat = resource.MustLoadDefaults()

// newWarrior is a level 1 warrior holding the rusty sword (attack 3):
// attack power 16, defense 6, crit 9%, flee 48%.
func newWarrior(t *testing.T) *Fighter {
	t.Helper()
	cl := cat.ClassByKey("warrior")
	c := progression.NewCharacter("u1", "Brak", cl, 0)
	sword := cat.LootByKey(cl.StarterWeapon)
	it := LootItem(sword).ToItem(c.ID, "starter", c.CreatedAt)
	it.Equipped = true
	c.WeaponID = it.ID
	return NewFighter(c, cl, []model.Item{*it})
}

// goblin at normal difficulty, stage 1, level 1: 30 HP, attack 8, defense 2.
func goblin() *model.Encounter {
	e := SpawnEnemy(cat.EnemyByKey("goblin"), cat.DifficultyByKey("normal"), 1, 1)
	return &model.Encounter{Kind: model.EncounterCombat, Enemy: e}
}

func TestFighterDerivedStats(t *testing.T) {
	f := newWarrior(t)
	require.NotNil(t, f.Weapon)
	assert.Equal(t, 16, f.AttackPower())
	assert.Equal(t, 6, f.Defense())
	assert.Equal(t, 9, f.CritChance())
	assert.Equal(t, 48, f.FleeChance())

	f.Char.Agility = 200
	assert.Equal(t, 30, f.CritChance(), "crit is capped")
	assert.Equal(t, 90, f.FleeChance(), "flee is capped")
}

func TestNewFighter_IgnoresUnequipped(t *testing.T) {
	f := newWarrior(t)
	w := *f.Weapon
	w.Equipped = false
	g := NewFighter(f.Char, f.Class, []model.Item{w})
	assert.Nil(t, g.Weapon)
	assert.Equal(t, 13, g.AttackPower())
}

func TestResolve_Attack(t *testing.T) {
	f := newWarrior(t)
	enc := goblin()
	// player variance 100%, no crit, enemy variance 100%
	res, err := Resolve(testutil.NewDice(10, 99, 10), f, enc, ActionAttack)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Round)
	assert.Equal(t, 15, res.DamageDealt)
	assert.False(t, res.Crit)
	assert.Equal(t, 15, enc.Enemy.HP)
	assert.Equal(t, 5, res.DamageTaken)
	assert.Equal(t, 115, f.Char.HP)
	assert.False(t, res.Victory)
	assert.False(t, res.Defeat)
	assert.Equal(t, 1, enc.Round)
	assert.Len(t, res.Messages, 2)
}

func TestResolve_Crit(t *testing.T) {
	f := newWarrior(t)
	enc := goblin()
	res, err := Resolve(testutil.NewDice(10, 0, 10), f, enc, ActionAttack)
	require.NoError(t, err)
	assert.True(t, res.Crit)
	assert.Equal(t, 23, res.DamageDealt)
}

func TestResolve_SkillSpendsResource(t *testing.T) {
	f := newWarrior(t)
	enc := goblin()
	// a.atk*1.8 + a.level*2 - b.def = 28.8 + 2 - 2
	res, err := Resolve(testutil.NewDice(10, 99, 10), f, enc, ActionSkill)
	require.NoError(t, err)
	assert.Equal(t, 29, res.DamageDealt)
	assert.Equal(t, 30, f.Char.Resource)

	f.Char.Resource = 5
	_, err = Resolve(testutil.NewDice(10), f, enc, ActionSkill)
	assert.ErrorIs(t, err, ErrNotEnoughResource)
	assert.Equal(t, 1, enc.Round, "rejected action doesn't use a round")
}

func TestResolve_ClericSkillHeals(t *testing.T) {
	cl := cat.ClassByKey("cleric")
	c := progression.NewCharacter("u1", "Ines", cl, 0)
	c.HP = 50
	f := NewFighter(c, cl, nil)

	res, err := Resolve(testutil.NewDice(10, 99, 10), f, goblin(), ActionSkill)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Healed) // 15% of 100
	assert.Equal(t, 50+15-res.DamageTaken, c.HP)
}

func TestResolve_DefendHalvesDamage(t *testing.T) {
	f := newWarrior(t)
	f.Char.Resource = 0
	res, err := Resolve(testutil.NewDice(10), f, goblin(), ActionDefend)
	require.NoError(t, err)
	assert.Equal(t, 0, res.DamageDealt)
	assert.Equal(t, 2, res.DamageTaken)
	assert.Equal(t, 5, f.Char.Resource, "defending recovers 10% resource")
}

func TestResolve_Flee(t *testing.T) {
	f := newWarrior(t)
	enc := goblin()
	res, err := Resolve(testutil.NewDice(0), f, enc, ActionFlee)
	require.NoError(t, err)
	assert.True(t, res.Fled)
	assert.Equal(t, 0, res.DamageTaken)
	assert.Equal(t, 30, enc.Enemy.HP)

	res, err = Resolve(testutil.NewDice(99, 10), f, enc, ActionFlee)
	require.NoError(t, err)
	assert.False(t, res.Fled)
	assert.Equal(t, 5, res.DamageTaken)
}

func TestResolve_CannotFleeBoss(t *testing.T) {
	f := newWarrior(t)
	boss := SpawnBoss(cat, cat.DifficultyByKey("easy"), 3, 1)
	_, err := Resolve(testutil.NewDice(0), f, &model.Encounter{Enemy: boss}, ActionFlee)
	assert.ErrorIs(t, err, ErrCannotFlee)
}

func TestResolve_Victory(t *testing.T) {
	f := newWarrior(t)
	enc := goblin()
	enc.Enemy.HP = 10
	res, err := Resolve(testutil.NewDice(10, 99), f, enc, ActionAttack)
	require.NoError(t, err)
	assert.True(t, res.Victory)
	assert.Equal(t, 0, enc.Enemy.HP)
	assert.Equal(t, 0, res.DamageTaken, "a dead enemy doesn't strike back")
	assert.Equal(t, 120, f.Char.HP)
}

func TestResolve_Defeat(t *testing.T) {
	f := newWarrior(t)
	f.Char.HP = 3
	res, err := Resolve(testutil.NewDice(10, 99, 10), f, goblin(), ActionAttack)
	require.NoError(t, err)
	assert.True(t, res.Defeat)
	assert.Equal(t, 0, f.Char.HP)
}

func TestResolve_InvalidAction(t *testing.T) {
	_, err := Resolve(testutil.NewDice(), newWarrior(t), goblin(), "dance")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestResolveTrap(t *testing.T) {
	trap := &model.Trap{Key: "spike_pit", Name: "Spike Pit", Difficulty: 10, Damage: 12, Experience: 8}

	f := newWarrior(t)
	res, err := ResolveTrap(testutil.NewDice(9), f, trap, TrapDisarm)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 14, res.Roll) // d20=10 + agility 8/2
	assert.Equal(t, int64(8), res.Experience)
	assert.Equal(t, 0, res.Damage)
	assert.Equal(t, 120, f.Char.HP)

	res, err = ResolveTrap(testutil.NewDice(0), f, trap, TrapDisarm)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 12, res.Damage)
	assert.Equal(t, int64(0), res.Experience)
	assert.Equal(t, 108, f.Char.HP)

	res, err = ResolveTrap(testutil.NewDice(), f, trap, TrapEndure)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Damage)
	assert.Equal(t, 102, f.Char.HP)

	f.Char.HP = 4
	res, err = ResolveTrap(testutil.NewDice(), f, trap, TrapEndure)
	require.NoError(t, err)
	assert.True(t, res.Defeat)
	assert.Equal(t, 0, f.Char.HP)

	_, err = ResolveTrap(testutil.NewDice(), f, trap, "jump")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestRollRoom(t *testing.T) {
	assert.Equal(t, RoomBoss, RollRoom(testutil.NewDice(0), 5, 5))
	cases := map[int]string{
		0: RoomCombat, 49: RoomCombat,
		50: RoomTrap, 69: RoomTrap,
		70: RoomTreasure, 84: RoomTreasure,
		85: RoomEmpty, 99: RoomEmpty,
	}
	for roll, want := range cases {
		assert.Equal(t, want, RollRoom(testutil.NewDice(roll), 1, 5), "roll %d", roll)
	}
}

func TestSpawnEnemyScaling(t *testing.T) {
	normal := cat.DifficultyByKey("normal")
	tmpl := cat.EnemyByKey("goblin")

	e := SpawnEnemy(tmpl, normal, 1, 1)
	assert.Equal(t, 30, e.HP)
	assert.Equal(t, e.HP, e.MaxHP)
	assert.Equal(t, int64(15), e.Experience)

	assert.InDelta(t, 1.26, Scale(normal, 3, 2), 1e-9)
	e = SpawnEnemy(tmpl, normal, 3, 2)
	assert.Equal(t, 38, e.HP) // 30 * 1.26 = 37.8
	assert.Equal(t, int64(19), e.Experience)

	hard := SpawnEnemy(tmpl, cat.DifficultyByKey("hard"), 1, 1)
	assert.Greater(t, hard.HP, 30)
}

func TestRollEnemyAndTrapRespectStage(t *testing.T) {
	normal := cat.DifficultyByKey("normal")
	for roll := 0; roll < 10; roll++ {
		e := RollEnemy(testutil.NewDice(roll), cat, normal, 1, 1)
		assert.LessOrEqual(t, cat.EnemyByKey(e.Key).MinStage, 1)
		assert.False(t, e.Boss)

		tr := RollTrap(testutil.NewDice(roll), cat, normal, 1, 1)
		assert.NotEmpty(t, tr.Name)
	}

	tr := RollTrap(testutil.NewDice(0), cat, normal, 5, 1)
	assert.Equal(t, cat.TrapsForStage(5)[0].Difficulty+2, tr.Difficulty)
}

func TestRollDrops(t *testing.T) {
	// goblin king: healing_potion 1/1, iron_sword 1/2, silver_ring 1/4
	drops := RollDrops(testutil.NewDice(0, 1, 0), cat, "goblin_king")
	require.Len(t, drops, 2)
	assert.Equal(t, "healing_potion", drops[0].Key)
	assert.Equal(t, "silver_ring", drops[1].Key)

	assert.Nil(t, RollDrops(testutil.NewDice(0), cat, "unknown"))
}

func TestRollTreasure(t *testing.T) {
	gold, item := RollTreasure(testutil.NewDice(5, 0), cat, cat.DifficultyByKey("normal"), 1)
	assert.Equal(t, int64(25), gold)
	assert.Equal(t, cat.TreasureLoot()[0].Key, item.Key)

	gold, _ = RollTreasure(testutil.NewDice(0, 0), cat, cat.DifficultyByKey("normal"), 3)
	assert.Equal(t, int64(24), gold) // 20 * 1.2
}
