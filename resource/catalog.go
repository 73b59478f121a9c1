// Package resource holds the static game data: classes, enemies, traps, loot
// and dungeon difficulty presets. Built-in defaults are embedded in the
// binary; a data directory may add entries or replace them by key.
package resource

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/duskhollow/server/game/formula"
)

//go:embed defaults/*.json
var defaults embed.FS

const (
	fileClasses      = "classes.json"
	fileEnemies      = "enemies.json"
	fileTraps        = "traps.json"
	fileLoot         = "loot.json"
	fileDifficulties = "difficulties.json"
)

// Stats is a block of character attributes, used both for a class's base
// values and its per-level growth.
type Stats struct {
	HP       int `json:"hp"`
	Resource int `json:"resource"`
	Str      int `json:"str"`
	Agi      int `json:"agi"`
	Int      int `json:"int"`
	Vit      int `json:"vit"`
}

// Skill is a class's special attack. Formula is evaluated by package formula.
type Skill struct {
	Name        string `json:"name"`
	Formula     string `json:"formula"`
	Cost        int    `json:"cost"`
	HealPercent int    `json:"heal_percent,omitempty"` // of max HP, restored on use
}

type Class struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ResourceKind  string `json:"resource_kind"` // mana | stamina | energy
	PrimaryStat   string `json:"primary_stat"`  // str | agi | int
	Base          Stats  `json:"base"`
	Growth        Stats  `json:"growth"`
	Skill         Skill  `json:"skill"`
	StarterWeapon string `json:"starter_weapon"`
}

// Drop is one row of an enemy's loot table, dropping with 1/Denominator chance.
type Drop struct {
	Loot        string `json:"loot"`
	Denominator int    `json:"denominator"`
}

type Enemy struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	HP         int    `json:"hp"`
	Attack     int    `json:"attack"`
	Defense    int    `json:"defense"`
	Experience int64  `json:"experience"`
	Gold       int64  `json:"gold"`
	MinStage   int    `json:"min_stage"`
	Boss       bool   `json:"boss"`
	Drops      []Drop `json:"drops"`
}

type Trap struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Difficulty int    `json:"difficulty"`
	Damage     int    `json:"damage"`
	Experience int64  `json:"experience"`
	MinStage   int    `json:"min_stage"`
}

type Loot struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Rarity   string `json:"rarity"`
	Value    int64  `json:"value"`
	Attack   int    `json:"attack,omitempty"`
	Defense  int    `json:"defense,omitempty"`
	Heal     int    `json:"heal,omitempty"`
	Treasure bool   `json:"treasure,omitempty"` // can appear in treasure rooms
}

type Bonus struct {
	Experience int64 `json:"experience"`
	Gold       int64 `json:"gold"`
}

// Difficulty is a dungeon preset. The last of its Stages is the boss fight.
type Difficulty struct {
	Key             string  `json:"key"`
	Name            string  `json:"name"`
	Stages          int     `json:"stages"`
	Multiplier      float64 `json:"multiplier"`
	Boss            string  `json:"boss"`
	TreasureGold    int64   `json:"treasure_gold"`
	CompletionBonus Bonus   `json:"completion_bonus"`
}

// Catalog is the loaded, validated game data. It is read-only after Load.
type Catalog struct {
	Classes      []*Class      `json:"classes"`
	Enemies      []*Enemy      `json:"enemies"`
	Traps        []*Trap       `json:"traps"`
	Loot         []*Loot       `json:"loot"`
	Difficulties []*Difficulty `json:"difficulties"`

	classes      map[string]*Class
	enemies      map[string]*Enemy
	loot         map[string]*Loot
	difficulties map[string]*Difficulty
}

type keyed interface {
	*Class | *Enemy | *Trap | *Loot | *Difficulty
}

// Load reads the embedded defaults, then merges any files of the same name
// found in dir. An empty dir uses the defaults alone.
func Load(dir string) (*Catalog, error) {
	var err error
	c := &Catalog{}
	if c.Classes, err = loadMerged(dir, fileClasses, func(v *Class) string { return v.Key }); err != nil {
		return nil, err
	}
	if c.Enemies, err = loadMerged(dir, fileEnemies, func(v *Enemy) string { return v.Key }); err != nil {
		return nil, err
	}
	if c.Traps, err = loadMerged(dir, fileTraps, func(v *Trap) string { return v.Key }); err != nil {
		return nil, err
	}
	if c.Loot, err = loadMerged(dir, fileLoot, func(v *Loot) string { return v.Key }); err != nil {
		return nil, err
	}
	if c.Difficulties, err = loadMerged(dir, fileDifficulties, func(v *Difficulty) string { return v.Key }); err != nil {
		return nil, err
	}
	c.index()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustLoadDefaults returns the embedded catalog. It panics if the embedded
// data is invalid, which only a broken build can cause.
func MustLoadDefaults() *Catalog {
	c, err := Load("")
	if err != nil {
		panic(err)
	}
	return c
}

func loadMerged[T keyed](dir, file string, key func(T) string) ([]T, error) {
	data, err := defaults.ReadFile("defaults/" + file)
	if err != nil {
		return nil, fmt.Errorf("resource: read embedded %s: %w", file, err)
	}
	base, err := parseJSONArray[T](file, data)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return base, nil
	}

	path := filepath.Join(dir, file)
	data, err = os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", path, err)
	}
	extra, err := parseJSONArray[T](path, data)
	if err != nil {
		return nil, err
	}

	pos := make(map[string]int, len(base))
	for i, v := range base {
		pos[key(v)] = i
	}
	for _, v := range extra {
		if i, ok := pos[key(v)]; ok {
			base[i] = v
			continue
		}
		pos[key(v)] = len(base)
		base = append(base, v)
	}
	return base, nil
}

func parseJSONArray[T any](name string, data []byte) ([]T, error) {
	var arr []T
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("resource: parse %s: %w", name, err)
	}
	return arr, nil
}

func (c *Catalog) index() {
	c.classes = make(map[string]*Class, len(c.Classes))
	for _, v := range c.Classes {
		c.classes[v.Key] = v
	}
	c.enemies = make(map[string]*Enemy, len(c.Enemies))
	for _, v := range c.Enemies {
		c.enemies[v.Key] = v
	}
	c.loot = make(map[string]*Loot, len(c.Loot))
	for _, v := range c.Loot {
		c.loot[v.Key] = v
	}
	c.difficulties = make(map[string]*Difficulty, len(c.Difficulties))
	for _, v := range c.Difficulties {
		c.difficulties[v.Key] = v
	}
}

// Validate checks cross references and value ranges.
func (c *Catalog) Validate() error {
	var errs []error
	bad := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.Classes) == 0 {
		bad("no classes")
	}
	for _, cl := range c.Classes {
		switch cl.PrimaryStat {
		case "str", "agi", "int":
		default:
			bad("class %s: primary_stat %q", cl.Key, cl.PrimaryStat)
		}
		if cl.Base.HP <= 0 {
			bad("class %s: base hp must be positive", cl.Key)
		}
		if err := formula.Check(cl.Skill.Formula); err != nil {
			bad("class %s: skill: %v", cl.Key, err)
		}
		if w, ok := c.loot[cl.StarterWeapon]; !ok || w.Kind != "weapon" {
			bad("class %s: starter_weapon %q is not a weapon", cl.Key, cl.StarterWeapon)
		}
	}

	regular := 0
	for _, e := range c.Enemies {
		if e.HP <= 0 {
			bad("enemy %s: hp must be positive", e.Key)
		}
		if !e.Boss && e.MinStage <= 1 {
			regular++
		}
		for _, d := range e.Drops {
			if _, ok := c.loot[d.Loot]; !ok {
				bad("enemy %s: unknown loot %q", e.Key, d.Loot)
			}
			if d.Denominator <= 0 {
				bad("enemy %s: drop %s denominator must be positive", e.Key, d.Loot)
			}
		}
	}
	if regular == 0 {
		bad("no regular enemy available from stage 1")
	}
	if len(c.TrapsForStage(1)) == 0 {
		bad("no trap available from stage 1")
	}
	if len(c.TreasureLoot()) == 0 {
		bad("no treasure loot")
	}
	for _, l := range c.Loot {
		if l.Value < 0 {
			bad("loot %s: negative value", l.Key)
		}
	}

	if len(c.Difficulties) == 0 {
		bad("no difficulties")
	}
	for _, d := range c.Difficulties {
		if d.Stages <= 0 {
			bad("difficulty %s: stages must be positive", d.Key)
		}
		if d.Multiplier <= 0 {
			bad("difficulty %s: multiplier must be positive", d.Key)
		}
		if b, ok := c.enemies[d.Boss]; !ok || !b.Boss {
			bad("difficulty %s: boss %q is not a boss enemy", d.Key, d.Boss)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("resource: invalid catalog: %w", errors.Join(errs...))
	}
	return nil
}

// ClassByKey returns the class with the given key, or nil.
func (c *Catalog) ClassByKey(key string) *Class { return c.classes[key] }

// EnemyByKey returns the enemy with the given key, or nil.
func (c *Catalog) EnemyByKey(key string) *Enemy { return c.enemies[key] }

// LootByKey returns the loot entry with the given key, or nil.
func (c *Catalog) LootByKey(key string) *Loot { return c.loot[key] }

// DifficultyByKey returns the preset with the given key, or nil.
func (c *Catalog) DifficultyByKey(key string) *Difficulty { return c.difficulties[key] }

// ClassKeys lists class keys in sorted order.
func (c *Catalog) ClassKeys() []string {
	keys := make([]string, 0, len(c.Classes))
	for _, cl := range c.Classes {
		keys = append(keys, cl.Key)
	}
	sort.Strings(keys)
	return keys
}

// EnemiesForStage lists the regular enemies that may appear at stage.
func (c *Catalog) EnemiesForStage(stage int) []*Enemy {
	var out []*Enemy
	for _, e := range c.Enemies {
		if !e.Boss && e.MinStage <= stage {
			out = append(out, e)
		}
	}
	return out
}

// TrapsForStage lists the traps that may appear at stage.
func (c *Catalog) TrapsForStage(stage int) []*Trap {
	var out []*Trap
	for _, t := range c.Traps {
		if t.MinStage <= stage {
			out = append(out, t)
		}
	}
	return out
}

// TreasureLoot lists loot that can be found in treasure rooms.
func (c *Catalog) TreasureLoot() []*Loot {
	var out []*Loot
	for _, l := range c.Loot {
		if l.Treasure {
			out = append(out, l)
		}
	}
	return out
}
