package model

import "time"

// DungeonState is the lifecycle state of a run.
type DungeonState = string

const (
	DungeonActive    DungeonState = "active"
	DungeonCompleted DungeonState = "completed"
	DungeonForfeited DungeonState = "forfeited"
	DungeonFailed    DungeonState = "failed"
)

// EncounterKind distinguishes the blocking encounters of a stage.
type EncounterKind = string

const (
	EncounterCombat EncounterKind = "combat"
	EncounterTrap   EncounterKind = "trap"
)

// Dungeon is one exploration run of a character. Loot found along the way is
// staged in TempInventory and only becomes Items when the run completes.
type Dungeon struct {
	ID            string     `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	CharacterID   string     `gorm:"index:idx_dungeon_character;size:36;not null" bson:"character_id" json:"character_id"`
	UserID        string     `gorm:"size:36;not null" bson:"user_id" json:"user_id"`
	Name          string     `gorm:"size:64" bson:"name" json:"name"`
	Difficulty    string     `gorm:"size:16;not null" bson:"difficulty" json:"difficulty"`
	Stage         int        `gorm:"not null" bson:"stage" json:"stage"`
	MaxStages     int        `gorm:"not null" bson:"max_stages" json:"max_stages"`
	Active        bool       `gorm:"index:idx_dungeon_active" bson:"active" json:"active"`
	State         string     `gorm:"size:16;not null" bson:"state" json:"state"`
	Encounter     *Encounter `gorm:"serializer:json;type:text" bson:"encounter,omitempty" json:"encounter"`
	Log           []LogEntry `gorm:"serializer:json;type:text" bson:"log" json:"log"`
	TempInventory []LootItem `gorm:"serializer:json;type:text" bson:"temp_inventory" json:"temp_inventory"`
	PendingLoot   []LootItem `gorm:"serializer:json;type:text" bson:"pending_loot" json:"pending_loot"`
	Rewards       Rewards    `gorm:"embedded;embeddedPrefix:reward_" bson:"rewards" json:"rewards"`
	StartedAt     time.Time  `bson:"started_at" json:"started_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
	EndedAt       *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
}

// Cleared reports whether every stage, boss included, has been beaten.
func (d *Dungeon) Cleared() bool { return d.Stage > d.MaxStages }

// Rewards accrue during a run and are paid out on completion.
type Rewards struct {
	Experience int64 `bson:"experience" json:"experience"`
	Gold       int64 `bson:"gold" json:"gold"`
}

// Encounter blocks progress until it is resolved.
type Encounter struct {
	Kind  string `bson:"kind" json:"kind"`
	Enemy *Enemy `bson:"enemy,omitempty" json:"enemy,omitempty"`
	Trap  *Trap  `bson:"trap,omitempty" json:"trap,omitempty"`
	Round int    `bson:"round" json:"round"`
}

type Enemy struct {
	Key        string `bson:"key" json:"key"`
	Name       string `bson:"name" json:"name"`
	HP         int    `bson:"hp" json:"hp"`
	MaxHP      int    `bson:"max_hp" json:"max_hp"`
	Attack     int    `bson:"attack" json:"attack"`
	Defense    int    `bson:"defense" json:"defense"`
	Experience int64  `bson:"experience" json:"experience"`
	Gold       int64  `bson:"gold" json:"gold"`
	Boss       bool   `bson:"boss" json:"boss"`
}

type Trap struct {
	Key        string `bson:"key" json:"key"`
	Name       string `bson:"name" json:"name"`
	Difficulty int    `bson:"difficulty" json:"difficulty"`
	Damage     int    `bson:"damage" json:"damage"`
	Experience int64  `bson:"experience" json:"experience"`
}

// LogEntry is one line of the run's event log.
type LogEntry struct {
	Stage   int       `bson:"stage" json:"stage"`
	Kind    string    `bson:"kind" json:"kind"`
	Message string    `bson:"message" json:"message"`
	At      time.Time `bson:"at" json:"at"`
}

// LootItem is an item staged inside a run, not yet owned.
type LootItem struct {
	Key     string `bson:"key" json:"key"`
	Name    string `bson:"name" json:"name"`
	Kind    string `bson:"kind" json:"kind"`
	Rarity  string `bson:"rarity" json:"rarity"`
	Value   int64  `bson:"value" json:"value"`
	Attack  int    `bson:"attack,omitempty" json:"attack,omitempty"`
	Defense int    `bson:"defense,omitempty" json:"defense,omitempty"`
	Heal    int    `bson:"heal,omitempty" json:"heal,omitempty"`
}

// ToItem materializes a staged loot entry as an owned item.
func (l LootItem) ToItem(characterID, source string, now time.Time) *Item {
	return &Item{
		ID:          NewID(),
		CharacterID: characterID,
		Key:         l.Key,
		Name:        l.Name,
		Kind:        l.Kind,
		Rarity:      l.Rarity,
		Value:       l.Value,
		Attack:      l.Attack,
		Defense:     l.Defense,
		Heal:        l.Heal,
		Source:      source,
		CreatedAt:   now,
	}
}
