package model

import "time"

// ItemKind groups items by how they can be used.
type ItemKind = string

const (
	ItemKindWeapon     ItemKind = "weapon"
	ItemKindArmor      ItemKind = "armor"
	ItemKindConsumable ItemKind = "consumable"
	ItemKindTrinket    ItemKind = "trinket"
)

// Item is a piece of loot owned by a character.
type Item struct {
	ID          string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	CharacterID string    `gorm:"index:idx_item_character;size:36;not null" bson:"character_id" json:"character_id"`
	Key         string    `gorm:"size:64;not null" bson:"key" json:"key"`
	Name        string    `gorm:"size:64;not null" bson:"name" json:"name"`
	Kind        string    `gorm:"size:16;not null" bson:"kind" json:"kind"`
	Rarity      string    `gorm:"size:16" bson:"rarity" json:"rarity"`
	Value       int64     `bson:"value" json:"value"`
	Attack      int       `bson:"attack" json:"attack"`
	Defense     int       `bson:"defense" json:"defense"`
	Heal        int       `bson:"heal" json:"heal"`
	Equipped    bool      `bson:"equipped" json:"equipped"`
	Source      string    `gorm:"size:36" bson:"source,omitempty" json:"source,omitempty"` // dungeon id, "starter" or "admin"
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// Equippable reports whether the item occupies an equipment slot.
func (it *Item) Equippable() bool {
	return it.Kind == ItemKindWeapon || it.Kind == ItemKindArmor
}
