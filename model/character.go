package model

import "time"

// Character is a player-owned hero with stats, pools and progression.
type Character struct {
	ID           string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	UserID       string    `gorm:"index:idx_character_user;size:36;not null" bson:"user_id" json:"user_id"`
	Name         string    `gorm:"uniqueIndex;size:32;not null" bson:"name" json:"name"`
	Class        string    `gorm:"size:16;not null" bson:"class" json:"class"`
	Level        int       `gorm:"not null" bson:"level" json:"level"`
	Experience   int64     `gorm:"not null" bson:"experience" json:"experience"`
	Gold         int64     `gorm:"not null" bson:"gold" json:"gold"`
	HP           int       `gorm:"not null" bson:"hp" json:"hp"`
	MaxHP        int       `gorm:"not null" bson:"max_hp" json:"max_hp"`
	Resource     int       `gorm:"not null" bson:"resource" json:"resource"`
	MaxResource  int       `gorm:"not null" bson:"max_resource" json:"max_resource"`
	ResourceKind string    `gorm:"size:16" bson:"resource_kind" json:"resource_kind"` // mana | stamina | energy
	Strength     int       `bson:"strength" json:"strength"`
	Agility      int       `bson:"agility" json:"agility"`
	Intelligence int       `bson:"intelligence" json:"intelligence"`
	Vitality     int       `bson:"vitality" json:"vitality"`
	WeaponID     string    `gorm:"size:36" bson:"weapon_id,omitempty" json:"weapon_id,omitempty"`
	ArmorID      string    `gorm:"size:36" bson:"armor_id,omitempty" json:"armor_id,omitempty"`
	ImageURL     string    `gorm:"type:text" bson:"image_url,omitempty" json:"image_url,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}
