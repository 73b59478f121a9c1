package model

import "time"

// Activity is what a character is currently busy with.
type Activity = string

const (
	ActivityIdle    Activity = "idle"
	ActivityDungeon Activity = "dungeon"
	ActivityLabor   Activity = "labor"
)

// CharacterStatus is the denormalized activity flag kept next to a character.
// A character doing anything other than ActivityIdle cannot start a new
// dungeon run or labor shift.
type CharacterStatus struct {
	CharacterID    string     `gorm:"primaryKey;size:36" bson:"_id" json:"character_id"`
	Activity       string     `gorm:"size:16;not null" bson:"activity" json:"activity"`
	DungeonID      string     `gorm:"size:36" bson:"dungeon_id,omitempty" json:"dungeon_id,omitempty"`
	LaborHours     int        `bson:"labor_hours,omitempty" json:"labor_hours,omitempty"`
	LaborWage      int64      `bson:"labor_wage,omitempty" json:"labor_wage,omitempty"`
	LaborStartedAt *time.Time `bson:"labor_started_at,omitempty" json:"labor_started_at,omitempty"`
	LaborEndsAt    *time.Time `bson:"labor_ends_at,omitempty" json:"labor_ends_at,omitempty"`
	UpdatedAt      time.Time  `bson:"updated_at" json:"updated_at"`
}

func (CharacterStatus) TableName() string { return "character_status" }

// Idle resets the status to ActivityIdle and clears activity details.
func (s *CharacterStatus) Idle(now time.Time) {
	s.Activity = ActivityIdle
	s.DungeonID = ""
	s.LaborHours = 0
	s.LaborWage = 0
	s.LaborStartedAt = nil
	s.LaborEndsAt = nil
	s.UpdatedAt = now
}
