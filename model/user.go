package model

import (
	"time"

	"github.com/google/uuid"
)

// Role grants access to privileged routes.
type Role = string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	UserStatusBanned = 0
	UserStatusActive = 1
)

// User is a player account.
type User struct {
	ID           string     `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:32;not null" bson:"username" json:"username"`
	PasswordHash string     `gorm:"size:64;not null" bson:"password_hash" json:"-"`
	Role         string     `gorm:"size:16;not null" bson:"role" json:"role"`
	Status       int        `gorm:"not null" bson:"status" json:"status"` // 0=banned 1=active
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	LastLoginAt  *time.Time `bson:"last_login_at,omitempty" json:"last_login_at"`
	LastLoginIP  string     `gorm:"size:45" bson:"last_login_ip" json:"last_login_ip"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// NewID returns a fresh document id.
func NewID() string { return uuid.NewString() }
