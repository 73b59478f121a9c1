// Package store defines the persistence contract shared by the relational
// (gorm) and document (MongoDB) backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/duskhollow/server/model"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("store: duplicate key")
)

// Store is the persistence surface used by the game services.
// Implementations must be safe for concurrent use.
type Store interface {
	Users
	Characters
	Statuses
	Dungeons
	Items
	Audit

	// Tx runs fn inside a transaction. The Store passed to fn (and the ctx
	// when the backend needs it) must be used for every read and write that
	// belongs to the transaction. fn returning an error aborts everything.
	Tx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	Close() error
}

type Users interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByID(ctx context.Context, id string) (*model.User, error)
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	ListUsers(ctx context.Context, offset, limit int) ([]model.User, error)
}

type Characters interface {
	CreateCharacter(ctx context.Context, c *model.Character) error
	CharacterByID(ctx context.Context, id string) (*model.Character, error)
	CharactersByUser(ctx context.Context, userID string) ([]model.Character, error)
	UpdateCharacter(ctx context.Context, c *model.Character) error
	DeleteCharacter(ctx context.Context, id string) error
	// TopCharacters orders by level then experience, highest first.
	TopCharacters(ctx context.Context, limit int) ([]model.Character, error)
	CountCharacters(ctx context.Context) (int64, error)
}

type Statuses interface {
	StatusByCharacter(ctx context.Context, characterID string) (*model.CharacterStatus, error)
	SaveStatus(ctx context.Context, s *model.CharacterStatus) error
	DeleteStatus(ctx context.Context, characterID string) error
}

type Dungeons interface {
	CreateDungeon(ctx context.Context, d *model.Dungeon) error
	DungeonByID(ctx context.Context, id string) (*model.Dungeon, error)
	ActiveDungeon(ctx context.Context, characterID string) (*model.Dungeon, error)
	DungeonsByCharacter(ctx context.Context, characterID string, limit int) ([]model.Dungeon, error)
	UpdateDungeon(ctx context.Context, d *model.Dungeon) error
	DeleteDungeonsByCharacter(ctx context.Context, characterID string) error
	// StaleDungeons lists active runs not touched since before the cutoff.
	StaleDungeons(ctx context.Context, before time.Time) ([]model.Dungeon, error)
	CountActiveDungeons(ctx context.Context) (int64, error)
}

type Items interface {
	CreateItems(ctx context.Context, items []*model.Item) error
	ItemByID(ctx context.Context, id string) (*model.Item, error)
	ItemsByCharacter(ctx context.Context, characterID string) ([]model.Item, error)
	UpdateItem(ctx context.Context, it *model.Item) error
	DeleteItem(ctx context.Context, id string) error
	DeleteItemsByCharacter(ctx context.Context, characterID string) error
}

type Audit interface {
	InsertAuditLogs(ctx context.Context, logs []*model.AuditLog) error
	// AuditLogs lists entries newest first; an empty characterID lists all.
	AuditLogs(ctx context.Context, characterID string, limit int) ([]model.AuditLog, error)
}
