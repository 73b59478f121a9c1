// Package gormstore implements store.Store on top of gorm (SQLite or MySQL).
package gormstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is a gorm-backed store.Store.
type Store struct {
	db *gorm.DB
	tx bool
}

// New wraps an opened *gorm.DB. Call model.AutoMigrate before use.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx, tx: true})
	})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) with(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// forUpdate is with plus a row lock when running inside a MySQL
// transaction, so concurrent read-check-write sequences on the same row
// serialize. SQLite already serializes on its single connection.
func (s *Store) forUpdate(ctx context.Context) *gorm.DB {
	q := s.with(ctx)
	if s.tx && s.db.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// ---- Users ----

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	return translate(s.with(ctx).Create(u).Error)
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.with(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := s.with(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	return translate(s.with(ctx).Model(u).Select("*").Updates(u).Error)
}

func (s *Store) ListUsers(ctx context.Context, offset, limit int) ([]model.User, error) {
	var users []model.User
	err := s.with(ctx).Order("created_at ASC").Offset(offset).Limit(limit).Find(&users).Error
	return users, translate(err)
}

// ---- Characters ----

func (s *Store) CreateCharacter(ctx context.Context, c *model.Character) error {
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return translate(s.with(ctx).Create(c).Error)
}

func (s *Store) CharacterByID(ctx context.Context, id string) (*model.Character, error) {
	var c model.Character
	if err := s.forUpdate(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) CharactersByUser(ctx context.Context, userID string) ([]model.Character, error) {
	var chars []model.Character
	err := s.with(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&chars).Error
	return chars, translate(err)
}

func (s *Store) UpdateCharacter(ctx context.Context, c *model.Character) error {
	c.UpdatedAt = time.Now()
	return translate(s.with(ctx).Model(c).Select("*").Updates(c).Error)
}

func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	res := s.with(ctx).Where("id = ?", id).Delete(&model.Character{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) TopCharacters(ctx context.Context, limit int) ([]model.Character, error) {
	var chars []model.Character
	err := s.with(ctx).Order("level DESC, experience DESC").Limit(limit).Find(&chars).Error
	return chars, translate(err)
}

func (s *Store) CountCharacters(ctx context.Context) (int64, error) {
	var n int64
	err := s.with(ctx).Model(&model.Character{}).Count(&n).Error
	return n, translate(err)
}

// ---- Statuses ----

func (s *Store) StatusByCharacter(ctx context.Context, characterID string) (*model.CharacterStatus, error) {
	var st model.CharacterStatus
	if err := s.forUpdate(ctx).Where("character_id = ?", characterID).First(&st).Error; err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

// SaveStatus inserts or replaces the status document of a character.
func (s *Store) SaveStatus(ctx context.Context, st *model.CharacterStatus) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	return translate(s.with(ctx).Save(st).Error)
}

func (s *Store) DeleteStatus(ctx context.Context, characterID string) error {
	return translate(s.with(ctx).Where("character_id = ?", characterID).Delete(&model.CharacterStatus{}).Error)
}

// ---- Dungeons ----

func (s *Store) CreateDungeon(ctx context.Context, d *model.Dungeon) error {
	now := time.Now()
	if d.StartedAt.IsZero() {
		d.StartedAt = now
	}
	d.UpdatedAt = now
	return translate(s.with(ctx).Create(d).Error)
}

func (s *Store) DungeonByID(ctx context.Context, id string) (*model.Dungeon, error) {
	var d model.Dungeon
	if err := s.forUpdate(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *Store) ActiveDungeon(ctx context.Context, characterID string) (*model.Dungeon, error) {
	var d model.Dungeon
	err := s.forUpdate(ctx).Where("character_id = ? AND active = ?", characterID, true).First(&d).Error
	if err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *Store) DungeonsByCharacter(ctx context.Context, characterID string, limit int) ([]model.Dungeon, error) {
	var ds []model.Dungeon
	err := s.with(ctx).Where("character_id = ?", characterID).
		Order("started_at DESC").Limit(limit).Find(&ds).Error
	return ds, translate(err)
}

func (s *Store) UpdateDungeon(ctx context.Context, d *model.Dungeon) error {
	d.UpdatedAt = time.Now()
	return translate(s.with(ctx).Model(d).Select("*").Updates(d).Error)
}

func (s *Store) DeleteDungeonsByCharacter(ctx context.Context, characterID string) error {
	return translate(s.with(ctx).Where("character_id = ?", characterID).Delete(&model.Dungeon{}).Error)
}

func (s *Store) StaleDungeons(ctx context.Context, before time.Time) ([]model.Dungeon, error) {
	var ds []model.Dungeon
	err := s.with(ctx).Where("active = ? AND updated_at < ?", true, before).Find(&ds).Error
	return ds, translate(err)
}

func (s *Store) CountActiveDungeons(ctx context.Context) (int64, error) {
	var n int64
	err := s.with(ctx).Model(&model.Dungeon{}).Where("active = ?", true).Count(&n).Error
	return n, translate(err)
}

// ---- Items ----

func (s *Store) CreateItems(ctx context.Context, items []*model.Item) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now()
	for _, it := range items {
		if it.CreatedAt.IsZero() {
			it.CreatedAt = now
		}
	}
	return translate(s.with(ctx).Create(&items).Error)
}

func (s *Store) ItemByID(ctx context.Context, id string) (*model.Item, error) {
	var it model.Item
	if err := s.forUpdate(ctx).Where("id = ?", id).First(&it).Error; err != nil {
		return nil, translate(err)
	}
	return &it, nil
}

func (s *Store) ItemsByCharacter(ctx context.Context, characterID string) ([]model.Item, error) {
	var items []model.Item
	err := s.with(ctx).Where("character_id = ?", characterID).Order("created_at ASC").Find(&items).Error
	return items, translate(err)
}

func (s *Store) UpdateItem(ctx context.Context, it *model.Item) error {
	return translate(s.with(ctx).Model(it).Select("*").Updates(it).Error)
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res := s.with(ctx).Where("id = ?", id).Delete(&model.Item{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteItemsByCharacter(ctx context.Context, characterID string) error {
	return translate(s.with(ctx).Where("character_id = ?", characterID).Delete(&model.Item{}).Error)
}

// ---- Audit ----

func (s *Store) InsertAuditLogs(ctx context.Context, logs []*model.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return translate(s.with(ctx).Create(&logs).Error)
}

func (s *Store) AuditLogs(ctx context.Context, characterID string, limit int) ([]model.AuditLog, error) {
	q := s.with(ctx).Order("created_at DESC").Limit(limit)
	if characterID != "" {
		q = q.Where("character_id = ?", characterID)
	}
	var logs []model.AuditLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, translate(err)
	}
	return logs, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return store.ErrDuplicate
	}
	return err
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
