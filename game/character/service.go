// Package character manages characters outside of dungeons: creation,
// rewards, healing, labor shifts, equipment and portraits.
package character

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/duskhollow/server/audit"
	"github.com/duskhollow/server/config"
	"github.com/duskhollow/server/game"
	"github.com/duskhollow/server/game/combat"
	"github.com/duskhollow/server/game/event"
	"github.com/duskhollow/server/game/progression"
	"github.com/duskhollow/server/imagegen"
	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/resource"
	"github.com/duskhollow/server/scheduler"
	"github.com/duskhollow/server/store"
	"go.uber.org/zap"
)

// Leaderboard tracks character standings.
type Leaderboard interface {
	Update(ctx context.Context, c *model.Character)
	Remove(ctx context.Context, characterID string)
}

// Delayer schedules one-shot callbacks; *scheduler.Scheduler satisfies it.
type Delayer interface {
	AddDelay(name string, delay time.Duration, fn scheduler.TaskFn)
	Remove(name string)
}

// Service implements the character operations.
type Service struct {
	st     store.Store
	cat    *resource.Catalog
	cfg    config.GameConfig
	bus    *event.Bus
	audit  audit.Logger
	board  Leaderboard
	delays Delayer
	images imagegen.Generator
	logger *zap.Logger
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLeaderboard keeps the ranking in step with level changes.
func WithLeaderboard(b Leaderboard) Option { return func(s *Service) { s.board = b } }

// WithDelayer enables labor-finished notifications.
func WithDelayer(d Delayer) Option { return func(s *Service) { s.delays = d } }

// WithImages enables portrait generation.
func WithImages(g imagegen.Generator) Option { return func(s *Service) { s.images = g } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(st store.Store, cat *resource.Catalog, cfg config.GameConfig,
	bus *event.Bus, auditLog audit.Logger, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	if cfg.MaxCharacters <= 0 {
		cfg.MaxCharacters = 3
	}
	if cfg.LaborUnit <= 0 {
		cfg.LaborUnit = time.Hour
	}
	if cfg.LaborMaxHours <= 0 {
		cfg.LaborMaxHours = 8
	}
	s := &Service{
		st:     st,
		cat:    cat,
		cfg:    cfg,
		bus:    bus,
		audit:  auditLog,
		logger: logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Sheet is a character with its derived combat numbers.
type Sheet struct {
	*model.Character
	Status     *model.CharacterStatus `json:"status"`
	Attack     int                    `json:"attack"`
	Defense    int                    `json:"defense"`
	CritChance int                    `json:"crit_chance"`
	FleeChance int                    `json:"flee_chance"`
	ExpToNext  int64                  `json:"exp_to_next"`
	Weapon     *model.Item            `json:"weapon,omitempty"`
	Armor      *model.Item            `json:"armor,omitempty"`
}

// RewardResult is the character after a payout.
type RewardResult struct {
	Character *model.Character        `json:"character"`
	Level     progression.LevelResult `json:"level"`
}

// HealResult is the character after a heal and what it cost.
type HealResult struct {
	Character *model.Character `json:"character"`
	Cost      int64            `json:"cost"`
}

func validName(name string) bool {
	n := utf8.RuneCountInString(name)
	if n < 2 || n > 24 {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' && r != '\'' && r != '-' {
			return false
		}
	}
	return true
}

// Create makes a level 1 character of the class with its starter weapon
// equipped.
func (s *Service) Create(ctx context.Context, caller game.Caller, name, classKey string) (*model.Character, error) {
	name = strings.TrimSpace(name)
	if !validName(name) {
		return nil, ErrInvalidName
	}
	class := s.cat.ClassByKey(classKey)
	if class == nil {
		return nil, ErrUnknownClass
	}

	var out *model.Character
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		existing, err := tx.CharactersByUser(ctx, caller.UserID)
		if err != nil {
			return err
		}
		if len(existing) >= s.cfg.MaxCharacters {
			return fmt.Errorf("%w: %d", ErrTooManyCharacters, s.cfg.MaxCharacters)
		}

		now := s.now()
		c := progression.NewCharacter(caller.UserID, name, class, s.cfg.StartingGold)
		c.CreatedAt = now
		var starter *model.Item
		if l := s.cat.LootByKey(class.StarterWeapon); l != nil {
			starter = combat.LootItem(l).ToItem(c.ID, "starter", now)
			starter.Equipped = true
			c.WeaponID = starter.ID
		}

		if err := tx.CreateCharacter(ctx, c); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrNameTaken
			}
			return err
		}
		if starter != nil {
			if err := tx.CreateItems(ctx, []*model.Item{starter}); err != nil {
				return err
			}
		}
		status := &model.CharacterStatus{CharacterID: c.ID}
		status.Idle(now)
		if err := tx.SaveStatus(ctx, status); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.board != nil {
		s.board.Update(ctx, out)
	}
	s.logger.Info("character created",
		zap.String("character_id", out.ID), zap.String("user_id", caller.UserID), zap.String("class", classKey))
	return out, nil
}

// List returns the caller's characters.
func (s *Service) List(ctx context.Context, caller game.Caller) ([]model.Character, error) {
	return s.st.CharactersByUser(ctx, caller.UserID)
}

// Get returns a character the caller may see.
func (s *Service) Get(ctx context.Context, caller game.Caller, id string) (*model.Character, error) {
	c, err := s.st.CharacterByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanRead(c.UserID) {
		return nil, game.ErrNotOwner
	}
	return c, nil
}

// Sheet returns the character with status, equipment and derived stats.
func (s *Service) Sheet(ctx context.Context, caller game.Caller, id string) (*Sheet, error) {
	c, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	class := s.cat.ClassByKey(c.Class)
	if class == nil {
		return nil, fmt.Errorf("character %s has unknown class %q", c.ID, c.Class)
	}
	items, err := s.st.ItemsByCharacter(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	status, err := statusOf(ctx, s.st, c.ID, s.now())
	if err != nil {
		return nil, err
	}
	f := combat.NewFighter(c, class, items)
	sh := &Sheet{
		Character:  c,
		Status:     status,
		Attack:     f.AttackPower(),
		Defense:    f.Defense(),
		CritChance: f.CritChance(),
		FleeChance: f.FleeChance(),
		Weapon:     f.Weapon,
		Armor:      f.Armor,
	}
	if c.Level < progression.MaxLevel {
		sh.ExpToNext = progression.ExpToNext(c.Level) - c.Experience
	}
	return sh, nil
}

// Delete removes a character with its items, status and dungeon history.
// Characters inside a dungeon cannot be deleted.
func (s *Service) Delete(ctx context.Context, caller game.Caller, id string) error {
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		c, err := s.owned(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		status, err := statusOf(ctx, tx, c.ID, s.now())
		if err != nil {
			return err
		}
		if status.Activity == model.ActivityDungeon {
			return ErrInDungeon
		}
		if _, err := tx.ActiveDungeon(ctx, c.ID); err == nil {
			return ErrInDungeon
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err := tx.DeleteItemsByCharacter(ctx, c.ID); err != nil {
			return err
		}
		if err := tx.DeleteStatus(ctx, c.ID); err != nil {
			return err
		}
		if err := tx.DeleteDungeonsByCharacter(ctx, c.ID); err != nil {
			return err
		}
		return tx.DeleteCharacter(ctx, c.ID)
	})
	if err != nil {
		return err
	}
	if s.board != nil {
		s.board.Remove(ctx, id)
	}
	if s.delays != nil {
		s.delays.Remove(laborTask(id))
	}
	s.logger.Info("character deleted", zap.String("character_id", id), zap.String("user_id", caller.UserID))
	return nil
}

// Reward pays experience and gold, applying level-ups. The owner or an
// admin may grant it.
func (s *Service) Reward(ctx context.Context, caller game.Caller, id string, exp, gold int64) (*RewardResult, error) {
	if err := progression.ValidateReward(exp, gold); err != nil {
		return nil, err
	}
	var out *RewardResult
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		c, err := tx.CharacterByID(ctx, id)
		if err != nil {
			return err
		}
		if !caller.CanRead(c.UserID) {
			return game.ErrNotOwner
		}
		class := s.cat.ClassByKey(c.Class)
		if class == nil {
			return fmt.Errorf("character %s has unknown class %q", c.ID, c.Class)
		}
		lv, err := progression.Reward(c, class, exp, gold)
		if err != nil {
			return err
		}
		if err := tx.UpdateCharacter(ctx, c); err != nil {
			return err
		}
		out = &RewardResult{Character: c, Level: lv}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c := out.Character
	s.audit.Log(audit.Entry{
		TraceID:     game.TraceID(ctx),
		UserID:      caller.UserID,
		CharacterID: c.ID,
		Action:      audit.ActionReward,
		Detail:      map[string]interface{}{"experience": exp, "gold": gold, "level": out.Level},
	})
	if out.Level.LevelsGained() > 0 {
		s.bus.Character(ctx, c.ID, event.LevelUp, out.Level)
	}
	if s.board != nil {
		s.board.Update(ctx, c)
	}
	return out, nil
}

// Heal restores HP and resource for heal_cost_per_hp gold per missing HP.
func (s *Service) Heal(ctx context.Context, caller game.Caller, id string) (*HealResult, error) {
	var out *HealResult
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		c, err := s.owned(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		status, err := statusOf(ctx, tx, c.ID, s.now())
		if err != nil {
			return err
		}
		if status.Activity == model.ActivityDungeon {
			return ErrInDungeon
		}
		missing := c.MaxHP - c.HP
		if missing <= 0 && c.Resource >= c.MaxResource {
			return ErrAlreadyHealthy
		}
		cost := int64(max(missing, 0)) * s.cfg.HealCostPerHP
		if cost > 0 {
			if err := progression.SpendGold(c, cost); err != nil {
				return err
			}
		}
		c.HP = c.MaxHP
		c.Resource = c.MaxResource
		if err := tx.UpdateCharacter(ctx, c); err != nil {
			return err
		}
		out = &HealResult{Character: c, Cost: cost}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(audit.Entry{
		TraceID:     game.TraceID(ctx),
		UserID:      caller.UserID,
		CharacterID: id,
		Action:      audit.ActionHeal,
		Detail:      map[string]interface{}{"cost": out.Cost},
	})
	return out, nil
}

// GeneratePortrait asks the image service for a portrait and stores its URL.
// An empty prompt gets one built from the character.
func (s *Service) GeneratePortrait(ctx context.Context, caller game.Caller, id, prompt string) (*model.Character, error) {
	if s.images == nil {
		return nil, ErrImageGenDisabled
	}
	c, err := s.owned(ctx, s.st, caller, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		className := c.Class
		if class := s.cat.ClassByKey(c.Class); class != nil {
			className = class.Name
		}
		prompt = imagegen.PortraitPrompt(c.Name, className, c.Level)
	}
	url, err := s.images.Generate(ctx, prompt)
	if errors.Is(err, imagegen.ErrDisabled) {
		return nil, ErrImageGenDisabled
	}
	if err != nil {
		return nil, fmt.Errorf("generate portrait: %w", err)
	}

	err = s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		c, err = s.owned(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		c.ImageURL = url
		return tx.UpdateCharacter(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) owned(ctx context.Context, tx store.Store, caller game.Caller, id string) (*model.Character, error) {
	c, err := tx.CharacterByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(c.UserID) {
		return nil, game.ErrNotOwner
	}
	return c, nil
}

func (s *Service) readable(ctx context.Context, caller game.Caller, id string) (*model.Character, error) {
	c, err := s.st.CharacterByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanRead(c.UserID) {
		return nil, game.ErrNotOwner
	}
	return c, nil
}

func statusOf(ctx context.Context, tx store.Store, charID string, now time.Time) (*model.CharacterStatus, error) {
	st, err := tx.StatusByCharacter(ctx, charID)
	if errors.Is(err, store.ErrNotFound) {
		st = &model.CharacterStatus{CharacterID: charID}
		st.Idle(now)
		return st, nil
	}
	return st, err
}
