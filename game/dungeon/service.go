// Package dungeon runs dungeon expeditions: entering, rolling rooms, combat,
// traps, loot staging and the final payout or loss. Every operation is one
// store transaction guarded by an ownership check.
package dungeon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/duskhollow/server/audit"
	"github.com/duskhollow/server/config"
	"github.com/duskhollow/server/game"
	"github.com/duskhollow/server/game/combat"
	"github.com/duskhollow/server/game/event"
	"github.com/duskhollow/server/game/progression"
	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/resource"
	"github.com/duskhollow/server/store"
	"go.uber.org/zap"
)

// MaxLogEntries caps the run log; older lines are dropped.
const MaxLogEntries = 200

const defaultListLimit = 20

// Leaderboard is told about characters whose level may have changed.
type Leaderboard interface {
	Update(ctx context.Context, c *model.Character)
}

// Service implements the dungeon operations.
type Service struct {
	st     store.Store
	cat    *resource.Catalog
	cfg    config.GameConfig
	bus    *event.Bus
	audit  audit.Logger
	board  Leaderboard
	roller combat.Roller
	logger *zap.Logger
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithRoller replaces the random source, for replays and tests.
func WithRoller(r combat.Roller) Option { return func(s *Service) { s.roller = r } }

// WithLeaderboard registers the ranking board.
func WithLeaderboard(b Leaderboard) Option { return func(s *Service) { s.board = b } }

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
	if cfg.TempInventorySize <= 0 {
		cfg.TempInventorySize = 20
	}
	s := &Service{
		st:     st,
		cat:    cat,
		cfg:    cfg,
		bus:    bus,
		audit:  auditLog,
		roller: combat.DefaultRoller,
		logger: logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AdvanceResult is what the next room held.
type AdvanceResult struct {
	Dungeon *model.Dungeon  `json:"dungeon"`
	Room    string          `json:"room"`
	Gold    int64           `json:"gold,omitempty"`
	Item    *model.LootItem `json:"item,omitempty"`
}

// FightResult is one combat round and, on victory, the drops.
type FightResult struct {
	Dungeon   *model.Dungeon      `json:"dungeon"`
	Character *model.Character    `json:"character"`
	Round     *combat.RoundResult `json:"round"`
	Drops     []model.LootItem    `json:"drops,omitempty"`
}

// TrapOutcome is the result of dealing with a trap.
type TrapOutcome struct {
	Dungeon   *model.Dungeon     `json:"dungeon"`
	Character *model.Character   `json:"character"`
	Trap      *combat.TrapResult `json:"trap"`
}

// CompleteResult is the payout of a cleared dungeon.
type CompleteResult struct {
	Dungeon    *model.Dungeon          `json:"dungeon"`
	Character  *model.Character        `json:"character"`
	Items      []*model.Item           `json:"items"`
	Experience int64                   `json:"experience"`
	Gold       int64                   `json:"gold"`
	Level      progression.LevelResult `json:"level"`
}

// pending collects what to announce once the transaction has committed.
type pending struct {
	events []func(ctx context.Context)
	audits []audit.Entry
	ranked *model.Character
}

func (p *pending) event(bus *event.Bus, charID, typ string, data interface{}) {
	p.events = append(p.events, func(ctx context.Context) { bus.Character(ctx, charID, typ, data) })
}

// inTx runs fn in a transaction and flushes its side effects after commit.
// Each attempt gets a fresh pending, so a store that retries fn does not
// repeat events or audit entries.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, tx store.Store, p *pending) error) error {
	var p *pending
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		p = &pending{}
		return fn(ctx, tx, p)
	})
	if err != nil {
		return err
	}
	s.flush(ctx, p)
	return nil
}

func (s *Service) flush(ctx context.Context, p *pending) {
	for _, fn := range p.events {
		fn(ctx)
	}
	for _, e := range p.audits {
		s.audit.Log(e)
	}
	if p.ranked != nil && s.board != nil {
		s.board.Update(ctx, p.ranked)
	}
}

// ---- lookups ----

func (s *Service) owned(ctx context.Context, tx store.Store, caller game.Caller, dungeonID string) (*model.Dungeon, error) {
	d, err := tx.DungeonByID(ctx, dungeonID)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(d.UserID) {
		return nil, game.ErrNotOwner
	}
	return d, nil
}

func (s *Service) ownedActive(ctx context.Context, tx store.Store, caller game.Caller, dungeonID string) (*model.Dungeon, error) {
	d, err := s.owned(ctx, tx, caller, dungeonID)
	if err != nil {
		return nil, err
	}
	if !d.Active {
		return nil, ErrNotActive
	}
	return d, nil
}

func (s *Service) fighter(ctx context.Context, tx store.Store, charID string) (*combat.Fighter, error) {
	c, err := tx.CharacterByID(ctx, charID)
	if err != nil {
		return nil, fmt.Errorf("load character: %w", err)
	}
	class := s.cat.ClassByKey(c.Class)
	if class == nil {
		return nil, fmt.Errorf("character %s has unknown class %q", c.ID, c.Class)
	}
	items, err := tx.ItemsByCharacter(ctx, charID)
	if err != nil {
		return nil, err
	}
	return combat.NewFighter(c, class, items), nil
}

func (s *Service) difficulty(d *model.Dungeon) (*resource.Difficulty, error) {
	diff := s.cat.DifficultyByKey(d.Difficulty)
	if diff == nil {
		return nil, fmt.Errorf("dungeon %s has unknown difficulty %q", d.ID, d.Difficulty)
	}
	return diff, nil
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

func (s *Service) logf(d *model.Dungeon, kind, format string, args ...interface{}) {
	d.Log = append(d.Log, model.LogEntry{
		Stage:   d.Stage,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		At:      s.now(),
	})
	if n := len(d.Log); n > MaxLogEntries {
		d.Log = append([]model.LogEntry(nil), d.Log[n-MaxLogEntries:]...)
	}
}

// ---- operations ----

// Start enters a new dungeon with the given character.
func (s *Service) Start(ctx context.Context, caller game.Caller, charID, difficulty string) (*model.Dungeon, error) {
	diff := s.cat.DifficultyByKey(difficulty)
	if diff == nil {
		return nil, ErrUnknownDifficulty
	}

	var out *model.Dungeon
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		c, err := tx.CharacterByID(ctx, charID)
		if err != nil {
			return err
		}
		if !caller.Owns(c.UserID) {
			return game.ErrNotOwner
		}
		if c.HP <= 0 {
			return ErrNoHP
		}
		now := s.now()
		status, err := statusOf(ctx, tx, c.ID, now)
		if err != nil {
			return err
		}
		if status.Activity != model.ActivityIdle {
			return ErrBusy
		}
		if _, err := tx.ActiveDungeon(ctx, c.ID); err == nil {
			return ErrAlreadyActive
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		d := &model.Dungeon{
			ID:          model.NewID(),
			CharacterID: c.ID,
			UserID:      c.UserID,
			Name:        diff.Name,
			Difficulty:  diff.Key,
			Stage:       1,
			MaxStages:   diff.Stages,
			Active:      true,
			State:       model.DungeonActive,
			StartedAt:   now,
		}
		s.logf(d, "start", "%s enters %s (%d stages).", c.Name, diff.Name, diff.Stages)
		if err := tx.CreateDungeon(ctx, d); err != nil {
			return err
		}

		status.Activity = model.ActivityDungeon
		status.DungeonID = d.ID
		status.UpdatedAt = now
		if err := tx.SaveStatus(ctx, status); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("dungeon started",
		zap.String("dungeon_id", out.ID), zap.String("character_id", charID), zap.String("difficulty", difficulty))
	return out, nil
}

// Advance moves into the next room. Loot left in the pending pile is lost.
func (s *Service) Advance(ctx context.Context, caller game.Caller, dungeonID string) (*AdvanceResult, error) {
	var out *AdvanceResult
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		d, err := s.ownedActive(ctx, tx, caller, dungeonID)
		if err != nil {
			return err
		}
		if d.Encounter != nil {
			return ErrEncounterPending
		}
		if d.Cleared() {
			return ErrAllCleared
		}
		diff, err := s.difficulty(d)
		if err != nil {
			return err
		}
		c, err := tx.CharacterByID(ctx, d.CharacterID)
		if err != nil {
			return err
		}

		if n := len(d.PendingLoot); n > 0 {
			s.logf(d, "loot", "%d unclaimed item(s) left behind.", n)
			d.PendingLoot = nil
		}

		res := &AdvanceResult{Dungeon: d, Room: combat.RollRoom(s.roller, d.Stage, d.MaxStages)}
		switch res.Room {
		case combat.RoomBoss:
			e := combat.SpawnBoss(s.cat, diff, d.Stage, c.Level)
			d.Encounter = &model.Encounter{Kind: model.EncounterCombat, Enemy: e}
			s.logf(d, "boss", "%s blocks the way!", e.Name)
		case combat.RoomCombat:
			e := combat.RollEnemy(s.roller, s.cat, diff, d.Stage, c.Level)
			d.Encounter = &model.Encounter{Kind: model.EncounterCombat, Enemy: e}
			s.logf(d, "combat", "A %s appears.", e.Name)
		case combat.RoomTrap:
			t := combat.RollTrap(s.roller, s.cat, diff, d.Stage, c.Level)
			d.Encounter = &model.Encounter{Kind: model.EncounterTrap, Trap: t}
			s.logf(d, "trap", "A %s lies ahead.", t.Name)
		case combat.RoomTreasure:
			gold, item := combat.RollTreasure(s.roller, s.cat, diff, d.Stage)
			d.Rewards.Gold += gold
			d.PendingLoot = []model.LootItem{item}
			res.Gold, res.Item = gold, &item
			s.logf(d, "treasure", "A chest holds %d gold and a %s.", gold, item.Name)
			d.Stage++
		default:
			s.logf(d, "empty", "The room is empty.")
			d.Stage++
		}

		if err := tx.UpdateDungeon(ctx, d); err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

// Fight resolves one combat round.
func (s *Service) Fight(ctx context.Context, caller game.Caller, dungeonID, action string) (*FightResult, error) {
	var out *FightResult
	err := s.inTx(ctx, func(ctx context.Context, tx store.Store, p *pending) error {
		d, err := s.ownedActive(ctx, tx, caller, dungeonID)
		if err != nil {
			return err
		}
		if d.Encounter == nil || d.Encounter.Kind != model.EncounterCombat || d.Encounter.Enemy == nil {
			return ErrNoCombat
		}
		f, err := s.fighter(ctx, tx, d.CharacterID)
		if err != nil {
			return err
		}

		round, err := combat.Resolve(s.roller, f, d.Encounter, action)
		if err != nil {
			return err
		}
		for _, m := range round.Messages {
			s.logf(d, "combat", "%s", m)
		}

		res := &FightResult{Dungeon: d, Character: f.Char, Round: round}
		enemy := d.Encounter.Enemy
		switch {
		case round.Victory:
			d.Rewards.Experience += enemy.Experience
			d.Rewards.Gold += enemy.Gold
			res.Drops = combat.RollDrops(s.roller, s.cat, enemy.Key)
			d.PendingLoot = append(d.PendingLoot, res.Drops...)
			s.logf(d, "victory", "%s is defeated: %d exp, %d gold, %d drop(s).",
				enemy.Name, enemy.Experience, enemy.Gold, len(res.Drops))
			d.Encounter = nil
			d.Stage++
		case round.Defeat:
			if err := s.fail(ctx, tx, d, f.Char, p); err != nil {
				return err
			}
		case round.Fled:
			d.Encounter = nil
		}

		if err := tx.UpdateCharacter(ctx, f.Char); err != nil {
			return err
		}
		if err := tx.UpdateDungeon(ctx, d); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveTrap disarms or endures the trap in the current room.
func (s *Service) ResolveTrap(ctx context.Context, caller game.Caller, dungeonID, action string) (*TrapOutcome, error) {
	var out *TrapOutcome
	err := s.inTx(ctx, func(ctx context.Context, tx store.Store, p *pending) error {
		d, err := s.ownedActive(ctx, tx, caller, dungeonID)
		if err != nil {
			return err
		}
		if d.Encounter == nil || d.Encounter.Kind != model.EncounterTrap || d.Encounter.Trap == nil {
			return ErrNoTrap
		}
		f, err := s.fighter(ctx, tx, d.CharacterID)
		if err != nil {
			return err
		}

		res, err := combat.ResolveTrap(s.roller, f, d.Encounter.Trap, action)
		if err != nil {
			return err
		}
		for _, m := range res.Messages {
			s.logf(d, "trap", "%s", m)
		}
		d.Rewards.Experience += res.Experience
		d.Encounter = nil
		if res.Defeat {
			if err := s.fail(ctx, tx, d, f.Char, p); err != nil {
				return err
			}
		} else {
			d.Stage++
		}

		if err := tx.UpdateCharacter(ctx, f.Char); err != nil {
			return err
		}
		if err := tx.UpdateDungeon(ctx, d); err != nil {
			return err
		}
		out = &TrapOutcome{Dungeon: d, Character: f.Char, Trap: res}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PickupLoot moves pending loot into the temporary inventory. An empty
// indices slice takes everything. Items not picked stay pending.
func (s *Service) PickupLoot(ctx context.Context, caller game.Caller, dungeonID string, indices []int) (*model.Dungeon, error) {
	var out *model.Dungeon
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		d, err := s.ownedActive(ctx, tx, caller, dungeonID)
		if err != nil {
			return err
		}
		if len(d.PendingLoot) == 0 {
			return ErrNoLoot
		}

		take := make(map[int]bool, len(d.PendingLoot))
		if len(indices) == 0 {
			for i := range d.PendingLoot {
				take[i] = true
			}
		}
		for _, i := range indices {
			if i < 0 || i >= len(d.PendingLoot) || take[i] {
				return fmt.Errorf("%w: %d", ErrBadLootIndex, i)
			}
			take[i] = true
		}
		if len(d.TempInventory)+len(take) > s.cfg.TempInventorySize {
			return fmt.Errorf("%w: %d/%d slots used", ErrInventoryFull, len(d.TempInventory), s.cfg.TempInventorySize)
		}

		var rest []model.LootItem
		for i, it := range d.PendingLoot {
			if take[i] {
				d.TempInventory = append(d.TempInventory, it)
				s.logf(d, "loot", "Picked up %s.", it.Name)
			} else {
				rest = append(rest, it)
			}
		}
		d.PendingLoot = rest

		if err := tx.UpdateDungeon(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}

// Complete pays out a cleared dungeon: the temporary inventory becomes owned
// items, and rewards plus the completion bonus are applied with level-ups.
func (s *Service) Complete(ctx context.Context, caller game.Caller, dungeonID string) (*CompleteResult, error) {
	var out *CompleteResult
	err := s.inTx(ctx, func(ctx context.Context, tx store.Store, p *pending) error {
		d, err := s.ownedActive(ctx, tx, caller, dungeonID)
		if err != nil {
			return err
		}
		if d.Encounter != nil {
			return ErrEncounterPending
		}
		if !d.Cleared() {
			return ErrNotCleared
		}
		diff, err := s.difficulty(d)
		if err != nil {
			return err
		}
		c, err := tx.CharacterByID(ctx, d.CharacterID)
		if err != nil {
			return err
		}
		class := s.cat.ClassByKey(c.Class)
		if class == nil {
			return fmt.Errorf("character %s has unknown class %q", c.ID, c.Class)
		}
		now := s.now()

		items := make([]*model.Item, 0, len(d.TempInventory))
		for _, l := range d.TempInventory {
			items = append(items, l.ToItem(c.ID, d.ID, now))
		}
		if err := tx.CreateItems(ctx, items); err != nil {
			return err
		}

		exp := d.Rewards.Experience + diff.CompletionBonus.Experience
		gold := d.Rewards.Gold + diff.CompletionBonus.Gold
		lv, err := progression.Reward(c, class, exp, gold)
		if err != nil {
			return err
		}
		if n := len(d.PendingLoot); n > 0 {
			s.logf(d, "loot", "%d unclaimed item(s) left behind.", n)
			d.PendingLoot = nil
		}
		s.logf(d, "complete", "%s completes %s: %d exp, %d gold, %d item(s).", c.Name, d.Name, exp, gold, len(items))

		d.Active = false
		d.State = model.DungeonCompleted
		d.EndedAt = &now
		d.TempInventory = nil
		if err := tx.UpdateDungeon(ctx, d); err != nil {
			return err
		}
		if err := tx.UpdateCharacter(ctx, c); err != nil {
			return err
		}
		if err := s.idle(ctx, tx, c.ID, now); err != nil {
			return err
		}

		out = &CompleteResult{Dungeon: d, Character: c, Items: items, Experience: exp, Gold: gold, Level: lv}
		p.event(s.bus, c.ID, event.DungeonCompleted, h{"dungeon_id": d.ID, "experience": exp, "gold": gold, "items": len(items)})
		if lv.LevelsGained() > 0 {
			p.event(s.bus, c.ID, event.LevelUp, lv)
		}
		p.audits = append(p.audits, audit.Entry{
			TraceID:     game.TraceID(ctx),
			UserID:      c.UserID,
			CharacterID: c.ID,
			Action:      audit.ActionDungeonComplete,
			Detail:      h{"dungeon_id": d.ID, "difficulty": d.Difficulty, "experience": exp, "gold": gold, "items": len(items), "level": lv},
		})
		p.ranked = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Forfeit abandons an active dungeon. Staged loot and rewards are lost.
func (s *Service) Forfeit(ctx context.Context, caller game.Caller, dungeonID string) (*model.Dungeon, error) {
	var out *model.Dungeon
	err := s.inTx(ctx, func(ctx context.Context, tx store.Store, p *pending) error {
		d, err := s.ownedActive(ctx, tx, caller, dungeonID)
		if err != nil {
			return err
		}
		if err := s.forfeit(ctx, tx, d, "forfeit", p); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ForfeitStale forfeits every active dungeon untouched for longer than
// olderThan and returns how many it closed.
func (s *Service) ForfeitStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	stale, err := s.st.StaleDungeons(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, sd := range stale {
		done := false
		err := s.inTx(ctx, func(ctx context.Context, tx store.Store, p *pending) error {
			done = false
			d, err := tx.DungeonByID(ctx, sd.ID)
			if err != nil {
				return err
			}
			// the player may have acted since the stale scan
			if !d.Active || !d.UpdatedAt.Before(cutoff) {
				return nil
			}
			done = true
			return s.forfeit(ctx, tx, d, "abandoned", p)
		})
		if err != nil {
			s.logger.Warn("stale dungeon forfeit failed", zap.String("dungeon_id", sd.ID), zap.Error(err))
			continue
		}
		if done {
			closed++
		}
	}
	if closed > 0 {
		s.logger.Info("stale dungeons forfeited", zap.Int("count", closed))
	}
	return closed, nil
}

// Get returns a dungeon the caller may see.
func (s *Service) Get(ctx context.Context, caller game.Caller, dungeonID string) (*model.Dungeon, error) {
	d, err := s.st.DungeonByID(ctx, dungeonID)
	if err != nil {
		return nil, err
	}
	if !caller.CanRead(d.UserID) {
		return nil, game.ErrNotOwner
	}
	return d, nil
}

// List returns the character's most recent runs.
func (s *Service) List(ctx context.Context, caller game.Caller, charID string, limit int) ([]model.Dungeon, error) {
	if err := s.readable(ctx, caller, charID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = defaultListLimit
	}
	return s.st.DungeonsByCharacter(ctx, charID, limit)
}

// Active returns the character's active dungeon, or store.ErrNotFound.
func (s *Service) Active(ctx context.Context, caller game.Caller, charID string) (*model.Dungeon, error) {
	if err := s.readable(ctx, caller, charID); err != nil {
		return nil, err
	}
	return s.st.ActiveDungeon(ctx, charID)
}

func (s *Service) readable(ctx context.Context, caller game.Caller, charID string) error {
	c, err := s.st.CharacterByID(ctx, charID)
	if err != nil {
		return err
	}
	if !caller.CanRead(c.UserID) {
		return game.ErrNotOwner
	}
	return nil
}

// ---- endings ----

// fail ends the run in defeat. The character survives on 1 HP.
func (s *Service) fail(ctx context.Context, tx store.Store, d *model.Dungeon, c *model.Character, p *pending) error {
	now := s.now()
	lost := d.Rewards
	s.logf(d, "defeat", "%s is defeated. Lost %d exp, %d gold and %d item(s).",
		c.Name, lost.Experience, lost.Gold, len(d.TempInventory))
	s.end(d, model.DungeonFailed, now)
	c.HP = 1
	if err := s.idle(ctx, tx, c.ID, now); err != nil {
		return err
	}
	p.event(s.bus, c.ID, event.DungeonFailed, h{"dungeon_id": d.ID, "stage": d.Stage})
	p.audits = append(p.audits, audit.Entry{
		TraceID:     game.TraceID(ctx),
		UserID:      d.UserID,
		CharacterID: c.ID,
		Action:      audit.ActionDungeonFailed,
		Detail:      h{"dungeon_id": d.ID, "stage": d.Stage, "lost": lost},
	})
	return nil
}

func (s *Service) forfeit(ctx context.Context, tx store.Store, d *model.Dungeon, reason string, p *pending) error {
	now := s.now()
	lost := d.Rewards
	s.logf(d, "forfeit", "Run abandoned (%s). Lost %d exp, %d gold and %d item(s).",
		reason, lost.Experience, lost.Gold, len(d.TempInventory))
	s.end(d, model.DungeonForfeited, now)
	if err := tx.UpdateDungeon(ctx, d); err != nil {
		return err
	}
	if err := s.idle(ctx, tx, d.CharacterID, now); err != nil {
		return err
	}
	p.event(s.bus, d.CharacterID, event.DungeonForfeited, h{"dungeon_id": d.ID, "reason": reason})
	p.audits = append(p.audits, audit.Entry{
		TraceID:     game.TraceID(ctx),
		UserID:      d.UserID,
		CharacterID: d.CharacterID,
		Action:      audit.ActionDungeonForfeit,
		Detail:      h{"dungeon_id": d.ID, "stage": d.Stage, "reason": reason, "lost": lost},
	})
	return nil
}

func (s *Service) end(d *model.Dungeon, state string, now time.Time) {
	d.Active = false
	d.State = state
	d.EndedAt = &now
	d.Encounter = nil
	d.TempInventory = nil
	d.PendingLoot = nil
	d.Rewards = model.Rewards{}
}

func (s *Service) idle(ctx context.Context, tx store.Store, charID string, now time.Time) error {
	status, err := statusOf(ctx, tx, charID, now)
	if err != nil {
		return err
	}
	status.Idle(now)
	return tx.SaveStatus(ctx, status)
}

type h = map[string]interface{}
