package character

import (
	"context"
	"time"

	"github.com/duskhollow/server/audit"
	"github.com/duskhollow/server/game"
	"github.com/duskhollow/server/game/event"
	"github.com/duskhollow/server/game/progression"
	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/store"
)

// StatusView is the activity status with labor timing filled in.
type StatusView struct {
	*model.CharacterStatus
	LaborReady       bool  `json:"labor_ready"`
	RemainingSeconds int64 `json:"labor_remaining_seconds,omitempty"`
}

// LaborResult is the character after collecting wages.
type LaborResult struct {
	Character *model.Character `json:"character"`
	Wage      int64            `json:"wage"`
}

func laborTask(charID string) string { return "labor:" + charID }

// Wage is what a shift of hours pays a character of the given level.
func (s *Service) Wage(hours, level int) int64 {
	return int64(hours) * (s.cfg.LaborBaseWage + 2*int64(level))
}

func (s *Service) view(st *model.CharacterStatus) *StatusView {
	v := &StatusView{CharacterStatus: st}
	if st.Activity == model.ActivityLabor && st.LaborEndsAt != nil {
		left := st.LaborEndsAt.Sub(s.now())
		if left <= 0 {
			v.LaborReady = true
		} else {
			v.RemainingSeconds = int64(left.Round(time.Second) / time.Second)
		}
	}
	return v
}

// Status returns what the character is doing.
func (s *Service) Status(ctx context.Context, caller game.Caller, id string) (*StatusView, error) {
	c, err := s.readable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	st, err := statusOf(ctx, s.st, c.ID, s.now())
	if err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// StartLabor sends an idle character to work for the given hours. The wage
// is fixed at the start and paid by CollectLabor.
func (s *Service) StartLabor(ctx context.Context, caller game.Caller, id string, hours int) (*StatusView, error) {
	if hours < 1 || hours > s.cfg.LaborMaxHours {
		return nil, ErrBadLaborHours
	}
	var out *model.CharacterStatus
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		c, err := s.owned(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		now := s.now()
		st, err := statusOf(ctx, tx, c.ID, now)
		if err != nil {
			return err
		}
		if st.Activity != model.ActivityIdle {
			return ErrBusy
		}
		ends := now.Add(time.Duration(hours) * s.cfg.LaborUnit)
		st.Activity = model.ActivityLabor
		st.LaborHours = hours
		st.LaborWage = s.Wage(hours, c.Level)
		st.LaborStartedAt = &now
		st.LaborEndsAt = &ends
		st.UpdatedAt = now
		if err := tx.SaveStatus(ctx, st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.delays != nil {
		wage := out.LaborWage
		s.delays.AddDelay(laborTask(id), out.LaborEndsAt.Sub(s.now()), func(ctx context.Context) error {
			s.bus.Character(ctx, id, event.LaborFinished, map[string]interface{}{"wage": wage})
			return nil
		})
	}
	return s.view(out), nil
}

// CollectLabor pays a finished shift and returns the character to idle.
func (s *Service) CollectLabor(ctx context.Context, caller game.Caller, id string) (*LaborResult, error) {
	var out *LaborResult
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		c, err := s.owned(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		now := s.now()
		st, err := statusOf(ctx, tx, c.ID, now)
		if err != nil {
			return err
		}
		if st.Activity != model.ActivityLabor {
			return ErrNotLaboring
		}
		if st.LaborEndsAt != nil && now.Before(*st.LaborEndsAt) {
			return ErrLaborNotFinished
		}
		wage := st.LaborWage
		if err := progression.AddGold(c, wage); err != nil {
			return err
		}
		if err := tx.UpdateCharacter(ctx, c); err != nil {
			return err
		}
		st.Idle(now)
		if err := tx.SaveStatus(ctx, st); err != nil {
			return err
		}
		out = &LaborResult{Character: c, Wage: wage}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(audit.Entry{
		TraceID:     game.TraceID(ctx),
		UserID:      caller.UserID,
		CharacterID: id,
		Action:      audit.ActionLaborPaid,
		Detail:      map[string]interface{}{"wage": out.Wage},
	})
	return out, nil
}

// CancelLabor abandons a shift without pay.
func (s *Service) CancelLabor(ctx context.Context, caller game.Caller, id string) (*StatusView, error) {
	var out *model.CharacterStatus
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		c, err := s.owned(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		now := s.now()
		st, err := statusOf(ctx, tx, c.ID, now)
		if err != nil {
			return err
		}
		if st.Activity != model.ActivityLabor {
			return ErrNotLaboring
		}
		st.Idle(now)
		if err := tx.SaveStatus(ctx, st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.delays != nil {
		s.delays.Remove(laborTask(id))
	}
	return s.view(out), nil
}
