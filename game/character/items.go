package character

import (
	"context"
	"errors"

	"github.com/duskhollow/server/audit"
	"github.com/duskhollow/server/game"
	"github.com/duskhollow/server/game/progression"
	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/store"
)

// ItemResult is the character and item after an item operation.
type ItemResult struct {
	Character *model.Character `json:"character"`
	Item      *model.Item      `json:"item"`
	Healed    int              `json:"healed,omitempty"`
	Gold      int64            `json:"gold,omitempty"`
}

// ListItems returns the character's owned items.
func (s *Service) ListItems(ctx context.Context, caller game.Caller, id string) ([]model.Item, error) {
	if _, err := s.readable(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.st.ItemsByCharacter(ctx, id)
}

func (s *Service) ownedItem(ctx context.Context, tx store.Store, caller game.Caller, charID, itemID string) (*model.Character, *model.Item, error) {
	c, err := s.owned(ctx, tx, caller, charID)
	if err != nil {
		return nil, nil, err
	}
	it, err := tx.ItemByID(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if it.CharacterID != c.ID {
		return nil, nil, store.ErrNotFound
	}
	return c, it, nil
}

func slotOf(c *model.Character, kind string) *string {
	if kind == model.ItemKindWeapon {
		return &c.WeaponID
	}
	return &c.ArmorID
}

// Equip puts a weapon or armor into its slot, unequipping what was there.
func (s *Service) Equip(ctx context.Context, caller game.Caller, charID, itemID string) (*ItemResult, error) {
	var out *ItemResult
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		c, it, err := s.ownedItem(ctx, tx, caller, charID, itemID)
		if err != nil {
			return err
		}
		if !it.Equippable() {
			return ErrNotEquippable
		}
		out = &ItemResult{Character: c, Item: it}
		slot := slotOf(c, it.Kind)
		if *slot == it.ID && it.Equipped {
			return nil
		}
		if *slot != "" && *slot != it.ID {
			prev, err := tx.ItemByID(ctx, *slot)
			switch {
			case err == nil:
				prev.Equipped = false
				if err := tx.UpdateItem(ctx, prev); err != nil {
					return err
				}
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}
		*slot = it.ID
		it.Equipped = true
		if err := tx.UpdateItem(ctx, it); err != nil {
			return err
		}
		return tx.UpdateCharacter(ctx, c)
	})
	return out, err
}

// Unequip empties the item's slot.
func (s *Service) Unequip(ctx context.Context, caller game.Caller, charID, itemID string) (*ItemResult, error) {
	var out *ItemResult
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		c, it, err := s.ownedItem(ctx, tx, caller, charID, itemID)
		if err != nil {
			return err
		}
		if !it.Equippable() || !it.Equipped {
			return ErrNotEquipped
		}
		if slot := slotOf(c, it.Kind); *slot == it.ID {
			*slot = ""
		}
		it.Equipped = false
		if err := tx.UpdateItem(ctx, it); err != nil {
			return err
		}
		if err := tx.UpdateCharacter(ctx, c); err != nil {
			return err
		}
		out = &ItemResult{Character: c, Item: it}
		return nil
	})
	return out, err
}

// UseItem drinks a consumable: it heals and is used up.
func (s *Service) UseItem(ctx context.Context, caller game.Caller, charID, itemID string) (*ItemResult, error) {
	var out *ItemResult
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		c, it, err := s.ownedItem(ctx, tx, caller, charID, itemID)
		if err != nil {
			return err
		}
		if it.Kind != model.ItemKindConsumable {
			return ErrNotConsumable
		}
		if c.HP >= c.MaxHP {
			return ErrAlreadyHealthy
		}
		before := c.HP
		c.HP = min(c.MaxHP, c.HP+it.Heal)
		if err := tx.DeleteItem(ctx, it.ID); err != nil {
			return err
		}
		if err := tx.UpdateCharacter(ctx, c); err != nil {
			return err
		}
		out = &ItemResult{Character: c, Item: it, Healed: c.HP - before}
		return nil
	})
	return out, err
}

// SellItem sells an unequipped item for half its value.
func (s *Service) SellItem(ctx context.Context, caller game.Caller, charID, itemID string) (*ItemResult, error) {
	var out *ItemResult
	err := s.st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		c, it, err := s.ownedItem(ctx, tx, caller, charID, itemID)
		if err != nil {
			return err
		}
		if it.Equipped {
			return ErrItemEquipped
		}
		gold := it.Value / 2
		if err := progression.AddGold(c, gold); err != nil {
			return err
		}
		if err := tx.DeleteItem(ctx, it.ID); err != nil {
			return err
		}
		if err := tx.UpdateCharacter(ctx, c); err != nil {
			return err
		}
		out = &ItemResult{Character: c, Item: it, Gold: gold}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(audit.Entry{
		TraceID:     game.TraceID(ctx),
		UserID:      caller.UserID,
		CharacterID: charID,
		Action:      audit.ActionItemSold,
		Detail:      map[string]interface{}{"item": out.Item.Key, "gold": out.Gold},
	})
	return out, nil
}
