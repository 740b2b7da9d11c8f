package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/guard"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/permission"
)

type MenuService struct {
	items  *guard.Registry[model.MenuItem]
	policy *permission.Policy
	audit  recorder
}

func NewMenuService(repo guard.Repository[model.MenuItem], env Env, opts ...guard.Option) *MenuService {
	env = env.withDefaults()
	return &MenuService{
		items:  guard.NewRegistry(repo, opts...),
		policy: env.Policy,
		audit:  newRecorder(env.Audit, "menu"),
	}
}

// AddItem stores a new menu item, generating its id when empty.
func (s *MenuService) AddItem(ctx context.Context, actor permission.Staff, item model.MenuItem) (model.MenuItem, error) {
	if err := s.policy.Check(actor, permission.FamilyMenu, "add menu item"); err != nil {
		return model.MenuItem{}, err
	}
	if item.Price < 0 {
		return model.MenuItem{}, apperr.Errorf(apperr.ErrInvalidQuantity, "MenuService.AddItem", item.ID, "price must not be negative: %.2f", item.Price)
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if _, err := s.items.Create(ctx, item.ID, item); err != nil {
		return model.MenuItem{}, err
	}

	s.audit.record(ctx, actor, "ADD_MENU_ITEM", "MenuItem", item.ID, "Added %s at %.2f", item.Name, item.Price)
	return item, nil
}

func (s *MenuService) UpdatePrice(ctx context.Context, actor permission.Staff, itemID string, price float64) error {
	if err := s.policy.Check(actor, permission.FamilyMenu, "update price"); err != nil {
		return err
	}
	if price < 0 {
		return apperr.Errorf(apperr.ErrInvalidQuantity, "MenuService.UpdatePrice", itemID, "price must not be negative: %.2f", price)
	}
	g, err := s.items.Get(ctx, itemID)
	if err != nil {
		return err
	}

	var old float64
	err = g.Write(ctx, func(_ context.Context, item *model.MenuItem) error {
		old = item.Price
		item.Price = price
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.record(ctx, actor, "UPDATE_PRICE", "MenuItem", itemID, "Price changed from %.2f to %.2f", old, price)
	return nil
}

// SetAvailability is driven by stock levels, not by staff, so it checks no
// permission. Missing menu items are ignored: not every ingredient is sold.
func (s *MenuService) SetAvailability(ctx context.Context, itemID string, available bool) error {
	g, err := s.items.Get(ctx, itemID)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return g.Write(ctx, func(_ context.Context, item *model.MenuItem) error {
		item.Available = available
		return nil
	})
}

func (s *MenuService) Item(ctx context.Context, itemID string) (model.MenuItem, error) {
	g, err := s.items.Get(ctx, itemID)
	if err != nil {
		return model.MenuItem{}, err
	}
	var out model.MenuItem
	err = g.Read(ctx, func(item model.MenuItem) error {
		out = item
		return nil
	})
	return out, err
}

// ListAvailable returns the available items in id order.
func (s *MenuService) ListAvailable(ctx context.Context) ([]model.MenuItem, error) {
	var out []model.MenuItem
	for _, id := range s.items.IDs() {
		item, err := s.Item(ctx, id)
		if err != nil {
			return nil, err
		}
		if item.Available {
			out = append(out, item)
		}
	}
	return out, nil
}
