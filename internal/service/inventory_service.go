package service

import (
	"context"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/guard"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/permission"
)

// InventoryService guards every stock record with its own Guard, so
// contention on one ingredient never blocks another.
//
// Lock order is inventory item, then menu item. The menu never calls back
// into inventory.
type InventoryService struct {
	items  *guard.Registry[model.InventoryItem]
	menu   *MenuService
	policy *permission.Policy
	audit  recorder
}

// NewInventoryService builds the service. menu may be nil when no menu
// availability should follow stock.
func NewInventoryService(repo guard.Repository[model.InventoryItem], menu *MenuService, env Env, opts ...guard.Option) *InventoryService {
	env = env.withDefaults()
	return &InventoryService{
		items:  guard.NewRegistry(repo, opts...),
		menu:   menu,
		policy: env.Policy,
		audit:  newRecorder(env.Audit, "inventory"),
	}
}

func (s *InventoryService) AddItem(ctx context.Context, actor permission.Staff, item model.InventoryItem) error {
	if err := s.policy.Check(actor, permission.FamilyInventory, "add inventory item"); err != nil {
		return err
	}
	if _, err := s.items.Create(ctx, item.ID, item); err != nil {
		return err
	}
	s.audit.record(ctx, actor, "ADD_INVENTORY_ITEM", "InventoryItem", item.ID, "Added %s with %d %s", item.Name, item.StockLevel(), item.Unit)
	return nil
}

// ReduceStock consumes qty units. It fails without changing anything when
// the stock cannot cover qty. The matching menu item becomes unavailable when
// stock reaches zero.
func (s *InventoryService) ReduceStock(ctx context.Context, actor permission.Staff, itemID string, qty int) error {
	if err := s.policy.Check(actor, permission.FamilyInventory, "reduce stock"); err != nil {
		return err
	}
	g, err := s.items.Get(ctx, itemID)
	if err != nil {
		return err
	}

	err = g.Write(ctx, func(ctx context.Context, item *model.InventoryItem) error {
		if err := item.Consume(qty); err != nil {
			return err
		}
		if item.StockLevel() == 0 {
			return s.setMenuAvailability(ctx, itemID, false)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.record(ctx, actor, "REDUCE_STOCK", "InventoryItem", itemID, "Reduced stock by %d", qty)
	return nil
}

// Restock adds qty units, clamped to the item's capacity, and makes the
// matching menu item available again.
func (s *InventoryService) Restock(ctx context.Context, actor permission.Staff, itemID string, qty int) error {
	if err := s.policy.Check(actor, permission.FamilyInventory, "restock"); err != nil {
		return err
	}
	g, err := s.items.Get(ctx, itemID)
	if err != nil {
		return err
	}

	err = g.Write(ctx, func(ctx context.Context, item *model.InventoryItem) error {
		if err := item.Restock(qty); err != nil {
			return err
		}
		if item.StockLevel() > 0 {
			return s.setMenuAvailability(ctx, itemID, true)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.record(ctx, actor, "RESTOCK", "InventoryItem", itemID, "Restocked %d units", qty)
	return nil
}

func (s *InventoryService) setMenuAvailability(ctx context.Context, itemID string, available bool) error {
	if s.menu == nil {
		return nil
	}
	return s.menu.SetAvailability(ctx, itemID, available)
}

// StockLevel reads without taking the writer slot.
func (s *InventoryService) StockLevel(ctx context.Context, itemID string) (int, error) {
	item, err := s.Item(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return item.StockLevel(), nil
}

func (s *InventoryService) StockStatus(ctx context.Context, itemID string) (model.StockStatus, error) {
	item, err := s.Item(ctx, itemID)
	if err != nil {
		return "", err
	}
	return item.Status(), nil
}

func (s *InventoryService) Item(ctx context.Context, itemID string) (model.InventoryItem, error) {
	g, err := s.items.Get(ctx, itemID)
	if err != nil {
		return model.InventoryItem{}, err
	}
	var out model.InventoryItem
	err = g.Read(ctx, func(item model.InventoryItem) error {
		out = item
		return nil
	})
	return out, err
}

// LowStock lists the items at or below their reorder threshold.
func (s *InventoryService) LowStock(ctx context.Context) ([]model.InventoryItem, error) {
	var out []model.InventoryItem
	for _, id := range s.items.IDs() {
		item, err := s.Item(ctx, id)
		if err != nil {
			return nil, err
		}
		if item.Status() != model.StockStatusInStock {
			out = append(out, item)
		}
	}
	return out, nil
}

// Version exposes the write stamp of an item's guard.
func (s *InventoryService) Version(ctx context.Context, itemID string) (uint64, error) {
	g, err := s.items.Get(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return g.Version(), nil
}
