package model

import (
	"encoding/json"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

type StockStatus string

const (
	StockStatusInStock    StockStatus = "IN_STOCK"
	StockStatusLowStock   StockStatus = "LOW_STOCK"
	StockStatusOutOfStock StockStatus = "OUT_OF_STOCK"
)

// InventoryItem is the stock record of one ingredient. The stock level is
// only changed through Consume and Restock so that 0 <= stock <= MaxCapacity
// always holds.
type InventoryItem struct {
	ID               string
	Name             string
	Unit             string
	ReorderThreshold int
	MaxCapacity      int

	stockLevel int
}

func NewInventoryItem(id, name, unit string, stockLevel, reorderThreshold, maxCapacity int) InventoryItem {
	item := InventoryItem{
		ID:               id,
		Name:             name,
		Unit:             unit,
		ReorderThreshold: reorderThreshold,
		MaxCapacity:      maxCapacity,
	}
	item.stockLevel = clamp(stockLevel, 0, maxCapacity)
	return item
}

func (i InventoryItem) Key() string { return i.ID }

func (i InventoryItem) StockLevel() int { return i.stockLevel }

func (i InventoryItem) Status() StockStatus {
	switch {
	case i.stockLevel == 0:
		return StockStatusOutOfStock
	case i.stockLevel <= i.ReorderThreshold:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

func (i *InventoryItem) Consume(quantity int) error {
	if quantity <= 0 {
		return apperr.Errorf(apperr.ErrInvalidQuantity, "InventoryItem.Consume", i.ID, "cannot consume %d %s", quantity, i.Unit)
	}
	if quantity > i.stockLevel {
		return apperr.Errorf(apperr.ErrInsufficientStock, "InventoryItem.Consume", i.ID,
			"insufficient stock for %s: requested %d, available %d", i.Name, quantity, i.stockLevel)
	}
	i.stockLevel -= quantity
	return nil
}

// Restock adds quantity, clamping at MaxCapacity.
func (i *InventoryItem) Restock(quantity int) error {
	if quantity <= 0 {
		return apperr.Errorf(apperr.ErrInvalidQuantity, "InventoryItem.Restock", i.ID, "cannot restock %d %s", quantity, i.Unit)
	}
	i.stockLevel = clamp(i.stockLevel+quantity, 0, i.MaxCapacity)
	return nil
}

type inventoryItemJSON struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Unit             string `json:"unit"`
	StockLevel       int    `json:"stock_level"`
	ReorderThreshold int    `json:"reorder_threshold"`
	MaxCapacity      int    `json:"max_capacity"`
}

func (i InventoryItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(inventoryItemJSON{
		ID:               i.ID,
		Name:             i.Name,
		Unit:             i.Unit,
		StockLevel:       i.stockLevel,
		ReorderThreshold: i.ReorderThreshold,
		MaxCapacity:      i.MaxCapacity,
	})
}

func (i *InventoryItem) UnmarshalJSON(data []byte) error {
	var raw inventoryItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = NewInventoryItem(raw.ID, raw.Name, raw.Unit, raw.StockLevel, raw.ReorderThreshold, raw.MaxCapacity)
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
