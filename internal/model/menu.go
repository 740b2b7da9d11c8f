package model

type MenuCategory string

const (
	MenuCategoryEntree  MenuCategory = "ENTREE"
	MenuCategoryDessert MenuCategory = "DESSERT"
	MenuCategoryDrink   MenuCategory = "DRINK"
	MenuCategoryCombo   MenuCategory = "COMBO"
)

type MenuItem struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Category   MenuCategory `json:"category"`
	Price      float64      `json:"price"`
	Available  bool         `json:"available"`
	Components []MenuItem   `json:"components,omitempty"`
}

func (m MenuItem) Key() string { return m.ID }

func (m MenuItem) RequiresKitchenPrep() bool {
	switch m.Category {
	case MenuCategoryEntree, MenuCategoryDessert:
		return true
	case MenuCategoryCombo:
		for _, c := range m.Components {
			if c.RequiresKitchenPrep() {
				return true
			}
		}
	}
	return false
}
