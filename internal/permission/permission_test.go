package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()
	manager := Staff{ID: "m1", Role: RoleManager}
	waiter := Staff{ID: "w1", Role: RoleWaiter}
	chef := Staff{ID: "c1", Role: RoleChef}

	tests := []struct {
		name    string
		staff   Staff
		family  Family
		allowed bool
	}{
		{"manager restocks", manager, FamilyInventory, true},
		{"waiter restocks", waiter, FamilyInventory, false},
		{"waiter places order", waiter, FamilyOrder, true},
		{"chef places order", chef, FamilyOrder, false},
		{"waiter takes payment", waiter, FamilyPayment, true},
		{"waiter books table", waiter, FamilyReservation, true},
		{"waiter edits menu", waiter, FamilyMenu, false},
		{"manager reads analytics", manager, FamilyAnalytics, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Check(tt.staff, tt.family, "act")
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperr.ErrForbidden)
			assert.Equal(t, apperr.CategoryForbidden, apperr.CategoryOf(err))
		})
	}
}

func TestChain_FirstMatchingRuleWins(t *testing.T) {
	chain := NewChain(FamilyOrder, Deny(RoleWaiter), Allow(RoleWaiter, RoleManager))

	assert.ErrorIs(t, chain.Check(RoleWaiter, "place order"), apperr.ErrForbidden)
	assert.NoError(t, chain.Check(RoleManager, "place order"))
	assert.ErrorIs(t, chain.Check(Role("GUEST"), "place order"), apperr.ErrForbidden)
}

func TestPolicy_UnknownFamilyDenied(t *testing.T) {
	err := NewPolicy().Check(Staff{Role: RoleManager}, FamilyMenu, "toggle")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Contains(t, err.Error(), "no permission chain for menu")
}
