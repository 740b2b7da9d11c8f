// Package permission decides whether a staff role may perform an action.
// Each operation family has a chain of rules evaluated in order; the first
// rule that matches the role decides, and every chain ends in a deny rule.
package permission

import (
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

type Role string

const (
	RoleManager Role = "MANAGER"
	RoleWaiter  Role = "WAITER"
	RoleChef    Role = "CHEF"
)

type Staff struct {
	ID   string
	Name string
	Role Role
}

type Family string

const (
	FamilyInventory   Family = "inventory"
	FamilyMenu        Family = "menu"
	FamilyOrder       Family = "order"
	FamilyPayment     Family = "payment"
	FamilyReservation Family = "reservation"
	FamilyAnalytics   Family = "analytics"
)

type Rule struct {
	Match func(Role) bool
	Allow bool
}

func Allow(roles ...Role) Rule {
	return Rule{Match: anyOf(roles), Allow: true}
}

func Deny(roles ...Role) Rule {
	return Rule{Match: anyOf(roles), Allow: false}
}

func anyOf(roles []Role) func(Role) bool {
	return func(r Role) bool {
		for _, role := range roles {
			if role == r {
				return true
			}
		}
		return false
	}
}

type Chain struct {
	family Family
	rules  []Rule
}

// NewChain builds a chain for family. A rule matching every role and denying
// is always appended.
func NewChain(family Family, rules ...Rule) *Chain {
	all := make([]Rule, 0, len(rules)+1)
	all = append(all, rules...)
	all = append(all, Rule{Match: func(Role) bool { return true }, Allow: false})
	return &Chain{family: family, rules: all}
}

func (c *Chain) Check(role Role, action string) error {
	for _, rule := range c.rules {
		if !rule.Match(role) {
			continue
		}
		if rule.Allow {
			return nil
		}
		break
	}
	return apperr.Errorf(apperr.ErrForbidden, "permission.Check", string(c.family), "%s is not allowed to %s", role, action)
}

type Policy struct {
	chains map[Family]*Chain
}

func NewPolicy(chains ...*Chain) *Policy {
	p := &Policy{chains: make(map[Family]*Chain, len(chains))}
	for _, c := range chains {
		p.chains[c.family] = c
	}
	return p
}

// DefaultPolicy grants managers every family, waiters orders, payments and
// reservations, and chefs nothing beyond the kitchen itself.
func DefaultPolicy() *Policy {
	return NewPolicy(
		NewChain(FamilyInventory, Allow(RoleManager)),
		NewChain(FamilyMenu, Allow(RoleManager)),
		NewChain(FamilyOrder, Allow(RoleManager), Allow(RoleWaiter)),
		NewChain(FamilyPayment, Allow(RoleManager), Allow(RoleWaiter)),
		NewChain(FamilyReservation, Allow(RoleManager), Allow(RoleWaiter)),
		NewChain(FamilyAnalytics, Allow(RoleManager)),
	)
}

// Check denies families that have no chain.
func (p *Policy) Check(staff Staff, family Family, action string) error {
	c, ok := p.chains[family]
	if !ok {
		return apperr.Errorf(apperr.ErrForbidden, "permission.Check", string(family), "no permission chain for %s", family)
	}
	return c.Check(staff.Role, action)
}
