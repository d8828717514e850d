package application

import (
	"gestor-energia/internal/auth"
	masterdata "gestor-energia/internal/masterdata/domain"
)

// Identity is the resolved caller on whose behalf a use case runs.
type Identity struct {
	UserID            string
	Name              string
	Role              auth.Role
	Active            bool
	AccessibleUnitIDs []string
}

// Admin reports whether the identity holds the administrator role.
func (i Identity) Admin() bool { return i.Role == auth.RoleAdmin }

// Unrestricted reports whether the identity sees every unit. Admins always
// do; other roles only when no unit allow-list was assigned.
func (i Identity) Unrestricted() bool {
	return i.Admin() || len(i.AccessibleUnitIDs) == 0
}

// CanAccessUnit reports whether the identity may read the given unit.
func (i Identity) CanAccessUnit(unitID string) bool {
	if i.Unrestricted() {
		return true
	}
	for _, id := range i.AccessibleUnitIDs {
		if id == unitID {
			return true
		}
	}
	return false
}

// ScopeUnits filters units down to those the identity may see, preserving
// order.
func ScopeUnits(identity Identity, units []masterdata.Unit) []masterdata.Unit {
	if identity.Unrestricted() {
		return units
	}
	scoped := make([]masterdata.Unit, 0, len(units))
	for _, unit := range units {
		if identity.CanAccessUnit(unit.ID) {
			scoped = append(scoped, unit)
		}
	}
	return scoped
}
