// Package rbac holds the role hierarchy, permission sets and the role
// assignment entity shared by the authorization core.
package rbac

import (
	"strings"
)

// Role is one level of the closed role hierarchy.
type Role string

const (
	RoleSuperAdmin    Role = "super_admin"
	RolePlatformAdmin Role = "platform_admin"
	RoleTenantOwner   Role = "tenant_owner"
	RoleSalonOwner    Role = "salon_owner"
	RoleSalonManager  Role = "salon_manager"
	RoleSeniorStaff   Role = "senior_staff"
	RoleStaff         Role = "staff"
	RoleJuniorStaff   Role = "junior_staff"
	RoleVIPCustomer   Role = "vip_customer"
	RoleCustomer      Role = "customer"
	RoleGuest         Role = "guest"
)

// Tier groups roles by hierarchy level.
type Tier int

const (
	TierUnknown Tier = iota
	TierCustomer
	TierStaff
	TierBusiness
	TierPlatform
)

// AllRoles lists every role from highest to lowest rank.
var AllRoles = []Role{
	RoleSuperAdmin,
	RolePlatformAdmin,
	RoleTenantOwner,
	RoleSalonOwner,
	RoleSalonManager,
	RoleSeniorStaff,
	RoleStaff,
	RoleJuniorStaff,
	RoleVIPCustomer,
	RoleCustomer,
	RoleGuest,
}

// Role groups used by coarse authorization checks.
var (
	PlatformAdmins = []Role{RoleSuperAdmin, RolePlatformAdmin}
	BusinessUsers  = []Role{RoleTenantOwner, RoleSalonOwner, RoleSalonManager}
	StaffUsers     = []Role{RoleSeniorStaff, RoleStaff, RoleJuniorStaff}
	CustomerUsers  = []Role{RoleVIPCustomer, RoleCustomer, RoleGuest}
	SalonManagers  = []Role{RoleSalonOwner, RoleSalonManager}
	AllStaff       = []Role{RoleSeniorStaff, RoleStaff, RoleJuniorStaff, RoleSalonOwner, RoleSalonManager}
)

// ParseRole validates a raw role name.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	if role.Valid() {
		return role, true
	}
	return "", false
}

// Valid reports whether r is part of the hierarchy.
func (r Role) Valid() bool {
	return r.Tier() != TierUnknown
}

// Tier returns the hierarchy level of r.
func (r Role) Tier() Tier {
	switch r {
	case RoleSuperAdmin, RolePlatformAdmin:
		return TierPlatform
	case RoleTenantOwner, RoleSalonOwner, RoleSalonManager:
		return TierBusiness
	case RoleSeniorStaff, RoleStaff, RoleJuniorStaff:
		return TierStaff
	case RoleVIPCustomer, RoleCustomer, RoleGuest:
		return TierCustomer
	default:
		return TierUnknown
	}
}

// Rank orders roles; higher is more privileged. Unknown roles rank zero.
func (r Role) Rank() int {
	for i, role := range AllRoles {
		if role == r {
			return len(AllRoles) - i
		}
	}
	return 0
}

// RequiresTenant reports whether assignments of r must carry a tenant scope.
func (r Role) RequiresTenant() bool {
	tier := r.Tier()
	return tier == TierBusiness || tier == TierStaff
}

// IsPlatformAdmin reports whether r bypasses tenant scoping.
func (r Role) IsPlatformAdmin() bool {
	return r.Tier() == TierPlatform
}

// In reports whether r is one of roles.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

// StaffLevel returns junior, regular or senior for staff tiers and "" otherwise.
func (r Role) StaffLevel() string {
	switch r {
	case RoleJuniorStaff:
		return "junior"
	case RoleStaff:
		return "regular"
	case RoleSeniorStaff:
		return "senior"
	default:
		return ""
	}
}

// Highest returns the highest ranked role in roles.
func Highest(roles ...Role) (Role, bool) {
	var best Role
	for _, r := range roles {
		if r.Rank() > best.Rank() {
			best = r
		}
	}
	return best, best != ""
}
