package rbac

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" Salon_Owner ")
	require.True(t, ok)
	assert.Equal(t, RoleSalonOwner, role)

	_, ok = ParseRole("owner")
	assert.False(t, ok)
}

func TestRoleTiers(t *testing.T) {
	assert.True(t, RoleSuperAdmin.IsPlatformAdmin())
	assert.False(t, RoleTenantOwner.IsPlatformAdmin())

	for _, r := range append(append([]Role{}, BusinessUsers...), StaffUsers...) {
		assert.True(t, r.RequiresTenant(), "role %s", r)
	}
	for _, r := range append(append([]Role{}, PlatformAdmins...), CustomerUsers...) {
		assert.False(t, r.RequiresTenant(), "role %s", r)
	}
	assert.Greater(t, RoleSuperAdmin.Rank(), RolePlatformAdmin.Rank())
	assert.Greater(t, RoleSalonManager.Rank(), RoleSeniorStaff.Rank())
	assert.Equal(t, 0, Role("janitor").Rank())
	assert.Equal(t, "senior", RoleSeniorStaff.StaffLevel())
	assert.Equal(t, "", RoleCustomer.StaffLevel())
}

func TestHighest(t *testing.T) {
	role, ok := Highest(RoleCustomer, RoleStaff, RoleGuest)
	require.True(t, ok)
	assert.Equal(t, RoleStaff, role)

	_, ok = Highest()
	assert.False(t, ok)
}

func TestPermissionSetEquality(t *testing.T) {
	a := NewPermissionSet("appointments.write", "Appointments.Read", "appointments.read", " ")
	b := NewPermissionSet("appointments.read", "appointments.write")

	assert.True(t, a.Equal(b))
	assert.Equal(t, []string{"appointments.read", "appointments.write"}, a.Slice())
	assert.False(t, a.Equal(NewPermissionSet("appointments.read")))
	assert.True(t, NewPermissionSet().Equal(NewPermissionSet("", "  ")))
}

func TestPermissionSetContains(t *testing.T) {
	implied := NewPermissionSet()
	assert.True(t, implied.ImpliesAll())
	assert.True(t, implied.Contains("anything"))

	explicit := NewPermissionSet("staff.schedule")
	assert.True(t, explicit.Contains("STAFF.schedule"))
	assert.False(t, explicit.Contains("staff.payroll"))
}

func TestPermissionSetJSON(t *testing.T) {
	var set PermissionSet
	require.NoError(t, json.Unmarshal([]byte(`["b","A","a"]`), &set))
	assert.Equal(t, 2, set.Len())

	out, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(out))
}

func TestAssignmentLifecycle(t *testing.T) {
	actor := uuid.New()
	tenant := uuid.New()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := NewAssignment(Key{UserID: uuid.New(), Role: RoleStaff, TenantID: &tenant}, NewPermissionSet("x"), actor, now)

	require.True(t, a.IsActive())
	assert.ErrorIs(t, a.Reactivate(actor, now), ErrInvalidTransition)

	later := now.Add(time.Hour)
	require.NoError(t, a.Revoke(actor, later))
	assert.Equal(t, StateRevoked, a.State)
	require.NotNil(t, a.Revocation)
	assert.Equal(t, later, a.Revocation.At)
	assert.Equal(t, actor, a.Revocation.By)
	assert.ErrorIs(t, a.Revoke(actor, later), ErrInvalidTransition)

	require.NoError(t, a.Reactivate(actor, later.Add(time.Hour)))
	assert.True(t, a.IsActive())
	assert.Nil(t, a.Revocation)
	assert.True(t, a.Permissions.Equal(NewPermissionSet("x")))
}

func TestKeyTenantIsCopied(t *testing.T) {
	tenant := uuid.New()
	a := NewAssignment(Key{UserID: uuid.New(), Role: RoleStaff, TenantID: &tenant}, PermissionSet{}, uuid.New(), time.Now())
	tenant = uuid.New()

	assert.NotEqual(t, tenant, *a.TenantID)
	assert.True(t, SameTenant(a.Key().TenantID, a.TenantID))
	assert.True(t, SameTenant(nil, nil))
	assert.False(t, SameTenant(nil, a.TenantID))
}
