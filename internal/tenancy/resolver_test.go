package tenancy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/araxson/enorae-sub010/internal/auth"
	"github.com/araxson/enorae-sub010/internal/rbac"
	"github.com/araxson/enorae-sub010/internal/shared"
)

type memGateway struct {
	owners map[uuid.UUID]uuid.UUID
	order  []uuid.UUID
	staff  map[uuid.UUID][]uuid.UUID
	err    error
}

func newMemGateway() *memGateway {
	return &memGateway{owners: map[uuid.UUID]uuid.UUID{}, staff: map[uuid.UUID][]uuid.UUID{}}
}

func (m *memGateway) addTenant(owner uuid.UUID) uuid.UUID {
	id := uuid.New()
	m.owners[id] = owner
	m.order = append(m.order, id)
	return id
}

func (m *memGateway) OwnerOf(ctx context.Context, tenantID uuid.UUID) (uuid.UUID, error) {
	if m.err != nil {
		return uuid.Nil, m.err
	}
	owner, ok := m.owners[tenantID]
	if !ok {
		return uuid.Nil, shared.ErrNotFound
	}
	return owner, nil
}

func (m *memGateway) OwnedTenants(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []uuid.UUID
	for _, id := range m.order {
		if m.owners[id] == userID {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memGateway) StaffTenants(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.staff[userID], nil
}

func session(role rbac.Role) auth.Session {
	return auth.Session{Identity: auth.Identity{ID: uuid.New()}, Role: role}
}

func TestOwnershipPrecedence(t *testing.T) {
	gw := newMemGateway()
	sess := session(rbac.RoleSalonOwner)
	owned := gw.addTenant(sess.UserID())
	staffed := gw.addTenant(uuid.New())
	gw.staff[sess.UserID()] = []uuid.UUID{staffed}
	r := NewResolver(gw)

	got, err := r.RequireSingleTenant(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, owned, got)

	scope, err := r.AccessibleTenantIDs(context.Background(), sess)
	require.NoError(t, err)
	assert.False(t, scope.All)
	assert.Equal(t, []uuid.UUID{owned, staffed}, scope.IDs)
}

func TestSingleTenantFallsBackToStaff(t *testing.T) {
	gw := newMemGateway()
	sess := session(rbac.RoleStaff)
	staffed := gw.addTenant(uuid.New())
	gw.staff[sess.UserID()] = []uuid.UUID{staffed}

	got, err := NewResolver(gw).RequireSingleTenant(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, staffed, got)
}

func TestSingleTenantNotFound(t *testing.T) {
	_, err := NewResolver(newMemGateway()).RequireSingleTenant(context.Background(), session(rbac.RoleCustomer))
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, "no tenant associated", shared.UserSafeMessage(err))
}

func TestOldestOwnedTenantWins(t *testing.T) {
	gw := newMemGateway()
	sess := session(rbac.RoleTenantOwner)
	first := gw.addTenant(sess.UserID())
	gw.addTenant(sess.UserID())

	got, err := NewResolver(gw).RequireSingleTenant(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestPlatformAdminBypass(t *testing.T) {
	gw := newMemGateway()
	tenant := gw.addTenant(uuid.New())
	r := NewResolver(gw)

	for _, role := range rbac.PlatformAdmins {
		sess := session(role)
		ok, err := r.CanAccessTenant(context.Background(), sess, tenant)
		require.NoError(t, err)
		assert.True(t, ok, role)

		ok, err = r.CanAccessTenant(context.Background(), sess, uuid.New())
		require.NoError(t, err)
		assert.True(t, ok, role)

		scope, err := r.AccessibleTenantIDs(context.Background(), sess)
		require.NoError(t, err)
		assert.True(t, scope.All)
		assert.True(t, scope.Contains(uuid.New()))
	}
}

func TestCanAccessTenant(t *testing.T) {
	gw := newMemGateway()
	sess := session(rbac.RoleSalonManager)
	owned := gw.addTenant(sess.UserID())
	staffed := gw.addTenant(uuid.New())
	foreign := gw.addTenant(uuid.New())
	gw.staff[sess.UserID()] = []uuid.UUID{staffed}
	r := NewResolver(gw)

	for tenant, want := range map[uuid.UUID]bool{owned: true, staffed: true, foreign: false, uuid.New(): false} {
		got, err := r.CanAccessTenant(context.Background(), sess, tenant)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAdministers(t *testing.T) {
	gw := newMemGateway()
	r := NewResolver(gw)

	staff := session(rbac.RoleSeniorStaff)
	staffed := gw.addTenant(uuid.New())
	gw.staff[staff.UserID()] = []uuid.UUID{staffed}
	ok, err := r.Administers(context.Background(), staff, staffed)
	require.NoError(t, err)
	assert.False(t, ok)

	manager := session(rbac.RoleSalonManager)
	manager.TenantID = &staffed
	gw.staff[manager.UserID()] = []uuid.UUID{staffed}
	ok, err = r.Administers(context.Background(), manager, staffed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Administers(context.Background(), session(rbac.RoleSuperAdmin), staffed)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdministersIgnoresStaffMembership(t *testing.T) {
	gw := newMemGateway()
	r := NewResolver(gw)
	owner := session(rbac.RoleSalonOwner)
	own := gw.addTenant(owner.UserID())
	owner.TenantID = &own
	other := gw.addTenant(uuid.New())
	gw.staff[owner.UserID()] = []uuid.UUID{other}

	ok, err := r.Administers(context.Background(), owner, own)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Administers(context.Background(), owner, other)
	require.NoError(t, err)
	assert.False(t, ok)

	// Still reachable for reads.
	ok, err = r.CanAccessTenant(context.Background(), owner, other)
	require.NoError(t, err)
	assert.True(t, ok)

	manager := session(rbac.RoleSalonManager)
	gw.staff[manager.UserID()] = []uuid.UUID{other}
	ok, err = r.Administers(context.Background(), manager, other)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Administers(context.Background(), owner, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGatewayErrorsPropagate(t *testing.T) {
	gw := newMemGateway()
	gw.err = errors.New("db down")
	r := NewResolver(gw)

	_, err := r.AccessibleTenantIDs(context.Background(), session(rbac.RoleSalonOwner))
	assert.Error(t, err)
	assert.Nil(t, shared.KindOf(err))

	_, err = r.CanAccessTenant(context.Background(), session(rbac.RoleSalonOwner), uuid.New())
	assert.Error(t, err)
}

func TestAnonymousSession(t *testing.T) {
	_, err := NewResolver(newMemGateway()).AccessibleTenantIDs(context.Background(), auth.Session{})
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}
