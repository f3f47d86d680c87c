//go:build integration

package roles_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/araxson/enorae-sub010/internal/audit"
	"github.com/araxson/enorae-sub010/internal/auth"
	"github.com/araxson/enorae-sub010/internal/platform/db/dbtest"
	"github.com/araxson/enorae-sub010/internal/rbac"
	"github.com/araxson/enorae-sub010/internal/roles"
	"github.com/araxson/enorae-sub010/internal/shared"
	"github.com/araxson/enorae-sub010/internal/tenancy"
)

func TestPGRepositoryLifecycle(t *testing.T) {
	pool := dbtest.Start(t)
	ctx := context.Background()
	repo := roles.NewPGRepository(pool)

	owner := dbtest.SeedUser(t, pool, "owner@example.com")
	member := dbtest.SeedUser(t, pool, "member@example.com")
	salon := dbtest.SeedSalon(t, pool, owner, "Salon One")
	now := time.Now().UTC().Truncate(time.Microsecond)

	key := rbac.Key{UserID: member, Role: rbac.RoleStaff, TenantID: &salon}
	a := rbac.NewAssignment(key, rbac.NewPermissionSet("Clients:Read"), owner, now)
	require.NoError(t, repo.Insert(ctx, a))

	err := repo.Insert(ctx, rbac.NewAssignment(key, rbac.NewPermissionSet(), owner, now))
	require.ErrorIs(t, err, shared.ErrConflict)

	got, err := repo.FindByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, []string{"clients:read"}, got.Permissions.Slice())
	assert.True(t, got.IsActive())

	_, err = repo.FindByKey(ctx, rbac.Key{UserID: member, Role: rbac.RoleStaff})
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, got.Revoke(owner, now.Add(time.Minute)))
	require.NoError(t, repo.Update(ctx, got))

	revoked, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, revoked.IsActive())
	require.NotNil(t, revoked.Revocation)
	assert.Equal(t, owner, revoked.Revocation.By)

	active, err := repo.ListActiveForUser(ctx, member)
	require.NoError(t, err)
	assert.Empty(t, active)

	ghost := rbac.Key{UserID: uuid.New(), Role: rbac.RoleStaff, TenantID: &salon}
	err = repo.Insert(ctx, rbac.NewAssignment(ghost, rbac.NewPermissionSet(), owner, now))
	require.ErrorIs(t, err, shared.ErrNotFound)
	missingSalon := uuid.New()
	err = repo.Insert(ctx, rbac.NewAssignment(rbac.Key{UserID: member, Role: rbac.RoleStaff, TenantID: &missingSalon}, rbac.NewPermissionSet(), owner, now))
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, "user or tenant not found", shared.UserSafeMessage(err))
}

func TestNullTenantKeyIsUnique(t *testing.T) {
	pool := dbtest.Start(t)
	ctx := context.Background()
	repo := roles.NewPGRepository(pool)
	user := dbtest.SeedUser(t, pool, "customer@example.com")

	key := rbac.Key{UserID: user, Role: rbac.RoleCustomer}
	require.NoError(t, repo.Insert(ctx, rbac.NewAssignment(key, rbac.NewPermissionSet(), user, time.Now())))
	err := repo.Insert(ctx, rbac.NewAssignment(key, rbac.NewPermissionSet(), user, time.Now()))
	require.ErrorIs(t, err, shared.ErrConflict)

	got, err := repo.FindByKey(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got.TenantID)
}

func TestEngineAgainstPostgres(t *testing.T) {
	pool := dbtest.Start(t)
	ctx := context.Background()

	owner := dbtest.SeedUser(t, pool, "owner@example.com")
	stylist := dbtest.SeedUser(t, pool, "stylist@example.com")
	salon := dbtest.SeedSalon(t, pool, owner, "Salon One")

	auditRepo := audit.NewRepository(pool)
	engine := roles.NewEngine(
		roles.NewPGRepository(pool),
		tenancy.NewResolver(tenancy.NewRepository(pool)),
		audit.NewRecorder(auditRepo, nil),
		nil,
	)
	sess := auth.Session{Identity: auth.Identity{ID: owner}, Role: rbac.RoleSalonOwner}

	res, err := engine.Assign(ctx, sess, roles.AssignRequest{
		UserID:   stylist.String(),
		Role:     string(rbac.RoleSeniorStaff),
		TenantID: salon.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, roles.OutcomeCreated, res.Outcome)

	_, err = engine.Revoke(ctx, sess, res.Assignment.ID.String(), "moved to another salon")
	require.NoError(t, err)

	entries, err := auditRepo.ListForTarget(ctx, audit.TargetUserRole, res.Assignment.ID.String())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.EventRoleAssigned, entries[0].EventType)
	assert.Equal(t, audit.EventRoleRevoked, entries[1].EventType)
	assert.Less(t, entries[0].ID, entries[1].ID)

	foreign := dbtest.SeedSalon(t, pool, stylist, "Salon Two")
	_, err = pool.Exec(ctx, `INSERT INTO staff (user_id, salon_id) VALUES ($1, $2)`, owner, foreign)
	require.NoError(t, err)
	_, err = engine.Assign(ctx, sess, roles.AssignRequest{
		UserID:   uuid.NewString(),
		Role:     string(rbac.RoleStaff),
		TenantID: foreign.String(),
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}
