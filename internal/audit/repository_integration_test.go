//go:build integration

package audit_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/araxson/enorae-sub010/internal/audit"
	"github.com/araxson/enorae-sub010/internal/platform/db/dbtest"
)

func TestAuditLogIsAppendOnly(t *testing.T) {
	pool := dbtest.Start(t)
	ctx := context.Background()
	repo := audit.NewRepository(pool)
	target := uuid.NewString()

	var ids []int64
	for _, event := range []string{audit.EventRoleAssigned, audit.EventRolePermissionsUpdated, audit.EventRoleRevoked} {
		entry, err := repo.Insert(ctx, audit.Entry{
			EventType:        event,
			Category:         audit.CategoryRoleManagement,
			Severity:         audit.SeverityInfo,
			ActorID:          audit.Actor(uuid.New()),
			TargetEntityType: audit.TargetUserRole,
			TargetEntityID:   audit.Target(target),
			Metadata:         map[string]any{"role": "staff"},
			IsSuccess:        true,
		})
		require.NoError(t, err)
		assert.False(t, entry.CreatedAt.IsZero())
		ids = append(ids, entry.ID)
	}
	assert.IsIncreasing(t, ids)

	entries, err := repo.ListForTarget(ctx, audit.TargetUserRole, target)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "staff", entries[0].Metadata["role"])
	assert.True(t, !entries[1].CreatedAt.Before(entries[0].CreatedAt))

	_, err = pool.Exec(ctx, `UPDATE audit_logs SET severity = 'critical' WHERE id = $1`, ids[0])
	require.Error(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM audit_logs WHERE id = $1`, ids[0])
	require.Error(t, err)
}
