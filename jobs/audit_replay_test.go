package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/araxson/enorae-sub010/internal/audit"
)

type stubStore struct {
	entries []audit.Entry
	err     error
}

func (s *stubStore) Insert(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	if s.err != nil {
		return audit.Entry{}, s.err
	}
	entry.ID = int64(len(s.entries) + 1)
	s.entries = append(s.entries, entry)
	return entry, nil
}

func replayTask(t *testing.T, entry audit.Entry, failedAt time.Time) *asynq.Task {
	t.Helper()
	task, err := NewAuditReplayTask(AuditReplayPayload{Entry: entry, FailedAt: failedAt})
	require.NoError(t, err)
	return task
}

func TestAuditReplayInsertsEntry(t *testing.T) {
	store := &stubStore{}
	job := NewAuditReplayJob(store, nil, nil)
	actor := uuid.New()
	failedAt := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	err := job.Handle(context.Background(), replayTask(t, audit.Entry{
		ID:        42,
		EventType: audit.EventRoleRevoked,
		Category:  audit.CategoryRoleManagement,
		Severity:  audit.SeverityWarning,
		ActorID:   audit.Actor(actor),
		Metadata:  map[string]any{"role": "staff"},
		IsSuccess: true,
	}, failedAt))
	require.NoError(t, err)

	require.Len(t, store.entries, 1)
	got := store.entries[0]
	assert.Equal(t, audit.EventRoleRevoked, got.EventType)
	assert.Equal(t, audit.SeverityWarning, got.Severity)
	assert.Equal(t, actor, *got.ActorID)
	assert.Equal(t, true, got.Metadata["replayed"])
	assert.Equal(t, "2026-05-04T10:00:00Z", got.Metadata["failed_at"])
	assert.Equal(t, "staff", got.Metadata["role"])
}

func TestAuditReplayRejectsBadPayload(t *testing.T) {
	job := NewAuditReplayJob(&stubStore{}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskAuditReplay, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), replayTask(t, audit.Entry{}, time.Now()))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAuditReplayRetriesStoreFailure(t *testing.T) {
	job := NewAuditReplayJob(&stubStore{err: errors.New("db down")}, nil, nil)

	err := job.Handle(context.Background(), replayTask(t, audit.Entry{
		EventType: audit.EventRoleAssigned,
		Category:  audit.CategoryRoleManagement,
	}, time.Now()))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestClientEnqueueReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	opts := asynq.RedisClientOpt{Addr: mr.Addr()}
	client, err := NewClient(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	err = client.EnqueueReplay(context.Background(), audit.Entry{
		EventType: audit.EventRoleAssigned,
		Category:  audit.CategoryRoleManagement,
	})
	require.NoError(t, err)

	inspector := asynq.NewInspector(opts)
	t.Cleanup(func() { _ = inspector.Close() })
	tasks, err := inspector.ListPendingTasks(QueueAudit)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskAuditReplay, tasks[0].Type)
}
