package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/hibiken/asynq"

	"github.com/araxson/enorae-sub010/internal/audit"
	jobmetrics "github.com/araxson/enorae-sub010/internal/jobs"
)

// AuditReplayJob re-inserts audit entries the request path failed to write.
type AuditReplayJob struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewAuditReplayJob constructs the job handler.
func NewAuditReplayJob(store audit.Store, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditReplayJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditReplayJob{store: store, logger: logger, metrics: metrics}
}

// Handle processes TaskAuditReplay tasks.
func (j *AuditReplayJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskAuditReplay)
	return tracker.End(j.replay(ctx, t))
}

func (j *AuditReplayJob) replay(ctx context.Context, t *asynq.Task) error {
	var payload AuditReplayPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("jobs: decode audit replay: %v: %w", err, asynq.SkipRetry)
	}
	entry := payload.Entry
	if entry.EventType == "" || entry.Category == "" {
		return fmt.Errorf("jobs: audit replay without event type: %w", asynq.SkipRetry)
	}
	meta := make(map[string]any, len(entry.Metadata)+2)
	maps.Copy(meta, entry.Metadata)
	meta["replayed"] = true
	meta["failed_at"] = payload.FailedAt.UTC().Format(time.RFC3339Nano)
	entry.Metadata = meta
	entry.ID = 0

	stored, err := j.store.Insert(ctx, entry)
	if err != nil {
		j.logger.Warn("audit replay insert", slog.String("event_type", entry.EventType), slog.Any("error", err))
		return err
	}
	j.logger.Info("audit entry replayed", slog.Int64("id", stored.ID), slog.String("event_type", entry.EventType))
	return nil
}
