package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/araxson/enorae-sub010/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueAudit carries audit entries waiting to be written again.
	QueueAudit = "audit"
	// TaskAuditReplay is the task type for re-inserting an audit entry.
	TaskAuditReplay = "audit:replay"
)

var nowUTC = func() time.Time { return time.Now().UTC() }

// AuditReplayPayload is the body of a TaskAuditReplay task.
type AuditReplayPayload struct {
	Entry    audit.Entry `json:"entry"`
	FailedAt time.Time   `json:"failed_at"`
}

// NewAuditReplayTask constructs an Asynq task.
func NewAuditReplayTask(payload AuditReplayPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditReplay, data, asynq.Queue(QueueAudit), asynq.MaxRetry(10)), nil
}
