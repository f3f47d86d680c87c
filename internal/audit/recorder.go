package audit

import (
	"context"
	"errors"
	"log/slog"
	"maps"

	"github.com/go-chi/chi/v5/middleware"
)

// Store persists audit entries.
type Store interface {
	Insert(ctx context.Context, entry Entry) (Entry, error)
}

// Fallback takes entries the store rejected so they can be written later.
type Fallback interface {
	EnqueueReplay(ctx context.Context, entry Entry) error
}

// Counter is satisfied by prometheus.Counter.
type Counter interface {
	Inc()
}

var errIncomplete = errors.New("audit: entry requires event type and category")

// Recorder writes audit entries on a best-effort basis. A failed write never
// fails the mutation it describes.
type Recorder struct {
	store    Store
	logger   *slog.Logger
	failures Counter
	fallback Fallback
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithFailureCounter counts entries that could not be stored.
func WithFailureCounter(c Counter) Option {
	return func(r *Recorder) { r.failures = c }
}

// WithFallback hands failed entries to a replay queue.
func WithFallback(f Fallback) Option {
	return func(r *Recorder) { r.fallback = f }
}

// NewRecorder constructs a Recorder.
func NewRecorder(store Store, logger *slog.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends entry to the audit log.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil {
		return
	}
	entry = r.prepare(ctx, entry)
	if entry.EventType == "" || entry.Category == "" {
		r.fail(ctx, entry, errIncomplete, false)
		return
	}
	if r.store == nil {
		r.fail(ctx, entry, errors.New("audit: store not configured"), true)
		return
	}
	if _, err := r.store.Insert(ctx, entry); err != nil {
		r.fail(ctx, entry, err, true)
	}
}

// RecordAttempt appends entry marked as unsuccessful.
func (r *Recorder) RecordAttempt(ctx context.Context, entry Entry) {
	entry.IsSuccess = false
	r.Record(ctx, entry)
}

func (r *Recorder) prepare(ctx context.Context, entry Entry) Entry {
	if !entry.Severity.Valid() {
		entry.Severity = SeverityInfo
	}
	meta := make(map[string]any, len(entry.Metadata)+1)
	maps.Copy(meta, entry.Metadata)
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		meta["request_id"] = reqID
	}
	entry.Metadata = meta
	return entry
}

func (r *Recorder) fail(ctx context.Context, entry Entry, err error, replay bool) {
	if r.failures != nil {
		r.failures.Inc()
	}
	r.logger.Error("audit write failed",
		slog.String("event_type", entry.EventType),
		slog.String("event_category", string(entry.Category)),
		slog.String("target_entity_type", entry.TargetEntityType),
		slog.Any("error", err),
	)
	if !replay || r.fallback == nil {
		return
	}
	// The request context may already be cancelled; the enqueue must still happen.
	if qerr := r.fallback.EnqueueReplay(context.WithoutCancel(ctx), entry); qerr != nil {
		r.logger.Error("audit replay enqueue failed",
			slog.String("event_type", entry.EventType),
			slog.Any("error", qerr),
		)
	}
}
