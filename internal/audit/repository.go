package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository appends entries to the audit_logs table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const insertEntry = `INSERT INTO audit_logs
	(event_type, event_category, severity, actor_id, target_entity_type, target_entity_id, metadata, is_success)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`

// Insert stores entry and returns it with the server-assigned id and timestamp.
func (r *Repository) Insert(ctx context.Context, entry Entry) (Entry, error) {
	meta, err := json.Marshal(entry.Metadata)
	if err != nil {
		return Entry{}, fmt.Errorf("audit: encode metadata: %w", err)
	}
	err = r.pool.QueryRow(ctx, insertEntry,
		entry.EventType,
		string(entry.Category),
		string(entry.Severity),
		entry.ActorID,
		entry.TargetEntityType,
		entry.TargetEntityID,
		meta,
		entry.IsSuccess,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("audit: insert: %w", err)
	}
	return entry, nil
}

// ListForTarget returns entries for one target, oldest first.
func (r *Repository) ListForTarget(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, event_type, event_category, severity, actor_id, target_entity_type,
		target_entity_id, metadata, is_success, created_at
		FROM audit_logs WHERE target_entity_type = $1 AND target_entity_id = $2 ORDER BY id`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			category string
			severity string
			meta     []byte
		)
		if err := rows.Scan(&e.ID, &e.EventType, &category, &severity, &e.ActorID, &e.TargetEntityType,
			&e.TargetEntityID, &meta, &e.IsSuccess, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.Category = Category(category)
		e.Severity = Severity(severity)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("audit: decode metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
