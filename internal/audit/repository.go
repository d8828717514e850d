package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository writes and reads audit logs.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs an audit repository.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		return nil
	}
	return &Repository{db: db}
}

// Log writes an audit entry.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit repo: nil db")
	}
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.PayloadDigest == "" {
		entry.PayloadDigest = DigestJSON(entry.Metadata)
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_logs (
	id, actor, actor_name, role, action, entity_type, entity_id, description,
	metadata, payload_digest, ip, user_agent, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)`, entry.ID, entry.Actor, entry.ActorName, entry.Role, entry.Action, entry.EntityType, entry.EntityID, entry.Description,
		entry.Metadata, entry.PayloadDigest, entry.IP, entry.UserAgent, entry.CreatedAt)
	return err
}

// List returns entries newest first, paginated by limit and offset.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("audit repo: nil db")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, actor, actor_name, role, action, entity_type, entity_id, description,
	metadata, payload_digest, ip, user_agent, created_at
FROM audit_logs
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var metadata sql.NullString
		if err := rows.Scan(
			&entry.ID, &entry.Actor, &entry.ActorName, &entry.Role, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Description,
			&metadata, &entry.PayloadDigest, &entry.IP, &entry.UserAgent, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if metadata.Valid {
			entry.Metadata = []byte(metadata.String)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
