package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/repart/marketplace/internal/model"
)

// AuditRepo appends admin audit log rows.  Failures here are logged and
// swallowed by callers so an audit hiccup never rolls back the action it
// describes.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Record appends one audit row.  Metadata may be any JSON-serializable
// value or nil.
func (r *AuditRepo) Record(ctx context.Context, actorID uint64, action, entityType string, entityID *string, metadata any) error {
	var meta []byte
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		meta = b
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO admin_audit_logs (actor_id, action, entity_type, entity_id, metadata) VALUES (?,?,?,?,?)",
		actorID, action, entityType, entityID, meta)
	return err
}

// List returns audit rows for the admin view, newest first, optionally
// filtered by actor and action prefix.
func (r *AuditRepo) List(ctx context.Context, actorID uint64, actionPrefix string, limit, offset int) ([]model.AdminAuditLog, error) {
	q := "SELECT id, actor_id, action, entity_type, entity_id, metadata, created_at FROM admin_audit_logs WHERE 1=1"
	args := []any{}
	if actorID != 0 {
		q += " AND actor_id=?"
		args = append(args, actorID)
	}
	if actionPrefix != "" {
		q += " AND action LIKE ?"
		args = append(args, actionPrefix+"%")
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := make([]model.AdminAuditLog, 0)
	for rows.Next() {
		var l model.AdminAuditLog
		var entityID sql.NullString
		if err := rows.Scan(&l.ID, &l.ActorID, &l.Action, &l.EntityType, &entityID, &l.Metadata, &l.CreatedAt); err != nil {
			return nil, err
		}
		if entityID.Valid {
			e := entityID.String
			l.EntityID = &e
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
