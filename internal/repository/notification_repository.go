package repository

import (
	"context"
	"database/sql"

	"github.com/repart/marketplace/internal/model"
)

// NotificationRepo persists admin broadcasts and their per-recipient
// delivery rows.  The consumer writes recipient rows one by one as it
// works through the audience so a crash mid-broadcast leaves an accurate
// partial record.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

const notificationCols = `id, title, message, channel, audience, status,
	sent_count, last_sent_at, created_by, created_at`

func scanNotification(row interface{ Scan(...any) error }) (model.SystemNotification, error) {
	var n model.SystemNotification
	var lastSent sql.NullTime
	err := row.Scan(&n.ID, &n.Title, &n.Message, &n.Channel, &n.Audience, &n.Status,
		&n.SentCount, &lastSent, &n.CreatedBy, &n.CreatedAt)
	if err != nil {
		return n, err
	}
	if lastSent.Valid {
		t := lastSent.Time
		n.LastSentAt = &t
	}
	return n, nil
}

// Create inserts a draft broadcast and populates its generated ID.
func (r *NotificationRepo) Create(ctx context.Context, n *model.SystemNotification) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO system_notifications (title, message, channel, audience, status, created_by) VALUES (?,?,?,?,?,?)",
		n.Title, n.Message, n.Channel, n.Audience, model.NotificationDraft, n.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	n.Status = model.NotificationDraft
	return nil
}

// GetByID fetches a broadcast.
func (r *NotificationRepo) GetByID(ctx context.Context, id uint64) (model.SystemNotification, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+notificationCols+" FROM system_notifications WHERE id=? LIMIT 1", id)
	return scanNotification(row)
}

// List returns broadcasts for the admin panel, newest first.
func (r *NotificationRepo) List(ctx context.Context, limit, offset int) ([]model.SystemNotification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+notificationCols+" FROM system_notifications ORDER BY created_at DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]model.SystemNotification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// AddRecipient records one delivery attempt.
func (r *NotificationRepo) AddRecipient(ctx context.Context, notificationID, userID uint64, status string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO system_notification_recipients (notification_id, user_id, delivery_status) VALUES (?,?,?)",
		notificationID, userID, status)
	return err
}

// MarkSent finalizes a broadcast after the consumer finishes the audience.
func (r *NotificationRepo) MarkSent(ctx context.Context, id uint64, sentCount int) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE system_notifications SET status=?, sent_count=?, last_sent_at=NOW() WHERE id=?",
		model.NotificationSent, sentCount, id)
	return err
}

// ListRecipients returns the delivery rows of a broadcast for the admin
// detail view.
func (r *NotificationRepo) ListRecipients(ctx context.Context, notificationID uint64) ([]model.NotificationRecipient, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, notification_id, user_id, delivery_status, created_at FROM system_notification_recipients WHERE notification_id=? ORDER BY id",
		notificationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recips := make([]model.NotificationRecipient, 0)
	for rows.Next() {
		var rec model.NotificationRecipient
		if err := rows.Scan(&rec.ID, &rec.NotificationID, &rec.UserID, &rec.DeliveryStatus, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recips = append(recips, rec)
	}
	return recips, rows.Err()
}
