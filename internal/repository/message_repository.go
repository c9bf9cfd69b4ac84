package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/repart/marketplace/internal/model"
)

// MessageRepo persists direct messages between users.
type MessageRepo struct{ DB *sql.DB }

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{DB: db} }

// Create inserts a message and populates its generated ID.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO messages (sender_id, receiver_id, listing_id, content) VALUES (?,?,?,?)",
		m.SenderID, m.ReceiverID, m.ListingID, m.Content)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// ListConversation returns all messages between two users, oldest first,
// and marks messages addressed to the caller as read.
func (r *MessageRepo) ListConversation(ctx context.Context, userID, otherID uint64) ([]model.Message, error) {
	const q = `SELECT id, sender_id, receiver_id, listing_id, content, is_read, created_at
	           FROM messages
	           WHERE (sender_id=? AND receiver_id=?) OR (sender_id=? AND receiver_id=?)
	           ORDER BY created_at`
	rows, err := r.DB.QueryContext(ctx, q, userID, otherID, otherID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	msgs := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		var listingID sql.NullInt64
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &listingID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		if listingID.Valid {
			lid := uint64(listingID.Int64)
			m.ListingID = &lid
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE messages SET is_read=1 WHERE sender_id=? AND receiver_id=? AND is_read=0",
		otherID, userID)
	return msgs, err
}

// Thread summarizes a conversation for the inbox view.
type Thread struct {
	OtherUserID uint64    `json:"other_user_id"`
	OtherName   string    `json:"other_name"`
	LastContent string    `json:"last_content"`
	LastAt      time.Time `json:"last_at"`
	UnreadCount int       `json:"unread_count"`
}

// ListThreads returns one row per conversation partner, most recent first.
func (r *MessageRepo) ListThreads(ctx context.Context, userID uint64) ([]Thread, error) {
	const q = `SELECT other_id, u.name, m.content, m.created_at,
	             (SELECT COUNT(*) FROM messages x
	              WHERE x.sender_id=other_id AND x.receiver_id=? AND x.is_read=0)
	           FROM (
	             SELECT IF(sender_id=?, receiver_id, sender_id) AS other_id,
	                    MAX(id) AS last_id
	             FROM messages
	             WHERE sender_id=? OR receiver_id=?
	             GROUP BY other_id
	           ) t
	           JOIN messages m ON m.id = t.last_id
	           JOIN users u ON u.id = t.other_id
	           ORDER BY m.created_at DESC`
	rows, err := r.DB.QueryContext(ctx, q, userID, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	threads := make([]Thread, 0)
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.OtherUserID, &t.OtherName, &t.LastContent, &t.LastAt, &t.UnreadCount); err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// UnreadCount returns the number of unread messages addressed to the user.
func (r *MessageRepo) UnreadCount(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE receiver_id=? AND is_read=0", userID).Scan(&n)
	return n, err
}
