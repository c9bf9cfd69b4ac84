package repository

import (
	"context"
	"database/sql"

	"github.com/repart/marketplace/internal/model"
)

// DisputeRepo persists disputes.  Opening and resolving a dispute both
// involve flipping the underlying order, so those operations run as Tx
// variants orchestrated by the handlers.
type DisputeRepo struct{ DB *sql.DB }

func NewDisputeRepo(db *sql.DB) *DisputeRepo { return &DisputeRepo{DB: db} }

const disputeCols = `id, order_id, reason, video_proof_url, status, created_at`

func scanDispute(row interface{ Scan(...any) error }) (model.Dispute, error) {
	var d model.Dispute
	err := row.Scan(&d.ID, &d.OrderID, &d.Reason, &d.VideoProofURL, &d.Status, &d.CreatedAt)
	return d, err
}

// CreateTx inserts an open dispute inside a transaction.  The caller has
// already locked the order, verified the buyer owns it and that its escrow
// is held, and flips the order to disputed in the same transaction.
// A second dispute on the same order maps to ErrConflict.
func (r *DisputeRepo) CreateTx(ctx context.Context, tx *sql.Tx, d *model.Dispute) error {
	var exists bool
	err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM disputes WHERE order_id=?)", d.OrderID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrConflict
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO disputes (order_id, reason, video_proof_url, status) VALUES (?,?,?,?)",
		d.OrderID, d.Reason, d.VideoProofURL, model.DisputeOpen)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	d.Status = model.DisputeOpen
	return nil
}

// GetByID fetches a single dispute.
func (r *DisputeRepo) GetByID(ctx context.Context, id uint64) (model.Dispute, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+disputeCols+" FROM disputes WHERE id=? LIMIT 1", id)
	return scanDispute(row)
}

// GetByOrder fetches the dispute attached to an order, if any.
func (r *DisputeRepo) GetByOrder(ctx context.Context, orderID uint64) (model.Dispute, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+disputeCols+" FROM disputes WHERE order_id=? LIMIT 1", orderID)
	return scanDispute(row)
}

// List returns disputes for the admin queue, optionally filtered by status,
// oldest open first so the queue drains in order.
func (r *DisputeRepo) List(ctx context.Context, status string, limit, offset int) ([]model.Dispute, error) {
	q := "SELECT " + disputeCols + " FROM disputes"
	args := []any{}
	if status != "" {
		q += " WHERE status=?"
		args = append(args, status)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q += " ORDER BY created_at LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	disputes := make([]model.Dispute, 0)
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}

// ResolveTx flips an open dispute to its terminal status inside a
// transaction.  The order transition and payout row are written by the
// caller in the same transaction.  Resolving a non-open dispute maps to
// ErrConflict.
func (r *DisputeRepo) ResolveTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE disputes SET status=? WHERE id=? AND status=?",
		status, id, model.DisputeOpen)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
