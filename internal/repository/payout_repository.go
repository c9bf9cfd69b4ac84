package repository

import (
	"context"
	"database/sql"

	"github.com/repart/marketplace/internal/model"
)

// PayoutRepo writes and reads the append-only payout ledger.  Rows are
// inserted inside the same transaction as the escrow transition that
// caused them and never updated afterwards.
type PayoutRepo struct{ DB *sql.DB }

func NewPayoutRepo(db *sql.DB) *PayoutRepo { return &PayoutRepo{DB: db} }

const payoutCols = `id, order_id, amount, type, status, processed_by, note, created_at`

func scanPayout(row interface{ Scan(...any) error }) (model.Payout, error) {
	var p model.Payout
	var processedBy sql.NullInt64
	var note sql.NullString
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Type, &p.Status, &processedBy, &note, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	if processedBy.Valid {
		id := uint64(processedBy.Int64)
		p.ProcessedBy = &id
	}
	if note.Valid {
		n := note.String
		p.Note = &n
	}
	return p, nil
}

// CreateTx inserts a ledger row within a transaction and populates the
// generated ID.  ProcessedBy stays NULL for sweeper-initiated releases.
func (r *PayoutRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payout) error {
	if p.Status == "" {
		p.Status = "processed"
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO payouts (order_id, amount, type, status, processed_by, note) VALUES (?,?,?,?,?,?)",
		p.OrderID, p.Amount, p.Type, p.Status, p.ProcessedBy, p.Note)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ListByOrder returns ledger rows for one order, oldest first.
func (r *PayoutRepo) ListByOrder(ctx context.Context, orderID uint64) ([]model.Payout, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+payoutCols+" FROM payouts WHERE order_id=? ORDER BY created_at", orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payouts := make([]model.Payout, 0)
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

// List returns ledger rows for the admin financial view, newest first,
// optionally filtered by type.
func (r *PayoutRepo) List(ctx context.Context, payoutType string, limit, offset int) ([]model.Payout, error) {
	q := "SELECT " + payoutCols + " FROM payouts"
	args := []any{}
	if payoutType != "" {
		q += " WHERE type=?"
		args = append(args, payoutType)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payouts := make([]model.Payout, 0)
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

// TotalsByType sums the ledger per payout type for the financial overview.
func (r *PayoutRepo) TotalsByType(ctx context.Context) (map[string]int64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT type, COALESCE(SUM(amount),0) FROM payouts GROUP BY type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := make(map[string]int64)
	for rows.Next() {
		var t string
		var sum int64
		if err := rows.Scan(&t, &sum); err != nil {
			return nil, err
		}
		totals[t] = sum
	}
	return totals, rows.Err()
}
