package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/repart/marketplace/internal/model"
)

// OrderRepo provides persistence for orders and their escrow lifecycle.
// All escrow transitions run inside transactions and are guarded by the
// transition table in the model package plus a compare-and-set WHERE clause
// so concurrent writers cannot double-move money.
type OrderRepo struct{ DB *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

const orderCols = `id, listing_id, buyer_id, seller_id, amount, escrow_status,
	cargo_tracking_code, delivered_at, released_at, created_at`

func scanOrder(row interface{ Scan(...any) error }) (model.Order, error) {
	var o model.Order
	var tracking sql.NullString
	var delivered, released sql.NullTime
	err := row.Scan(&o.ID, &o.ListingID, &o.BuyerID, &o.SellerID, &o.Amount,
		&o.EscrowStatus, &tracking, &delivered, &released, &o.CreatedAt)
	if err != nil {
		return o, err
	}
	if tracking.Valid {
		t := tracking.String
		o.CargoTrackingCode = &t
	}
	if delivered.Valid {
		t := delivered.Time
		o.DeliveredAt = &t
	}
	if released.Valid {
		t := released.Time
		o.ReleasedAt = &t
	}
	return o, nil
}

// CreateTx inserts an order within an existing transaction and populates
// the generated ID.  The caller flips the listing to sold in the same
// transaction via ListingRepo.MarkSoldTx, then commits or rolls back.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (listing_id, buyer_id, seller_id, amount, escrow_status)
		 VALUES (?,?,?,?,?)`,
		o.ListingID, o.BuyerID, o.SellerID, o.Amount, model.EscrowHeld)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	o.EscrowStatus = model.EscrowHeld
	return nil
}

// GetByID fetches a single order without access checks; callers enforce
// buyer/seller/admin visibility.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (model.Order, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+orderCols+" FROM orders WHERE id=? LIMIT 1", id)
	return scanOrder(row)
}

// GetByIDTx is GetByID inside a transaction, with FOR UPDATE so the row is
// locked for the duration of an escrow transition.
func (r *OrderRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Order, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+orderCols+" FROM orders WHERE id=? LIMIT 1 FOR UPDATE", id)
	return scanOrder(row)
}

// ListForBuyer returns the user's purchases, newest first.
func (r *OrderRepo) ListForBuyer(ctx context.Context, buyerID uint64) ([]model.Order, error) {
	return r.list(ctx, "buyer_id", buyerID)
}

// ListForSeller returns the user's sales, newest first.
func (r *OrderRepo) ListForSeller(ctx context.Context, sellerID uint64) ([]model.Order, error) {
	return r.list(ctx, "seller_id", sellerID)
}

func (r *OrderRepo) list(ctx context.Context, col string, userID uint64) ([]model.Order, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+orderCols+" FROM orders WHERE "+col+"=? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListAll returns orders for the admin finance view, optionally filtered by
// escrow status.
func (r *OrderRepo) ListAll(ctx context.Context, status string, limit, offset int) ([]model.Order, error) {
	q := "SELECT " + orderCols + " FROM orders"
	args := []any{}
	if status != "" {
		q += " WHERE escrow_status=?"
		args = append(args, status)
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
	orders := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// SetTracking stores the seller's cargo tracking code.  Only the seller of
// a held order may add tracking; the UPDATE re-checks both in its WHERE
// clause so a concurrent escrow move cannot interleave with the write.
func (r *OrderRepo) SetTracking(ctx context.Context, orderID, sellerID uint64, code string) error {
	o, err := r.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.SellerID != sellerID {
		return ErrForbidden
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE orders SET cargo_tracking_code=? WHERE id=? AND seller_id=? AND escrow_status=?",
		code, orderID, sellerID, model.EscrowHeld)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEscrowState
	}
	return nil
}

// ConfirmDelivery stamps delivered_at on behalf of the buyer, starting the
// auto-release clock.  Confirming twice is a no-op rejected with
// ErrConflict so the clock cannot be reset.
func (r *OrderRepo) ConfirmDelivery(ctx context.Context, orderID, buyerID uint64) error {
	o, err := r.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.BuyerID != buyerID {
		return ErrForbidden
	}
	if o.EscrowStatus != model.EscrowHeld {
		return ErrEscrowState
	}
	if o.DeliveredAt != nil {
		return ErrConflict
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE orders SET delivered_at=NOW() WHERE id=? AND delivered_at IS NULL", orderID)
	return err
}

// TransitionTx moves an order's escrow from one state to another inside a
// transaction.  The transition table is consulted first, then the UPDATE's
// WHERE clause re-checks the from-state so a concurrent transition makes
// this one fail with ErrEscrowState instead of silently overwriting.
func (r *OrderRepo) TransitionTx(ctx context.Context, tx *sql.Tx, orderID uint64, from, to string) error {
	if !model.CanTransitionEscrow(from, to) {
		return ErrEscrowState
	}
	var released any
	if model.EscrowTerminal(to) {
		released = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET escrow_status=?, released_at=COALESCE(?, released_at) WHERE id=? AND escrow_status=?",
		to, released, orderID, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEscrowState
	}
	return nil
}

// ListDueForAutoRelease returns held orders whose delivery confirmation is
// older than the cutoff.  Disputed orders carry a different escrow status
// and therefore never appear here.
func (r *OrderRepo) ListDueForAutoRelease(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+orderCols+` FROM orders
		 WHERE escrow_status=? AND delivered_at IS NOT NULL AND delivered_at <= ?
		 ORDER BY delivered_at LIMIT ?`,
		model.EscrowHeld, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// EscrowTotals aggregates order amounts per escrow status for the admin
// financial overview.
func (r *OrderRepo) EscrowTotals(ctx context.Context) (map[string]int64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT escrow_status, COALESCE(SUM(amount),0) FROM orders GROUP BY escrow_status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := make(map[string]int64)
	for rows.Next() {
		var status string
		var sum int64
		if err := rows.Scan(&status, &sum); err != nil {
			return nil, err
		}
		totals[status] = sum
	}
	return totals, rows.Err()
}
