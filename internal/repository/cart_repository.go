package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/repart/marketplace/internal/model"
)

// CartRepo manages the per-user cart.  A listing can be carted at most
// once per user; the unique (user_id, listing_id) index enforces it.
type CartRepo struct{ DB *sql.DB }

func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{DB: db} }

// Add places a listing in the user's cart.  Only active listings that the
// user does not own can be carted.
func (r *CartRepo) Add(ctx context.Context, userID, listingID uint64) error {
	var sellerID uint64
	var status string
	err := r.DB.QueryRowContext(ctx,
		"SELECT seller_id, status FROM listings WHERE id=?", listingID).Scan(&sellerID, &status)
	if err != nil {
		return err
	}
	if sellerID == userID {
		return ErrOwnListing
	}
	if status != model.ListingActive {
		return ErrListingUnavailable
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO cart_items (user_id, listing_id) VALUES (?,?)", userID, listingID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	return nil
}

// CartEntry is a cart row joined with the listing it points to, for
// display in the cart view.
type CartEntry struct {
	ID         uint64    `json:"id"`
	ListingID  uint64    `json:"listing_id"`
	ModelName  string    `json:"model_name"`
	IMEIMasked string    `json:"imei_masked"`
	Price      int64     `json:"price"`
	Status     string    `json:"status"`
	AddedAt    time.Time `json:"added_at"`
}

// ListByUser returns the user's cart with listing details, newest first.
// Listings sold since they were carted still appear, flagged by status, so
// the client can prompt removal.
func (r *CartRepo) ListByUser(ctx context.Context, userID uint64) ([]CartEntry, error) {
	const q = `SELECT ci.id, l.id, l.model_name, l.imei_masked, l.price, l.status, ci.created_at
	           FROM cart_items ci
	           JOIN listings l ON l.id = ci.listing_id
	           WHERE ci.user_id = ?
	           ORDER BY ci.created_at DESC`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]CartEntry, 0)
	for rows.Next() {
		var e CartEntry
		if err := rows.Scan(&e.ID, &e.ListingID, &e.ModelName, &e.IMEIMasked, &e.Price, &e.Status, &e.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Remove deletes one cart row by its id.  The user_id guard keeps a user
// from deleting rows in someone else's cart; the id is the one ListByUser
// returned.
func (r *CartRepo) Remove(ctx context.Context, userID, itemID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM cart_items WHERE id=? AND user_id=?", itemID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Clear empties the user's cart.
func (r *CartRepo) Clear(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id=?", userID)
	return err
}

// RemoveListingTx drops a sold listing from every cart inside the order
// transaction, so other buyers do not see a stale entry.
func (r *CartRepo) RemoveListingTx(ctx context.Context, tx *sql.Tx, listingID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE listing_id=?", listingID)
	return err
}
