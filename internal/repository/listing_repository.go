package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/repart/marketplace/internal/model"
)

// ListingRepo provides CRUD operations for device listings.  The fault
// tree and photo list are stored as JSON columns and (de)serialized here so
// the rest of the application only sees typed values.
type ListingRepo struct{ DB *sql.DB }

func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{DB: db} }

const listingCols = `id, seller_id, model_name, imei_masked, imei_encrypted,
	fault_tree, photos, price, status, moderation_notes, risk_score,
	created_at, updated_at`

func scanListing(row interface{ Scan(...any) error }) (model.Listing, error) {
	var l model.Listing
	var faultJSON, photosJSON []byte
	var notes sql.NullString
	err := row.Scan(&l.ID, &l.SellerID, &l.ModelName, &l.IMEIMasked, &l.IMEIEncrypted,
		&faultJSON, &photosJSON, &l.Price, &l.Status, &notes, &l.RiskScore,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return l, err
	}
	if len(faultJSON) > 0 {
		if err := json.Unmarshal(faultJSON, &l.FaultTree); err != nil {
			return l, err
		}
	}
	l.FaultTree.Normalize()
	l.Photos = []string{}
	if len(photosJSON) > 0 {
		if err := json.Unmarshal(photosJSON, &l.Photos); err != nil {
			return l, err
		}
	}
	if notes.Valid {
		n := notes.String
		l.ModerationNotes = &n
	}
	return l, nil
}

// Create inserts a listing and populates its generated ID.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	faultJSON, err := json.Marshal(l.FaultTree)
	if err != nil {
		return err
	}
	if l.Photos == nil {
		l.Photos = []string{}
	}
	photosJSON, err := json.Marshal(l.Photos)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO listings (seller_id, model_name, imei_masked, imei_encrypted,
		   fault_tree, photos, price, status, risk_score)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		l.SellerID, l.ModelName, l.IMEIMasked, l.IMEIEncrypted,
		faultJSON, photosJSON, l.Price, l.Status, l.RiskScore)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// GetByID fetches a single listing.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (model.Listing, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+listingCols+" FROM listings WHERE id=? LIMIT 1", id)
	return scanListing(row)
}

// SearchFilter narrows the public listing search.  Zero values mean the
// filter is not applied.  Status defaults to active so drafts and sold
// devices stay out of browse results unless explicitly requested.
type SearchFilter struct {
	Query    string
	Status   string
	MinPrice int64
	MaxPrice int64
	Limit    int
	Offset   int
}

// Search returns listings matching the filter, newest first.
func (r *ListingRepo) Search(ctx context.Context, f SearchFilter) ([]model.Listing, error) {
	q := "SELECT " + listingCols + " FROM listings WHERE 1=1"
	args := []any{}
	status := f.Status
	if status == "" {
		status = model.ListingActive
	}
	q += " AND status=?"
	args = append(args, status)
	if s := strings.TrimSpace(f.Query); s != "" {
		q += " AND model_name LIKE ?"
		args = append(args, "%"+s+"%")
	}
	if f.MinPrice > 0 {
		q += " AND price >= ?"
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice > 0 {
		q += " AND price <= ?"
		args = append(args, f.MaxPrice)
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	listings := make([]model.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// ListBySeller returns all of a seller's listings regardless of status.
func (r *ListingRepo) ListBySeller(ctx context.Context, sellerID uint64) ([]model.Listing, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+listingCols+" FROM listings WHERE seller_id=? ORDER BY created_at DESC", sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	listings := make([]model.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// Update rewrites the seller-editable columns.  Only the owner may update,
// and only while the listing has not been sold.
func (r *ListingRepo) Update(ctx context.Context, l *model.Listing, sellerID uint64) error {
	var ownerID uint64
	var status string
	err := r.DB.QueryRowContext(ctx,
		"SELECT seller_id, status FROM listings WHERE id=?", l.ID).Scan(&ownerID, &status)
	if err != nil {
		return err
	}
	if ownerID != sellerID {
		return ErrForbidden
	}
	if status == model.ListingSold {
		return ErrConflict
	}
	faultJSON, err := json.Marshal(l.FaultTree)
	if err != nil {
		return err
	}
	if l.Photos == nil {
		l.Photos = []string{}
	}
	photosJSON, err := json.Marshal(l.Photos)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`UPDATE listings SET model_name=?, fault_tree=?, photos=?, price=?, status=?, risk_score=?
		 WHERE id=?`,
		l.ModelName, faultJSON, photosJSON, l.Price, l.Status, l.RiskScore, l.ID)
	return err
}

// Delete removes an unsold listing owned by the seller.  Sold listings are
// retained for order history and map to ErrConflict.
func (r *ListingRepo) Delete(ctx context.Context, id, sellerID uint64) error {
	var ownerID uint64
	var status string
	err := r.DB.QueryRowContext(ctx,
		"SELECT seller_id, status FROM listings WHERE id=?", id).Scan(&ownerID, &status)
	if err != nil {
		return err
	}
	if ownerID != sellerID {
		return ErrForbidden
	}
	if status == model.ListingSold {
		return ErrConflict
	}
	_, err = r.DB.ExecContext(ctx, "DELETE FROM listings WHERE id=?", id)
	return err
}

// MarkSoldTx flips an active listing to sold inside an order transaction.
// The WHERE clause doubles as the availability check: zero affected rows
// means the listing was not active, so the purchase loses the race and the
// caller rolls back with ErrListingUnavailable.
func (r *ListingRepo) MarkSoldTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE listings SET status=? WHERE id=? AND status=?",
		model.ListingSold, id, model.ListingActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrListingUnavailable
	}
	return nil
}

// Moderate sets a listing's status, moderation notes and optionally an
// overridden risk score on behalf of the admin panel.  Unlike Update it
// ignores ownership and the sold guard.
func (r *ListingRepo) Moderate(ctx context.Context, id uint64, status string, notes *string, riskScore *int) error {
	q := "UPDATE listings SET status=?, moderation_notes=?"
	args := []any{status, notes}
	if riskScore != nil {
		q += ", risk_score=?"
		args = append(args, *riskScore)
	}
	q += " WHERE id=?"
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, q, args...)
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

// ListForModeration returns listings for the admin queue, optionally
// filtered by status.
func (r *ListingRepo) ListForModeration(ctx context.Context, status string, limit, offset int) ([]model.Listing, error) {
	q := "SELECT " + listingCols + " FROM listings"
	args := []any{}
	if status != "" {
		q += " WHERE status=?"
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
	listings := make([]model.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
