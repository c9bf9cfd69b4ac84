package repository

import (
	"context"
	"database/sql"

	"github.com/repart/marketplace/internal/model"
)

// AddressRepo manages delivery addresses.  The default flag is exclusive
// per user; setting it clears the previous default in the same transaction.
type AddressRepo struct{ DB *sql.DB }

func NewAddressRepo(db *sql.DB) *AddressRepo { return &AddressRepo{DB: db} }

const addressCols = `id, user_id, title, address_line, city, zip_code, is_default, created_at`

func scanAddress(row interface{ Scan(...any) error }) (model.Address, error) {
	var a model.Address
	var zip sql.NullString
	err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.AddressLine, &a.City, &zip, &a.IsDefault, &a.CreatedAt)
	if err != nil {
		return a, err
	}
	if zip.Valid {
		z := zip.String
		a.ZipCode = &z
	}
	return a, nil
}

// Create inserts an address.  When IsDefault is set, any existing default
// for the user is cleared first.
func (r *AddressRepo) Create(ctx context.Context, a *model.Address) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if a.IsDefault {
		if _, err := tx.ExecContext(ctx,
			"UPDATE addresses SET is_default=0 WHERE user_id=?", a.UserID); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO addresses (user_id, title, address_line, city, zip_code, is_default) VALUES (?,?,?,?,?,?)",
		a.UserID, a.Title, a.AddressLine, a.City, a.ZipCode, a.IsDefault)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return tx.Commit()
}

// ListByUser returns the user's addresses, default first.
func (r *AddressRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Address, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+addressCols+" FROM addresses WHERE user_id=? ORDER BY is_default DESC, created_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	addrs := make([]model.Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}

// Update rewrites an address owned by the user.
func (r *AddressRepo) Update(ctx context.Context, a *model.Address) error {
	var ownerID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM addresses WHERE id=?", a.ID).Scan(&ownerID)
	if err != nil {
		return err
	}
	if ownerID != a.UserID {
		return ErrForbidden
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if a.IsDefault {
		if _, err := tx.ExecContext(ctx,
			"UPDATE addresses SET is_default=0 WHERE user_id=? AND id<>?", a.UserID, a.ID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE addresses SET title=?, address_line=?, city=?, zip_code=?, is_default=? WHERE id=?",
		a.Title, a.AddressLine, a.City, a.ZipCode, a.IsDefault, a.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes an address owned by the user.
func (r *AddressRepo) Delete(ctx context.Context, id, userID uint64) error {
	var ownerID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM addresses WHERE id=?", id).Scan(&ownerID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx, "DELETE FROM addresses WHERE id=?", id)
	return err
}
