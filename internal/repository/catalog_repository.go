package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/repart/marketplace/internal/model"
)

// CatalogRepo manages the admin-maintained device catalog and its
// categories.  The catalog anchors the sell-flow price valuation.
type CatalogRepo struct{ DB *sql.DB }

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{DB: db} }

const catalogCols = `id, device_type, brand, model, chipset, storage, ram,
	base_price, floor_price, status, is_featured, notes, created_at, updated_at`

func scanCatalogEntry(row interface{ Scan(...any) error }) (model.DeviceCatalogEntry, error) {
	var e model.DeviceCatalogEntry
	var chipset, storage, ram, notes sql.NullString
	err := row.Scan(&e.ID, &e.DeviceType, &e.Brand, &e.Model, &chipset, &storage, &ram,
		&e.BasePrice, &e.FloorPrice, &e.Status, &e.IsFeatured, &notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return e, err
	}
	if chipset.Valid {
		v := chipset.String
		e.Chipset = &v
	}
	if storage.Valid {
		v := storage.String
		e.Storage = &v
	}
	if ram.Valid {
		v := ram.String
		e.RAM = &v
	}
	if notes.Valid {
		v := notes.String
		e.Notes = &v
	}
	return e, nil
}

// CreateEntry inserts a catalog entry.  FloorPrice above BasePrice is
// rejected with ErrConflict before touching the database.
func (r *CatalogRepo) CreateEntry(ctx context.Context, e *model.DeviceCatalogEntry) error {
	if e.FloorPrice > e.BasePrice {
		return ErrConflict
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO device_catalog_entries
		   (device_type, brand, model, chipset, storage, ram, base_price, floor_price, status, is_featured, notes)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		e.DeviceType, e.Brand, e.Model, e.Chipset, e.Storage, e.RAM,
		e.BasePrice, e.FloorPrice, e.Status, e.IsFeatured, e.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetEntry fetches a catalog entry by id.
func (r *CatalogRepo) GetEntry(ctx context.Context, id uint64) (model.DeviceCatalogEntry, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+catalogCols+" FROM device_catalog_entries WHERE id=? LIMIT 1", id)
	return scanCatalogEntry(row)
}

// FindActiveByModel resolves a model name to its active catalog entry for
// valuation.  Matching is case-insensitive on the model column.
func (r *CatalogRepo) FindActiveByModel(ctx context.Context, modelName string) (model.DeviceCatalogEntry, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+catalogCols+" FROM device_catalog_entries WHERE LOWER(model)=? AND status=? LIMIT 1",
		strings.ToLower(strings.TrimSpace(modelName)), model.CatalogActive)
	return scanCatalogEntry(row)
}

// ListEntries returns catalog entries, optionally filtered by device type
// and status, ordered by brand then model.
func (r *CatalogRepo) ListEntries(ctx context.Context, deviceType, status string, limit, offset int) ([]model.DeviceCatalogEntry, error) {
	q := "SELECT " + catalogCols + " FROM device_catalog_entries WHERE 1=1"
	args := []any{}
	if deviceType != "" {
		q += " AND device_type=?"
		args = append(args, deviceType)
	}
	if status != "" {
		q += " AND status=?"
		args = append(args, status)
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	q += " ORDER BY brand, model LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.DeviceCatalogEntry, 0)
	for rows.Next() {
		e, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpdateEntry rewrites a catalog entry.
func (r *CatalogRepo) UpdateEntry(ctx context.Context, e *model.DeviceCatalogEntry) error {
	if e.FloorPrice > e.BasePrice {
		return ErrConflict
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE device_catalog_entries
		 SET device_type=?, brand=?, model=?, chipset=?, storage=?, ram=?,
		     base_price=?, floor_price=?, status=?, is_featured=?, notes=?
		 WHERE id=?`,
		e.DeviceType, e.Brand, e.Model, e.Chipset, e.Storage, e.RAM,
		e.BasePrice, e.FloorPrice, e.Status, e.IsFeatured, e.Notes, e.ID)
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

// DeleteEntry archives rather than removes, so past valuations keep their
// reference.
func (r *CatalogRepo) DeleteEntry(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE device_catalog_entries SET status=? WHERE id=?", model.CatalogArchived, id)
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

// CreateCategory inserts a category; the slug is derived from the label
// when empty.  Duplicate slugs map to ErrConflict.
func (r *CatalogRepo) CreateCategory(ctx context.Context, c *model.DeviceCategory) error {
	if c.Slug == "" {
		c.Slug = slugify(c.Label)
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO device_categories (label, slug, description, device_type, is_active) VALUES (?,?,?,?,?)",
		c.Label, c.Slug, c.Description, c.DeviceType, c.IsActive)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// ListCategories returns categories, active ones first.
func (r *CatalogRepo) ListCategories(ctx context.Context) ([]model.DeviceCategory, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, label, slug, description, device_type, is_active, created_at FROM device_categories ORDER BY is_active DESC, label")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cats := make([]model.DeviceCategory, 0)
	for rows.Next() {
		var c model.DeviceCategory
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.Label, &c.Slug, &desc, &c.DeviceType, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			d := desc.String
			c.Description = &d
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// SetCategoryActive toggles a category's visibility.
func (r *CatalogRepo) SetCategoryActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE device_categories SET is_active=? WHERE id=?", active, id)
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

// DeleteCategory removes a category.
func (r *CatalogRepo) DeleteCategory(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM device_categories WHERE id=?", id)
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

// slugify lowercases and replaces runs of non-alphanumerics with hyphens.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
