package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/utils"
)

// UserRepo provides persistence for user accounts, including the
// auth-related columns (phone verification, payout card, 2FA secret).
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userCols = `id, email, password_hash, name, role, phone, phone_verified,
	payout_card_pan, trust_score, is_banned, two_factor_secret, two_factor_enabled,
	created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	var phone, pan, secret sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role,
		&phone, &u.PhoneVerified, &pan, &u.TrustScore, &u.IsBanned,
		&secret, &u.TwoFactorEnabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	if phone.Valid {
		p := phone.String
		u.Phone = &p
	}
	if pan.Valid {
		p := pan.String
		u.PayoutCardPan = &p
	}
	if secret.Valid {
		s := secret.String
		u.TwoFactorSecret = &s
	}
	return u, nil
}

// Create inserts a user and returns its ID. The email is normalized to
// lower case before insertion; a duplicate maps to ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password, name, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, role) VALUES (?,?,?,?)",
		email, hash, name, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// GetByPhone fetches a user by verified phone number. Used by the SMS
// login flow, which only signs in phones that completed verification.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE phone=? AND phone_verified=1 LIMIT 1", phone)
	return scanUser(row)
}

// UpdateName changes the display name.
func (r *UserRepo) UpdateName(ctx context.Context, id uint64, name string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET name=? WHERE id=?", name, id)
	return err
}

// UpdatePassword replaces the stored bcrypt hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// SetPhone stores a new phone number in unverified state. A phone already
// verified by another account maps to ErrConflict.
func (r *UserRepo) SetPhone(ctx context.Context, id uint64, phone string) error {
	var taken bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE phone=? AND phone_verified=1 AND id<>?)",
		phone, id).Scan(&taken)
	if err != nil {
		return err
	}
	if taken {
		return ErrConflict
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET phone=?, phone_verified=0 WHERE id=?", phone, id)
	return err
}

// MarkPhoneVerified flips phone_verified after a successful OTP check.
func (r *UserRepo) MarkPhoneVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET phone_verified=1 WHERE id=?", id)
	return err
}

// SetPayoutCard stores the seller's payout card PAN. Validation of the
// number happens in the handler before this is called.
func (r *UserRepo) SetPayoutCard(ctx context.Context, id uint64, pan string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET payout_card_pan=? WHERE id=?", pan, id)
	return err
}

// SetTwoFactorSecret stores a pending TOTP secret without enabling 2FA.
func (r *UserRepo) SetTwoFactorSecret(ctx context.Context, id uint64, secret string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET two_factor_secret=? WHERE id=?", secret, id)
	return err
}

// EnableTwoFactor marks 2FA active once the first TOTP code verified.
func (r *UserRepo) EnableTwoFactor(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET two_factor_enabled=1 WHERE id=?", id)
	return err
}

// DisableTwoFactor clears the secret and the enabled flag.
func (r *UserRepo) DisableTwoFactor(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET two_factor_secret=NULL, two_factor_enabled=0 WHERE id=?", id)
	return err
}

// SetBanned toggles the ban flag. Banned users fail authentication on the
// next request regardless of token validity.
func (r *UserRepo) SetBanned(ctx context.Context, id uint64, banned bool) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET is_banned=? WHERE id=?", banned, id)
	return err
}

// SetRole changes the account role.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
	return err
}

// SetTrustScore sets the admin-adjustable trust score.
func (r *UserRepo) SetTrustScore(ctx context.Context, id uint64, score int) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET trust_score=? WHERE id=?", score, id)
	return err
}

// List returns users for the admin panel, newest first, optionally
// filtered by a search term over email and name.
func (r *UserRepo) List(ctx context.Context, search string, limit, offset int) ([]model.User, error) {
	q := "SELECT " + userCols + " FROM users"
	args := []any{}
	if s := strings.TrimSpace(search); s != "" {
		q += " WHERE email LIKE ? OR name LIKE ?"
		like := "%" + s + "%"
		args = append(args, like, like)
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListAudience resolves a broadcast audience to concrete users.
// "buyers" are users with at least one order, "sellers" users with at
// least one listing, "all" everyone. Banned accounts are excluded.
func (r *UserRepo) ListAudience(ctx context.Context, audience string) ([]model.User, error) {
	q := "SELECT " + userCols + " FROM users u WHERE u.is_banned=0"
	switch audience {
	case model.AudienceBuyers:
		q += " AND EXISTS(SELECT 1 FROM orders o WHERE o.buyer_id=u.id)"
	case model.AudienceSellers:
		q += " AND EXISTS(SELECT 1 FROM listings l WHERE l.seller_id=u.id)"
	case model.AudienceAll:
	default:
		return nil, errors.New("unknown audience: " + audience)
	}
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Touch bumps updated_at, used after auth-surface changes that do not
// modify other columns.
func (r *UserRepo) Touch(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET updated_at=? WHERE id=?", time.Now().UTC(), id)
	return err
}
