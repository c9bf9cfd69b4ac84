package repository

import (
	"context"
	"database/sql"
	"time"
)

// VerificationCodeRepo persists short-lived one-time codes used for phone
// login, phone verification and SMS-based 2FA. Codes are stored as SHA-256
// hashes; the plaintext only ever travels over SMS.
type VerificationCodeRepo struct{ DB *sql.DB }

func NewVerificationCodeRepo(db *sql.DB) *VerificationCodeRepo {
	return &VerificationCodeRepo{DB: db}
}

// Create stores a new code after invalidating any still-active code for the
// same user and purpose, so only the latest code counts.
func (r *VerificationCodeRepo) Create(ctx context.Context, userID uint64, purpose, codeHash string, ttl time.Duration) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE verification_codes SET consumed_at=NOW() WHERE user_id=? AND purpose=? AND consumed_at IS NULL",
		userID, purpose)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO verification_codes (user_id, purpose, code_hash, expires_at) VALUES (?,?,?,?)",
		userID, purpose, codeHash, time.Now().UTC().Add(ttl))
	return err
}

// Consume marks the matching active code as used. It returns sql.ErrNoRows
// when no live code matches, which callers treat the same as a wrong code.
func (r *VerificationCodeRepo) Consume(ctx context.Context, userID uint64, purpose, codeHash string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE verification_codes SET consumed_at=NOW()
		 WHERE user_id=? AND purpose=? AND code_hash=? AND consumed_at IS NULL AND expires_at > NOW()`,
		userID, purpose, codeHash)
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

// HasActive reports whether a live code exists for the user and purpose.
// Used to rate-limit resends at the handler level.
func (r *VerificationCodeRepo) HasActive(ctx context.Context, userID uint64, purpose string, since time.Duration) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM verification_codes
		 WHERE user_id=? AND purpose=? AND consumed_at IS NULL AND created_at > ?)`,
		userID, purpose, time.Now().UTC().Add(-since)).Scan(&exists)
	return exists, err
}
