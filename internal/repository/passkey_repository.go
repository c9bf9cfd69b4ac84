package repository

import (
	"context"
	"database/sql"

	"github.com/repart/marketplace/internal/model"
)

// PasskeyRepo stores WebAuthn credentials. The library's credential
// structure is kept as an opaque JSON blob; the base64url credential ID is
// indexed separately for the login lookup.
type PasskeyRepo struct{ DB *sql.DB }

func NewPasskeyRepo(db *sql.DB) *PasskeyRepo { return &PasskeyRepo{DB: db} }

// Create inserts a credential row for the user.
func (r *PasskeyRepo) Create(ctx context.Context, userID uint64, credentialID string, credential []byte, label string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO passkey_credentials (user_id, credential_id, credential, label) VALUES (?,?,?,?)",
		userID, credentialID, credential, label)
	return err
}

// ListByUser returns all credentials registered by the user.
func (r *PasskeyRepo) ListByUser(ctx context.Context, userID uint64) ([]model.PasskeyCredential, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, credential_id, credential, label, created_at FROM passkey_credentials WHERE user_id=? ORDER BY created_at",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	creds := make([]model.PasskeyCredential, 0)
	for rows.Next() {
		var c model.PasskeyCredential
		if err := rows.Scan(&c.ID, &c.UserID, &c.CredentialID, &c.Credential, &c.Label, &c.CreatedAt); err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// GetUserByCredentialID resolves the owning user for a credential presented
// during a discoverable login.
func (r *PasskeyRepo) GetUserByCredentialID(ctx context.Context, credentialID string) (uint64, error) {
	var userID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM passkey_credentials WHERE credential_id=? LIMIT 1",
		credentialID).Scan(&userID)
	return userID, err
}

// UpdateCredential rewrites the stored blob, e.g. to persist an updated
// sign counter after a successful assertion.
func (r *PasskeyRepo) UpdateCredential(ctx context.Context, credentialID string, credential []byte) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE passkey_credentials SET credential=? WHERE credential_id=?",
		credential, credentialID)
	return err
}

// Delete removes a credential owned by the user. Deleting somebody else's
// credential maps to ErrForbidden.
func (r *PasskeyRepo) Delete(ctx context.Context, id, userID uint64) error {
	var ownerID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM passkey_credentials WHERE id=?", id).Scan(&ownerID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx, "DELETE FROM passkey_credentials WHERE id=?", id)
	return err
}

// BackupCodeRepo stores hashed single-use 2FA recovery codes.
type BackupCodeRepo struct{ DB *sql.DB }

func NewBackupCodeRepo(db *sql.DB) *BackupCodeRepo { return &BackupCodeRepo{DB: db} }

// Replace deletes the user's existing codes and inserts a fresh batch.
// Generating codes always invalidates the previous set.
func (r *BackupCodeRepo) Replace(ctx context.Context, userID uint64, codeHashes []string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM backup_codes WHERE user_id=?", userID); err != nil {
		return err
	}
	for _, h := range codeHashes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO backup_codes (user_id, code_hash) VALUES (?,?)", userID, h); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Consume marks a matching unused code as used. Returns sql.ErrNoRows when
// the code does not match any unused entry.
func (r *BackupCodeRepo) Consume(ctx context.Context, userID uint64, codeHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE backup_codes SET consumed_at=NOW() WHERE user_id=? AND code_hash=? AND consumed_at IS NULL",
		userID, codeHash)
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

// CountRemaining returns how many codes the user has left unused.
func (r *BackupCodeRepo) CountRemaining(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM backup_codes WHERE user_id=? AND consumed_at IS NULL", userID).Scan(&n)
	return n, err
}
