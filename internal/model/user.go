package model

import "time"

// Roles assignable to a user.  Regular users buy and sell; moderators may
// use most of the admin panel; admins additionally resolve disputes and
// move escrow money.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column in the database.  The json
// tags are omitted here because these structs are primarily used internally
// by the repository layer; handlers define separate response types with
// appropriate JSON tags.
//
// Fields:
//
//	ID               – primary key identifier of the user.
//	Email            – unique email address (stored lowercased).
//	PasswordHash     – bcrypt hashed password.
//	Name             – display name.
//	Role             – user, moderator or admin.
//	Phone            – unique phone number in E.164 form (nil when unset).
//	PhoneVerified    – whether the phone passed OTP verification.
//	PayoutCardPan    – card number payouts are sent to (Luhn-checked).
//	TrustScore       – 0–100 heuristic adjusted by admins.
//	IsBanned         – banned users keep their session but lose all access.
//	TwoFactorSecret  – TOTP secret (nil until 2FA enrollment).
//	TwoFactorEnabled – whether a second factor is required at login.
//	CreatedAt        – timestamp of creation.
//	UpdatedAt        – timestamp of last update.
type User struct {
	ID               uint64     // users.id
	Email            string     // users.email
	PasswordHash     string     // users.password_hash
	Name             string     // users.name
	Role             string     // users.role
	Phone            *string    // users.phone (nullable)
	PhoneVerified    bool       // users.phone_verified
	PayoutCardPan    *string    // users.payout_card_pan (nullable)
	TrustScore       int        // users.trust_score
	IsBanned         bool       // users.is_banned
	TwoFactorSecret  *string    // users.two_factor_secret (nullable)
	TwoFactorEnabled bool       // users.two_factor_enabled
	CreatedAt        time.Time  // users.created_at
	UpdatedAt        time.Time  // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each refresh
// token belongs to a user and contains metadata for expiry and revocation.
// The plain token is not stored; only its SHA-256 hash.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the token.
//	TokenHash – SHA-256 hex digest of the token value.
//	ExpiresAt – expiration timestamp of the token.
//	RevokedAt – when the token was revoked (null if still active).
//	CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Purposes a verification code may be issued for.
const (
	CodePhoneLogin    = "phone_login"
	CodePhoneVerify   = "phone_verify"
	CodeTwoFactor     = "two_factor"
	CodePasswordReset = "password_reset"
)

// VerificationCode is a short-lived one-time code delivered over SMS.  Only
// the SHA-256 hash of the code is stored.  A code is spent by setting
// ConsumedAt; expired or consumed codes never validate.
type VerificationCode struct {
	ID         uint64     // verification_codes.id
	UserID     uint64     // verification_codes.user_id
	Purpose    string     // verification_codes.purpose
	CodeHash   string     // verification_codes.code_hash
	ExpiresAt  time.Time  // verification_codes.expires_at
	ConsumedAt *time.Time // verification_codes.consumed_at (nullable)
	CreatedAt  time.Time  // verification_codes.created_at
}

// PasskeyCredential stores one WebAuthn credential for a user.  The
// Credential column holds the webauthn library's credential serialized as
// JSON; the application never inspects its contents.
type PasskeyCredential struct {
	ID           uint64    // passkey_credentials.id
	UserID       uint64    // passkey_credentials.user_id
	CredentialID string    // passkey_credentials.credential_id (base64url, unique)
	Credential   []byte    // passkey_credentials.credential (JSON blob)
	Label        string    // passkey_credentials.label (user-chosen device name)
	CreatedAt    time.Time // passkey_credentials.created_at
}

// BackupCode is a single-use recovery code issued at two-factor enrollment.
// Stored hashed; consumed codes stay in the table with ConsumedAt set so the
// remaining count can be shown to the user.
type BackupCode struct {
	ID         uint64     // backup_codes.id
	UserID     uint64     // backup_codes.user_id
	CodeHash   string     // backup_codes.code_hash
	ConsumedAt *time.Time // backup_codes.consumed_at (nullable)
	CreatedAt  time.Time  // backup_codes.created_at
}
