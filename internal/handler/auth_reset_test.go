package handler

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/repart/marketplace/internal/config"
	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/repository"
)

type recordingSMS struct {
	to   string
	body string
}

func (s *recordingSMS) Send(_ context.Context, to, body string) error {
	s.to, s.body = to, body
	return nil
}

func newResetHandler(t *testing.T) (*PasswordResetHandler, sqlmock.Sqlmock, *recordingSMS) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sms := &recordingSMS{}
	h := &PasswordResetHandler{
		Cfg:    config.Config{BcryptCost: 4, OTPTTL: 5 * time.Minute},
		Users:  repository.NewUserRepo(db),
		Codes:  repository.NewVerificationCodeRepo(db),
		Tokens: repository.NewTokenRepo(db),
		SMS:    sms,
		Log:    zap.NewNop(),
	}
	return h, mock, sms
}

func resetUserRows(id uint64, email, phone string, verified bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "name", "role", "phone",
		"phone_verified", "payout_card_pan", "trust_score", "is_banned", "two_factor_secret",
		"two_factor_enabled", "created_at", "updated_at"}).
		AddRow(id, email, "$2a$10$hash", "Samir", "user", phone,
			verified, nil, 80, false, nil, false, time.Now(), time.Now())
}

func TestPasswordResetRequestIssuesCodeOverSMS(t *testing.T) {
	h, mock, sms := newResetHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WithArgs("samir@example.com").
		WillReturnRows(resetUserRows(2, "samir@example.com", "+994501234567", true))
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM verification_codes").
		WithArgs(uint64(2), model.CodePasswordReset, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("UPDATE verification_codes SET consumed_at=NOW").
		WithArgs(uint64(2), model.CodePasswordReset).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO verification_codes").
		WithArgs(uint64(2), model.CodePasswordReset, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/password-reset/request",
		`{"email":"Samir@Example.com"}`)
	require.NoError(t, h.Request(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+994501234567", sms.to)
	assert.Contains(t, sms.body, "password reset code")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// An unknown email gets the same 200 as a known one, so the endpoint leaks
// nothing about which accounts exist.
func TestPasswordResetRequestHidesUnknownEmail(t *testing.T) {
	h, mock, sms := newResetHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/password-reset/request",
		`{"email":"ghost@example.com"}`)
	require.NoError(t, h.Request(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sms.to)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetConfirmSetsPasswordAndRevokesSessions(t *testing.T) {
	h, mock, _ := newResetHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WithArgs("samir@example.com").
		WillReturnRows(resetUserRows(2, "samir@example.com", "+994501234567", true))
	mock.ExpectExec("UPDATE verification_codes SET consumed_at=NOW").
		WithArgs(uint64(2), model.CodePasswordReset, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET password_hash=").
		WithArgs(sqlmock.AnyArg(), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=NOW").
		WithArgs(uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/password-reset/confirm",
		`{"email":"samir@example.com","code":"123456","new_password":"brand-new-pass"}`)
	require.NoError(t, h.Confirm(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetConfirmRejectsWrongCode(t *testing.T) {
	h, mock, _ := newResetHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WithArgs("samir@example.com").
		WillReturnRows(resetUserRows(2, "samir@example.com", "+994501234567", true))
	mock.ExpectExec("UPDATE verification_codes SET consumed_at=NOW").
		WithArgs(uint64(2), model.CodePasswordReset, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/password-reset/confirm",
		`{"email":"samir@example.com","code":"000000","new_password":"brand-new-pass"}`)
	require.NoError(t, h.Confirm(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
