package handler

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pquerna/otp/totp"

	"github.com/repart/marketplace/internal/config"
	"github.com/repart/marketplace/internal/repository"
	"github.com/repart/marketplace/internal/utils"
)

const backupCodeCount = 8

// TwoFactorHandler implements TOTP enrollment and the second login step.
type TwoFactorHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Backup *repository.BackupCodeRepo
	Auth   *AuthHandler
}

type twoFactorVerifyReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// Enroll generates a TOTP secret for the authenticated user and returns
// the otpauth provisioning URL.  2FA stays disabled until Confirm proves
// the authenticator was set up.
func (h *TwoFactorHandler) Enroll(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, getUserID(c))
	if err != nil {
		return errJSON(c, err, "load user failed")
	}
	if u.TwoFactorEnabled {
		return c.JSON(http.StatusConflict, echo.Map{"error": "2fa already enabled"})
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Repart",
		AccountName: u.Email,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate secret failed"})
	}
	if err := h.Users.SetTwoFactorSecret(ctx, u.ID, key.Secret()); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store secret failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"secret": key.Secret(),
		"url":    key.URL(),
	})
}

// Confirm validates the first TOTP code, enables 2FA and returns a fresh
// batch of single-use backup codes (shown to the user exactly once).
func (h *TwoFactorHandler) Confirm(c echo.Context) error {
	var req codeReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, getUserID(c))
	if err != nil {
		return errJSON(c, err, "load user failed")
	}
	if u.TwoFactorSecret == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "enroll first"})
	}
	if !totp.Validate(strings.TrimSpace(req.Code), *u.TwoFactorSecret) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid code"})
	}
	if err := h.Users.EnableTwoFactor(ctx, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "enable failed"})
	}

	codes := make([]string, 0, backupCodeCount)
	hashes := make([]string, 0, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		raw, err := utils.RandomHex(5) // 10 hex chars
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate backup codes failed"})
		}
		codes = append(codes, raw)
		hashes = append(hashes, utils.HashCode(raw))
	}
	if err := h.Backup.Replace(ctx, u.ID, hashes); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store backup codes failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"backup_codes": codes})
}

// Disable turns 2FA off after a valid TOTP code and drops the secret.
func (h *TwoFactorHandler) Disable(c echo.Context) error {
	var req codeReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, getUserID(c))
	if err != nil {
		return errJSON(c, err, "load user failed")
	}
	if !u.TwoFactorEnabled || u.TwoFactorSecret == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "2fa not enabled"})
	}
	if !totp.Validate(strings.TrimSpace(req.Code), *u.TwoFactorSecret) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid code"})
	}
	if err := h.Users.DisableTwoFactor(ctx, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "disable failed"})
	}
	_ = h.Backup.Replace(ctx, u.ID, nil)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Verify is the second login step: credentials are re-checked, then the
// code is accepted as either a TOTP code or an unused backup code.
func (h *TwoFactorHandler) Verify(c echo.Context) error {
	var req twoFactorVerifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)
	if email == "" || req.Password == "" || code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password/code required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.TwoFactorEnabled || u.TwoFactorSecret == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "2fa not enabled"})
	}

	if !totp.Validate(code, *u.TwoFactorSecret) {
		// Fall back to backup codes.
		if err := h.Backup.Consume(ctx, u.ID, utils.HashCode(code)); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid code"})
		}
	}
	return h.Auth.issuePair(c, u, http.StatusOK)
}
