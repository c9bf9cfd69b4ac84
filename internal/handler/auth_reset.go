package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/repart/marketplace/internal/config"
	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/repository"
	"github.com/repart/marketplace/internal/service"
	"github.com/repart/marketplace/internal/utils"
)

// PasswordResetHandler implements the forgot-password flow.  A reset code
// travels over SMS to the account's verified phone; confirming it sets the
// new password and kills every live session.
type PasswordResetHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Codes  *repository.VerificationCodeRepo
	Tokens *repository.TokenRepo
	SMS    service.SMSSender
	Log    *zap.Logger
}

type resetRequestReq struct {
	Email string `json:"email"`
}

type resetConfirmReq struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// Request issues a password-reset code.  The response is identical whether
// or not the email is known, so the endpoint cannot enumerate accounts;
// accounts without a verified phone silently get no code.
func (h *PasswordResetHandler) Request(c echo.Context) error {
	var req resetRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusOK, echo.Map{"ok": true})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.IsBanned || u.Phone == nil || !u.PhoneVerified {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}

	// One live code per minute, same throttle as the OTP login.
	if recent, err := h.Codes.HasActive(ctx, u.ID, model.CodePasswordReset, time.Minute); err == nil && recent {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}
	code, err := utils.NewNumericCode(6)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate code failed"})
	}
	if err := h.Codes.Create(ctx, u.ID, model.CodePasswordReset, utils.HashCode(code), h.Cfg.OTPTTL); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store code failed"})
	}
	if err := h.SMS.Send(ctx, *u.Phone, "Repart password reset code: "+code); err != nil {
		h.Log.Warn("reset sms failed", zap.Uint64("user_id", u.ID), zap.Error(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Confirm exchanges a valid reset code for a new password and revokes every
// refresh token, the same way a password change does.
func (h *PasswordResetHandler) Confirm(c echo.Context) error {
	var req resetConfirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/code required"})
	}
	if len(req.NewPassword) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new password must be at least 8 characters"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid code"})
	}
	if err := h.Codes.Consume(ctx, u.ID, model.CodePasswordReset, utils.HashCode(code)); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid code"})
	}
	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed"})
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	_ = h.Tokens.RevokeAllForUser(ctx, u.ID)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
