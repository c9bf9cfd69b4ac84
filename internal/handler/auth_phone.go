package handler

import (
	"database/sql"
	"net/http"
	"regexp"
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

// e164 loosely validates international phone numbers.
var e164 = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// PhoneAuthHandler implements SMS OTP login and phone verification.
type PhoneAuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
	Codes *repository.VerificationCodeRepo
	Auth  *AuthHandler
	SMS   service.SMSSender
	Log   *zap.Logger
}

type phoneReq struct {
	Phone string `json:"phone"`
}
type phoneCodeReq struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}
type codeReq struct {
	Code string `json:"code"`
}

// sendCode issues a fresh OTP for the purpose and delivers it over SMS.
func (h *PhoneAuthHandler) sendCode(c echo.Context, userID uint64, phone, purpose string) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	// One live code per minute per purpose keeps SMS costs sane.
	if recent, err := h.Codes.HasActive(ctx, userID, purpose, time.Minute); err == nil && recent {
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "code already sent, try again shortly"})
	}
	code, err := utils.NewNumericCode(6)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate code failed"})
	}
	if err := h.Codes.Create(ctx, userID, purpose, utils.HashCode(code), h.Cfg.OTPTTL); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store code failed"})
	}
	if err := h.SMS.Send(ctx, phone, "Repart code: "+code); err != nil {
		h.Log.Warn("otp sms failed", zap.Uint64("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "sms delivery failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// RequestLoginCode sends an OTP to a verified phone so it can be used as a
// password-free login.  Responds identically whether or not the phone is
// known, so the endpoint cannot be used to enumerate accounts.
func (h *PhoneAuthHandler) RequestLoginCode(c echo.Context) error {
	var req phoneReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	phone := strings.TrimSpace(req.Phone)
	if !e164.MatchString(phone) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid phone"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByPhone(ctx, phone)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusOK, echo.Map{"ok": true})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.IsBanned {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}
	return h.sendCode(c, u.ID, phone, model.CodePhoneLogin)
}

// LoginWithCode exchanges a valid OTP for a token pair.
func (h *PhoneAuthHandler) LoginWithCode(c echo.Context) error {
	var req phoneCodeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	phone := strings.TrimSpace(req.Phone)
	code := strings.TrimSpace(req.Code)
	if !e164.MatchString(phone) || code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone/code required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByPhone(ctx, phone)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid code"})
	}
	if u.IsBanned {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account banned"})
	}
	if err := h.Codes.Consume(ctx, u.ID, model.CodePhoneLogin, utils.HashCode(code)); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid code"})
	}
	return h.Auth.issuePair(c, u, http.StatusOK)
}

// RequestVerifyCode stores a new phone on the authenticated account in
// unverified state and sends the verification OTP to it.
func (h *PhoneAuthHandler) RequestVerifyCode(c echo.Context) error {
	var req phoneReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	phone := strings.TrimSpace(req.Phone)
	if !e164.MatchString(phone) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid phone"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid := getUserID(c)
	if err := h.Users.SetPhone(ctx, uid, phone); err != nil {
		return errJSON(c, err, "store phone failed")
	}
	return h.sendCode(c, uid, phone, model.CodePhoneVerify)
}

// VerifyPhone consumes the verification OTP and marks the phone verified.
func (h *PhoneAuthHandler) VerifyPhone(c echo.Context) error {
	var req codeReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid := getUserID(c)
	if err := h.Codes.Consume(ctx, uid, model.CodePhoneVerify, utils.HashCode(strings.TrimSpace(req.Code))); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid code"})
	}
	if err := h.Users.MarkPhoneVerified(ctx, uid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
