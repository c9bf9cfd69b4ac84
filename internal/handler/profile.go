package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/repart/marketplace/internal/config"
	"github.com/repart/marketplace/internal/repository"
	"github.com/repart/marketplace/internal/utils"
)

// ProfileHandler implements profile edits: display name, password change
// and the payout card.
type ProfileHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewProfileHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *ProfileHandler {
	return &ProfileHandler{Cfg: cfg, Users: u, Tokens: t}
}

type updateProfileReq struct {
	Name string `json:"name"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type payoutCardReq struct {
	Pan string `json:"pan"`
}

// Update changes the display name.
func (h *ProfileHandler) Update(c echo.Context) error {
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.UpdateName(ctx, getUserID(c), req.Name); err != nil {
		return errJSON(c, err, "update failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every refresh token so stolen sessions die with the old password.
func (h *ProfileHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.CurrentPassword == "" || len(req.NewPassword) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current password and new password (min 8 chars) required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid := getUserID(c)
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return errJSON(c, err, "load user failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid current password"})
	}
	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed"})
	}
	if err := h.Users.UpdatePassword(ctx, uid, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	_ = h.Tokens.RevokeAllForUser(ctx, uid)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// SetPayoutCard stores the card sellers receive escrow releases on.  The
// PAN must pass a 16-digit Luhn check and is encrypted at rest; responses
// only ever carry the last four digits.
func (h *ProfileHandler) SetPayoutCard(c echo.Context) error {
	var req payoutCardReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	pan := strings.ReplaceAll(strings.TrimSpace(req.Pan), " ", "")
	if !utils.LuhnValid(pan, 16) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid card number"})
	}
	encrypted, err := utils.EncryptString(h.Cfg.IMEISecret, pan)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "encrypt failed"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.SetPayoutCard(ctx, getUserID(c), encrypted); err != nil {
		return errJSON(c, err, "store card failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "last4": pan[len(pan)-4:]})
}
