package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/repository"
)

// AdminUserHandler implements the admin user management surface.
type AdminUserHandler struct {
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Audit  *repository.AuditRepo
	Log    *zap.Logger
}

func NewAdminUserHandler(u *repository.UserRepo, t *repository.TokenRepo, a *repository.AuditRepo, log *zap.Logger) *AdminUserHandler {
	return &AdminUserHandler{Users: u, Tokens: t, Audit: a, Log: log}
}

type adminUserView struct {
	ID               uint64    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	Phone            *string   `json:"phone"`
	PhoneVerified    bool      `json:"phone_verified"`
	TrustScore       int       `json:"trust_score"`
	IsBanned         bool      `json:"is_banned"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

func viewAdminUser(u model.User) adminUserView {
	return adminUserView{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role,
		Phone:            u.Phone,
		PhoneVerified:    u.PhoneVerified,
		TrustScore:       u.TrustScore,
		IsBanned:         u.IsBanned,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
	}
}

// List returns users for the admin panel with optional email/name search.
func (h *AdminUserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx, c.QueryParam("q"), queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		return errJSON(c, err, "list users failed")
	}
	out := make([]adminUserView, 0, len(users))
	for _, u := range users {
		out = append(out, viewAdminUser(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

type banReq struct {
	Banned bool `json:"banned"`
}

// SetBanned bans or unbans a user.  Banning also revokes every refresh
// token so the ban takes effect the moment the access token expires, while
// the per-request middleware check cuts access immediately.
func (h *AdminUserHandler) SetBanned(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req banReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if id == getUserID(c) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot ban yourself"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.SetBanned(ctx, id, req.Banned); err != nil {
		return errJSON(c, err, "update failed")
	}
	if req.Banned {
		_ = h.Tokens.RevokeAllForUser(ctx, id)
	}
	action := "users.unban"
	if req.Banned {
		action = "users.ban"
	}
	recordAudit(c, h.Audit, h.Log, action, "user", id, nil)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

type roleReq struct {
	Role string `json:"role"`
}

// SetRole grants or revokes the moderator/admin roles.
func (h *AdminUserHandler) SetRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	switch req.Role {
	case model.RoleUser, model.RoleModerator, model.RoleAdmin:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.SetRole(ctx, id, req.Role); err != nil {
		return errJSON(c, err, "update failed")
	}
	recordAudit(c, h.Audit, h.Log, "users.set_role", "user", id, echo.Map{"role": req.Role})
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

type trustReq struct {
	Score int `json:"score"`
}

// SetTrustScore adjusts a user's trust score, clamped to 0-100.
func (h *AdminUserHandler) SetTrustScore(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req trustReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	score := req.Score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.SetTrustScore(ctx, id, score); err != nil {
		return errJSON(c, err, "update failed")
	}
	recordAudit(c, h.Audit, h.Log, "users.set_trust_score", "user", id, echo.Map{"score": score})
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "score": score})
}
