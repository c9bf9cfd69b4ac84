package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/repart/marketplace/internal/repository"
)

// AdminAuditHandler exposes the audit log for review.
type AdminAuditHandler struct {
	Audit *repository.AuditRepo
}

func NewAdminAuditHandler(a *repository.AuditRepo) *AdminAuditHandler {
	return &AdminAuditHandler{Audit: a}
}

// List returns audit rows, newest first, with optional actor and action
// prefix filters.
func (h *AdminAuditHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	logs, err := h.Audit.List(ctx, uint64(queryInt(c, "actor_id", 0)), c.QueryParam("action"),
		queryInt(c, "limit", 100), queryInt(c, "offset", 0))
	if err != nil {
		return errJSON(c, err, "list audit failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"logs": logs})
}
