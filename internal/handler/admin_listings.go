package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/repository"
)

// AdminListingHandler implements the listing moderation queue.
type AdminListingHandler struct {
	Listings *repository.ListingRepo
	Audit    *repository.AuditRepo
	Log      *zap.Logger
}

func NewAdminListingHandler(l *repository.ListingRepo, a *repository.AuditRepo, log *zap.Logger) *AdminListingHandler {
	return &AdminListingHandler{Listings: l, Audit: a, Log: log}
}

// List returns listings for moderation, optionally filtered by status.
func (h *AdminListingHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	listings, err := h.Listings.ListForModeration(ctx, c.QueryParam("status"),
		queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		return errJSON(c, err, "list failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": viewListings(listings)})
}

type moderateReq struct {
	Status    string  `json:"status"`
	Notes     *string `json:"notes"`
	RiskScore *int    `json:"risk_score"`
}

// Moderate approves a listing (active) or takes it down (draft), with
// optional notes shown to the seller.  Sold listings stay sold.
func (h *AdminListingHandler) Moderate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req moderateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Status != model.ListingActive && req.Status != model.ListingDraft {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	if req.Notes != nil {
		n := strings.TrimSpace(*req.Notes)
		if n == "" {
			req.Notes = nil
		} else {
			req.Notes = &n
		}
	}
	if req.RiskScore != nil {
		s := *req.RiskScore
		if s < 0 {
			s = 0
		}
		if s > 100 {
			s = 100
		}
		req.RiskScore = &s
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Listings.GetByID(ctx, id)
	if err != nil {
		return errJSON(c, err, "load listing failed")
	}
	if l.Status == model.ListingSold {
		return errJSON(c, repository.ErrConflict, "")
	}
	if err := h.Listings.Moderate(ctx, id, req.Status, req.Notes, req.RiskScore); err != nil {
		return errJSON(c, err, "moderate failed")
	}
	recordAudit(c, h.Audit, h.Log, "listings.moderate", "listing", id, echo.Map{"status": req.Status})
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
