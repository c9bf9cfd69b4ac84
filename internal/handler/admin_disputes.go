package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/queue"
	"github.com/repart/marketplace/internal/repository"
	"github.com/repart/marketplace/internal/service"
)

// AdminDisputeHandler implements the admin dispute queue and resolution.
type AdminDisputeHandler struct {
	DB       *sql.DB
	Disputes *repository.DisputeRepo
	Orders   *repository.OrderRepo
	Payouts  *repository.PayoutRepo
	Audit    *repository.AuditRepo
	Log      *zap.Logger
}

func NewAdminDisputeHandler(db *sql.DB, d *repository.DisputeRepo, o *repository.OrderRepo, p *repository.PayoutRepo, a *repository.AuditRepo, log *zap.Logger) *AdminDisputeHandler {
	return &AdminDisputeHandler{DB: db, Disputes: d, Orders: o, Payouts: p, Audit: a, Log: log}
}

// List returns disputes for the queue, open ones by default, oldest first.
func (h *AdminDisputeHandler) List(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" {
		status = model.DisputeOpen
	}
	if status == "all" {
		status = ""
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	disputes, err := h.Disputes.List(ctx, status, queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		return errJSON(c, err, "list disputes failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"disputes": disputes})
}

// Get returns one dispute together with its order.
func (h *AdminDisputeHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Disputes.GetByID(ctx, id)
	if err != nil {
		return errJSON(c, err, "load dispute failed")
	}
	o, err := h.Orders.GetByID(ctx, d.OrderID)
	if err != nil {
		return errJSON(c, err, "load order failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"dispute": d, "order": viewOrder(o)})
}

type resolveReq struct {
	Resolution string `json:"resolution"` // refund | payout
	Note       string `json:"note"`
}

// Resolve closes an open dispute.  "refund" returns the money to the buyer
// and "payout" releases it to the seller.  The dispute flip, the order's
// escrow transition and the ledger row commit as one transaction; a second
// resolution attempt loses the status CAS and maps to 409.
func (h *AdminDisputeHandler) Resolve(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req resolveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	var disputeStatus, escrowTo, payoutType string
	switch req.Resolution {
	case "refund":
		disputeStatus = model.DisputeResolvedRefund
		escrowTo = model.EscrowRefunded
		payoutType = model.PayoutBuyerRefund
	case "payout":
		disputeStatus = model.DisputeResolvedPayout
		escrowTo = model.EscrowReleased
		payoutType = model.PayoutSellerRelease
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resolution must be refund or payout"})
	}

	adminID := getUserID(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Disputes.GetByID(ctx, id)
	if err != nil {
		return errJSON(c, err, "load dispute failed")
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	defer func() { _ = tx.Rollback() }()

	o, err := h.Orders.GetByIDTx(ctx, tx, d.OrderID)
	if err != nil {
		return errJSON(c, err, "load order failed")
	}
	if err := h.Disputes.ResolveTx(ctx, tx, d.ID, disputeStatus); err != nil {
		return errJSON(c, err, "resolve failed")
	}
	if err := h.Orders.TransitionTx(ctx, tx, o.ID, model.EscrowDisputed, escrowTo); err != nil {
		return errJSON(c, err, "escrow transition failed")
	}
	p := model.Payout{
		OrderID:     o.ID,
		Amount:      o.Amount,
		Type:        payoutType,
		ProcessedBy: &adminID,
	}
	if note := strings.TrimSpace(req.Note); note != "" {
		p.Note = &note
	}
	if err := h.Payouts.CreateTx(ctx, tx, &p); err != nil {
		return errJSON(c, err, "ledger write failed")
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	recordAudit(c, h.Audit, h.Log, "disputes.resolve", "dispute", d.ID,
		echo.Map{"resolution": req.Resolution, "order_id": o.ID, "amount": o.Amount})
	_ = service.Publish(ctx, h.Log, queue.EscrowQueueName, queue.EscrowReleasedEvent{
		OrderID:    o.ID,
		ListingID:  o.ListingID,
		SellerID:   o.SellerID,
		BuyerID:    o.BuyerID,
		Amount:     o.Amount,
		PayoutType: payoutType,
		ReleasedAt: time.Now().UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, echo.Map{
		"ok":            true,
		"dispute":       disputeStatus,
		"escrow_status": escrowTo,
	})
}
