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

// AdminFinanceHandler implements the financial overview and manual escrow
// moves on orders without a dispute.
type AdminFinanceHandler struct {
	DB      *sql.DB
	Orders  *repository.OrderRepo
	Payouts *repository.PayoutRepo
	Audit   *repository.AuditRepo
	Log     *zap.Logger
}

func NewAdminFinanceHandler(db *sql.DB, o *repository.OrderRepo, p *repository.PayoutRepo, a *repository.AuditRepo, log *zap.Logger) *AdminFinanceHandler {
	return &AdminFinanceHandler{DB: db, Orders: o, Payouts: p, Audit: a, Log: log}
}

// Overview aggregates escrow balances per state and the payout ledger per
// type.
func (h *AdminFinanceHandler) Overview(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	escrow, err := h.Orders.EscrowTotals(ctx)
	if err != nil {
		return errJSON(c, err, "escrow totals failed")
	}
	payouts, err := h.Payouts.TotalsByType(ctx)
	if err != nil {
		return errJSON(c, err, "payout totals failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"escrow_totals": escrow,
		"payout_totals": payouts,
	})
}

// ListOrders lists orders for the finance view, optionally by escrow
// status.
func (h *AdminFinanceHandler) ListOrders(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	orders, err := h.Orders.ListAll(ctx, c.QueryParam("status"),
		queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		return errJSON(c, err, "list orders failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": viewOrders(orders)})
}

// Ledger lists payout rows, optionally by type.
func (h *AdminFinanceHandler) Ledger(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Payouts.List(ctx, c.QueryParam("type"),
		queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		return errJSON(c, err, "list payouts failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"payouts": rows})
}

type financeActionReq struct {
	Note string `json:"note"`
}

// Release moves a held order's escrow to the seller.
func (h *AdminFinanceHandler) Release(c echo.Context) error {
	return h.move(c, model.EscrowReleased, model.PayoutSellerRelease, "finance.release")
}

// Refund moves a held order's escrow back to the buyer.
func (h *AdminFinanceHandler) Refund(c echo.Context) error {
	return h.move(c, model.EscrowRefunded, model.PayoutBuyerRefund, "finance.refund")
}

// move runs a manual escrow transition out of held.  Disputed orders must
// go through dispute resolution instead, which the transition CAS enforces.
func (h *AdminFinanceHandler) move(c echo.Context, escrowTo, payoutType, auditAction string) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req financeActionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	adminID := getUserID(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	defer func() { _ = tx.Rollback() }()

	o, err := h.Orders.GetByIDTx(ctx, tx, id)
	if err != nil {
		return errJSON(c, err, "load order failed")
	}
	// Repeating a move the order already completed is a no-op, not an error.
	if o.EscrowStatus == escrowTo {
		return c.JSON(http.StatusOK, echo.Map{"ok": true, "escrow_status": escrowTo})
	}
	if err := h.Orders.TransitionTx(ctx, tx, o.ID, model.EscrowHeld, escrowTo); err != nil {
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

	recordAudit(c, h.Audit, h.Log, auditAction, "order", o.ID, echo.Map{"amount": o.Amount})
	_ = service.Publish(ctx, h.Log, queue.EscrowQueueName, queue.EscrowReleasedEvent{
		OrderID:    o.ID,
		ListingID:  o.ListingID,
		SellerID:   o.SellerID,
		BuyerID:    o.BuyerID,
		Amount:     o.Amount,
		PayoutType: payoutType,
		ReleasedAt: time.Now().UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "escrow_status": escrowTo})
}
