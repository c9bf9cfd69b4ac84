package handler

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/repository"
)

// DisputeHandler implements the buyer-facing dispute surface.  Resolution
// lives in the admin handlers.
type DisputeHandler struct {
	DB       *sql.DB
	Orders   *repository.OrderRepo
	Disputes *repository.DisputeRepo
}

func NewDisputeHandler(db *sql.DB, o *repository.OrderRepo, d *repository.DisputeRepo) *DisputeHandler {
	return &DisputeHandler{DB: db, Orders: o, Disputes: d}
}

type createDisputeReq struct {
	OrderID       uint64 `json:"order_id"`
	Reason        string `json:"reason"`
	VideoProofURL string `json:"video_proof_url"`
}

// Create opens a dispute on a held order the caller bought.  The dispute
// insert and the order's held→disputed flip commit together, which also
// takes the order out of the auto-release scan.
func (h *DisputeHandler) Create(c echo.Context) error {
	var req createDisputeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.OrderID == 0 || req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id/reason required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	defer func() { _ = tx.Rollback() }()

	o, err := h.Orders.GetByIDTx(ctx, tx, req.OrderID)
	if err != nil {
		return errJSON(c, err, "load order failed")
	}
	if o.BuyerID != getUserID(c) {
		return errJSON(c, repository.ErrForbidden, "")
	}
	if o.EscrowStatus != model.EscrowHeld {
		return errJSON(c, repository.ErrEscrowState, "")
	}

	d := model.Dispute{
		OrderID:       o.ID,
		Reason:        req.Reason,
		VideoProofURL: strings.TrimSpace(req.VideoProofURL),
	}
	if err := h.Disputes.CreateTx(ctx, tx, &d); err != nil {
		return errJSON(c, err, "create dispute failed")
	}
	if err := h.Orders.TransitionTx(ctx, tx, o.ID, model.EscrowHeld, model.EscrowDisputed); err != nil {
		return errJSON(c, err, "flag order failed")
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	return c.JSON(http.StatusCreated, d)
}

// Get returns a dispute to the buyer or seller of its order.
func (h *DisputeHandler) Get(c echo.Context) error {
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
	uid := getUserID(c)
	if o.BuyerID != uid && o.SellerID != uid {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.JSON(http.StatusOK, d)
}

// GetForOrder returns the dispute attached to an order, if any.
func (h *DisputeHandler) GetForOrder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	o, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		return errJSON(c, err, "load order failed")
	}
	uid := getUserID(c)
	if o.BuyerID != uid && o.SellerID != uid {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	d, err := h.Disputes.GetByOrder(ctx, o.ID)
	if err != nil {
		return errJSON(c, err, "load dispute failed")
	}
	return c.JSON(http.StatusOK, d)
}
