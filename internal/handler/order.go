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
	"github.com/repart/marketplace/internal/utils"
)

// OrderHandler implements purchase, escrow actions and order queries.  The
// multi-table writes (purchase, fund release) run in transactions opened
// here, with the repositories contributing their Tx variants.
type OrderHandler struct {
	DB       *sql.DB
	Orders   *repository.OrderRepo
	Listings *repository.ListingRepo
	Payouts  *repository.PayoutRepo
	Carts    *repository.CartRepo
	Log      *zap.Logger
}

func NewOrderHandler(db *sql.DB, o *repository.OrderRepo, l *repository.ListingRepo, p *repository.PayoutRepo, carts *repository.CartRepo, log *zap.Logger) *OrderHandler {
	return &OrderHandler{DB: db, Orders: o, Listings: l, Payouts: p, Carts: carts, Log: log}
}

type createOrderReq struct {
	ListingID uint64 `json:"listing_id"`
}

type orderActionReq struct {
	Action       string `json:"action"`
	TrackingCode string `json:"tracking_code"`
}

type orderView struct {
	ID                uint64     `json:"id"`
	ListingID         uint64     `json:"listing_id"`
	BuyerID           uint64     `json:"buyer_id"`
	SellerID          uint64     `json:"seller_id"`
	Amount            int64      `json:"amount"`
	EscrowStatus      string     `json:"escrow_status"`
	CargoTrackingCode *string    `json:"cargo_tracking_code"`
	DeliveredAt       *time.Time `json:"delivered_at"`
	ReleasedAt        *time.Time `json:"released_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

func viewOrder(o model.Order) orderView {
	return orderView{
		ID:                o.ID,
		ListingID:         o.ListingID,
		BuyerID:           o.BuyerID,
		SellerID:          o.SellerID,
		Amount:            o.Amount,
		EscrowStatus:      o.EscrowStatus,
		CargoTrackingCode: o.CargoTrackingCode,
		DeliveredAt:       o.DeliveredAt,
		ReleasedAt:        o.ReleasedAt,
		CreatedAt:         o.CreatedAt,
	}
}

func viewOrders(os []model.Order) []orderView {
	out := make([]orderView, 0, len(os))
	for _, o := range os {
		out = append(out, viewOrder(o))
	}
	return out
}

// Create purchases a listing.  The listing's active→sold flip, the order
// insert and the cart cleanup commit atomically; losing the race for the
// last unit surfaces as 409 instead of a double sale.
func (h *OrderHandler) Create(c echo.Context) error {
	var req createOrderReq
	if err := c.Bind(&req); err != nil || req.ListingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing_id required"})
	}
	buyerID := getUserID(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Listings.GetByID(ctx, req.ListingID)
	if err != nil {
		return errJSON(c, err, "load listing failed")
	}
	if l.SellerID == buyerID {
		return errJSON(c, repository.ErrOwnListing, "")
	}
	if l.Status != model.ListingActive {
		return errJSON(c, repository.ErrListingUnavailable, "")
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	defer func() { _ = tx.Rollback() }()

	if err := h.Listings.MarkSoldTx(ctx, tx, l.ID); err != nil {
		return errJSON(c, err, "purchase failed")
	}
	o := model.Order{
		ListingID: l.ID,
		BuyerID:   buyerID,
		SellerID:  l.SellerID,
		Amount:    l.Price,
	}
	if err := h.Orders.CreateTx(ctx, tx, &o); err != nil {
		return errJSON(c, err, "create order failed")
	}
	// The sold listing disappears from every cart, not just the buyer's.
	if err := h.Carts.RemoveListingTx(ctx, tx, l.ID); err != nil {
		return errJSON(c, err, "cart cleanup failed")
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	o.CreatedAt = time.Now().UTC()
	return c.JSON(http.StatusCreated, viewOrder(o))
}

// List returns the caller's orders; ?side=sales switches from purchases to
// sales.
func (h *OrderHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	var (
		orders []model.Order
		err    error
	)
	if c.QueryParam("side") == "sales" {
		orders, err = h.Orders.ListForSeller(ctx, getUserID(c))
	} else {
		orders, err = h.Orders.ListForBuyer(ctx, getUserID(c))
	}
	if err != nil {
		return errJSON(c, err, "list orders failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": viewOrders(orders)})
}

// Get returns one order, visible to its buyer and seller only.
func (h *OrderHandler) Get(c echo.Context) error {
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
	return c.JSON(http.StatusOK, viewOrder(o))
}

// Action dispatches the escrow actions on an order: the seller adds
// tracking, the buyer confirms delivery or releases funds early.
func (h *OrderHandler) Action(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req orderActionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	switch req.Action {
	case "add_tracking":
		return h.addTracking(c, id, strings.TrimSpace(req.TrackingCode))
	case "confirm_delivery":
		return h.confirmDelivery(c, id)
	case "release_funds":
		return h.releaseFunds(c, id)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown action"})
	}
}

func (h *OrderHandler) addTracking(c echo.Context, orderID uint64, code string) error {
	if code == "" {
		// Carriers without an integration get a generated reference.
		digits, err := utils.NewNumericCode(9)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate code failed"})
		}
		code = "AZ-" + digits
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Orders.SetTracking(ctx, orderID, getUserID(c), code); err != nil {
		return errJSON(c, err, "set tracking failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"tracking_code": code})
}

func (h *OrderHandler) confirmDelivery(c echo.Context, orderID uint64) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Orders.ConfirmDelivery(ctx, orderID, getUserID(c)); err != nil {
		return errJSON(c, err, "confirm delivery failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// releaseFunds lets the buyer hand escrow to the seller without waiting for
// the hold period.  The transition and the ledger row commit together.
func (h *OrderHandler) releaseFunds(c echo.Context, orderID uint64) error {
	buyerID := getUserID(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	defer func() { _ = tx.Rollback() }()

	o, err := h.Orders.GetByIDTx(ctx, tx, orderID)
	if err != nil {
		return errJSON(c, err, "load order failed")
	}
	if o.BuyerID != buyerID {
		return errJSON(c, repository.ErrForbidden, "")
	}
	if err := h.Orders.TransitionTx(ctx, tx, o.ID, model.EscrowHeld, model.EscrowReleased); err != nil {
		return errJSON(c, err, "release failed")
	}
	p := model.Payout{
		OrderID:     o.ID,
		Amount:      o.Amount,
		Type:        model.PayoutSellerRelease,
		ProcessedBy: &buyerID,
	}
	if err := h.Payouts.CreateTx(ctx, tx, &p); err != nil {
		return errJSON(c, err, "ledger write failed")
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	// Best effort; the ledger row is the source of truth.
	_ = service.Publish(ctx, h.Log, queue.EscrowQueueName, queue.EscrowReleasedEvent{
		OrderID:    o.ID,
		ListingID:  o.ListingID,
		SellerID:   o.SellerID,
		BuyerID:    o.BuyerID,
		Amount:     o.Amount,
		PayoutType: model.PayoutSellerRelease,
		ReleasedAt: time.Now().UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "escrow_status": model.EscrowReleased})
}

// Ledger returns the payout rows for an order the caller participates in.
func (h *OrderHandler) Ledger(c echo.Context) error {
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
	rows, err := h.Payouts.ListByOrder(ctx, id)
	if err != nil {
		return errJSON(c, err, "list payouts failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"payouts": rows})
}
