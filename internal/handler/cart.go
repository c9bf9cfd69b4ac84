package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/repart/marketplace/internal/repository"
)

// CartHandler implements the per-user cart.
type CartHandler struct {
	Carts *repository.CartRepo
}

func NewCartHandler(carts *repository.CartRepo) *CartHandler {
	return &CartHandler{Carts: carts}
}

type cartAddReq struct {
	ListingID uint64 `json:"listing_id"`
}

// Add places a listing in the caller's cart.
func (h *CartHandler) Add(c echo.Context) error {
	var req cartAddReq
	if err := c.Bind(&req); err != nil || req.ListingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing_id required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Carts.Add(ctx, getUserID(c), req.ListingID); err != nil {
		return errJSON(c, err, "add to cart failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"ok": true})
}

// List returns the cart with listing details.
func (h *CartHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	entries, err := h.Carts.ListByUser(ctx, getUserID(c))
	if err != nil {
		return errJSON(c, err, "list cart failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": entries})
}

// Remove drops one cart row by the id ListByUser returned.
func (h *CartHandler) Remove(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Carts.Remove(ctx, getUserID(c), id); err != nil {
		return errJSON(c, err, "remove failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Clear empties the cart.
func (h *CartHandler) Clear(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Carts.Clear(ctx, getUserID(c)); err != nil {
		return errJSON(c, err, "clear failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
