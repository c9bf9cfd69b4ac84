package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/repository"
)

// AddressHandler implements the delivery address book.
type AddressHandler struct {
	Addresses *repository.AddressRepo
}

func NewAddressHandler(a *repository.AddressRepo) *AddressHandler {
	return &AddressHandler{Addresses: a}
}

type addressReq struct {
	Title       string  `json:"title"`
	AddressLine string  `json:"address_line"`
	City        string  `json:"city"`
	ZipCode     *string `json:"zip_code"`
	IsDefault   bool    `json:"is_default"`
}

func (r *addressReq) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	r.AddressLine = strings.TrimSpace(r.AddressLine)
	r.City = strings.TrimSpace(r.City)
	if r.Title == "" || r.AddressLine == "" || r.City == "" {
		return "title/address_line/city required"
	}
	return ""
}

// Create adds an address to the caller's address book.
func (h *AddressHandler) Create(c echo.Context) error {
	var req addressReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	a := model.Address{
		UserID:      getUserID(c),
		Title:       req.Title,
		AddressLine: req.AddressLine,
		City:        req.City,
		ZipCode:     req.ZipCode,
		IsDefault:   req.IsDefault,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Addresses.Create(ctx, &a); err != nil {
		return errJSON(c, err, "create address failed")
	}
	return c.JSON(http.StatusCreated, a)
}

// List returns the caller's addresses, default first.
func (h *AddressHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	addrs, err := h.Addresses.ListByUser(ctx, getUserID(c))
	if err != nil {
		return errJSON(c, err, "list addresses failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"addresses": addrs})
}

// Update rewrites one of the caller's addresses.
func (h *AddressHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req addressReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	a := model.Address{
		ID:          id,
		UserID:      getUserID(c),
		Title:       req.Title,
		AddressLine: req.AddressLine,
		City:        req.City,
		ZipCode:     req.ZipCode,
		IsDefault:   req.IsDefault,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Addresses.Update(ctx, &a); err != nil {
		return errJSON(c, err, "update address failed")
	}
	return c.JSON(http.StatusOK, a)
}

// Delete removes one of the caller's addresses.
func (h *AddressHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Addresses.Delete(ctx, id, getUserID(c)); err != nil {
		return errJSON(c, err, "delete address failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
