package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/repository"
)

// AdminCatalogHandler manages the device catalog that anchors valuations,
// plus the browse categories.
type AdminCatalogHandler struct {
	Catalog *repository.CatalogRepo
	Audit   *repository.AuditRepo
	Log     *zap.Logger
}

func NewAdminCatalogHandler(cat *repository.CatalogRepo, a *repository.AuditRepo, log *zap.Logger) *AdminCatalogHandler {
	return &AdminCatalogHandler{Catalog: cat, Audit: a, Log: log}
}

type catalogEntryReq struct {
	DeviceType string  `json:"device_type"`
	Brand      string  `json:"brand"`
	Model      string  `json:"model"`
	Chipset    *string `json:"chipset"`
	Storage    *string `json:"storage"`
	RAM        *string `json:"ram"`
	BasePrice  int64   `json:"base_price"`
	FloorPrice int64   `json:"floor_price"`
	Status     string  `json:"status"`
	IsFeatured bool    `json:"is_featured"`
	Notes      *string `json:"notes"`
}

func (r *catalogEntryReq) validate() string {
	r.Brand = strings.TrimSpace(r.Brand)
	r.Model = strings.TrimSpace(r.Model)
	switch r.DeviceType {
	case model.DevicePhone, model.DeviceComputer, model.DeviceTablet:
	default:
		return "invalid device_type"
	}
	if r.Brand == "" || r.Model == "" {
		return "brand/model required"
	}
	if r.BasePrice <= 0 || r.FloorPrice < 0 {
		return "invalid prices"
	}
	if r.FloorPrice > r.BasePrice {
		return "floor price cannot exceed base price"
	}
	if r.Status == "" {
		r.Status = model.CatalogActive
	}
	switch r.Status {
	case model.CatalogActive, model.CatalogDraft, model.CatalogArchived:
	default:
		return "invalid status"
	}
	return ""
}

func (r catalogEntryReq) toModel() model.DeviceCatalogEntry {
	return model.DeviceCatalogEntry{
		DeviceType: r.DeviceType,
		Brand:      r.Brand,
		Model:      r.Model,
		Chipset:    r.Chipset,
		Storage:    r.Storage,
		RAM:        r.RAM,
		BasePrice:  r.BasePrice,
		FloorPrice: r.FloorPrice,
		Status:     r.Status,
		IsFeatured: r.IsFeatured,
		Notes:      r.Notes,
	}
}

// CreateEntry adds a catalog entry.
func (h *AdminCatalogHandler) CreateEntry(c echo.Context) error {
	var req catalogEntryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	e := req.toModel()

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.CreateEntry(ctx, &e); err != nil {
		return errJSON(c, err, "create entry failed")
	}
	recordAudit(c, h.Audit, h.Log, "catalog.create_entry", "catalog_entry", e.ID,
		echo.Map{"model": e.Model, "base_price": e.BasePrice})
	return c.JSON(http.StatusCreated, e)
}

// ListEntries returns catalog entries with optional type/status filters.
func (h *AdminCatalogHandler) ListEntries(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	entries, err := h.Catalog.ListEntries(ctx, c.QueryParam("device_type"), c.QueryParam("status"),
		queryInt(c, "limit", 100), queryInt(c, "offset", 0))
	if err != nil {
		return errJSON(c, err, "list entries failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}

// UpdateEntry rewrites a catalog entry.
func (h *AdminCatalogHandler) UpdateEntry(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req catalogEntryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	e := req.toModel()
	e.ID = id

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.UpdateEntry(ctx, &e); err != nil {
		return errJSON(c, err, "update entry failed")
	}
	recordAudit(c, h.Audit, h.Log, "catalog.update_entry", "catalog_entry", id,
		echo.Map{"model": e.Model, "base_price": e.BasePrice, "status": e.Status})
	return c.JSON(http.StatusOK, e)
}

// DeleteEntry archives a catalog entry.
func (h *AdminCatalogHandler) DeleteEntry(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.DeleteEntry(ctx, id); err != nil {
		return errJSON(c, err, "archive entry failed")
	}
	recordAudit(c, h.Audit, h.Log, "catalog.archive_entry", "catalog_entry", id, nil)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

type categoryReq struct {
	Label       string  `json:"label"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
	DeviceType  string  `json:"device_type"`
	IsActive    bool    `json:"is_active"`
}

// CreateCategory adds a browse category.
func (h *AdminCatalogHandler) CreateCategory(c echo.Context) error {
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "label required"})
	}
	switch req.DeviceType {
	case model.DevicePhone, model.DeviceComputer, model.DeviceTablet:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid device_type"})
	}
	cat := model.DeviceCategory{
		Label:       req.Label,
		Slug:        strings.TrimSpace(req.Slug),
		Description: req.Description,
		DeviceType:  req.DeviceType,
		IsActive:    req.IsActive,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.CreateCategory(ctx, &cat); err != nil {
		return errJSON(c, err, "create category failed")
	}
	recordAudit(c, h.Audit, h.Log, "catalog.create_category", "category", cat.ID,
		echo.Map{"slug": cat.Slug})
	return c.JSON(http.StatusCreated, cat)
}

// ListCategories returns every category.
func (h *AdminCatalogHandler) ListCategories(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	cats, err := h.Catalog.ListCategories(ctx)
	if err != nil {
		return errJSON(c, err, "list categories failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": cats})
}

type toggleCategoryReq struct {
	IsActive bool `json:"is_active"`
}

// ToggleCategory shows or hides a category without deleting it.
func (h *AdminCatalogHandler) ToggleCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req toggleCategoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.SetCategoryActive(ctx, id, req.IsActive); err != nil {
		return errJSON(c, err, "toggle category failed")
	}
	recordAudit(c, h.Audit, h.Log, "catalog.toggle_category", "category", id,
		echo.Map{"is_active": req.IsActive})
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// DeleteCategory removes a category.
func (h *AdminCatalogHandler) DeleteCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.DeleteCategory(ctx, id); err != nil {
		return errJSON(c, err, "delete category failed")
	}
	recordAudit(c, h.Audit, h.Log, "catalog.delete_category", "category", id, nil)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
