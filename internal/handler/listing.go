package handler

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/repart/marketplace/internal/config"
	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/pricing"
	"github.com/repart/marketplace/internal/repository"
	"github.com/repart/marketplace/internal/utils"
)

// ListingHandler implements the public browse surface and the seller's
// listing CRUD.
type ListingHandler struct {
	Cfg      config.Config
	Listings *repository.ListingRepo
	Catalog  *repository.CatalogRepo
}

func NewListingHandler(cfg config.Config, l *repository.ListingRepo, cat *repository.CatalogRepo) *ListingHandler {
	return &ListingHandler{Cfg: cfg, Listings: l, Catalog: cat}
}

type listingReq struct {
	ModelName string          `json:"model_name"`
	IMEI      string          `json:"imei"`
	FaultTree model.FaultTree `json:"fault_tree"`
	Photos    []string        `json:"photos"`
	Price     int64           `json:"price"`
	Status    string          `json:"status"`
}

// listingView is the public shape of a listing.  The encrypted IMEI never
// leaves the server; buyers only see the masked form.
type listingView struct {
	ID         uint64          `json:"id"`
	SellerID   uint64          `json:"seller_id"`
	ModelName  string          `json:"model_name"`
	IMEIMasked string          `json:"imei_masked"`
	FaultTree  model.FaultTree `json:"fault_tree"`
	Photos     []string        `json:"photos"`
	Price      int64           `json:"price"`
	Status     string          `json:"status"`
	RiskScore  int             `json:"risk_score"`
	CreatedAt  string          `json:"created_at"`
}

func viewListing(l model.Listing) listingView {
	return listingView{
		ID:         l.ID,
		SellerID:   l.SellerID,
		ModelName:  l.ModelName,
		IMEIMasked: l.IMEIMasked,
		FaultTree:  l.FaultTree,
		Photos:     l.Photos,
		Price:      l.Price,
		Status:     l.Status,
		RiskScore:  l.RiskScore,
		CreatedAt:  l.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func viewListings(ls []model.Listing) []listingView {
	out := make([]listingView, 0, len(ls))
	for _, l := range ls {
		out = append(out, viewListing(l))
	}
	return out
}

// riskFor derives the listing risk score from the fault tree, using the
// catalog entry when the model is known.
func (h *ListingHandler) riskFor(c echo.Context, modelName string, f model.FaultTree) int {
	ctx, cancel := reqCtx(c)
	defer cancel()
	entry, err := h.Catalog.FindActiveByModel(ctx, modelName)
	if err != nil {
		entry = model.DeviceCatalogEntry{}
	}
	return pricing.Suggest(entry, f).RiskScore
}

// Create publishes a new listing.  The IMEI must pass a Luhn check; it is
// stored encrypted and only the masked form is ever returned.
func (h *ListingHandler) Create(c echo.Context) error {
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ModelName = strings.TrimSpace(req.ModelName)
	req.IMEI = strings.TrimSpace(req.IMEI)
	if req.ModelName == "" || req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "model_name/price required"})
	}
	if !utils.LuhnValid(req.IMEI, 15) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid imei"})
	}
	req.FaultTree.Normalize()
	if !req.FaultTree.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid fault tree"})
	}
	status := req.Status
	if status == "" {
		status = model.ListingActive
	}
	if status != model.ListingActive && status != model.ListingDraft {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	encrypted, err := utils.EncryptString(h.Cfg.IMEISecret, req.IMEI)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "encrypt failed"})
	}
	l := model.Listing{
		SellerID:      getUserID(c),
		ModelName:     req.ModelName,
		IMEIMasked:    utils.MaskIMEI(req.IMEI),
		IMEIEncrypted: encrypted,
		FaultTree:     req.FaultTree,
		Photos:        req.Photos,
		Price:         req.Price,
		Status:        status,
		RiskScore:     h.riskFor(c, req.ModelName, req.FaultTree),
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Listings.Create(ctx, &l); err != nil {
		return errJSON(c, err, "create listing failed")
	}
	return c.JSON(http.StatusCreated, viewListing(l))
}

// List is the public browse endpoint with search and price filters.
func (h *ListingHandler) List(c echo.Context) error {
	f := repository.SearchFilter{
		Query:    c.QueryParam("q"),
		MinPrice: int64(queryInt(c, "min_price", 0)),
		MaxPrice: int64(queryInt(c, "max_price", 0)),
		Limit:    queryInt(c, "limit", 20),
		Offset:   queryInt(c, "offset", 0),
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	listings, err := h.Listings.Search(ctx, f)
	if err != nil {
		return errJSON(c, err, "search failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": viewListings(listings)})
}

// Get returns one listing.  Drafts are visible only to their seller.
func (h *ListingHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.Listings.GetByID(ctx, id)
	if err != nil {
		return errJSON(c, err, "load listing failed")
	}
	if l.Status == model.ListingDraft && l.SellerID != getUserID(c) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.JSON(http.StatusOK, viewListing(l))
}

// MyListings returns all of the caller's listings including drafts and
// sold devices.
func (h *ListingHandler) MyListings(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	listings, err := h.Listings.ListBySeller(ctx, getUserID(c))
	if err != nil {
		return errJSON(c, err, "list failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": viewListings(listings)})
}

// Update rewrites a listing's editable fields.  The IMEI is fixed at
// creation; changing the device means a new listing.
func (h *ListingHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ModelName = strings.TrimSpace(req.ModelName)
	if req.ModelName == "" || req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "model_name/price required"})
	}
	req.FaultTree.Normalize()
	if !req.FaultTree.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid fault tree"})
	}
	status := req.Status
	if status == "" {
		status = model.ListingActive
	}
	if status != model.ListingActive && status != model.ListingDraft {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	l := model.Listing{
		ID:        id,
		ModelName: req.ModelName,
		FaultTree: req.FaultTree,
		Photos:    req.Photos,
		Price:     req.Price,
		Status:    status,
		RiskScore: h.riskFor(c, req.ModelName, req.FaultTree),
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Listings.Update(ctx, &l, getUserID(c)); err != nil {
		return errJSON(c, err, "update listing failed")
	}
	updated, err := h.Listings.GetByID(ctx, id)
	if err != nil {
		return errJSON(c, err, "load listing failed")
	}
	return c.JSON(http.StatusOK, viewListing(updated))
}

// Delete removes an unsold listing owned by the caller.
func (h *ListingHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Listings.Delete(ctx, id, getUserID(c)); err != nil {
		return errJSON(c, err, "delete listing failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Valuation is the public price-suggestion endpoint backing the sell flow.
// The model must exist in the active catalog; condition answers arrive as
// query parameters.
func (h *ListingHandler) Valuation(c echo.Context) error {
	modelName := strings.TrimSpace(c.QueryParam("model"))
	if modelName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "model required"})
	}
	f := model.FaultTree{
		Screen:  c.QueryParam("screen"),
		Display: c.QueryParam("display"),
		Board:   c.QueryParam("board"),
		Battery: c.QueryParam("battery"),
	}
	f.Normalize()
	if !f.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid fault tree"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	entry, err := h.Catalog.FindActiveByModel(ctx, modelName)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown model"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	quote := pricing.Suggest(entry, f)
	return c.JSON(http.StatusOK, echo.Map{
		"model": entry.Model,
		"brand": entry.Brand,
		"quote": quote,
	})
}
