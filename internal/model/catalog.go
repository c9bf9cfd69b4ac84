package model

import "time"

// Device types the catalog distinguishes.
const (
	DevicePhone    = "phone"
	DeviceComputer = "computer"
	DeviceTablet   = "tablet"
)

// Catalog entry states.
const (
	CatalogActive   = "active"
	CatalogDraft    = "draft"
	CatalogArchived = "archived"
)

// DeviceCatalogEntry is one priceable device in the admin-maintained
// catalog.  BasePrice anchors the sell-flow valuation; FloorPrice is the
// lowest suggestion the valuation may produce and must not exceed
// BasePrice.
//
// Fields:
//
//	ID         – primary key identifier.
//	DeviceType – phone, computer or tablet.
//	Brand      – manufacturer, e.g. "Apple".
//	Model      – model name matched against listings, e.g. "iPhone 12".
//	Chipset    – optional hardware detail (nullable).
//	Storage    – optional hardware detail (nullable).
//	RAM        – optional hardware detail (nullable).
//	BasePrice  – valuation anchor in the lowest currency unit.
//	FloorPrice – valuation floor in the lowest currency unit.
//	Status     – active, draft or archived.
//	IsFeatured – surfaced on the storefront when set.
//	Notes      – internal notes (nullable).
//	CreatedAt  – creation timestamp.
//	UpdatedAt  – last update timestamp.
type DeviceCatalogEntry struct {
	ID         uint64    `json:"id"`          // device_catalog_entries.id
	DeviceType string    `json:"device_type"` // device_catalog_entries.device_type
	Brand      string    `json:"brand"`       // device_catalog_entries.brand
	Model      string    `json:"model"`       // device_catalog_entries.model
	Chipset    *string   `json:"chipset"`     // device_catalog_entries.chipset (nullable)
	Storage    *string   `json:"storage"`     // device_catalog_entries.storage (nullable)
	RAM        *string   `json:"ram"`         // device_catalog_entries.ram (nullable)
	BasePrice  int64     `json:"base_price"`  // device_catalog_entries.base_price
	FloorPrice int64     `json:"floor_price"` // device_catalog_entries.floor_price
	Status     string    `json:"status"`      // device_catalog_entries.status
	IsFeatured bool      `json:"is_featured"` // device_catalog_entries.is_featured
	Notes      *string   `json:"notes"`       // device_catalog_entries.notes (nullable)
	CreatedAt  time.Time `json:"created_at"`  // device_catalog_entries.created_at
	UpdatedAt  time.Time `json:"updated_at"`  // device_catalog_entries.updated_at
}

// DeviceCategory groups catalog entries for browsing.  Slug is derived from
// the label unless set manually.
type DeviceCategory struct {
	ID          uint64    `json:"id"`          // device_categories.id
	Label       string    `json:"label"`       // device_categories.label
	Slug        string    `json:"slug"`        // device_categories.slug (unique)
	Description *string   `json:"description"` // device_categories.description (nullable)
	DeviceType  string    `json:"device_type"` // device_categories.device_type
	IsActive    bool      `json:"is_active"`   // device_categories.is_active
	CreatedAt   time.Time `json:"created_at"`  // device_categories.created_at
}
