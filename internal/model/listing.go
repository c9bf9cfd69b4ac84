package model

import "time"

// Listing lifecycle states.  A listing is created active, flips to sold
// atomically with order creation, and may be parked as draft by its seller
// or by moderation.
const (
	ListingActive = "active"
	ListingSold   = "sold"
	ListingDraft  = "draft"
)

// Listing represents a device put up for sale.  The device condition is a
// typed fault tree rather than an open key/value blob so that answers are
// validated at the boundary.  The full IMEI is kept only in encrypted form;
// the masked variant (first and last three digits) is what buyers see.
//
// Fields:
//
//	ID              – primary key identifier.
//	SellerID        – user who created the listing.
//	ModelName       – device model from the catalog (e.g. "iPhone 12").
//	IMEIMasked      – display IMEI, e.g. "358***421".
//	IMEIEncrypted   – full IMEI, encrypted at rest.
//	FaultTree       – condition answers serialized as JSON (fault_tree column).
//	Photos          – uploaded photo URLs serialized as a JSON array.
//	Price           – asking price in the lowest currency unit.
//	Status          – active, sold or draft.
//	ModerationNotes – free-form notes left by moderators (nullable).
//	RiskScore       – 0–100 heuristic derived from the fault tree.
//	CreatedAt       – creation timestamp.
//	UpdatedAt       – last update timestamp.
type Listing struct {
	ID              uint64    // listings.id
	SellerID        uint64    // listings.seller_id
	ModelName       string    // listings.model_name
	IMEIMasked      string    // listings.imei_masked
	IMEIEncrypted   string    // listings.imei_encrypted
	FaultTree       FaultTree // listings.fault_tree (JSON)
	Photos          []string  // listings.photos (JSON array)
	Price           int64     // listings.price
	Status          string    // listings.status
	ModerationNotes *string   // listings.moderation_notes (nullable)
	RiskScore       int       // listings.risk_score
	CreatedAt       time.Time // listings.created_at
	UpdatedAt       time.Time // listings.updated_at
}

// Answers accepted in a fault tree.  "unknown" is the default for questions
// the seller skipped.
const (
	AnswerUnknown    = "unknown"
	AnswerWorking    = "working"
	AnswerBroken     = "broken"
	AnswerNotWorking = "not_working"
	AnswerGood       = "good"
	AnswerBad        = "bad"
)

// FaultTree captures the seller's condition answers for a device.  Display
// is only meaningful when the screen glass is broken (does the panel still
// show an image).  Unanswered questions default to unknown.
type FaultTree struct {
	Screen  string `json:"screen"`            // working | broken | unknown
	Display string `json:"display,omitempty"` // working | not_working (when screen broken)
	Board   string `json:"board"`             // working | not_working | unknown
	Battery string `json:"battery"`           // good | bad | unknown
}

// Valid reports whether every answered question carries a recognised value.
func (f FaultTree) Valid() bool {
	switch f.Screen {
	case AnswerUnknown, AnswerWorking, AnswerBroken:
	default:
		return false
	}
	switch f.Display {
	case "", AnswerWorking, AnswerNotWorking:
	default:
		return false
	}
	switch f.Board {
	case AnswerUnknown, AnswerWorking, AnswerNotWorking:
	default:
		return false
	}
	switch f.Battery {
	case AnswerUnknown, AnswerGood, AnswerBad:
	default:
		return false
	}
	return true
}

// Normalize fills unanswered questions with the unknown default so a fault
// tree deserialized from an older row always round-trips.
func (f *FaultTree) Normalize() {
	if f.Screen == "" {
		f.Screen = AnswerUnknown
	}
	if f.Board == "" {
		f.Board = AnswerUnknown
	}
	if f.Battery == "" {
		f.Battery = AnswerUnknown
	}
}
