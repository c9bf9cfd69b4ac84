package model

import "time"

// Escrow custody states for a buyer's payment.  held is the initial state
// on order creation.  released and refunded are terminal.  disputed resolves
// back into released or refunded through admin dispute resolution.
const (
	EscrowHeld     = "held"
	EscrowReleased = "released"
	EscrowDisputed = "disputed"
	EscrowRefunded = "refunded"
)

// escrowTransitions is the full transition table for the escrow lifecycle.
// Anything not listed here is rejected with ErrEscrowState at the
// repository layer, which closes the gap where a dispute could be opened
// on an already-released order or a refund issued twice.
var escrowTransitions = map[string][]string{
	EscrowHeld:     {EscrowReleased, EscrowDisputed, EscrowRefunded},
	EscrowDisputed: {EscrowReleased, EscrowRefunded},
}

// CanTransitionEscrow reports whether an order may move from one escrow
// state to another.
func CanTransitionEscrow(from, to string) bool {
	for _, next := range escrowTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EscrowTerminal reports whether the given state admits no further
// transitions.
func EscrowTerminal(status string) bool {
	return len(escrowTransitions[status]) == 0
}

// Order records a purchase of a listing.  It is created atomically with the
// listing's active→sold flip and carries the escrow state for the buyer's
// payment.  DeliveredAt starts the auto-release clock: once the configured
// hold period elapses the sweeper releases funds to the seller unless a
// dispute intervened.
//
// Fields:
//
//	ID                – primary key identifier.
//	ListingID         – listing that was bought.
//	BuyerID           – purchasing user.
//	SellerID          – selling user (denormalized from the listing).
//	Amount            – price captured at purchase time, lowest unit.
//	EscrowStatus      – held, released, disputed or refunded.
//	CargoTrackingCode – shipping reference added by the seller (nullable).
//	DeliveredAt       – when the buyer confirmed delivery (nullable).
//	ReleasedAt        – when escrow left the held state (nullable).
//	CreatedAt         – creation timestamp.
type Order struct {
	ID                uint64     // orders.id
	ListingID         uint64     // orders.listing_id
	BuyerID           uint64     // orders.buyer_id
	SellerID          uint64     // orders.seller_id
	Amount            int64      // orders.amount
	EscrowStatus      string     // orders.escrow_status
	CargoTrackingCode *string    // orders.cargo_tracking_code (nullable)
	DeliveredAt       *time.Time // orders.delivered_at (nullable)
	ReleasedAt        *time.Time // orders.released_at (nullable)
	CreatedAt         time.Time  // orders.created_at
}

// DueForAutoRelease reports whether the sweeper should release this order:
// escrow still held, delivery confirmed, and the hold period expired.
// Disputed orders are never auto-released; a filed dispute takes precedence
// over an elapsed timer.
func (o Order) DueForAutoRelease(now time.Time, holdFor time.Duration) bool {
	if o.EscrowStatus != EscrowHeld || o.DeliveredAt == nil {
		return false
	}
	return now.Sub(*o.DeliveredAt) >= holdFor
}

// Payout ledger row types.
const (
	PayoutSellerRelease = "seller_release"
	PayoutBuyerRefund   = "buyer_refund"
	PayoutAutoRelease   = "auto_release"
)

// Payout is an append-only ledger row written whenever escrow money moves.
// Rows are never mutated after creation.  ProcessedBy is nil for rows
// written by the auto-release sweeper.
type Payout struct {
	ID          uint64    `json:"id"`           // payouts.id
	OrderID     uint64    `json:"order_id"`     // payouts.order_id
	Amount      int64     `json:"amount"`       // payouts.amount
	Type        string    `json:"type"`         // payouts.type
	Status      string    `json:"status"`       // payouts.status (always "processed" today)
	ProcessedBy *uint64   `json:"processed_by"` // payouts.processed_by (nullable)
	Note        *string   `json:"note"`         // payouts.note (nullable)
	CreatedAt   time.Time `json:"created_at"`   // payouts.created_at
}
