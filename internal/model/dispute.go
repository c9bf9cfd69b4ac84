package model

import "time"

// Dispute lifecycle states.  A dispute opens against a held order and is
// resolved by an admin into a refund or a payout; both resolutions are
// terminal.
const (
	DisputeOpen           = "open"
	DisputeResolvedRefund = "resolved_refund"
	DisputeResolvedPayout = "resolved_payout"
)

// Dispute records a buyer's claim against an order while its escrow is
// held.  Opening a dispute flips the order to disputed in the same
// transaction; resolving it flips the order to refunded or released and
// writes the corresponding payout ledger row.
//
// Fields:
//
//	ID            – primary key identifier.
//	OrderID       – order under dispute.
//	Reason        – the buyer's description of the problem.
//	VideoProofURL – uploaded proof clip ("" when none was provided).
//	Status        – open, resolved_refund or resolved_payout.
//	CreatedAt     – creation timestamp.
type Dispute struct {
	ID            uint64    `json:"id"`              // disputes.id
	OrderID       uint64    `json:"order_id"`        // disputes.order_id
	Reason        string    `json:"reason"`          // disputes.reason
	VideoProofURL string    `json:"video_proof_url"` // disputes.video_proof_url
	Status        string    `json:"status"`          // disputes.status
	CreatedAt     time.Time `json:"created_at"`      // disputes.created_at
}
