// Package queue contains the broker events and the background consumer
// that fans admin broadcasts out to their recipients.
package queue

// Queue names used on the broker.  Both queues are declared durable so
// events survive a broker restart.
const (
	NotificationQueueName = "notification.broadcast"
	EscrowQueueName       = "escrow.released"
)

// NotificationBroadcastEvent asks the consumer to deliver an admin
// broadcast.  The consumer resolves the audience itself so the event stays
// small and the recipient set reflects the users at delivery time.
type NotificationBroadcastEvent struct {
	NotificationID uint64 `json:"notification_id"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Channel        string `json:"channel"`
	Audience       string `json:"audience"`
	RequestedBy    uint64 `json:"requested_by"`
	RequestedAt    string `json:"requested_at"`
}

// EscrowReleasedEvent records that escrow money moved on an order.  Emitted
// for manual releases, refunds and sweeper auto-releases; the consumer logs
// it as the ledger's activity feed.
type EscrowReleasedEvent struct {
	OrderID    uint64 `json:"order_id"`
	ListingID  uint64 `json:"listing_id"`
	SellerID   uint64 `json:"seller_id"`
	BuyerID    uint64 `json:"buyer_id"`
	Amount     int64  `json:"amount"`
	PayoutType string `json:"payout_type"`
	ReleasedAt string `json:"released_at"`
}
