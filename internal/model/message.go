package model

import "time"

// Message is a direct message between two users, optionally attached to a
// listing so buyers can ask about a specific device.
//
// Fields:
//
//	ID         – primary key identifier.
//	SenderID   – authoring user.
//	ReceiverID – recipient user.
//	ListingID  – listing context (nullable).
//	Content    – message body.
//	IsRead     – set when the recipient loads the conversation.
//	CreatedAt  – creation timestamp.
type Message struct {
	ID         uint64    `json:"id"`         // messages.id
	SenderID   uint64    `json:"sender_id"`  // messages.sender_id
	ReceiverID uint64    `json:"receiver_id"` // messages.receiver_id
	ListingID  *uint64   `json:"listing_id"` // messages.listing_id (nullable)
	Content    string    `json:"content"`    // messages.content
	IsRead     bool      `json:"is_read"`    // messages.is_read
	CreatedAt  time.Time `json:"created_at"` // messages.created_at
}

// CartItem links a user to a listing they intend to buy.  A listing may be
// carted at most once per user.
type CartItem struct {
	ID        uint64    // cart_items.id
	UserID    uint64    // cart_items.user_id
	ListingID uint64    // cart_items.listing_id
	CreatedAt time.Time // cart_items.created_at
}

// Address is a delivery address owned by a user.  At most one address per
// user carries IsDefault; setting a new default clears the previous one in
// the same transaction.
type Address struct {
	ID          uint64    `json:"id"`           // addresses.id
	UserID      uint64    `json:"user_id"`      // addresses.user_id
	Title       string    `json:"title"`        // addresses.title (e.g. "Home", "Work")
	AddressLine string    `json:"address_line"` // addresses.address_line
	City        string    `json:"city"`         // addresses.city
	ZipCode     *string   `json:"zip_code"`     // addresses.zip_code (nullable)
	IsDefault   bool      `json:"is_default"`   // addresses.is_default
	CreatedAt   time.Time `json:"created_at"`   // addresses.created_at
}
