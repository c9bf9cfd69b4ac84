package model

import (
	"encoding/json"
	"time"
)

// Notification channels and audiences.
const (
	ChannelPush = "push"
	ChannelSMS  = "sms"
	ChannelBoth = "both"

	AudienceAll     = "all"
	AudienceBuyers  = "buyers"
	AudienceSellers = "sellers"
)

// Notification lifecycle states.
const (
	NotificationDraft = "draft"
	NotificationSent  = "sent"
)

// SystemNotification is an admin-authored broadcast.  Sending publishes a
// broadcast event to the message queue; the consumer fans out to the
// resolved audience and records per-recipient delivery rows.
//
// Fields:
//
//	ID         – primary key identifier.
//	Title      – headline shown to recipients.
//	Message    – body text.
//	Channel    – push, sms or both.
//	Audience   – all, buyers or sellers.
//	Status     – draft or sent.
//	SentCount  – recipients successfully delivered to.
//	LastSentAt – when delivery last completed (nullable).
//	CreatedBy  – authoring admin.
//	CreatedAt  – creation timestamp.
type SystemNotification struct {
	ID         uint64     `json:"id"`           // system_notifications.id
	Title      string     `json:"title"`        // system_notifications.title
	Message    string     `json:"message"`      // system_notifications.message
	Channel    string     `json:"channel"`      // system_notifications.channel
	Audience   string     `json:"audience"`     // system_notifications.audience
	Status     string     `json:"status"`       // system_notifications.status
	SentCount  int        `json:"sent_count"`   // system_notifications.sent_count
	LastSentAt *time.Time `json:"last_sent_at"` // system_notifications.last_sent_at (nullable)
	CreatedBy  uint64     `json:"created_by"`   // system_notifications.created_by
	CreatedAt  time.Time  `json:"created_at"`   // system_notifications.created_at
}

// Per-recipient delivery outcomes.  A failed SMS is recorded and skipped,
// not retried; partial failure of a broadcast is tolerated.
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// NotificationRecipient records one delivery attempt of a broadcast to one
// user.
type NotificationRecipient struct {
	ID             uint64    `json:"id"`              // system_notification_recipients.id
	NotificationID uint64    `json:"notification_id"` // system_notification_recipients.notification_id
	UserID         uint64    `json:"user_id"`         // system_notification_recipients.user_id
	DeliveryStatus string    `json:"delivery_status"` // system_notification_recipients.delivery_status
	CreatedAt      time.Time `json:"created_at"`      // system_notification_recipients.created_at
}

// AdminAuditLog is an append-only record of a privileged mutation performed
// through the admin panel.  It is written after the data transaction
// commits and is never read back programmatically except for display.
type AdminAuditLog struct {
	ID         uint64          `json:"id"`          // admin_audit_logs.id
	ActorID    uint64          `json:"actor_id"`    // admin_audit_logs.actor_id
	Action     string          `json:"action"`      // admin_audit_logs.action (e.g. "finance.release")
	EntityType string          `json:"entity_type"` // admin_audit_logs.entity_type
	EntityID   *string         `json:"entity_id"`   // admin_audit_logs.entity_id (nullable)
	Metadata   json.RawMessage `json:"metadata"`    // admin_audit_logs.metadata (JSON, nullable)
	CreatedAt  time.Time       `json:"created_at"`  // admin_audit_logs.created_at
}
