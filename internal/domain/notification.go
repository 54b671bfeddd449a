package domain

import "time"

// NotificationType tags the kind of event a notification describes.
// Preference rows are keyed by this type.
type NotificationType string

const (
	NotifyTicketCreated NotificationType = "ticket_created"
	NotifyStatusChanged NotificationType = "status_changed"
	NotifyQuoteReady    NotificationType = "quote_ready"
	NotifyCommentAdded  NotificationType = "comment_added"
	NotifyInvitation    NotificationType = "invitation"
)

// NotificationPreference is a per-user, per-type opt-out switch. Absence of
// a row means enabled.
type NotificationPreference struct {
	UserID    string
	Type      NotificationType
	Enabled   bool
	UpdatedAt time.Time
}

// DeliveryStatus tracks the outcome of a notification attempt.
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryBounced   DeliveryStatus = "bounced"
	DeliveryFailed    DeliveryStatus = "failed"
)

// DeliveryLogEntry is an append-only audit record of an attempted
// notification. The workflow path never reads these rows.
type DeliveryLogEntry struct {
	ID           string
	Recipient    string
	Type         NotificationType
	Subject      string
	ProviderID   *string
	Status       DeliveryStatus
	TicketID     *string
	ErrorMessage *string
	CreatedAt    time.Time
}

// Invitation is a pending resident signup created by a PM admin.
type Invitation struct {
	ID         string
	Email      string
	BuildingID string
	InvitedBy  string
	Token      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
