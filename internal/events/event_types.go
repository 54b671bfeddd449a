package events

import (
	"time"

	"github.com/proroto/workorder-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventStatusChanged     EventType = "ticket_status_changed"
	EventFieldsChanged     EventType = "ticket_fields_changed"
	EventCommentAdded      EventType = "ticket_comment_added"
	EventInvitationCreated EventType = "invitation_created"
)

// Actor encapsulates who triggered an event. A nil UserID means the change
// was system-initiated.
type Actor struct {
	UserID *string     `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted after a committed write.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number     int64                 `json:"number"`
	BuildingID string                `json:"building_id"`
	IssueType  domain.IssueType      `json:"issue_type"`
	Severity   domain.TicketSeverity `json:"severity"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus        domain.TicketStatus `json:"old_status"`
	NewStatus        domain.TicketStatus `json:"new_status"`
	BuildingID       string              `json:"building_id"`
	QuoteAmountCents *int64              `json:"quote_amount_cents,omitempty"`
	Note             string              `json:"note,omitempty"`
}

// FieldsChangedPayload payload for mutations without a status move.
type FieldsChangedPayload struct {
	BuildingID    string   `json:"building_id"`
	ChangedFields []string `json:"changed_fields"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	BuildingID  string `json:"building_id"`
	Internal    bool   `json:"internal"`
	BodyPreview string `json:"body_preview"`
}

// InvitationCreatedPayload payload.
type InvitationCreatedPayload struct {
	Email      string `json:"email"`
	BuildingID string `json:"building_id"`
}
