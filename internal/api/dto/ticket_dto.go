package dto

import (
	"time"

	"github.com/proroto/workorder-service/internal/domain"
)

// SchedulePreferenceRequest is a tagged value: mode "asap" or "window".
type SchedulePreferenceRequest struct {
	Mode   string             `json:"mode"`
	Date   *time.Time         `json:"date,omitempty"`
	Window *domain.TimeWindow `json:"window,omitempty"`
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	BuildingID         string                     `json:"building_id"`
	SpaceID            string                     `json:"space_id"`
	IssueType          domain.IssueType           `json:"issue_type"`
	Description        string                     `json:"description"`
	AccessInstructions string                     `json:"access_instructions"`
	Severity           domain.TicketSeverity      `json:"severity,omitempty"`
	Schedule           *SchedulePreferenceRequest `json:"schedule,omitempty"`
}

// UpdateTicketRequest payload. ExpectedStatus is the concurrency token: the
// status the client last observed.
type UpdateTicketRequest struct {
	ExpectedStatus   domain.TicketStatus  `json:"expected_status"`
	Status           *domain.TicketStatus `json:"status,omitempty"`
	TechnicianID     *string              `json:"technician_id,omitempty"`
	ScheduledDate    *time.Time           `json:"scheduled_date,omitempty"`
	ScheduledWindow  *domain.TimeWindow   `json:"scheduled_window,omitempty"`
	QuoteAmountCents *int64               `json:"quote_amount_cents,omitempty"`
	InvoiceNumber    *string              `json:"invoice_number,omitempty"`
	DeclineReason    *string              `json:"decline_reason,omitempty"`
	Note             string               `json:"note,omitempty"`
}

// TicketResponse is the full work-order view.
type TicketResponse struct {
	ID                 string                `json:"id"`
	Number             int64                 `json:"number"`
	BuildingID         string                `json:"building_id"`
	SpaceID            string                `json:"space_id"`
	CreatedByID        string                `json:"created_by_id"`
	IssueType          domain.IssueType      `json:"issue_type"`
	Severity           domain.TicketSeverity `json:"severity"`
	Status             domain.TicketStatus   `json:"status"`
	Description        string                `json:"description"`
	AccessInstructions string                `json:"access_instructions"`
	TechnicianID       *string               `json:"technician_id,omitempty"`
	ScheduledDate      *time.Time            `json:"scheduled_date,omitempty"`
	ScheduledWindow    *domain.TimeWindow    `json:"scheduled_window,omitempty"`
	QuoteAmountCents   *int64                `json:"quote_amount_cents,omitempty"`
	InvoiceNumber      *string               `json:"invoice_number,omitempty"`
	DeclineReason      *string               `json:"decline_reason,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
}

// CreateTicketResponse wraps the ticket with the escalation flag.
type CreateTicketResponse struct {
	Ticket            TicketResponse `json:"ticket"`
	SeverityEscalated bool           `json:"severity_escalated"`
}

// StatusLogEntryResponse is one status history row.
type StatusLogEntryResponse struct {
	ID        string               `json:"id"`
	OldStatus *domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus  `json:"new_status"`
	ActorID   *string              `json:"actor_id"`
	Note      string               `json:"note,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body     string `json:"body"`
	Internal bool   `json:"internal"`
}

// CommentResponse is one thread entry.
type CommentResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	Internal  bool      `json:"internal"`
	CreatedAt time.Time `json:"created_at"`
}
