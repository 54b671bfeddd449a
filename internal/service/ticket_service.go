package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/proroto/workorder-service/internal/domain"
	"github.com/proroto/workorder-service/internal/events"
	"github.com/proroto/workorder-service/internal/repository"
	"github.com/proroto/workorder-service/internal/workflow"
	apperrors "github.com/proroto/workorder-service/pkg/util"
)

// TicketService coordinates work-order lifecycles. All ticket mutation goes
// through here; status moves are validated against the workflow rule table
// and recorded in the append-only status log.
type TicketService struct {
	tickets    repository.TicketRepository
	statusLog  repository.StatusLogRepository
	comments   repository.CommentRepository
	buildings  repository.BuildingRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	StatusLogRepo repository.StatusLogRepository
	CommentRepo   repository.CommentRepository
	BuildingRepo  repository.BuildingRepository
	Dispatcher    events.Dispatcher
}

// TicketCreateInput describes work-order creation payload.
type TicketCreateInput struct {
	BuildingID         string
	SpaceID            string
	IssueType          domain.IssueType
	Description        string
	AccessInstructions string
	Severity           domain.TicketSeverity
	Schedule           domain.SchedulePreference
}

// TicketMutation lists the fields an update may change. Nil pointers leave
// the current value untouched.
type TicketMutation struct {
	Status           *domain.TicketStatus
	TechnicianID     *string
	ScheduledDate    *time.Time
	ScheduledWindow  *domain.TimeWindow
	QuoteAmountCents *int64
	InvoiceNumber    *string
	DeclineReason    *string
	Note             string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		statusLog:  deps.StatusLogRepo,
		comments:   deps.CommentRepo,
		buildings:  deps.BuildingRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket opens a new work order in status "new", classifies severity,
// and writes the creation status-log entry in the same transaction. The
// returned flag reports whether keyword detection escalated the severity.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, bool, error) {
	if actor == nil {
		return nil, false, apperrors.NewUnauthorized("authenticated user required")
	}
	if input.BuildingID == "" || input.SpaceID == "" || strings.TrimSpace(input.Description) == "" {
		return nil, false, apperrors.NewValidationError("building_id, space_id, description required", nil)
	}

	building, err := s.buildings.GetByID(ctx, input.BuildingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, apperrors.NewNotFound("building", map[string]any{"building_id": input.BuildingID})
		}
		return nil, false, err
	}
	space, err := s.buildings.GetSpace(ctx, input.SpaceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, apperrors.NewNotFound("space", map[string]any{"space_id": input.SpaceID})
		}
		return nil, false, err
	}
	if space.BuildingID != building.ID {
		return nil, false, apperrors.NewValidationError("space not part of building", nil)
	}

	// Caller-supplied severity is advisory: keyword escalation wins.
	severity := workflow.Classify(input.IssueType, input.Description)
	if input.Severity != "" && severity != domain.SeverityEmergency {
		severity = input.Severity
	}
	// Escalated only when keywords raised the severity above the issue-type
	// default, not when the type was already emergency.
	baseline := workflow.Classify(input.IssueType, "")
	escalated := severity == domain.SeverityEmergency && baseline != domain.SeverityEmergency

	ticket := &domain.Ticket{
		BuildingID:         building.ID,
		SpaceID:            space.ID,
		CreatedByID:        actor.ID,
		IssueType:          input.IssueType,
		Severity:           severity,
		Status:             domain.TicketStatusNew,
		Description:        strings.TrimSpace(input.Description),
		AccessInstructions: strings.TrimSpace(input.AccessInstructions),
	}
	if !input.Schedule.ASAP {
		ticket.ScheduledDate = input.Schedule.Date
		ticket.ScheduledWindow = input.Schedule.Window
	}

	actorID := actor.ID
	entry := &domain.StatusLogEntry{
		OldStatus: nil,
		NewStatus: domain.TicketStatusNew,
		ActorID:   &actorID,
		Note:      "created",
	}
	if err := s.tickets.Create(ctx, ticket, entry); err != nil {
		return nil, false, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: &actorID, Role: actor.Role},
		Payload: events.TicketCreatedPayload{
			Number:     ticket.Number,
			BuildingID: ticket.BuildingID,
			IssueType:  ticket.IssueType,
			Severity:   ticket.Severity,
		},
	})
	return ticket, escalated, nil
}

// UpdateTicket applies a validated mutation. The caller supplies the status
// it last observed; a mismatch with the persisted status fails with a
// conflict instead of overwriting. Status moves are checked against the
// rule table for the actor's role, and a PM decline requires a reason.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, ticketID string, expected domain.TicketStatus, mutation TicketMutation) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authenticated user required")
	}

	ticket, err := s.getAccessible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != expected {
		return nil, apperrors.NewConflict("ticket status changed since last read", map[string]any{
			"expected_status": string(expected),
			"current_status":  string(ticket.Status),
		})
	}

	statusChanging := mutation.Status != nil && *mutation.Status != ticket.Status
	oldStatus := ticket.Status

	// Terminal tickets are immutable. Status moves out of a terminal state
	// already fail the rule-table check; this closes the field-only path.
	if !statusChanging && workflow.IsTerminal(ticket.Status) {
		return nil, apperrors.NewValidationError("ticket in terminal status cannot be modified", map[string]any{
			"current_status": string(ticket.Status),
		})
	}

	if statusChanging {
		target := *mutation.Status
		if !workflow.IsAllowed(ticket.Status, target, actor.Role) {
			allowed := workflow.AllowedTargets(ticket.Status, actor.Role)
			names := make([]string, 0, len(allowed))
			for _, status := range allowed {
				names = append(names, string(status))
			}
			return nil, apperrors.NewForbiddenTransition(string(ticket.Status), string(target), names)
		}
		if workflow.RequiresDeclineReason(ticket.Status, target, actor.Role) {
			if mutation.DeclineReason == nil || strings.TrimSpace(*mutation.DeclineReason) == "" {
				return nil, apperrors.NewValidationError("decline reason required", map[string]any{
					"current_status": string(ticket.Status),
					"target_status":  string(target),
				})
			}
		}
		ticket.Status = target
		if target == domain.TicketStatusCompleted {
			now := time.Now()
			ticket.CompletedAt = &now
		}
	}

	applyFieldMutation(ticket, mutation)

	var entry *domain.StatusLogEntry
	if statusChanging {
		actorID := actor.ID
		note := mutation.Note
		if note == "" && mutation.DeclineReason != nil {
			note = *mutation.DeclineReason
		}
		entry = &domain.StatusLogEntry{
			OldStatus: &oldStatus,
			NewStatus: ticket.Status,
			ActorID:   &actorID,
			Note:      note,
		}
	}

	// Every write is a compare-and-set on the observed status. A field-only
	// mutation racing a transition must conflict, not write back the stale
	// status it read.
	if err := s.tickets.Mutate(ctx, ticket, expected, entry); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperrors.NewConflict("ticket status changed since last read", map[string]any{
				"expected_status": string(expected),
			})
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}

	actorID := actor.ID
	if statusChanging {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventStatusChanged,
			TicketID: ticket.ID,
			Actor:    events.Actor{UserID: &actorID, Role: actor.Role},
			Payload: events.StatusChangedPayload{
				OldStatus:        oldStatus,
				NewStatus:        ticket.Status,
				BuildingID:       ticket.BuildingID,
				QuoteAmountCents: ticket.QuoteAmountCents,
				Note:             mutation.Note,
			},
		})
	} else {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventFieldsChanged,
			TicketID: ticket.ID,
			Actor:    events.Actor{UserID: &actorID, Role: actor.Role},
			Payload: events.FieldsChangedPayload{
				BuildingID:    ticket.BuildingID,
				ChangedFields: changedFieldNames(mutation),
			},
		})
	}
	return ticket, nil
}

// GetTicket returns a ticket the actor may see.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.getAccessible(ctx, actor, ticketID)
}

// ListTickets returns tickets scoped to the actor's role.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authenticated user required")
	}
	switch {
	case actor.Role.IsContractor():
		// contractor staff see everything
	case actor.Role.IsPM():
		if actor.CompanyID == nil {
			return nil, apperrors.NewForbidden("no company scope")
		}
		filter.CompanyID = actor.CompanyID
	default:
		createdBy := actor.ID
		filter.CreatedByID = &createdBy
	}
	return s.tickets.ListWithFilter(ctx, filter)
}

// StatusLog returns the ordered status history for a ticket.
func (s *TicketService) StatusLog(ctx context.Context, actor *domain.User, ticketID string) ([]domain.StatusLogEntry, error) {
	if _, err := s.getAccessible(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return s.statusLog.ListByTicket(ctx, ticketID)
}

// AllowedTransitions reports the targets the actor's role may reach from
// the ticket's current status. The presentation layer queries this instead
// of holding its own copy of the rule table.
func (s *TicketService) AllowedTransitions(ctx context.Context, actor *domain.User, ticketID string) ([]domain.TicketStatus, error) {
	ticket, err := s.getAccessible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return workflow.AllowedTargets(ticket.Status, actor.Role), nil
}

// AddComment appends a comment to the ticket thread. Only contractor staff
// may post internal comments.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID, body string, internal bool) (*domain.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}
	if internal && !actor.Role.IsContractor() {
		return nil, apperrors.NewForbidden("internal comments are contractor-only")
	}
	ticket, err := s.getAccessible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: actor.ID,
		Body:     strings.TrimSpace(body),
		Internal: internal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	actorID := actor.ID
	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: &actorID, Role: actor.Role},
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			BuildingID:  ticket.BuildingID,
			Internal:    comment.Internal,
			BodyPreview: bodyPreview(comment.Body, 120),
		},
	})
	return comment, nil
}

// Comments lists the ticket thread, hiding internal comments from non-contractor actors.
func (s *TicketService) Comments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Comment, error) {
	if _, err := s.getAccessible(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return s.comments.ListByTicket(ctx, ticketID, actor.Role.IsContractor())
}

func (s *TicketService) getAccessible(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authenticated user required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if err := s.checkAccess(ctx, actor, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) checkAccess(ctx context.Context, actor *domain.User, ticket *domain.Ticket) error {
	switch {
	case actor.Role.IsContractor():
		return nil
	case actor.Role.IsPM():
		building, err := s.buildings.GetByID(ctx, ticket.BuildingID)
		if err != nil {
			return err
		}
		if actor.CompanyID == nil || building.CompanyID != *actor.CompanyID {
			return apperrors.NewForbidden("ticket outside company scope")
		}
		return nil
	default:
		if ticket.CreatedByID != actor.ID {
			return apperrors.NewForbidden("access denied")
		}
		return nil
	}
}

func applyFieldMutation(ticket *domain.Ticket, mutation TicketMutation) {
	if mutation.TechnicianID != nil {
		ticket.TechnicianID = mutation.TechnicianID
	}
	if mutation.ScheduledDate != nil {
		ticket.ScheduledDate = mutation.ScheduledDate
	}
	if mutation.ScheduledWindow != nil {
		ticket.ScheduledWindow = mutation.ScheduledWindow
	}
	if mutation.QuoteAmountCents != nil {
		ticket.QuoteAmountCents = mutation.QuoteAmountCents
	}
	if mutation.InvoiceNumber != nil {
		ticket.InvoiceNumber = mutation.InvoiceNumber
	}
	if mutation.DeclineReason != nil {
		ticket.DeclineReason = mutation.DeclineReason
	}
}

func changedFieldNames(mutation TicketMutation) []string {
	var fields []string
	if mutation.TechnicianID != nil {
		fields = append(fields, "technician_id")
	}
	if mutation.ScheduledDate != nil {
		fields = append(fields, "scheduled_date")
	}
	if mutation.ScheduledWindow != nil {
		fields = append(fields, "scheduled_window")
	}
	if mutation.QuoteAmountCents != nil {
		fields = append(fields, "quote_amount_cents")
	}
	if mutation.InvoiceNumber != nil {
		fields = append(fields, "invoice_number")
	}
	if mutation.DeclineReason != nil {
		fields = append(fields, "decline_reason")
	}
	return fields
}

// publishEvent emits after the write committed; emission never fails the
// caller.
func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func bodyPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	cut := max
	if max > 3 {
		cut = max - 3
	}
	// Never split a multi-byte rune at the cut point.
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	if max <= 3 {
		return body[:cut]
	}
	return body[:cut] + "..."
}
