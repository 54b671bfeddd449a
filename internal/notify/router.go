package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/proroto/workorder-service/internal/domain"
	"github.com/proroto/workorder-service/internal/events"
)

// Recipient is a resolved notification target. UserID is nil for addresses
// that come from the configured contractor lists rather than a user row.
type Recipient struct {
	UserID *string
	Email  string
}

// Message is one resolved notification ready for dispatch.
type Message struct {
	Recipient Recipient
	Type      domain.NotificationType
	Subject   string
	Body      string
	TicketID  *string
}

// DirectoryStore resolves building ownership and company membership.
type DirectoryStore interface {
	GetByID(ctx context.Context, buildingID string) (*domain.Building, error)
	ListCompanyUsers(ctx context.Context, companyID string) ([]domain.User, error)
}

// PreferenceStore answers the per-user opt-out question; absence of a row
// means enabled.
type PreferenceStore interface {
	IsEnabled(ctx context.Context, userID string, notificationType domain.NotificationType) (bool, error)
}

// RouterConfig carries the contractor recipient lists, injected at
// construction so the router is testable with fixed sets.
type RouterConfig struct {
	DispatchList  []string
	EmergencyList []string
}

// Router resolves a domain event into the set of messages to send.
type Router struct {
	cfg         RouterConfig
	directory   DirectoryStore
	preferences PreferenceStore
}

// NewRouter constructs a router.
func NewRouter(cfg RouterConfig, directory DirectoryStore, preferences PreferenceStore) *Router {
	return &Router{cfg: cfg, directory: directory, preferences: preferences}
}

// Resolve maps an event to its recipients per the routing rules, applies
// preference filtering, and de-duplicates so no recipient gets two messages
// for one event.
func (r *Router) Resolve(ctx context.Context, event events.Event) ([]Message, error) {
	var messages []Message
	var err error

	switch event.Type {
	case events.EventTicketCreated:
		messages, err = r.resolveTicketCreated(event)
	case events.EventStatusChanged:
		messages, err = r.resolveStatusChanged(ctx, event)
	case events.EventCommentAdded:
		messages, err = r.resolveCommentAdded(ctx, event)
	case events.EventInvitationCreated:
		messages, err = r.resolveInvitation(event)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.filter(ctx, messages)
}

func (r *Router) resolveTicketCreated(event events.Event) ([]Message, error) {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil, fmt.Errorf("unexpected payload for %s", event.Type)
	}

	list := r.cfg.DispatchList
	if payload.Severity == domain.SeverityEmergency && len(r.cfg.EmergencyList) > 0 {
		list = r.cfg.EmergencyList
	}

	subject := fmt.Sprintf("New work order #%d (%s)", payload.Number, payload.Severity)
	body := fmt.Sprintf("Issue type %s reported for building %s.", payload.IssueType, payload.BuildingID)
	return listMessages(list, domain.NotifyTicketCreated, subject, body, event.TicketID), nil
}

func (r *Router) resolveStatusChanged(ctx context.Context, event events.Event) ([]Message, error) {
	payload, ok := event.Payload.(events.StatusChangedPayload)
	if !ok {
		return nil, fmt.Errorf("unexpected payload for %s", event.Type)
	}

	// Quote ready: PM company decides, regardless of who moved the ticket.
	if payload.NewStatus == domain.TicketStatusWaitingApproval {
		subject := "Quote ready for approval"
		body := "A quote is awaiting your approval."
		if payload.QuoteAmountCents != nil {
			body = fmt.Sprintf("A quote of $%.2f is awaiting your approval.", float64(*payload.QuoteAmountCents)/100)
		}
		return r.companyMessages(ctx, payload.BuildingID, domain.NotifyQuoteReady, subject, body, event.TicketID)
	}

	subject := fmt.Sprintf("Work order status: %s", payload.NewStatus)
	body := fmt.Sprintf("Status moved from %s to %s.", payload.OldStatus, payload.NewStatus)
	if event.Actor.Role.IsContractor() {
		return r.companyMessages(ctx, payload.BuildingID, domain.NotifyStatusChanged, subject, body, event.TicketID)
	}
	return listMessages(r.cfg.DispatchList, domain.NotifyStatusChanged, subject, body, event.TicketID), nil
}

func (r *Router) resolveCommentAdded(ctx context.Context, event events.Event) ([]Message, error) {
	payload, ok := event.Payload.(events.CommentAddedPayload)
	if !ok {
		return nil, fmt.Errorf("unexpected payload for %s", event.Type)
	}

	subject := "New comment on work order"
	body := payload.BodyPreview

	// Internal comments stay inside the contractor, no matter who else
	// would otherwise be a recipient.
	if payload.Internal {
		return listMessages(r.cfg.DispatchList, domain.NotifyCommentAdded, subject, body, event.TicketID), nil
	}
	if event.Actor.Role.IsContractor() {
		return r.companyMessages(ctx, payload.BuildingID, domain.NotifyCommentAdded, subject, body, event.TicketID)
	}
	return listMessages(r.cfg.DispatchList, domain.NotifyCommentAdded, subject, body, event.TicketID), nil
}

func (r *Router) resolveInvitation(event events.Event) ([]Message, error) {
	payload, ok := event.Payload.(events.InvitationCreatedPayload)
	if !ok {
		return nil, fmt.Errorf("unexpected payload for %s", event.Type)
	}
	return []Message{{
		Recipient: Recipient{Email: payload.Email},
		Type:      domain.NotifyInvitation,
		Subject:   "You have been invited",
		Body:      "You have been invited to register for your building's work-order portal.",
	}}, nil
}

// companyMessages resolves all active users of the PM company owning the
// building.
func (r *Router) companyMessages(ctx context.Context, buildingID string, notificationType domain.NotificationType, subject, body string, ticketID string) ([]Message, error) {
	building, err := r.directory.GetByID(ctx, buildingID)
	if err != nil {
		return nil, fmt.Errorf("resolve building %s: %w", buildingID, err)
	}
	users, err := r.directory.ListCompanyUsers(ctx, building.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("list company users %s: %w", building.CompanyID, err)
	}

	messages := make([]Message, 0, len(users))
	for i := range users {
		userID := users[i].ID
		messages = append(messages, Message{
			Recipient: Recipient{UserID: &userID, Email: users[i].Email},
			Type:      notificationType,
			Subject:   subject,
			Body:      body,
			TicketID:  optionalID(ticketID),
		})
	}
	return messages, nil
}

// filter drops opted-out recipients and de-duplicates by email.
func (r *Router) filter(ctx context.Context, messages []Message) ([]Message, error) {
	seen := make(map[string]struct{}, len(messages))
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		key := strings.ToLower(msg.Recipient.Email)
		if key == "" {
			continue
		}
		if _, duplicate := seen[key]; duplicate {
			continue
		}
		if msg.Recipient.UserID != nil && r.preferences != nil {
			enabled, err := r.preferences.IsEnabled(ctx, *msg.Recipient.UserID, msg.Type)
			if err != nil {
				return nil, err
			}
			if !enabled {
				continue
			}
		}
		seen[key] = struct{}{}
		out = append(out, msg)
	}
	return out, nil
}

func listMessages(emails []string, notificationType domain.NotificationType, subject, body, ticketID string) []Message {
	messages := make([]Message, 0, len(emails))
	for _, email := range emails {
		messages = append(messages, Message{
			Recipient: Recipient{Email: email},
			Type:      notificationType,
			Subject:   subject,
			Body:      body,
			TicketID:  optionalID(ticketID),
		})
	}
	return messages
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
