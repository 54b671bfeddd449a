package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/proroto/workorder-service/internal/domain"
	"github.com/proroto/workorder-service/internal/events"
	"github.com/proroto/workorder-service/internal/repository"
	apperrors "github.com/proroto/workorder-service/pkg/util"
)

type fakeTicketRepo struct {
	mu           sync.Mutex
	tickets      map[string]*domain.Ticket
	log          map[string][]domain.StatusLogEntry
	nextNumber   int64
	lastGuard    domain.TicketStatus
	guardSet     bool
	beforeMutate func()
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets:    make(map[string]*domain.Ticket),
		log:        make(map[string][]domain.StatusLogEntry),
		nextNumber: 1000,
	}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket, entry *domain.StatusLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = fmt.Sprintf("t-%d", r.nextNumber)
	ticket.Number = r.nextNumber
	r.nextNumber++
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	if entry != nil {
		entry.TicketID = ticket.ID
		r.log[ticket.ID] = append(r.log[ticket.ID], *entry)
	}
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.tickets {
		if stored.Number == number {
			out := *stored
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, stored := range r.tickets {
		if filter.CreatedByID != nil && stored.CreatedByID != *filter.CreatedByID {
			continue
		}
		out = append(out, *stored)
	}
	return out, nil
}

func (r *fakeTicketRepo) Mutate(_ context.Context, ticket *domain.Ticket, expected domain.TicketStatus, entry *domain.StatusLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.beforeMutate != nil {
		hook := r.beforeMutate
		r.beforeMutate = nil
		hook()
	}
	r.lastGuard = expected
	r.guardSet = true
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Status != expected {
		return repository.ErrStatusConflict
	}
	updated := *ticket
	r.tickets[ticket.ID] = &updated
	if entry != nil {
		entry.TicketID = ticket.ID
		r.log[ticket.ID] = append(r.log[ticket.ID], *entry)
	}
	return nil
}

func (r *fakeTicketRepo) setStatus(id string, status domain.TicketStatus) {
	if stored, ok := r.tickets[id]; ok {
		stored.Status = status
	}
}

func (r *fakeTicketRepo) entries(id string) []domain.StatusLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.StatusLogEntry{}, r.log[id]...)
}

type fakeStatusLogRepo struct {
	tickets *fakeTicketRepo
}

func (r *fakeStatusLogRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.StatusLogEntry, error) {
	return r.tickets.entries(ticketID), nil
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments []domain.Comment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = fmt.Sprintf("c-%d", len(r.comments)+1)
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Comment
	for _, comment := range r.comments {
		if comment.TicketID != ticketID {
			continue
		}
		if comment.Internal && !includeInternal {
			continue
		}
		out = append(out, comment)
	}
	return out, nil
}

type fakeBuildingRepo struct {
	buildings map[string]*domain.Building
	spaces    map[string]*domain.Space
}

func (r *fakeBuildingRepo) GetByID(_ context.Context, id string) (*domain.Building, error) {
	building, ok := r.buildings[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *building
	return &out, nil
}

func (r *fakeBuildingRepo) GetSpace(_ context.Context, id string) (*domain.Space, error) {
	space, ok := r.spaces[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *space
	return &out, nil
}

type recordingDispatcher struct {
	mu       sync.Mutex
	events   []events.Event
	handlers map[events.EventType][]events.EventHandler
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{handlers: make(map[events.EventType][]events.EventHandler)}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.events = append(d.events, event)
	handlers := append([]events.EventHandler{}, d.handlers[event.Type]...)
	d.mu.Unlock()
	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *recordingDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event{}, d.events...)
}

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func contractorUser() *domain.User {
	return &domain.User{ID: "u-contractor", Role: domain.RoleContractorAdmin}
}

func pmAdminUser() *domain.User {
	return &domain.User{ID: "u-pm", Role: domain.RolePMAdmin, CompanyID: strPtr("co-1")}
}

func residentUser() *domain.User {
	return &domain.User{ID: "u-res", Role: domain.RoleResident, BuildingID: strPtr("b-1")}
}

func newTestService() (*TicketService, *fakeTicketRepo, *recordingDispatcher) {
	tickets := newFakeTicketRepo()
	dispatcher := newRecordingDispatcher()
	buildings := &fakeBuildingRepo{
		buildings: map[string]*domain.Building{
			"b-1": {ID: "b-1", CompanyID: "co-1", Name: "Riverside Tower"},
			"b-2": {ID: "b-2", CompanyID: "co-2", Name: "Elm Court"},
		},
		spaces: map[string]*domain.Space{
			"s-1": {ID: "s-1", BuildingID: "b-1", Label: "4B"},
			"s-2": {ID: "s-2", BuildingID: "b-2", Label: "1A"},
		},
	}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:    tickets,
		StatusLogRepo: &fakeStatusLogRepo{tickets: tickets},
		CommentRepo:   &fakeCommentRepo{},
		BuildingRepo:  buildings,
		Dispatcher:    dispatcher,
	})
	return svc, tickets, dispatcher
}

func mustCreate(t *testing.T, svc *TicketService, actor *domain.User, input TicketCreateInput) *domain.Ticket {
	t.Helper()
	ticket, _, err := svc.CreateTicket(context.Background(), actor, input)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	return ticket
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	return domainErr.Code
}

func baseInput() TicketCreateInput {
	return TicketCreateInput{
		BuildingID:  "b-1",
		SpaceID:     "s-1",
		IssueType:   domain.IssueFixtureRepair,
		Description: "loose faucet handle",
	}
}

func TestCreateTicketStartsInNew(t *testing.T) {
	svc, tickets, dispatcher := newTestService()
	actor := residentUser()

	ticket := mustCreate(t, svc, actor, baseInput())

	if ticket.Status != domain.TicketStatusNew {
		t.Errorf("status = %s, want new", ticket.Status)
	}
	if ticket.Number != 1000 {
		t.Errorf("number = %d, want 1000", ticket.Number)
	}
	if ticket.Severity != domain.SeverityStandard {
		t.Errorf("severity = %s, want standard", ticket.Severity)
	}

	entries := tickets.entries(ticket.ID)
	if len(entries) != 1 {
		t.Fatalf("status log has %d entries, want 1", len(entries))
	}
	if entries[0].OldStatus != nil {
		t.Errorf("creation entry old status = %v, want nil", *entries[0].OldStatus)
	}
	if entries[0].NewStatus != domain.TicketStatusNew {
		t.Errorf("creation entry new status = %s, want new", entries[0].NewStatus)
	}
	if entries[0].ActorID == nil || *entries[0].ActorID != actor.ID {
		t.Errorf("creation entry actor = %v, want %s", entries[0].ActorID, actor.ID)
	}

	published := dispatcher.published()
	if len(published) != 1 || published[0].Type != events.EventTicketCreated {
		t.Fatalf("published = %v, want one ticket_created event", published)
	}
}

func TestCreateTicketSeverityEscalation(t *testing.T) {
	cases := []struct {
		name          string
		input         TicketCreateInput
		wantSeverity  domain.TicketSeverity
		wantEscalated bool
	}{
		{
			name: "keyword escalates standard issue",
			input: TicketCreateInput{
				BuildingID: "b-1", SpaceID: "s-1",
				IssueType:   domain.IssueDrainClog,
				Description: "kitchen sink backing up with sewage",
			},
			wantSeverity:  domain.SeverityEmergency,
			wantEscalated: true,
		},
		{
			name: "issue type default without keywords",
			input: TicketCreateInput{
				BuildingID: "b-1", SpaceID: "s-1",
				IssueType:   domain.IssueWaterHeater,
				Description: "no hot water since this morning",
			},
			wantSeverity:  domain.SeverityUrgent,
			wantEscalated: false,
		},
		{
			name: "caller severity is advisory",
			input: TicketCreateInput{
				BuildingID: "b-1", SpaceID: "s-1",
				IssueType:   domain.IssueFixtureRepair,
				Description: "replace shower head",
				Severity:    domain.SeverityUrgent,
			},
			wantSeverity:  domain.SeverityUrgent,
			wantEscalated: false,
		},
		{
			name: "keyword on already-emergency issue type",
			input: TicketCreateInput{
				BuildingID: "b-1", SpaceID: "s-1",
				IssueType:   domain.IssueActiveLeak,
				Description: "water leak under the unit 4B sink",
			},
			wantSeverity:  domain.SeverityEmergency,
			wantEscalated: false,
		},
		{
			name: "caller cannot override escalation",
			input: TicketCreateInput{
				BuildingID: "b-1", SpaceID: "s-1",
				IssueType:   domain.IssueFixtureRepair,
				Description: "supply line burst behind the toilet",
				Severity:    domain.SeverityStandard,
			},
			wantSeverity:  domain.SeverityEmergency,
			wantEscalated: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _ := newTestService()
			ticket, escalated, err := svc.CreateTicket(context.Background(), residentUser(), tc.input)
			if err != nil {
				t.Fatalf("CreateTicket: %v", err)
			}
			if ticket.Severity != tc.wantSeverity {
				t.Errorf("severity = %s, want %s", ticket.Severity, tc.wantSeverity)
			}
			if escalated != tc.wantEscalated {
				t.Errorf("escalated = %v, want %v", escalated, tc.wantEscalated)
			}
		})
	}
}

func TestCreateTicketValidation(t *testing.T) {
	svc, _, _ := newTestService()

	cases := []struct {
		name     string
		mutate   func(*TicketCreateInput)
		wantCode string
	}{
		{"missing description", func(in *TicketCreateInput) { in.Description = "  " }, "VALIDATION_FAILED"},
		{"missing building", func(in *TicketCreateInput) { in.BuildingID = "" }, "VALIDATION_FAILED"},
		{"unknown building", func(in *TicketCreateInput) { in.BuildingID = "b-404" }, "NOT_FOUND"},
		{"unknown space", func(in *TicketCreateInput) { in.SpaceID = "s-404" }, "NOT_FOUND"},
		{"space in other building", func(in *TicketCreateInput) { in.SpaceID = "s-2" }, "VALIDATION_FAILED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := baseInput()
			tc.mutate(&input)
			_, _, err := svc.CreateTicket(context.Background(), residentUser(), input)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := domainCode(t, err); code != tc.wantCode {
				t.Errorf("code = %s, want %s", code, tc.wantCode)
			}
		})
	}
}

func TestUpdateTicketTransition(t *testing.T) {
	svc, tickets, dispatcher := newTestService()
	ticket := mustCreate(t, svc, residentUser(), baseInput())

	updated, err := svc.UpdateTicket(context.Background(), contractorUser(), ticket.ID, domain.TicketStatusNew, TicketMutation{
		Status: statusPtr(domain.TicketStatusScheduled),
		Note:   "tech booked for tomorrow",
	})
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}
	if updated.Status != domain.TicketStatusScheduled {
		t.Errorf("status = %s, want scheduled", updated.Status)
	}

	entries := tickets.entries(ticket.ID)
	if len(entries) != 2 {
		t.Fatalf("status log has %d entries, want 2", len(entries))
	}
	last := entries[1]
	if last.OldStatus == nil || *last.OldStatus != domain.TicketStatusNew {
		t.Errorf("old status = %v, want new", last.OldStatus)
	}
	if last.NewStatus != domain.TicketStatusScheduled {
		t.Errorf("new status = %s, want scheduled", last.NewStatus)
	}
	if last.Note != "tech booked for tomorrow" {
		t.Errorf("note = %q", last.Note)
	}

	published := dispatcher.published()
	lastEvent := published[len(published)-1]
	if lastEvent.Type != events.EventStatusChanged {
		t.Fatalf("last event = %s, want status_changed", lastEvent.Type)
	}
	payload, ok := lastEvent.Payload.(events.StatusChangedPayload)
	if !ok {
		t.Fatalf("payload type %T", lastEvent.Payload)
	}
	if payload.OldStatus != domain.TicketStatusNew || payload.NewStatus != domain.TicketStatusScheduled {
		t.Errorf("payload = %+v", payload)
	}
}

func TestUpdateTicketStaleExpectedStatus(t *testing.T) {
	svc, _, _ := newTestService()
	ticket := mustCreate(t, svc, residentUser(), baseInput())

	_, err := svc.UpdateTicket(context.Background(), contractorUser(), ticket.ID, domain.TicketStatusScheduled, TicketMutation{
		Status: statusPtr(domain.TicketStatusDispatched),
	})
	if err == nil {
		t.Fatal("expected conflict")
	}
	if !apperrors.IsConflict(err) {
		t.Errorf("IsConflict(%v) = false", err)
	}
}

// Two writers race from the same observed status; the compare-and-set in the
// store must let exactly one through.
func TestUpdateTicketConcurrentWritersOneWinner(t *testing.T) {
	svc, tickets, _ := newTestService()
	ticket := mustCreate(t, svc, residentUser(), baseInput())

	// Flip the persisted status between this writer's read and its write,
	// as a concurrent winner would.
	tickets.beforeMutate = func() {
		tickets.setStatus(ticket.ID, domain.TicketStatusCancelled)
	}

	_, err := svc.UpdateTicket(context.Background(), contractorUser(), ticket.ID, domain.TicketStatusNew, TicketMutation{
		Status: statusPtr(domain.TicketStatusScheduled),
	})
	if err == nil {
		t.Fatal("expected conflict")
	}
	if !apperrors.IsConflict(err) {
		t.Errorf("IsConflict(%v) = false", err)
	}
	// The loser must not have written a status-log entry.
	if entries := tickets.entries(ticket.ID); len(entries) != 1 {
		t.Errorf("status log has %d entries, want 1", len(entries))
	}
}

func TestUpdateTicketForbiddenTransition(t *testing.T) {
	cases := []struct {
		name   string
		actor  *domain.User
		target domain.TicketStatus
	}{
		{"pm cannot schedule", pmAdminUser(), domain.TicketStatusScheduled},
		{"resident cannot move at all", residentUser(), domain.TicketStatusCancelled},
		{"contractor cannot skip ahead", contractorUser(), domain.TicketStatusInvoiced},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, tickets, _ := newTestService()
			ticket := mustCreate(t, svc, residentUser(), baseInput())

			_, err := svc.UpdateTicket(context.Background(), tc.actor, ticket.ID, domain.TicketStatusNew, TicketMutation{
				Status: statusPtr(tc.target),
			})
			if err == nil {
				t.Fatal("expected forbidden transition")
			}
			if code := domainCode(t, err); code != "FORBIDDEN_TRANSITION" {
				t.Errorf("code = %s, want FORBIDDEN_TRANSITION", code)
			}
			if entries := tickets.entries(ticket.ID); len(entries) != 1 {
				t.Errorf("status log has %d entries, want 1", len(entries))
			}
		})
	}
}

func TestUpdateTicketDeclineRequiresReason(t *testing.T) {
	svc, tickets, _ := newTestService()
	ticket := mustCreate(t, svc, residentUser(), baseInput())
	tickets.setStatus(ticket.ID, domain.TicketStatusWaitingApproval)

	pm := pmAdminUser()
	_, err := svc.UpdateTicket(context.Background(), pm, ticket.ID, domain.TicketStatusWaitingApproval, TicketMutation{
		Status: statusPtr(domain.TicketStatusCancelled),
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if code := domainCode(t, err); code != "VALIDATION_FAILED" {
		t.Errorf("code = %s, want VALIDATION_FAILED", code)
	}

	updated, err := svc.UpdateTicket(context.Background(), pm, ticket.ID, domain.TicketStatusWaitingApproval, TicketMutation{
		Status:        statusPtr(domain.TicketStatusCancelled),
		DeclineReason: strPtr("quote over budget"),
	})
	if err != nil {
		t.Fatalf("UpdateTicket with reason: %v", err)
	}
	if updated.DeclineReason == nil || *updated.DeclineReason != "quote over budget" {
		t.Errorf("decline reason = %v", updated.DeclineReason)
	}

	entries := tickets.entries(ticket.ID)
	last := entries[len(entries)-1]
	if last.Note != "quote over budget" {
		t.Errorf("log note = %q, want decline reason", last.Note)
	}
}

func TestUpdateTicketContractorDeclineNeedsNoReason(t *testing.T) {
	svc, tickets, _ := newTestService()
	ticket := mustCreate(t, svc, residentUser(), baseInput())
	tickets.setStatus(ticket.ID, domain.TicketStatusWaitingApproval)

	_, err := svc.UpdateTicket(context.Background(), contractorUser(), ticket.ID, domain.TicketStatusWaitingApproval, TicketMutation{
		Status: statusPtr(domain.TicketStatusCancelled),
	})
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}
}

func TestUpdateTicketFieldOnlySkipsStatusLog(t *testing.T) {
	svc, tickets, dispatcher := newTestService()
	ticket := mustCreate(t, svc, residentUser(), baseInput())

	_, err := svc.UpdateTicket(context.Background(), contractorUser(), ticket.ID, domain.TicketStatusNew, TicketMutation{
		TechnicianID: strPtr("u-tech"),
	})
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}

	// Field-only writes keep the status compare-and-set.
	if !tickets.guardSet || tickets.lastGuard != domain.TicketStatusNew {
		t.Errorf("guard = %v, want new", tickets.lastGuard)
	}
	if entries := tickets.entries(ticket.ID); len(entries) != 1 {
		t.Errorf("status log has %d entries, want 1", len(entries))
	}

	published := dispatcher.published()
	lastEvent := published[len(published)-1]
	if lastEvent.Type != events.EventFieldsChanged {
		t.Fatalf("last event = %s, want fields_changed", lastEvent.Type)
	}
	payload, ok := lastEvent.Payload.(events.FieldsChangedPayload)
	if !ok {
		t.Fatalf("payload type %T", lastEvent.Payload)
	}
	if len(payload.ChangedFields) != 1 || payload.ChangedFields[0] != "technician_id" {
		t.Errorf("changed fields = %v", payload.ChangedFields)
	}
}

// A transition committed by a concurrent writer must not be written back by
// a field-only update that read the ticket before the transition landed.
func TestUpdateTicketFieldOnlyConflictsWithConcurrentTransition(t *testing.T) {
	svc, tickets, _ := newTestService()
	ticket := mustCreate(t, svc, residentUser(), baseInput())

	tickets.beforeMutate = func() {
		tickets.setStatus(ticket.ID, domain.TicketStatusScheduled)
	}

	_, err := svc.UpdateTicket(context.Background(), contractorUser(), ticket.ID, domain.TicketStatusNew, TicketMutation{
		TechnicianID: strPtr("u-tech"),
	})
	if err == nil {
		t.Fatal("expected conflict")
	}
	if !apperrors.IsConflict(err) {
		t.Errorf("IsConflict(%v) = false", err)
	}

	stored, err := tickets.GetByID(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.TicketStatusScheduled {
		t.Errorf("status = %s, the concurrent transition was reverted", stored.Status)
	}
	if stored.TechnicianID != nil {
		t.Errorf("technician = %v, losing write applied fields", stored.TechnicianID)
	}
}

func TestUpdateTicketTerminalStatusImmutable(t *testing.T) {
	for _, terminal := range []domain.TicketStatus{domain.TicketStatusInvoiced, domain.TicketStatusCancelled} {
		t.Run(string(terminal), func(t *testing.T) {
			svc, tickets, _ := newTestService()
			ticket := mustCreate(t, svc, residentUser(), baseInput())
			tickets.setStatus(ticket.ID, terminal)

			_, err := svc.UpdateTicket(context.Background(), contractorUser(), ticket.ID, terminal, TicketMutation{
				InvoiceNumber: strPtr("INV-999"),
			})
			if err == nil {
				t.Fatal("expected terminal ticket to reject mutation")
			}
			if code := domainCode(t, err); code != "VALIDATION_FAILED" {
				t.Errorf("code = %s, want VALIDATION_FAILED", code)
			}

			stored, err := tickets.GetByID(context.Background(), ticket.ID)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if stored.InvoiceNumber != nil {
				t.Errorf("invoice number = %v, terminal ticket was mutated", stored.InvoiceNumber)
			}
		})
	}
}

func TestUpdateTicketCompletedSetsTimestamp(t *testing.T) {
	svc, tickets, _ := newTestService()
	ticket := mustCreate(t, svc, residentUser(), baseInput())
	tickets.setStatus(ticket.ID, domain.TicketStatusInProgress)

	updated, err := svc.UpdateTicket(context.Background(), contractorUser(), ticket.ID, domain.TicketStatusInProgress, TicketMutation{
		Status: statusPtr(domain.TicketStatusCompleted),
	})
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}
	if updated.CompletedAt == nil {
		t.Error("completed_at not set")
	}
}

// Notification handlers run behind the dispatcher; their failures must never
// surface to the writer.
func TestUpdateTicketSurvivesHandlerFailure(t *testing.T) {
	svc, _, dispatcher := newTestService()
	dispatcher.Subscribe(events.EventStatusChanged, func(context.Context, events.Event) error {
		return errors.New("smtp down")
	})
	ticket := mustCreate(t, svc, residentUser(), baseInput())

	_, err := svc.UpdateTicket(context.Background(), contractorUser(), ticket.ID, domain.TicketStatusNew, TicketMutation{
		Status: statusPtr(domain.TicketStatusScheduled),
	})
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}
}

func TestGetTicketAccessScope(t *testing.T) {
	svc, _, _ := newTestService()
	ticket := mustCreate(t, svc, residentUser(), baseInput())

	if _, err := svc.GetTicket(context.Background(), contractorUser(), ticket.ID); err != nil {
		t.Errorf("contractor read: %v", err)
	}
	if _, err := svc.GetTicket(context.Background(), pmAdminUser(), ticket.ID); err != nil {
		t.Errorf("pm in company scope: %v", err)
	}

	otherPM := &domain.User{ID: "u-pm2", Role: domain.RolePMAdmin, CompanyID: strPtr("co-2")}
	if _, err := svc.GetTicket(context.Background(), otherPM, ticket.ID); err == nil {
		t.Error("pm outside company scope got access")
	} else if code := domainCode(t, err); code != "FORBIDDEN" {
		t.Errorf("code = %s, want FORBIDDEN", code)
	}

	otherResident := &domain.User{ID: "u-res2", Role: domain.RoleResident}
	if _, err := svc.GetTicket(context.Background(), otherResident, ticket.ID); err == nil {
		t.Error("other resident got access")
	}

	if _, err := svc.GetTicket(context.Background(), contractorUser(), "t-404"); err == nil {
		t.Error("expected not found")
	} else if code := domainCode(t, err); code != "NOT_FOUND" {
		t.Errorf("code = %s, want NOT_FOUND", code)
	}
}

func TestListTicketsScoping(t *testing.T) {
	svc, _, _ := newTestService()
	resident := residentUser()
	mustCreate(t, svc, resident, baseInput())

	other := &domain.User{ID: "u-res2", Role: domain.RoleResident}
	otherInput := baseInput()
	otherInput.Description = "shower drain clogged again"
	mustCreate(t, svc, other, otherInput)

	all, err := svc.ListTickets(context.Background(), contractorUser(), repository.TicketFilter{})
	if err != nil {
		t.Fatalf("contractor list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("contractor sees %d tickets, want 2", len(all))
	}

	own, err := svc.ListTickets(context.Background(), resident, repository.TicketFilter{})
	if err != nil {
		t.Fatalf("resident list: %v", err)
	}
	if len(own) != 1 || own[0].CreatedByID != resident.ID {
		t.Errorf("resident sees %d tickets, want only their own", len(own))
	}

	noCompany := &domain.User{ID: "u-pm3", Role: domain.RolePMUser}
	if _, err := svc.ListTickets(context.Background(), noCompany, repository.TicketFilter{}); err == nil {
		t.Error("pm without company scope listed tickets")
	}
}

func TestAddCommentInternalVisibility(t *testing.T) {
	svc, _, dispatcher := newTestService()
	resident := residentUser()
	ticket := mustCreate(t, svc, resident, baseInput())

	if _, err := svc.AddComment(context.Background(), resident, ticket.ID, "any update?", true); err == nil {
		t.Error("resident posted internal comment")
	}
	if _, err := svc.AddComment(context.Background(), pmAdminUser(), ticket.ID, "note", true); err == nil {
		t.Error("pm posted internal comment")
	}

	if _, err := svc.AddComment(context.Background(), resident, ticket.ID, "any update?", false); err != nil {
		t.Fatalf("resident comment: %v", err)
	}
	if _, err := svc.AddComment(context.Background(), contractorUser(), ticket.ID, "parts on order, resident unaware", true); err != nil {
		t.Fatalf("contractor internal comment: %v", err)
	}

	visible, err := svc.Comments(context.Background(), resident, ticket.ID)
	if err != nil {
		t.Fatalf("resident comments: %v", err)
	}
	if len(visible) != 1 {
		t.Errorf("resident sees %d comments, want 1", len(visible))
	}

	allComments, err := svc.Comments(context.Background(), contractorUser(), ticket.ID)
	if err != nil {
		t.Fatalf("contractor comments: %v", err)
	}
	if len(allComments) != 2 {
		t.Errorf("contractor sees %d comments, want 2", len(allComments))
	}

	var sawInternalEvent bool
	for _, event := range dispatcher.published() {
		if event.Type != events.EventCommentAdded {
			continue
		}
		payload := event.Payload.(events.CommentAddedPayload)
		if payload.Internal {
			sawInternalEvent = true
		}
	}
	if !sawInternalEvent {
		t.Error("internal comment event not published")
	}
}

func TestAllowedTransitionsReflectsRoleAndStatus(t *testing.T) {
	svc, tickets, _ := newTestService()
	ticket := mustCreate(t, svc, residentUser(), baseInput())
	tickets.setStatus(ticket.ID, domain.TicketStatusWaitingApproval)

	targets, err := svc.AllowedTransitions(context.Background(), pmAdminUser(), ticket.ID)
	if err != nil {
		t.Fatalf("AllowedTransitions: %v", err)
	}
	want := []domain.TicketStatus{domain.TicketStatusScheduled, domain.TicketStatusCancelled}
	if len(targets) != len(want) {
		t.Fatalf("targets = %v, want %v", targets, want)
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Errorf("targets[%d] = %s, want %s", i, targets[i], want[i])
		}
	}

	none, err := svc.AllowedTransitions(context.Background(), residentUser(), ticket.ID)
	if err != nil {
		t.Fatalf("AllowedTransitions resident: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("resident targets = %v, want none", none)
	}
}

func TestStatusLogOrdering(t *testing.T) {
	svc, _, _ := newTestService()
	ticket := mustCreate(t, svc, residentUser(), baseInput())

	contractor := contractorUser()
	steps := []domain.TicketStatus{
		domain.TicketStatusScheduled,
		domain.TicketStatusDispatched,
		domain.TicketStatusOnSite,
	}
	current := domain.TicketStatusNew
	for _, next := range steps {
		if _, err := svc.UpdateTicket(context.Background(), contractor, ticket.ID, current, TicketMutation{
			Status: statusPtr(next),
		}); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
		current = next
	}

	entries, err := svc.StatusLog(context.Background(), contractor, ticket.ID)
	if err != nil {
		t.Fatalf("StatusLog: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("log has %d entries, want 4", len(entries))
	}
	wantNew := []domain.TicketStatus{
		domain.TicketStatusNew,
		domain.TicketStatusScheduled,
		domain.TicketStatusDispatched,
		domain.TicketStatusOnSite,
	}
	for i, entry := range entries {
		if entry.NewStatus != wantNew[i] {
			t.Errorf("entries[%d].NewStatus = %s, want %s", i, entry.NewStatus, wantNew[i])
		}
	}
}

func TestBodyPreviewKeepsRunesIntact(t *testing.T) {
	cases := []struct {
		name string
		body string
		max  int
		want string
	}{
		{"short body untouched", "leaky faucet", 120, "leaky faucet"},
		{"ascii truncation", "aaaaaaaaaa", 8, "aaaaa..."},
		{"cut lands inside a rune", "aaaa日本", 8, "aaaa..."},
		{"tiny max backs off to rune start", "日本語", 3, "日"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := bodyPreview(tc.body, tc.max)
			if got != tc.want {
				t.Errorf("bodyPreview(%q, %d) = %q, want %q", tc.body, tc.max, got, tc.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("bodyPreview(%q, %d) = %q is not valid UTF-8", tc.body, tc.max, got)
			}
		})
	}
}
