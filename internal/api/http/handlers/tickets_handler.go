package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/proroto/workorder-service/internal/api/dto"
	"github.com/proroto/workorder-service/internal/auth"
	"github.com/proroto/workorder-service/internal/domain"
	"github.com/proroto/workorder-service/internal/repository"
	"github.com/proroto/workorder-service/internal/service"
	apperrors "github.com/proroto/workorder-service/pkg/util"
)

// TicketsHandler manages work-order endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		BuildingID:         req.BuildingID,
		SpaceID:            req.SpaceID,
		IssueType:          req.IssueType,
		Description:        req.Description,
		AccessInstructions: req.AccessInstructions,
		Severity:           req.Severity,
		Schedule:           parseSchedule(req.Schedule),
	}
	ticket, escalated, err := h.service.CreateTicket(c.Context(), principal.User, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CreateTicketResponse{
		Ticket:            ticketResponse(ticket),
		SeverityEscalated: escalated,
	}})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ExpectedStatus == "" {
		return apperrors.NewValidationError("expected_status required", nil)
	}

	mutation := service.TicketMutation{
		Status:           req.Status,
		TechnicianID:     req.TechnicianID,
		ScheduledDate:    req.ScheduledDate,
		ScheduledWindow:  req.ScheduledWindow,
		QuoteAmountCents: req.QuoteAmountCents,
		InvoiceNumber:    req.InvoiceNumber,
		DeclineReason:    req.DeclineReason,
		Note:             req.Note,
	}
	ticket, err := h.service.UpdateTicket(c.Context(), principal.User, c.Params("id"), req.ExpectedStatus, mutation)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.GetTicket(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.ListTickets(c.Context(), principal.User, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// StatusLog GET /tickets/:id/status-log.
func (h *TicketsHandler) StatusLog(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	entries, err := h.service.StatusLog(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.StatusLogEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.StatusLogEntryResponse{
			ID:        entry.ID,
			OldStatus: entry.OldStatus,
			NewStatus: entry.NewStatus,
			ActorID:   entry.ActorID,
			Note:      entry.Note,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Transitions GET /tickets/:id/transitions.
func (h *TicketsHandler) Transitions(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	targets, err := h.service.AllowedTransitions(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"allowed": targets}})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.Context(), principal.User, c.Params("id"), req.Body, req.Internal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	comments, err := h.service.Comments(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseSchedule(req *dto.SchedulePreferenceRequest) domain.SchedulePreference {
	if req == nil || req.Mode == "" || strings.EqualFold(req.Mode, "asap") {
		return domain.SchedulePreference{ASAP: true}
	}
	return domain.SchedulePreference{
		Date:   req.Date,
		Window: req.Window,
	}
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if severityStr := c.Query("severity"); severityStr != "" {
		for _, part := range strings.Split(severityStr, ",") {
			filter.Severities = append(filter.Severities, domain.TicketSeverity(strings.TrimSpace(part)))
		}
	}
	if buildingID := c.Query("building_id"); buildingID != "" {
		filter.BuildingID = &buildingID
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                 ticket.ID,
		Number:             ticket.Number,
		BuildingID:         ticket.BuildingID,
		SpaceID:            ticket.SpaceID,
		CreatedByID:        ticket.CreatedByID,
		IssueType:          ticket.IssueType,
		Severity:           ticket.Severity,
		Status:             ticket.Status,
		Description:        ticket.Description,
		AccessInstructions: ticket.AccessInstructions,
		TechnicianID:       ticket.TechnicianID,
		ScheduledDate:      ticket.ScheduledDate,
		ScheduledWindow:    ticket.ScheduledWindow,
		QuoteAmountCents:   ticket.QuoteAmountCents,
		InvoiceNumber:      ticket.InvoiceNumber,
		DeclineReason:      ticket.DeclineReason,
		CreatedAt:          ticket.CreatedAt,
		UpdatedAt:          ticket.UpdatedAt,
		CompletedAt:        ticket.CompletedAt,
	}
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        comment.ID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		Internal:  comment.Internal,
		CreatedAt: comment.CreatedAt,
	}
}
