package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/proroto/workorder-service/internal/api/dto"
	"github.com/proroto/workorder-service/internal/auth"
	"github.com/proroto/workorder-service/internal/domain"
	"github.com/proroto/workorder-service/internal/repository"
	"github.com/proroto/workorder-service/internal/service"
	apperrors "github.com/proroto/workorder-service/pkg/util"
)

// NotificationsHandler serves preference, delivery-audit, and invitation
// endpoints.
type NotificationsHandler struct {
	preferences repository.PreferenceRepository
	deliveryLog repository.DeliveryLogRepository
	invitations *service.InvitationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(preferences repository.PreferenceRepository, deliveryLog repository.DeliveryLogRepository, invitations *service.InvitationService) *NotificationsHandler {
	return &NotificationsHandler{preferences: preferences, deliveryLog: deliveryLog, invitations: invitations}
}

// ListPreferences GET /notification-preferences.
func (h *NotificationsHandler) ListPreferences(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	prefs, err := h.preferences.ListByUser(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}
	items := make([]dto.PreferenceResponse, 0, len(prefs))
	for _, pref := range prefs {
		items = append(items, dto.PreferenceResponse{Type: pref.Type, Enabled: pref.Enabled})
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdatePreference PUT /notification-preferences.
func (h *NotificationsHandler) UpdatePreference(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdatePreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Type == "" {
		return apperrors.NewValidationError("type required", nil)
	}
	pref := &domain.NotificationPreference{
		UserID:  principal.User.ID,
		Type:    req.Type,
		Enabled: req.Enabled,
	}
	if err := h.preferences.Upsert(c.Context(), pref); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PreferenceResponse{Type: pref.Type, Enabled: pref.Enabled}})
}

// DeliveryLog GET /admin/delivery-log.
func (h *NotificationsHandler) DeliveryLog(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	entries, err := h.deliveryLog.List(c.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.DeliveryLogResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.DeliveryLogResponse{
			ID:         entry.ID,
			Recipient:  entry.Recipient,
			Type:       entry.Type,
			Subject:    entry.Subject,
			ProviderID: entry.ProviderID,
			Status:     entry.Status,
			TicketID:   entry.TicketID,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateInvitation POST /invitations.
func (h *NotificationsHandler) CreateInvitation(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	invitation, err := h.invitations.Invite(c.Context(), principal.User, req.Email, req.BuildingID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.InvitationResponse{
		ID:        invitation.ID,
		Email:     invitation.Email,
		ExpiresAt: invitation.ExpiresAt,
	}})
}
