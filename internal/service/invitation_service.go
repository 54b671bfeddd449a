package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/proroto/workorder-service/internal/domain"
	"github.com/proroto/workorder-service/internal/events"
	"github.com/proroto/workorder-service/internal/repository"
	apperrors "github.com/proroto/workorder-service/pkg/util"
)

const invitationTTL = 7 * 24 * time.Hour

// InvitationService lets PM admins invite residents to a building.
type InvitationService struct {
	invitations repository.InvitationRepository
	buildings   repository.BuildingRepository
	dispatcher  events.Dispatcher
}

// NewInvitationService constructs the service.
func NewInvitationService(invitations repository.InvitationRepository, buildings repository.BuildingRepository, dispatcher events.Dispatcher) *InvitationService {
	return &InvitationService{invitations: invitations, buildings: buildings, dispatcher: dispatcher}
}

// Invite creates a pending invitation and emits an invitation event routed
// to the invited address only.
func (s *InvitationService) Invite(ctx context.Context, actor *domain.User, email, buildingID string) (*domain.Invitation, error) {
	if actor == nil || actor.Role != domain.RolePMAdmin {
		return nil, apperrors.NewForbidden("pm admin required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("valid email required", nil)
	}
	building, err := s.buildings.GetByID(ctx, buildingID)
	if err != nil {
		return nil, apperrors.NewNotFound("building", map[string]any{"building_id": buildingID})
	}
	if actor.CompanyID == nil || building.CompanyID != *actor.CompanyID {
		return nil, apperrors.NewForbidden("building outside company scope")
	}

	invitation := &domain.Invitation{
		Email:      email,
		BuildingID: building.ID,
		InvitedBy:  actor.ID,
		Token:      uuid.NewString(),
		ExpiresAt:  time.Now().Add(invitationTTL),
	}
	if err := s.invitations.Create(ctx, invitation); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		actorID := actor.ID
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventInvitationCreated,
			Actor:     events.Actor{UserID: &actorID, Role: actor.Role},
			Timestamp: time.Now(),
			Payload: events.InvitationCreatedPayload{
				Email:      invitation.Email,
				BuildingID: invitation.BuildingID,
			},
		})
	}
	return invitation, nil
}
