package dto

import (
	"time"

	"github.com/proroto/workorder-service/internal/domain"
)

// PreferenceResponse is one per-type switch.
type PreferenceResponse struct {
	Type    domain.NotificationType `json:"type"`
	Enabled bool                    `json:"enabled"`
}

// UpdatePreferenceRequest payload.
type UpdatePreferenceRequest struct {
	Type    domain.NotificationType `json:"type"`
	Enabled bool                    `json:"enabled"`
}

// DeliveryLogResponse is one audit row.
type DeliveryLogResponse struct {
	ID         string                  `json:"id"`
	Recipient  string                  `json:"recipient"`
	Type       domain.NotificationType `json:"type"`
	Subject    string                  `json:"subject"`
	ProviderID *string                 `json:"provider_id,omitempty"`
	Status     domain.DeliveryStatus   `json:"status"`
	TicketID   *string                 `json:"ticket_id,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}

// CreateInvitationRequest payload.
type CreateInvitationRequest struct {
	Email      string `json:"email"`
	BuildingID string `json:"building_id"`
}

// InvitationResponse confirms an invitation.
type InvitationResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	UserID    string      `json:"user_id"`
	Role      domain.Role `json:"role"`
}
