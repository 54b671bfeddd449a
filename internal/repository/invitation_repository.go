package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proroto/workorder-service/internal/domain"
)

// InvitationRepository stores pending resident invitations.
type InvitationRepository interface {
	Create(ctx context.Context, invitation *domain.Invitation) error
	GetByToken(ctx context.Context, token string) (*domain.Invitation, error)
}

type invitationRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationRepository builds repository.
func NewInvitationRepository(pool *pgxpool.Pool) InvitationRepository {
	return &invitationRepository{pool: pool}
}

func (r *invitationRepository) Create(ctx context.Context, invitation *domain.Invitation) error {
	const query = `
        INSERT INTO invitations (email, building_id, invited_by, token, expires_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		invitation.Email,
		invitation.BuildingID,
		invitation.InvitedBy,
		invitation.Token,
		invitation.ExpiresAt,
	).Scan(&invitation.ID, &invitation.CreatedAt)
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	const query = `
        SELECT id, email, building_id, invited_by, token, expires_at, created_at
        FROM invitations WHERE token=$1`
	var invitation domain.Invitation
	if err := r.pool.QueryRow(ctx, query, token).Scan(
		&invitation.ID,
		&invitation.Email,
		&invitation.BuildingID,
		&invitation.InvitedBy,
		&invitation.Token,
		&invitation.ExpiresAt,
		&invitation.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &invitation, nil
}
