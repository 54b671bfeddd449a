package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proroto/workorder-service/internal/domain"
)

// PreferenceRepository stores per-user notification opt-outs. Absence of a
// row means enabled.
type PreferenceRepository interface {
	IsEnabled(ctx context.Context, userID string, notificationType domain.NotificationType) (bool, error)
	Upsert(ctx context.Context, pref *domain.NotificationPreference) error
	ListByUser(ctx context.Context, userID string) ([]domain.NotificationPreference, error)
}

type preferenceRepository struct {
	pool *pgxpool.Pool
}

// NewPreferenceRepository builds repository.
func NewPreferenceRepository(pool *pgxpool.Pool) PreferenceRepository {
	return &preferenceRepository{pool: pool}
}

func (r *preferenceRepository) IsEnabled(ctx context.Context, userID string, notificationType domain.NotificationType) (bool, error) {
	const query = `SELECT enabled FROM notification_preferences WHERE user_id=$1 AND notification_type=$2`
	var enabled bool
	err := r.pool.QueryRow(ctx, query, userID, notificationType).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return enabled, nil
}

func (r *preferenceRepository) Upsert(ctx context.Context, pref *domain.NotificationPreference) error {
	const query = `
        INSERT INTO notification_preferences (user_id, notification_type, enabled, updated_at)
        VALUES ($1,$2,$3,NOW())
        ON CONFLICT (user_id, notification_type)
        DO UPDATE SET enabled=EXCLUDED.enabled, updated_at=NOW()
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query, pref.UserID, pref.Type, pref.Enabled).Scan(&pref.UpdatedAt)
}

func (r *preferenceRepository) ListByUser(ctx context.Context, userID string) ([]domain.NotificationPreference, error) {
	const query = `
        SELECT user_id, notification_type, enabled, updated_at
        FROM notification_preferences WHERE user_id=$1 ORDER BY notification_type`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.NotificationPreference
	for rows.Next() {
		var pref domain.NotificationPreference
		if err := rows.Scan(&pref.UserID, &pref.Type, &pref.Enabled, &pref.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, pref)
	}
	return result, rows.Err()
}
