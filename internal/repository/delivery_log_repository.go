package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proroto/workorder-service/internal/domain"
)

// DeliveryLogRepository appends notification audit records. Only the
// dispatcher writes here; the workflow path never reads it.
type DeliveryLogRepository interface {
	Create(ctx context.Context, entry *domain.DeliveryLogEntry) error
	List(ctx context.Context, limit, offset int) ([]domain.DeliveryLogEntry, error)
}

type deliveryLogRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryLogRepository builds repository.
func NewDeliveryLogRepository(pool *pgxpool.Pool) DeliveryLogRepository {
	return &deliveryLogRepository{pool: pool}
}

func (r *deliveryLogRepository) Create(ctx context.Context, entry *domain.DeliveryLogEntry) error {
	const query = `
        INSERT INTO delivery_log (recipient, type, subject, provider_id, status, ticket_id, error_message)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.Recipient,
		entry.Type,
		entry.Subject,
		entry.ProviderID,
		entry.Status,
		entry.TicketID,
		entry.ErrorMessage,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *deliveryLogRepository) List(ctx context.Context, limit, offset int) ([]domain.DeliveryLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, recipient, type, subject, provider_id, status, ticket_id, error_message, created_at
        FROM delivery_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DeliveryLogEntry
	for rows.Next() {
		var entry domain.DeliveryLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Recipient,
			&entry.Type,
			&entry.Subject,
			&entry.ProviderID,
			&entry.Status,
			&entry.TicketID,
			&entry.ErrorMessage,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
