package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proroto/workorder-service/internal/domain"
)

// StatusLogRepository reads the append-only status history. Writes happen
// inside ticket transactions; nothing updates or deletes entries.
type StatusLogRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusLogEntry, error)
}

type statusLogRepository struct {
	pool *pgxpool.Pool
}

// NewStatusLogRepository builds repository.
func NewStatusLogRepository(pool *pgxpool.Pool) StatusLogRepository {
	return &statusLogRepository{pool: pool}
}

func (r *statusLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusLogEntry, error) {
	const query = `
        SELECT id, ticket_id, old_status, new_status, actor_id, note, created_at
        FROM ticket_status_log WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusLogEntry
	for rows.Next() {
		var entry domain.StatusLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ActorID,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
