package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proroto/workorder-service/internal/domain"
)

// ErrStatusConflict signals that a mutation's expected status no longer
// matches the persisted one.
var ErrStatusConflict = errors.New("ticket status conflict")

// TicketFilter captures listing parameters.
type TicketFilter struct {
	BuildingID  *string
	CompanyID   *string
	CreatedByID *string
	Statuses    []domain.TicketStatus
	Severities  []domain.TicketSeverity
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence. Create and Mutate are
// atomic: the ticket write and its status-log entry commit together or not
// at all.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, entry *domain.StatusLogEntry) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Mutate(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus, entry *domain.StatusLogEntry) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, number, building_id, space_id, created_by_id, issue_type, severity, status,
               description, access_instructions, technician_id, scheduled_date, scheduled_window,
               quote_amount_cents, invoice_number, decline_reason, created_at, updated_at, completed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, entry *domain.StatusLogEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (building_id, space_id, created_by_id, issue_type, severity, status,
                             description, access_instructions, scheduled_date, scheduled_window)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, number, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		ticket.BuildingID,
		ticket.SpaceID,
		ticket.CreatedByID,
		ticket.IssueType,
		ticket.Severity,
		ticket.Status,
		ticket.Description,
		ticket.AccessInstructions,
		ticket.ScheduledDate,
		ticket.ScheduledWindow,
	).Scan(&ticket.ID, &ticket.Number, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	if entry != nil {
		entry.TicketID = ticket.ID
		if err := insertStatusLog(ctx, tx, entry); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Mutate applies field mutations and an optional status change in a single
// transaction. The update is always a compare-and-set on the status the
// caller observed, so a transition committed by a concurrent writer is never
// reverted by a stale in-memory copy; zero rows affected with an existing
// ticket means another writer got there first.
func (r *ticketRepository) Mutate(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus, entry *domain.StatusLogEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE tickets SET status=$1, description=$2, access_instructions=$3, technician_id=$4,
            scheduled_date=$5, scheduled_window=$6, quote_amount_cents=$7, invoice_number=$8,
            decline_reason=$9, completed_at=$10, updated_at=NOW()
        WHERE id=$11 AND status=$12`
	args := []any{
		ticket.Status,
		ticket.Description,
		ticket.AccessInstructions,
		ticket.TechnicianID,
		ticket.ScheduledDate,
		ticket.ScheduledWindow,
		ticket.QuoteAmountCents,
		ticket.InvoiceNumber,
		ticket.DeclineReason,
		ticket.CompletedAt,
		ticket.ID,
		expected,
	}

	cmd, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrStatusConflict
		}
		return pgx.ErrNoRows
	}

	if entry != nil {
		entry.TicketID = ticket.ID
		if err := insertStatusLog(ctx, tx, entry); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func insertStatusLog(ctx context.Context, tx pgx.Tx, entry *domain.StatusLogEntry) error {
	const query = `
        INSERT INTO ticket_status_log (ticket_id, old_status, new_status, actor_id, note)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		entry.TicketID,
		entry.OldStatus,
		entry.NewStatus,
		entry.ActorID,
		entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE number=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.BuildingID != nil {
		args = append(args, *filter.BuildingID)
		clauses = append(clauses, fmt.Sprintf("building_id=$%d", len(args)))
	}
	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		clauses = append(clauses, fmt.Sprintf("building_id IN (SELECT id FROM buildings WHERE company_id=$%d)", len(args)))
	}
	if filter.CreatedByID != nil {
		args = append(args, *filter.CreatedByID)
		clauses = append(clauses, fmt.Sprintf("created_by_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Severities) > 0 {
		placeholders := make([]string, len(filter.Severities))
		for i, severity := range filter.Severities {
			args = append(args, severity)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("severity IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.BuildingID,
		&ticket.SpaceID,
		&ticket.CreatedByID,
		&ticket.IssueType,
		&ticket.Severity,
		&ticket.Status,
		&ticket.Description,
		&ticket.AccessInstructions,
		&ticket.TechnicianID,
		&ticket.ScheduledDate,
		&ticket.ScheduledWindow,
		&ticket.QuoteAmountCents,
		&ticket.InvoiceNumber,
		&ticket.DeclineReason,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CompletedAt,
	)
}
