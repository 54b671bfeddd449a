package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/proroto/workorder-service/internal/workflow"
)

// SyncTransitionGuard replaces the contents of ticket_status_transitions
// with the legal pairs from the workflow rule table. A database trigger
// rejects any ticket update whose (old, new) status pair is missing from
// that table, so the database backstops the rule table without holding a
// second authored copy of it.
func SyncTransitionGuard(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping transition guard sync")
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transition guard sync: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM ticket_status_transitions`); err != nil {
		return fmt.Errorf("clear transition guard: %w", err)
	}

	pairs := workflow.LegalPairs()
	for _, pair := range pairs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ticket_status_transitions (from_status, to_status) VALUES ($1, $2)`,
			pair[0], pair[1],
		); err != nil {
			return fmt.Errorf("seed transition %s -> %s: %w", pair[0], pair[1], err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transition guard sync: %w", err)
	}

	logger.Info("transition guard synced", zap.Int("pairs", len(pairs)))
	return nil
}
