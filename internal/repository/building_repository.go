package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proroto/workorder-service/internal/domain"
)

// BuildingRepository resolves buildings and their spaces. Building and
// company CRUD lives elsewhere; the workflow only needs lookups.
type BuildingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Building, error)
	GetSpace(ctx context.Context, id string) (*domain.Space, error)
}

type buildingRepository struct {
	pool *pgxpool.Pool
}

// NewBuildingRepository builds repository.
func NewBuildingRepository(pool *pgxpool.Pool) BuildingRepository {
	return &buildingRepository{pool: pool}
}

func (r *buildingRepository) GetByID(ctx context.Context, id string) (*domain.Building, error) {
	const query = `SELECT id, company_id, name, address, created_at, updated_at FROM buildings WHERE id=$1`
	var building domain.Building
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&building.ID,
		&building.CompanyID,
		&building.Name,
		&building.Address,
		&building.CreatedAt,
		&building.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &building, nil
}

func (r *buildingRepository) GetSpace(ctx context.Context, id string) (*domain.Space, error) {
	const query = `SELECT id, building_id, label, floor, created_at FROM spaces WHERE id=$1`
	var space domain.Space
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&space.ID,
		&space.BuildingID,
		&space.Label,
		&space.Floor,
		&space.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &space, nil
}
