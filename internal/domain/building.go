package domain

import "time"

// Company is a property-management company served by the contractor.
type Company struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Building belongs to exactly one PM company.
type Building struct {
	ID        string
	CompanyID string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Space is a unit or common area within a building.
type Space struct {
	ID         string
	BuildingID string
	Label      string
	Floor      *string
	CreatedAt  time.Time
}
