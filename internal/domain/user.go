package domain

import "time"

// Role enumerates the actor roles known to the workflow.
type Role string

const (
	RoleContractorAdmin Role = "contractor_admin"
	RolePMAdmin         Role = "pm_admin"
	RolePMUser          Role = "pm_user"
	RoleResident        Role = "resident"
)

// IsPM reports whether the role belongs to a property-management company.
func (r Role) IsPM() bool {
	return r == RolePMAdmin || r == RolePMUser
}

// IsContractor reports whether the role belongs to the plumbing contractor.
func (r Role) IsContractor() bool {
	return r == RoleContractorAdmin
}

// UserStatus represents account lifecycle states.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User is the domain model for anyone who can log in: contractor staff,
// PM company users, and residents. CompanyID is nil for residents;
// BuildingID is nil for everyone except residents.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	CompanyID    *string
	BuildingID   *string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
