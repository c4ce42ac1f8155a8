package models

import "time"

// Role names carried in the "role" token claim.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// Client represents a customer who can book reservations.
type Client struct {
	ID           int64      `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FullName     string     `json:"full_name" db:"full_name"`
	TaxID        *string    `json:"tax_id,omitempty" db:"tax_id"`
	PhoneNumber  *string    `json:"phone_number,omitempty" db:"phone_number"`
	Email        string     `json:"email" db:"email"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Role         string     `json:"role" db:"role"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// ClientSummary is the subset of client data attached to listed reservations.
type ClientSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// ClientFilters defines the available filters for listing clients.
// Search matches username, full name or email, case-insensitively.
type ClientFilters struct {
	Search   *string
	Page     int
	PageSize int
}
