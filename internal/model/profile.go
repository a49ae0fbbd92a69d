package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether r is one of the assignable roles.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAdmin
}

// Profile is the account row: identity plus the contact details shown in
// the directory.  PasswordHash never leaves the server.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	Department   string    `json:"department"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DefaultProfile is returned for authenticated users who never saved one.
func DefaultProfile(id string) Profile {
	return Profile{ID: id, Role: RoleUser}
}
