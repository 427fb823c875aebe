package model

import "time"

// User represents an authentication user provisioned by an admin.
// Hospital is only set for HOSPITAL users and is the display name stamped
// onto their requests.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Hospital     string     `json:"hospital,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin       = "ADMIN"
	RoleCoordinator = "NSS_COORDINATOR"
	RoleHospital    = "HOSPITAL"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCoordinator, RoleHospital:
		return true
	}
	return false
}
