package models

import "fmt"

// Role is the closed set of privilege levels, ordered OWNER > ADMIN > VIEWER.
// OWNER is granted exactly once, at bootstrap registration.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleViewer Role = "VIEWER"
)

// ParseRole validates a client-supplied role string. Unknown values are
// rejected, never defaulted.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleOwner, RoleAdmin, RoleViewer:
		return Role(value), nil
	}
	return "", fmt.Errorf("unknown role: %q", value)
}

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleViewer:
		return true
	}
	return false
}
