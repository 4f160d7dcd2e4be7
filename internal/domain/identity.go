package domain

import "github.com/google/uuid"

// Role is the privilege level of a caller.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Identity is the authenticated caller passed explicitly into every workflow.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccess reports whether the caller owns ownerID's resource or is an admin.
func (i Identity) CanAccess(ownerID string) bool {
	return i.IsAdmin() || (i.UserID != "" && i.UserID == ownerID)
}

// ValidID reports whether id is a well-formed entity identifier.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
