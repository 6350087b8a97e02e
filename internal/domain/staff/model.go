package staff

import (
	"errors"
	"strings"
)

// Role constants
const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// Domain errors
var (
	ErrEmptyName   = errors.New("staff name cannot be empty")
	ErrInvalidRole = errors.New("role must be one of: staff, admin")
)

// Staff is a groomer or shop administrator.
type Staff struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Validate checks if the Staff has valid data.
// PRE: Staff struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Staff) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.Role != RoleStaff && s.Role != RoleAdmin {
		return ErrInvalidRole
	}
	return nil
}

// IsAdmin returns true for administrators.
func (s *Staff) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Schedulable returns the members that get calendar rows and can be assigned appointments.
// Admins are excluded; order is preserved.
func Schedulable(list []Staff) []Staff {
	out := make([]Staff, 0, len(list))
	for _, s := range list {
		if !s.IsAdmin() {
			out = append(out, s)
		}
	}
	return out
}

// NameByID returns the staff member's name, or "" if unknown.
func NameByID(list []Staff, id string) string {
	for _, s := range list {
		if s.ID == id {
			return s.Name
		}
	}
	return ""
}
