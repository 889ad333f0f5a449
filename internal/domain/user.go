package domain

import "time"

// UserRole differentiates workers from technicians.
type UserRole string

const (
	RoleTechnician UserRole = "technician"
	RoleWorker     UserRole = "worker"
)

// User is the authenticated actor behind a request.
type User struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Role UserRole `json:"role"`
}

// IsTechnician reports whether the user may claim, reassign and delete reports.
func (u *User) IsTechnician() bool {
	return u != nil && u.Role == RoleTechnician
}

// Credential is an entry of the fixed login table.
type Credential struct {
	Username     string
	PasswordHash string
	Name         string
	Role         UserRole
}

// Session represents a persisted login.
type Session struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
