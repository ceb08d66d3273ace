package models

// Role values as stored in user_profiles.role.
const (
	RoleLeader = "인도자"
	RoleMember = "팀원"
)

// UserProfile holds the team role of an authenticated user.
type UserProfile struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email,omitempty" db:"email"`
	Role  string `json:"role" db:"role"`
}

// IsLeader reports whether the profile may create setlists.
func (p UserProfile) IsLeader() bool {
	return p.Role == RoleLeader
}
