package model

import "time"

// Role distinguishes duty-roster members from administrative accounts.
// Administrators manage the schedule but never receive point objectives.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

type Member struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
