package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
	RoleGuest   = "guest"
)

// Profile is the row in the profiles table that carries a user's role.
type Profile struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Username  string    `db:"username" json:"username"`
	FullName  string    `db:"fullname" json:"fullname"`
	Role      string    `db:"role" json:"role"`
	AvatarURL string    `db:"avatar_url" json:"avatar_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Profile) SafeRole() string {
	if p == nil || p.Role == "" {
		return RoleGuest
	}
	return p.Role
}
