package helpers

import (
	"github.com/google/uuid"
	"github.com/joshua-takyi/campus-events/internal/models"
)

type EnhancedClaims struct {
	*CustomClaims
	Role     string `json:"role"`
	UserID   string `json:"id"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Fullname string `json:"fullname,omitempty"`
}

// Helper methods for role checking
func (ec *EnhancedClaims) IsAdmin() bool {
	return ec.Role == models.RoleAdmin
}

func (ec *EnhancedClaims) HasRole(role string) bool {
	return ec.Role == role
}

func (ec *EnhancedClaims) GetSafeRole() string {
	if ec.Role == "" {
		return models.RoleGuest
	}
	return ec.Role
}

// Identity is the caller as the services see it. It is nil when the subject
// is not a valid user id.
func (ec *EnhancedClaims) Identity() *models.Identity {
	id, err := uuid.Parse(ec.UserID)
	if err != nil || id == uuid.Nil {
		return nil
	}
	return &models.Identity{ID: id, Email: ec.Email, Role: ec.GetSafeRole()}
}
