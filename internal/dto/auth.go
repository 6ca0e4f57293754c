package dto

import (
	"time"

	"github.com/nimbuswolf/finance-api/internal/model"
	"github.com/nimbuswolf/finance-api/pkg/validation"
)

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,max=128"`
	FirstName string `json:"firstName" binding:"omitempty,max=100"`
	LastName  string `json:"lastName" binding:"omitempty,max=100"`
	Phone     string `json:"phone" binding:"omitempty,max=32"`
}

// Sanitize strips markup from the free-text fields. The password is left byte-exact.
func (r *RegisterRequest) Sanitize() {
	r.Email = validation.Sanitize(r.Email)
	r.FirstName = validation.Sanitize(r.FirstName)
	r.LastName = validation.Sanitize(r.LastName)
	r.Phone = validation.Sanitize(r.Phone)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (r *LoginRequest) Sanitize() {
	r.Email = validation.Sanitize(r.Email)
}

// UserResponse is the public projection of a user; the password hash is never included.
type UserResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"firstName,omitempty"`
	LastName   string     `json:"lastName,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	IsVerified bool       `json:"isVerified"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// AuthResult is what register and login hand back to the handler. RefreshToken goes
// into the cookie and is not serialized.
type AuthResult struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"-"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type ProfileResponse struct {
	User UserResponse `json:"user"`
}

func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Phone:      u.Phone,
		IsVerified: u.IsVerified,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
	}
}
