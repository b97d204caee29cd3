package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "unionhub/pkg/domain-errors"
)

const MinPasswordLength = 12

// Admin is an organiser account for the admin API.
type Admin struct {
	ID              uuid.UUID  `json:"id"`
	Username        string     `json:"username"`
	PasswordHash    string     `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP     string     `json:"last_login_ip,omitempty"`
	LastLoginDevice string     `json:"last_login_device,omitempty"`
}

// NormalizeUsername trims and lowercases so logins are case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if NormalizeUsername(r.Username) == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	return nil
}

type LoginResult struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}

type CreateAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r CreateAdminRequest) Validate() error {
	username := NormalizeUsername(r.Username)
	if username == "" {
		return dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if strings.ContainsAny(username, " \t\n") {
		return dErrors.New(dErrors.CodeValidation, "username must not contain whitespace")
	}
	if len(r.Password) < MinPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 12 characters")
	}
	return nil
}
