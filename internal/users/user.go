package users

import (
	"errors"
	"strings"
	"time"

	"gestor-energia/internal/auth"
)

// Status tracks the lifecycle of an account. New registrations start
// pending and only become usable once an administrator activates them.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// NormalizeStatus validates and normalizes a status string.
func NormalizeStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusPending, StatusActive, StatusInactive:
		return Status(value), true
	default:
		return "", false
	}
}

// User is an account of the platform.
type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"nome"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	Role              auth.Role `json:"role"`
	Status            Status    `json:"status"`
	AccessibleUnitIDs []string  `json:"accessibleUnitIds"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Validate checks user invariants.
func (u User) Validate() error {
	if u.Name == "" {
		return errors.New("user: empty name")
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("user: invalid email")
	}
	if _, ok := auth.NormalizeRole(string(u.Role)); !ok {
		return errors.New("user: invalid role")
	}
	if _, ok := NormalizeStatus(string(u.Status)); !ok {
		return errors.New("user: invalid status")
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
