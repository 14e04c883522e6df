// Package identity holds the accounts that act on the system: administrators
// who approve orders and reports, and distributors who place and file them.
package identity

import (
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/distrib/backend/internal/domain/shared"
)

// Role is what an account is allowed to do
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleDistributor Role = "DISTRIBUTOR"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleDistributor
}

const bcryptCost = 12

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,49}$`)

// User is an account. A distributor's user ID is the distributor reference
// stored on orders and reports.
type User struct {
	shared.BaseAggregateRoot
	Username     string
	DisplayName  string
	PasswordHash string
	Role         Role
	Active       bool
}

// NewUser creates an active account with a hashed password
func NewUser(username, displayName, password string, role Role) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(username) {
		return nil, shared.NewDomainError("INVALID_USERNAME", "Username must be 3-50 characters of a-z, 0-9, '.', '_' or '-'")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role must be ADMIN or DISTRIBUTOR")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = username
	}

	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          username,
		DisplayName:       strings.TrimSpace(displayName),
		PasswordHash:      hash,
		Role:              role,
		Active:            true,
	}
	return user, nil
}

// VerifyPassword reports whether password matches the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangePassword replaces the password after checking the current one
func (u *User) ChangePassword(current, next string) error {
	if !u.VerifyPassword(current) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.IncrementVersion()
	return nil
}

// Deactivate blocks further logins
func (u *User) Deactivate() {
	u.Active = false
	u.IncrementVersion()
}

// Actor returns the authorization view of the account
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

func hashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return "", shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	return string(hash), nil
}
