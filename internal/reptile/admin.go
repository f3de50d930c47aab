package reptile

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyCredentials is returned when a username or password is blank.
var ErrEmptyCredentials = errors.New("username and password are required")

// AdminUser is the administrative account allowed to modify the catalog.
// Only the bcrypt hash of the password is kept.
type AdminUser struct {
	ID           int64
	Username     string
	PasswordHash string
}

// NewAdminUser hashes password for a new account.
func NewAdminUser(username, password string) (AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return AdminUser{}, ErrEmptyCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AdminUser{}, fmt.Errorf("hash password: %w", err)
	}

	return AdminUser{Username: username, PasswordHash: string(hash)}, nil
}

// CheckPassword reports whether password matches the stored hash.
func (u AdminUser) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
