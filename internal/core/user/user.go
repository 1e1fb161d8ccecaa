// Package user defines the User record, its validation rules and the fixed
// set of preferences a user can hold.
package user

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyUsername     = errors.New("username is required")
	ErrInvalidEmail      = errors.New("email is invalid")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrInvalidPreference = errors.New("invalid preference value")
	ErrMissingID         = errors.New("user id is required")
	ErrInvalidRole       = errors.New("invalid role")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is an account. Users are never hard deleted; IsActive changes only
// through Activate and Deactivate.
type User struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	FullName    string      `json:"fullName"`
	Role        Role        `json:"role"`
	IsActive    bool        `json:"isActive"`
	CreatedAt   time.Time   `json:"createdAt"`
	LastLoginAt *time.Time  `json:"lastLoginAt"`
	Preferences Preferences `json:"preferences"`
}

// CreateParams holds the caller-supplied fields of a new user.
type CreateParams struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// NewID returns a fresh user id.
func NewID() string {
	return "user_" + uuid.Must(uuid.NewV7()).String()
}

// New builds a validated, active user with default preferences.
func New(p CreateParams, id string, now time.Time) (User, error) {
	username, err := NormalizeUsername(p.Username)
	if err != nil {
		return User{}, err
	}
	email, err := NormalizeEmail(p.Email)
	if err != nil {
		return User{}, err
	}

	return User{
		ID:          id,
		Username:    username,
		Email:       email,
		FullName:    strings.TrimSpace(p.FullName),
		Role:        RoleUser,
		IsActive:    true,
		CreatedAt:   now.UTC(),
		Preferences: DefaultPreferences(),
	}, nil
}

// NormalizeUsername trims and lowercases a username.
func NormalizeUsername(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", ErrEmptyUsername
	}
	return s, nil
}

// NormalizeEmail trims and lowercases an email and checks its shape.
func NormalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !emailPattern.MatchString(s) {
		return "", ErrInvalidEmail
	}
	return s, nil
}

// ParseRole returns the named role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAdmin:
		return r, nil
	}
	return "", ErrInvalidRole
}

// EntityID implements entity.Entity.
func (u User) EntityID() string { return u.ID }

// Clone returns a deep copy.
func (u User) Clone() User {
	if u.LastLoginAt != nil {
		l := *u.LastLoginAt
		u.LastLoginAt = &l
	}
	return u
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UpdateProfile changes the full name and email. Empty values leave the
// field unchanged.
func (u *User) UpdateProfile(fullName, email string) error {
	if strings.TrimSpace(email) != "" {
		e, err := NormalizeEmail(email)
		if err != nil {
			return err
		}
		u.Email = e
	}
	if name := strings.TrimSpace(fullName); name != "" {
		u.FullName = name
	}
	return nil
}

func (u *User) RecordLogin(now time.Time) {
	t := now.UTC()
	u.LastLoginAt = &t
}

func (u *User) Activate()   { u.IsActive = true }
func (u *User) Deactivate() { u.IsActive = false }
