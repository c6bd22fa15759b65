package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
)

const (
	MaxNameLength  = 255
	MaxEmailLength = 255
)

// User is a directory entry created on first successful login.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"isAdmin"`
	IsActive  bool      `json:"isActive"`
	LastLogin time.Time `json:"lastLogin"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminUser is the admin projection of a User; ID equals the User's ID.
type AdminUser struct {
	ID      string    `json:"id"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	AddedBy string    `json:"addedBy"`
	AddedAt time.Time `json:"addedAt"`
}

// AuditAction names an administrative change.
type AuditAction string

const (
	AuditFirstAdmin      AuditAction = "first_admin_bootstrap"
	AuditAdminAdded      AuditAction = "admin_added"
	AuditAdminRemoved    AuditAction = "admin_removed"
	AuditUserDeactivated AuditAction = "user_deactivated"
	AuditUserReactivated AuditAction = "user_reactivated"
)

// AdminAuditLog records one registry mutation.
type AdminAuditLog struct {
	ID           int64       `json:"id"`
	Action       AuditAction `json:"action"`
	ActorEmail   string      `json:"actorEmail"`
	TargetUserID string      `json:"targetUserId"`
	TargetEmail  string      `json:"targetEmail"`
	Details      string      `json:"details,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// LoginResult is what CheckFirstLogin reports back to the caller.
type LoginResult struct {
	User        *User `json:"user"`
	IsFirstUser bool  `json:"isFirstUser"`
	IsAdmin     bool  `json:"isAdmin"`
}

// AdminPanel bundles everything the admin screen needs in one read.
type AdminPanel struct {
	Users       []*User      `json:"users"`
	Admins      []*AdminUser `json:"admins"`
	TotalUsers  int          `json:"totalUsers"`
	ActiveUsers int          `json:"activeUsers"`
	AdminCount  int          `json:"adminCount"`
}

// NormalizeEmail lower-cases and trims an address; emails are unique
// case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks presence, length and format.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return apperrors.ErrEmailRequired
	case len(email) > MaxEmailLength:
		return apperrors.ErrEmailInvalid
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperrors.ErrEmailInvalid
	}
	return nil
}

// NewUser creates an active user for a first login.
func NewUser(email, name string, now time.Time) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.Split(NormalizeEmail(email), "@")[0]
	}
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	return &User{
		ID:        uuid.NewString(),
		Email:     NormalizeEmail(email),
		Name:      name,
		IsActive:  true,
		LastLogin: now.UTC(),
		CreatedAt: now.UTC(),
	}, nil
}

// AdminRecord builds the admin projection of u.
func (u *User) AdminRecord(addedBy string, at time.Time) *AdminUser {
	return &AdminUser{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		AddedBy: addedBy,
		AddedAt: at.UTC(),
	}
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (a *AdminUser) Clone() *AdminUser {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
