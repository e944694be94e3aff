package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role distinguishes what a visitor may do on the enrollment page.
type Role string

const (
	RoleAnonymous Role = "ANONYMOUS"
	RoleStudent   Role = "STUDENT"
	RoleAdmin     Role = "ADMIN"
)

// Identity is the authenticated visitor handed to business logic.
type Identity struct {
	UserID int64 `json:"user_id,omitempty"`
	Role   Role  `json:"role"`
}

// Anonymous returns the identity of a visitor who has not signed in.
func Anonymous() Identity {
	return Identity{Role: RoleAnonymous}
}

// Authenticated reports whether the identity belongs to a student or admin.
func (i Identity) Authenticated() bool {
	return i.UserID != 0 && (i.Role == RoleStudent || i.Role == RoleAdmin)
}

// IsAdmin reports whether the identity belongs to an admin.
func (i Identity) IsAdmin() bool {
	return i.Authenticated() && i.Role == RoleAdmin
}

// IsStudent reports whether the identity belongs to a student.
func (i Identity) IsStudent() bool {
	return i.Authenticated() && i.Role == RoleStudent
}

// Session is the per-browser state carried in the session cookie.
type Session struct {
	ID        string
	Identity  Identity
	ExpiresAt time.Time
}

// SessionClaims is the signed payload of the session cookie.
type SessionClaims struct {
	SessionID string `json:"sid"`
	UserID    int64  `json:"uid,omitempty"`
	Role      Role   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// FlashCategory classifies a flash message.
type FlashCategory string

const (
	FlashSuccess FlashCategory = "success"
	FlashError   FlashCategory = "error"
)

// Flash is a one-shot status message shown on the next rendered page.
type Flash struct {
	Category FlashCategory `json:"category"`
	Message  string        `json:"message"`
}
