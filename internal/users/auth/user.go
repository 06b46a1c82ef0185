// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the account identity and session security layer.

It defines the account entity and the logic for registration, password login,
per-account lockout, token sessions with single-use refresh rotation, and logout.

# Architecture

This layer is the "Truth" of the system. Entities defined here carry no storage
or transport concerns and encapsulate all business rules related to identity.
*/
package auth

import (
	"time"
)

// # Domain Entities

// User represents a registered account of the collection API.
//
// # Lockout State
//
// FailedLoginAttempts and LockedUntil are two independent facts: an account may
// carry failures without being locked. LockedUntil is advisory and compared to
// the current time at each check instead of being purged.
type User struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	PasswordHash        string     `json:"-"` // Explicitly omitted from JSON for security.
	IsActive            bool       `json:"is_active"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Clone returns a deep copy so stored records are never aliased by callers.
func (user *User) Clone() *User {
	if user == nil {
		return nil
	}
	copied := *user
	if user.LockedUntil != nil {
		lockedUntil := *user.LockedUntil
		copied.LockedUntil = &lockedUntil
	}
	if user.LastLoginAt != nil {
		lastLoginAt := *user.LastLoginAt
		copied.LastLoginAt = &lastLoginAt
	}
	return &copied
}

// Session is the token pair handed to a client after login or refresh.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername     = "username"
	FieldPassword     = "password"
	FieldRefreshToken = "refresh_token"
	FieldUser         = "user"
	FieldMessage      = "message"
)
