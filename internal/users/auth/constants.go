// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// DefaultLockoutThreshold is the number of consecutive failures that locks an account.
	DefaultLockoutThreshold = 10

	// DefaultLockoutDuration is how long a tripped lock rejects logins.
	DefaultLockoutDuration = 5 * time.Minute

	// UsernameMinLength and UsernameMaxLength bound a normalized username (in characters).
	UsernameMinLength = 3
	UsernameMaxLength = 50

	// DefaultBootstrapUsername is the reserved identity seeded on an empty store.
	DefaultBootstrapUsername = "admin"
)

// # Audit Reasons

// Reasons attached to security events. They are server-side only and never
// returned to clients.
const (
	reasonInvalidUsername = "invalid_username"
	reasonUnknownUser     = "unknown_user"
	reasonInactive        = "inactive"
	reasonLocked          = "locked"
	reasonBadPassword     = "bad_password"
	reasonInvalidToken    = "invalid_token"
	reasonAlreadyUsed     = "already_used"
)
