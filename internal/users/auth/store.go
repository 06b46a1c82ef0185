// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
)

// ErrUserNotFound is returned by repositories when no account matches.
var ErrUserNotFound = apperr.NotFound("User")

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Implementations return [ErrUserNotFound] for missing accounts and an
// [apperr.CodeConflict] error when a username is already taken.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: ErrUserNotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByUsername returns the account with the given normalized username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: ErrUserNotFound or storage failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Conflict on duplicate username or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		Update persists the mutable fields (active flag, lockout state, last login).

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: ErrUserNotFound or persistence failures
	*/
	Update(context context.Context, user *User) error

	/*
		Exists reports whether the username is taken.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - bool: true when an account with this username exists
		  - error: Storage failures
	*/
	Exists(context context.Context, username string) (bool, error)

	/*
		Count returns the number of stored accounts.

		Parameters:
		  - context: context.Context

		Returns:
		  - int: Number of accounts
		  - error: Storage failures
	*/
	Count(context context.Context) (int, error)
}
