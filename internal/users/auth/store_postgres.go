// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
	"github.com/taibuivan/mycollection/internal/platform/database/schema"
	"github.com/taibuivan/mycollection/internal/platform/dberr"
)

// # User Repository

// accountColumns is the shared projection, in [scanUser] order.
var accountColumns = strings.Join(schema.UserAccount.Columns(), ", ")

// PostgresUserRepository implements the UserRepository interface using pgx.
//
// # err Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// scanUser hydrates a [User] from a row selected with accountColumns.
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsActive,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

/*
FindByID retrieves an account by primary key.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *User: Hydrated account entity
  - error: ErrUserNotFound or database errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns, schema.UserAccount.Table, schema.UserAccount.ID)

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}
	return user, nil
}

/*
FindByUsername retrieves an account by its unique normalized username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: ErrUserNotFound or database errors
*/
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns, schema.UserAccount.Table, schema.UserAccount.Username)

	user, err := scanUser(repository.pool.QueryRow(context, query, username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_username_failed: %w", err)
	}
	return user, nil
}

/*
Create persists a new account into the users.account table.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: Conflict on duplicate username, or database errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		schema.UserAccount.Table, accountColumns)

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.IsActive,
		user.FailedLoginAttempts,
		user.LockedUntil,
		user.LastLoginAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict("Username is already taken")
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

/*
Update persists the active flag, lockout state, and last login timestamp.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - error: ErrUserNotFound or database errors
*/
func (repository *PostgresUserRepository) Update(context context.Context, user *User) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6 WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.IsActive,
		schema.UserAccount.FailedLoginAttempts,
		schema.UserAccount.LockedUntil,
		schema.UserAccount.LastLoginAt,
		schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	user.UpdatedAt = time.Now()

	tag, err := repository.pool.Exec(context, query,
		user.ID,
		user.IsActive,
		user.FailedLoginAttempts,
		user.LockedUntil,
		user.LastLoginAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

/*
Exists reports whether a username is already registered.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - bool: true if taken
  - error: Database errors
*/
func (repository *PostgresUserRepository) Exists(context context.Context, username string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`,
		schema.UserAccount.Table, schema.UserAccount.Username)

	var exists bool
	if err := repository.pool.QueryRow(context, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres_user_repo_exists_failed: %w", err)
	}
	return exists, nil
}

/*
Count returns the total number of accounts.

Parameters:
  - context: context.Context

Returns:
  - int: Account count
  - error: Database errors
*/
func (repository *PostgresUserRepository) Count(context context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, schema.UserAccount.Table)

	var count int
	if err := repository.pool.QueryRow(context, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_user_repo_count_failed: %w", err)
	}
	return count, nil
}
