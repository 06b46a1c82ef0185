// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
	"github.com/taibuivan/mycollection/internal/users/auth"
)

/*
TestMemoryUserRepository covers the account store contract.
*/
func TestMemoryUserRepository(t *testing.T) {
	repository := auth.NewMemoryUserRepository()
	ctx := context.Background()

	count, err := repository.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	user := &auth.User{ID: "u-1", Username: "alice", IsActive: true}
	require.NoError(t, repository.Create(ctx, user))
	assert.False(t, user.CreatedAt.IsZero())

	err = repository.Create(ctx, &auth.User{ID: "u-2", Username: "alice"})
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))

	exists, err := repository.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	byID, err := repository.FindByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = repository.FindByUsername(ctx, "bob")
	require.ErrorIs(t, err, auth.ErrUserNotFound)

	err = repository.Update(ctx, &auth.User{ID: "missing", Username: "ghost"})
	require.ErrorIs(t, err, auth.ErrUserNotFound)

	count, err = repository.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

/*
TestMemoryUserRepository_Isolation never hands out aliases of stored records.
*/
func TestMemoryUserRepository_Isolation(t *testing.T) {
	repository := auth.NewMemoryUserRepository()
	ctx := context.Background()
	require.NoError(t, repository.Create(ctx, &auth.User{ID: "u-1", Username: "alice", IsActive: true}))

	user, err := repository.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	user.IsActive = false
	user.FailedLoginAttempts = 9

	fresh, err := repository.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, fresh.IsActive)
	assert.Zero(t, fresh.FailedLoginAttempts)

	require.NoError(t, repository.Update(ctx, user))
	fresh, err = repository.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, fresh.IsActive)
	assert.Equal(t, 9, fresh.FailedLoginAttempts)
}
