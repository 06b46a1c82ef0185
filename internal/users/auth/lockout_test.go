// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
	"github.com/taibuivan/mycollection/internal/users/auth"
)

func newTrackerFixture(t *testing.T, policy auth.LockoutPolicy) (*auth.LockoutTracker, *auth.MemoryUserRepository, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	repository := auth.NewMemoryUserRepository()
	require.NoError(t, repository.Create(context.Background(), &auth.User{ID: "u-1", Username: "alice", IsActive: true}))

	return auth.NewLockoutTracker(repository, policy, clock.Now), repository, clock
}

/*
TestLockoutTracker_RecordFailure reports the lock exactly once per threshold crossing.
*/
func TestLockoutTracker_RecordFailure(t *testing.T) {
	tracker, repository, clock := newTrackerFixture(t, auth.LockoutPolicy{Threshold: 2, Duration: time.Minute})
	ctx := context.Background()

	locked, err := tracker.RecordFailure(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, locked)

	locked, err = tracker.RecordFailure(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, locked)

	// Failures recorded during the lock are not charged and do not extend it.
	locked, err = tracker.RecordFailure(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, locked)

	user, err := repository.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, user.FailedLoginAttempts)
	assert.Equal(t, clock.Now().Add(time.Minute), *user.LockedUntil)
	assert.True(t, tracker.IsLocked(user))

	clock.Advance(time.Minute)
	assert.False(t, tracker.IsLocked(user))
}

/*
TestLockoutTracker_RecordSuccess clears the lock state and stamps the login.
*/
func TestLockoutTracker_RecordSuccess(t *testing.T) {
	tracker, _, clock := newTrackerFixture(t, auth.LockoutPolicy{Threshold: 5, Duration: time.Minute})
	ctx := context.Background()

	for range 3 {
		_, err := tracker.RecordFailure(ctx, "alice")
		require.NoError(t, err)
	}

	user, err := tracker.RecordSuccess(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, user.FailedLoginAttempts)
	assert.Nil(t, user.LockedUntil)
	assert.Equal(t, clock.Now(), *user.LastLoginAt)
}

/*
TestLockoutTracker_UnknownAccount propagates NOT_FOUND.
*/
func TestLockoutTracker_UnknownAccount(t *testing.T) {
	tracker, _, _ := newTrackerFixture(t, auth.DefaultLockoutPolicy())

	_, err := tracker.RecordFailure(context.Background(), "ghost")
	assert.True(t, apperr.IsNotFound(err))

	_, err = tracker.RecordSuccess(context.Background(), "ghost")
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestNewLockoutTracker_Defaults falls back to the default policy.
*/
func TestNewLockoutTracker_Defaults(t *testing.T) {
	tracker, repository, _ := newTrackerFixture(t, auth.LockoutPolicy{})
	ctx := context.Background()

	for range auth.DefaultLockoutThreshold - 1 {
		locked, err := tracker.RecordFailure(ctx, "alice")
		require.NoError(t, err)
		require.False(t, locked)
	}

	locked, err := tracker.RecordFailure(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, locked)

	user, err := repository.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, user.LockedUntil)
}
