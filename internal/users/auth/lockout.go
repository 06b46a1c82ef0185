// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sync"
	"time"
)

// # Lockout Policy

// LockoutPolicy configures when repeated failures lock an account.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy returns 10 failures / 5 minutes.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockoutThreshold, Duration: DefaultLockoutDuration}
}

// # Keyed Mutex

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex serializes work per key. Entries are dropped once nobody holds or
// waits on them, so memory stays bounded by the number of in-flight keys.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*keyedEntry)}
}

// lock acquires the mutex for key and returns its release function.
func (keyed *keyedMutex) lock(key string) func() {
	keyed.mu.Lock()
	entry, found := keyed.entries[key]
	if !found {
		entry = &keyedEntry{}
		keyed.entries[key] = entry
	}
	entry.refs++
	keyed.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		keyed.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(keyed.entries, key)
		}
		keyed.mu.Unlock()
	}
}

// # Lockout Tracker

// LockoutTracker owns the failure counter and lock expiry of every account.
//
// # Concurrency
//
// Each read-modify-write runs under a per-username mutex and re-reads the account
// from the store inside the critical section, so concurrent failures against the
// same account never lose an increment. Unrelated accounts never contend.
//
// # Policy
//
// A failure that brings the counter to the threshold sets LockedUntil to
// now+Duration and resets the counter to 0: one lock event per threshold
// crossing. Failures are never charged while the account is locked.
type LockoutTracker struct {
	repository UserRepository
	policy     LockoutPolicy
	now        func() time.Time
	locks      *keyedMutex
}

// NewLockoutTracker creates a [LockoutTracker]. Non-positive policy values fall back to defaults.
func NewLockoutTracker(repository UserRepository, policy LockoutPolicy, now func() time.Time) *LockoutTracker {
	if policy.Threshold < 1 {
		policy.Threshold = DefaultLockoutThreshold
	}
	if policy.Duration <= 0 {
		policy.Duration = DefaultLockoutDuration
	}
	if now == nil {
		now = time.Now
	}
	return &LockoutTracker{
		repository: repository,
		policy:     policy,
		now:        now,
		locks:      newKeyedMutex(),
	}
}

// IsLocked reports whether user has a lock expiry strictly after now.
func (tracker *LockoutTracker) IsLocked(user *User) bool {
	return user.LockedUntil != nil && user.LockedUntil.After(tracker.now())
}

/*
RecordFailure charges one failed attempt against the account.

Parameters:
  - context: context.Context
  - username: string (Normalized username)

Returns:
  - bool: true when this failure tripped the lock
  - error: Store failures
*/
func (tracker *LockoutTracker) RecordFailure(context context.Context, username string) (bool, error) {
	unlock := tracker.locks.lock(username)
	defer unlock()

	user, err := tracker.repository.FindByUsername(context, username)
	if err != nil {
		return false, err
	}

	// Another attempt tripped the lock while this one was verifying.
	if tracker.IsLocked(user) {
		return false, nil
	}

	user.FailedLoginAttempts++

	locked := false
	if user.FailedLoginAttempts >= tracker.policy.Threshold {
		lockedUntil := tracker.now().Add(tracker.policy.Duration)
		user.LockedUntil = &lockedUntil
		user.FailedLoginAttempts = 0
		locked = true
	}

	if err := tracker.repository.Update(context, user); err != nil {
		return false, err
	}
	return locked, nil
}

/*
RecordSuccess clears the failure counter and lock, and stamps the last login.

Parameters:
  - context: context.Context
  - username: string (Normalized username)

Returns:
  - *User: The updated account
  - error: Store failures
*/
func (tracker *LockoutTracker) RecordSuccess(context context.Context, username string) (*User, error) {
	unlock := tracker.locks.lock(username)
	defer unlock()

	user, err := tracker.repository.FindByUsername(context, username)
	if err != nil {
		return nil, err
	}

	now := tracker.now()
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	if err := tracker.repository.Update(context, user); err != nil {
		return nil, err
	}
	return user, nil
}

/*
Mutate applies change to the stored account under the same per-account lock
used for lockout accounting.

Parameters:
  - context: context.Context
  - username: string (Normalized username)
  - change: func(*User) (Mutation applied to a fresh copy)

Returns:
  - *User: The updated account
  - error: Store failures
*/
func (tracker *LockoutTracker) Mutate(context context.Context, username string, change func(*User)) (*User, error) {
	unlock := tracker.locks.lock(username)
	defer unlock()

	user, err := tracker.repository.FindByUsername(context, username)
	if err != nil {
		return nil, err
	}

	change(user)

	if err := tracker.repository.Update(context, user); err != nil {
		return nil, err
	}
	return user, nil
}
