// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
)

// # In-Memory Repository

// MemoryUserRepository is the process-lifetime account store used when
// STORE_DRIVER=memory. Records are copied on the way in and out so callers
// never mutate stored state without going through Update.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	byID       map[string]*User
	byUsername map[string]string
	now        func() time.Time
}

// NewMemoryUserRepository creates an empty in-memory store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:       make(map[string]*User),
		byUsername: make(map[string]string),
		now:        time.Now,
	}
}

// FindByID implements [UserRepository].
func (repository *MemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	user, found := repository.byID[id]
	if !found {
		return nil, ErrUserNotFound
	}
	return user.Clone(), nil
}

// FindByUsername implements [UserRepository].
func (repository *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	id, found := repository.byUsername[username]
	if !found {
		return nil, ErrUserNotFound
	}
	return repository.byID[id].Clone(), nil
}

// Create implements [UserRepository].
func (repository *MemoryUserRepository) Create(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, taken := repository.byUsername[user.Username]; taken {
		return apperr.Conflict("Username is already taken")
	}

	now := repository.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	repository.byID[user.ID] = user.Clone()
	repository.byUsername[user.Username] = user.ID
	return nil
}

// Update implements [UserRepository].
func (repository *MemoryUserRepository) Update(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	existing, found := repository.byID[user.ID]
	if !found {
		return ErrUserNotFound
	}

	user.UpdatedAt = repository.now()

	// Username and creation time are immutable.
	stored := user.Clone()
	stored.Username = existing.Username
	stored.CreatedAt = existing.CreatedAt
	repository.byID[user.ID] = stored
	return nil
}

// Exists implements [UserRepository].
func (repository *MemoryUserRepository) Exists(_ context.Context, username string) (bool, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	_, taken := repository.byUsername[username]
	return taken, nil
}

// Count implements [UserRepository].
func (repository *MemoryUserRepository) Count(_ context.Context) (int, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()
	return len(repository.byID), nil
}
