// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"sync"
	"time"
)

// RevocationSet is the process-wide record of tokens invalidated before their
// natural expiry.
//
// # Lifecycle
//
// Empty at process start, filled on logout and refresh rotation, lost on restart.
// Entries are dropped by [RevocationSet.Sweep] once the token they describe has
// expired on its own, since such a token fails validation regardless.
type RevocationSet struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewRevocationSet creates an empty [RevocationSet].
func NewRevocationSet() *RevocationSet {
	return &RevocationSet{entries: make(map[string]time.Time)}
}

// Add records token with its natural expiry. It reports whether the token was
// newly inserted; re-adding a revoked token is a no-op that returns false.
func (set *RevocationSet) Add(token string, expiresAt time.Time) bool {
	set.mu.Lock()
	defer set.mu.Unlock()

	if _, exists := set.entries[token]; exists {
		return false
	}
	set.entries[token] = expiresAt
	return true
}

// Contains reports whether token has been revoked.
func (set *RevocationSet) Contains(token string) bool {
	set.mu.RLock()
	defer set.mu.RUnlock()

	_, exists := set.entries[token]
	return exists
}

// Len returns the number of tracked entries.
func (set *RevocationSet) Len() int {
	set.mu.RLock()
	defer set.mu.RUnlock()
	return len(set.entries)
}

// Sweep removes entries whose expiry is at or before now and returns how many were dropped.
func (set *RevocationSet) Sweep(now time.Time) int {
	set.mu.Lock()
	defer set.mu.Unlock()

	removed := 0
	for token, expiresAt := range set.entries {
		if !expiresAt.After(now) {
			delete(set.entries, token)
			removed++
		}
	}
	return removed
}
