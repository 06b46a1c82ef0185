// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit provides an exact, in-process sliding-window rate limiter.

Each key (typically "<client-ip>:<route>") owns its own window of admission
timestamps. A request is admitted when fewer than the configured maximum number
of admissions happened in the trailing window.

Concurrency:

  - The key map is guarded by a single mutex held only for lookup and insertion.
  - Each key's window carries its own mutex, so the check-and-record step is
    atomic per key and unrelated keys never contend.

Memory:

Windows that hold no live timestamps are reclaimed by [Limiter.Sweep], which the
background janitor runs periodically.
*/
package ratelimit

import (
	"sync"
	"time"
)

// slidingWindow is the admission history of a single key.
type slidingWindow struct {
	mu     sync.Mutex
	hits   []time.Time
	window time.Duration

	// removed is set by Sweep once the window is detached from the map.
	removed bool
}

// purge drops timestamps at or before now-window. Caller holds the lock.
func (w *slidingWindow) purge(now time.Time) {
	cutoff := now.Add(-w.window)

	kept := 0
	for kept < len(w.hits) && !w.hits[kept].After(cutoff) {
		kept++
	}
	if kept > 0 {
		w.hits = append(w.hits[:0], w.hits[kept:]...)
	}
}

// Limiter is the process-wide keyed sliding-window limiter.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	now     func() time.Time
}

// New creates a [Limiter] using the wall clock.
func New() *Limiter {
	return NewWithClock(time.Now)
}

// NewWithClock creates a [Limiter] with an injectable clock.
func NewWithClock(now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		windows: make(map[string]*slidingWindow),
		now:     now,
	}
}

// acquire returns the locked window for key, creating it when missing.
// The returned window is never one that Sweep has already detached.
func (limiter *Limiter) acquire(key string, window time.Duration) *slidingWindow {
	for {
		limiter.mu.Lock()
		entry, found := limiter.windows[key]
		if !found {
			entry = &slidingWindow{window: window}
			limiter.windows[key] = entry
		}
		limiter.mu.Unlock()

		entry.mu.Lock()
		if !entry.removed {
			return entry
		}
		entry.mu.Unlock()
	}
}

/*
Check reports whether one more request under key is admissible and records it if so.

Parameters:
  - key: string (Rate limit bucket, usually "<ip>:<route>")
  - maxRequests: int (Admissions allowed within the window)
  - window: time.Duration (Trailing window length)

Returns:
  - bool: true when admitted; a rejected request is not recorded
*/
func (limiter *Limiter) Check(key string, maxRequests int, window time.Duration) bool {
	if maxRequests <= 0 {
		return false
	}

	entry := limiter.acquire(key, window)
	defer entry.mu.Unlock()

	// A key is always judged against the latest window it was checked with.
	entry.window = window

	currentTime := limiter.now()
	entry.purge(currentTime)

	if len(entry.hits) >= maxRequests {
		return false
	}

	entry.hits = append(entry.hits, currentTime)
	return true
}

// RetryAfter returns how long until the oldest retained admission for key leaves
// window. It returns zero when the key has no live admissions.
func (limiter *Limiter) RetryAfter(key string, window time.Duration) time.Duration {
	limiter.mu.Lock()
	entry, found := limiter.windows[key]
	limiter.mu.Unlock()
	if !found {
		return 0
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	currentTime := limiter.now()
	cutoff := currentTime.Add(-window)
	for _, hit := range entry.hits {
		if hit.After(cutoff) {
			return hit.Add(window).Sub(currentTime)
		}
	}
	return 0
}

// Sweep discards keys whose windows contain no timestamps newer than their window
// relative to now. It returns the number of keys removed.
func (limiter *Limiter) Sweep(now time.Time) int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	removed := 0
	for key, entry := range limiter.windows {
		entry.mu.Lock()
		entry.purge(now)
		if len(entry.hits) == 0 {
			entry.removed = true
			delete(limiter.windows, key)
			removed++
		}
		entry.mu.Unlock()
	}
	return removed
}

// Len returns the number of tracked keys.
func (limiter *Limiter) Len() int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	return len(limiter.windows)
}

// Now exposes the limiter clock so callers sweep against the same time source.
func (limiter *Limiter) Now() time.Time {
	return limiter.now()
}
