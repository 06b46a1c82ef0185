// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mycollection/internal/platform/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

/*
TestLimiter_Check admits up to the ceiling and then rejects until the window slides.
*/
func TestLimiter_Check(t *testing.T) {
	clock := newClock()
	limiter := ratelimit.NewWithClock(clock.Now)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Check("k", 3, time.Minute), "request %d", i+1)
	}
	assert.False(t, limiter.Check("k", 3, time.Minute))

	// Other keys are unaffected.
	assert.True(t, limiter.Check("other", 3, time.Minute))

	clock.Advance(59 * time.Second)
	assert.False(t, limiter.Check("k", 3, time.Minute))

	// Exactly one window after the first hit the oldest timestamps expire.
	clock.Advance(time.Second)
	assert.True(t, limiter.Check("k", 3, time.Minute))
}

/*
TestLimiter_SlidingNotFixed verifies the window slides per timestamp instead of resetting.
*/
func TestLimiter_SlidingNotFixed(t *testing.T) {
	clock := newClock()
	limiter := ratelimit.NewWithClock(clock.Now)

	require.True(t, limiter.Check("k", 2, time.Minute))
	clock.Advance(40 * time.Second)
	require.True(t, limiter.Check("k", 2, time.Minute))
	require.False(t, limiter.Check("k", 2, time.Minute))

	// First hit expires, the second is still live.
	clock.Advance(20 * time.Second)
	assert.True(t, limiter.Check("k", 2, time.Minute))
	assert.False(t, limiter.Check("k", 2, time.Minute))
}

/*
TestLimiter_RejectionsAreNotRecorded ensures rejected calls do not extend the penalty.
*/
func TestLimiter_RejectionsAreNotRecorded(t *testing.T) {
	clock := newClock()
	limiter := ratelimit.NewWithClock(clock.Now)

	require.True(t, limiter.Check("k", 1, time.Minute))
	for i := 0; i < 10; i++ {
		clock.Advance(5 * time.Second)
		require.False(t, limiter.Check("k", 1, time.Minute))
	}

	clock.Advance(10 * time.Second)
	assert.True(t, limiter.Check("k", 1, time.Minute))
}

/*
TestLimiter_NonPositiveCeiling rejects everything.
*/
func TestLimiter_NonPositiveCeiling(t *testing.T) {
	limiter := ratelimit.New()
	assert.False(t, limiter.Check("k", 0, time.Minute))
	assert.False(t, limiter.Check("k", -1, time.Minute))
}

/*
TestLimiter_RetryAfter reports the time until the oldest hit leaves the window.
*/
func TestLimiter_RetryAfter(t *testing.T) {
	clock := newClock()
	limiter := ratelimit.NewWithClock(clock.Now)

	assert.Zero(t, limiter.RetryAfter("missing", time.Minute))

	require.True(t, limiter.Check("k", 1, time.Minute))
	clock.Advance(15 * time.Second)
	assert.Equal(t, 45*time.Second, limiter.RetryAfter("k", time.Minute))

	clock.Advance(time.Minute)
	assert.Zero(t, limiter.RetryAfter("k", time.Minute))
}

/*
TestLimiter_Concurrent admits exactly the ceiling under parallel load.
*/
func TestLimiter_Concurrent(t *testing.T) {
	limiter := ratelimit.NewWithClock(newClock().Now)

	const ceiling = 25
	var admitted atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Check("shared", ceiling, time.Minute) {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(ceiling), admitted.Load())
}

/*
TestLimiter_Sweep reclaims idle keys only.
*/
func TestLimiter_Sweep(t *testing.T) {
	clock := newClock()
	limiter := ratelimit.NewWithClock(clock.Now)

	for i := 0; i < 5; i++ {
		limiter.Check(fmt.Sprintf("idle-%d", i), 10, time.Minute)
	}
	clock.Advance(2 * time.Minute)
	limiter.Check("active", 10, time.Minute)

	assert.Equal(t, 6, limiter.Len())
	assert.Equal(t, 5, limiter.Sweep(clock.Now()))
	assert.Equal(t, 1, limiter.Len())

	// A swept key starts from an empty window.
	assert.True(t, limiter.Check("idle-0", 1, time.Minute))
}

/*
TestLimiter_SweepDuringChecks never loses an admission for a live key.
*/
func TestLimiter_SweepDuringChecks(t *testing.T) {
	clock := newClock()
	limiter := ratelimit.NewWithClock(clock.Now)

	const ceiling = 50
	var admitted atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if limiter.Check("k", ceiling, time.Minute) {
				admitted.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			limiter.Sweep(clock.Now())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(ceiling), admitted.Load())
	assert.False(t, limiter.Check("k", ceiling, time.Minute))
}
