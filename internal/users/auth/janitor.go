// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"
)

// TokenSweeper drops revocation entries past their natural expiry.
type TokenSweeper interface {
	Sweep() int
}

// WindowSweeper drops rate limit windows holding no live hits, judged against
// its own clock.
type WindowSweeper interface {
	Sweep(now time.Time) int
	Now() time.Time
}

// Janitor periodically compacts the revocation set and the admission windows so a
// long-running process does not grow without bound.
type Janitor struct {
	tokens   TokenSweeper
	windows  WindowSweeper
	interval time.Duration
	logger   *slog.Logger
}

// NewJanitor creates a [Janitor]. Either sweeper may be nil.
func NewJanitor(tokens TokenSweeper, windows WindowSweeper, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		tokens:   tokens,
		windows:  windows,
		interval: interval,
		logger:   logger,
	}
}

// SweepOnce runs a single compaction pass and returns what each sweeper dropped.
func (janitor *Janitor) SweepOnce() (tokens, windows int) {
	if janitor.tokens != nil {
		tokens = janitor.tokens.Sweep()
	}
	if janitor.windows != nil {
		windows = janitor.windows.Sweep(janitor.windows.Now())
	}
	return tokens, windows
}

// Run sweeps on every tick until context is cancelled.
func (janitor *Janitor) Run(context context.Context) {
	ticker := time.NewTicker(janitor.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tokens, windows := janitor.SweepOnce()
			if tokens > 0 || windows > 0 {
				janitor.logger.DebugContext(context, "security_state_compacted",
					slog.Int("revocations_dropped", tokens),
					slog.Int("windows_dropped", windows),
				)
			}
		case <-context.Done():
			return
		}
	}
}
