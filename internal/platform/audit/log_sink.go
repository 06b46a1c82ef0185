// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit

import (
	"context"
	"log/slog"
)

// LogSink writes events through slog.
//
// Failures are logged at WARN so repeated brute force shows up in alerting,
// everything else at INFO.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a [LogSink] that groups attributes under "security".
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit implements [Sink].
func (sink *LogSink) Emit(ctx context.Context, event Event) {
	level := slog.LevelInfo
	switch event.Type {
	case EventLoginFailure, EventAccountLocked, EventRefreshRejected, EventRateLimited:
		level = slog.LevelWarn
	}

	sink.logger.LogAttrs(ctx, level, "security_event",
		slog.Group("security",
			slog.String("type", event.Type),
			slog.String("username", event.Username),
			slog.String("ip", event.IP),
			slog.String("reason", event.Reason),
			slog.Time("at", event.Timestamp),
		),
	)
}
