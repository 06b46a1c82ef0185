// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/mycollection/internal/platform/constants"
)

// emitTimeout bounds a single XADD so a slow Redis never stalls a login.
const emitTimeout = 500 * time.Millisecond

// RedisStreamSink appends events to a capped Redis stream.
//
// The stream is trimmed approximately to [constants.AuditStreamMaxLen] entries
// on every write.
type RedisStreamSink struct {
	client redis.Cmdable
	stream string
	maxLen int64
	logger *slog.Logger
}

// NewRedisStreamSink creates a [RedisStreamSink]. An empty stream name falls back to
// [constants.DefaultAuditStream].
func NewRedisStreamSink(client redis.Cmdable, stream string, logger *slog.Logger) *RedisStreamSink {
	if stream == "" {
		stream = constants.DefaultAuditStream
	}
	return &RedisStreamSink{
		client: client,
		stream: stream,
		maxLen: constants.AuditStreamMaxLen,
		logger: logger,
	}
}

// Emit implements [Sink].
//
// The write is detached from the request context so a client disconnect does
// not drop the record.
func (sink *RedisStreamSink) Emit(ctx context.Context, event Event) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
	defer cancel()

	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	err := sink.client.XAdd(writeCtx, &redis.XAddArgs{
		Stream: sink.stream,
		MaxLen: sink.maxLen,
		Approx: true,
		Values: map[string]any{
			"type":      event.Type,
			"username":  event.Username,
			"ip":        event.IP,
			"reason":    event.Reason,
			"timestamp": timestamp.UTC().Format(time.RFC3339Nano),
		},
	}).Err()

	if err != nil {
		sink.logger.WarnContext(ctx, "audit_emit_failed",
			slog.String("stream", sink.stream),
			slog.String("type", event.Type),
			slog.Any("error", err),
		)
	}
}
