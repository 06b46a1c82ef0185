// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
	"github.com/taibuivan/mycollection/internal/platform/audit"
	"github.com/taibuivan/mycollection/internal/platform/ctxutil"
	"github.com/taibuivan/mycollection/internal/platform/ratelimit"
	"github.com/taibuivan/mycollection/internal/platform/respond"
)

// AdmissionKey builds the limiter key "<client-ip>:<route>".
//
// The route is the matched chi pattern (so /todos/{id} shares one budget across
// ids), falling back to the literal path outside a router.
func AdmissionKey(request *http.Request) string {
	route := request.URL.Path
	if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
		if pattern := routeContext.RoutePattern(); pattern != "" {
			route = pattern
		}
	}
	return RealIP(request) + ":" + route
}

/*
Admit gates a route behind a per-client sliding-window ceiling.

Parameters:
  - limiter: *ratelimit.Limiter (Shared process-wide limiter)
  - ceiling: int (Requests admitted per window)
  - window: time.Duration (Trailing window length)

Returns:
  - func(http.Handler) http.Handler: 429 RATE_LIMITED with Retry-After when exceeded
*/
func Admit(limiter *ratelimit.Limiter, ceiling int, window time.Duration) func(http.Handler) http.Handler {
	return admit(limiter, ceiling, window, nil)
}

func admit(limiter *ratelimit.Limiter, ceiling int, window time.Duration, sink audit.Sink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			key := AdmissionKey(request)

			if !limiter.Check(key, ceiling, window) {
				retryAfter := int(math.Ceil(limiter.RetryAfter(key, window).Seconds()))

				ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "rate_limit_exceeded",
					slog.String("key", key),
					slog.Int("ceiling", ceiling),
					slog.Int("retry_after_seconds", retryAfter),
				)

				if sink != nil {
					sink.Emit(context.WithoutCancel(request.Context()), audit.Event{
						Type:      audit.EventRateLimited,
						IP:        RealIP(request),
						Reason:    key,
						Timestamp: limiter.Now(),
					})
				}

				respond.Error(writer, request, apperr.RateLimited(retryAfter))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// Admission binds a limiter to a window so routes only name their ceiling.
// Rejections are reported to Audit when it is set.
type Admission struct {
	Limiter *ratelimit.Limiter
	Window  time.Duration
	Audit   audit.Sink
}

// Gate returns [Admit] for ceiling, or a pass-through when no limiter is configured.
func (admission Admission) Gate(ceiling int) func(http.Handler) http.Handler {
	if admission.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return admit(admission.Limiter, ceiling, admission.Window, admission.Audit)
}
