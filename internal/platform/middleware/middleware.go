// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package middleware provides the cross-cutting HTTP processing chain.

It acts as a series of decorators around the standard http.Handler, injecting
traceability, safety, and security into every request lifecycle.

Standard Stack:

  - Trace: RequestID generation for log correlation.
  - Origin: Client address resolution, trusting proxy headers only from known proxies.
  - Log: Structured Activity logging (slog).
  - Guard: Flood protection, per-route admission, and CORS validation.
  - Safe: Panic recovery (with crash reporting) to prevent server crashes.
  - Identity: Bearer token verification for protected routes.

This package ensures that domain handlers can focus purely on business logic
without worrying about infrastructure-level concerns.
*/
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
	"github.com/taibuivan/mycollection/internal/platform/constants"
	"github.com/taibuivan/mycollection/internal/platform/ctxutil"
	"github.com/taibuivan/mycollection/internal/platform/observability"
	"github.com/taibuivan/mycollection/internal/platform/respond"
	"github.com/taibuivan/mycollection/pkg/uuid"
)

// # Request Tracing

// RequestID attaches a correlation ID to every request for log tracing.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Check if the client already provided an ID
			requestID := request.Header.Get(constants.HeaderXRequestID)

			// 2. Generate a new one if missing (UUID v7 for time-sortable properties)
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.New()
			}

			// 3. Inject into context and response headers
			ctx := ctxutil.WithRequestID(request.Context(), requestID)
			writer.Header().Set(constants.HeaderXRequestID, requestID)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// # Activity Logging

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// StructuredLogger logs every request status and performance metrics.
// It also injects a request-specific logger into the context.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			startTime := time.Now()
			rid := ctxutil.GetRequestID(request.Context())
			ip := RealIP(request)

			// 1. Create a sub-logger for this specific request
			requestLogger := logger.With(
				slog.String("request_id", rid),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("ip", ip),
			)

			// 2. Inject this logger and the client address into the context for downstream use
			ctx := ctxutil.WithLogger(request.Context(), requestLogger)
			ctx = ctxutil.WithClientIP(ctx, ip)
			wrappedWriter := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

			// 3. Proceed to downstream handlers with the enriched context
			next.ServeHTTP(wrappedWriter, request.WithContext(ctx))

			// 4. Final log entry after the request is finished
			latency := time.Since(startTime).Milliseconds()
			logLevel := slog.LevelInfo

			if wrappedWriter.status >= 500 {
				logLevel = slog.LevelError
			} else if wrappedWriter.status >= 400 {
				logLevel = slog.LevelWarn
			}

			requestLogger.Log(ctx, logLevel, "http_request_finished",
				slog.Int("status", wrappedWriter.status),
				slog.Int64("latency_ms", latency),
				slog.String("user_agent", request.UserAgent()),
			)
		})
	}
}

// # Flood Guard

type floodClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// FloodGuard is a coarse per-IP token bucket placed in front of every route.
// Fine-grained per-route ceilings are enforced separately by [Admit].
type FloodGuard struct {
	mu      sync.Mutex
	clients map[string]*floodClient
	limit   rate.Limit
	burst   int
}

// NewFloodGuard creates a [FloodGuard] allowing rps requests per second with the given burst.
func NewFloodGuard(rps float64, burst int) *FloodGuard {
	return &FloodGuard{
		clients: make(map[string]*floodClient),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether the client at ip may proceed.
func (guard *FloodGuard) Allow(ip string) bool {
	guard.mu.Lock()
	defer guard.mu.Unlock()

	clientInfo, found := guard.clients[ip]

	// Initialize a new limiter if this is a fresh IP
	if !found {
		clientInfo = &floodClient{limiter: rate.NewLimiter(guard.limit, guard.burst)}
		guard.clients[ip] = clientInfo
	}

	// Update the activity timestamp
	clientInfo.lastSeen = time.Now()

	return clientInfo.limiter.Allow()
}

// Cleanup removes clients idle for longer than ttl and returns how many were dropped.
func (guard *FloodGuard) Cleanup(ttl time.Duration) int {
	guard.mu.Lock()
	defer guard.mu.Unlock()

	removed := 0
	for ip, clientInfo := range guard.clients {
		if time.Since(clientInfo.lastSeen) > ttl {
			delete(guard.clients, ip)
			removed++
		}
	}
	return removed
}

// Run periodically evicts idle clients until context is cancelled.
func (guard *FloodGuard) Run(context context.Context) {
	ticker := time.NewTicker(constants.RateLimitCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			guard.Cleanup(constants.RateLimitClientTTL)
		case <-context.Done():
			return
		}
	}
}

// RateLimit rejects clients that exceed the flood guard's token bucket.
func RateLimit(guard *FloodGuard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// Identify the client by their IP address
			if !guard.Allow(RealIP(request)) {
				respond.Error(writer, request, apperr.RateLimited(1))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// # Reliability & Safety

// PanicRecovery recovers from panics, logs stack trace, reports it, and returns 500.
func PanicRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// Defer a recovery function to catch any runtime exceptions
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					// Capture the runtime stack trace for diagnostics
					stackTrace := make([]byte, 4096)
					length := runtime.Stack(stackTrace, false)

					// Retrieve the request-specific logger from context if available
					reqLogger := ctxutil.GetLogger(request.Context())
					if reqLogger == slog.Default() {
						reqLogger = logger
					}

					reqLogger.ErrorContext(request.Context(), "panic_recovered",
						slog.Any("error", err),
						slog.String("stack", string(stackTrace[:length])),
					)

					observability.CapturePanic(err)

					// Return a safe, generic error to the client
					respond.Error(writer, request, apperr.Internal(nil))
				}
			}()

			next.ServeHTTP(writer, request)
		})
	}
}

// # Cross-Origin Resource Sharing

// AppConfig defines the behavior needed by the CORS middleware.
type AppConfig interface {
	IsDevelopment() bool
	AllowedOrigins() []string
}

// CORS handles Cross-Origin Resource Sharing based on application environment.
func CORS(cfg AppConfig) func(http.Handler) http.Handler {
	allowedOrigins := cfg.AllowedOrigins()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Check the Origin header
			origin := request.Header.Get(constants.HeaderOrigin)
			if origin == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// 2. Check if the origin is allowed (open in DEV, allow-list otherwise)
			isAllowed := cfg.IsDevelopment() || slices.Contains(allowedOrigins, origin)

			// 3. Inject standard CORS headers if authorized
			if isAllowed {
				header := writer.Header()
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				header.Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization, X-Request-ID")
				header.Set("Access-Control-Expose-Headers", "Content-Length, X-Request-ID, Retry-After")
				header.Set("Access-Control-Allow-Credentials", "true")
				header.Set("Access-Control-Max-Age", "300")
				header.Add("Vary", constants.HeaderOrigin)
			}

			// 4. Handle pre-flight requests (OPTIONS)
			if request.Method == http.MethodOptions {
				writer.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// # Client Address

/*
TrustProxies resolves the client address once per request and stores it in the context.

The connection's own address is the client unless it belongs to one of the trusted
proxy prefixes. Only then are X-Forwarded-For (walked right to left, skipping
trusted hops) and X-Real-IP consulted. With no trusted proxies the headers are
ignored entirely, so a client cannot choose its own rate limit key.

Parameters:
  - trusted: []netip.Prefix (Addresses of the reverse proxies in front of the server)

Returns:
  - func(http.Handler) http.Handler: Middleware to register before [StructuredLogger]
*/
func TrustProxies(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ip := resolveClientIP(request, trusted)
			next.ServeHTTP(writer, request.WithContext(ctxutil.WithClientIP(request.Context(), ip)))
		})
	}
}

func resolveClientIP(request *http.Request, trusted []netip.Prefix) string {
	peer := PeerIP(request)
	if !isTrusted(peer, trusted) {
		return peer
	}

	// Walk the forwarding chain from the nearest hop outwards
	if forwarded := request.Header.Values(constants.HeaderXForwardedFor); len(forwarded) > 0 {
		hops := strings.Split(strings.Join(forwarded, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				break
			}
			if !isTrusted(hop, trusted) {
				return hop
			}
		}
	}

	if realIP := strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP)); realIP != "" {
		if _, err := netip.ParseAddr(realIP); err == nil {
			return realIP
		}
	}
	return peer
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// RealIP returns the client address resolved by [TrustProxies], falling back to
// the connection's address. Forwarding headers are never read here.
func RealIP(request *http.Request) string {
	if ip := ctxutil.GetClientIP(request.Context()); ip != "" {
		return ip
	}
	return PeerIP(request)
}

// PeerIP returns the host part of the connection's remote address.
func PeerIP(request *http.Request) string {
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
