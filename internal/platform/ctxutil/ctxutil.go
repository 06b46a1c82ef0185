// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/mycollection/internal/platform/ctxkey"
	"github.com/taibuivan/mycollection/internal/platform/sec"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Client Address

// WithClientIP returns a new context carrying the resolved client address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyClientIP, ip)
}

// GetClientIP retrieves the client address, or an empty string outside a request.
func GetClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(ctxkey.KeyClientIP).(string)
	return ip
}

// # Identity & Access

// WithAuthUser returns a new context carrying the verified claims and the bearer
// token they were parsed from. The raw token is kept so logout can revoke it.
func WithAuthUser(ctx context.Context, claims *sec.Claims, token string) context.Context {
	ctx = context.WithValue(ctx, ctxkey.KeyUser, claims)
	return context.WithValue(ctx, ctxkey.KeyToken, token)
}

// GetAuthUser retrieves the [*sec.Claims] from the [context.Context].
func GetAuthUser(ctx context.Context) *sec.Claims {
	claims, ok := ctx.Value(ctxkey.KeyUser).(*sec.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetAccessToken retrieves the raw bearer token of an authenticated request.
func GetAccessToken(ctx context.Context) string {
	token, _ := ctx.Value(ctxkey.KeyToken).(string)
	return token
}
