// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mycollection/internal/platform/ctxutil"
	"github.com/taibuivan/mycollection/internal/platform/sec"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_AuthUser verifies that claims and the raw token travel together.
*/
func TestContext_AuthUser(t *testing.T) {
	ctx := context.Background()
	claims := &sec.Claims{Kind: sec.KindAccess}
	claims.Subject = "alice"

	// 1. Initially should be nil
	assert.Nil(t, ctxutil.GetAuthUser(ctx))
	assert.Empty(t, ctxutil.GetAccessToken(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithAuthUser(ctx, claims, "raw.jwt.value")
	retrieved := ctxutil.GetAuthUser(ctx)

	require.NotNil(t, retrieved)
	assert.Equal(t, "alice", retrieved.Subject)
	assert.Equal(t, sec.KindAccess, retrieved.Kind)
	assert.Equal(t, "raw.jwt.value", ctxutil.GetAccessToken(ctx))
}

/*
TestContext_ClientIP verifies the resolved client address round trip.
*/
func TestContext_ClientIP(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ctxutil.GetClientIP(ctx))

	ctx = ctxutil.WithClientIP(ctx, "192.0.2.4")
	assert.Equal(t, "192.0.2.4", ctxutil.GetClientIP(ctx))
}
