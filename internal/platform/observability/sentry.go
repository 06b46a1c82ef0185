// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package observability wires crash reporting.
package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// flushTimeout bounds how long shutdown waits for buffered events.
const flushTimeout = 2 * time.Second

// InitSentry configures the global Sentry hub. An empty DSN disables reporting.
//
// # Returns
//   - bool: true when reporting is active
//   - error: Initialization failure
func InitSentry(dsn, environment, release string) (bool, error) {
	if dsn == "" {
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// FlushSentry drains buffered events before the process exits.
func FlushSentry() {
	sentry.Flush(flushTimeout)
}

// CapturePanic reports a recovered panic value. It is a no-op when Sentry is not initialized.
func CapturePanic(recovered any) {
	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return
	}
	hub.Recover(recovered)
}
