// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package audit records security-relevant events emitted by the authentication flow.

Sinks are fire-and-forget: an emission failure is logged and never changes the
outcome of the operation that produced the event.

Available sinks:

  - LogSink: writes every event to the structured logger under a "security" group.
  - RedisStreamSink: appends every event to a capped Redis stream for downstream consumers.
  - Multi: fans a single event out to several sinks.
*/
package audit

import (
	"context"
	"time"
)

// # Event Types

const (
	EventRegister        = "register"
	EventLoginSuccess    = "login_success"
	EventLoginFailure    = "login_failure"
	EventAccountLocked   = "account_locked"
	EventRefreshSuccess  = "refresh_success"
	EventRefreshRejected = "refresh_rejected"
	EventLogout          = "logout"
	EventDeactivate      = "deactivate"
	EventRateLimited     = "rate_limited"
)

// Event describes a single security occurrence.
type Event struct {
	Type      string    `json:"type"`
	Username  string    `json:"username,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives security events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NopSink discards every event.
type NopSink struct{}

// Emit implements [Sink].
func (NopSink) Emit(context.Context, Event) {}

// multiSink dispatches to every wrapped sink in order.
type multiSink []Sink

// Multi combines sinks into one. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	combined := make(multiSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			combined = append(combined, sink)
		}
	}
	return combined
}

// Emit implements [Sink].
func (sinks multiSink) Emit(ctx context.Context, event Event) {
	for _, sink := range sinks {
		sink.Emit(ctx, event)
	}
}
