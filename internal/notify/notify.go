// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package notify delivers short user-facing messages about failed or
// completed operations. Delivery is fire and forget: sinks log their own
// failures and never return them to the caller.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Severity classifies a notification for display.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Anonymous is the mailbox used for requests without an actor.
const Anonymous = "anonymous"

// MaxPending caps how many undrained notifications an actor keeps.
const MaxPending = 50

// Notification is one delivered message.
type Notification struct {
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}

// Sink accepts notifications for an actor.
type Sink interface {
	Notify(ctx context.Context, actor, message string, severity Severity)
}

// Drainer returns and clears an actor's pending notifications.
type Drainer interface {
	Drain(ctx context.Context, actor string) ([]Notification, error)
}

// Mailbox is a Sink whose messages can be read back.
type Mailbox interface {
	Sink
	Drainer
}

func mailbox(actor string) string {
	if actor == "" {
		return Anonymous
	}
	return actor
}

// Log writes notifications to the default slog logger.
type Log struct{}

// Notify logs the message at a level matching its severity.
func (Log) Notify(ctx context.Context, actor, message string, severity Severity) {
	level := slog.LevelInfo
	switch severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}
	slog.Log(ctx, level, "notification", "actor", mailbox(actor), "message", message)
}

// Multi fans a notification out to every sink in order.
type Multi []Sink

// Notify forwards to each sink.
func (m Multi) Notify(ctx context.Context, actor, message string, severity Severity) {
	for _, s := range m {
		s.Notify(ctx, actor, message, severity)
	}
}

// Memory keeps pending notifications in process.
type Memory struct {
	mu      sync.Mutex
	pending map[string][]Notification
}

// NewMemory creates an empty in-process mailbox.
func NewMemory() *Memory {
	return &Memory{pending: make(map[string][]Notification)}
}

// Notify queues a message, dropping the oldest beyond MaxPending.
func (m *Memory) Notify(_ context.Context, actor, message string, severity Severity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := mailbox(actor)
	// Newest first, as with the Valkey list.
	q := append([]Notification{{Message: message, Severity: severity, At: time.Now().UTC()}}, m.pending[key]...)
	if len(q) > MaxPending {
		q = q[:MaxPending]
	}
	m.pending[key] = q
}

// Drain returns the actor's notifications, newest first, and clears them.
func (m *Memory) Drain(_ context.Context, actor string) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := mailbox(actor)
	out := m.pending[key]
	delete(m.pending, key)
	return out, nil
}
