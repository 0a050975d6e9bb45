// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON HTTP handlers for blockdesk. Errors
// stop at this boundary: each is logged, reported to the acting user's
// notification sink and written as {"error": "..."} with a mapped status.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"blockdesk/internal/blocks"
	"blockdesk/internal/collection"
	"blockdesk/internal/editor"
	"blockdesk/internal/middleware"
	"blockdesk/internal/notify"
	"blockdesk/internal/persist"
	"blockdesk/internal/store"
)

// maxBodyBytes caps request bodies; source blocks are the largest payloads.
const maxBodyBytes = 1 << 20

var (
	// errInvalid marks request input rejected before reaching the domain.
	errInvalid = errors.New("invalid request")
	// errSessionNotFound is returned for unknown or expired editor sessions.
	errSessionNotFound = errors.New("session not found")
)

// API groups the JSON handlers and their dependencies.
type API struct {
	sync     *persist.Synchronizer
	sessions editor.Registry
	sink     notify.Sink
	inbox    notify.Drainer
}

// NewAPI creates the handler group. inbox may be nil when notifications
// are only logged.
func NewAPI(sy *persist.Synchronizer, sessions editor.Registry, sink notify.Sink, inbox notify.Drainer) *API {
	if sink == nil {
		sink = notify.Log{}
	}
	return &API{sync: sy, sessions: sessions, sink: sink, inbox: inbox}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: malformed JSON body: %v", errInvalid, err)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verr *blocks.ValidationError
	switch {
	case errors.Is(err, context.Canceled):
		return 499
	case errors.As(err, &verr),
		errors.Is(err, errInvalid),
		errors.Is(err, blocks.ErrUnknownKind),
		errors.Is(err, editor.ErrKindNotAllowed),
		errors.Is(err, editor.ErrUnknownField),
		errors.Is(err, collection.ErrScopeMismatch),
		errors.Is(err, store.ErrInvalidValue):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, errSessionNotFound),
		errors.Is(err, collection.ErrItemNotFound),
		errors.Is(err, collection.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, persist.ErrConflict),
		errors.Is(err, editor.ErrNotReady):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail reports err to the log and the actor's notifications, then writes
// the error response. Server errors are reported without internal detail.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	severity := notify.SeverityWarning
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "the operation failed, please try again"
		severity = notify.SeverityError
	} else {
		slog.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	a.sink.Notify(r.Context(), middleware.ActorFromCtx(r.Context()), msg, severity)
	writeJSON(w, status, map[string]string{"error": msg})
}

// Notifications drains the acting user's pending notifications.
func (a *API) Notifications(w http.ResponseWriter, r *http.Request) {
	if a.inbox == nil {
		writeJSON(w, http.StatusOK, map[string]any{"notifications": []notify.Notification{}})
		return
	}
	items, err := a.inbox.Drain(r.Context(), middleware.ActorFromCtx(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if items == nil {
		items = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items})
}
