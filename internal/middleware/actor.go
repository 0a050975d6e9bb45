// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// ActorKey is the context key for the acting user's id.
	ActorKey contextKey = "actor"

	// ActorHeader carries the acting user's UUID, set by the auth proxy in
	// front of the API.
	ActorHeader = "X-Actor-ID"
)

// Actor reads the acting user from ActorHeader into the request context.
// Requests without the header proceed anonymously; malformed ids are
// rejected with 400.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(ActorHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+ActorHeader)
			return
		}
		ctx := context.WithValue(r.Context(), ActorKey, id.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFromCtx returns the acting user's id, or "" for anonymous requests.
func ActorFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(ActorKey).(string)
	return id
}

// WithActor returns a copy of ctx carrying the actor id.
func WithActor(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ActorKey, id)
}
