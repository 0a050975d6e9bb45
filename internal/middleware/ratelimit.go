// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// limiterEntry tracks write timestamps for a single client.
type limiterEntry struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// WriteLimiter caps unsafe requests (POST, PUT, PATCH, DELETE) per client
// over a sliding window. Clients are keyed by actor id, or by IP address
// for anonymous requests. Reads are never limited.
type WriteLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	limit   int
	window  time.Duration
	stopCh  chan struct{}
}

// NewWriteLimiter allows limit writes per window and cleans up idle
// clients in the background until Stop is called.
func NewWriteLimiter(limit int, window time.Duration) *WriteLimiter {
	wl := &WriteLimiter{
		clients: make(map[string]*limiterEntry),
		limit:   limit,
		window:  window,
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(window * 10)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				wl.cleanup()
			case <-wl.stopCh:
				return
			}
		}
	}()

	return wl
}

// Stop terminates the background cleanup goroutine.
func (wl *WriteLimiter) Stop() {
	close(wl.stopCh)
}

func (wl *WriteLimiter) entry(key string) *limiterEntry {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	e, ok := wl.clients[key]
	if !ok {
		e = &limiterEntry{}
		wl.clients[key] = e
	}
	return e
}

// allow records a write for key and reports whether it fits the window.
// When it does not, it also returns how long until the oldest write ages out.
func (wl *WriteLimiter) allow(key string) (bool, time.Duration) {
	if wl.limit <= 0 {
		return true, 0
	}
	e := wl.entry(key)
	now := time.Now()
	cutoff := now.Add(-wl.window)

	e.mu.Lock()
	defer e.mu.Unlock()

	valid := e.timestamps[:0]
	for _, ts := range e.timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	e.timestamps = valid

	if len(e.timestamps) >= wl.limit {
		return false, e.timestamps[0].Sub(cutoff)
	}
	e.timestamps = append(e.timestamps, now)
	return true, 0
}

// cleanup removes clients with no write inside the window.
func (wl *WriteLimiter) cleanup() {
	cutoff := time.Now().Add(-wl.window)

	wl.mu.Lock()
	defer wl.mu.Unlock()

	for key, e := range wl.clients {
		e.mu.Lock()
		idle := len(e.timestamps) == 0 || !e.timestamps[len(e.timestamps)-1].After(cutoff)
		e.mu.Unlock()
		if idle {
			delete(wl.clients, key)
		}
	}
}

// Middleware rejects writes over the limit with 429 and a Retry-After
// header. It must run after Actor.
func (wl *WriteLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		key := ActorFromCtx(r.Context())
		if key == "" {
			key = "ip:" + clientIP(r)
		}
		if ok, wait := wl.allow(key); !ok {
			secs := int(wait/time.Second) + 1
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "too many writes, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client's IP address, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then RemoteAddr without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
