// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// Registry keeps open sessions between requests. Get returns (nil, nil)
// for unknown or expired ids.
type Registry interface {
	Get(ctx context.Context, id string) (*Snapshot, error)
	Put(ctx context.Context, snap Snapshot) error
	Delete(ctx context.Context, id string) error
}

// MemoryRegistry is an in-process Registry with per-entry expiry.
type MemoryRegistry struct {
	cache *cache.Cache
}

// NewMemoryRegistry creates a registry whose entries expire after ttl of
// inactivity.
func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	return &MemoryRegistry{cache: cache.New(ttl, 2*ttl)}
}

// Get returns a copy of the stored snapshot.
func (r *MemoryRegistry) Get(_ context.Context, id string) (*Snapshot, error) {
	x, found := r.cache.Get(id)
	if !found {
		return nil, nil
	}
	raw, ok := x.([]byte)
	if !ok {
		return nil, fmt.Errorf("get session %s: unexpected entry %T", id, x)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &snap, nil
}

// Put stores the snapshot encoded, so later edits to the caller's session
// never leak into the registry.
func (r *MemoryRegistry) Put(_ context.Context, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", snap.ID, err)
	}
	r.cache.Set(snap.ID, raw, cache.DefaultExpiration)
	return nil
}

// Delete forgets a session.
func (r *MemoryRegistry) Delete(_ context.Context, id string) error {
	r.cache.Delete(id)
	return nil
}
