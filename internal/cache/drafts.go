// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// drafts.go keeps open editor sessions in Valkey so a session survives
// restarts and is shared by every app instance. Each session is one JSON
// value whose TTL is refreshed on every write; the last writer wins.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"blockdesk/internal/editor"
)

const (
	// draftKeyPrefix is the Valkey key prefix for session drafts.
	draftKeyPrefix = "draft:"

	// DefaultDraftTTL is how long an untouched session is kept.
	DefaultDraftTTL = 2 * time.Hour
)

// DraftStore is an editor.Registry backed by Valkey.
type DraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDraftStore creates a draft store backed by the given Valkey client.
func NewDraftStore(client *redis.Client, ttl time.Duration) *DraftStore {
	if ttl == 0 {
		ttl = DefaultDraftTTL
	}
	return &DraftStore{client: client, ttl: ttl}
}

// Get loads a session snapshot. Returns (nil, nil) on miss.
func (d *DraftStore) Get(ctx context.Context, id string) (*editor.Snapshot, error) {
	raw, err := d.client.Get(ctx, draftKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft %s: %w", id, err)
	}

	var snap editor.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", id, err)
	}
	slog.Debug("draft hit", "session", id)
	return &snap, nil
}

// Put stores a session snapshot and refreshes its TTL.
func (d *DraftStore) Put(ctx context.Context, snap editor.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", snap.ID, err)
	}
	if err := d.client.Set(ctx, draftKeyPrefix+snap.ID, raw, d.ttl).Err(); err != nil {
		return fmt.Errorf("set draft %s: %w", snap.ID, err)
	}
	return nil
}

// Delete removes a session draft.
func (d *DraftStore) Delete(ctx context.Context, id string) error {
	if err := d.client.Del(ctx, draftKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete draft %s: %w", id, err)
	}
	slog.Debug("draft discarded", "session", id)
	return nil
}
