// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// notifyKeyPrefix is the Valkey key prefix for per-actor mailboxes.
const notifyKeyPrefix = "notify:"

// mailboxTTL expires mailboxes nobody drains.
const mailboxTTL = 24 * time.Hour

// Valkey keeps each actor's notifications in a capped Valkey list.
type Valkey struct {
	client *redis.Client
}

// NewValkey creates a sink backed by the given Valkey client.
func NewValkey(client *redis.Client) *Valkey {
	return &Valkey{client: client}
}

// Notify pushes the message and trims the list to MaxPending entries.
func (v *Valkey) Notify(ctx context.Context, actor, message string, severity Severity) {
	raw, err := json.Marshal(Notification{Message: message, Severity: severity, At: time.Now().UTC()})
	if err != nil {
		slog.Warn("notification encode error", "error", err)
		return
	}
	key := notifyKeyPrefix + mailbox(actor)

	pipe := v.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, MaxPending-1)
	pipe.Expire(ctx, key, mailboxTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("notification push error", "actor", mailbox(actor), "error", err)
	}
}

// Drain atomically reads and deletes the actor's list, newest first.
func (v *Valkey) Drain(ctx context.Context, actor string) ([]Notification, error) {
	key := notifyKeyPrefix + mailbox(actor)

	pipe := v.client.TxPipeline()
	items := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("drain notifications: %w", err)
	}

	out := make([]Notification, 0, len(items.Val()))
	for _, raw := range items.Val() {
		var n Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			slog.Warn("notification decode error", "error", err)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
