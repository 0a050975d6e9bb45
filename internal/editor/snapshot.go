// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

import (
	"blockdesk/internal/blocks"
	"blockdesk/internal/collection"
	"blockdesk/internal/models"
)

// Snapshot is the serializable form of a session, as kept by a Registry.
type Snapshot struct {
	ID            string                 `json:"id"`
	State         State                  `json:"state"`
	Mode          collection.ReorderMode `json:"mode"`
	Parent        models.Parent          `json:"parent"`
	Items         []models.Item          `json:"items"`
	CategoryOrder []string               `json:"category_order,omitempty"`
	LastError     string                 `json:"last_error,omitempty"`
}

// Snapshot captures the session. Items keep their in-session positions.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:            s.ID,
		State:         s.State,
		Mode:          s.items.Mode,
		Parent:        s.Parent,
		Items:         s.items.Items(),
		CategoryOrder: s.items.Categories(),
		LastError:     s.LastError,
	}
}

// Restore rebuilds a session from a snapshot.
func Restore(snap Snapshot, codec *blocks.Codec) *Session {
	s := New(codec, snap.Mode)
	s.ID = snap.ID
	s.hydrate(snap.Parent, snap.Items, snap.CategoryOrder)
	s.State = snap.State
	s.LastError = snap.LastError
	return s
}
