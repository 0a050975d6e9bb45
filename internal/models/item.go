// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the records shared by the collection, editor and
// persistence layers.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind selects which payload shape an Item carries.
type Kind string

const (
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindAddress Kind = "address"
	KindButton  Kind = "button"
	KindSource  Kind = "source"

	// KindTask is the only kind used by checklist collections.
	KindTask Kind = "task"
)

// BlockKinds lists the kinds an article may contain, in editor menu order.
var BlockKinds = []Kind{KindText, KindImage, KindVideo, KindAddress, KindButton, KindSource}

// draftPrefix marks ids generated client-side for items never persisted.
const draftPrefix = "draft-"

// Payload is the open field map carried by an Item. Keys the kind does not
// know about are kept and written back unchanged.
type Payload map[string]any

// Clone returns a shallow copy of the payload. A nil payload clones to an
// empty, non-nil map.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Item is a single positioned child record: an article content block or a
// checklist task.
type Item struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id"`
	Kind      Kind      `json:"kind"`
	Position  int       `json:"position"`
	Payload   Payload   `json:"payload"`
	Revision  int       `json:"revision"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NewItem allocates an unsaved item with a time-ordered draft id and an
// empty payload. No backend call is made.
func NewItem(parentID string, kind Kind, position int) Item {
	return Item{
		ID:       NewDraftID(),
		ParentID: parentID,
		Kind:     kind,
		Position: position,
		Payload:  Payload{},
	}
}

// NewDraftID returns a client-local identifier. UUIDv7 embeds the creation
// time, so draft ids sort in creation order.
func NewDraftID() string {
	return draftPrefix + uuid.Must(uuid.NewV7()).String()
}

// IsDraft reports whether the item has never been persisted.
func (it Item) IsDraft() bool {
	return strings.HasPrefix(it.ID, draftPrefix)
}

// Patch shallow-merges delta into the payload: keys in delta overwrite,
// keys absent from delta keep their value. The receiver is not modified.
func (it Item) Patch(delta Payload) Item {
	merged := it.Payload.Clone()
	for k, v := range delta {
		merged[k] = v
	}
	it.Payload = merged
	return it
}

// Same reports whether both items carry the same id. Items have no other
// notion of equality.
func (it Item) Same(other Item) bool {
	return it.ID == other.ID
}
