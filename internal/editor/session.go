// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package editor holds the in-memory editing state of one parent and its
// collection between loads and saves. Edits are never written to the
// backend by the session itself; saving is driven by the synchronizer.
package editor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"blockdesk/internal/blocks"
	"blockdesk/internal/collection"
	"blockdesk/internal/models"
)

// State is the lifecycle phase of a session.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateSaving  State = "saving"
)

var (
	// ErrNotReady is returned by edit calls made while loading or saving.
	ErrNotReady = errors.New("session is not ready")
	// ErrUnknownField is returned when setting a field the parent kind lacks.
	ErrUnknownField = errors.New("unknown parent field")
	// ErrKindNotAllowed is returned when adding an item whose kind the
	// parent cannot hold.
	ErrKindNotAllowed = errors.New("kind not allowed for parent")
)

// Session is one editor's working copy of a parent and its items.
type Session struct {
	ID        string
	State     State
	Parent    models.Parent
	LastError string

	items *collection.Collection
	codec *blocks.Codec
}

// New creates a session in the loading state.
func New(codec *blocks.Codec, mode collection.ReorderMode) *Session {
	if codec == nil {
		codec = blocks.NewCodec(blocks.ModeStrict)
	}
	return &Session{
		ID:    uuid.NewString(),
		State: StateLoading,
		items: collection.New("", nil, mode),
		codec: codec,
	}
}

// Open hydrates the session and makes it ready for edits.
func (s *Session) Open(parent models.Parent, items []models.Item, categoryOrder []string) {
	s.hydrate(parent, items, categoryOrder)
	s.State = StateReady
}

func (s *Session) hydrate(parent models.Parent, items []models.Item, categoryOrder []string) {
	if parent.Fields == nil {
		parent.Fields = map[string]any{}
	}
	s.Parent = parent
	s.items = collection.New(parent.ID, items, s.items.Mode)
	if len(categoryOrder) > 0 {
		s.items.SetCategoryOrder(categoryOrder)
	}
}

// Mode returns the reorder mode of the session's collection.
func (s *Session) Mode() collection.ReorderMode {
	return s.items.Mode
}

// Items returns the items in display order.
func (s *Session) Items() []models.Item {
	return s.items.Items()
}

// Categories returns the scopes in display order.
func (s *Session) Categories() []string {
	return s.items.Categories()
}

// Collection exposes the underlying collection for read access by the
// synchronizer.
func (s *Session) Collection() *collection.Collection {
	return s.items
}

func (s *Session) ready() error {
	if s.State != StateReady {
		return fmt.Errorf("%w (state %s)", ErrNotReady, s.State)
	}
	return nil
}

// AddItem appends a new draft item of kind, pre-filled with the kind's
// default payload, at the end of the parent's own scope.
func (s *Session) AddItem(kind models.Kind) (models.Item, error) {
	return s.AddItemIn(s.items.ParentID, kind)
}

// AddItemIn appends a new draft item at the end of scope. Checklist
// sessions use the category name as scope.
func (s *Session) AddItemIn(scope string, kind models.Kind) (models.Item, error) {
	if err := s.ready(); err != nil {
		return models.Item{}, err
	}
	if !s.allows(kind) {
		return models.Item{}, fmt.Errorf("%w: %s in %s", ErrKindNotAllowed, kind, s.Parent.Kind)
	}
	it := models.NewItem(scope, kind, 0)
	it.Payload = blocks.Defaults(kind)
	return s.items.Append(it), nil
}

func (s *Session) allows(kind models.Kind) bool {
	if s.Parent.Kind == models.ParentChecklist {
		return kind == models.KindTask
	}
	return slices.Contains(models.BlockKinds, kind)
}

// UpdateItem merges delta into an item's payload. Invalid results are
// rejected and leave the item untouched.
func (s *Session) UpdateItem(id string, delta models.Payload) (models.Item, error) {
	if err := s.ready(); err != nil {
		return models.Item{}, err
	}
	it, ok := s.items.Find(id)
	if !ok {
		return models.Item{}, collection.ErrItemNotFound
	}
	patched, err := s.codec.Apply(it, delta)
	if err != nil {
		return it, err
	}
	if err := s.items.Replace(patched); err != nil {
		return it, err
	}
	return patched, nil
}

// DeleteItem removes an item from the working copy.
func (s *Session) DeleteItem(id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.items.Remove(id)
}

// SetParentField sets one scalar field on the parent.
func (s *Session) SetParentField(name string, value any) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !s.Parent.HasField(name) {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	s.Parent.Fields[name] = value
	return nil
}

// ReorderItem drops source onto target and returns the moved items.
func (s *Session) ReorderItem(sourceID, targetID string) ([]models.Item, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.items.MoveWithin(sourceID, targetID)
}

// MoveCategoryUp moves a category one slot earlier.
func (s *Session) MoveCategoryUp(name string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.items.MoveCategoryUp(name)
}

// MoveCategoryDown moves a category one slot later.
func (s *Session) MoveCategoryDown(name string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.items.MoveCategoryDown(name)
}

// BeginSave freezes the session for a save.
func (s *Session) BeginSave() error {
	if err := s.ready(); err != nil {
		return err
	}
	s.State = StateSaving
	s.LastError = ""
	return nil
}

// EndSave returns the session to ready. On success it rehydrates from the
// stored result; on failure it keeps the working copy and records the error.
func (s *Session) EndSave(parent models.Parent, items []models.Item, categoryOrder []string, err error) {
	defer func() { s.State = StateReady }()
	if err != nil {
		s.LastError = err.Error()
		return
	}
	s.hydrate(parent, items, categoryOrder)
}
