// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package collection implements the ordered set of items owned by one
// parent. Items are grouped by scope (Item.ParentID) and ordered by
// position inside each scope. Article collections have a single scope;
// checklist collections have one scope per category.
package collection

import (
	"errors"
	"slices"

	"blockdesk/internal/models"
)

// ReorderMode selects how MoveWithin places the dragged item.
type ReorderMode string

const (
	// ReorderSplice removes the source and reinserts it at the target's
	// index, then renumbers the scope.
	ReorderSplice ReorderMode = "splice"
	// ReorderSwap exchanges the positions of source and target only.
	ReorderSwap ReorderMode = "swap"
)

var (
	ErrItemNotFound     = errors.New("item not found")
	ErrScopeMismatch    = errors.New("items belong to different scopes")
	ErrCategoryNotFound = errors.New("category not found")
)

// Collection is an ordered set of items under one parent. The zero value
// is not usable; construct with New.
type Collection struct {
	ParentID string
	Mode     ReorderMode

	items         []models.Item
	categoryOrder []string
}

// New hydrates a collection from stored items. Incoming positions are used
// only for the initial sort; gaps and duplicates are kept until the next
// renumbering write.
func New(parentID string, items []models.Item, mode ReorderMode) *Collection {
	if mode != ReorderSwap {
		mode = ReorderSplice
	}
	c := &Collection{
		ParentID: parentID,
		Mode:     mode,
		items:    slices.Clone(items),
	}
	c.sort()
	return c
}

// Items returns the items in display order. The slice is a copy.
func (c *Collection) Items() []models.Item {
	return slices.Clone(c.items)
}

// Len returns the number of items.
func (c *Collection) Len() int {
	return len(c.items)
}

// Find returns the item with the given id.
func (c *Collection) Find(id string) (models.Item, bool) {
	i := c.index(id)
	if i < 0 {
		return models.Item{}, false
	}
	return c.items[i], true
}

// Create allocates a draft item of kind at the end of the collection's own
// scope and appends it.
func (c *Collection) Create(kind models.Kind) models.Item {
	return c.CreateIn(c.ParentID, kind)
}

// CreateIn allocates a draft item at the end of scope and appends it.
func (c *Collection) CreateIn(scope string, kind models.Kind) models.Item {
	return c.Append(models.NewItem(scope, kind, 0))
}

// Append adds item at the end of its scope, overwriting its position with
// the scope's current size.
func (c *Collection) Append(item models.Item) models.Item {
	item.Position = c.scopeLen(item.ParentID)
	if item.Payload == nil {
		item.Payload = models.Payload{}
	}
	c.items = append(c.items, item)
	c.sort()
	return item
}

// Replace swaps in a new version of an existing item, matched by id.
func (c *Collection) Replace(item models.Item) error {
	i := c.index(item.ID)
	if i < 0 {
		return ErrItemNotFound
	}
	c.items[i] = item
	c.sort()
	return nil
}

// Remove deletes an item. Remaining positions are left as they are.
func (c *Collection) Remove(id string) error {
	i := c.index(id)
	if i < 0 {
		return ErrItemNotFound
	}
	c.items = slices.Delete(c.items, i, i+1)
	return nil
}

// MoveWithin handles "drop source onto target". Both items must share a
// scope. It returns the items whose position changed, in display order.
func (c *Collection) MoveWithin(sourceID, targetID string) ([]models.Item, error) {
	if c.Mode == ReorderSwap {
		return c.Swap(sourceID, targetID)
	}
	src, tgt, err := c.pair(sourceID, targetID)
	if err != nil {
		return nil, err
	}
	if sourceID == targetID {
		return nil, nil
	}

	group := c.Group(src.ParentID)
	from := slices.IndexFunc(group, func(it models.Item) bool { return it.ID == src.ID })
	to := slices.IndexFunc(group, func(it models.Item) bool { return it.ID == tgt.ID })
	moved := group[from]
	group = slices.Delete(group, from, from+1)
	group = slices.Insert(group, to, moved)

	return c.renumberGroup(group), nil
}

// Swap exchanges the positions of two items in the same scope. Applying it
// twice restores the original positions.
func (c *Collection) Swap(aID, bID string) ([]models.Item, error) {
	a, b, err := c.pair(aID, bID)
	if err != nil {
		return nil, err
	}
	if aID == bID {
		return nil, nil
	}
	ia, ib := c.index(aID), c.index(bID)
	c.items[ia].Position, c.items[ib].Position = b.Position, a.Position
	changed := []models.Item{c.items[ia], c.items[ib]}
	c.sort()
	return changed, nil
}

// ReassignScope moves an item to another scope. Its position is kept
// as-is; the destination is renumbered by the next full write or reload.
func (c *Collection) ReassignScope(id, newParentID string) (models.Item, error) {
	i := c.index(id)
	if i < 0 {
		return models.Item{}, ErrItemNotFound
	}
	c.items[i].ParentID = newParentID
	moved := c.items[i]
	c.sort()
	return moved, nil
}

// Group returns the items of one scope ordered by position.
func (c *Collection) Group(scope string) []models.Item {
	var group []models.Item
	for _, it := range c.items {
		if it.ParentID == scope {
			group = append(group, it)
		}
	}
	return group
}

// Renumbered returns the items in display order with positions rewritten
// to 0..k-1 inside each scope. The collection itself is not changed.
func (c *Collection) Renumbered() []models.Item {
	out := slices.Clone(c.items)
	next := make(map[string]int)
	for i := range out {
		out[i].Position = next[out[i].ParentID]
		next[out[i].ParentID]++
	}
	return out
}

// renumberGroup writes contiguous positions onto the given ordered group and
// returns the items that actually moved.
func (c *Collection) renumberGroup(group []models.Item) []models.Item {
	var changed []models.Item
	for pos, it := range group {
		i := c.index(it.ID)
		if c.items[i].Position != pos {
			c.items[i].Position = pos
			changed = append(changed, c.items[i])
		}
	}
	c.sort()
	return changed
}

func (c *Collection) pair(aID, bID string) (models.Item, models.Item, error) {
	a, ok := c.Find(aID)
	if !ok {
		return a, a, ErrItemNotFound
	}
	b, ok := c.Find(bID)
	if !ok {
		return a, b, ErrItemNotFound
	}
	if a.ParentID != b.ParentID {
		return a, b, ErrScopeMismatch
	}
	return a, b, nil
}

func (c *Collection) index(id string) int {
	return slices.IndexFunc(c.items, func(it models.Item) bool { return it.ID == id })
}

func (c *Collection) scopeLen(scope string) int {
	n := 0
	for _, it := range c.items {
		if it.ParentID == scope {
			n++
		}
	}
	return n
}

// sort orders items by scope rank, then position. Ties keep their
// current relative order.
func (c *Collection) sort() {
	rank := c.scopeRanks()
	slices.SortStableFunc(c.items, func(a, b models.Item) int {
		if ra, rb := rank[a.ParentID], rank[b.ParentID]; ra != rb {
			return ra - rb
		}
		return a.Position - b.Position
	})
}
