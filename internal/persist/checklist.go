// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package persist

import (
	"context"
	"fmt"
	"slices"
	"time"

	"blockdesk/internal/collection"
	"blockdesk/internal/models"
	"blockdesk/internal/store"
)

// LoadChecklist reads a board's tasks and its stored category order.
// Categories that only appear on tasks follow the stored ones.
func (sy *Synchronizer) LoadChecklist(ctx context.Context, board string) (models.Parent, []models.Item, []string, error) {
	taskRows, err := sy.rows.Select(ctx, store.TableChecklistTasks, store.Filter{"board_id": board}, store.Asc("order_index"))
	if err != nil {
		return models.Parent{}, nil, nil, fmt.Errorf("load tasks %s: %w", board, err)
	}
	catRows, err := sy.rows.Select(ctx, store.TableChecklistCategories, store.Filter{"board_id": board}, store.Asc("sort_order"))
	if err != nil {
		return models.Parent{}, nil, nil, fmt.Errorf("load categories %s: %w", board, err)
	}

	items := make([]models.Item, len(taskRows))
	for i, r := range taskRows {
		items[i] = store.TaskFromRow(r)
	}
	order := make([]string, 0, len(catRows))
	for _, r := range catRows {
		name, _ := r["name"].(string)
		order = append(order, name)
	}
	parent := models.Parent{ID: board, Kind: models.ParentChecklist, Fields: map[string]any{"title": board}}
	return parent, items, order, nil
}

// Checklist hydrates a board into a collection.
func (sy *Synchronizer) Checklist(ctx context.Context, board string) (*collection.Collection, error) {
	_, items, order, err := sy.LoadChecklist(ctx, board)
	if err != nil {
		return nil, err
	}
	c := collection.New(board, items, sy.mode)
	c.SetCategoryOrder(order)
	return c, nil
}

func findTask(c *collection.Collection, id string) (models.Item, error) {
	it, ok := c.Find(id)
	if !ok {
		return models.Item{}, fmt.Errorf("task %s: %w", id, collection.ErrItemNotFound)
	}
	return it, nil
}

// UpdateTask merges delta into a task. Toggling completion stamps
// completed_at and completed_by from actor, or clears them when the task
// is reopened. An empty actor leaves completed_by unset.
func (sy *Synchronizer) UpdateTask(ctx context.Context, board, id string, delta models.Payload, actor string) (*collection.Collection, error) {
	c, err := sy.Checklist(ctx, board)
	if err != nil {
		return nil, err
	}
	it, err := findTask(c, id)
	if err != nil {
		return nil, err
	}

	delta = delta.Clone()
	if done, ok := delta["completed"].(bool); ok {
		if done {
			delta["completed_at"] = time.Now().UTC().Format(time.RFC3339)
			if actor != "" {
				delta["completed_by"] = actor
			} else {
				delta["completed_by"] = nil
			}
		} else {
			delta["completed_at"] = nil
			delta["completed_by"] = nil
		}
	}
	patched, err := sy.codec.Apply(it, delta)
	if err != nil {
		return nil, err
	}

	fields := store.TaskFields(patched.Payload, delta)
	if len(fields) == 0 {
		return c, nil
	}
	if err := sy.ApplyPatch(ctx, PatchFields(store.TableChecklistTasks, it, fields)); err != nil {
		return nil, err
	}
	return sy.Checklist(ctx, board)
}

// ToggleTask marks a task done or open.
func (sy *Synchronizer) ToggleTask(ctx context.Context, board, id string, completed bool, actor string) (*collection.Collection, error) {
	return sy.UpdateTask(ctx, board, id, models.Payload{"completed": completed}, actor)
}

// EditNotes replaces a task's notes.
func (sy *Synchronizer) EditNotes(ctx context.Context, board, id, notes string) (*collection.Collection, error) {
	return sy.UpdateTask(ctx, board, id, models.Payload{"notes": notes}, "")
}

// AddTask appends a task to the end of category, creating the category
// at the end of the board's order when it is new.
func (sy *Synchronizer) AddTask(ctx context.Context, board, category, task string, week *int) (*collection.Collection, error) {
	if category == "" {
		return nil, fmt.Errorf("add task: category is required")
	}
	c, err := sy.Checklist(ctx, board)
	if err != nil {
		return nil, err
	}

	it := c.CreateIn(category, models.KindTask)
	it.Payload = models.Payload{"task": task, "notes": "", "completed": false}
	if week != nil {
		it.Payload["week"] = *week
	}
	if err := sy.codec.Validate(it.Kind, it.Payload); err != nil {
		return nil, err
	}

	categories := c.Categories()
	err = sy.rows.InTx(ctx, func(tx store.Rows) error {
		n, err := tx.Count(ctx, store.TableChecklistCategories, store.Filter{"board_id": board, "name": category})
		if err != nil {
			return fmt.Errorf("count category: %w", err)
		}
		if n == 0 {
			row := store.Row{"board_id": board, "name": category, "sort_order": slices.Index(categories, category)}
			if _, err := tx.Insert(ctx, store.TableChecklistCategories, row); err != nil {
				return fmt.Errorf("insert category: %w", err)
			}
		}
		if _, err := tx.Insert(ctx, store.TableChecklistTasks, store.TaskRow(it, board)); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sy.Checklist(ctx, board)
}

// DeleteTask removes a task and closes the gap it leaves in its category.
func (sy *Synchronizer) DeleteTask(ctx context.Context, board, id string) (*collection.Collection, error) {
	c, err := sy.Checklist(ctx, board)
	if err != nil {
		return nil, err
	}
	it, err := findTask(c, id)
	if err != nil {
		return nil, err
	}

	if _, err := sy.rows.Delete(ctx, store.TableChecklistTasks, store.Filter{"id": id}); err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	c.Remove(id)
	if err := sy.ApplyPatch(ctx, PatchFromItems(store.TableChecklistTasks, gaps(c.Group(it.ParentID)))); err != nil {
		return nil, err
	}
	return sy.Checklist(ctx, board)
}

// ReorderTasks drops source onto target within one category.
func (sy *Synchronizer) ReorderTasks(ctx context.Context, board, sourceID, targetID string) (*collection.Collection, error) {
	c, err := sy.Checklist(ctx, board)
	if err != nil {
		return nil, err
	}
	changed, err := c.MoveWithin(sourceID, targetID)
	if err != nil {
		return nil, err
	}
	if err := sy.ApplyPatch(ctx, PatchFromItems(store.TableChecklistTasks, changed)); err != nil {
		return nil, err
	}
	return sy.Checklist(ctx, board)
}

// MoveTask moves a task into another category, placing it last there.
// The category it left is renumbered.
func (sy *Synchronizer) MoveTask(ctx context.Context, board, id, category string) (*collection.Collection, error) {
	c, err := sy.Checklist(ctx, board)
	if err != nil {
		return nil, err
	}
	it, err := findTask(c, id)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(c.Categories(), category) {
		return nil, fmt.Errorf("move task to %q: %w", category, collection.ErrCategoryNotFound)
	}
	if it.ParentID == category {
		return c, nil
	}

	from := it.ParentID
	it.Position = len(c.Group(category))
	if _, err := c.ReassignScope(id, category); err != nil {
		return nil, err
	}
	changed := append([]models.Item{{ID: it.ID, Revision: it.Revision, ParentID: category, Position: it.Position}},
		gaps(c.Group(from))...)
	if err := sy.ApplyPatch(ctx, PatchFromItems(store.TableChecklistTasks, changed)); err != nil {
		return nil, err
	}
	return sy.Checklist(ctx, board)
}

// SwapCategories exchanges the labels of two categories' tasks. Each task
// keeps its position; the order of the category headings is unchanged.
func (sy *Synchronizer) SwapCategories(ctx context.Context, board, a, b string) (*collection.Collection, error) {
	c, err := sy.Checklist(ctx, board)
	if err != nil {
		return nil, err
	}
	changed, err := c.SwapCategories(a, b)
	if err != nil {
		return nil, fmt.Errorf("swap %q and %q: %w", a, b, err)
	}
	if err := sy.ApplyPatch(ctx, PatchFromItems(store.TableChecklistTasks, changed)); err != nil {
		return nil, err
	}
	return sy.Checklist(ctx, board)
}

// MoveCategory moves a category one slot up or down in the board order.
func (sy *Synchronizer) MoveCategory(ctx context.Context, board, name string, up bool) (*collection.Collection, error) {
	c, err := sy.Checklist(ctx, board)
	if err != nil {
		return nil, err
	}
	var order []string
	if up {
		order, err = c.MoveCategoryUp(name)
	} else {
		order, err = c.MoveCategoryDown(name)
	}
	if err != nil {
		return nil, fmt.Errorf("move category %q: %w", name, err)
	}

	err = sy.rows.InTx(ctx, func(tx store.Rows) error {
		return writeCategoryOrder(ctx, tx, board, order)
	})
	if err != nil {
		return nil, err
	}
	return sy.Checklist(ctx, board)
}

// writeCategoryOrder replaces a board's stored category order.
func writeCategoryOrder(ctx context.Context, tx store.Rows, board string, order []string) error {
	if _, err := tx.Delete(ctx, store.TableChecklistCategories, store.Filter{"board_id": board}); err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}
	if len(order) == 0 {
		return nil
	}
	rows := make([]store.Row, len(order))
	for i, name := range order {
		rows[i] = store.Row{"board_id": board, "name": name, "sort_order": i}
	}
	if _, err := tx.Insert(ctx, store.TableChecklistCategories, rows...); err != nil {
		return fmt.Errorf("insert categories: %w", err)
	}
	return nil
}

// gaps returns the items of an ordered group whose position differs from
// its index, with the position corrected.
func gaps(group []models.Item) []models.Item {
	var out []models.Item
	for i, it := range group {
		if it.Position != i {
			it.Position = i
			out = append(out, it)
		}
	}
	return out
}
