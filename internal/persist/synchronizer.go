// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package persist writes collections to the backend row store and reads
// them back. CommitAll replaces a parent's children in one transaction;
// ApplyPatch issues one revision-guarded update per changed row.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"blockdesk/internal/blocks"
	"blockdesk/internal/collection"
	"blockdesk/internal/editor"
	"blockdesk/internal/models"
	"blockdesk/internal/store"
)

// ErrConflict is returned when a row changed since it was loaded.
var ErrConflict = errors.New("revision conflict")

// DefaultConcurrency caps the per-row writes ApplyPatch runs at once.
const DefaultConcurrency = 8

// Synchronizer moves collections between editor sessions and the backend.
type Synchronizer struct {
	rows        store.Rows
	codec       *blocks.Codec
	mode        collection.ReorderMode
	concurrency int
}

// New creates a synchronizer. A concurrency below 1 uses DefaultConcurrency.
func New(rows store.Rows, codec *blocks.Codec, mode collection.ReorderMode, concurrency int) *Synchronizer {
	if codec == nil {
		codec = blocks.NewCodec(blocks.ModeStrict)
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Synchronizer{rows: rows, codec: codec, mode: mode, concurrency: concurrency}
}

// Codec returns the payload codec used to validate writes.
func (sy *Synchronizer) Codec() *blocks.Codec {
	return sy.codec
}

// Mode returns the reorder mode of hydrated collections.
func (sy *Synchronizer) Mode() collection.ReorderMode {
	return sy.mode
}

// CommitAll saves the session with a full replace: the parent is upserted,
// every child row is deleted and the current items are inserted with
// positions 0..n-1. Stored items must still be at the revision the session
// loaded, otherwise the save fails with ErrConflict. Everything happens in
// one transaction, so a failure leaves the backend as it was. The session returns to ready either way
// and is rehydrated from the backend on success.
func (sy *Synchronizer) CommitAll(ctx context.Context, s *editor.Session) error {
	if err := s.BeginSave(); err != nil {
		return err
	}

	parent, items, order, err := sy.commit(ctx, s)
	if err != nil {
		slog.Error("commit failed", "session", s.ID, "parent", s.Parent.ID, "error", err)
	}
	s.EndSave(parent, items, order, err)
	return err
}

func (sy *Synchronizer) commit(ctx context.Context, s *editor.Session) (models.Parent, []models.Item, []string, error) {
	items := s.Collection().Renumbered()
	for _, it := range items {
		if err := sy.codec.Validate(it.Kind, it.Payload); err != nil {
			return models.Parent{}, nil, nil, fmt.Errorf("validate item %s: %w", it.ID, err)
		}
	}

	switch s.Parent.Kind {
	case models.ParentArticle:
		var id string
		err := sy.rows.InTx(ctx, func(tx store.Rows) error {
			var err error
			if id, err = upsertArticle(ctx, tx, s.Parent); err != nil {
				return err
			}
			if !s.Parent.IsNew() {
				if err := checkRevisions(ctx, tx, store.TableArticleBlocks, store.Filter{"article_id": id}, items); err != nil {
					return err
				}
			}
			return replaceBlocks(ctx, tx, id, items)
		})
		if err != nil {
			return models.Parent{}, nil, nil, err
		}
		parent, stored, err := sy.LoadArticle(ctx, id)
		return parent, stored, nil, err

	case models.ParentChecklist:
		board := s.Parent.ID
		categories := s.Categories()
		err := sy.rows.InTx(ctx, func(tx store.Rows) error {
			if err := checkRevisions(ctx, tx, store.TableChecklistTasks, store.Filter{"board_id": board}, items); err != nil {
				return err
			}
			if err := replaceTasks(ctx, tx, board, items); err != nil {
				return err
			}
			return writeCategoryOrder(ctx, tx, board, categories)
		})
		if err != nil {
			return models.Parent{}, nil, nil, err
		}
		parent, stored, order, err := sy.LoadChecklist(ctx, board)
		return parent, stored, order, err
	}
	return models.Parent{}, nil, nil, fmt.Errorf("commit: unknown parent kind %q", s.Parent.Kind)
}

// checkRevisions fails with ErrConflict when a stored item was changed or
// removed since it was loaded. Drafts have nothing stored to compare.
func checkRevisions(ctx context.Context, tx store.Rows, table string, filter store.Filter, items []models.Item) error {
	stored, err := tx.Select(ctx, table, filter)
	if err != nil {
		return fmt.Errorf("select revisions: %w", err)
	}
	revisions := make(map[string]int, len(stored))
	for _, r := range stored {
		id, _ := r["id"].(string)
		rev, _ := r["revision"].(int)
		revisions[id] = rev
	}
	for _, it := range items {
		if it.IsDraft() || it.ID == "" {
			continue
		}
		rev, ok := revisions[it.ID]
		if !ok {
			return fmt.Errorf("%s %s was removed: %w", table, it.ID, ErrConflict)
		}
		if rev != it.Revision {
			return fmt.Errorf("%s %s at revision %d, loaded %d: %w", table, it.ID, rev, it.Revision, ErrConflict)
		}
	}
	return nil
}

func replaceBlocks(ctx context.Context, tx store.Rows, articleID string, items []models.Item) error {
	if _, err := tx.Delete(ctx, store.TableArticleBlocks, store.Filter{"article_id": articleID}); err != nil {
		return fmt.Errorf("delete blocks: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]store.Row, len(items))
	for i, it := range items {
		it.Revision++
		rows[i] = store.BlockRow(it, articleID)
	}
	if _, err := tx.Insert(ctx, store.TableArticleBlocks, rows...); err != nil {
		return fmt.Errorf("insert blocks: %w", err)
	}
	return nil
}

func replaceTasks(ctx context.Context, tx store.Rows, board string, items []models.Item) error {
	if _, err := tx.Delete(ctx, store.TableChecklistTasks, store.Filter{"board_id": board}); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]store.Row, len(items))
	for i, it := range items {
		it.Revision++
		rows[i] = store.TaskRow(it, board)
	}
	if _, err := tx.Insert(ctx, store.TableChecklistTasks, rows...); err != nil {
		return fmt.Errorf("insert tasks: %w", err)
	}
	return nil
}

// Change is one row update guarded by the revision the caller last saw.
type Change struct {
	ID       string
	Revision int
	Fields   store.Row
}

// Patch is a set of independent row updates against one table.
type Patch struct {
	Table   string
	Changes []Change
}

// ApplyPatch writes every change as its own update, concurrently and
// without ordering. Each update only matches the row at the expected
// revision and bumps it. Failed updates do not stop the others, so the
// patch may be partly applied; all failures are joined in the result.
func (sy *Synchronizer) ApplyPatch(ctx context.Context, p Patch) error {
	if len(p.Changes) == 0 {
		return nil
	}
	errs := make([]error, len(p.Changes))

	var g errgroup.Group
	g.SetLimit(sy.concurrency)
	for i, ch := range p.Changes {
		g.Go(func() error {
			errs[i] = sy.applyChange(ctx, p.Table, ch)
			return nil
		})
	}
	g.Wait()

	if err := errors.Join(errs...); err != nil {
		slog.Warn("patch partly failed", "table", p.Table, "changes", len(p.Changes), "error", err)
		return err
	}
	return nil
}

func (sy *Synchronizer) applyChange(ctx context.Context, table string, ch Change) error {
	fields := make(store.Row, len(ch.Fields)+1)
	for k, v := range ch.Fields {
		fields[k] = v
	}
	fields["revision"] = ch.Revision + 1

	updated, err := sy.rows.Update(ctx, table, fields, store.Filter{"id": ch.ID, "revision": ch.Revision})
	if err != nil {
		return fmt.Errorf("update %s %s: %w", table, ch.ID, err)
	}
	if len(updated) > 0 {
		return nil
	}

	n, err := sy.rows.Count(ctx, table, store.Filter{"id": ch.ID})
	if err != nil {
		return fmt.Errorf("update %s %s: %w", table, ch.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update %s %s: %w", table, ch.ID, store.ErrNotFound)
	}
	return fmt.Errorf("update %s %s: %w", table, ch.ID, ErrConflict)
}

// PatchFromItems builds a patch writing the position and scope of each
// item. For blocks the scope is fixed, so only the position is written.
func PatchFromItems(table string, items []models.Item) Patch {
	p := Patch{Table: table, Changes: make([]Change, 0, len(items))}
	for _, it := range items {
		var fields store.Row
		switch table {
		case store.TableChecklistTasks:
			fields = store.Row{"order_index": it.Position, "category": it.ParentID}
		default:
			fields = store.Row{"position": it.Position}
		}
		p.Changes = append(p.Changes, Change{ID: it.ID, Revision: it.Revision, Fields: fields})
	}
	return p
}

// PatchFields builds a single-row patch.
func PatchFields(table string, it models.Item, fields store.Row) Patch {
	return Patch{Table: table, Changes: []Change{{ID: it.ID, Revision: it.Revision, Fields: fields}}}
}
