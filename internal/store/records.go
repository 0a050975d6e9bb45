// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"slices"
	"time"

	"blockdesk/internal/models"
)

// ArticleFromRow converts an articles row.
func ArticleFromRow(r Row) *models.Article {
	return &models.Article{
		ID:         asString(r["id"]),
		Title:      asString(r["title"]),
		Slug:       asString(r["slug"]),
		Excerpt:    asString(r["excerpt"]),
		Status:     models.ArticleStatus(asString(r["status"])),
		CoverImage: asString(r["cover_image"]),
		Revision:   asInt(r["revision"]),
		CreatedAt:  asTime(r["created_at"]),
		UpdatedAt:  asTime(r["updated_at"]),
	}
}

// ArticleRow converts parent fields into an articles row without id or
// timestamps.
func ArticleRow(p models.Parent) Row {
	status := p.String("status")
	if status == "" {
		status = string(models.ArticleStatusDraft)
	}
	return Row{
		"title":       p.String("title"),
		"slug":        p.String("slug"),
		"excerpt":     p.String("excerpt"),
		"status":      status,
		"cover_image": p.String("cover_image"),
	}
}

// BlockFromRow converts an article_blocks row into an item.
func BlockFromRow(r Row) models.Item {
	payload, _ := r["payload"].(map[string]any)
	return models.Item{
		ID:        asString(r["id"]),
		ParentID:  asString(r["article_id"]),
		Kind:      models.Kind(asString(r["kind"])),
		Position:  asInt(r["position"]),
		Payload:   models.Payload(payload),
		Revision:  asInt(r["revision"]),
		CreatedAt: asTime(r["created_at"]),
		UpdatedAt: asTime(r["updated_at"]),
	}
}

// BlockRow converts an item into an article_blocks row for insertion under
// articleID. Draft ids are dropped so the backend assigns one.
func BlockRow(it models.Item, articleID string) Row {
	r := Row{
		"article_id": articleID,
		"kind":       string(it.Kind),
		"position":   it.Position,
		"payload":    map[string]any(it.Payload.Clone()),
		"revision":   it.Revision,
	}
	if !it.IsDraft() && it.ID != "" {
		r["id"] = it.ID
	}
	return r
}

// taskColumns maps task payload keys to checklist_tasks columns. Other
// payload keys are kept in the extra JSON column.
var taskColumns = []string{"task", "week", "notes", "completed", "completed_at", "completed_by"}

// TaskFromRow converts a checklist_tasks row into an item. The category
// becomes the item's scope and order_index its position.
func TaskFromRow(r Row) models.Item {
	payload := models.Payload{}
	if extra, ok := r["extra"].(map[string]any); ok {
		for k, v := range extra {
			payload[k] = v
		}
	}
	for _, col := range taskColumns {
		v := r[col]
		if t, ok := v.(time.Time); ok {
			v = t.Format(time.RFC3339)
		}
		payload[col] = v
	}
	return models.Item{
		ID:        asString(r["id"]),
		ParentID:  asString(r["category"]),
		Kind:      models.KindTask,
		Position:  asInt(r["order_index"]),
		Payload:   payload,
		Revision:  asInt(r["revision"]),
		CreatedAt: asTime(r["created_at"]),
		UpdatedAt: asTime(r["updated_at"]),
	}
}

// TaskRow converts an item into a checklist_tasks row for boardID.
func TaskRow(it models.Item, boardID string) Row {
	r := Row{
		"board_id":    boardID,
		"category":    it.ParentID,
		"order_index": it.Position,
		"revision":    it.Revision,
		"extra":       taskExtra(it.Payload),
	}
	for _, col := range taskColumns {
		if v, ok := it.Payload[col]; ok {
			r[col] = v
		}
	}
	if !it.IsDraft() && it.ID != "" {
		r["id"] = it.ID
	}
	return r
}

// TaskFields picks the task columns present in delta. When delta touches
// a key without a column, extra is rewritten from the patched payload.
func TaskFields(patched, delta models.Payload) Row {
	r := Row{}
	for k, v := range delta {
		if slices.Contains(taskColumns, k) {
			r[k] = v
			continue
		}
		r["extra"] = taskExtra(patched)
	}
	return r
}

func taskExtra(p models.Payload) map[string]any {
	extra := map[string]any{}
	for k, v := range p {
		if !slices.Contains(taskColumns, k) {
			extra[k] = v
		}
	}
	return extra
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	n, _ := v.(int)
	return n
}

func asTime(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}
