// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"
	"log/slog"
)

// SeedBoard is the checklist board created by Seed.
const SeedBoard = "launch"

// seedChecklist lists the default launch checklist, category by category.
var seedChecklist = []struct {
	category string
	tasks    []string
}{
	{category: "Legal", tasks: []string{"Publish privacy policy", "Configure cookie consent", "Review terms of sale"}},
	{category: "Shop", tasks: []string{"Add shipping zones", "Test checkout with a real card"}},
	{category: "Content", tasks: []string{"Write the about page", "Add contact form recipient"}},
}

// Seed populates an empty backend with a welcome article and the default
// launch checklist. It does nothing for tables that already have rows.
func Seed(ctx context.Context, rows Rows) error {
	return rows.InTx(ctx, func(tx Rows) error {
		if err := seedArticle(ctx, tx); err != nil {
			return err
		}
		return seedLaunchChecklist(ctx, tx)
	})
}

func seedArticle(ctx context.Context, tx Rows) error {
	n, err := tx.Count(ctx, TableArticles, nil)
	if err != nil {
		return fmt.Errorf("seed count articles: %w", err)
	}
	if n > 0 {
		slog.Info("articles already seeded, skipping")
		return nil
	}

	created, err := tx.Insert(ctx, TableArticles, Row{
		"title": "Welcome", "slug": "welcome", "status": "draft", "excerpt": "",
	})
	if err != nil {
		return fmt.Errorf("seed insert article: %w", err)
	}
	articleID := asString(created[0]["id"])

	_, err = tx.Insert(ctx, TableArticleBlocks,
		Row{"article_id": articleID, "kind": "text", "position": 0, "payload": map[string]any{
			"heading": "Welcome", "content": "<p>Start editing this article.</p>", "alignment": "left", "size": "medium",
		}},
		Row{"article_id": articleID, "kind": "button", "position": 1, "payload": map[string]any{
			"text": "Visit the shop", "url": "/shop", "style": "primary", "target": "_self",
		}},
	)
	if err != nil {
		return fmt.Errorf("seed insert blocks: %w", err)
	}

	slog.Info("seeded welcome article", "id", articleID)
	return nil
}

func seedLaunchChecklist(ctx context.Context, tx Rows) error {
	n, err := tx.Count(ctx, TableChecklistTasks, Filter{"board_id": SeedBoard})
	if err != nil {
		return fmt.Errorf("seed count tasks: %w", err)
	}
	if n > 0 {
		slog.Info("launch checklist already seeded, skipping")
		return nil
	}

	var categories, tasks []Row
	for i, group := range seedChecklist {
		categories = append(categories, Row{"board_id": SeedBoard, "name": group.category, "sort_order": i})
		for j, task := range group.tasks {
			tasks = append(tasks, Row{
				"board_id": SeedBoard, "category": group.category, "order_index": j, "task": task, "week": i + 1,
			})
		}
	}
	if _, err := tx.Insert(ctx, TableChecklistCategories, categories...); err != nil {
		return fmt.Errorf("seed insert categories: %w", err)
	}
	if _, err := tx.Insert(ctx, TableChecklistTasks, tasks...); err != nil {
		return fmt.Errorf("seed insert tasks: %w", err)
	}

	slog.Info("seeded launch checklist", "board", SeedBoard, "tasks", len(tasks))
	return nil
}
