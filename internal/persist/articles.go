// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"blockdesk/internal/models"
	"blockdesk/internal/slug"
	"blockdesk/internal/store"
)

// LoadArticle reads an article and its blocks in position order.
func (sy *Synchronizer) LoadArticle(ctx context.Context, id string) (models.Parent, []models.Item, error) {
	row, err := store.SelectOne(ctx, sy.rows, store.TableArticles, store.Filter{"id": id})
	if err != nil {
		return models.Parent{}, nil, fmt.Errorf("load article %s: %w", id, err)
	}
	rows, err := sy.rows.Select(ctx, store.TableArticleBlocks, store.Filter{"article_id": id}, store.Asc("position"))
	if err != nil {
		return models.Parent{}, nil, fmt.Errorf("load blocks %s: %w", id, err)
	}
	items := make([]models.Item, len(rows))
	for i, r := range rows {
		items[i] = store.BlockFromRow(r)
	}
	return store.ArticleFromRow(row).AsParent(), items, nil
}

// ListArticles returns a page of articles, most recently updated first,
// and the total count. Paging happens in the backend.
func (sy *Synchronizer) ListArticles(ctx context.Context, limit, offset int) ([]*models.Article, int, error) {
	total, err := sy.rows.Count(ctx, store.TableArticles, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}
	rows, err := sy.rows.SelectPage(ctx, store.TableArticles, nil, store.Page{Limit: limit, Offset: offset},
		store.Desc("updated_at"), store.Asc("id"))
	if err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	out := make([]*models.Article, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.ArticleFromRow(r))
	}
	return out, total, nil
}

// CreateArticle stores a new, empty draft article.
func (sy *Synchronizer) CreateArticle(ctx context.Context, title string) (*models.Article, error) {
	parent := models.Parent{Kind: models.ParentArticle, Fields: map[string]any{"title": title}}
	var id string
	err := sy.rows.InTx(ctx, func(tx store.Rows) error {
		var err error
		id, err = upsertArticle(ctx, tx, parent)
		return err
	})
	if err != nil {
		return nil, err
	}
	row, err := store.SelectOne(ctx, sy.rows, store.TableArticles, store.Filter{"id": id})
	if err != nil {
		return nil, fmt.Errorf("reload article: %w", err)
	}
	slog.Info("article created", "id", id)
	return store.ArticleFromRow(row), nil
}

// DeleteArticle removes an article and all of its blocks.
func (sy *Synchronizer) DeleteArticle(ctx context.Context, id string) error {
	return sy.rows.InTx(ctx, func(tx store.Rows) error {
		if _, err := tx.Delete(ctx, store.TableArticleBlocks, store.Filter{"article_id": id}); err != nil {
			return fmt.Errorf("delete blocks: %w", err)
		}
		n, err := tx.Delete(ctx, store.TableArticles, store.Filter{"id": id})
		if err != nil {
			return fmt.Errorf("delete article: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("delete article %s: %w", id, store.ErrNotFound)
		}
		return nil
	})
}

// upsertArticle inserts a new article or updates an existing one at the
// revision it was loaded with. It returns the article id.
func upsertArticle(ctx context.Context, tx store.Rows, p models.Parent) (string, error) {
	row := store.ArticleRow(p)

	if p.IsNew() {
		if row["slug"] == "" {
			s, err := slug.Unique(p.String("title"), func(candidate string) (bool, error) {
				n, err := tx.Count(ctx, store.TableArticles, store.Filter{"slug": candidate})
				return n > 0, err
			})
			if err != nil {
				return "", err
			}
			row["slug"] = s
		}
		row["revision"] = 1
		created, err := tx.Insert(ctx, store.TableArticles, row)
		if err != nil {
			return "", fmt.Errorf("insert article: %w", err)
		}
		return created[0]["id"].(string), nil
	}

	if row["slug"] == "" {
		delete(row, "slug")
	}
	row["revision"] = p.Revision + 1
	updated, err := tx.Update(ctx, store.TableArticles, row, store.Filter{"id": p.ID, "revision": p.Revision})
	if err != nil {
		return "", fmt.Errorf("update article: %w", err)
	}
	if len(updated) == 0 {
		if _, err := store.SelectOne(ctx, tx, store.TableArticles, store.Filter{"id": p.ID}); errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("update article %s: %w", p.ID, store.ErrNotFound)
		}
		return "", fmt.Errorf("update article %s: %w", p.ID, ErrConflict)
	}
	return p.ID, nil
}
