// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"blockdesk/internal/middleware"
	"blockdesk/internal/models"
	"blockdesk/internal/notify"
)

// ListArticles returns a page of articles. Query: limit (default 20, max
// 100) and offset.
func (a *API) ListArticles(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > maxPageSize {
		limit = 20
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	articles, total, err := a.sync.ListArticles(r.Context(), limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if articles == nil {
		articles = []*models.Article{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"articles": articles,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// CreateArticle stores an empty draft article. Body: {"title": "..."}.
func (a *API) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := decode(w, r, &body); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := validateTitle(body.Title); err != nil {
		a.fail(w, r, err)
		return
	}

	article, err := a.sync.CreateArticle(r.Context(), body.Title)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, article)
}

// DeleteArticle removes an article and its blocks.
func (a *API) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.sync.DeleteArticle(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	a.sink.Notify(r.Context(), middleware.ActorFromCtx(r.Context()), "Article deleted", notify.SeverityInfo)
	w.WriteHeader(http.StatusNoContent)
}

// queryInt reads an integer query parameter, falling back on absence or
// parse errors.
func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}
