// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"blockdesk/internal/collection"
	"blockdesk/internal/middleware"
	"blockdesk/internal/models"
)

// categoryView is one checklist category with its tasks and progress.
type categoryView struct {
	Name  string        `json:"name"`
	Tasks []models.Item `json:"tasks"`
	Done  int           `json:"done"`
	Total int           `json:"total"`
}

// checklistView is the board response. OpenCategory and ScrollY echo the
// client's view state so a reload after a write lands where it was.
type checklistView struct {
	Board        string         `json:"board"`
	Categories   []categoryView `json:"categories"`
	Done         int            `json:"done"`
	Total        int            `json:"total"`
	OpenCategory string         `json:"open_category,omitempty"`
	ScrollY      int            `json:"scroll_y,omitempty"`
}

func (a *API) writeChecklist(w http.ResponseWriter, r *http.Request, status int, board string, c *collection.Collection) {
	v := checklistView{
		Board:        board,
		Categories:   []categoryView{},
		OpenCategory: r.URL.Query().Get("open_category"),
		ScrollY:      queryInt(r, "scroll_y", 0),
	}
	for _, name := range c.Categories() {
		cv := categoryView{Name: name, Tasks: c.Group(name)}
		if cv.Tasks == nil {
			cv.Tasks = []models.Item{}
		}
		for _, t := range cv.Tasks {
			if done, _ := t.Payload["completed"].(bool); done {
				cv.Done++
			}
		}
		cv.Total = len(cv.Tasks)
		v.Done += cv.Done
		v.Total += cv.Total
		v.Categories = append(v.Categories, cv)
	}
	writeJSON(w, status, v)
}

// GetChecklist returns the board grouped by category in display order.
func (a *API) GetChecklist(w http.ResponseWriter, r *http.Request) {
	board := chi.URLParam(r, "board")
	c, err := a.sync.Checklist(r.Context(), board)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeChecklist(w, r, http.StatusOK, board, c)
}

// AddTask appends a task. Body: {"category", "task", "week"}.
func (a *API) AddTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Category string `json:"category"`
		Task     string `json:"task"`
		Week     *int   `json:"week"`
	}
	if err := decode(w, r, &body); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := validateCategory(body.Category); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := validateTask(body.Task, ""); err != nil {
		a.fail(w, r, err)
		return
	}

	board := chi.URLParam(r, "board")
	c, err := a.sync.AddTask(r.Context(), board, body.Category, body.Task, body.Week)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeChecklist(w, r, http.StatusCreated, board, c)
}

// UpdateTask patches a task. Body fields are all optional: completed,
// notes, task, week. Completion is stamped with the acting user.
func (a *API) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Completed *bool   `json:"completed"`
		Notes     *string `json:"notes"`
		Task      *string `json:"task"`
		Week      *int    `json:"week"`
	}
	if err := decode(w, r, &body); err != nil {
		a.fail(w, r, err)
		return
	}

	delta := models.Payload{}
	if body.Completed != nil {
		delta["completed"] = *body.Completed
	}
	if body.Notes != nil {
		if err := validateNotes(*body.Notes); err != nil {
			a.fail(w, r, err)
			return
		}
		delta["notes"] = *body.Notes
	}
	if body.Task != nil {
		if err := validateTask(*body.Task, ""); err != nil {
			a.fail(w, r, err)
			return
		}
		delta["task"] = *body.Task
	}
	if body.Week != nil {
		delta["week"] = *body.Week
	}

	board := chi.URLParam(r, "board")
	actor := middleware.ActorFromCtx(r.Context())
	c, err := a.sync.UpdateTask(r.Context(), board, chi.URLParam(r, "id"), delta, actor)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeChecklist(w, r, http.StatusOK, board, c)
}

// DeleteTask removes a task and closes the gap in its category.
func (a *API) DeleteTask(w http.ResponseWriter, r *http.Request) {
	board := chi.URLParam(r, "board")
	c, err := a.sync.DeleteTask(r.Context(), board, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeChecklist(w, r, http.StatusOK, board, c)
}

// ReorderTasks drops one task onto another within a category.
func (a *API) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceID string `json:"source_id"`
		TargetID string `json:"target_id"`
	}
	if err := decode(w, r, &body); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := validateMove(body.SourceID, body.TargetID); err != nil {
		a.fail(w, r, err)
		return
	}

	board := chi.URLParam(r, "board")
	c, err := a.sync.ReorderTasks(r.Context(), board, body.SourceID, body.TargetID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeChecklist(w, r, http.StatusOK, board, c)
}

// MoveTask moves a task to the end of another category. Body: {"category"}.
func (a *API) MoveTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Category string `json:"category"`
	}
	if err := decode(w, r, &body); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := validateCategory(body.Category); err != nil {
		a.fail(w, r, err)
		return
	}

	board := chi.URLParam(r, "board")
	c, err := a.sync.MoveTask(r.Context(), board, chi.URLParam(r, "id"), body.Category)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeChecklist(w, r, http.StatusOK, board, c)
}

// SwapCategories exchanges the tasks of two categories. Body: {"a", "b"}.
func (a *API) SwapCategories(w http.ResponseWriter, r *http.Request) {
	var body struct {
		A string `json:"a"`
		B string `json:"b"`
	}
	if err := decode(w, r, &body); err != nil {
		a.fail(w, r, err)
		return
	}
	if body.A == "" || body.B == "" {
		a.fail(w, r, fmt.Errorf("%w: a and b are required", errInvalid))
		return
	}

	board := chi.URLParam(r, "board")
	c, err := a.sync.SwapCategories(r.Context(), board, body.A, body.B)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeChecklist(w, r, http.StatusOK, board, c)
}

// MoveCategory shifts a category one step up or down in the board order.
func (a *API) MoveCategory(w http.ResponseWriter, r *http.Request) {
	var up bool
	switch chi.URLParam(r, "dir") {
	case "up":
		up = true
	case "down":
	default:
		a.fail(w, r, fmt.Errorf("%w: direction must be up or down", errInvalid))
		return
	}

	board := chi.URLParam(r, "board")
	c, err := a.sync.MoveCategory(r.Context(), board, chi.URLParam(r, "name"), up)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeChecklist(w, r, http.StatusOK, board, c)
}
