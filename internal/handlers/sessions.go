// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"blockdesk/internal/editor"
	"blockdesk/internal/middleware"
	"blockdesk/internal/models"
	"blockdesk/internal/notify"
)

// sessionView is the JSON shape of an editor session.
type sessionView struct {
	ID         string        `json:"id"`
	State      editor.State  `json:"state"`
	Mode       string        `json:"mode"`
	Parent     models.Parent `json:"parent"`
	Items      []models.Item `json:"items"`
	Categories []string      `json:"categories,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
}

func viewSession(s *editor.Session) sessionView {
	items := s.Items()
	if items == nil {
		items = []models.Item{}
	}
	v := sessionView{
		ID:        s.ID,
		State:     s.State,
		Mode:      string(s.Mode()),
		Parent:    s.Parent,
		Items:     items,
		LastError: s.LastError,
	}
	if s.Parent.Kind == models.ParentChecklist {
		v.Categories = s.Categories()
	}
	return v
}

// loadSession restores the session named by the {sid} URL parameter.
func (a *API) loadSession(ctx context.Context, r *http.Request) (*editor.Session, error) {
	sid := chi.URLParam(r, "sid")
	snap, err := a.sessions.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, sid)
	}
	return editor.Restore(*snap, a.sync.Codec()), nil
}

// editSession runs fn against the stored session and stores the result.
// fn's error aborts without storing.
func (a *API) editSession(w http.ResponseWriter, r *http.Request, status int, fn func(s *editor.Session) (any, error)) {
	s, err := a.loadSession(r.Context(), r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := fn(s)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.sessions.Put(r.Context(), s.Snapshot()); err != nil {
		a.fail(w, r, err)
		return
	}
	if out == nil {
		out = viewSession(s)
	}
	writeJSON(w, status, out)
}

// OpenSession loads a parent into a new editor session. Body:
// {"kind": "article"|"checklist", "parent_id": "..."}. An article session
// without parent_id edits a new, unsaved article.
func (a *API) OpenSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind     models.ParentKind `json:"kind"`
		ParentID string            `json:"parent_id"`
	}
	if err := decode(w, r, &body); err != nil {
		a.fail(w, r, err)
		return
	}

	s := editor.New(a.sync.Codec(), a.sync.Mode())
	ctx := r.Context()
	switch body.Kind {
	case models.ParentArticle:
		if body.ParentID == "" {
			s.Open(models.Parent{Kind: models.ParentArticle, Fields: map[string]any{"title": "", "status": "draft"}}, nil, nil)
			break
		}
		parent, items, err := a.sync.LoadArticle(ctx, body.ParentID)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		s.Open(parent, items, nil)
	case models.ParentChecklist:
		if err := validateCategory(body.ParentID); err != nil {
			a.fail(w, r, fmt.Errorf("%w: parent_id names the board", errInvalid))
			return
		}
		parent, items, order, err := a.sync.LoadChecklist(ctx, body.ParentID)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		s.Open(parent, items, order)
	default:
		a.fail(w, r, fmt.Errorf("%w: kind must be article or checklist", errInvalid))
		return
	}

	if err := a.sessions.Put(ctx, s.Snapshot()); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewSession(s))
}

// GetSession returns the session's working copy.
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := a.loadSession(r.Context(), r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSession(s))
}

// DiscardSession drops the working copy without saving.
func (a *API) DiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Delete(r.Context(), chi.URLParam(r, "sid")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem appends a draft item. Body: {"kind": "text", "category": "..."};
// category applies to checklist sessions only.
func (a *API) AddItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind     models.Kind `json:"kind"`
		Category string      `json:"category"`
	}
	if err := decode(w, r, &body); err != nil {
		a.fail(w, r, err)
		return
	}
	a.editSession(w, r, http.StatusCreated, func(s *editor.Session) (any, error) {
		if s.Parent.Kind == models.ParentChecklist {
			if err := validateCategory(body.Category); err != nil {
				return nil, err
			}
			return s.AddItemIn(body.Category, body.Kind)
		}
		return s.AddItem(body.Kind)
	})
}

// UpdateItem merges a payload delta into an item. Body: {"delta": {...}}.
func (a *API) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Delta models.Payload `json:"delta"`
	}
	if err := decode(w, r, &body); err != nil {
		a.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	a.editSession(w, r, http.StatusOK, func(s *editor.Session) (any, error) {
		return s.UpdateItem(id, body.Delta)
	})
}

// DeleteItem removes an item from the working copy.
func (a *API) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.editSession(w, r, http.StatusOK, func(s *editor.Session) (any, error) {
		return nil, s.DeleteItem(id)
	})
}

// ReorderItems drops one item onto another. Body: {"source_id", "target_id"}.
func (a *API) ReorderItems(w http.ResponseWriter, r *http.Request) {
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
	a.editSession(w, r, http.StatusOK, func(s *editor.Session) (any, error) {
		_, err := s.ReorderItem(body.SourceID, body.TargetID)
		return nil, err
	})
}

// SetParentField sets one field on the parent. Body: {"name", "value"}.
func (a *API) SetParentField(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	}
	if err := decode(w, r, &body); err != nil {
		a.fail(w, r, err)
		return
	}
	if body.Name == "title" {
		title, _ := body.Value.(string)
		if err := validateTitle(title); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	a.editSession(w, r, http.StatusOK, func(s *editor.Session) (any, error) {
		return nil, s.SetParentField(body.Name, body.Value)
	})
}

// MoveSessionCategory moves a category up or down in a checklist session.
func (a *API) MoveSessionCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	dir := chi.URLParam(r, "dir")
	a.editSession(w, r, http.StatusOK, func(s *editor.Session) (any, error) {
		var err error
		switch dir {
		case "up":
			_, err = s.MoveCategoryUp(name)
		case "down":
			_, err = s.MoveCategoryDown(name)
		default:
			err = fmt.Errorf("%w: direction must be up or down", errInvalid)
		}
		return nil, err
	})
}

// SaveSession writes the working copy with a full replace. The session is
// stored afterwards in either case so LastError survives a failed save.
func (a *API) SaveSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := a.loadSession(ctx, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	saveErr := a.sync.CommitAll(ctx, s)
	if err := a.sessions.Put(ctx, s.Snapshot()); err != nil {
		a.fail(w, r, err)
		return
	}
	if saveErr != nil {
		a.fail(w, r, saveErr)
		return
	}

	a.sink.Notify(ctx, middleware.ActorFromCtx(ctx), "Saved", notify.SeverityInfo)
	writeJSON(w, http.StatusOK, viewSession(s))
}
