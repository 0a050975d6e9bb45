// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// ParentKind distinguishes the two collection owners.
type ParentKind string

const (
	ParentArticle   ParentKind = "article"
	ParentChecklist ParentKind = "checklist"
)

// ArticleStatus represents the publishing state of an article.
type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusPublished ArticleStatus = "published"
)

// parentFields lists the scalar fields an editor may set on each parent kind.
var parentFields = map[ParentKind][]string{
	ParentArticle:   {"title", "slug", "excerpt", "status", "cover_image"},
	ParentChecklist: {"title"},
}

// Parent is the record owning a collection. For articles ID is the article
// UUID (empty until first save); for checklists it is the board key.
type Parent struct {
	ID       string         `json:"id"`
	Kind     ParentKind     `json:"kind"`
	Fields   map[string]any `json:"fields"`
	Revision int            `json:"revision"`
}

// IsNew reports whether the parent has not been stored yet.
func (p Parent) IsNew() bool {
	return p.ID == ""
}

// HasField reports whether name is a settable field for this parent kind.
func (p Parent) HasField(name string) bool {
	for _, f := range parentFields[p.Kind] {
		if f == name {
			return true
		}
	}
	return false
}

// String returns a string field, or "" if it is unset or not a string.
func (p Parent) String(name string) string {
	s, _ := p.Fields[name].(string)
	return s
}

// Article is a stored article row.
type Article struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Slug       string        `json:"slug"`
	Excerpt    string        `json:"excerpt"`
	Status     ArticleStatus `json:"status"`
	CoverImage string        `json:"cover_image"`
	Revision   int           `json:"revision"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// IsPublished returns true if the article is in published status.
func (a *Article) IsPublished() bool {
	return a.Status == ArticleStatusPublished
}

// AsParent converts the stored article into an editable parent record.
func (a *Article) AsParent() Parent {
	return Parent{
		ID:   a.ID,
		Kind: ParentArticle,
		Fields: map[string]any{
			"title":       a.Title,
			"slug":        a.Slug,
			"excerpt":     a.Excerpt,
			"status":      string(a.Status),
			"cover_image": a.CoverImage,
		},
		Revision: a.Revision,
	}
}
