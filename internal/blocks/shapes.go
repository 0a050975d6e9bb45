// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blocks

import (
	"time"

	"blockdesk/internal/models"
)

// Source render height bounds in pixels.
const (
	MinSourceHeight     = 100
	MaxSourceHeight     = 1000
	DefaultSourceHeight = 400
)

// Text is the typed view of a text block.
type Text struct {
	Heading   string
	Content   string
	Alignment string
	Size      string
}

// Image is the typed view of an image block.
type Image struct {
	Description string
	Images      []string
}

// Video is the typed view of a video block.
type Video struct {
	Source      string
	URL         string
	Title       string
	Description string
}

// Address is the typed view of an address block.
type Address struct {
	Name           string
	Address        string
	Latitude       any
	Longitude      any
	Phone          string
	Website        string
	ShowMap        bool
	ShowDirections bool
}

// Coordinates returns latitude and longitude as floats. ok is false when
// either is missing or not numeric.
func (a Address) Coordinates() (lat, lng float64, ok bool) {
	lat, okLat := numeric(a.Latitude)
	lng, okLng := numeric(a.Longitude)
	return lat, lng, okLat && okLng
}

// Button is the typed view of a button block.
type Button struct {
	Text   string
	URL    string
	Style  string
	Target string
}

// Source is the typed view of a raw markup/embed block.
type Source struct {
	Code   string
	Height any
}

// RenderHeight returns the height clamped to the advisory bounds, or the
// default when unset or not numeric.
func (s Source) RenderHeight() int {
	h, ok := numeric(s.Height)
	if !ok {
		return DefaultSourceHeight
	}
	return max(MinSourceHeight, min(MaxSourceHeight, int(h)))
}

// Task is the typed view of a checklist task.
type Task struct {
	Task        string
	Week        *int
	Notes       string
	Completed   bool
	CompletedAt *time.Time
	CompletedBy string
}

// AsText reads the text fields of p, ignoring anything of the wrong type.
func AsText(p models.Payload) Text {
	return Text{
		Heading:   str(p, "heading"),
		Content:   str(p, "content"),
		Alignment: strOr(p, "alignment", "left"),
		Size:      strOr(p, "size", "medium"),
	}
}

// AsImage reads the image fields of p.
func AsImage(p models.Payload) Image {
	img := Image{Description: str(p, "description")}
	switch list := p["images"].(type) {
	case []string:
		img.Images = append(img.Images, list...)
	case []any:
		for _, e := range list {
			if s, ok := e.(string); ok {
				img.Images = append(img.Images, s)
			}
		}
	}
	return img
}

// AsVideo reads the video fields of p.
func AsVideo(p models.Payload) Video {
	return Video{
		Source:      strOr(p, "source", "youtube"),
		URL:         str(p, "url"),
		Title:       str(p, "title"),
		Description: str(p, "description"),
	}
}

// AsAddress reads the address fields of p.
func AsAddress(p models.Payload) Address {
	return Address{
		Name:           str(p, "name"),
		Address:        str(p, "address"),
		Latitude:       p["latitude"],
		Longitude:      p["longitude"],
		Phone:          str(p, "phone"),
		Website:        str(p, "website"),
		ShowMap:        boolean(p, "show_map"),
		ShowDirections: boolean(p, "show_directions"),
	}
}

// AsButton reads the button fields of p.
func AsButton(p models.Payload) Button {
	return Button{
		Text:   str(p, "text"),
		URL:    str(p, "url"),
		Style:  strOr(p, "style", "primary"),
		Target: strOr(p, "target", "_self"),
	}
}

// AsSource reads the source fields of p.
func AsSource(p models.Payload) Source {
	return Source{Code: str(p, "code"), Height: p["height"]}
}

// AsTask reads the checklist task fields of p.
func AsTask(p models.Payload) Task {
	t := Task{
		Task:        str(p, "task"),
		Notes:       str(p, "notes"),
		Completed:   boolean(p, "completed"),
		CompletedBy: str(p, "completed_by"),
	}
	if n, ok := toFloat(p["week"]); ok {
		w := int(n)
		t.Week = &w
	}
	switch v := p["completed_at"].(type) {
	case time.Time:
		t.CompletedAt = &v
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			t.CompletedAt = &ts
		}
	}
	return t
}

// Defaults returns the starting payload for a freshly added item of kind.
func Defaults(kind models.Kind) models.Payload {
	switch kind {
	case models.KindText:
		return models.Payload{"heading": "", "content": "", "alignment": "left", "size": "medium"}
	case models.KindImage:
		return models.Payload{"description": "", "images": []any{}}
	case models.KindVideo:
		return models.Payload{"source": "youtube", "url": "", "title": "", "description": ""}
	case models.KindAddress:
		return models.Payload{
			"name": "", "address": "", "phone": "", "website": "",
			"show_map": true, "show_directions": true,
		}
	case models.KindButton:
		return models.Payload{"text": "", "url": "", "style": "primary", "target": "_self"}
	case models.KindSource:
		return models.Payload{"code": "", "height": DefaultSourceHeight}
	case models.KindTask:
		return models.Payload{"task": "", "notes": "", "completed": false}
	}
	return models.Payload{}
}

func str(p models.Payload, key string) string {
	s, _ := p[key].(string)
	return s
}

func strOr(p models.Payload, key, fallback string) string {
	if s := str(p, key); s != "" {
		return s
	}
	return fallback
}

func boolean(p models.Payload, key string) bool {
	b, _ := p[key].(bool)
	return b
}
