// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package blocks maps each item kind to the payload shape it carries and
// checks payload maps against those shapes. Fields a kind does not declare
// are never rejected; they pass through to storage unchanged.
package blocks

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"blockdesk/internal/models"
)

// Mode selects how strictly payloads are checked.
type Mode string

const (
	// ModeStrict rejects declared fields holding the wrong type or an
	// out-of-set enum value. Null is rejected for notNull fields.
	ModeStrict Mode = "strict"
	// ModePermissive accepts any payload map.
	ModePermissive Mode = "permissive"
)

// ErrUnknownKind is returned for a kind outside the closed set.
var ErrUnknownKind = errors.New("unknown block kind")

// ValidationError describes the first field that failed validation.
type ValidationError struct {
	Kind   models.Kind
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Kind, e.Field, e.Reason)
}

type fieldType int

const (
	typeString fieldType = iota
	typeBool
	typeInt
	typeNumeric // number or numeric string
	typeStringList
	typeTime
	typeUUID
)

type field struct {
	name string
	typ  fieldType
	enum []string
	// notNull fields may be absent but never null.
	notNull bool
}

var schemas = map[models.Kind][]field{
	models.KindText: {
		{name: "heading", typ: typeString},
		{name: "content", typ: typeString},
		{name: "alignment", typ: typeString, enum: []string{"left", "center", "right", "justify"}},
		{name: "size", typ: typeString, enum: []string{"small", "medium", "large"}},
	},
	models.KindImage: {
		{name: "description", typ: typeString},
		{name: "images", typ: typeStringList},
	},
	models.KindVideo: {
		{name: "source", typ: typeString, enum: []string{"youtube", "vimeo", "upload"}},
		{name: "url", typ: typeString},
		{name: "title", typ: typeString},
		{name: "description", typ: typeString},
	},
	models.KindAddress: {
		{name: "name", typ: typeString},
		{name: "address", typ: typeString},
		{name: "latitude", typ: typeNumeric},
		{name: "longitude", typ: typeNumeric},
		{name: "phone", typ: typeString},
		{name: "website", typ: typeString},
		{name: "show_map", typ: typeBool},
		{name: "show_directions", typ: typeBool},
	},
	models.KindButton: {
		{name: "text", typ: typeString},
		{name: "url", typ: typeString},
		{name: "style", typ: typeString, enum: []string{"primary", "secondary", "outline"}},
		{name: "target", typ: typeString, enum: []string{"_self", "_blank"}},
	},
	models.KindSource: {
		{name: "code", typ: typeString},
		{name: "height", typ: typeNumeric},
	},
	models.KindTask: {
		{name: "task", typ: typeString, notNull: true},
		{name: "week", typ: typeInt},
		{name: "notes", typ: typeString, notNull: true},
		{name: "completed", typ: typeBool, notNull: true},
		{name: "completed_at", typ: typeTime},
		{name: "completed_by", typ: typeUUID},
	},
}

// Known reports whether kind belongs to the closed set.
func Known(kind models.Kind) bool {
	_, ok := schemas[kind]
	return ok
}

// Codec validates payloads and applies partial updates.
type Codec struct {
	Mode Mode
}

// NewCodec returns a codec in the given mode. Unrecognised modes fall back
// to strict.
func NewCodec(mode Mode) *Codec {
	if mode != ModePermissive {
		mode = ModeStrict
	}
	return &Codec{Mode: mode}
}

// Validate checks payload against the declared fields of kind. Absent
// fields are allowed, and so is null except for notNull fields. Unknown
// kinds are always rejected, even in permissive mode, because the kind set
// is closed.
func (c *Codec) Validate(kind models.Kind, payload models.Payload) error {
	fields, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if c.Mode == ModePermissive {
		return nil
	}
	for _, f := range fields {
		v, present := payload[f.name]
		if !present {
			continue
		}
		if v == nil {
			if f.notNull {
				return &ValidationError{Kind: kind, Field: f.name, Reason: "must not be null"}
			}
			continue
		}
		if reason := check(f, v); reason != "" {
			return &ValidationError{Kind: kind, Field: f.name, Reason: reason}
		}
	}
	return nil
}

// Apply merges delta into the item's payload and validates the result.
// On error the item is returned unchanged.
func (c *Codec) Apply(item models.Item, delta models.Payload) (models.Item, error) {
	patched := item.Patch(delta)
	if err := c.Validate(item.Kind, patched.Payload); err != nil {
		return item, err
	}
	return patched, nil
}

func check(f field, v any) string {
	switch f.typ {
	case typeString:
		s, ok := v.(string)
		if !ok {
			return "must be a string"
		}
		if len(f.enum) > 0 && s != "" && !slices.Contains(f.enum, s) {
			return fmt.Sprintf("must be one of %v", f.enum)
		}
	case typeBool:
		if _, ok := v.(bool); !ok {
			return "must be a boolean"
		}
	case typeInt:
		n, ok := toFloat(v)
		if !ok || n != float64(int64(n)) {
			return "must be an integer"
		}
	case typeNumeric:
		if _, ok := numeric(v); !ok {
			return "must be a number or numeric string"
		}
	case typeStringList:
		switch list := v.(type) {
		case []string:
		case []any:
			for _, e := range list {
				if _, ok := e.(string); !ok {
					return "must be a list of strings"
				}
			}
		default:
			return "must be a list of strings"
		}
	case typeTime:
		switch t := v.(type) {
		case time.Time:
		case string:
			if _, err := time.Parse(time.RFC3339, t); err != nil {
				return "must be an RFC 3339 timestamp"
			}
		default:
			return "must be an RFC 3339 timestamp"
		}
	case typeUUID:
		s, ok := v.(string)
		if !ok {
			return "must be a UUID string"
		}
		if _, err := uuid.Parse(s); err != nil {
			return "must be a UUID string"
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// numeric accepts numbers and strings that parse as numbers.
func numeric(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return toFloat(v)
}
