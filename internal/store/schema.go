// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Table names.
const (
	TableArticles            = "articles"
	TableArticleBlocks       = "article_blocks"
	TableChecklistTasks      = "checklist_tasks"
	TableChecklistCategories = "checklist_categories"
)

// ColumnType is the storage type of a column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInt
	TypeBool
	TypeTime
	TypeUUID
	TypeJSON
)

// Column describes one column of a table.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
	// Generated columns get a value from the backend when omitted on insert.
	Generated bool
}

// Table describes a whitelisted table.
type Table struct {
	Name    string
	Columns []Column
}

// Column looks up a column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Has reports whether the table has the named column.
func (t Table) Has(name string) bool {
	_, ok := t.Column(name)
	return ok
}

var timestamps = []Column{
	{Name: "created_at", Type: TypeTime, Generated: true},
	{Name: "updated_at", Type: TypeTime, Generated: true},
}

var schema = map[string]Table{
	TableArticles: {Name: TableArticles, Columns: append([]Column{
		{Name: "id", Type: TypeUUID, Generated: true},
		{Name: "title", Type: TypeText},
		{Name: "slug", Type: TypeText},
		{Name: "excerpt", Type: TypeText},
		{Name: "status", Type: TypeText},
		{Name: "cover_image", Type: TypeText},
		{Name: "revision", Type: TypeInt},
	}, timestamps...)},
	TableArticleBlocks: {Name: TableArticleBlocks, Columns: append([]Column{
		{Name: "id", Type: TypeUUID, Generated: true},
		{Name: "article_id", Type: TypeUUID},
		{Name: "kind", Type: TypeText},
		{Name: "position", Type: TypeInt},
		{Name: "payload", Type: TypeJSON},
		{Name: "revision", Type: TypeInt},
	}, timestamps...)},
	TableChecklistTasks: {Name: TableChecklistTasks, Columns: append([]Column{
		{Name: "id", Type: TypeUUID, Generated: true},
		{Name: "board_id", Type: TypeText},
		{Name: "category", Type: TypeText},
		{Name: "order_index", Type: TypeInt},
		{Name: "task", Type: TypeText},
		{Name: "week", Type: TypeInt, Nullable: true},
		{Name: "notes", Type: TypeText},
		{Name: "completed", Type: TypeBool},
		{Name: "completed_at", Type: TypeTime, Nullable: true},
		{Name: "completed_by", Type: TypeUUID, Nullable: true},
		{Name: "extra", Type: TypeJSON},
		{Name: "revision", Type: TypeInt},
	}, timestamps...)},
	TableChecklistCategories: {Name: TableChecklistCategories, Columns: append([]Column{
		{Name: "id", Type: TypeUUID, Generated: true},
		{Name: "board_id", Type: TypeText},
		{Name: "name", Type: TypeText},
		{Name: "sort_order", Type: TypeInt},
	}, timestamps...)},
}

// Lookup returns the schema of a whitelisted table.
func Lookup(table string) (Table, error) {
	t, ok := schema[table]
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return t, nil
}

// normalize converts a caller-supplied value to the canonical Row
// representation of the column type.
func normalize(col Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	bad := func() (any, error) {
		return nil, fmt.Errorf("%w: column %s: unsupported value %T", ErrInvalidValue, col.Name, v)
	}
	switch col.Type {
	case TypeText:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return bad()
	case TypeInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int32:
			return int(n), nil
		case int64:
			return int(n), nil
		case float64:
			if n != float64(int64(n)) {
				return bad()
			}
			return int(n), nil
		case *int:
			if n == nil {
				return nil, nil
			}
			return *n, nil
		case string:
			i, err := strconv.Atoi(n)
			if err != nil {
				return bad()
			}
			return i, nil
		}
		return bad()
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return bad()
	case TypeTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case *time.Time:
			if t == nil {
				return nil, nil
			}
			return t.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return bad()
			}
			return parsed.UTC(), nil
		}
		return bad()
	case TypeUUID:
		switch u := v.(type) {
		case uuid.UUID:
			return u.String(), nil
		case string:
			parsed, err := uuid.Parse(u)
			if err != nil {
				return nil, fmt.Errorf("%w: column %s: %v", ErrInvalidValue, col.Name, err)
			}
			return parsed.String(), nil
		}
		return bad()
	case TypeJSON:
		// Round-trip so the stored value never aliases caller maps.
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", ErrInvalidValue, col.Name, err)
		}
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", ErrInvalidValue, col.Name, err)
		}
		return out, nil
	}
	return bad()
}

// normalizeRow validates every key of r against t and normalizes its value.
func normalizeRow(t Table, r map[string]any) (Row, error) {
	out := make(Row, len(r))
	for name, v := range r {
		col, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, name)
		}
		nv, err := normalize(col, v)
		if err != nil {
			return nil, err
		}
		out[name] = nv
	}
	return out, nil
}

// checkNotNull rejects NULL values for columns declared NOT NULL. Filters
// are not checked: a nil filter value matches NULL.
func checkNotNull(t Table, r Row) error {
	for name, v := range r {
		if v != nil {
			continue
		}
		if col, _ := t.Column(name); !col.Nullable {
			return fmt.Errorf("%w: column %s.%s is not nullable", ErrInvalidValue, t.Name, name)
		}
	}
	return nil
}
