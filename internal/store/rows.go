// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides the row-based backend used by the persistence
// layer: select, insert, update, delete and count against a fixed set of
// tables, plus transactions. Postgres is the production implementation;
// Memory backs tests and the development "memory" backend.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by helpers that expect exactly one row.
	ErrNotFound = errors.New("not found")
	// ErrUnknownTable is returned for tables outside the schema.
	ErrUnknownTable = errors.New("unknown table")
	// ErrUnknownColumn is returned for columns outside a table's schema.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrInvalidValue is returned when a value cannot be stored in its
	// column: a wrong type, a malformed UUID or NULL in a NOT NULL column.
	ErrInvalidValue = errors.New("invalid value")
)

// Row is one record keyed by column name. UUID columns hold strings, JSON
// columns hold map[string]any, integer columns hold int and NULL is nil.
type Row map[string]any

// Filter is a conjunction of column equality tests. A nil value matches NULL.
type Filter map[string]any

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Asc orders by column ascending.
func Asc(column string) Order { return Order{Column: column} }

// Desc orders by column descending.
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// Page limits a select to Limit rows after skipping Offset. A zero Limit
// returns every remaining row.
type Page struct {
	Limit  int
	Offset int
}

// Rows is the backend row store. Every call is independently failable.
type Rows interface {
	Select(ctx context.Context, table string, filter Filter, order ...Order) ([]Row, error)
	SelectPage(ctx context.Context, table string, filter Filter, page Page, order ...Order) ([]Row, error)
	Insert(ctx context.Context, table string, rows ...Row) ([]Row, error)
	Update(ctx context.Context, table string, patch Row, filter Filter) ([]Row, error)
	Delete(ctx context.Context, table string, filter Filter) (int64, error)
	Count(ctx context.Context, table string, filter Filter) (int, error)

	// InTx runs fn against a transactional view of the store. If fn returns
	// an error nothing it wrote is kept.
	InTx(ctx context.Context, fn func(tx Rows) error) error
}

// SelectOne returns the single row matching filter, or ErrNotFound.
func SelectOne(ctx context.Context, rows Rows, table string, filter Filter) (Row, error) {
	found, err := rows.Select(ctx, table, filter)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}
