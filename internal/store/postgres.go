// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// querier is the subset of *sql.DB and *sql.Tx used by Postgres.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres implements Rows on a PostgreSQL database opened with the pgx
// stdlib driver. Table and column names are checked against the schema and
// quoted with pgx.Identifier; values are always bound as parameters.
type Postgres struct {
	db *sql.DB
	q  querier
}

// NewPostgres creates a Postgres row store over the given pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, q: db}
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// castFor returns the parameter cast that lets text-encoded values bind to
// the column type.
func castFor(t ColumnType) string {
	switch t {
	case TypeInt:
		return "::integer"
	case TypeBool:
		return "::boolean"
	case TypeTime:
		return "::timestamptz"
	case TypeUUID:
		return "::uuid"
	case TypeJSON:
		return "::jsonb"
	}
	return "::text"
}

// selectList renders the column list; uuid and jsonb are read as text.
func selectList(t Table) string {
	parts := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		switch c.Type {
		case TypeUUID, TypeJSON:
			parts[i] = ident(c.Name) + "::text AS " + ident(c.Name)
		default:
			parts[i] = ident(c.Name)
		}
	}
	return strings.Join(parts, ", ")
}

// bindValue turns a normalized Row value into a driver argument.
func bindValue(c Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if c.Type == TypeJSON {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", c.Name, err)
		}
		return string(raw), nil
	}
	return v, nil
}

// where renders a WHERE clause starting at placeholder $start.
func where(t Table, filter Filter, start int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	norm, err := normalizeRow(t, filter)
	if err != nil {
		return "", nil, err
	}
	names := sortedKeys(norm)
	clauses := make([]string, 0, len(names))
	var args []any
	for _, name := range names {
		col, _ := t.Column(name)
		v := norm[name]
		if v == nil {
			clauses = append(clauses, ident(name)+" IS NULL")
			continue
		}
		bv, err := bindValue(col, v)
		if err != nil {
			return "", nil, err
		}
		args = append(args, bv)
		clauses = append(clauses, fmt.Sprintf("%s = $%d%s", ident(name), start+len(args)-1, castFor(col.Type)))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func orderBy(t Table, order []Order) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	parts := make([]string, len(order))
	for i, o := range order {
		if !t.Has(o.Column) {
			return "", fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, o.Column)
		}
		parts[i] = ident(o.Column)
		if o.Desc {
			parts[i] += " DESC"
		}
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// Select returns the rows of table matching filter.
func (p *Postgres) Select(ctx context.Context, table string, filter Filter, order ...Order) ([]Row, error) {
	return p.SelectPage(ctx, table, filter, Page{}, order...)
}

// SelectPage is Select with LIMIT and OFFSET applied by the database.
func (p *Postgres) SelectPage(ctx context.Context, table string, filter Filter, page Page, order ...Order) ([]Row, error) {
	t, err := Lookup(table)
	if err != nil {
		return nil, err
	}
	w, args, err := where(t, filter, 1)
	if err != nil {
		return nil, err
	}
	ob, err := orderBy(t, order)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + selectList(t) + " FROM " + ident(t.Name) + w + ob
	if page.Limit > 0 {
		args = append(args, page.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if page.Offset > 0 {
		args = append(args, page.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return scanRows(t, rows)
}

// Insert writes rows in a single statement and returns them as stored.
// Columns missing from a row take the column default.
func (p *Postgres) Insert(ctx context.Context, table string, rows ...Row) ([]Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	t, err := Lookup(table)
	if err != nil {
		return nil, err
	}

	norm := make([]Row, len(rows))
	colSet := make(map[string]bool)
	for i, r := range rows {
		if norm[i], err = normalizeRow(t, r); err != nil {
			return nil, err
		}
		if err := checkNotNull(t, norm[i]); err != nil {
			return nil, err
		}
		for name := range norm[i] {
			colSet[name] = true
		}
	}
	names := sortedKeys(colSet)
	if len(names) == 0 {
		return nil, fmt.Errorf("insert %s: no columns", table)
	}

	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = ident(n)
	}
	var args []any
	tuples := make([]string, len(norm))
	for i, r := range norm {
		vals := make([]string, len(names))
		for j, name := range names {
			v, ok := r[name]
			if !ok {
				vals[j] = "DEFAULT"
				continue
			}
			col, _ := t.Column(name)
			bv, err := bindValue(col, v)
			if err != nil {
				return nil, err
			}
			args = append(args, bv)
			vals[j] = fmt.Sprintf("$%d%s", len(args), castFor(col.Type))
		}
		tuples[i] = "(" + strings.Join(vals, ", ") + ")"
	}

	query := "INSERT INTO " + ident(t.Name) + " (" + strings.Join(quoted, ", ") + ") VALUES " +
		strings.Join(tuples, ", ") + " RETURNING " + selectList(t)
	res, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return scanRows(t, res)
}

// Update applies patch to every row matching filter and returns the
// updated rows. updated_at is refreshed when the table has it.
func (p *Postgres) Update(ctx context.Context, table string, patch Row, filter Filter) ([]Row, error) {
	t, err := Lookup(table)
	if err != nil {
		return nil, err
	}
	norm, err := normalizeRow(t, patch)
	if err != nil {
		return nil, err
	}
	if err := checkNotNull(t, norm); err != nil {
		return nil, err
	}
	var sets []string
	var args []any
	for _, name := range sortedKeys(norm) {
		col, _ := t.Column(name)
		bv, err := bindValue(col, norm[name])
		if err != nil {
			return nil, err
		}
		args = append(args, bv)
		sets = append(sets, fmt.Sprintf("%s = $%d%s", ident(name), len(args), castFor(col.Type)))
	}
	if t.Has("updated_at") && norm["updated_at"] == nil {
		sets = append(sets, ident("updated_at")+" = NOW()")
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("update %s: empty patch", table)
	}
	w, wargs, err := where(t, filter, len(args)+1)
	if err != nil {
		return nil, err
	}
	args = append(args, wargs...)

	query := "UPDATE " + ident(t.Name) + " SET " + strings.Join(sets, ", ") + w + " RETURNING " + selectList(t)
	res, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	return scanRows(t, res)
}

// Delete removes every row matching filter and returns how many went.
func (p *Postgres) Delete(ctx context.Context, table string, filter Filter) (int64, error) {
	t, err := Lookup(table)
	if err != nil {
		return 0, err
	}
	w, args, err := where(t, filter, 1)
	if err != nil {
		return 0, err
	}
	res, err := p.q.ExecContext(ctx, "DELETE FROM "+ident(t.Name)+w, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return res.RowsAffected()
}

// Count returns the number of rows matching filter.
func (p *Postgres) Count(ctx context.Context, table string, filter Filter) (int, error) {
	t, err := Lookup(table)
	if err != nil {
		return 0, err
	}
	w, args, err := where(t, filter, 1)
	if err != nil {
		return 0, err
	}
	var n int
	if err := p.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+ident(t.Name)+w, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// InTx runs fn inside a database transaction. Nested calls reuse the
// outer transaction.
func (p *Postgres) InTx(ctx context.Context, fn func(tx Rows) error) error {
	if p.db == nil {
		return fn(p)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Postgres{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// scanRows reads every row into the canonical Row representation.
func scanRows(t Table, rows *sql.Rows) ([]Row, error) {
	defer rows.Close()

	var out []Row
	for rows.Next() {
		dest := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			switch c.Type {
			case TypeInt:
				dest[i] = new(sql.NullInt64)
			case TypeBool:
				dest[i] = new(sql.NullBool)
			case TypeTime:
				dest[i] = new(sql.NullTime)
			default:
				dest[i] = new(sql.NullString)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.Name, err)
		}

		r := make(Row, len(t.Columns))
		for i, c := range t.Columns {
			switch v := dest[i].(type) {
			case *sql.NullInt64:
				if v.Valid {
					r[c.Name] = int(v.Int64)
				} else {
					r[c.Name] = nil
				}
			case *sql.NullBool:
				if v.Valid {
					r[c.Name] = v.Bool
				} else {
					r[c.Name] = nil
				}
			case *sql.NullTime:
				if v.Valid {
					r[c.Name] = v.Time.UTC()
				} else {
					r[c.Name] = nil
				}
			case *sql.NullString:
				switch {
				case !v.Valid:
					r[c.Name] = nil
				case c.Type == TypeJSON:
					var m map[string]any
					if err := json.Unmarshal([]byte(v.String), &m); err != nil {
						return nil, fmt.Errorf("decode %s.%s: %w", t.Name, c.Name, err)
					}
					r[c.Name] = m
				default:
					r[c.Name] = v.String
				}
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
