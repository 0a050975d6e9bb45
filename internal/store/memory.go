// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Op names a Memory operation, used by the fault hook.
type Op string

const (
	OpSelect Op = "select"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpCount  Op = "count"
)

// Memory is an in-process implementation of Rows. A transaction snapshots
// every table and restores the snapshot if fn fails. Writes made outside
// a transaction wait until the running one finishes, so a rollback never
// discards them. Reads do not wait and may observe uncommitted rows.
type Memory struct {
	mu     sync.Mutex
	txMu   sync.RWMutex
	tables map[string][]Row

	// Fault, when set, is consulted before every operation. A non-nil
	// return fails the operation without touching data.
	Fault func(op Op, table string) error

	now func() time.Time
}

// NewMemory returns an empty in-memory row store.
func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string][]Row),
		now:    time.Now,
	}
}

func (m *Memory) fault(op Op, table string) error {
	m.mu.Lock()
	hook := m.Fault
	m.mu.Unlock()
	if hook == nil {
		return nil
	}
	if err := hook(op, table); err != nil {
		return fmt.Errorf("%s %s: %w", op, table, err)
	}
	return nil
}

// Select returns copies of the rows matching filter.
func (m *Memory) Select(ctx context.Context, table string, filter Filter, order ...Order) ([]Row, error) {
	return m.SelectPage(ctx, table, filter, Page{}, order...)
}

// SelectPage returns one page of the rows Select would return.
func (m *Memory) SelectPage(_ context.Context, table string, filter Filter, page Page, order ...Order) ([]Row, error) {
	t, err := Lookup(table)
	if err != nil {
		return nil, err
	}
	if err := m.fault(OpSelect, table); err != nil {
		return nil, err
	}
	f, err := normalizeRow(t, filter)
	if err != nil {
		return nil, err
	}
	for _, o := range order {
		if !t.Has(o.Column) {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, o.Column)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Row
	for _, r := range m.tables[table] {
		if matches(r, f) {
			out = append(out, copyRow(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range order {
			c := compare(out[i][o.Column], out[j][o.Column])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return paginate(out, page), nil
}

// Insert stores rows, filling generated columns and zero values.
func (m *Memory) Insert(_ context.Context, table string, rows ...Row) ([]Row, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()
	return m.insert(table, rows)
}

func (m *Memory) insert(table string, rows []Row) ([]Row, error) {
	t, err := Lookup(table)
	if err != nil {
		return nil, err
	}
	if err := m.fault(OpInsert, table); err != nil {
		return nil, err
	}

	prepared := make([]Row, 0, len(rows))
	now := m.now().UTC()
	for _, r := range rows {
		norm, err := normalizeRow(t, r)
		if err != nil {
			return nil, err
		}
		if err := checkNotNull(t, norm); err != nil {
			return nil, err
		}
		full := make(Row, len(t.Columns))
		for _, c := range t.Columns {
			if v, ok := norm[c.Name]; ok {
				full[c.Name] = v
				continue
			}
			full[c.Name] = zeroValue(c, now)
		}
		prepared = append(prepared, full)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Row, len(prepared))
	for i, r := range prepared {
		m.tables[table] = append(m.tables[table], r)
		out[i] = copyRow(r)
	}
	return out, nil
}

// Update applies patch to matching rows and returns the new versions.
func (m *Memory) Update(_ context.Context, table string, patch Row, filter Filter) ([]Row, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()
	return m.update(table, patch, filter)
}

func (m *Memory) update(table string, patch Row, filter Filter) ([]Row, error) {
	t, err := Lookup(table)
	if err != nil {
		return nil, err
	}
	if err := m.fault(OpUpdate, table); err != nil {
		return nil, err
	}
	p, err := normalizeRow(t, patch)
	if err != nil {
		return nil, err
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("update %s: empty patch", table)
	}
	if err := checkNotNull(t, p); err != nil {
		return nil, err
	}
	f, err := normalizeRow(t, filter)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Row
	for _, r := range m.tables[table] {
		if !matches(r, f) {
			continue
		}
		for k, v := range p {
			r[k] = v
		}
		if t.Has("updated_at") {
			if _, ok := p["updated_at"]; !ok {
				r["updated_at"] = m.now().UTC()
			}
		}
		out = append(out, copyRow(r))
	}
	return out, nil
}

// Delete removes matching rows.
func (m *Memory) Delete(_ context.Context, table string, filter Filter) (int64, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()
	return m.delete(table, filter)
}

func (m *Memory) delete(table string, filter Filter) (int64, error) {
	t, err := Lookup(table)
	if err != nil {
		return 0, err
	}
	if err := m.fault(OpDelete, table); err != nil {
		return 0, err
	}
	f, err := normalizeRow(t, filter)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.tables[table][:0]
	var n int64
	for _, r := range m.tables[table] {
		if matches(r, f) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.tables[table] = kept
	return n, nil
}

// Count returns the number of matching rows.
func (m *Memory) Count(ctx context.Context, table string, filter Filter) (int, error) {
	if err := m.fault(OpCount, table); err != nil {
		return 0, err
	}
	t, err := Lookup(table)
	if err != nil {
		return 0, err
	}
	f, err := normalizeRow(t, filter)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, r := range m.tables[table] {
		if matches(r, f) {
			n++
		}
	}
	return n, nil
}

// InTx serializes transactions and rolls every table back if fn fails.
// Writes through m block until fn returns; fn must write through tx.
func (m *Memory) InTx(_ context.Context, fn func(tx Rows) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := make(map[string][]Row, len(m.tables))
	for name, rows := range m.tables {
		cp := make([]Row, len(rows))
		for i, r := range rows {
			cp[i] = copyRow(r)
		}
		snapshot[name] = cp
	}
	m.mu.Unlock()

	if err := fn(memTx{m}); err != nil {
		m.mu.Lock()
		m.tables = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// memTx is the view handed to an InTx callback. It writes without
// taking txMu, which the enclosing InTx already holds.
type memTx struct {
	m *Memory
}

func (tx memTx) Select(ctx context.Context, table string, filter Filter, order ...Order) ([]Row, error) {
	return tx.m.Select(ctx, table, filter, order...)
}

func (tx memTx) SelectPage(ctx context.Context, table string, filter Filter, page Page, order ...Order) ([]Row, error) {
	return tx.m.SelectPage(ctx, table, filter, page, order...)
}

func (tx memTx) Insert(_ context.Context, table string, rows ...Row) ([]Row, error) {
	return tx.m.insert(table, rows)
}

func (tx memTx) Update(_ context.Context, table string, patch Row, filter Filter) ([]Row, error) {
	return tx.m.update(table, patch, filter)
}

func (tx memTx) Delete(_ context.Context, table string, filter Filter) (int64, error) {
	return tx.m.delete(table, filter)
}

func (tx memTx) Count(ctx context.Context, table string, filter Filter) (int, error) {
	return tx.m.Count(ctx, table, filter)
}

// InTx inside a transaction joins it.
func (tx memTx) InTx(_ context.Context, fn func(tx Rows) error) error {
	return fn(tx)
}

func paginate(rows []Row, page Page) []Row {
	if page.Offset > 0 {
		if page.Offset >= len(rows) {
			return nil
		}
		rows = rows[page.Offset:]
	}
	if page.Limit > 0 && page.Limit < len(rows) {
		rows = rows[:page.Limit]
	}
	return rows
}

func zeroValue(c Column, now time.Time) any {
	if c.Generated {
		switch c.Type {
		case TypeUUID:
			return uuid.NewString()
		case TypeTime:
			return now
		}
	}
	if c.Nullable {
		return nil
	}
	switch c.Type {
	case TypeInt:
		return 0
	case TypeBool:
		return false
	case TypeJSON:
		return map[string]any{}
	case TypeTime:
		return now
	}
	return ""
}

func matches(r Row, f Row) bool {
	for k, want := range f {
		if compare(r[k], want) != 0 {
			return false
		}
	}
	return true
}

// compare orders two canonical values of the same column. nil sorts first.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch av := a.(type) {
	case int:
		if bv, ok := b.(int); ok {
			return av - bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}
	// JSON and mismatched types compare by encoding.
	ra, _ := json.Marshal(a)
	rb, _ := json.Marshal(b)
	return strings.Compare(string(ra), string(rb))
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		if m, ok := v.(map[string]any); ok {
			raw, _ := json.Marshal(m)
			var cp map[string]any
			_ = json.Unmarshal(raw, &cp)
			v = cp
		}
		out[k] = v
	}
	return out
}
