package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Client used for local development and tests.
// Keys maps each table to its primary key column; Unique lists additional
// columns that must be unique per table.
type Memory struct {
	mu     sync.RWMutex
	keys   map[string]string
	unique map[string][]string
	tables map[string][]memRow
	seq    uint64
}

type memRow struct {
	seq uint64
	row Row
}

// NewMemory builds an empty in-memory store.
func NewMemory(keys map[string]string, unique map[string][]string) *Memory {
	return &Memory{
		keys:   keys,
		unique: unique,
		tables: make(map[string][]memRow),
	}
}

func (m *Memory) Insert(ctx context.Context, table string, row Row) (Row, error) {
	if err := CheckRequest("insert", table, nil, row, false); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cols := m.unique[table]
	if key, ok := m.keys[table]; ok {
		if _, has := row[key]; !has {
			return nil, &Error{Op: "insert", Table: table, Message: fmt.Sprintf("missing primary key %q", key)}
		}
		cols = append([]string{key}, cols...)
	}
	for _, existing := range m.tables[table] {
		for _, col := range cols {
			v, ok := row[col]
			if ok && v != nil && sameValue(existing.row[col], v) {
				return nil, &Error{
					Op: "insert", Table: table, Conflict: true, Code: "unique_violation",
					Message: fmt.Sprintf("duplicate value for %s", col),
				}
			}
		}
	}
	m.seq++
	stored := row.Clone()
	m.tables[table] = append(m.tables[table], memRow{seq: m.seq, row: stored})
	return stored.Clone(), nil
}

func (m *Memory) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	if err := CheckRequest("select", table, q.Filters, nil, false); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	var matched []memRow
	for _, r := range m.tables[table] {
		if matches(r.row, q.Filters) {
			matched = append(matched, memRow{seq: r.seq, row: r.row.Clone()})
		}
	}
	m.mu.RUnlock()

	if q.Order != nil {
		col, desc := q.Order.Column, q.Order.Descending
		sort.SliceStable(matched, func(i, j int) bool {
			c := compareValues(matched[i].row[col], matched[j].row[col])
			if c == 0 {
				c = compareValues(matched[i].seq, matched[j].seq)
			}
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	out := make([]Row, 0, len(matched))
	for _, r := range matched {
		out = append(out, r.row)
	}
	return out, nil
}

func (m *Memory) Update(ctx context.Context, table string, filters []Filter, patch Row) ([]Row, error) {
	if err := CheckRequest("update", table, filters, patch, true); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if key, ok := m.keys[table]; ok {
		if _, has := patch[key]; has {
			return nil, &Error{Op: "update", Table: table, Message: fmt.Sprintf("primary key %q is immutable", key)}
		}
	}
	out := []Row{}
	for _, r := range m.tables[table] {
		if !matches(r.row, filters) {
			continue
		}
		for k, v := range patch {
			r.row[k] = v
		}
		out = append(out, r.row.Clone())
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, table string, filters []Filter) ([]Row, error) {
	if err := CheckRequest("delete", table, filters, nil, true); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Row{}
	kept := m.tables[table][:0]
	for _, r := range m.tables[table] {
		if matches(r.row, filters) {
			out = append(out, r.row)
			continue
		}
		kept = append(kept, r)
	}
	m.tables[table] = kept
	return out, nil
}

func matches(row Row, filters []Filter) bool {
	for _, f := range filters {
		v := row[f.Column]
		if f.Value == nil {
			if v != nil {
				return false
			}
			continue
		}
		if v == nil || !sameValue(v, f.Value) {
			return false
		}
	}
	return true
}

// sameValue compares the textual form so "42" and 42 match the way a REST
// filter would.
func sameValue(a, b any) bool {
	return fmt.Sprint(normalize(a)) == fmt.Sprint(normalize(b))
}

func normalize(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}

func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case int64:
		if y, ok := b.(int64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case uint64:
		if y, ok := b.(uint64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(normalize(a)), fmt.Sprint(normalize(b)))
}
