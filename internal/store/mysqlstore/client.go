// Package mysqlstore implements store.Client on top of database/sql with the
// MySQL driver. Filtered updates and deletes run inside one transaction that
// locks the matching rows, so ownership checks and mutations cannot interleave.
package mysqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/health-tracker/internal/store"
)

// Client executes table primitives against a MySQL database. keys maps each
// table to its primary key column, which is needed to re-read rows because
// MySQL has no RETURNING clause.
type Client struct {
	db   *sql.DB
	keys map[string]string
}

// New wraps an open database handle.
func New(db *sql.DB, keys map[string]string) *Client {
	return &Client{db: db, keys: keys}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (c *Client) Insert(ctx context.Context, table string, row store.Row) (store.Row, error) {
	if err := store.CheckRequest("insert", table, nil, row, false); err != nil {
		return nil, err
	}
	key, err := c.keyOf("insert", table)
	if err != nil {
		return nil, err
	}
	id, ok := row[key]
	if !ok || id == nil {
		return nil, &store.Error{Op: "insert", Table: table, Message: fmt.Sprintf("missing primary key %q", key)}
	}

	cols := sortedColumns(row)
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = quote(col)
		marks[i] = "?"
		args[i] = row[col]
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	if _, err := c.db.ExecContext(ctx, q, args...); err != nil {
		return nil, classify("insert", table, err)
	}

	rows, err := selectRows(ctx, c.db, table, []store.Filter{store.Eq(key, id)}, nil, 0, false)
	if err != nil {
		return nil, classify("insert", table, err)
	}
	if len(rows) == 0 {
		return nil, &store.Error{Op: "insert", Table: table, Message: "inserted row not found"}
	}
	return rows[0], nil
}

func (c *Client) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	if err := store.CheckRequest("select", table, q.Filters, nil, false); err != nil {
		return nil, err
	}
	if q.Order != nil && !store.ValidIdent(q.Order.Column) {
		return nil, &store.Error{Op: "select", Table: table, Message: fmt.Sprintf("invalid column %q", q.Order.Column)}
	}
	rows, err := selectRows(ctx, c.db, table, q.Filters, q.Order, q.Limit, false)
	if err != nil {
		return nil, classify("select", table, err)
	}
	return rows, nil
}

func (c *Client) Update(ctx context.Context, table string, filters []store.Filter, patch store.Row) ([]store.Row, error) {
	if err := store.CheckRequest("update", table, filters, patch, true); err != nil {
		return nil, err
	}
	key, err := c.keyOf("update", table)
	if err != nil {
		return nil, err
	}
	if _, ok := patch[key]; ok {
		return nil, &store.Error{Op: "update", Table: table, Message: fmt.Sprintf("primary key %q is immutable", key)}
	}

	var out []store.Row
	err = c.inTx(ctx, func(tx *sql.Tx) error {
		locked, err := selectRows(ctx, tx, table, filters, nil, 0, true)
		if err != nil {
			return err
		}
		out = []store.Row{}
		if len(locked) == 0 {
			return nil
		}
		if len(patch) > 0 {
			cols := sortedColumns(patch)
			sets := make([]string, len(cols))
			args := make([]any, 0, len(cols)+len(filters))
			for i, col := range cols {
				sets[i] = quote(col) + " = ?"
				args = append(args, patch[col])
			}
			where, wargs := whereClause(filters)
			args = append(args, wargs...)
			q := fmt.Sprintf("UPDATE %s SET %s%s", quote(table), strings.Join(sets, ", "), where)
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return err
			}
		}
		for _, r := range locked {
			fresh, err := selectRows(ctx, tx, table, []store.Filter{store.Eq(key, r[key])}, nil, 0, false)
			if err != nil {
				return err
			}
			out = append(out, fresh...)
		}
		return nil
	})
	if err != nil {
		return nil, classify("update", table, err)
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, table string, filters []store.Filter) ([]store.Row, error) {
	if err := store.CheckRequest("delete", table, filters, nil, true); err != nil {
		return nil, err
	}
	var out []store.Row
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		locked, err := selectRows(ctx, tx, table, filters, nil, 0, true)
		if err != nil {
			return err
		}
		out = locked
		if len(locked) == 0 {
			return nil
		}
		where, args := whereClause(filters)
		_, err = tx.ExecContext(ctx, "DELETE FROM "+quote(table)+where, args...)
		return err
	})
	if err != nil {
		return nil, classify("delete", table, err)
	}
	return out, nil
}

func (c *Client) keyOf(op, table string) (string, error) {
	key, ok := c.keys[table]
	if !ok {
		return "", &store.Error{Op: op, Table: table, Message: "unknown table"}
	}
	return key, nil
}

func (c *Client) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

func selectRows(ctx context.Context, q queryer, table string, filters []store.Filter, order *store.Order, limit int, lock bool) ([]store.Row, error) {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(quote(table))
	where, args := whereClause(filters)
	b.WriteString(where)
	if order != nil {
		b.WriteString(" ORDER BY ")
		b.WriteString(quote(order.Column))
		if order.Descending {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	if limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(limit))
	}
	if lock {
		b.WriteString(" FOR UPDATE")
	}

	rows, err := q.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func whereClause(filters []store.Filter) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		if f.Value == nil {
			parts = append(parts, quote(f.Column)+" IS NULL")
			continue
		}
		parts = append(parts, quote(f.Column)+" = ?")
		args = append(args, f.Value)
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func scanRows(rows *sql.Rows) ([]store.Row, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	out := []store.Row{}
	for rows.Next() {
		vals := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(store.Row, len(types))
		for i, ct := range types {
			row[ct.Name()] = normalizeValue(ct.DatabaseTypeName(), vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeValue converts text-protocol bytes to the Go type of the column.
func normalizeValue(dbType string, v any) any {
	switch t := v.(type) {
	case []byte:
		s := string(t)
		switch strings.ToUpper(dbType) {
		case "DECIMAL", "FLOAT", "DOUBLE":
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "BIGINT":
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		}
		return s
	case time.Time:
		if strings.EqualFold(dbType, "DATE") {
			return t.Format("2006-01-02")
		}
		return t.UTC()
	}
	return v
}

func classify(op, table string, err error) error {
	var se *store.Error
	if errors.As(err, &se) {
		return err
	}
	out := &store.Error{Op: op, Table: table, Message: err.Error(), Err: err}
	var me *mysql.MySQLError
	switch {
	case errors.As(err, &me):
		out.Code = strconv.Itoa(int(me.Number))
		out.Message = me.Message
		switch me.Number {
		case 1062: // duplicate entry
			out.Conflict = true
		case 1205, 1213: // lock wait timeout, deadlock
			out.Transient = true
		}
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, mysql.ErrInvalidConn), errors.Is(err, context.DeadlineExceeded):
		out.Transient = true
	}
	return out
}

func sortedColumns(row store.Row) []string {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func quote(ident string) string { return "`" + ident + "`" }
