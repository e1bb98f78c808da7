// Package store defines the table-store contract used by every repository.
// A Client performs insert/select/update/delete against a named table of an
// external data service and returns rows as column maps. Drivers live in the
// postgrest and mysql sub-packages; Memory is an in-process driver.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Row is one table row keyed by column name.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Filter is an equality predicate on a column. A nil Value matches NULL.
type Filter struct {
	Column string
	Value  any
}

// Eq builds a column = value filter.
func Eq(column string, value any) Filter { return Filter{Column: column, Value: value} }

// IsNull builds a column IS NULL filter.
func IsNull(column string) Filter { return Filter{Column: column} }

// Order sorts a selection by a single column.
type Order struct {
	Column     string
	Descending bool
}

// Query describes a selection. Limit <= 0 means no limit.
type Query struct {
	Filters []Filter
	Order   *Order
	Limit   int
}

// Client is the set of primitives the external table service offers.
// Update and Delete return the affected rows; an empty slice means nothing
// matched the filters.
type Client interface {
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Update(ctx context.Context, table string, filters []Filter, patch Row) ([]Row, error)
	Delete(ctx context.Context, table string, filters []Filter) ([]Row, error)
}

// ErrConflict matches any *Error that reports a uniqueness violation.
var ErrConflict = errors.New("store: conflict")

// Error is returned by drivers when the data service rejects or fails a call.
type Error struct {
	Op        string // insert, select, update, delete
	Table     string
	Status    int    // transport status when the driver has one
	Code      string // service specific error code
	Message   string
	Transient bool // safe to retry
	Conflict  bool // unique constraint violation
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("store: %s %s: %s", e.Op, e.Table, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports conflicts as ErrConflict.
func (e *Error) Is(target error) bool { return target == ErrConflict && e.Conflict }

// IsTransient reports whether err is a store failure worth retrying.
func IsTransient(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Transient
	}
	return errors.Is(err, context.DeadlineExceeded)
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidIdent reports whether s is safe to use as a table or column name.
func ValidIdent(s string) bool { return identRe.MatchString(s) }

// CheckRequest validates the identifiers of a call before a driver executes it.
// Mutations without filters are refused so a bug can never touch a whole table.
func CheckRequest(op, table string, filters []Filter, row Row, requireFilter bool) error {
	if !ValidIdent(table) {
		return &Error{Op: op, Table: table, Message: "invalid table name"}
	}
	if requireFilter && len(filters) == 0 {
		return &Error{Op: op, Table: table, Message: "refusing unfiltered " + op}
	}
	for _, f := range filters {
		if !ValidIdent(f.Column) {
			return &Error{Op: op, Table: table, Message: fmt.Sprintf("invalid column %q", f.Column)}
		}
	}
	for col := range row {
		if !ValidIdent(col) {
			return &Error{Op: op, Table: table, Message: fmt.Sprintf("invalid column %q", col)}
		}
	}
	return nil
}
