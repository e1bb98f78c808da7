// Package repository maps domain operations onto store.Client table calls.
// These sentinel values let higher layers such as the service and handlers
// distinguish failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when no row matches. For owner scoped lookups it
// covers both a missing record and a record owned by someone else.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with an existing row, such
// as a duplicate key. Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
