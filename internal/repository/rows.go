package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/health-tracker/internal/store"
)

// decodeRow converts a column map into a model struct through its JSON tags.
// Drivers return numbers, strings and times in slightly different Go types;
// the JSON round trip accepts all of them.
func decodeRow(row store.Row, out any) error {
	b, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	return nil
}

func decodeRows[T any](rows []store.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var v T
		if err := decodeRow(row, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// first decodes the first row or reports ErrNotFound.
func first[T any](rows []store.Row) (*T, error) {
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	var v T
	if err := decodeRow(rows[0], &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// storeErr maps a store conflict onto ErrConflict while keeping the
// original error in the chain.
func storeErr(op string, err error) error {
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
