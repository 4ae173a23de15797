// Package query is the typed operation layer over the raw store: one
// file per entity, each exposing getters, finders, first-write-wins
// inserts and replace-on-conflict upserts.
package query

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tallyboard/tally/internal/store"
)

// Column accessors. The store returns TEXT as string, integers as
// int64 and NULL as nil; PostgreSQL adds bool and time.Time, which are
// normalized here so entity scanners stay backend-agnostic.

func stringField(row store.Row, col string) string {
	switch v := row[col].(type) {
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func stringPtr(row store.Row, col string) *string {
	if row[col] == nil {
		return nil
	}
	s := stringField(row, col)
	return &s
}

func intField(row store.Row, col string) int {
	switch v := row[col].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

func intPtr(row store.Row, col string) *int {
	if row[col] == nil {
		return nil
	}
	n := intField(row, col)
	return &n
}

func boolField(row store.Row, col string) bool {
	switch v := row[col].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	default:
		return false
	}
}

// mapField decodes a JSON object column; NULL and empty text are nil.
func mapField(row store.Row, col string) map[string]any {
	raw, ok := row[col].(string)
	if !ok || raw == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

func stringMapField(row store.Row, col string) map[string]string {
	raw, ok := row[col].(string)
	if !ok || raw == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

// jsonParam serializes a value for a JSON text column, mapping empty
// input to SQL NULL.
func jsonParam(v any) (any, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if len(m) == 0 {
			return nil, nil
		}
	case map[string]string:
		if len(m) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON column: %w", err)
	}
	return string(data), nil
}

// ptrParam flattens a *T into its value or SQL NULL.
func ptrParam[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func countResult(res store.Result) int {
	if len(res.Rows) == 0 {
		return 0
	}
	return intField(res.Rows[0], "count")
}
