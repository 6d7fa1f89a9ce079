package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arslant84/vendori/internal/record"
)

// createTestEngine opens a fresh engine with the vendors table in place.
func createTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	require.NoError(t, e.EnsureSchema(context.Background()))
	return e
}

// insertTestRecord inserts a record through the derived INSERT statement.
func insertTestRecord(t *testing.T, e *Engine, r record.VendorRecord) {
	t.Helper()
	n, err := e.Execute(context.Background(), InsertSQL, r.Values()...)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

// listTestRecords reads every record in key order.
func listTestRecords(t *testing.T, e *Engine) []record.VendorRecord {
	t.Helper()
	rows, err := e.Query(context.Background(), SelectAllSQL)
	require.NoError(t, err)
	out := make([]record.VendorRecord, 0, len(rows))
	for _, row := range rows {
		r, err := record.FromValues(row)
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}
