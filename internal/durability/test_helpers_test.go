package durability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arslant84/vendori/internal/record"
	"github.com/arslant84/vendori/internal/store"
)

// testImage returns a real SQLite image holding one vendor row.
func testImage(t *testing.T) []byte {
	t.Helper()
	ctx := context.Background()
	e, err := store.Open(ctx)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.EnsureSchema(ctx))
	_, err = e.Execute(ctx, store.InsertSQL, record.VendorRecord{VendorName: "Acme Corp"}.Values()...)
	require.NoError(t, err)

	image, err := e.ExportSnapshot(ctx)
	require.NoError(t, err)
	return image
}

// assertMediumRoundTrip checks the Medium contract shared by all strategies.
func assertMediumRoundTrip(t *testing.T, m Medium) {
	t.Helper()
	ctx := context.Background()

	_, err := m.Load(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot, "empty medium must report ErrNoSnapshot")

	require.NoError(t, m.Save(ctx, []byte("first")))
	got, err := m.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("first"), got)

	require.NoError(t, m.Save(ctx, []byte("second, longer snapshot")))
	got, err = m.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("second, longer snapshot"), got, "save must overwrite the whole snapshot")
}
