package durability

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMedium(t *testing.T) {
	m := NewMemoryMedium()
	assertMediumRoundTrip(t, m)
	assert.Equal(t, 2, m.Saves())
	assert.Equal(t, "memory", m.Name())
}

func TestMemoryMedium_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryMedium()
	require.NoError(t, m.Save(ctx, []byte("abc")))

	got, err := m.Load(ctx)
	require.NoError(t, err)
	got[0] = 'x'

	again, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestFileMedium(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "vendors.db")
	m := NewFileMedium(path)
	assertMediumRoundTrip(t, m)

	assert.Equal(t, path, m.Path())
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestFileMedium_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	m := NewFileMedium(filepath.Join(dir, "vendors.db"))
	for i := 0; i < 3; i++ {
		require.NoError(t, m.Save(context.Background(), []byte("snapshot")))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "vendors.db", entries[0].Name())
}

func TestFileMedium_SaveIntoUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// A regular file where a directory is expected.
	m := NewFileMedium(filepath.Join(blocker, "vendors.db"))
	assert.Error(t, m.Save(context.Background(), []byte("snapshot")))
}

func TestFileMedium_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewFileMedium(filepath.Join(t.TempDir(), "vendors.db"))
	assert.ErrorIs(t, m.Save(ctx, []byte("x")), context.Canceled)
}

func TestKVMedium_InMemory(t *testing.T) {
	m, err := OpenKVMedium("", "", nil)
	require.NoError(t, err)
	defer m.Close()

	assertMediumRoundTrip(t, m)
	assert.Equal(t, "kv:memory", m.Name())
}

func TestKVMedium_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m, err := OpenKVMedium(dir, "custom", nil)
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx, []byte{0, 1, 2, 255}))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "close must be idempotent")

	m, err = OpenKVMedium(dir, "custom", nil)
	require.NoError(t, err)
	defer m.Close()

	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 255}, got)

	require.NoError(t, m.Delete(ctx))
	_, err = m.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}
