package durability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSnapshotServer mimics the snapshot endpoint with an in-memory file.
type fakeSnapshotServer struct {
	mu      sync.Mutex
	data    []byte
	failGet int
	failPut int
}

func (f *fakeSnapshotServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == DefaultUploadPath:
		if f.failPut != 0 {
			http.Error(w, `{"error":"Failed to save database file"}`, f.failPut)
			return
		}
		file, _, err := r.FormFile(UploadField)
		if err != nil {
			http.Error(w, `{"error":"No database file provided"}`, http.StatusBadRequest)
			return
		}
		defer file.Close()
		f.data, _ = io.ReadAll(file)
		w.Write([]byte(`{"success":true}`))
	case r.Method == http.MethodGet && r.URL.Path == DefaultSnapshotPath:
		if f.failGet != 0 {
			http.Error(w, "boom", f.failGet)
			return
		}
		if f.data == nil {
			http.NotFound(w, r)
			return
		}
		w.Write(f.data)
	default:
		http.NotFound(w, r)
	}
}

func newTestRemote(t *testing.T, f *fakeSnapshotServer) *RemoteMedium {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	m, err := NewRemoteMedium(RemoteConfig{BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestRemoteMedium(t *testing.T) {
	m := newTestRemote(t, &fakeSnapshotServer{})
	assertMediumRoundTrip(t, m)
	assert.Contains(t, m.Name(), DefaultSnapshotPath)
}

func TestRemoteMedium_ServerErrorOnLoadIsNotEmpty(t *testing.T) {
	m := newTestRemote(t, &fakeSnapshotServer{failGet: http.StatusInternalServerError})

	_, err := m.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSnapshot)
	assert.Contains(t, err.Error(), "500")
}

func TestRemoteMedium_GoneIsEmpty(t *testing.T) {
	m := newTestRemote(t, &fakeSnapshotServer{failGet: http.StatusGone})
	_, err := m.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestRemoteMedium_UploadFailure(t *testing.T) {
	m := newTestRemote(t, &fakeSnapshotServer{failPut: http.StatusInternalServerError})

	err := m.Save(context.Background(), []byte("snapshot"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to save database file")
}

func TestRemoteMedium_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m, err := NewRemoteMedium(RemoteConfig{BaseURL: url})
	require.NoError(t, err)

	_, err = m.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSnapshot, "transport failure must not look like an empty medium")
	assert.Error(t, m.Save(context.Background(), []byte("x")))
}

func TestNewRemoteMedium_InvalidURL(t *testing.T) {
	_, err := NewRemoteMedium(RemoteConfig{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
	_, err = NewRemoteMedium(RemoteConfig{BaseURL: ""})
	assert.Error(t, err)
}
