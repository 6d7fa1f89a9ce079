package snapshotsrv

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arslant84/vendori/internal/config"
	"github.com/arslant84/vendori/internal/metrics"
)

// newTestServer returns a server writing into a temp public dir.
func newTestServer(t *testing.T, maxUpload int64) (*Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	cfg := config.ServerConfig{
		Addr:           "127.0.0.1:0",
		PublicDir:      t.TempDir(),
		SnapshotFile:   "vendors.db",
		MaxUploadBytes: maxUpload,
	}
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), m), m
}

// uploadCount reads vendori_server_uploads_total for one status class.
func uploadCount(t *testing.T, m *metrics.Metrics, class string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "vendori_server_uploads_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "status" && lp.GetValue() == class {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

// uploadRequest builds a multipart POST with data under field.
func uploadRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, "vendors.db")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/save-database", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
