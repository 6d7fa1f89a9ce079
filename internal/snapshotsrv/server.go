package snapshotsrv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/arslant84/vendori/internal/config"
	"github.com/arslant84/vendori/internal/durability"
	"github.com/arslant84/vendori/internal/metrics"
)

const (
	// multipartMemory is how much of an upload is buffered in memory before
	// spilling to temp files.
	multipartMemory = 8 << 20

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second

	// RequestIDHeader carries the per-request id back to the client.
	RequestIDHeader = "X-Request-Id"
)

// Response bodies, kept identical to what existing clients expect.
const (
	msgNoFile     = "No database file provided"
	msgTooLarge   = "Database file too large"
	msgSaveFailed = "Failed to save database file"
)

// Server publishes uploaded snapshots.
type Server struct {
	addr      string
	target    string
	maxUpload int64
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New builds a server from cfg. A nil logger uses slog.Default; nil metrics
// disable /metrics and upload counters.
func New(cfg config.ServerConfig, logger *slog.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:      cfg.Addr,
		target:    filepath.Join(cfg.PublicDir, cfg.SnapshotFile),
		maxUpload: cfg.MaxUploadBytes,
		logger:    logger,
		metrics:   m,
	}
}

// Target returns the path uploads are written to.
func (s *Server) Target() string {
	return s.target
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+durability.DefaultUploadPath, s.handleSave)
	mux.HandleFunc("GET /"+filepath.Base(s.target), s.handleSnapshot)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})
	mux.Handle("GET /metrics", s.metrics.Handler())
	return s.withRequestID(mux)
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("snapshot server listening", "addr", ln.Addr().String(), "target", s.target)
		serverErr <- httpServer.Serve(ln)
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down snapshot server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		s.logger.Info("snapshot server stopped")
		return nil
	}
}

type loggerKey struct{}

// withRequestID tags every request with a fresh id, echoed in the response
// header and attached to the request logger.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)
		logger := s.logger.With("request_id", id)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), loggerKey{}, logger)))
	})
}

func (s *Server) log(r *http.Request) *slog.Logger {
	if l, ok := r.Context().Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return s.logger
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	logger := s.log(r)
	if r.ContentLength > s.maxUpload {
		logger.Warn("upload rejected", "size", humanize.Bytes(uint64(r.ContentLength)), "limit", humanize.Bytes(uint64(s.maxUpload)))
		s.fail(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("upload rejected", "limit", humanize.Bytes(uint64(s.maxUpload)))
			s.fail(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		logger.Warn("upload rejected", "error", err)
		s.fail(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile(durability.UploadField)
	if err != nil {
		s.fail(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("read upload", "error", err)
		s.fail(w, http.StatusInternalServerError, msgSaveFailed)
		return
	}

	if err := durability.WriteFileAtomic(s.target, data); err != nil {
		logger.Error("save snapshot", "path", s.target, "error", err)
		s.fail(w, http.StatusInternalServerError, msgSaveFailed)
		return
	}

	logger.Info("snapshot saved", "path", s.target, "size", humanize.Bytes(uint64(len(data))))
	s.metrics.ObserveUpload(http.StatusOK, int64(len(data)))
	writeJSON(r.Context(), w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.target)
	if errors.Is(err, os.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.log(r).Error("open snapshot", "path", s.target, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		s.log(r).Error("stat snapshot", "path", s.target, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string) {
	s.metrics.ObserveUpload(status, 0)
	writeJSON(context.Background(), w, status, map[string]string{"error": msg})
}

// writeJSON encodes the given value as JSON and writes it to the response writer.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(value); err != nil {
		slog.Default().ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}
