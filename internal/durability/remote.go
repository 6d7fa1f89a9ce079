package durability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Remote endpoint defaults, matching the snapshot server routes.
const (
	DefaultUploadPath   = "/api/save-database"
	DefaultSnapshotPath = "/vendors.db"
	UploadField         = "database"
	DefaultTimeout      = 30 * time.Second
)

// maxErrorBody bounds how much of an error response is quoted back.
const maxErrorBody = 512

// RemoteMedium uploads snapshots to an HTTP endpoint and fetches them back
// from a static path.
type RemoteMedium struct {
	client      *http.Client
	uploadURL   string
	snapshotURL string
}

// RemoteConfig configures a RemoteMedium.
type RemoteConfig struct {
	BaseURL      string
	UploadPath   string
	SnapshotPath string
	Timeout      time.Duration

	// Client overrides the HTTP client. Timeout is ignored when set.
	Client *http.Client
}

// NewRemoteMedium validates cfg and returns a remote medium.
func NewRemoteMedium(cfg RemoteConfig) (*RemoteMedium, error) {
	if cfg.UploadPath == "" {
		cfg.UploadPath = DefaultUploadPath
	}
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = DefaultSnapshotPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", cfg.BaseURL)
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &RemoteMedium{
		client:      client,
		uploadURL:   base.JoinPath(cfg.UploadPath).String(),
		snapshotURL: base.JoinPath(cfg.SnapshotPath).String(),
	}, nil
}

// Load fetches the snapshot. A missing file (404 or 410) means nothing was
// saved yet; any other non-2xx status is an error.
func (m *RemoteMedium) Load(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.snapshotURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, ErrNoSnapshot
	default:
		return nil, statusError("fetch snapshot", resp)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return b, nil
}

// Save uploads the snapshot as the multipart file field "database".
func (m *RemoteMedium) Save(ctx context.Context, snapshot []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(UploadField, "vendors.db")
	if err != nil {
		return fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(snapshot); err != nil {
		return fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.uploadURL, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError("upload snapshot", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (m *RemoteMedium) Name() string { return "remote:" + m.snapshotURL }

func (m *RemoteMedium) Close() error {
	m.client.CloseIdleConnections()
	return nil
}

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%s: %s: %s", op, resp.Status, strings.TrimSpace(string(msg)))
}
