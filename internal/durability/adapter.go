package durability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/arslant84/vendori/internal/store"
)

// Adapter bridges engine snapshots and a Medium.
type Adapter struct {
	medium   Medium
	compress bool
	logger   *slog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithCompression stores snapshots as lz4 frames.
func WithCompression(on bool) AdapterOption {
	return func(a *Adapter) {
		a.compress = on
	}
}

// WithAdapterLogger sets the adapter logger.
func WithAdapterLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAdapter wraps a medium.
func NewAdapter(m Medium, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		medium: m,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("medium", m.Name())
	return a
}

// MediumName returns the wrapped medium's name.
func (a *Adapter) MediumName() string {
	return a.medium.Name()
}

// Load returns the stored SQLite image.
//
// Returns found=false with a nil error when nothing was saved yet. Medium
// failures are *AdapterIOError; undecodable bytes are
// *store.SnapshotCorruptError.
func (a *Adapter) Load(ctx context.Context) (image []byte, found bool, err error) {
	raw, err := a.medium.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		a.logger.Debug("no stored snapshot")
		return nil, false, nil
	}

	var de *decodeError
	if errors.As(err, &de) {
		return nil, false, &store.SnapshotCorruptError{Reason: de.reason, Err: de.err}
	}
	if err != nil {
		return nil, false, &AdapterIOError{Op: "load", Medium: a.medium.Name(), Err: err}
	}

	image, de = decodeSnapshot(raw)
	if de != nil {
		return nil, false, &store.SnapshotCorruptError{Reason: de.reason, Size: len(raw), Err: de.err}
	}

	a.logger.Debug("snapshot loaded", "bytes", len(raw))
	return image, true, nil
}

// Save encodes and writes a SQLite image, replacing whatever was stored.
// It returns only after the medium reports the write complete.
func (a *Adapter) Save(ctx context.Context, image []byte) error {
	encoded, err := encodeSnapshot(image, a.compress)
	if err != nil {
		return &AdapterIOError{Op: "save", Medium: a.medium.Name(), Err: err}
	}
	if err := a.medium.Save(ctx, encoded); err != nil {
		return &AdapterIOError{Op: "save", Medium: a.medium.Name(), Err: err}
	}
	a.logger.Debug("snapshot saved", "bytes", len(encoded), "image_bytes", len(image))
	return nil
}

// Discard removes the stored snapshot so the next Load finds nothing.
// Returns ErrDeleteUnsupported when the medium has no delete operation.
func (a *Adapter) Discard(ctx context.Context) error {
	d, ok := a.medium.(Deleter)
	if !ok {
		return ErrDeleteUnsupported
	}
	if err := d.Delete(ctx); err != nil {
		return &AdapterIOError{Op: "delete", Medium: a.medium.Name(), Err: err}
	}
	a.logger.Debug("snapshot deleted")
	return nil
}

// Close releases the medium.
func (a *Adapter) Close() error {
	return a.medium.Close()
}
