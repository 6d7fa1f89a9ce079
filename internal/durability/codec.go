package durability

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/arslant84/vendori/internal/store"
)

// lz4FrameMagic starts every lz4 frame (0x184D2204, little endian).
var lz4FrameMagic = []byte{0x04, 0x22, 0x4D, 0x18}

// decodeError is a stored value that cannot be turned back into a snapshot.
// Adapter reports it as a store.SnapshotCorruptError.
type decodeError struct {
	reason string
	err    error
}

func (e *decodeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.reason, e.err)
	}
	return e.reason
}

func (e *decodeError) Unwrap() error {
	return e.err
}

// encodeSnapshot optionally compresses a SQLite image into an lz4 frame.
func encodeSnapshot(image []byte, compress bool) ([]byte, error) {
	if !compress {
		return image, nil
	}
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(image); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeSnapshot accepts either a raw SQLite image or an lz4 frame holding
// one, told apart by their magic bytes.
func decodeSnapshot(b []byte) ([]byte, *decodeError) {
	switch {
	case store.IsImage(b):
		return b, nil
	case bytes.HasPrefix(b, lz4FrameMagic):
		image, err := io.ReadAll(lz4.NewReader(bytes.NewReader(b)))
		if err != nil {
			return nil, &decodeError{reason: "lz4 frame", err: err}
		}
		if !store.IsImage(image) {
			return nil, &decodeError{reason: "lz4 frame does not hold a SQLite image"}
		}
		return image, nil
	default:
		return nil, &decodeError{reason: "unrecognized snapshot encoding"}
	}
}
