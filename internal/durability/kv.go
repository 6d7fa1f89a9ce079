package durability

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// DefaultKVKey is the key the snapshot is stored under.
const DefaultKVKey = "vendorSqliteDatabase"

// KVMedium stores the snapshot as base64 text under one key in a badger
// database. It is the local persistent key/value strategy.
type KVMedium struct {
	db   *badger.DB
	key  []byte
	name string
}

// badgerLogger adapts slog.Logger to the badger.Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (bl *badgerLogger) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenKVMedium opens (creating if needed) a badger database in dir.
// An empty dir opens an in-memory store. An empty key uses DefaultKVKey.
func OpenKVMedium(dir, key string, logger *slog.Logger) (*KVMedium, error) {
	if key == "" {
		key = DefaultKVKey
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	name := "kv:memory"
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create kv directory: %w", err)
		}
		opts = badger.DefaultOptions(dir).WithSyncWrites(true)
		name = "kv:" + dir
	}
	opts.Logger = &badgerLogger{logger: logger.With("component", "badger")}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}

	return &KVMedium{db: db, key: []byte(key), name: name}, nil
}

func (m *KVMedium) Load(ctx context.Context) ([]byte, error) {
	var text []byte
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(m.key)
		if err != nil {
			return err
		}
		text, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	snapshot := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(snapshot, text)
	if err != nil {
		return nil, &decodeError{reason: "stored value is not base64", err: err}
	}
	return snapshot[:n], nil
}

func (m *KVMedium) Save(ctx context.Context, snapshot []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := make([]byte, base64.StdEncoding.EncodedLen(len(snapshot)))
	base64.StdEncoding.Encode(text, snapshot)
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(m.key, text)
	})
}

// Delete removes the stored snapshot.
func (m *KVMedium) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(m.key)
	})
}

func (m *KVMedium) Name() string { return m.name }

func (m *KVMedium) Close() error {
	if m.db.IsClosed() {
		return nil
	}
	return m.db.Close()
}
