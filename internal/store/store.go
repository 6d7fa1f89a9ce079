package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// driverName is the database/sql driver registered by mattn/go-sqlite3.
const driverName = "sqlite3"

// snapshotSchema is the attached database name that snapshots cover.
const snapshotSchema = "main"

// ErrClosed is returned by calls on a closed engine.
var ErrClosed = errors.New("engine closed")

// Row is one result row. Every column in the vendors table is TEXT, so rows
// are scanned as nullable strings.
type Row []sql.NullString

// Engine is an in-memory SQLite database pinned to one connection.
type Engine struct {
	id     string
	logger *slog.Logger

	mu     sync.Mutex
	db     *sql.DB
	conn   *sql.Conn
	closed bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for execution diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Open creates an empty in-memory engine.
// Failures are reported as *EngineLoadError.
func Open(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		id:     uuid.NewString(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	dsn := fmt.Sprintf("file:vendori-%s?mode=memory&cache=private", e.id)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, &EngineLoadError{Err: fmt.Errorf("open database: %w", err)}
	}

	// The in-memory database belongs to one connection; never let the pool
	// hand out or recycle a second one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, &EngineLoadError{Err: fmt.Errorf("connect: %w", err)}
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, &EngineLoadError{Err: fmt.Errorf("ping: %w", err)}
	}

	e.db = db
	e.conn = conn
	e.logger = e.logger.With("engine", e.id)
	return e, nil
}

// LoadFromSnapshot rebuilds an engine from bytes produced by ExportSnapshot.
//
// Malformed bytes yield *SnapshotCorruptError; a failure to bring up the
// engine itself yields *EngineLoadError. On any error no engine is returned.
func LoadFromSnapshot(ctx context.Context, snapshot []byte, opts ...Option) (*Engine, error) {
	if err := checkHeader(snapshot); err != nil {
		return nil, err
	}

	e, err := Open(ctx, opts...)
	if err != nil {
		return nil, err
	}

	if err := e.deserialize(ctx, snapshot); err != nil {
		e.Close()
		return nil, err
	}

	if err := e.verify(ctx); err != nil {
		e.Close()
		var se *SnapshotCorruptError
		if errors.As(err, &se) && se.Size == 0 {
			se.Size = len(snapshot)
		}
		return nil, err
	}

	return e, nil
}

// ID returns the engine instance identifier used in logs.
func (e *Engine) ID() string {
	return e.id
}

// EnsureSchema creates the vendors table if it does not exist.
// This function is idempotent.
func (e *Engine) EnsureSchema(ctx context.Context) error {
	if _, err := e.Execute(ctx, createTableSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Query runs a read statement and returns every row.
// Returns an empty slice (not nil) when nothing matches.
func (e *Engine) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	rows, err := e.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, e.execError(query, args, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, e.execError(query, args, err)
	}

	out := []Row{}
	for rows.Next() {
		row := make(Row, len(cols))
		dest := make([]any, len(cols))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, e.execError(query, args, err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, e.execError(query, args, err)
	}

	return out, nil
}

// Execute runs a write statement and returns the number of affected rows.
// Failures, including key constraint violations, are *EngineExecutionError.
func (e *Engine) Execute(ctx context.Context, stmt string, args ...any) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, ErrClosed
	}

	res, err := e.conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, e.execError(stmt, args, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, e.execError(stmt, args, err)
	}
	return n, nil
}

// ExportSnapshot serializes the whole database.
func (e *Engine) ExportSnapshot(ctx context.Context) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	var snapshot []byte
	err := e.conn.Raw(func(dc any) error {
		c, ok := dc.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", dc)
		}
		b, err := c.Serialize(snapshotSchema)
		if err != nil {
			return err
		}
		snapshot = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export snapshot: %w", err)
	}
	return snapshot, nil
}

// Close releases the connection and the database. The in-memory contents
// are gone afterwards. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if e.conn != nil {
		errs = append(errs, e.conn.Close())
	}
	if e.db != nil {
		errs = append(errs, e.db.Close())
	}
	return errors.Join(errs...)
}

// deserialize loads snapshot into the engine's database.
//
// A deserialized database is fixed at the size of its image, so the image
// goes into a scratch connection first and is then copied page by page into
// the engine's own in-memory database, which grows as usual.
func (e *Engine) deserialize(ctx context.Context, snapshot []byte) error {
	scratch, err := sql.Open(driverName, fmt.Sprintf("file:vendori-load-%s?mode=memory&cache=private", uuid.NewString()))
	if err != nil {
		return &EngineLoadError{Err: fmt.Errorf("open scratch database: %w", err)}
	}
	defer scratch.Close()
	scratch.SetMaxOpenConns(1)

	sc, err := scratch.Conn(ctx)
	if err != nil {
		return &EngineLoadError{Err: fmt.Errorf("connect scratch database: %w", err)}
	}
	defer sc.Close()

	// Deserialize hands the buffer to SQLite; give it a private copy.
	buf := make([]byte, len(snapshot))
	copy(buf, snapshot)

	err = sc.Raw(func(dc any) error {
		c, ok := dc.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", dc)
		}
		return c.Deserialize(buf, snapshotSchema)
	})
	if err != nil {
		return &SnapshotCorruptError{Reason: "deserialize", Size: len(snapshot), Err: err}
	}

	// An in-memory backup target must already use the source page size.
	var pageSize int64
	if err := sc.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return &SnapshotCorruptError{Reason: "page_size", Size: len(snapshot), Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA page_size = %d", pageSize)); err != nil {
		return &EngineLoadError{Err: fmt.Errorf("set page size: %w", err)}
	}

	err = e.conn.Raw(func(dst any) error {
		dc, ok := dst.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", dst)
		}
		return sc.Raw(func(src any) error {
			srcConn, ok := src.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("unexpected driver connection %T", src)
			}
			return copyDatabase(dc, srcConn)
		})
	})
	if err != nil {
		return &SnapshotCorruptError{Reason: "copy snapshot", Size: len(snapshot), Err: err}
	}
	return nil
}

// copyDatabase copies every page of src's main database into dst.
func copyDatabase(dst, src *sqlite3.SQLiteConn) error {
	bk, err := dst.Backup(snapshotSchema, src, snapshotSchema)
	if err != nil {
		return fmt.Errorf("start backup: %w", err)
	}
	if _, err := bk.Step(-1); err != nil {
		bk.Finish()
		return fmt.Errorf("backup step: %w", err)
	}
	if err := bk.Finish(); err != nil {
		return fmt.Errorf("finish backup: %w", err)
	}
	return nil
}

// verify rejects snapshots that SQLite accepted but that are damaged or do
// not carry the vendors table with exactly the schema columns.
func (e *Engine) verify(ctx context.Context) error {
	rows, err := e.Query(ctx, "PRAGMA quick_check")
	if err != nil {
		return &SnapshotCorruptError{Reason: "quick_check", Err: err}
	}
	if len(rows) != 1 || len(rows[0]) != 1 || rows[0][0].String != "ok" {
		return &SnapshotCorruptError{Reason: fmt.Sprintf("quick_check reported %d problem rows", len(rows))}
	}

	rows, err = e.Query(ctx, tableInfoSQL)
	if err != nil {
		return &SnapshotCorruptError{Reason: "table_info", Err: err}
	}
	got := make([]string, 0, len(rows))
	for _, r := range rows {
		got = append(got, r[0].String)
	}
	if err := checkColumns(got); err != nil {
		return &SnapshotCorruptError{Reason: "schema mismatch", Err: err}
	}
	return nil
}

func (e *Engine) execError(stmt string, args []any, err error) error {
	e.logger.Error("statement failed",
		"statement", stmt,
		"args", len(args),
		"error", err,
	)
	return &EngineExecutionError{Statement: stmt, Err: err}
}
