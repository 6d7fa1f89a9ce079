package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/arslant84/vendori/internal/durability"
	"github.com/arslant84/vendori/internal/metrics"
	"github.com/arslant84/vendori/internal/record"
	"github.com/arslant84/vendori/internal/store"
)

// State is the repository lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CorruptPolicy decides what initialization does with a snapshot that
// cannot be loaded.
type CorruptPolicy int

const (
	// PolicyReset logs the corruption and starts from an empty table. The
	// stored bytes are overwritten by the next successful save.
	PolicyReset CorruptPolicy = iota

	// PolicyFail makes initialization fail with the SnapshotCorruptError.
	PolicyFail
)

// ParseCorruptPolicy parses "reset" or "fail".
func ParseCorruptPolicy(s string) (CorruptPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reset":
		return PolicyReset, nil
	case "fail":
		return PolicyFail, nil
	default:
		return 0, fmt.Errorf("invalid corrupt policy %q: must be reset or fail", s)
	}
}

// Persister is the durability side of the repository.
// *durability.Adapter implements it.
type Persister interface {
	Load(ctx context.Context) (image []byte, found bool, err error)
	Save(ctx context.Context, image []byte) error
	MediumName() string
	Close() error
}

// Discarder is implemented by persisters that can remove a stored snapshot.
// *durability.Adapter implements it.
type Discarder interface {
	Discard(ctx context.Context) error
}

// EngineOpener builds an engine: empty when image is nil, otherwise from
// the snapshot image.
type EngineOpener func(ctx context.Context, image []byte) (*store.Engine, error)

// Stats describes the repository at a point in time.
type Stats struct {
	State         string `json:"state"`
	Medium        string `json:"medium"`
	Records       int    `json:"records"`
	SnapshotBytes int    `json:"snapshot_bytes"`
	Pending       bool   `json:"pending"`
	Queued        int    `json:"queued"`
}

// session is one loaded engine with its writer.
type session struct {
	engine  *store.Engine
	queue   *mutationQueue
	stopped chan struct{}
}

// initCall is the shared, memoized initialization attempt.
type initCall struct {
	done chan struct{}
	sess *session
	err  error
}

// Repository is the record store used by all callers.
type Repository struct {
	persister Persister
	open      EngineOpener
	policy    CorruptPolicy
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu        sync.Mutex
	state     State
	call      *initCall
	resetting chan struct{}
	closed    bool

	pending atomic.Bool
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the repository logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) {
		r.metrics = m
	}
}

// WithCorruptPolicy sets the corrupt snapshot policy. Default: PolicyReset.
func WithCorruptPolicy(p CorruptPolicy) Option {
	return func(r *Repository) {
		r.policy = p
	}
}

// WithEngineOpener replaces how engines are built.
func WithEngineOpener(open EngineOpener) Option {
	return func(r *Repository) {
		if open != nil {
			r.open = open
		}
	}
}

// New creates a repository over p. Nothing is loaded until the first call.
func New(p Persister, opts ...Option) *Repository {
	r := &Repository{
		persister: p,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.open == nil {
		r.open = defaultOpener(r.logger)
	}
	return r
}

func defaultOpener(logger *slog.Logger) EngineOpener {
	return func(ctx context.Context, image []byte) (*store.Engine, error) {
		if image == nil {
			return store.Open(ctx, store.WithLogger(logger))
		}
		return store.LoadFromSnapshot(ctx, image, store.WithLogger(logger))
	}
}

// State returns the lifecycle state.
func (r *Repository) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Pending reports whether the table holds changes the medium does not.
func (r *Repository) Pending() bool {
	return r.pending.Load()
}

// ListAll returns every record ordered by vendorName (byte order).
// Returns an empty slice (not nil) when the table is empty.
func (r *Repository) ListAll(ctx context.Context) ([]record.VendorRecord, error) {
	out, err := r.listAll(ctx)
	r.metrics.ObserveOp("list", err)
	return out, err
}

func (r *Repository) listAll(ctx context.Context) ([]record.VendorRecord, error) {
	s, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.engine.Query(ctx, store.SelectAllSQL)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	out := make([]record.VendorRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := record.FromValues(row)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get returns the record stored under key.
func (r *Repository) Get(ctx context.Context, key string) (record.VendorRecord, bool, error) {
	if err := record.ValidateKey(key); err != nil {
		return record.VendorRecord{}, false, err
	}

	s, err := r.acquire(ctx)
	if err != nil {
		return record.VendorRecord{}, false, err
	}

	rows, err := s.engine.Query(ctx, store.SelectByKeySQL, key)
	if err != nil {
		return record.VendorRecord{}, false, fmt.Errorf("get record: %w", err)
	}
	if len(rows) == 0 {
		return record.VendorRecord{}, false, nil
	}

	rec, err := record.FromValues(rows[0])
	if err != nil {
		return record.VendorRecord{}, false, fmt.Errorf("get record: %w", err)
	}
	return rec, true, nil
}

// Upsert inserts rec or overwrites every non-key field of the existing
// record with the same vendorName, then persists the snapshot.
func (r *Repository) Upsert(ctx context.Context, rec record.VendorRecord) error {
	if err := record.ValidateKey(rec.VendorName); err != nil {
		r.metrics.ObserveOp(mutationUpsert.String(), err)
		return err
	}
	return r.submit(ctx, &mutation{kind: mutationUpsert, record: rec, key: rec.VendorName})
}

// Remove deletes the record stored under key. Removing an absent key is
// not an error.
func (r *Repository) Remove(ctx context.Context, key string) error {
	if err := record.ValidateKey(key); err != nil {
		r.metrics.ObserveOp(mutationRemove.String(), err)
		return err
	}
	return r.submit(ctx, &mutation{kind: mutationRemove, key: key})
}

// Rename changes a record's key in place. Upsert never renames: an upsert
// with a new vendorName always creates a second record.
func (r *Repository) Rename(ctx context.Context, oldKey, newKey string) error {
	for _, k := range []string{oldKey, newKey} {
		if err := record.ValidateKey(k); err != nil {
			r.metrics.ObserveOp(mutationRename.String(), err)
			return err
		}
	}
	return r.submit(ctx, &mutation{kind: mutationRename, key: oldKey, newKey: newKey})
}

// Flush retries a failed snapshot save. It is a no-op when nothing is
// pending.
func (r *Repository) Flush(ctx context.Context) error {
	return r.submit(ctx, &mutation{kind: mutationFlush})
}

// Stats reports counts and sizes.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	s, err := r.acquire(ctx)
	if err != nil {
		return Stats{State: r.State().String(), Medium: r.persister.MediumName()}, err
	}

	n, err := countRecords(ctx, s.engine)
	if err != nil {
		return Stats{}, err
	}
	image, err := s.engine.ExportSnapshot(ctx)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		State:         r.State().String(),
		Medium:        r.persister.MediumName(),
		Records:       n,
		SnapshotBytes: len(image),
		Pending:       r.Pending(),
		Queued:        s.queue.Len(),
	}, nil
}

// Reset drops the loaded engine, or the memoized failure, and returns the
// repository to Uninitialized. Mutations already queued are applied and
// persisted first. The next call reloads from the medium.
//
// Pending changes are saved before the engine is dropped. If that save
// fails, Reset leaves the repository as it was and returns the error.
func (r *Repository) Reset(ctx context.Context) error {
	if r.Pending() && r.State() == StateReady {
		if err := r.Flush(ctx); err != nil {
			r.logger.Error("reset aborted, pending changes could not be saved",
				"medium", r.persister.MediumName(),
				"error", err,
			)
			return fmt.Errorf("reset: %w", err)
		}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.resetting != nil {
		ch := r.resetting
		r.mu.Unlock()
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := r.call
	r.call = nil
	r.state = StateUninitialized
	resetting := make(chan struct{})
	r.resetting = resetting
	r.mu.Unlock()

	err := r.teardown(call)
	if r.pending.Swap(false) {
		// A mutation queued after the flush failed to save during teardown.
		r.logger.Error("reset discarded unpersisted changes", "medium", r.persister.MediumName())
		err = errors.Join(err, ErrChangesDiscarded)
	}
	r.metrics.SetPending(false)

	r.mu.Lock()
	r.resetting = nil
	close(resetting)
	r.mu.Unlock()

	r.logger.Info("repository reset")
	return err
}

// Close applies queued mutations, releases the engine and closes the
// medium. Further calls return ErrClosed.
func (r *Repository) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	call := r.call
	r.call = nil
	resetting := r.resetting
	r.mu.Unlock()

	if resetting != nil {
		<-resetting
	}

	if r.Pending() {
		r.logger.Warn("closing with unpersisted changes")
	}
	return errors.Join(r.teardown(call), r.persister.Close())
}

// acquire returns the ready session, starting initialization if needed and
// waiting for an in-flight one otherwise.
func (r *Repository) acquire(ctx context.Context) (*session, error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrClosed
		}
		if r.resetting != nil {
			ch := r.resetting
			r.mu.Unlock()
			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if r.call == nil {
			r.call = &initCall{done: make(chan struct{})}
			r.state = StateInitializing
			// Detached from the caller: other callers share this attempt and
			// must not see it fail because the first caller gave up.
			go r.initialize(context.WithoutCancel(ctx), r.call)
		}
		call := r.call
		r.mu.Unlock()

		select {
		case <-call.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if call.err != nil {
			return nil, &RepositoryUnavailableError{Err: call.err}
		}
		return call.sess, nil
	}
}

func (r *Repository) initialize(ctx context.Context, call *initCall) {
	start := time.Now()
	eng, err := r.load(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	defer close(call.done)

	if err != nil {
		call.err = err
		if r.call == call {
			r.state = StateFailed
		}
		r.logger.Error("repository initialization failed",
			"medium", r.persister.MediumName(),
			"error", err,
		)
		return
	}

	sess := &session{
		engine:  eng,
		queue:   newMutationQueue(),
		stopped: make(chan struct{}),
	}
	go r.runWriter(sess)
	call.sess = sess
	if r.call == call {
		r.state = StateReady
	}

	attrs := []any{
		"medium", r.persister.MediumName(),
		"engine", eng.ID(),
		"took", time.Since(start).Round(time.Millisecond),
	}
	if n, err := countRecords(ctx, eng); err != nil {
		attrs = append(attrs, "count_error", err)
	} else {
		r.metrics.SetRecords(n)
		attrs = append(attrs, "records", n)
	}
	r.logger.Info("repository ready", attrs...)
}

// load builds the engine from the medium, applying the corrupt policy.
func (r *Repository) load(ctx context.Context) (*store.Engine, error) {
	image, found, err := r.persister.Load(ctx)
	switch {
	case store.IsSnapshotCorrupt(err):
		return r.recoverCorrupt(ctx, err)
	case err != nil:
		return nil, err
	case !found:
		r.logger.Info("no stored snapshot, starting with an empty table", "medium", r.persister.MediumName())
		return r.fresh(ctx)
	}

	eng, err := r.open(ctx, image)
	if store.IsSnapshotCorrupt(err) {
		return r.recoverCorrupt(ctx, err)
	}
	if err != nil {
		return nil, err
	}
	return eng, nil
}

func (r *Repository) recoverCorrupt(ctx context.Context, cause error) (*store.Engine, error) {
	if r.policy == PolicyFail {
		return nil, cause
	}

	var size int
	var se *store.SnapshotCorruptError
	if errors.As(cause, &se) {
		size = se.Size
	}
	r.logger.Error("discarding corrupt snapshot, starting with an empty table",
		"medium", r.persister.MediumName(),
		"size", humanize.Bytes(uint64(size)),
		"error", cause,
	)

	eng, err := r.fresh(ctx)
	if err != nil {
		return nil, err
	}

	if d, ok := r.persister.(Discarder); ok {
		err := d.Discard(ctx)
		switch {
		case err == nil:
			r.logger.Info("corrupt snapshot removed from medium", "medium", r.persister.MediumName())
			return eng, nil
		case !errors.Is(err, durability.ErrDeleteUnsupported):
			r.logger.Warn("could not remove corrupt snapshot", "medium", r.persister.MediumName(), "error", err)
		}
	}

	// The medium still holds the corrupt bytes.
	r.pending.Store(true)
	r.metrics.SetPending(true)
	return eng, nil
}

func (r *Repository) fresh(ctx context.Context) (*store.Engine, error) {
	eng, err := r.open(ctx, nil)
	if err != nil {
		return nil, err
	}
	if err := eng.EnsureSchema(ctx); err != nil {
		eng.Close()
		return nil, &store.EngineLoadError{Err: err}
	}
	return eng, nil
}

func (r *Repository) teardown(call *initCall) error {
	if call == nil {
		return nil
	}
	<-call.done
	if call.sess == nil {
		return nil
	}
	call.sess.queue.Close()
	<-call.sess.stopped
	return call.sess.engine.Close()
}

// submit queues m on the current session and waits for its result.
func (r *Repository) submit(ctx context.Context, m *mutation) error {
	m.ctx = context.WithoutCancel(ctx)
	m.done = make(chan error, 1)

	for {
		s, err := r.acquire(ctx)
		if err != nil {
			r.metrics.ObserveOp(m.kind.String(), err)
			return err
		}
		if s.queue.Enqueue(m) {
			break
		}
		// Reset closed this session between acquire and enqueue; the next
		// acquire waits for the reload.
	}

	select {
	case err := <-m.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runWriter applies mutations one at a time until the queue is closed and
// drained.
func (r *Repository) runWriter(s *session) {
	defer close(s.stopped)

	for {
		if m, ok := s.queue.TryDequeue(); ok {
			err := r.apply(s.engine, m)
			r.metrics.ObserveOp(m.kind.String(), err)
			m.done <- err
			continue
		}
		if s.queue.Drained() {
			return
		}
		<-s.queue.Wait()
	}
}

// apply runs one mutation: engine write, then a snapshot save when the
// table changed or an earlier save is still pending.
func (r *Repository) apply(eng *store.Engine, m *mutation) error {
	ctx := m.ctx

	var changed bool
	var err error
	switch m.kind {
	case mutationUpsert:
		changed, err = applyUpsert(ctx, eng, m.record)
	case mutationRemove:
		changed, err = applyRemove(ctx, eng, m.key)
	case mutationRename:
		changed, err = applyRename(ctx, eng, m.key, m.newKey)
	case mutationFlush:
	default:
		err = fmt.Errorf("unknown mutation %d", m.kind)
	}
	if err != nil {
		return err
	}

	if !changed && !r.pending.Load() {
		return nil
	}

	r.logger.Debug("persisting snapshot", "op", m.kind.String(), "key", m.key)
	return r.persist(ctx, eng)
}

func applyUpsert(ctx context.Context, eng *store.Engine, rec record.VendorRecord) (bool, error) {
	rows, err := eng.Query(ctx, store.ExistsSQL, rec.VendorName)
	if err != nil {
		return false, fmt.Errorf("upsert %q: %w", rec.VendorName, err)
	}

	if len(rows) > 0 {
		args := append(rec.NonKeyValues(), rec.VendorName)
		if _, err := eng.Execute(ctx, store.UpdateSQL, args...); err != nil {
			return false, fmt.Errorf("upsert %q: update: %w", rec.VendorName, err)
		}
		return true, nil
	}

	if _, err := eng.Execute(ctx, store.InsertSQL, rec.Values()...); err != nil {
		return false, fmt.Errorf("upsert %q: insert: %w", rec.VendorName, err)
	}
	return true, nil
}

func applyRemove(ctx context.Context, eng *store.Engine, key string) (bool, error) {
	n, err := eng.Execute(ctx, store.DeleteSQL, key)
	if err != nil {
		return false, fmt.Errorf("remove %q: %w", key, err)
	}
	return n > 0, nil
}

func applyRename(ctx context.Context, eng *store.Engine, oldKey, newKey string) (bool, error) {
	rows, err := eng.Query(ctx, store.ExistsSQL, oldKey)
	if err != nil {
		return false, fmt.Errorf("rename %q: %w", oldKey, err)
	}
	if len(rows) == 0 {
		return false, fmt.Errorf("rename %q: %w", oldKey, ErrNotFound)
	}
	if oldKey == newKey {
		return false, nil
	}

	rows, err = eng.Query(ctx, store.ExistsSQL, newKey)
	if err != nil {
		return false, fmt.Errorf("rename %q: %w", oldKey, err)
	}
	if len(rows) > 0 {
		return false, fmt.Errorf("rename %q to %q: %w", oldKey, newKey, ErrKeyExists)
	}

	if _, err := eng.Execute(ctx, store.RenameSQL, newKey, oldKey); err != nil {
		return false, fmt.Errorf("rename %q: %w", oldKey, err)
	}
	return true, nil
}

// persist exports the full image and saves it. On failure the table keeps
// the change and the repository is marked pending.
func (r *Repository) persist(ctx context.Context, eng *store.Engine) error {
	start := time.Now()
	image, err := eng.ExportSnapshot(ctx)
	if err == nil {
		err = r.persister.Save(ctx, image)
	}
	r.metrics.ObservePersist(time.Since(start), len(image), err)

	if err != nil {
		r.pending.Store(true)
		r.metrics.SetPending(true)
		r.logger.Warn("snapshot not persisted, in-memory changes are pending",
			"medium", r.persister.MediumName(),
			"error", err,
		)
		return err
	}

	if r.pending.Swap(false) {
		r.logger.Info("pending changes persisted", "medium", r.persister.MediumName())
	}
	r.metrics.SetPending(false)

	if n, err := countRecords(ctx, eng); err == nil {
		r.metrics.SetRecords(n)
	}
	return nil
}

func countRecords(ctx context.Context, eng *store.Engine) (int, error) {
	rows, err := eng.Query(ctx, store.CountSQL)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, fmt.Errorf("count records: unexpected result shape")
	}
	n, err := strconv.Atoi(rows[0][0].String)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
