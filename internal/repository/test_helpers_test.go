package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arslant84/vendori/internal/durability"
	"github.com/arslant84/vendori/internal/record"
	"github.com/arslant84/vendori/internal/store"
)

// scriptedPersister wraps a real adapter and lets tests inject failures and
// hold saves open.
type scriptedPersister struct {
	inner Persister

	mu      sync.Mutex
	saveErr error
	loadErr error
	hold    chan struct{}
	saved   [][]byte

	entered chan struct{}
	loads   atomic.Int32
}

func newScriptedPersister(inner Persister) *scriptedPersister {
	return &scriptedPersister{
		inner:   inner,
		entered: make(chan struct{}, 64),
	}
}

func (p *scriptedPersister) Load(ctx context.Context) ([]byte, bool, error) {
	p.loads.Add(1)
	p.mu.Lock()
	err := p.loadErr
	p.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return p.inner.Load(ctx)
}

func (p *scriptedPersister) Save(ctx context.Context, image []byte) error {
	p.entered <- struct{}{}

	p.mu.Lock()
	hold := p.hold
	p.mu.Unlock()
	if hold != nil {
		<-hold
	}

	p.mu.Lock()
	err := p.saveErr
	p.mu.Unlock()
	if err != nil {
		return err
	}

	if err := p.inner.Save(ctx, image); err != nil {
		return err
	}
	p.mu.Lock()
	p.saved = append(p.saved, image)
	p.mu.Unlock()
	return nil
}

func (p *scriptedPersister) MediumName() string { return "scripted" }

func (p *scriptedPersister) Close() error { return p.inner.Close() }

func (p *scriptedPersister) setSaveErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saveErr = err
}

func (p *scriptedPersister) setLoadErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadErr = err
}

func (p *scriptedPersister) snapshots() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.saved...)
}

// newMemoryAdapter returns an adapter over a fresh in-memory medium.
func newMemoryAdapter() (*durability.Adapter, *durability.MemoryMedium) {
	m := durability.NewMemoryMedium()
	return durability.NewAdapter(m), m
}

// newTestRepository returns a repository over a fresh in-memory medium,
// closed at test end.
func newTestRepository(t *testing.T, opts ...Option) (*Repository, *durability.MemoryMedium) {
	t.Helper()
	a, m := newMemoryAdapter()
	r := New(a, opts...)
	t.Cleanup(func() { r.Close() })
	return r, m
}

// keys returns the vendor names of recs in order.
func keys(recs []record.VendorRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.VendorName
	}
	return out
}

// keysInImage loads a snapshot image and lists its keys.
func keysInImage(t *testing.T, image []byte) []string {
	t.Helper()
	ctx := context.Background()
	e, err := store.LoadFromSnapshot(ctx, image)
	require.NoError(t, err)
	defer e.Close()

	rows, err := e.Query(ctx, store.SelectAllSQL)
	require.NoError(t, err)
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row[0].String
	}
	return out
}

// sessionQueueLen peeks at the writer backlog of a ready repository.
func sessionQueueLen(r *Repository) int {
	r.mu.Lock()
	call := r.call
	r.mu.Unlock()
	if call == nil || call.sess == nil {
		return 0
	}
	return call.sess.queue.Len()
}
