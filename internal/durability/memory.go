package durability

import (
	"context"
	"sync"
)

// MemoryMedium keeps the snapshot in process memory.
// Two repositories sharing one MemoryMedium behave like two sessions sharing
// one browser store.
type MemoryMedium struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryMedium returns an empty in-memory medium.
func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{}
}

func (m *MemoryMedium) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrNoSnapshot
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MemoryMedium) Save(ctx context.Context, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make([]byte, len(snapshot))
	copy(m.data, snapshot)
	m.saves++
	return nil
}

// Delete clears the slot.
func (m *MemoryMedium) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// Saves returns how many times Save succeeded.
func (m *MemoryMedium) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryMedium) Name() string { return "memory" }

func (m *MemoryMedium) Close() error { return nil }
