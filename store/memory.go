package store

import (
	"context"
	"sync"
)

// MemoryBackend is a thread-safe in-process Backend. A byte quota and a
// failure switch let callers reproduce an unreliable browser-like store.
type MemoryBackend struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int
	used  int
	fail  error
}

// NewMemoryBackend constructs a MemoryBackend. quota bounds the total bytes
// stored; zero disables the check.
func NewMemoryBackend(quota int) *MemoryBackend {
	return &MemoryBackend{
		data:  make(map[string][]byte),
		quota: quota,
	}
}

// compile-time assertion that MemoryBackend implements Backend
var _ Backend = (*MemoryBackend)(nil)

// Fail makes every subsequent call return err. Fail(nil) restores service.
func (m *MemoryBackend) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Disable is shorthand for Fail(ErrUnavailable).
func (m *MemoryBackend) Disable() { m.Fail(ErrUnavailable) }

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.fail != nil {
		return nil, false, m.fail
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}
	next := m.used - len(m.data[key]) + len(value)
	if m.quota > 0 && next > m.quota {
		return ErrQuotaExceeded
	}
	m.data[key] = append([]byte(nil), value...)
	m.used = next
	return nil
}

func (m *MemoryBackend) Remove(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}
	m.used -= len(m.data[key])
	delete(m.data, key)
	return nil
}

// Keys returns the number of stored keys.
func (m *MemoryBackend) Keys() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
