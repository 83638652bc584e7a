package kvstore

import (
	"sync"

	"marathon-agent/internal/interfaces"
)

// memoryKV is a volatile KV used by tests and as a fallback when no store
// path is configured.
type memoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ interfaces.KV = (*memoryKV)(nil)

func NewMemory() interfaces.KV {
	return &memoryKV{data: make(map[string]string)}
}

func (m *memoryKV) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKV) Close() error {
	return nil
}
