// Package storage provides the key-value persistence layer the stores write
// their JSON-encoded state to. It mirrors the browser localStorage interface
// the application originally ran against: string keys, string values, no
// transactions.
package storage

import "sync"

// Storage is a flat key-value store. Values are JSON-encoded strings; the
// well-known keys are "users", "pendingRegistrations", "currentUser" and
// "savedContacts_<userId>".
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores value under key, overwriting any previous value.
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}

// Memory is an in-process Storage used by tests and as the default backend.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
