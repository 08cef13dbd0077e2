package secrets

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-memory Source for tests.
type Memory struct {
	mu      sync.Mutex
	values  map[string][]byte
	GetErr  error
	PutErr  error
	Updates int
}

// NewMemory creates an empty in-memory secret source.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Set stores a secret value directly, bypassing error injection.
func (m *Memory) Set(name string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = value
}

func (m *Memory) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	v, ok := m.values[name]
	if !ok {
		return nil, fmt.Errorf("secret %s not found", name)
	}
	return v, nil
}

func (m *Memory) Update(_ context.Context, name string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates++
	if m.PutErr != nil {
		return m.PutErr
	}
	m.values[name] = value
	return nil
}
