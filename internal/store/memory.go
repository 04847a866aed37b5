package store

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process Store for tests and for running without a backend
type Memory struct {
	mu     sync.Mutex
	tables map[string][]byte
	saves  map[string]int

	// SaveErr, if set, is returned by Save without storing anything.
	SaveErr error
}

// NewMemory creates an empty Memory store
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]byte), saves: make(map[string]int)}
}

func (m *Memory) Load(ctx context.Context, table string, dst any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.tables[table]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *Memory) Save(ctx context.Context, table string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.tables[table] = raw
	m.saves[table]++
	return nil
}

// Saves returns how many times table was saved
func (m *Memory) Saves(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[table]
}

// Raw returns the stored JSON for table
func (m *Memory) Raw(table string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.tables[table]...)
}
