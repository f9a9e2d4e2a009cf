package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore — хранилище истории в памяти.
//
// Используется в тестах и в режиме dry-run CLI (--store memory).
// Семантика идентична PostgresStore: append-only строки, "последняя"
// строка — последняя добавленная.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*memTable

	// Now — источник времени для новых строк. Подменяется в тестах,
	// чтобы управлять устареванием записей.
	Now func() time.Time
}

type memTable struct {
	paramKeys []string
	rows      []Row
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]*memTable),
		Now:    time.Now,
	}
}

// Initialize регистрирует tableKey. Повторный вызов ничего не делает.
func (s *MemoryStore) Initialize(_ context.Context, tableKey string, paramKeys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[tableKey]; ok {
		return nil
	}

	keys := make([]string, len(paramKeys))
	copy(keys, paramKeys)
	s.tables[tableKey] = &memTable{paramKeys: keys}
	return nil
}

// LastTimestamp возвращает время последней строки.
func (s *MemoryStore) LastTimestamp(_ context.Context, tableKey string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[tableKey]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotInitialized, tableKey)
	}
	if len(t.rows) == 0 {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNoRows, tableKey)
	}
	return t.rows[len(t.rows)-1].Timestamp, nil
}

// LastParams возвращает значения последней строки в порядке paramKeys.
func (s *MemoryStore) LastParams(_ context.Context, tableKey string, paramKeys []string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[tableKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, tableKey)
	}
	if len(t.rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRows, tableKey)
	}

	last := t.rows[len(t.rows)-1]
	values := make([]float64, 0, len(paramKeys))
	for _, key := range paramKeys {
		v, ok := last.Values[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrParamMissing, key, tableKey)
		}
		values = append(values, v)
	}
	return values, nil
}

// Insert добавляет новую строку с текущим временем.
func (s *MemoryStore) Insert(_ context.Context, tableKey string, values map[string]float64, log string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[tableKey]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotInitialized, tableKey)
	}

	copied := make(map[string]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}

	t.rows = append(t.rows, Row{
		Timestamp: s.Now(),
		Values:    copied,
		Log:       log,
	})
	return nil
}

// History возвращает последние limit строк, от новых к старым.
func (s *MemoryStore) History(_ context.Context, tableKey string, limit int) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[tableKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, tableKey)
	}

	n := len(t.rows)
	if limit <= 0 || limit > n {
		limit = n
	}

	rows := make([]Row, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		rows = append(rows, t.rows[i])
	}
	return rows, nil
}

// RowCount возвращает количество строк истории узла.
// Вспомогательный метод для тестов и статусного API.
func (s *MemoryStore) RowCount(tableKey string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[tableKey]
	if !ok {
		return 0
	}
	return len(t.rows)
}
