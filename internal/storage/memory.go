package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"unifac/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	tables      map[string][]byte
	evaluations map[string][]byte
	order       []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.tables = make(map[string][]byte)
	s.evaluations = make(map[string][]byte)
	s.order = nil
	return nil
}

// Records are held encoded so callers never share slices with the store.
func (s *MemoryStore) SaveTable(_ context.Context, table model.ParameterTable) error {
	payload, err := EncodeTable(table)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.tables[table.Name] = payload
	return nil
}

func (s *MemoryStore) GetTable(_ context.Context, name string) (model.ParameterTable, bool, error) {
	s.mu.RLock()
	payload, ok := s.tables[name]
	s.mu.RUnlock()

	if !ok {
		return model.ParameterTable{}, false, nil
	}
	table, err := DecodeTable(payload)
	if err != nil {
		return model.ParameterTable{}, false, err
	}
	return table, true, nil
}

func (s *MemoryStore) ListTables(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) DeleteTable(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tables, name)
	return nil
}

func (s *MemoryStore) SaveEvaluation(_ context.Context, record model.EvaluationRecord) error {
	payload, err := EncodeEvaluation(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	if _, exists := s.evaluations[record.ID]; !exists {
		s.order = append(s.order, record.ID)
	}
	s.evaluations[record.ID] = payload
	return nil
}

func (s *MemoryStore) GetEvaluation(_ context.Context, id string) (model.EvaluationRecord, bool, error) {
	s.mu.RLock()
	payload, ok := s.evaluations[id]
	s.mu.RUnlock()

	if !ok {
		return model.EvaluationRecord{}, false, nil
	}
	record, err := DecodeEvaluation(payload)
	if err != nil {
		return model.EvaluationRecord{}, false, err
	}
	return record, true, nil
}

// ListEvaluations returns up to limit records, newest first. limit <= 0 means all.
func (s *MemoryStore) ListEvaluations(_ context.Context, limit int) ([]model.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]model.EvaluationRecord, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		record, err := DecodeEvaluation(s.evaluations[s.order[i]])
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}
