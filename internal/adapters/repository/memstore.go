package repository

import (
	"context"
	"sync"

	"github.com/okian/peereval/internal/domain/model"
)

// MemoryStore keeps the dataset in process. Used for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	rows     []model.EvaluationRecord
	readErr  error
	writeErr error
}

// NewMemoryStore returns a store seeded with rows.
func NewMemoryStore(rows ...model.EvaluationRecord) *MemoryStore {
	return &MemoryStore{rows: append([]model.EvaluationRecord(nil), rows...)}
}

// ReadAll returns a copy of every row.
func (s *MemoryStore) ReadAll(_ context.Context) ([]model.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	return append([]model.EvaluationRecord(nil), s.rows...), nil
}

// Overwrite replaces every row.
func (s *MemoryStore) Overwrite(_ context.Context, rows []model.EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.rows = append([]model.EvaluationRecord(nil), rows...)
	return nil
}

// FailReads makes subsequent reads return err; nil restores normal reads.
func (s *MemoryStore) FailReads(err error) {
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

// FailWrites makes subsequent writes return err without storing; nil restores writes.
func (s *MemoryStore) FailWrites(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// Len returns the number of stored rows.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
