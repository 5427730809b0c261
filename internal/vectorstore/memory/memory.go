package memory

import (
	"context"
	"fmt"
	"sync"

	"bczsl/internal/domain"
	"bczsl/internal/embedding"
)

// Storage keeps the table in process memory.
type Storage struct {
	mu    sync.RWMutex
	table *embedding.Table
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Save(_ context.Context, table *embedding.Table) error {
	if table.Len() == 0 {
		return domain.ErrEmptyTable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
	return nil
}

func (s *Storage) Load(_ context.Context) (*embedding.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return nil, fmt.Errorf("memory store: nothing saved: %w", domain.ErrMissingArtifact)
	}
	return s.table, nil
}

// Search ranks the saved entries by cosine similarity.
func (s *Storage) Search(ctx context.Context, query []float64, topK int) ([]domain.ScoredLabel, error) {
	table, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return embedding.Rank(query, table, topK)
}

// Clear drops the saved table.
func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = nil
	return nil
}
