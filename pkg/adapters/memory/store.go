package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
)

// Store implements ports.PipelineStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Pipeline
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Pipeline),
	}
}

// Save persists the pipeline in memory.
func (s *Store) Save(ctx context.Context, pipeline *domain.Pipeline) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := pipeline.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[pipeline.ID()] = copied
	return nil
}

// Load retrieves the pipeline from memory.
func (s *Store) Load(ctx context.Context, pipelineID string) (*domain.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pipeline, ok := s.data[pipelineID]
	if !ok {
		return nil, domain.ErrPipelineNotFound
	}

	// Create a copy on read so caller can't mutate store state directly by pointer
	return pipeline.Clone(), nil
}

// Delete removes the pipeline.
func (s *Store) Delete(ctx context.Context, pipelineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, pipelineID)
	return nil
}

// List returns stored pipeline ids in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
