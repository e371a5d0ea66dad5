package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"capitoro/internal/domain"
	"capitoro/internal/storage"
)

// ProjectStore is an in-memory implementation of storage.ProjectStore.
type ProjectStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*domain.Project
}

var _ storage.ProjectStore = (*ProjectStore)(nil)

// NewProjectStore creates a new in-memory project store.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{
		data: make(map[uuid.UUID]*domain.Project),
	}
}

// Insert adds a new project. Returns ErrDuplicateKey if id exists.
func (s *ProjectStore) Insert(_ context.Context, p *domain.Project) error {
	if p == nil || p.ID == uuid.Nil {
		return storage.ErrInvalidInput
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; exists {
		return storage.ErrDuplicateKey
	}
	projectCopy := *p
	s.data[p.ID] = &projectCopy
	return nil
}

// GetByID retrieves a project by its ID. Returns ErrNotFound if not exists.
func (s *ProjectStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	projectCopy := *p
	return &projectCopy, nil
}

// List retrieves projects matching filter, newest first.
func (s *ProjectStore) List(_ context.Context, filter domain.ProjectFilter) ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Project
	for _, p := range s.data {
		if filter.Matches(p) {
			projectCopy := *p
			result = append(result, &projectCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].Name < result[j].Name
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
