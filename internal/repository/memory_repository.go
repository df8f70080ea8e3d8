package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"retroboard/internal/domain"
)

// MemoryRetroRepository is a mutex-guarded in-memory retro store. It is the
// default backend when no database is configured and the canonical store for
// tests. Aggregates are cloned on the way in and out so callers never share
// mutable state with the store.
type MemoryRetroRepository struct {
	mu       sync.RWMutex
	retros   map[string]*domain.Retro
	nameToID map[string]string
}

// NewMemoryRetroRepository creates an empty in-memory store.
func NewMemoryRetroRepository() *MemoryRetroRepository {
	return &MemoryRetroRepository{
		retros:   make(map[string]*domain.Retro),
		nameToID: make(map[string]string),
	}
}

// GetByID retrieves a retro by id, or (nil, nil) when absent.
func (s *MemoryRetroRepository) GetByID(_ context.Context, id string) (*domain.Retro, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	retro, ok := s.retros[id]
	if !ok {
		return nil, nil
	}
	return retro.Clone(), nil
}

// GetIDByName resolves an id from a case-insensitive name, or ("", nil).
func (s *MemoryRetroRepository) GetIDByName(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nameToID[strings.ToLower(name)], nil
}

// Put creates or replaces the aggregate by id.
func (s *MemoryRetroRepository) Put(_ context.Context, retro *domain.Retro) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.retros[retro.ID] = retro.Clone()
	s.nameToID[strings.ToLower(retro.Name)] = retro.ID
	return nil
}

// List returns all retros, newest created first. Ties break on id so the
// ordering is stable for a given store state.
func (s *MemoryRetroRepository) List(_ context.Context) ([]*domain.Retro, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Retro, 0, len(s.retros))
	for _, retro := range s.retros {
		result = append(result, retro.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
