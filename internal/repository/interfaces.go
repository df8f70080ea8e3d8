package repository

import (
	"context"

	"retroboard/internal/domain"
)

// RetroRepository defines the keyed entity store for retro aggregates.
// Absence is reported as a nil aggregate (or empty id), not an error; errors
// are reserved for infrastructure failures of the backing store.
type RetroRepository interface {
	// GetByID retrieves a retro aggregate by id. Returns (nil, nil) when the
	// id is unknown.
	GetByID(ctx context.Context, id string) (*domain.Retro, error)

	// GetIDByName resolves a retro id from its case-insensitive unique name.
	// Returns ("", nil) when no retro has that name.
	GetIDByName(ctx context.Context, name string) (string, error)

	// Put writes the aggregate, creating or replacing it by id.
	Put(ctx context.Context, retro *domain.Retro) error

	// List returns all retro aggregates, most recently created first. The
	// ordering is stable for a given store state.
	List(ctx context.Context) ([]*domain.Retro, error)
}
