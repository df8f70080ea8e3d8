package service

import (
	"context"

	"retroboard/internal/domain"
)

// GifService defines the interface for the GIF-search proxy
type GifService interface {
	// Search returns GIFs matching a free-text query
	Search(ctx context.Context, query string, limit int) ([]domain.GifResult, error)

	// Trending returns currently trending GIFs
	Trending(ctx context.Context, limit int) ([]domain.GifResult, error)
}

// Services aggregates all service interfaces
type Services struct {
	Gif GifService
}
