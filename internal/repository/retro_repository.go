package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"retroboard/internal/domain"
	"retroboard/pkg/database"

	"github.com/jackc/pgx/v5"
)

// PostgresRetroRepository stores retro aggregates as JSONB documents in a
// single retros table, keyed by id with a lowercased name column for the
// case-insensitive name lookup. Selected when DATABASE_URL is configured.
type PostgresRetroRepository struct {
	db *database.PostgresDB
}

func NewPostgresRetroRepository(db *database.PostgresDB) *PostgresRetroRepository {
	return &PostgresRetroRepository{db: db}
}

// GetByID retrieves a retro by id, or (nil, nil) when absent.
func (r *PostgresRetroRepository) GetByID(ctx context.Context, id string) (*domain.Retro, error) {
	var data []byte
	query := `SELECT data FROM retros WHERE id = $1`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get retro: %w", err)
	}

	var retro domain.Retro
	if err := json.Unmarshal(data, &retro); err != nil {
		return nil, fmt.Errorf("failed to decode retro %s: %w", id, err)
	}
	return &retro, nil
}

// GetIDByName resolves an id from a case-insensitive name, or ("", nil).
func (r *PostgresRetroRepository) GetIDByName(ctx context.Context, name string) (string, error) {
	var id string
	query := `SELECT id FROM retros WHERE name_key = $1`

	err := r.db.Pool.QueryRow(ctx, query, strings.ToLower(name)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve retro name: %w", err)
	}
	return id, nil
}

// Put creates or replaces the aggregate by id.
func (r *PostgresRetroRepository) Put(ctx context.Context, retro *domain.Retro) error {
	data, err := json.Marshal(retro)
	if err != nil {
		return fmt.Errorf("failed to encode retro %s: %w", retro.ID, err)
	}

	query := `
		INSERT INTO retros (id, name_key, created_at, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data
	`

	_, err = r.db.Pool.Exec(ctx, query, retro.ID, strings.ToLower(retro.Name), retro.CreatedAt, data)
	if err != nil {
		return fmt.Errorf("failed to put retro: %w", err)
	}
	return nil
}

// List returns all retros, newest created first.
func (r *PostgresRetroRepository) List(ctx context.Context) ([]*domain.Retro, error) {
	query := `SELECT data FROM retros ORDER BY created_at DESC, id`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list retros: %w", err)
	}
	defer rows.Close()

	var result []*domain.Retro
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan retro row: %w", err)
		}
		var retro domain.Retro
		if err := json.Unmarshal(data, &retro); err != nil {
			return nil, fmt.Errorf("failed to decode retro: %w", err)
		}
		result = append(result, &retro)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate retros: %w", err)
	}
	return result, nil
}
