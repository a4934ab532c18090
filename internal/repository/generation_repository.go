package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/digkill/gddforge/internal/models"
)

type GenerationRepository struct {
	store *Store
}

func NewGenerationRepository(store *Store) *GenerationRepository {
	return &GenerationRepository{store: store}
}

func (r *GenerationRepository) Log(ctx context.Context, gen models.Generation) error {
	var objectKey any
	if gen.ObjectKey != "" {
		objectKey = gen.ObjectKey
	}
	_, err := r.store.exec(ctx, r.store.builder.
		Insert("generations").
		Columns("id", "user_id", "game_name", "object_key", "deducted").
		Values(gen.ID, gen.UserID, gen.GameName, objectKey, gen.Deducted))
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

func (r *GenerationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Generation, error) {
	rows, err := r.store.query(ctx, r.store.builder.
		Select("id", "user_id", "game_name", "COALESCE(object_key, '')", "deducted", "created_at").
		From("generations").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var out []models.Generation
	for rows.Next() {
		var g models.Generation
		if err := rows.Scan(&g.ID, &g.UserID, &g.GameName, &g.ObjectKey, &g.Deducted, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Get returns the caller's generation, or nil when it does not exist or belongs to someone else.
func (r *GenerationRepository) Get(ctx context.Context, userID, id string) (*models.Generation, error) {
	row, err := r.store.queryRow(ctx, r.store.builder.
		Select("id", "user_id", "game_name", "COALESCE(object_key, '')", "deducted", "created_at").
		From("generations").
		Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return nil, err
	}
	var g models.Generation
	if err := row.Scan(&g.ID, &g.UserID, &g.GameName, &g.ObjectKey, &g.Deducted, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan generation: %w", err)
	}
	return &g, nil
}
