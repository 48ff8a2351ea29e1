package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/pkg/database"
	"github.com/certflow/certportal-backend/pkg/errors"
)

// CriteriaRepository handles scoring criteria and level band persistence
type CriteriaRepository struct {
	db *database.DB
}

// NewCriteriaRepository creates a new criteria repository
func NewCriteriaRepository(db *database.DB) *CriteriaRepository {
	return &CriteriaRepository{db: db}
}

// ListCriteria lists all criteria, active and inactive
func (r *CriteriaRepository) ListCriteria(ctx context.Context) ([]*domain.Criterion, error) {
	query := `
		SELECT id, name, category, weight, description, active, created_at, updated_at
		FROM criteria
		ORDER BY category, name
	`
	var criteria []*domain.Criterion
	if err := r.db.SelectContext(ctx, &criteria, query); err != nil {
		return nil, err
	}
	return criteria, nil
}

// GetCriterion gets a criterion by ID
func (r *CriteriaRepository) GetCriterion(ctx context.Context, id string) (*domain.Criterion, error) {
	var c domain.Criterion
	query := `
		SELECT id, name, category, weight, description, active, created_at, updated_at
		FROM criteria WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("criterion")
		}
		return nil, err
	}
	return &c, nil
}

// UpsertCriterion inserts or updates a criterion
func (r *CriteriaRepository) UpsertCriterion(ctx context.Context, c *domain.Criterion) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	query := `
		INSERT INTO criteria (id, name, category, weight, description, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, category = EXCLUDED.category,
		    weight = EXCLUDED.weight, description = EXCLUDED.description,
		    active = EXCLUDED.active, updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		c.ID, c.Name, c.Category, c.Weight, c.Description, c.Active,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}
	return nil
}

// RemoveCriterion deletes a criterion
func (r *CriteriaRepository) RemoveCriterion(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM criteria WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("criterion")
	}
	return nil
}

// ListLevelBands lists level bands ordered by min years ascending
func (r *CriteriaRepository) ListLevelBands(ctx context.Context) ([]*domain.LevelBand, error) {
	query := `
		SELECT id, name, min_years, max_years, description, created_at, updated_at
		FROM level_bands
		ORDER BY min_years ASC
	`
	var bands []*domain.LevelBand
	if err := r.db.SelectContext(ctx, &bands, query); err != nil {
		return nil, err
	}
	return bands, nil
}

// UpsertLevelBand inserts or updates a level band
func (r *CriteriaRepository) UpsertLevelBand(ctx context.Context, b *domain.LevelBand) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}

	query := `
		INSERT INTO level_bands (id, name, min_years, max_years, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, min_years = EXCLUDED.min_years,
		    max_years = EXCLUDED.max_years, description = EXCLUDED.description,
		    updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		b.ID, b.Name, b.MinYears, b.MaxYears, b.Description,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}
	return nil
}

// RemoveLevelBand deletes a level band
func (r *CriteriaRepository) RemoveLevelBand(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM level_bands WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("level band")
	}
	return nil
}
