package service

import (
	"context"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/pkg/errors"
	"github.com/certflow/certportal-backend/pkg/logger"
	"github.com/certflow/certportal-backend/pkg/permissions"
)

// CriteriaStore is the persistence boundary for criteria and level bands.
type CriteriaStore interface {
	ListCriteria(ctx context.Context) ([]*domain.Criterion, error)
	GetCriterion(ctx context.Context, id string) (*domain.Criterion, error)
	UpsertCriterion(ctx context.Context, c *domain.Criterion) error
	RemoveCriterion(ctx context.Context, id string) error

	ListLevelBands(ctx context.Context) ([]*domain.LevelBand, error)
	UpsertLevelBand(ctx context.Context, b *domain.LevelBand) error
	RemoveLevelBand(ctx context.Context, id string) error
}

// CriteriaService manages the scoring criteria registry and the level band
// configuration that maps experience years to certification levels.
type CriteriaService struct {
	repo   CriteriaStore
	logger *logger.Logger
}

// NewCriteriaService creates a new criteria service
func NewCriteriaService(repo CriteriaStore, log *logger.Logger) *CriteriaService {
	return &CriteriaService{
		repo:   repo,
		logger: log,
	}
}

// ListCriteria lists all criteria, active and inactive
func (s *CriteriaService) ListCriteria(ctx context.Context) ([]*domain.Criterion, error) {
	return s.repo.ListCriteria(ctx)
}

// ActiveCriteria lists only the criteria that currently contribute to scores
func (s *CriteriaService) ActiveCriteria(ctx context.Context) ([]*domain.Criterion, error) {
	all, err := s.repo.ListCriteria(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]*domain.Criterion, 0, len(all))
	for _, c := range all {
		if c.Active {
			active = append(active, c)
		}
	}
	return active, nil
}

// GetCriterion gets a criterion by ID
func (s *CriteriaService) GetCriterion(ctx context.Context, id string) (*domain.Criterion, error) {
	return s.repo.GetCriterion(ctx, id)
}

// SaveCriterion creates or updates a criterion. Weights outside 0-100 and
// unknown categories are rejected; an unbalanced total is allowed and
// reported through WeightBalance instead.
func (s *CriteriaService) SaveCriterion(ctx context.Context, c *domain.Criterion) error {
	act, err := requireCapability(ctx, permissions.CapCriteriaManage)
	if err != nil {
		return err
	}

	if c.Name == "" {
		return errors.BadRequest("criterion name is required")
	}
	if !c.Category.IsValid() {
		return errors.BadRequest("unknown scoring category: " + string(c.Category))
	}
	if c.Weight < 0 || c.Weight > 100 {
		return errors.BadRequest("criterion weight must be between 0 and 100")
	}

	if err := s.repo.UpsertCriterion(ctx, c); err != nil {
		return err
	}

	s.logger.Info().
		Str("criterion_id", c.ID).
		Str("category", string(c.Category)).
		Float64("weight", c.Weight).
		Str("actor_id", act.ID).
		Msg("criterion saved")
	return nil
}

// RemoveCriterion deletes a criterion
func (s *CriteriaService) RemoveCriterion(ctx context.Context, id string) error {
	if _, err := requireCapability(ctx, permissions.CapCriteriaManage); err != nil {
		return err
	}
	return s.repo.RemoveCriterion(ctx, id)
}

// WeightBalance reports how the active weights relate to 100
func (s *CriteriaService) WeightBalance(ctx context.Context) (domain.WeightBalance, error) {
	criteria, err := s.repo.ListCriteria(ctx)
	if err != nil {
		return domain.WeightBalance{}, err
	}
	return domain.BalanceOf(criteria), nil
}

// ListLevelBands lists the configured level bands, lowest first
func (s *CriteriaService) ListLevelBands(ctx context.Context) ([]*domain.LevelBand, error) {
	return s.repo.ListLevelBands(ctx)
}

// SaveLevelBand creates or updates a level band. Bands must not overlap
// existing bands; gaps are permitted at write time but surface as a
// configuration error when a score lands in one.
func (s *CriteriaService) SaveLevelBand(ctx context.Context, band *domain.LevelBand) error {
	if _, err := requireCapability(ctx, permissions.CapCriteriaManage); err != nil {
		return err
	}

	if band.Name == "" {
		return errors.BadRequest("level band name is required")
	}
	if band.MinYears < 0 {
		return errors.BadRequest("level band min years must not be negative")
	}
	if band.MaxYears != nil && *band.MaxYears < band.MinYears {
		return errors.BadRequest("level band max years must not be below min years")
	}

	existing, err := s.repo.ListLevelBands(ctx)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == band.ID {
			continue
		}
		if bandsOverlap(band, other) {
			return errors.Conflict("level band overlaps existing band " + other.Name)
		}
	}

	return s.repo.UpsertLevelBand(ctx, band)
}

// RemoveLevelBand deletes a level band
func (s *CriteriaService) RemoveLevelBand(ctx context.Context, id string) error {
	if _, err := requireCapability(ctx, permissions.CapCriteriaManage); err != nil {
		return err
	}
	return s.repo.RemoveLevelBand(ctx, id)
}

// LevelForYears resolves the level band covering the given experience years.
// A gap in the band configuration is an operator error and is reported as
// such, never swallowed.
func (s *CriteriaService) LevelForYears(ctx context.Context, years float64) (*domain.LevelBand, error) {
	bands, err := s.repo.ListLevelBands(ctx)
	if err != nil {
		return nil, err
	}

	for _, b := range bands {
		if b.Contains(years) {
			return b, nil
		}
	}
	return nil, errors.NoMatchingBand(years)
}

// LevelAtLeast reports whether the level named have ranks at or above the
// level named want, using the band ordering by minimum years.
func (s *CriteriaService) LevelAtLeast(ctx context.Context, have, want string) (bool, error) {
	bands, err := s.repo.ListLevelBands(ctx)
	if err != nil {
		return false, err
	}

	var haveMin, wantMin *int
	for _, b := range bands {
		b := b
		if b.Name == have {
			haveMin = &b.MinYears
		}
		if b.Name == want {
			wantMin = &b.MinYears
		}
	}
	if wantMin == nil {
		return false, errors.Internal("required approval level " + want + " is not a configured band")
	}
	if haveMin == nil {
		return false, nil
	}
	return *haveMin >= *wantMin, nil
}

// bandsOverlap reports whether two bands cover a common range of years.
func bandsOverlap(a, b *domain.LevelBand) bool {
	if a.MaxYears != nil && *a.MaxYears < b.MinYears {
		return false
	}
	if b.MaxYears != nil && *b.MaxYears < a.MinYears {
		return false
	}
	return true
}
