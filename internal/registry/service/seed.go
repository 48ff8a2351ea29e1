package service

import (
	"context"

	"github.com/certflow/certportal-backend/internal/registry/domain"
)

func intPtr(v int) *int { return &v }

// defaultCriteria is the stock weighting applied to a fresh install. The
// weights sum to 100.
func defaultCriteria() []*domain.Criterion {
	return []*domain.Criterion{
		{Name: "Highest academic degree", Category: domain.CategoryEducation, Weight: 25, Active: true},
		{Name: "Qualifying professional experience", Category: domain.CategoryExperience, Weight: 35, Active: true},
		{Name: "Accredited training courses", Category: domain.CategoryTraining, Weight: 15, Active: true},
		{Name: "Published research", Category: domain.CategoryResearch, Weight: 10, Active: true},
		{Name: "Delivered projects", Category: domain.CategoryProjects, Weight: 15, Active: true},
	}
}

// defaultLevelBands is the stock level ladder. Integer bounds are gapless
// over fractional years: a band with max m covers everything below m+1.
func defaultLevelBands() []*domain.LevelBand {
	return []*domain.LevelBand{
		{Name: "Associate", MinYears: 0, MaxYears: intPtr(2)},
		{Name: "Professional", MinYears: 3, MaxYears: intPtr(5)},
		{Name: "Advanced", MinYears: 6, MaxYears: intPtr(8)},
		{Name: "Expert", MinYears: 9},
	}
}

// SeedDefaults populates stock criteria and level bands when the store is
// empty. Called once at service startup; a configured install is left alone.
func (s *CriteriaService) SeedDefaults(ctx context.Context) error {
	criteria, err := s.repo.ListCriteria(ctx)
	if err != nil {
		return err
	}
	if len(criteria) == 0 {
		for _, c := range defaultCriteria() {
			if err := s.repo.UpsertCriterion(ctx, c); err != nil {
				return err
			}
		}
		s.logger.Info().Int("count", len(defaultCriteria())).Msg("seeded default scoring criteria")
	}

	bands, err := s.repo.ListLevelBands(ctx)
	if err != nil {
		return err
	}
	if len(bands) == 0 {
		for _, b := range defaultLevelBands() {
			if err := s.repo.UpsertLevelBand(ctx, b); err != nil {
				return err
			}
		}
		s.logger.Info().Int("count", len(defaultLevelBands())).Msg("seeded default level bands")
	}

	return nil
}
