package service

import (
	"math"
	"time"

	"github.com/certflow/certportal-backend/internal/registry/domain"
)

// Saturation points for the per-category sub-scores. An applicant at or past
// the saturation point earns the full weight for that category.
const (
	experienceTargetYears = 8.0
	trainingSaturation    = 5
	researchSaturation    = 3
	projectsSaturation    = 4
)

// educationThreshold is the degree that earns a full education sub-score.
// Lower degrees earn a proportional share of their rank; higher degrees do
// not earn extra.
const educationThreshold = domain.DegreeBachelor

// CategoryScore is the contribution of one scoring category.
type CategoryScore struct {
	Category domain.Category `json:"category"`
	Weight   float64         `json:"weight"`
	SubScore float64         `json:"sub_score"` // 0..1
	Points   float64         `json:"points"`    // weight * sub-score
}

// ScoreResult is the full eligibility score of a profile: the weighted total
// plus the per-category breakdown that produced it.
type ScoreResult struct {
	Total           float64         `json:"total"`
	QualifyingYears float64         `json:"qualifying_years"`
	Breakdown       []CategoryScore `json:"breakdown"`
}

// Scorer computes weighted eligibility scores. It is pure: the same profile
// and criteria always produce the same result for a fixed clock.
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a scorer using the wall clock.
func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

// NewScorerAt creates a scorer with a fixed clock.
func NewScorerAt(now func() time.Time) *Scorer {
	return &Scorer{now: now}
}

// Score computes the weighted eligibility score of a profile against the
// given criteria. Inactive criteria contribute nothing; multiple active
// criteria in the same category have their weights summed. Categories with
// zero total weight are omitted from the breakdown.
func (s *Scorer) Score(profile *domain.ApplicantProfile, criteria []*domain.Criterion) *ScoreResult {
	result := &ScoreResult{}
	if profile == nil {
		return result
	}

	weights := make(map[domain.Category]float64)
	for _, c := range criteria {
		if c.Active {
			weights[c.Category] += c.Weight
		}
	}

	years := profile.QualifyingYears(s.now())
	result.QualifyingYears = years

	for _, cat := range domain.ValidCategories() {
		weight := weights[cat]
		if weight == 0 {
			continue
		}

		sub := s.subScore(profile, cat, years)
		points := weight * sub

		result.Breakdown = append(result.Breakdown, CategoryScore{
			Category: cat,
			Weight:   weight,
			SubScore: round2(sub),
			Points:   round2(points),
		})
		result.Total += points
	}

	result.Total = round2(result.Total)
	return result
}

// subScore computes the 0..1 attainment for one category.
func (s *Scorer) subScore(profile *domain.ApplicantProfile, cat domain.Category, years float64) float64 {
	switch cat {
	case domain.CategoryEducation:
		rank := profile.HighestDegree().Rank()
		return capped(float64(rank) / float64(educationThreshold.Rank()))
	case domain.CategoryExperience:
		return capped(years / experienceTargetYears)
	case domain.CategoryTraining:
		return capped(float64(profile.CountByCategory(cat)) / trainingSaturation)
	case domain.CategoryResearch:
		return capped(float64(profile.CountByCategory(cat)) / researchSaturation)
	case domain.CategoryProjects:
		return capped(float64(profile.CountByCategory(cat)) / projectsSaturation)
	default:
		return 0
	}
}

func capped(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
