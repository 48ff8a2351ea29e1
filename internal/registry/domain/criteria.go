package domain

import "time"

// Category names a scoring dimension of an applicant profile.
type Category string

const (
	CategoryEducation  Category = "education"
	CategoryExperience Category = "experience"
	CategoryTraining   Category = "training"
	CategoryResearch   Category = "research"
	CategoryProjects   Category = "projects"
)

// ValidCategories returns all scoring categories.
func ValidCategories() []Category {
	return []Category{
		CategoryEducation,
		CategoryExperience,
		CategoryTraining,
		CategoryResearch,
		CategoryProjects,
	}
}

// IsValid checks if the category is recognised.
func (c Category) IsValid() bool {
	for _, valid := range ValidCategories() {
		if c == valid {
			return true
		}
	}
	return false
}

// Criterion is a weighted scoring criterion. Weights are percentages; the
// registry reports imbalance but never enforces that active weights sum
// to 100.
type Criterion struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Category    Category  `db:"category" json:"category"`
	Weight      float64   `db:"weight" json:"weight"` // 0-100
	Description string    `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// WeightBalance reports how the active criteria weights relate to 100.
type WeightBalance struct {
	TotalWeight float64 `json:"total_weight"`
	Balanced    bool    `json:"balanced"`
	Remaining   float64 `json:"remaining,omitempty"` // positive when under 100
	Excess      float64 `json:"excess,omitempty"`    // positive when over 100
}

// BalanceOf computes the weight balance for a set of criteria. Inactive
// criteria are ignored.
func BalanceOf(criteria []*Criterion) WeightBalance {
	var total float64
	for _, c := range criteria {
		if c.Active {
			total += c.Weight
		}
	}

	balance := WeightBalance{TotalWeight: total, Balanced: total == 100}
	if total < 100 {
		balance.Remaining = 100 - total
	} else if total > 100 {
		balance.Excess = total - 100
	}
	return balance
}

// LevelBand maps an experience-year range to a named certification level.
// MaxYears is nil for the unbounded top band. A band with MaxYears m covers
// fractional years up to (m+1), so a contiguous integer configuration such
// as 0-2, 3-5, 6-8, 9+ is gapless.
type LevelBand struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	MinYears    int       `db:"min_years" json:"min_years"`
	MaxYears    *int      `db:"max_years" json:"max_years,omitempty"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Contains reports whether the band covers the given experience years.
func (b *LevelBand) Contains(years float64) bool {
	if years < float64(b.MinYears) {
		return false
	}
	if b.MaxYears == nil {
		return true
	}
	return years < float64(*b.MaxYears)+1
}
