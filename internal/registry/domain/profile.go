package domain

import (
	"sort"
	"time"
)

// Degree names an education qualification level.
type Degree string

const (
	DegreeCertificate Degree = "certificate"
	DegreeDiploma     Degree = "diploma"
	DegreeBachelor    Degree = "bachelor"
	DegreeMaster      Degree = "master"
	DegreePhD         Degree = "phd"
)

// degreeRanks orders degrees for threshold comparison.
var degreeRanks = map[Degree]int{
	DegreeCertificate: 1,
	DegreeDiploma:     2,
	DegreeBachelor:    3,
	DegreeMaster:      4,
	DegreePhD:         5,
}

// Rank returns the comparison rank of the degree, 0 if unknown.
func (d Degree) Rank() int {
	return degreeRanks[d]
}

// IsValid checks if the degree is recognised.
func (d Degree) IsValid() bool {
	return degreeRanks[d] != 0
}

// Personal holds an applicant's identity and contact details.
type Personal struct {
	FullName   string    `json:"full_name"`
	NationalID string    `json:"national_id"`
	BirthDate  time.Time `json:"birth_date"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
}

// EducationEntry is a single education record in a profile.
type EducationEntry struct {
	ID          string `json:"id"`
	Degree      Degree `json:"degree"`
	Field       string `json:"field"`
	Institution string `json:"institution"`
	Country     string `json:"country"`
	StartYear   int    `json:"start_year"`
	EndYear     int    `json:"end_year,omitempty"`
	InProgress  bool   `json:"in_progress,omitempty"`
}

// ExperienceEntry is a single employment record in a profile.
type ExperienceEntry struct {
	ID               string     `json:"id"`
	Position         string     `json:"position"`
	Company          string     `json:"company"`
	Location         string     `json:"location"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	CurrentlyWorking bool       `json:"currently_working,omitempty"`
	Description      string     `json:"description"`
}

// CertificationClaim is a training certificate or professional certification
// claimed by the applicant.
type CertificationClaim struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Issuer     string     `json:"issuer"`
	Category   Category   `json:"category"` // training, research, projects
	IssuedDate time.Time  `json:"issued_date"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Verified   bool       `json:"verified"`
}

// ApplicantProfile is the structured credential profile scored by the
// eligibility engine. A profile is owned by exactly one application and is
// copied, never shared, into workflow snapshots so registrar edits stay
// attributable.
type ApplicantProfile struct {
	Personal       Personal             `json:"personal"`
	Education      []EducationEntry     `json:"education"`
	Experience     []ExperienceEntry    `json:"experience"`
	Documents      []string             `json:"documents"` // document IDs, versions live in the ledger
	Certifications []CertificationClaim `json:"certifications"`
}

// Clone returns a deep copy of the profile.
func (p *ApplicantProfile) Clone() *ApplicantProfile {
	if p == nil {
		return nil
	}
	out := &ApplicantProfile{Personal: p.Personal}
	out.Education = append([]EducationEntry(nil), p.Education...)
	out.Experience = append([]ExperienceEntry(nil), p.Experience...)
	out.Documents = append([]string(nil), p.Documents...)
	out.Certifications = append([]CertificationClaim(nil), p.Certifications...)
	return out
}

// HighestDegree returns the highest-ranked degree in the profile, or the
// empty degree when no education is recorded. In-progress entries count.
func (p *ApplicantProfile) HighestDegree() Degree {
	var highest Degree
	for _, e := range p.Education {
		if e.Degree.Rank() > highest.Rank() {
			highest = e.Degree
		}
	}
	return highest
}

// CountByCategory returns the number of claims in the given category.
// Only verified claims count toward scoring.
func (p *ApplicantProfile) CountByCategory(cat Category) int {
	n := 0
	for _, c := range p.Certifications {
		if c.Category == cat && c.Verified {
			n++
		}
	}
	return n
}

const daysPerYear = 365.25

// QualifyingYears computes total qualifying experience as the union of the
// profile's employment date ranges. Overlapping ranges are merged so the
// same calendar time is never counted twice. Open-ended entries run to now.
func (p *ApplicantProfile) QualifyingYears(now time.Time) float64 {
	type span struct{ start, end time.Time }

	var spans []span
	for _, e := range p.Experience {
		end := now
		if e.EndDate != nil && !e.CurrentlyWorking {
			end = *e.EndDate
		}
		if !end.After(e.StartDate) {
			continue
		}
		spans = append(spans, span{start: e.StartDate, end: end})
	}
	if len(spans) == 0 {
		return 0
	}

	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start.Before(spans[j].start)
	})

	var total time.Duration
	current := spans[0]
	for _, s := range spans[1:] {
		if !s.start.After(current.end) {
			// Overlaps or touches the current span, extend it
			if s.end.After(current.end) {
				current.end = s.end
			}
			continue
		}
		total += current.end.Sub(current.start)
		current = s
	}
	total += current.end.Sub(current.start)

	return total.Hours() / 24 / daysPerYear
}
