// Package ads provides targeting models and the ad bonus scorer used by feed
// ranking for promoted candidates.
package ads

import (
	"errors"

	"github.com/lumeo/feedrank/internal/geo"
)

// Age range bounds applied when a targeting record leaves the range unset.
const (
	DefaultMinAge = 0
	DefaultMaxAge = 150
)

// Validation errors for targeting records. Validation happens at the storage
// boundary that creates targeting records; the scorer assumes valid input.
var (
	ErrInvalidAgeRange  = errors.New("invalid age range: min must be <= max")
	ErrNegativePriority = errors.New("invalid priority: must be non-negative")
)

// AgeRange is an inclusive viewer age range.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Targeting holds the demographic and location criteria attached to a
// promoted candidate.
type Targeting struct {
	CandidateID string `json:"candidate_id"`

	// Genders the ad targets. Empty means no gender targeting.
	Genders []string `json:"genders,omitempty"`

	// AgeRange the ad targets. Nil means the default open range.
	AgeRange *AgeRange `json:"age_range,omitempty"`

	// Locations is an ordered list of free-text location tokens. Order is
	// significant: the matcher scans it front to back.
	Locations []string `json:"locations,omitempty"`

	// Priority boosts the final ad score multiplicatively. Nil means no boost.
	Priority *float64 `json:"priority,omitempty"`
}

// Validate checks invariants the scorer relies on.
func (t *Targeting) Validate() error {
	if t.AgeRange != nil && t.AgeRange.Min > t.AgeRange.Max {
		return ErrInvalidAgeRange
	}
	if t.Priority != nil && *t.Priority < 0 {
		return ErrNegativePriority
	}
	return nil
}

// targetsGender reports whether the given viewer gender is in the target set.
func (t *Targeting) targetsGender(gender string) bool {
	for _, g := range t.Genders {
		if g == gender {
			return true
		}
	}
	return false
}

// ageBounds returns the effective inclusive age bounds.
func (t *Targeting) ageBounds() (int, int) {
	if t.AgeRange == nil {
		return DefaultMinAge, DefaultMaxAge
	}
	return t.AgeRange.Min, t.AgeRange.Max
}

// MatchSet records which targeting criteria a viewer satisfied. It is part
// of the score breakdown surfaced for auditing.
type MatchSet struct {
	Gender        bool           `json:"gender"`
	Age           bool           `json:"age"`
	Location      bool           `json:"location"`
	LocationLevel geo.MatchLevel `json:"location_level,omitempty"`
}

// Result is the outcome of scoring one targeting record against a viewer.
type Result struct {
	Score   float64  `json:"score"`
	Matches MatchSet `json:"matches"`
}

// Audience is the slice of viewer profile data the ad scorer consumes.
// All fields are optional; an absent field simply skips its bonus.
type Audience struct {
	Gender       *string
	Age          *int
	HomeLocation *string
}
