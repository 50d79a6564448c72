package ads

import "github.com/lumeo/feedrank/internal/geo"

// Weights defines the ad bonus weights. Zero values in a calibration override
// are treated as "keep default", so all defaults are non-zero.
type Weights struct {
	// Base is granted to every promoted candidate before targeting bonuses.
	Base float64 `json:"base"`

	// GenderMatch is added when the viewer's gender is in the target set.
	GenderMatch float64 `json:"gender_match"`

	// AgeMatch is added when the viewer's age falls in the target range.
	AgeMatch float64 `json:"age_match"`

	// Location bonuses by resolution source. More trusted sources earn more.
	LocationGPS     float64 `json:"location_gps"`
	LocationIP      float64 `json:"location_ip"`
	LocationProfile float64 `json:"location_profile"`

	// PriorityMultiplier scales the advertiser priority boost:
	// final = score * (1 + priority/10 * PriorityMultiplier).
	PriorityMultiplier float64 `json:"priority_multiplier"`
}

// DefaultWeights returns the production ad weights.
func DefaultWeights() Weights {
	return Weights{
		Base:               50,
		GenderMatch:        60,
		AgeMatch:           100,
		LocationGPS:        150,
		LocationIP:         100,
		LocationProfile:    60,
		PriorityMultiplier: 1.5,
	}
}

// Score computes the ad bonus for one promoted candidate.
//
// The score accumulates additively from Base: gender match, age match, then a
// location match whose weight depends on how the viewer's location was
// resolved. When the resolved location does not match, the viewer's declared
// home location falls back to a verbatim scan of the target list at the
// profile weight. The priority multiplier is applied exactly once, after all
// additive bonuses.
//
// Missing optional viewer fields skip their bonus; Score never fails.
func Score(t *Targeting, viewer Audience, loc *geo.ResolvedLocation, w Weights) Result {
	var result Result
	result.Score = w.Base

	if viewer.Gender != nil && t.targetsGender(*viewer.Gender) {
		result.Score += w.GenderMatch
		result.Matches.Gender = true
	}

	if viewer.Age != nil {
		lo, hi := t.ageBounds()
		if *viewer.Age >= lo && *viewer.Age <= hi {
			result.Score += w.AgeMatch
			result.Matches.Age = true
		}
	}

	if match := geo.Match(loc, t.Locations); match.Matched {
		switch loc.Source {
		case geo.SourceGPS:
			result.Score += w.LocationGPS
		case geo.SourceIP:
			result.Score += w.LocationIP
		default:
			result.Score += w.LocationProfile
		}
		result.Matches.Location = true
		result.Matches.LocationLevel = match.Level
	} else if viewer.HomeLocation != nil && containsVerbatim(t.Locations, *viewer.HomeLocation) {
		result.Score += w.LocationProfile
		result.Matches.Location = true
		result.Matches.LocationLevel = geo.LevelProfile
	}

	if t.Priority != nil {
		result.Score *= 1 + (*t.Priority/10)*w.PriorityMultiplier
	}

	return result
}

// containsVerbatim reports whether the home location appears in the target
// list as an exact string. The declared home location is compared verbatim,
// unlike matcher targets which are trimmed and lower-cased.
func containsVerbatim(targets []string, home string) bool {
	if home == "" {
		return false
	}
	for _, t := range targets {
		if t == home {
			return true
		}
	}
	return false
}
