package geo

import "strings"

// MatchLevel is the precedence tier at which a viewer's resolved location
// satisfied a target token.
type MatchLevel string

// Match levels in precedence order, highest first. LevelProfile is never
// produced by Match itself; it is recorded by the ads scorer when the match
// came from the viewer's profile-declared home location fallback.
const (
	LevelCountryCode MatchLevel = "country_code"
	LevelCity        MatchLevel = "city"
	LevelProvince    MatchLevel = "province"
	LevelCountry     MatchLevel = "country"
	LevelSubstring   MatchLevel = "substring"
	LevelProfile     MatchLevel = "profile"
)

// MatchResult reports whether a location matched a target list and at which
// level. Level is empty when Matched is false.
type MatchResult struct {
	Matched bool       `json:"matched"`
	Level   MatchLevel `json:"level,omitempty"`
}

// Match tests a viewer's resolved location against an advertiser's target
// list. Targets are scanned in list order; for each target token (trimmed,
// lower-cased) the levels are tried in fixed precedence: country code, city,
// province, country name, then substring containment within the searchable
// composite. The first target that satisfies any level wins.
//
// The nested iteration order (per target, all levels) is load-bearing: when
// a location satisfies different levels across different targets, the level
// reported is the one from the earliest target in the list, not the globally
// best level. Reordering the loops changes reported levels and therefore ad
// scores.
//
// A nil location or empty target list returns an unmatched result.
func Match(loc *ResolvedLocation, targets []string) MatchResult {
	if loc == nil || len(targets) == 0 {
		return MatchResult{}
	}

	countryCode := strings.ToLower(strings.TrimSpace(loc.CountryCode))
	city := strings.ToLower(strings.TrimSpace(loc.City))
	province := strings.ToLower(strings.TrimSpace(loc.Province))
	country := strings.ToLower(strings.TrimSpace(loc.Country))

	for _, raw := range targets {
		target := strings.ToLower(strings.TrimSpace(raw))
		if target == "" {
			continue
		}

		switch {
		case target == countryCode && countryCode != "":
			return MatchResult{Matched: true, Level: LevelCountryCode}
		case target == city && city != "":
			return MatchResult{Matched: true, Level: LevelCity}
		case target == province && province != "":
			return MatchResult{Matched: true, Level: LevelProvince}
		case target == country && country != "":
			return MatchResult{Matched: true, Level: LevelCountry}
		case loc.Searchable != "" && strings.Contains(loc.Searchable, target):
			return MatchResult{Matched: true, Level: LevelSubstring}
		}
	}

	return MatchResult{}
}
