// Package geo provides viewer location resolution and matching of resolved
// locations against advertiser target lists.
package geo

import "strings"

// Source identifies how a viewer's location was resolved.
// Sources are ordered by trust: GPS reverse-geocoding is the most reliable,
// IP geolocation is coarser, and a profile-declared location is unverified.
type Source string

// Valid location sources.
const (
	SourceGPS     Source = "gps"
	SourceIP      Source = "ip"
	SourceProfile Source = "profile"
)

// ResolvedLocation is the viewer's location as determined by one of the
// supported sources. At most one ResolvedLocation is attached per ranking
// request; when it is absent, all location-based scoring contributes zero.
type ResolvedLocation struct {
	Source      Source `json:"source"`
	CountryCode string `json:"country_code,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	Country     string `json:"country,omitempty"`

	// Searchable is a lower-cased concatenation of the location components
	// used for substring matching. Populated by NewResolvedLocation; callers
	// constructing the struct directly should call Normalize.
	Searchable string `json:"searchable,omitempty"`
}

// NewResolvedLocation builds a ResolvedLocation with the searchable composite
// precomputed.
func NewResolvedLocation(source Source, countryCode, city, province, country string) *ResolvedLocation {
	loc := &ResolvedLocation{
		Source:      source,
		CountryCode: countryCode,
		City:        city,
		Province:    province,
		Country:     country,
	}
	loc.Normalize()
	return loc
}

// Normalize recomputes the searchable composite from the location components.
// Empty components are skipped so the composite never contains bare separators.
func (l *ResolvedLocation) Normalize() {
	parts := make([]string, 0, 4)
	for _, p := range []string{l.CountryCode, l.City, l.Province, l.Country} {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, strings.ToLower(p))
		}
	}
	l.Searchable = strings.Join(parts, " ")
}

// Signals carries the raw location inputs available for a ranking request.
// Any subset may be present.
type Signals struct {
	// GPS is a location derived from reverse-geocoding device coordinates.
	GPS *ResolvedLocation

	// IP is a location derived from IP geolocation.
	IP *ResolvedLocation

	// ProfileText is the free-text home location declared on the viewer's
	// profile.
	ProfileText string
}

// Resolve picks the best available location signal in trust order:
// GPS, then IP, then the profile-declared text. Returns nil when no signal
// is present.
//
// A profile-derived location carries only the searchable composite; its
// structured components are unknown, so it can match targets at substring
// level only.
func Resolve(s Signals) *ResolvedLocation {
	if s.GPS != nil {
		loc := *s.GPS
		loc.Source = SourceGPS
		loc.Normalize()
		return &loc
	}
	if s.IP != nil {
		loc := *s.IP
		loc.Source = SourceIP
		loc.Normalize()
		return &loc
	}
	if text := strings.TrimSpace(s.ProfileText); text != "" {
		return &ResolvedLocation{
			Source:     SourceProfile,
			Searchable: strings.ToLower(text),
		}
	}
	return nil
}
