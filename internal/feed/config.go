package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/lumeo/feedrank/internal/ads"
)

// PostWeights defines the organic scoring weights.
type PostWeights struct {
	// MaxRecency is the recency score of a candidate posted exactly now.
	MaxRecency float64 `json:"max_recency"`

	// DecayRate is the exponential decay rate per hour of age.
	DecayRate float64 `json:"decay_rate"`

	// Reacted and Commented reward candidates the viewer already engaged
	// with. Both may apply to the same candidate.
	Reacted   float64 `json:"reacted"`
	Commented float64 `json:"commented"`

	// Friend rewards candidates authored by the viewer's connections.
	Friend float64 `json:"friend"`
}

// EngagementWeights defines the per-counter engagement weights.
type EngagementWeights struct {
	Reaction float64 `json:"reaction"`
	Comment  float64 `json:"comment"`
	Share    float64 `json:"share"`
	View     float64 `json:"view"`
}

// Weights holds all scoring weight configurations.
type Weights struct {
	Post       PostWeights       `json:"post"`
	Engagement EngagementWeights `json:"engagement"`
	Ad         ads.Weights       `json:"ad"`
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // Config version for future compatibility
	Weights Weights `json:"weights"` // Weight overrides
}

// DefaultWeights returns the production scoring weights.
//
// Post formula: score = recency + engagement + reacted + commented + friend
// (+ ad bonus for promoted candidates). Recency starts at 100 and halves
// roughly every 6.9 hours; interaction bonuses (30/40/20) keep personally
// relevant content competitive with fresh content for about half a day.
func DefaultWeights() *Weights {
	return &Weights{
		Post: PostWeights{
			MaxRecency: 100,
			DecayRate:  0.1,
			Reacted:    30,
			Commented:  40,
			Friend:     20,
		},
		Engagement: EngagementWeights{
			Reaction: 1,
			Comment:  2,
			Share:    3,
			View:     0.01,
		},
		Ad: ads.DefaultWeights(),
	}
}

// LoadCalibration loads scoring weights from a JSON calibration file.
// Partial configurations are merged with defaults: only non-zero override
// values apply. On any read or parse error the defaults are returned
// alongside the error so callers can degrade gracefully.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights with base weights. Only non-zero
// override values are applied, which allows partial calibration files. Note
// this means a weight cannot be calibrated to exactly zero; disable a signal
// by setting a negligible value instead.
func MergeCalibration(base, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	mergeWeight(&result.Post.MaxRecency, override.Post.MaxRecency)
	mergeWeight(&result.Post.DecayRate, override.Post.DecayRate)
	mergeWeight(&result.Post.Reacted, override.Post.Reacted)
	mergeWeight(&result.Post.Commented, override.Post.Commented)
	mergeWeight(&result.Post.Friend, override.Post.Friend)

	mergeWeight(&result.Engagement.Reaction, override.Engagement.Reaction)
	mergeWeight(&result.Engagement.Comment, override.Engagement.Comment)
	mergeWeight(&result.Engagement.Share, override.Engagement.Share)
	mergeWeight(&result.Engagement.View, override.Engagement.View)

	mergeWeight(&result.Ad.Base, override.Ad.Base)
	mergeWeight(&result.Ad.GenderMatch, override.Ad.GenderMatch)
	mergeWeight(&result.Ad.AgeMatch, override.Ad.AgeMatch)
	mergeWeight(&result.Ad.LocationGPS, override.Ad.LocationGPS)
	mergeWeight(&result.Ad.LocationIP, override.Ad.LocationIP)
	mergeWeight(&result.Ad.LocationProfile, override.Ad.LocationProfile)
	mergeWeight(&result.Ad.PriorityMultiplier, override.Ad.PriorityMultiplier)

	return &result
}

// mergeWeight applies a non-zero override in place.
func mergeWeight(dst *float64, override float64) {
	if override != 0 {
		*dst = override
	}
}

// logCalibrationOverrides logs which weights were overridden from defaults.
func logCalibrationOverrides(defaults, loaded *Weights) {
	fields := []struct {
		name    string
		def     float64
		current float64
	}{
		{"post.max_recency", defaults.Post.MaxRecency, loaded.Post.MaxRecency},
		{"post.decay_rate", defaults.Post.DecayRate, loaded.Post.DecayRate},
		{"post.reacted", defaults.Post.Reacted, loaded.Post.Reacted},
		{"post.commented", defaults.Post.Commented, loaded.Post.Commented},
		{"post.friend", defaults.Post.Friend, loaded.Post.Friend},
		{"engagement.reaction", defaults.Engagement.Reaction, loaded.Engagement.Reaction},
		{"engagement.comment", defaults.Engagement.Comment, loaded.Engagement.Comment},
		{"engagement.share", defaults.Engagement.Share, loaded.Engagement.Share},
		{"engagement.view", defaults.Engagement.View, loaded.Engagement.View},
		{"ad.base", defaults.Ad.Base, loaded.Ad.Base},
		{"ad.gender_match", defaults.Ad.GenderMatch, loaded.Ad.GenderMatch},
		{"ad.age_match", defaults.Ad.AgeMatch, loaded.Ad.AgeMatch},
		{"ad.location_gps", defaults.Ad.LocationGPS, loaded.Ad.LocationGPS},
		{"ad.location_ip", defaults.Ad.LocationIP, loaded.Ad.LocationIP},
		{"ad.location_profile", defaults.Ad.LocationProfile, loaded.Ad.LocationProfile},
		{"ad.priority_multiplier", defaults.Ad.PriorityMultiplier, loaded.Ad.PriorityMultiplier},
	}

	var overrides []string
	for _, f := range fields {
		if f.current != f.def {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", f.name, f.def, f.current))
		}
	}

	if len(overrides) > 0 {
		slog.Info("loaded feed calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded feed calibration (using all defaults)")
	}
}
