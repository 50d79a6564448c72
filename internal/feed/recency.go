package feed

import (
	"math"
	"time"
)

// RecencyScore computes the exponentially decayed recency contribution of a
// candidate created at createdAt, observed at now.
//
// Formula: maxRecency * exp(-decayRate * ageHours). With the default decay
// rate of 0.1 per hour the score halves roughly every 6.9 hours. A candidate
// created in the future is treated as age zero rather than an error, so the
// score is monotonically non-increasing in age, equals maxRecency at age
// zero, and approaches zero without ever going negative.
//
// createdAt must be a valid instant; validating timestamps is the caller's
// responsibility at the data boundary.
func RecencyScore(createdAt, now time.Time, maxRecency, decayRate float64) float64 {
	ageHours := now.Sub(createdAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}

	score := maxRecency * math.Exp(-decayRate*ageHours)
	if score < 0 {
		// exp never goes negative; this guards a negative maxRecency
		// slipping in through a bad calibration file.
		return 0
	}
	return score
}
