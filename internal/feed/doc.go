// Package feed provides the feed scoring engine: a pure function family that
// blends recency decay, engagement counts, social-graph affinity, and ad
// targeting bonuses into a single ordering score per candidate.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, err := feed.LoadCalibration("configs/feed.calibration.json")
//	if err != nil {
//		log.Warn("using default weights", "error", err)
//	}
//
//	scorer := feed.NewScorer(weights)
//	scored := scorer.ScoreAll(candidates, &feed.Context{
//		Viewer:           viewer,
//		Location:         geo.Resolve(signals),
//		ReactedIDs:       reacted,
//		CommentedIDs:     commented,
//		FriendAuthorIDs:  friends,
//		AdsByCandidateID: targeting,
//		Now:              time.Now(),
//	})
//	feed.Rank(scored)
//
// The scoring functions are stateless and deterministic: identical inputs
// (including an identical Now) always produce identical output, so they are
// safe to call concurrently without locking. Scoring never performs I/O and
// never errors on missing optional data; absent fields degrade to a zero
// bonus. All I/O needed to assemble a Context happens in the caller (see
// Service and the store package).
//
// Calibration:
//
// Every weight in the formulas can be overridden through a JSON calibration
// file, enabling ranking experiments without code changes. The Reloader can
// additionally re-read the file on an interval so tuning does not require a
// restart. See DefaultWeights for the production values.
package feed
