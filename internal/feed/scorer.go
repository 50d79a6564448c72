package feed

import (
	"github.com/lumeo/feedrank/internal/ads"
)

// Scorer computes composite scores for feed candidates. It holds only the
// weight configuration and is safe for concurrent use.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights. A nil weights argument
// uses the defaults.
func NewScorer(w *Weights) *Scorer {
	if w == nil {
		w = DefaultWeights()
	}
	return &Scorer{weights: *w}
}

// Weights returns the scorer's active weight configuration.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// ScoreCandidate computes the composite score of one candidate.
//
// The total accumulates additively: recency decay, engagement counters, the
// viewer's own past interactions with the candidate (reacted and commented
// bonuses stack), a friend-author bonus, and for promoted candidates the ad
// targeting bonus. The breakdown records every named contribution so a total
// can always be audited back to its parts.
//
// The scorer never drops, filters, or reorders candidates; sorting and
// pagination belong to the caller (see Rank and Service).
func (s *Scorer) ScoreCandidate(c Candidate, ctx *Context) Result {
	var result Result

	result.Breakdown.Recency = RecencyScore(c.CreatedAt, ctx.Now, s.weights.Post.MaxRecency, s.weights.Post.DecayRate)
	result.Breakdown.Engagement = EngagementScore(c, s.weights.Engagement)

	if _, ok := ctx.ReactedIDs[c.ID]; ok {
		result.Breakdown.UserInteraction += s.weights.Post.Reacted
	}
	if _, ok := ctx.CommentedIDs[c.ID]; ok {
		result.Breakdown.UserInteraction += s.weights.Post.Commented
	}

	if _, ok := ctx.FriendAuthorIDs[c.AuthorID]; ok {
		result.Breakdown.Friend = s.weights.Post.Friend
	}

	result.Total = result.Breakdown.Recency +
		result.Breakdown.Engagement +
		result.Breakdown.UserInteraction +
		result.Breakdown.Friend

	if targeting, ok := ctx.AdsByCandidateID[c.ID]; ok && targeting != nil {
		adResult := ads.Score(targeting, ctx.Viewer.audience(), ctx.Location, s.weights.Ad)
		result.IsAd = true
		result.Breakdown.Ads = &adResult.Score
		result.AdMatches = &adResult.Matches
		result.Total += adResult.Score
	}

	return result
}

// ScoreAll scores a batch of candidates against one context. Output order
// mirrors input order; no candidate is dropped.
func (s *Scorer) ScoreAll(candidates []Candidate, ctx *Context) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Candidate: c, Result: s.ScoreCandidate(c, ctx)}
	}
	return scored
}
