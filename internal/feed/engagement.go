package feed

// EngagementScore computes the weighted interaction contribution of a
// candidate's counters.
//
// The default weights encode a deliberate signal ordering: a share (3x) is a
// stronger endorsement than a comment (2x), a comment stronger than a
// reaction (1x), and raw views are discounted a hundredfold (0.01x) so pure
// reach cannot drown out actual engagement. The score is strictly increasing
// in each counter independently.
func EngagementScore(c Candidate, w EngagementWeights) float64 {
	return float64(c.ReactionCount)*w.Reaction +
		float64(c.CommentCount)*w.Comment +
		float64(c.ShareCount)*w.Share +
		float64(c.ViewCount)*w.View
}
