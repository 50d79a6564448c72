package feed

import (
	"time"

	"github.com/lumeo/feedrank/internal/ads"
	"github.com/lumeo/feedrank/internal/geo"
)

// Candidate is a feed item eligible for ranking: an organic post or a
// promoted post. The engine reads a snapshot of its counters and never
// mutates it.
type Candidate struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id"`
	CreatedAt     time.Time `json:"created_at"`
	ReactionCount int64     `json:"reaction_count"`
	CommentCount  int64     `json:"comment_count"`
	ShareCount    int64     `json:"share_count"`
	ViewCount     int64     `json:"view_count"`
}

// Viewer is the profile data of the user the feed is ranked for. All
// demographic fields are optional; nil simply skips the related bonuses.
type Viewer struct {
	ID           string  `json:"id"`
	Gender       *string `json:"gender,omitempty"`
	Age          *int    `json:"age,omitempty"`
	HomeLocation *string `json:"home_location,omitempty"`
}

// audience converts the viewer into the slice of profile data the ad scorer
// consumes.
func (v *Viewer) audience() ads.Audience {
	return ads.Audience{
		Gender:       v.Gender,
		Age:          v.Age,
		HomeLocation: v.HomeLocation,
	}
}

// Context carries everything a single ranking call needs besides the
// candidates themselves. The engine treats all of it as read-only; the
// caller fetches and owns the data.
type Context struct {
	Viewer   Viewer
	Location *geo.ResolvedLocation

	// ReactedIDs and CommentedIDs are candidate ids the viewer previously
	// interacted with.
	ReactedIDs   map[string]struct{}
	CommentedIDs map[string]struct{}

	// FriendAuthorIDs are author ids the viewer is socially connected to.
	FriendAuthorIDs map[string]struct{}

	// AdsByCandidateID maps promoted candidate ids to their targeting.
	AdsByCandidateID map[string]*ads.Targeting

	// Now is the reference instant for recency decay. Using a fixed Now for
	// a whole batch keeps scoring idempotent within the request.
	Now time.Time
}

// Breakdown records each named contribution to a candidate's total score.
// Useful for auditing, debugging, and calibration experiments.
type Breakdown struct {
	Recency         float64  `json:"recency"`
	Engagement      float64  `json:"engagement"`
	UserInteraction float64  `json:"user_interaction"`
	Friend          float64  `json:"friend"`
	Ads             *float64 `json:"ads,omitempty"`
}

// Result is the engine output for one candidate.
type Result struct {
	Total     float64       `json:"total"`
	Breakdown Breakdown     `json:"breakdown"`
	IsAd      bool          `json:"is_ad"`
	AdMatches *ads.MatchSet `json:"ad_matches,omitempty"`
}

// Scored pairs a candidate with its score for sorting and delivery.
type Scored struct {
	Candidate Candidate `json:"candidate"`
	Result    Result    `json:"result"`
}
