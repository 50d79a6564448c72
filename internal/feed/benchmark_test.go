package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/lumeo/feedrank/internal/ads"
	"github.com/lumeo/feedrank/internal/geo"
)

// BenchmarkRecencyScore benchmarks the recency decay calculation.
func BenchmarkRecencyScore(b *testing.B) {
	now := time.Now()
	createdAt := now.Add(-6 * time.Hour)
	w := DefaultWeights().Post

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RecencyScore(createdAt, now, w.MaxRecency, w.DecayRate)
	}
}

// BenchmarkEngagementScore benchmarks the engagement weighting.
func BenchmarkEngagementScore(b *testing.B) {
	c := Candidate{ReactionCount: 42, CommentCount: 7, ShareCount: 3, ViewCount: 9001}
	w := DefaultWeights().Engagement

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EngagementScore(c, w)
	}
}

// BenchmarkScoreCandidate benchmarks the full composite score for one
// promoted candidate with every bonus firing.
func BenchmarkScoreCandidate(b *testing.B) {
	now := time.Now()
	scorer := NewScorer(nil)

	gender := "female"
	age := 27
	priority := 5.0

	c := Candidate{
		ID:            "p1",
		AuthorID:      "friend-1",
		CreatedAt:     now.Add(-2 * time.Hour),
		ReactionCount: 42,
		CommentCount:  7,
		ShareCount:    3,
		ViewCount:     9001,
	}
	ctx := &Context{
		Now:             now,
		Viewer:          Viewer{ID: "v1", Gender: &gender, Age: &age},
		Location:        geo.NewResolvedLocation(geo.SourceGPS, "ID", "Jakarta", "DKI Jakarta", "Indonesia"),
		ReactedIDs:      map[string]struct{}{"p1": {}},
		CommentedIDs:    map[string]struct{}{"p1": {}},
		FriendAuthorIDs: map[string]struct{}{"friend-1": {}},
		AdsByCandidateID: map[string]*ads.Targeting{
			"p1": {
				CandidateID: "p1",
				Genders:     []string{"female"},
				AgeRange:    &ads.AgeRange{Min: 18, Max: 35},
				Locations:   []string{"jakarta"},
				Priority:    &priority,
			},
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scorer.ScoreCandidate(c, ctx)
	}
}

// BenchmarkScoreAndRank benchmarks scoring plus sorting a realistic batch.
func BenchmarkScoreAndRank(b *testing.B) {
	now := time.Now()
	scorer := NewScorer(nil)

	candidates := make([]Candidate, 500)
	for i := range candidates {
		candidates[i] = Candidate{
			ID:            fmt.Sprintf("post-%d", i),
			AuthorID:      fmt.Sprintf("author-%d", i%50),
			CreatedAt:     now.Add(-time.Duration(i) * time.Minute),
			ReactionCount: int64(i % 100),
			CommentCount:  int64(i % 10),
			ViewCount:     int64(i * 37),
		}
	}
	ctx := &Context{Now: now, FriendAuthorIDs: map[string]struct{}{"author-3": {}, "author-7": {}}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scored := scorer.ScoreAll(candidates, ctx)
		Rank(scored)
	}
}
