// Package main is rankcheck, an offline scoring tool. It runs the ranking
// engine over a JSON fixture and prints the scored feed, so weight changes
// can be checked without a running server or database.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lumeo/feedrank/internal/ads"
	"github.com/lumeo/feedrank/internal/feed"
	"github.com/lumeo/feedrank/internal/geo"
)

// Fixture is the JSON input of one offline scoring run.
type Fixture struct {
	Viewer     feed.Viewer      `json:"viewer"`
	Candidates []feed.Candidate `json:"candidates"`

	// ReactedIDs and CommentedIDs are candidate ids the viewer previously
	// interacted with.
	ReactedIDs   []string `json:"reacted_ids,omitempty"`
	CommentedIDs []string `json:"commented_ids,omitempty"`

	// FriendAuthorIDs are author ids the viewer is connected to.
	FriendAuthorIDs []string `json:"friend_author_ids,omitempty"`

	// Targeting holds ad targeting records for promoted candidates.
	Targeting []*ads.Targeting `json:"targeting,omitempty"`

	// Location is the viewer's resolved location, if any.
	Location *geo.ResolvedLocation `json:"location,omitempty"`

	// Now is the reference instant for recency decay. Zero means wall clock.
	Now time.Time `json:"now,omitempty"`
}

func main() {
	help := flag.Bool("help", false, "display help message")
	fixturePath := flag.String("fixture", "", "path to a JSON scoring fixture (required)")
	calibrationPath := flag.String("calibration", "", "path to a calibration file (optional)")
	asJSON := flag.Bool("json", false, "emit the full scored feed as JSON")
	flag.Parse()

	if *help || *fixturePath == "" {
		fmt.Println("Feedrank offline scoring tool")
		fmt.Println()
		fmt.Println("Usage: rankcheck -fixture feed.json [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		if *help {
			os.Exit(0)
		}
		os.Exit(2)
	}

	fixture, err := loadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rankcheck: %v\n", err)
		os.Exit(1)
	}

	weights, err := feed.LoadCalibration(*calibrationPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rankcheck: calibration load failed, using defaults: %v\n", err)
	}

	scored := score(fixture, weights)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(scored); err != nil {
			fmt.Fprintf(os.Stderr, "rankcheck: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printTable(scored)
}

func loadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if fixture.Viewer.ID == "" {
		return nil, fmt.Errorf("fixture has no viewer id")
	}

	for _, t := range fixture.Targeting {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("invalid targeting for %s: %w", t.CandidateID, err)
		}
	}

	if fixture.Location != nil {
		fixture.Location.Normalize()
	}

	return &fixture, nil
}

// score assembles a ranking context from the fixture and runs the engine.
func score(fixture *Fixture, weights *feed.Weights) []feed.Scored {
	now := fixture.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	targeting := make(map[string]*ads.Targeting, len(fixture.Targeting))
	for _, t := range fixture.Targeting {
		targeting[t.CandidateID] = t
	}

	ctx := &feed.Context{
		Viewer:           fixture.Viewer,
		Location:         fixture.Location,
		ReactedIDs:       toSet(fixture.ReactedIDs),
		CommentedIDs:     toSet(fixture.CommentedIDs),
		FriendAuthorIDs:  toSet(fixture.FriendAuthorIDs),
		AdsByCandidateID: targeting,
		Now:              now,
	}

	scorer := feed.NewScorer(weights)
	scored := scorer.ScoreAll(fixture.Candidates, ctx)
	feed.Rank(scored)
	return scored
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func printTable(scored []feed.Scored) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tID\tTOTAL\tRECENCY\tENGAGEMENT\tINTERACTION\tFRIEND\tADS")
	for i, item := range scored {
		b := item.Result.Breakdown
		adsCol := "-"
		if b.Ads != nil {
			adsCol = fmt.Sprintf("%.2f", *b.Ads)
		}
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
			i+1, item.Candidate.ID, item.Result.Total,
			b.Recency, b.Engagement, b.UserInteraction, b.Friend, adsCol)
	}
	w.Flush()
}
