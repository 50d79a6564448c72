package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lumeo/feedrank/internal/ads"
	"github.com/lumeo/feedrank/internal/feed"
	"github.com/lumeo/feedrank/internal/store"
)

// newTestHandlers builds feed handlers over an in-memory store seeded by fn.
func newTestHandlers(t *testing.T, fn func(s *store.InMemoryStore)) *FeedHandlers {
	t.Helper()

	s := store.NewInMemoryStore()
	if fn != nil {
		fn(s)
	}
	service := feed.NewService(feed.ServiceConfig{}, s, nil)
	return NewFeedHandlers(service)
}

func rankRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodPost, "/v1/feed/rank", strings.NewReader(body))
}

func TestRankFeed_Success(t *testing.T) {
	now := time.Now().UTC()
	handlers := newTestHandlers(t, func(s *store.InMemoryStore) {
		s.PutViewer(feed.Viewer{ID: "viewer-1"})
		s.AddCandidate(feed.Candidate{
			ID:        "post-old",
			AuthorID:  "author-1",
			CreatedAt: now.Add(-10 * time.Hour),
		})
		s.AddCandidate(feed.Candidate{
			ID:        "post-new",
			AuthorID:  "author-2",
			CreatedAt: now.Add(-1 * time.Hour),
		})
	})

	req := rankRequest(t, `{"viewer_id":"viewer-1"}`)
	w := httptest.NewRecorder()

	handlers.RankFeed(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp feed.RankResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
	if resp.Total != 2 {
		t.Errorf("expected total 2, got %d", resp.Total)
	}

	// The fresher post decays less, so it ranks first.
	if resp.Items[0].Candidate.ID != "post-new" {
		t.Errorf("expected post-new ranked first, got %s", resp.Items[0].Candidate.ID)
	}
	if resp.Items[0].Result.Total <= resp.Items[1].Result.Total {
		t.Errorf("expected descending totals, got %f then %f",
			resp.Items[0].Result.Total, resp.Items[1].Result.Total)
	}
	if resp.FromCache {
		t.Error("expected from_cache to be false without a cache")
	}
}

func TestRankFeed_PromotedCandidate(t *testing.T) {
	now := time.Now().UTC()
	handlers := newTestHandlers(t, func(s *store.InMemoryStore) {
		s.PutViewer(feed.Viewer{ID: "viewer-1"})
		s.AddCandidate(feed.Candidate{
			ID:        "post-ad",
			AuthorID:  "brand-1",
			CreatedAt: now.Add(-2 * time.Hour),
		})
		if err := s.PutTargeting(&ads.Targeting{
			CandidateID: "post-ad",
			Locations:   []string{"Lisbon"},
		}); err != nil {
			t.Fatalf("failed to seed targeting: %v", err)
		}
	})

	body := `{
		"viewer_id": "viewer-1",
		"location": {
			"gps": {"country_code": "PT", "city": "Lisbon", "country": "Portugal"}
		}
	}`
	req := rankRequest(t, body)
	w := httptest.NewRecorder()

	handlers.RankFeed(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp feed.RankResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}

	item := resp.Items[0]
	if !item.Result.IsAd {
		t.Error("expected candidate to be marked as an ad")
	}
	if item.Result.Breakdown.Ads == nil || *item.Result.Breakdown.Ads <= 0 {
		t.Error("expected a positive ads contribution in the breakdown")
	}
	if item.Result.AdMatches == nil || !item.Result.AdMatches.Location {
		t.Error("expected the GPS city to match the ad location targeting")
	}
}

func TestRankFeed_MissingViewerID(t *testing.T) {
	handlers := newTestHandlers(t, nil)

	req := rankRequest(t, `{"offset": 0}`)
	w := httptest.NewRecorder()

	handlers.RankFeed(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Code != ErrCodeMissingViewer {
		t.Errorf("expected code %s, got %s", ErrCodeMissingViewer, resp.Error.Code)
	}
}

func TestRankFeed_UnknownViewer(t *testing.T) {
	handlers := newTestHandlers(t, nil)

	req := rankRequest(t, `{"viewer_id":"nobody"}`)
	w := httptest.NewRecorder()

	handlers.RankFeed(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Code != ErrCodeViewerNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeViewerNotFound, resp.Error.Code)
	}
}

func TestRankFeed_InvalidJSON(t *testing.T) {
	handlers := newTestHandlers(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"viewer_id":`},
		{"unknown_field", `{"viewer_id":"viewer-1","surprise":true}`},
		{"wrong_type", `{"viewer_id":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := rankRequest(t, tt.body)
			w := httptest.NewRecorder()

			handlers.RankFeed(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", w.Code)
			}

			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error.Code != ErrCodeBadRequest {
				t.Errorf("expected code %s, got %s", ErrCodeBadRequest, resp.Error.Code)
			}
		})
	}
}

func TestRankFeed_NegativeOffset(t *testing.T) {
	handlers := newTestHandlers(t, nil)

	req := rankRequest(t, `{"viewer_id":"viewer-1","offset":-1}`)
	w := httptest.NewRecorder()

	handlers.RankFeed(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Code != ErrCodeValidation {
		t.Errorf("expected code %s, got %s", ErrCodeValidation, resp.Error.Code)
	}
}

func TestRankFeed_MethodNotAllowed(t *testing.T) {
	handlers := newTestHandlers(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/feed/rank", nil)
	w := httptest.NewRecorder()

	handlers.RankFeed(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestRankFeed_Pagination(t *testing.T) {
	now := time.Now().UTC()
	handlers := newTestHandlers(t, func(s *store.InMemoryStore) {
		s.PutViewer(feed.Viewer{ID: "viewer-1"})
		for i := 0; i < 5; i++ {
			s.AddCandidate(feed.Candidate{
				ID:        "post-" + string(rune('a'+i)),
				AuthorID:  "author-1",
				CreatedAt: now.Add(-time.Duration(i+1) * time.Hour),
			})
		}
	})

	req := rankRequest(t, `{"viewer_id":"viewer-1","offset":2,"limit":2}`)
	w := httptest.NewRecorder()

	handlers.RankFeed(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp feed.RankResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Items) != 2 {
		t.Errorf("expected 2 items in the page, got %d", len(resp.Items))
	}
	if resp.Total != 5 {
		t.Errorf("expected total 5, got %d", resp.Total)
	}
	// Offset 2 of a freshest-first ranking skips the two newest posts.
	if resp.Items[0].Candidate.ID != "post-c" {
		t.Errorf("expected post-c first in the page, got %s", resp.Items[0].Candidate.ID)
	}
}
