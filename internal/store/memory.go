package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lumeo/feedrank/internal/ads"
	"github.com/lumeo/feedrank/internal/feed"
)

// InMemoryStore is an in-memory implementation of feed.Store for tests and
// local development. Thread-safe via RWMutex.
type InMemoryStore struct {
	mu         sync.RWMutex
	viewers    map[string]feed.Viewer
	candidates []feed.Candidate
	reactions  map[string]map[string]struct{} // viewerID -> post ids
	comments   map[string]map[string]struct{} // viewerID -> post ids
	friends    map[string]map[string]struct{} // viewerID -> author ids
	targeting  map[string]*ads.Targeting      // post id -> targeting
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		viewers:   make(map[string]feed.Viewer),
		reactions: make(map[string]map[string]struct{}),
		comments:  make(map[string]map[string]struct{}),
		friends:   make(map[string]map[string]struct{}),
		targeting: make(map[string]*ads.Targeting),
	}
}

// PutViewer stores a viewer profile.
func (s *InMemoryStore) PutViewer(v feed.Viewer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewers[v.ID] = v
}

// AddCandidate appends a candidate post.
func (s *InMemoryStore) AddCandidate(c feed.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append(s.candidates, c)
}

// AddReaction records that a viewer reacted to a post.
func (s *InMemoryStore) AddReaction(viewerID, postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reactions[viewerID] == nil {
		s.reactions[viewerID] = make(map[string]struct{})
	}
	s.reactions[viewerID][postID] = struct{}{}
}

// AddComment records that a viewer commented on a post.
func (s *InMemoryStore) AddComment(viewerID, postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.comments[viewerID] == nil {
		s.comments[viewerID] = make(map[string]struct{})
	}
	s.comments[viewerID][postID] = struct{}{}
}

// AddFriendship records a symmetric social connection.
func (s *InMemoryStore) AddFriendship(viewerID, authorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pair := range [][2]string{{viewerID, authorID}, {authorID, viewerID}} {
		if s.friends[pair[0]] == nil {
			s.friends[pair[0]] = make(map[string]struct{})
		}
		s.friends[pair[0]][pair[1]] = struct{}{}
	}
}

// PutTargeting attaches ad targeting to a post, making it promoted.
// Invalid records are rejected like the database boundary would.
func (s *InMemoryStore) PutTargeting(t *ads.Targeting) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targeting[t.CandidateID] = t
	return nil
}

// ViewerProfile returns the viewer's profile.
func (s *InMemoryStore) ViewerProfile(_ context.Context, viewerID string) (*feed.Viewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.viewers[viewerID]
	if !ok {
		return nil, ErrViewerNotFound
	}
	// Copy to avoid external modification.
	result := v
	return &result, nil
}

// ListCandidates returns candidates created after the cutoff, newest first,
// capped at limit.
func (s *InMemoryStore) ListCandidates(_ context.Context, cutoff time.Time, limit int) ([]feed.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []feed.Candidate
	for _, c := range s.candidates {
		if c.CreatedAt.After(cutoff) {
			if c.ReactionCount < 0 || c.CommentCount < 0 || c.ShareCount < 0 || c.ViewCount < 0 {
				return nil, ErrNegativeCounter
			}
			result = append(result, c)
		}
	}

	sortCandidates(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// sortCandidates orders newest first with id as tie-breaker, matching the
// Postgres query ordering.
func sortCandidates(cs []feed.Candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.After(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}

// ReactedIDs returns the subset of candidateIDs the viewer reacted to.
func (s *InMemoryStore) ReactedIDs(_ context.Context, viewerID string, candidateIDs []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return intersect(s.reactions[viewerID], candidateIDs), nil
}

// CommentedIDs returns the subset of candidateIDs the viewer commented on.
func (s *InMemoryStore) CommentedIDs(_ context.Context, viewerID string, candidateIDs []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return intersect(s.comments[viewerID], candidateIDs), nil
}

func intersect(set map[string]struct{}, ids []string) map[string]struct{} {
	result := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := set[id]; ok {
			result[id] = struct{}{}
		}
	}
	return result
}

// FriendAuthorIDs returns the author ids the viewer is connected to.
func (s *InMemoryStore) FriendAuthorIDs(_ context.Context, viewerID string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]struct{}, len(s.friends[viewerID]))
	for id := range s.friends[viewerID] {
		result[id] = struct{}{}
	}
	return result, nil
}

// TargetingByCandidate returns targeting keyed by candidate id for the
// promoted subset of the batch.
func (s *InMemoryStore) TargetingByCandidate(_ context.Context, candidateIDs []string) (map[string]*ads.Targeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*ads.Targeting)
	for _, id := range candidateIDs {
		if t, ok := s.targeting[id]; ok {
			result[id] = t
		}
	}
	return result, nil
}
