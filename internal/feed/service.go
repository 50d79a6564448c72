package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumeo/feedrank/internal/ads"
	"github.com/lumeo/feedrank/internal/geo"
	"github.com/lumeo/feedrank/internal/tracing"
)

// Service-level errors.
var (
	ErrMissingViewerID = errors.New("viewer id is required")
	ErrViewerNotFound  = errors.New("viewer not found")
)

// Store supplies the data a ranking request needs. Implementations live in
// the store package; the engine only ever reads through this interface.
type Store interface {
	// ViewerProfile returns the viewer's demographic profile.
	ViewerProfile(ctx context.Context, viewerID string) (*Viewer, error)

	// ListCandidates returns candidate posts created after the cutoff,
	// newest first, capped at limit.
	ListCandidates(ctx context.Context, cutoff time.Time, limit int) ([]Candidate, error)

	// ReactedIDs returns the subset of candidateIDs the viewer reacted to.
	ReactedIDs(ctx context.Context, viewerID string, candidateIDs []string) (map[string]struct{}, error)

	// CommentedIDs returns the subset of candidateIDs the viewer commented on.
	CommentedIDs(ctx context.Context, viewerID string, candidateIDs []string) (map[string]struct{}, error)

	// FriendAuthorIDs returns the author ids the viewer is connected to.
	FriendAuthorIDs(ctx context.Context, viewerID string) (map[string]struct{}, error)

	// TargetingByCandidate returns ad targeting records keyed by candidate
	// id, for the subset of candidateIDs that are promoted.
	TargetingByCandidate(ctx context.Context, candidateIDs []string) (map[string]*ads.Targeting, error)
}

// Cache holds ranked feed pages. Pages carry the pre-pagination candidate
// total alongside the items so cache hits report the same Total a fresh
// scoring pass would. Implementations are best-effort: a lookup that fails
// behaves as a miss and a failed write is dropped silently, so the cache can
// never break ranking.
type Cache interface {
	GetPage(ctx context.Context, viewerID string, offset, limit int) ([]Scored, int, bool)
	SetPage(ctx context.Context, viewerID string, offset, limit int, items []Scored, total int)
}

// RankRequest is one feed ranking invocation.
type RankRequest struct {
	ViewerID string

	// Location carries the raw location signals for this request; the
	// service resolves them in trust order.
	Location geo.Signals

	Offset int
	Limit  int

	// SkipCache forces a fresh scoring pass, bypassing the page cache.
	SkipCache bool
}

// RankResponse is the ranked, paginated feed slice.
type RankResponse struct {
	Items []Scored `json:"items"`
	// Total is the number of candidates scored before pagination.
	Total       int       `json:"total"`
	GeneratedAt time.Time `json:"generated_at"`
	FromCache   bool      `json:"from_cache"`
}

// ServiceConfig configures the feed ranking service.
type ServiceConfig struct {
	// Window bounds how far back candidates are fetched.
	Window time.Duration
	// MaxCandidates caps the scoring batch per request.
	MaxCandidates int
	// PageSize is the default page size when a request has no limit.
	PageSize int
	// Logger for request activity.
	Logger *slog.Logger
	// Metrics for ranking instrumentation. Optional.
	Metrics *Metrics
	// WeightsFn returns the active weights per request, typically
	// Reloader.Current. Nil means defaults.
	WeightsFn func() *Weights
}

// Service defaults.
const (
	DefaultWindow        = 72 * time.Hour
	DefaultMaxCandidates = 500
	DefaultPageSize      = 25
)

// Service assembles the ranking context from the store, runs the scoring
// engine over the candidate batch, and returns a sorted, paginated page.
// It is the caller the pure engine is specified against: sorting, pagination
// and caching happen here, never inside the scorer.
type Service struct {
	config ServiceConfig
	store  Store
	cache  Cache
}

// NewService creates a feed ranking service. The cache may be nil.
func NewService(config ServiceConfig, store Store, cache Cache) *Service {
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = DefaultMaxCandidates
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Service{
		config: config,
		store:  store,
		cache:  cache,
	}
}

// RankFeed scores and ranks the feed for one viewer.
func (s *Service) RankFeed(ctx context.Context, req RankRequest) (*RankResponse, error) {
	if req.ViewerID == "" {
		return nil, ErrMissingViewerID
	}
	if req.Limit <= 0 {
		req.Limit = s.config.PageSize
	}

	ctx, endSpan := tracing.StartSpan(ctx, "feed.rank")
	start := time.Now()

	resp, err := s.rankFeed(ctx, req)
	endSpan(err)

	if s.config.Metrics != nil {
		s.config.Metrics.ObserveRankDuration(time.Since(start).Seconds())
		if err != nil {
			s.config.Metrics.IncRankRequests(StatusError)
		} else {
			s.config.Metrics.IncRankRequests(StatusOK)
		}
	}

	return resp, err
}

func (s *Service) rankFeed(ctx context.Context, req RankRequest) (*RankResponse, error) {
	if s.cache != nil && !req.SkipCache {
		if items, total, ok := s.cache.GetPage(ctx, req.ViewerID, req.Offset, req.Limit); ok {
			if s.config.Metrics != nil {
				s.config.Metrics.IncCacheHits()
			}
			return &RankResponse{
				Items:       items,
				Total:       total,
				GeneratedAt: time.Now().UTC(),
				FromCache:   true,
			}, nil
		}
		if s.config.Metrics != nil {
			s.config.Metrics.IncCacheMisses()
		}
	}

	viewer, err := s.store.ViewerProfile(ctx, req.ViewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load viewer profile: %w", err)
	}

	now := time.Now().UTC()
	cutoff := now.Add(-s.config.Window)

	candidates, err := s.store.ListCandidates(ctx, cutoff, s.config.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	rankCtx, err := s.buildContext(ctx, viewer, req.Location, candidates, now)
	if err != nil {
		return nil, err
	}

	scorer := NewScorer(s.activeWeights())
	scored := scorer.ScoreAll(candidates, rankCtx)
	Rank(scored)

	if s.config.Metrics != nil {
		s.config.Metrics.AddCandidatesScored(len(scored))
		s.config.Metrics.AddAdsScored(len(rankCtx.AdsByCandidateID))
	}

	page := Page(scored, req.Offset, req.Limit)
	if s.cache != nil {
		s.cache.SetPage(ctx, req.ViewerID, req.Offset, req.Limit, page, len(scored))
	}

	s.config.Logger.Debug("ranked feed",
		"viewer_id", req.ViewerID,
		"candidates", len(scored),
		"ads", len(rankCtx.AdsByCandidateID),
		"page_size", len(page))

	return &RankResponse{
		Items:       page,
		Total:       len(scored),
		GeneratedAt: now,
	}, nil
}

// buildContext gathers the per-request interaction sets and ad targeting.
func (s *Service) buildContext(ctx context.Context, viewer *Viewer, signals geo.Signals, candidates []Candidate, now time.Time) (*Context, error) {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}

	reacted, err := s.store.ReactedIDs(ctx, viewer.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load reactions: %w", err)
	}

	commented, err := s.store.CommentedIDs(ctx, viewer.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}

	friends, err := s.store.FriendAuthorIDs(ctx, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load friendships: %w", err)
	}

	targeting, err := s.store.TargetingByCandidate(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load ad targeting: %w", err)
	}

	// A viewer without location signals falls back to their declared home
	// location for profile-level resolution.
	if signals.GPS == nil && signals.IP == nil && signals.ProfileText == "" && viewer.HomeLocation != nil {
		signals.ProfileText = *viewer.HomeLocation
	}

	return &Context{
		Viewer:           *viewer,
		Location:         geo.Resolve(signals),
		ReactedIDs:       reacted,
		CommentedIDs:     commented,
		FriendAuthorIDs:  friends,
		AdsByCandidateID: targeting,
		Now:              now,
	}, nil
}

func (s *Service) activeWeights() *Weights {
	if s.config.WeightsFn != nil {
		return s.config.WeightsFn()
	}
	return nil
}
