// Package cache provides a Redis-backed cache of ranked feed pages.
//
// The cache is strictly best-effort: every failure path degrades to a miss
// (for reads) or a dropped write, so an unavailable Redis can slow ranking
// down but never break it. Pages are encoded with CBOR, which is compact and
// round-trips timestamps without string parsing on the hot path.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lumeo/feedrank/internal/feed"
)

// DefaultTTL bounds how stale a cached page may get. Ranked feeds decay
// quickly (recency is the dominant signal), so pages expire fast.
const DefaultTTL = 60 * time.Second

// encMode encodes time.Time at full precision so cached pages score-compare
// equal to freshly built ones.
var encMode cbor.EncMode

func init() {
	mode, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: invalid cbor encoding options: %v", err))
	}
	encMode = mode
}

// cachedPage is the CBOR envelope stored per page. Total is the number of
// candidates scored before pagination, so a cache hit reports the same total
// as the scoring pass that produced it.
type cachedPage struct {
	Items       []feed.Scored `cbor:"items"`
	Total       int           `cbor:"total"`
	GeneratedAt time.Time     `cbor:"generated_at"`
}

// FeedCache caches ranked feed pages per viewer with version-based
// invalidation: bumping a viewer's version makes every cached page for that
// viewer unreachable, and the orphaned entries age out via TTL.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ feed.Cache = (*FeedCache)(nil)

// NewFeedCache creates a feed page cache. A non-positive ttl uses DefaultTTL.
func NewFeedCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *FeedCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedCache{client: client, ttl: ttl, logger: logger}
}

// GetPage returns a cached page for the viewer along with the pre-pagination
// total, or (nil, 0, false) on a miss or any error.
func (c *FeedCache) GetPage(ctx context.Context, viewerID string, offset, limit int) ([]feed.Scored, int, bool) {
	version, err := c.client.Get(ctx, versionKey(viewerID)).Int64()
	if err == redis.Nil {
		version = 0
	} else if err != nil {
		c.logger.Warn("feed cache version lookup failed", "viewer_id", viewerID, "error", err)
		return nil, 0, false
	}

	data, err := c.client.Get(ctx, pageKey(viewerID, version, offset, limit)).Bytes()
	if err == redis.Nil {
		return nil, 0, false
	}
	if err != nil {
		c.logger.Warn("feed cache read failed", "viewer_id", viewerID, "error", err)
		return nil, 0, false
	}

	page, err := decodePage(data)
	if err != nil {
		c.logger.Warn("feed cache entry undecodable, treating as miss",
			"viewer_id", viewerID, "error", err)
		return nil, 0, false
	}
	return page.Items, page.Total, true
}

// SetPage stores a ranked page for the viewer. Failures are logged and
// dropped.
func (c *FeedCache) SetPage(ctx context.Context, viewerID string, offset, limit int, items []feed.Scored, total int) {
	version, err := c.client.Get(ctx, versionKey(viewerID)).Int64()
	if err == redis.Nil {
		version = 0
	} else if err != nil {
		c.logger.Warn("feed cache version lookup failed", "viewer_id", viewerID, "error", err)
		return
	}

	data, err := encodePage(cachedPage{Items: items, Total: total, GeneratedAt: time.Now().UTC()})
	if err != nil {
		c.logger.Warn("feed cache encode failed", "viewer_id", viewerID, "error", err)
		return
	}

	if err := c.client.Set(ctx, pageKey(viewerID, version, offset, limit), data, c.ttl).Err(); err != nil {
		c.logger.Warn("feed cache write failed", "viewer_id", viewerID, "error", err)
	}
}

// Invalidate makes all cached pages for the viewer unreachable. Called when
// an interaction changes the viewer's ranking context mid-TTL.
func (c *FeedCache) Invalidate(ctx context.Context, viewerID string) error {
	if err := c.client.Incr(ctx, versionKey(viewerID)).Err(); err != nil {
		return fmt.Errorf("failed to bump feed cache version: %w", err)
	}
	return nil
}

// HealthCheck pings Redis; used by the health endpoint.
func (c *FeedCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func versionKey(viewerID string) string {
	return "feed:ver:" + viewerID
}

func pageKey(viewerID string, version int64, offset, limit int) string {
	return fmt.Sprintf("feed:page:%s:%d:%d:%d", viewerID, version, offset, limit)
}

func encodePage(page cachedPage) ([]byte, error) {
	return encMode.Marshal(page)
}

func decodePage(data []byte) (*cachedPage, error) {
	var page cachedPage
	if err := cbor.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
