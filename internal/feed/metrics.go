package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRankRequestsTotal     = "feed_rank_requests_total"
	MetricRankDuration          = "feed_rank_duration_seconds"
	MetricCandidatesScoredTotal = "feed_candidates_scored_total"
	MetricAdsScoredTotal        = "feed_ads_scored_total"
	MetricCacheHitsTotal        = "feed_cache_hits_total"
	MetricCacheMissesTotal      = "feed_cache_misses_total"
)

// Request status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics contains Prometheus metrics for feed ranking.
// All operations are thread-safe.
type Metrics struct {
	rankRequests     *prometheus.CounterVec
	rankDuration     prometheus.Histogram
	candidatesScored prometheus.Counter
	adsScored        prometheus.Counter
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		rankRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankRequestsTotal,
				Help: "Total number of feed ranking requests by status",
			},
			[]string{"status"},
		),
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRankDuration,
			Help:    "Histogram of feed ranking request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}),
		candidatesScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCandidatesScoredTotal,
			Help: "Total number of candidates scored",
		}),
		adsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricAdsScoredTotal,
			Help: "Total number of promoted candidates scored",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheHitsTotal,
			Help: "Total number of ranked feed pages served from cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheMissesTotal,
			Help: "Total number of ranked feed pages scored after a cache miss",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.rankRequests,
		m.rankDuration,
		m.candidatesScored,
		m.adsScored,
		m.cacheHits,
		m.cacheMisses,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncRankRequests increments the ranking request counter for a status.
func (m *Metrics) IncRankRequests(status string) {
	m.rankRequests.WithLabelValues(status).Inc()
}

// ObserveRankDuration records a ranking request duration sample.
func (m *Metrics) ObserveRankDuration(seconds float64) {
	m.rankDuration.Observe(seconds)
}

// AddCandidatesScored adds to the scored candidate counter.
func (m *Metrics) AddCandidatesScored(n int) {
	m.candidatesScored.Add(float64(n))
}

// AddAdsScored adds to the scored promoted-candidate counter.
func (m *Metrics) AddAdsScored(n int) {
	m.adsScored.Add(float64(n))
}

// IncCacheHits increments the cache hit counter.
func (m *Metrics) IncCacheHits() {
	m.cacheHits.Inc()
}

// IncCacheMisses increments the cache miss counter.
func (m *Metrics) IncCacheMisses() {
	m.cacheMisses.Inc()
}
