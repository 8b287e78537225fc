package baseline

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SubnetScope/models"
)

// Cache is a shared baseline tier (Redis in production)
type Cache interface {
	Get(ctx context.Context, key string) (models.Baseline, bool)
	Set(ctx context.Context, key string, b models.Baseline)
}

// LookupRecorder is told about every cache lookup
type LookupRecorder func(tier string, hit bool)

// Store computes baselines and memoizes them per (subnet, metric).
// Entries are bounded by size and TTL; within the TTL a cached baseline
// is returned even if newer history is passed in.
type Store struct {
	local         *expirable.LRU[string, models.Baseline]
	shared        Cache
	rollingWindow int
	minDataPoints int
	record        LookupRecorder
	logger        zerolog.Logger
}

// Option configures a Store
type Option func(*storeOptions)

type storeOptions struct {
	size          int
	ttl           time.Duration
	shared        Cache
	rollingWindow int
	minDataPoints int
	record        LookupRecorder
}

// WithCacheSize bounds the in-process cache.
func WithCacheSize(size int, ttl time.Duration) Option {
	return func(o *storeOptions) {
		o.size = size
		o.ttl = ttl
	}
}

// WithSharedCache adds a second tier consulted on local misses.
func WithSharedCache(c Cache) Option {
	return func(o *storeOptions) { o.shared = c }
}

// WithWindow sets the sliding window and the minimum sample count.
func WithWindow(rollingWindow, minDataPoints int) Option {
	return func(o *storeOptions) {
		o.rollingWindow = rollingWindow
		o.minDataPoints = minDataPoints
	}
}

// WithRecorder reports cache hits and misses.
func WithRecorder(r LookupRecorder) Option {
	return func(o *storeOptions) { o.record = r }
}

// NewStore creates a baseline store
func NewStore(opts ...Option) *Store {
	o := storeOptions{
		size:          4096,
		ttl:           time.Hour,
		rollingWindow: 24,
		minDataPoints: 10,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.size <= 0 {
		o.size = 4096
	}

	return &Store{
		local:         expirable.NewLRU[string, models.Baseline](o.size, nil, o.ttl),
		shared:        o.shared,
		rollingWindow: o.rollingWindow,
		minDataPoints: o.minDataPoints,
		record:        o.record,
		logger:        log.With().Str("component", "baseline_store").Logger(),
	}
}

// Key is the cache key of a (subnet, metric) pair.
func Key(subnetID int, metric models.MetricName) string {
	return fmt.Sprintf("baseline:%d:%s", subnetID, metric)
}

// Calculate returns the baseline for the metric. With at least
// minDataPoints values in the window it is computed from history,
// otherwise it is the synthetic default.
func (s *Store) Calculate(ctx context.Context, subnetID int, metric models.MetricName, history *models.HistoricalData) models.Baseline {
	key := Key(subnetID, metric)

	if b, ok := s.local.Get(key); ok {
		s.recordLookup("local", true)
		return b
	}
	s.recordLookup("local", false)

	if s.shared != nil {
		if b, ok := s.shared.Get(ctx, key); ok {
			s.recordLookup("shared", true)
			s.local.Add(key, b)
			return b
		}
		s.recordLookup("shared", false)
	}

	b := s.compute(metric, history)

	// Two goroutines may compute the same key; both results are identical.
	s.local.Add(key, b)
	if s.shared != nil {
		s.shared.Set(ctx, key, b)
	}

	s.logger.Debug().
		Int("subnet_id", subnetID).
		Str("metric", string(metric)).
		Bool("synthetic", b.Synthetic).
		Int("samples", b.Samples).
		Msg("Baseline computed")

	return b
}

func (s *Store) compute(metric models.MetricName, history *models.HistoricalData) models.Baseline {
	values := history.Values(metric)
	if s.rollingWindow > 0 && len(values) > s.rollingWindow {
		values = values[len(values)-s.rollingWindow:]
	}
	if len(values) < s.minDataPoints || len(values) == 0 {
		return models.DefaultBaseline(metric.DefaultValue())
	}
	return Compute(values)
}

// Len is the number of locally cached baselines.
func (s *Store) Len() int {
	return s.local.Len()
}

// Purge drops every locally cached baseline.
func (s *Store) Purge() {
	s.local.Purge()
}

func (s *Store) recordLookup(tier string, hit bool) {
	if s.record != nil {
		s.record(tier, hit)
	}
}
