package models

import (
	"fmt"
	"sort"
	"time"
)

// MetricName is one of the recognised subnet metrics.
type MetricName string

const (
	ActivityScore        MetricName = "activity_score"
	CurrentYield         MetricName = "current_yield"
	NetworkParticipation MetricName = "network_participation"
	ValidatorEfficiency  MetricName = "validator_efficiency"
	ConsensusSpeed       MetricName = "consensus_speed"

	ValidatorCount        MetricName = "validator_count"
	TotalStake            MetricName = "total_stake"
	ConsensusHealth       MetricName = "consensus_health"
	NetworkSecurityScore  MetricName = "network_security_score"
	DecentralizationIndex MetricName = "decentralization_index"

	TokenPrice     MetricName = "token_price"
	EmissionRate   MetricName = "emission_rate"
	StakingRewards MetricName = "staking_rewards"
	MarketCap      MetricName = "market_cap"
	TradingVolume  MetricName = "trading_volume"
)

// Category groups metrics for detection and scoring
type Category string

const (
	CategoryPerformance Category = "performance"
	CategorySecurity    Category = "security"
	CategoryEconomic    Category = "economic"
)

var categoryMetrics = map[Category][]MetricName{
	CategoryPerformance: {ActivityScore, CurrentYield, NetworkParticipation, ValidatorEfficiency, ConsensusSpeed},
	CategorySecurity:    {ValidatorCount, TotalStake, ConsensusHealth, NetworkSecurityScore, DecentralizationIndex},
	CategoryEconomic:    {TokenPrice, EmissionRate, StakingRewards, MarketCap, TradingVolume},
}

// Expected values used when a metric is missing or history is too short.
// Metrics not listed here default to 70.
var defaultMetricValues = map[MetricName]float64{
	ActivityScore:        75,
	CurrentYield:         12,
	NetworkParticipation: 78,
	ValidatorCount:       150,
	TotalStake:           50_000_000,
	ConsensusHealth:      85,
	TokenPrice:           1.0,
	EmissionRate:         0.1,
	StakingRewards:       15,
}

const fallbackMetricValue = 70

var metricCategory = func() map[MetricName]Category {
	m := make(map[MetricName]Category)
	for c, names := range categoryMetrics {
		for _, n := range names {
			m[n] = c
		}
	}
	return m
}()

// Categories returns the detection categories in evaluation order.
func Categories() []Category {
	return []Category{CategoryPerformance, CategorySecurity, CategoryEconomic}
}

// Metrics returns the fixed metric list of the category.
func (c Category) Metrics() []MetricName {
	names := categoryMetrics[c]
	out := make([]MetricName, len(names))
	copy(out, names)
	return out
}

// Category reports which category the metric belongs to.
func (m MetricName) Category() (Category, bool) {
	c, ok := metricCategory[m]
	return c, ok
}

// Valid reports whether m is a recognised metric.
func (m MetricName) Valid() bool {
	_, ok := metricCategory[m]
	return ok
}

// DefaultValue returns the documented expected value for the metric.
func (m MetricName) DefaultValue() float64 {
	if v, ok := defaultMetricValues[m]; ok {
		return v
	}
	return fallbackMetricValue
}

// AllMetrics returns every recognised metric sorted by name.
func AllMetrics() []MetricName {
	out := make([]MetricName, 0, len(metricCategory))
	for m := range metricCategory {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseMetricName converts a raw key into a MetricName.
func ParseMetricName(s string) (MetricName, error) {
	m := MetricName(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown metric %q", s)
	}
	return m, nil
}

// MetricSet holds current values keyed by recognised metric names
type MetricSet map[MetricName]float64

// ParseMetricSet keeps recognised keys and reports the rest.
func ParseMetricSet(raw map[string]float64) (MetricSet, []string) {
	set := make(MetricSet, len(raw))
	var unknown []string
	for k, v := range raw {
		m, err := ParseMetricName(k)
		if err != nil {
			unknown = append(unknown, k)
			continue
		}
		set[m] = v
	}
	sort.Strings(unknown)
	return set, unknown
}

// Value returns the metric value if present.
func (s MetricSet) Value(m MetricName) (float64, bool) {
	v, ok := s[m]
	return v, ok
}

// ValueOrDefault returns the metric value or its documented default.
func (s MetricSet) ValueOrDefault(m MetricName) float64 {
	if v, ok := s[m]; ok {
		return v
	}
	return m.DefaultValue()
}

// MetricSample is a single observation of one metric
type MetricSample struct {
	Metric    MetricName `json:"metric"`
	Value     float64    `json:"value"`
	Timestamp time.Time  `json:"timestamp"`
}

// DataPoint is a historical observation across several metrics
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Metrics   MetricSet `json:"metrics"`
}

// Samples flattens the point into per-metric samples.
func (p DataPoint) Samples() []MetricSample {
	out := make([]MetricSample, 0, len(p.Metrics))
	for m, v := range p.Metrics {
		out = append(out, MetricSample{Metric: m, Value: v, Timestamp: p.Timestamp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metric < out[j].Metric })
	return out
}

// HistoricalData is an ordered (oldest first) series of data points
type HistoricalData struct {
	DataPoints []DataPoint `json:"data_points"`
}

// Len is safe on a nil receiver.
func (h *HistoricalData) Len() int {
	if h == nil {
		return 0
	}
	return len(h.DataPoints)
}

// Values returns the values recorded for the metric, oldest first.
// Points without the metric are skipped.
func (h *HistoricalData) Values(m MetricName) []float64 {
	if h == nil {
		return nil
	}
	out := make([]float64, 0, len(h.DataPoints))
	for _, p := range h.DataPoints {
		if v, ok := p.Metrics[m]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Tail returns at most n most recent points.
func (h *HistoricalData) Tail(n int) []DataPoint {
	if h == nil || n <= 0 {
		return nil
	}
	if n >= len(h.DataPoints) {
		return h.DataPoints
	}
	return h.DataPoints[len(h.DataPoints)-n:]
}

// Baseline is the expected statistical range for one (subnet, metric) pair
type Baseline struct {
	Mean         float64 `json:"mean"`
	Std          float64 `json:"std"`
	Median       float64 `json:"median"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Percentile25 float64 `json:"percentile_25"`
	Percentile75 float64 `json:"percentile_75"`
	Samples      int     `json:"samples"`
	Synthetic    bool    `json:"synthetic"`
}

// DefaultBaseline derives the synthetic ±15% baseline from an expected value.
func DefaultBaseline(v float64) Baseline {
	return Baseline{
		Mean:         v,
		Std:          v * 0.15,
		Median:       v,
		Min:          v * 0.7,
		Max:          v * 1.3,
		Percentile25: v * 0.85,
		Percentile75: v * 1.15,
		Synthetic:    true,
	}
}

// ReportMetadata is attached to every computed report
type ReportMetadata struct {
	RequestID     string    `json:"request_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	EngineVersion string    `json:"engine_version"`
}

// EngineVersion is reported in the metadata of every result.
const EngineVersion = "1.0.0"
