package anomaly

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/Alias1177/SubnetScope/config"
	"github.com/Alias1177/SubnetScope/models"
)

// PatternInput is what a pattern source sees for one category
type PatternInput struct {
	SubnetID int
	Category models.Category
	Current  models.MetricSet
	History  *models.HistoricalData
	Now      time.Time
}

// PatternAnomalySource finds anomalies that are not a single metric
// deviating from its baseline. A nil anomaly means nothing was found.
type PatternAnomalySource interface {
	CorrelationBreak(ctx context.Context, in PatternInput) (*models.Anomaly, error)
	CyclicalBreak(ctx context.Context, in PatternInput) (*models.Anomaly, error)
	PriceVolatility(ctx context.Context, in PatternInput) (*models.Anomaly, error)
}

// metric pairs expected to move together
var correlatedPairs = map[models.Category][2]models.MetricName{
	models.CategoryPerformance: {models.ActivityScore, models.NetworkParticipation},
	models.CategorySecurity:    {models.ValidatorCount, models.TotalStake},
	models.CategoryEconomic:    {models.TokenPrice, models.TradingVolume},
}

// metric whose cycle is tracked per category
var cyclicalMetric = map[models.Category]models.MetricName{
	models.CategoryPerformance: models.ActivityScore,
	models.CategorySecurity:    models.ConsensusHealth,
	models.CategoryEconomic:    models.TokenPrice,
}

// StatisticalSource is the deterministic pattern source.
//   - correlation break: Pearson correlation of a metric pair over the
//     recent window against the window before it
//   - cyclical break: dominant FFT component of the older samples
//     extrapolated over the holdout, deviation measured in residual sigmas
//   - price volatility: population std of period returns over the window
type StatisticalSource struct {
	cfg config.Detection
}

// NewStatisticalSource creates the deterministic pattern source
func NewStatisticalSource(cfg config.Detection) *StatisticalSource {
	return &StatisticalSource{cfg: cfg}
}

// CorrelationBreak flags a collapse or inversion of a usual correlation.
func (s *StatisticalSource) CorrelationBreak(_ context.Context, in PatternInput) (*models.Anomaly, error) {
	pair, ok := correlatedPairs[in.Category]
	if !ok {
		return nil, nil
	}
	xs, ys := pairedValues(in.History, pair[0], pair[1])

	w := s.cfg.Correlation.Window
	if len(xs) < 2*w {
		return nil, nil
	}
	n := len(xs)
	before := stat.Correlation(xs[n-2*w:n-w], ys[n-2*w:n-w], nil)
	recent := stat.Correlation(xs[n-w:], ys[n-w:], nil)
	if math.IsNaN(before) || math.IsNaN(recent) {
		// flat series have no correlation to break
		return nil, nil
	}

	delta := math.Abs(before - recent)
	if delta <= s.cfg.Correlation.BreakThreshold {
		return nil, nil
	}

	return &models.Anomaly{
		Metric:       "metric_correlation",
		Category:     in.Category,
		Type:         models.AnomalyCorrelation,
		PatternScore: delta,
		Severity:     models.SeverityModerate,
		Confidence:   75,
		Timestamp:    in.Now,
		Description: fmt.Sprintf("Unusual correlation pattern between %s and %s: %.2f -> %.2f",
			pair[0], pair[1], before, recent),
	}, nil
}

// CyclicalBreak flags recent samples that leave the dominant cycle.
func (s *StatisticalSource) CyclicalBreak(_ context.Context, in PatternInput) (*models.Anomaly, error) {
	metric, ok := cyclicalMetric[in.Category]
	if !ok {
		return nil, nil
	}
	series := in.History.Values(metric)
	if rw := s.cfg.RollingWindow; rw > 0 && len(series) > 2*rw {
		series = series[len(series)-2*rw:]
	}

	cc := s.cfg.Cyclical
	if len(series) < cc.MinSamples {
		return nil, nil
	}

	train := series[:len(series)-cc.Holdout]
	holdout := series[len(series)-cc.Holdout:]

	model, ok := fitDominantCycle(train, cc.MinPower)
	if !ok {
		return nil, nil
	}

	// residual noise is floored at a tenth of the series spread, otherwise a
	// perfect fit turns rounding error into huge deviations
	sigma := math.Max(model.residualStd(train), 0.1*stat.PopStdDev(train, nil))
	if sigma == 0 {
		return nil, nil
	}

	var dev float64
	for i, v := range holdout {
		dev += math.Abs(v - model.at(len(train)+i))
	}
	dev /= float64(len(holdout)) * sigma

	if dev <= cc.DeviationThreshold {
		return nil, nil
	}

	return &models.Anomaly{
		Metric:       "cyclical_pattern",
		Category:     in.Category,
		Type:         models.AnomalyCyclical,
		CurrentValue: holdout[len(holdout)-1],
		PatternScore: dev,
		Severity:     models.SeverityLow,
		Confidence:   70,
		Timestamp:    in.Now,
		Description:  fmt.Sprintf("Deviation from expected cyclical pattern in %s (%.1f sigma)", metric, dev),
	}, nil
}

// PriceVolatility flags flash crashes and pumps.
func (s *StatisticalSource) PriceVolatility(_ context.Context, in PatternInput) (*models.Anomaly, error) {
	prices := in.History.Values(models.TokenPrice)
	if rw := s.cfg.RollingWindow; rw > 0 && len(prices) > rw {
		prices = prices[len(prices)-rw:]
	}
	if len(prices) == 0 {
		return nil, nil
	}
	current := in.Current.ValueOrDefault(models.TokenPrice)
	prices = append(prices[:len(prices):len(prices)], current)

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 {
			return nil, nil
		}
		returns = append(returns, prices[i]/prices[i-1]-1)
	}
	if len(returns) < 2 {
		return nil, nil
	}

	volatility := stat.PopStdDev(returns, nil)
	pc := s.cfg.Price
	if volatility <= pc.VolatilityThreshold {
		return nil, nil
	}

	severity := models.SeverityModerate
	if volatility > pc.HighThreshold {
		severity = models.SeverityHigh
	}

	return &models.Anomaly{
		Metric:       string(models.TokenPrice),
		Category:     models.CategoryEconomic,
		Type:         models.AnomalyPrice,
		CurrentValue: current,
		Volatility:   volatility,
		Severity:     severity,
		Confidence:   90,
		Timestamp:    in.Now,
		Description:  fmt.Sprintf("High price volatility detected: %.1f%% movement", volatility*100),
	}, nil
}

// pairedValues keeps only the points that carry both metrics
func pairedValues(h *models.HistoricalData, a, b models.MetricName) ([]float64, []float64) {
	if h == nil {
		return nil, nil
	}
	var xs, ys []float64
	for _, p := range h.DataPoints {
		x, okX := p.Metrics[a]
		y, okY := p.Metrics[b]
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

// cycle is mean + one sinusoid fitted on n samples
type cycle struct {
	n     int
	mean  float64
	k     int
	amp   float64
	phase float64
}

func (c cycle) at(t int) float64 {
	return c.mean + c.amp*math.Cos(2*math.Pi*float64(c.k)*float64(t)/float64(c.n)+c.phase)
}

func (c cycle) residualStd(series []float64) float64 {
	res := make([]float64, len(series))
	for i, v := range series {
		res[i] = v - c.at(i)
	}
	return stat.PopStdDev(res, nil)
}

// fitDominantCycle finds the strongest non-constant frequency. It fails
// when that frequency holds less than minPower of the non-constant energy.
func fitDominantCycle(series []float64, minPower float64) (cycle, bool) {
	n := len(series)
	coeffs := fourier.NewFFT(n).Coefficients(nil, series)

	var total, best float64
	k := 0
	for i := 1; i < len(coeffs); i++ {
		p := cmplx.Abs(coeffs[i]) * cmplx.Abs(coeffs[i])
		total += p
		if p > best {
			best = p
			k = i
		}
	}
	if k == 0 || total == 0 || best/total < minPower {
		return cycle{}, false
	}

	scale := 2 / float64(n)
	if n%2 == 0 && k == n/2 {
		scale = 1 / float64(n)
	}

	return cycle{
		n:     n,
		mean:  real(coeffs[0]) / float64(n),
		k:     k,
		amp:   scale * cmplx.Abs(coeffs[k]),
		phase: cmplx.Phase(coeffs[k]),
	}, true
}
