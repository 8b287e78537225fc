package anomaly

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/SubnetScope/config"
	"github.com/Alias1177/SubnetScope/models"
)

// BaselineCalculator supplies baselines, usually a *baseline.Store
type BaselineCalculator interface {
	Calculate(ctx context.Context, subnetID int, metric models.MetricName, history *models.HistoricalData) models.Baseline
}

// Detector finds anomalies in current subnet metrics
type Detector struct {
	baselines BaselineCalculator
	metadata  models.MetadataProvider
	patterns  PatternAnomalySource
	cfg       config.Detection
	now       func() time.Time
	logger    zerolog.Logger
}

// Option configures a Detector
type Option func(*Detector)

// WithPatternSource replaces the statistical pattern source.
func WithPatternSource(p PatternAnomalySource) Option {
	return func(d *Detector) { d.patterns = p }
}

// WithConfig sets detection parameters.
func WithConfig(cfg config.Detection) Option {
	return func(d *Detector) { d.cfg = cfg }
}

// WithClock fixes the time source, used for alert ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// NewDetector creates a detector
func NewDetector(baselines BaselineCalculator, metadata models.MetadataProvider, opts ...Option) *Detector {
	d := &Detector{
		baselines: baselines,
		metadata:  metadata,
		cfg:       config.Default().Detection,
		now:       time.Now,
		logger:    log.With().Str("component", "anomaly_detector").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.patterns == nil {
		d.patterns = NewStatisticalSource(d.cfg)
	}
	return d
}

type detectionContext struct {
	subnetID int
	current  models.MetricSet
	history  *models.HistoricalData
	now      time.Time
}

// Detect analyses every category concurrently. Missing metrics fall back
// to defaults. If any step fails the whole detection fails with
// *models.AnomalyDetectionError and no report is returned.
func (d *Detector) Detect(ctx context.Context, subnetID int, current models.MetricSet, history *models.HistoricalData) (report *models.AnomalyReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = &models.AnomalyDetectionError{SubnetID: subnetID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	dc := &detectionContext{
		subnetID: subnetID,
		current:  current,
		history:  history,
		now:      d.now().UTC(),
	}

	categories := models.Categories()
	results := make([][]models.Anomaly, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range categories {
		i, c := i, c
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s detection panicked: %v", c, r)
				}
			}()
			anomalies, err := d.detectCategory(gctx, dc, c)
			if err != nil {
				return fmt.Errorf("%s detection: %w", c, err)
			}
			results[i] = anomalies
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.logger.Error().Err(err).Int("subnet_id", subnetID).Msg("Anomaly detection failed")
		return nil, &models.AnomalyDetectionError{SubnetID: subnetID, Err: err}
	}

	meta := d.metadata.Lookup(subnetID)
	report = &models.AnomalyReport{
		SubnetID:   subnetID,
		SubnetName: meta.Name,
		SubnetType: meta.Type,
		Categories: make(map[models.Category]models.CategoryResult, len(categories)),
		Metadata: models.ReportMetadata{
			Timestamp:     dc.now,
			EngineVersion: models.EngineVersion,
		},
	}

	var all []models.Anomaly
	for i, c := range categories {
		report.Categories[c] = models.CategoryResult{
			Anomalies: nonNil(results[i]),
			Score:     CategoryScore(results[i]),
		}
		all = append(all, results[i]...)
	}

	score := CompositeScore(all)
	report.Summary = models.DetectionSummary{
		TotalAnomalies:       len(all),
		AnomalyScore:         score,
		SeverityDistribution: Distribution(all),
		ConfidenceLevel:      d.confidence(all, history),
	}
	report.Alerts = d.alerts(subnetID, all, score, dc.now)

	d.logger.Info().
		Int("subnet_id", subnetID).
		Int("anomalies", len(all)).
		Int("score", score).
		Int("alerts", len(report.Alerts)).
		Msg("Anomaly detection complete")

	return report, nil
}

func (d *Detector) detectCategory(ctx context.Context, dc *detectionContext, c models.Category) ([]models.Anomaly, error) {
	var anomalies []models.Anomaly

	for _, m := range c.Metrics() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := dc.current.ValueOrDefault(m)
		if math.IsNaN(cur) || math.IsInf(cur, 0) {
			return nil, fmt.Errorf("metric %s is not a finite number", m)
		}
		b := d.baselines.Calculate(ctx, dc.subnetID, m, dc.history)
		if a, ok := d.metricAnomaly(m, c, cur, b, dc.now); ok {
			anomalies = append(anomalies, a)
		}
	}

	in := PatternInput{
		SubnetID: dc.subnetID,
		Category: c,
		Current:  dc.current,
		History:  dc.history,
		Now:      dc.now,
	}

	var checks []func(context.Context, PatternInput) (*models.Anomaly, error)
	switch c {
	case models.CategoryPerformance:
		checks = append(checks, d.patterns.CorrelationBreak, d.patterns.CyclicalBreak)
	case models.CategorySecurity:
		if a := d.validatorAnomaly(dc); a != nil {
			anomalies = append(anomalies, *a)
		}
	case models.CategoryEconomic:
		checks = append(checks, d.patterns.PriceVolatility)
	}

	for _, check := range checks {
		a, err := check(ctx, in)
		if err != nil {
			return nil, err
		}
		if a != nil {
			anomalies = append(anomalies, *a)
		}
	}

	return anomalies, nil
}

// metricAnomaly applies the z-score and percentage tests to one metric
func (d *Detector) metricAnomaly(m models.MetricName, c models.Category, cur float64, b models.Baseline, now time.Time) (models.Anomaly, bool) {
	diff := math.Abs(cur - b.Mean)

	// a zero std or mean leaves the corresponding test undefined; it is skipped
	var z, pct float64
	if b.Std > 0 {
		z = diff / b.Std
	}
	if b.Mean != 0 {
		pct = diff / math.Abs(b.Mean)
	}

	if !(z > d.cfg.StatisticalThreshold) && !(pct > d.cfg.PercentageThreshold) {
		return models.Anomaly{}, false
	}

	confidence := 60.0
	if b.Mean != 0 {
		confidence = math.Min(95, math.Max(60, 100-(b.Std/math.Abs(b.Mean))*100))
	}

	return models.Anomaly{
		Metric:              string(m),
		Category:            c,
		Type:                models.AnomalyStatistical,
		CurrentValue:        cur,
		BaselineMean:        b.Mean,
		BaselineStd:         b.Std,
		ZScore:              z,
		PercentageDeviation: pct,
		Severity:            d.severity(pct),
		Confidence:          confidence,
		Timestamp:           now,
		Description:         describe(m, cur, b.Mean, pct),
	}, true
}

func (d *Detector) severity(pct float64) models.Severity {
	t := d.cfg.Severity
	switch {
	case pct >= t.Critical:
		return models.SeverityCritical
	case pct >= t.High:
		return models.SeverityHigh
	case pct >= t.Moderate:
		return models.SeverityModerate
	default:
		return models.SeverityLow
	}
}

// validatorAnomaly compares the validator count with its trailing average
func (d *Detector) validatorAnomaly(dc *detectionContext) *models.Anomaly {
	if dc.history.Len() == 0 {
		return nil
	}

	vc := d.cfg.Validator
	recent := dc.history.Tail(vc.Window)
	var sum float64
	for _, p := range recent {
		v, ok := p.Metrics[models.ValidatorCount]
		if !ok {
			v = models.ValidatorCount.DefaultValue()
		}
		sum += v
	}
	avg := sum / float64(len(recent))
	if avg == 0 {
		return nil
	}

	cur := dc.current.ValueOrDefault(models.ValidatorCount)
	change := (cur - avg) / avg
	rate := math.Abs(change)
	if rate <= vc.ChangeThreshold {
		return nil
	}

	severity := models.SeverityModerate
	if rate > vc.HighThreshold {
		severity = models.SeverityHigh
	}
	direction := "increase"
	if change < 0 {
		direction = "decrease"
	}

	return &models.Anomaly{
		Metric:       string(models.ValidatorCount),
		Category:     models.CategorySecurity,
		Type:         models.AnomalyValidator,
		CurrentValue: cur,
		BaselineMean: avg,
		ChangeRate:   rate,
		Severity:     severity,
		Confidence:   85,
		Timestamp:    dc.now,
		Description:  fmt.Sprintf("Unusual validator count change: %s of %.1f%%", direction, rate*100),
	}
}

func (d *Detector) confidence(all []models.Anomaly, history *models.HistoricalData) int {
	cc := d.cfg.Confidence
	confidence := cc.Base

	if history.Len() < cc.ShortHistory {
		confidence -= cc.ShortHistoryPenalty
	}

	low := 0
	for _, a := range all {
		if a.Severity == models.SeverityLow {
			low++
		}
	}
	confidence -= min(cc.LowSeverityPenaltyCap, low*cc.LowSeverityPenalty)

	return max(cc.Floor, confidence)
}

func (d *Detector) alerts(subnetID int, all []models.Anomaly, score int, now time.Time) []models.Alert {
	alerts := []models.Alert{}
	ts := now.UnixMilli()

	if score >= d.cfg.Alerts.HighScore {
		alerts = append(alerts, models.Alert{
			ID:            fmt.Sprintf("subnet-%d-high-anomaly-%d", subnetID, ts),
			Type:          models.AlertHighAnomalyScore,
			Severity:      models.SeverityHigh,
			SubnetID:      subnetID,
			Message:       fmt.Sprintf("High anomaly score detected: %d/100", score),
			Timestamp:     now,
			AutoGenerated: true,
		})
	}

	security := 0
	for _, a := range all {
		if a.Category == models.CategorySecurity {
			security++
		}
		if a.Severity != models.SeverityCritical {
			continue
		}
		alerts = append(alerts, models.Alert{
			ID:            fmt.Sprintf("subnet-%d-critical-%s-%d", subnetID, a.Metric, ts),
			Type:          models.AlertCriticalAnomaly,
			Severity:      models.SeverityCritical,
			SubnetID:      subnetID,
			Metric:        a.Metric,
			Message:       fmt.Sprintf("Critical anomaly in %s: %s", a.Metric, a.Description),
			Timestamp:     now,
			AutoGenerated: true,
		})
	}

	if security >= d.cfg.Alerts.SecurityCount {
		alerts = append(alerts, models.Alert{
			ID:            fmt.Sprintf("subnet-%d-security-concern-%d", subnetID, ts),
			Type:          models.AlertSecurityConcern,
			Severity:      models.SeverityHigh,
			SubnetID:      subnetID,
			Message:       fmt.Sprintf("Multiple security anomalies detected: %d issues", security),
			Timestamp:     now,
			AutoGenerated: true,
		})
	}

	return alerts
}

// CompositeScore scales the summed severity weights to 0-100.
func CompositeScore(all []models.Anomaly) int {
	if len(all) == 0 {
		return 0
	}
	total := 0
	for _, a := range all {
		total += a.Severity.Weight()
	}
	score := int(math.Round(float64(total) / float64(len(all)*4) * 100))
	return min(100, score)
}

// CategoryScore is the rounded mean of per-severity scores.
func CategoryScore(anomalies []models.Anomaly) int {
	if len(anomalies) == 0 {
		return 0
	}
	total := 0
	for _, a := range anomalies {
		total += a.Severity.CategoryScore()
	}
	return int(math.Round(float64(total) / float64(len(anomalies))))
}

// Distribution counts anomalies per severity.
func Distribution(all []models.Anomaly) models.SeverityDistribution {
	var d models.SeverityDistribution
	for _, a := range all {
		d.Add(a.Severity)
	}
	return d
}

func describe(m models.MetricName, cur, mean, pct float64) string {
	direction := "below"
	if cur > mean {
		direction = "above"
	}
	return fmt.Sprintf("%s is %.1f%% %s baseline (%.2f vs %.2f)", m, pct*100, direction, cur, mean)
}

func nonNil(a []models.Anomaly) []models.Anomaly {
	if a == nil {
		return []models.Anomaly{}
	}
	return a
}
