package anomaly

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/SubnetScope/internal/baseline"
	"github.com/Alias1177/SubnetScope/models"
)

type staticMetadata struct{}

func (staticMetadata) Lookup(id int) models.SubnetMetadata {
	return models.SubnetMetadata{ID: id, Name: "Test Subnet", Type: "inference"}
}

// randomPatterns reproduces noisy pattern checks. Every roll is seeded
// from the subnet, category and check so concurrent categories stay
// reproducible.
type randomPatterns struct {
	seed int64
}

func newRandomPatterns(seed int64) *randomPatterns {
	return &randomPatterns{seed: seed}
}

func (r *randomPatterns) roll(in PatternInput, check int64) float64 {
	var salt int64
	for _, c := range in.Category {
		salt = salt*31 + int64(c)
	}
	return rand.New(rand.NewSource(r.seed + int64(in.SubnetID)*1000 + salt + check)).Float64()
}

func (r *randomPatterns) CorrelationBreak(_ context.Context, in PatternInput) (*models.Anomaly, error) {
	if r.roll(in, 1) >= 0.15 {
		return nil, nil
	}
	return &models.Anomaly{Metric: "metric_correlation", Category: in.Category, Type: models.AnomalyCorrelation,
		Severity: models.SeverityModerate, Confidence: 75, Timestamp: in.Now}, nil
}

func (r *randomPatterns) CyclicalBreak(_ context.Context, in PatternInput) (*models.Anomaly, error) {
	if r.roll(in, 2) >= 0.10 {
		return nil, nil
	}
	return &models.Anomaly{Metric: "cyclical_pattern", Category: in.Category, Type: models.AnomalyCyclical,
		Severity: models.SeverityLow, Confidence: 70, Timestamp: in.Now}, nil
}

func (r *randomPatterns) PriceVolatility(_ context.Context, in PatternInput) (*models.Anomaly, error) {
	v := r.roll(in, 3) * 0.4
	if v <= 0.25 {
		return nil, nil
	}
	return &models.Anomaly{Metric: string(models.TokenPrice), Category: models.CategoryEconomic, Type: models.AnomalyPrice,
		Volatility: v, Severity: models.SeverityModerate, Confidence: 90, Timestamp: in.Now}, nil
}

// quietPatterns never reports pattern anomalies
type quietPatterns struct{}

func (quietPatterns) CorrelationBreak(context.Context, PatternInput) (*models.Anomaly, error) {
	return nil, nil
}
func (quietPatterns) CyclicalBreak(context.Context, PatternInput) (*models.Anomaly, error) {
	return nil, nil
}
func (quietPatterns) PriceVolatility(context.Context, PatternInput) (*models.Anomaly, error) {
	return nil, nil
}

type failingPatterns struct {
	quietPatterns
	panic bool
}

func (f failingPatterns) PriceVolatility(context.Context, PatternInput) (*models.Anomaly, error) {
	if f.panic {
		panic("boom")
	}
	return nil, errors.New("price feed unavailable")
}

func newTestDetector(opts ...Option) *Detector {
	opts = append([]Option{
		WithPatternSource(quietPatterns{}),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	return NewDetector(baseline.NewStore(), staticMetadata{}, opts...)
}

func TestDetectSingleMetric(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		wantCount  int
		severity   models.Severity
		score      int
		confidence int
		alerts     []models.AlertType
	}{
		{name: "Граница порога", value: 97.5, wantCount: 0, score: 0, confidence: 70, alerts: nil},
		{name: "Чуть выше порога", value: 98.25, wantCount: 1, severity: models.SeverityLow, score: 25, confidence: 68},
		{name: "Обычное значение", value: 95, wantCount: 0, score: 0, confidence: 70},
		{name: "Высокое отклонение", value: 140, wantCount: 1, severity: models.SeverityHigh, score: 75, confidence: 70,
			alerts: []models.AlertType{models.AlertHighAnomalyScore}},
		{name: "Критическое отклонение", value: 170, wantCount: 1, severity: models.SeverityCritical, score: 100, confidence: 70,
			alerts: []models.AlertType{models.AlertHighAnomalyScore, models.AlertCriticalAnomaly}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector()
			report, err := d.Detect(context.Background(), 1, models.MetricSet{models.ActivityScore: tt.value}, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCount, report.Summary.TotalAnomalies)
			assert.Equal(t, tt.score, report.Summary.AnomalyScore)
			assert.Equal(t, tt.confidence, report.Summary.ConfidenceLevel)

			var types []models.AlertType
			for _, a := range report.Alerts {
				types = append(types, a.Type)
			}
			assert.Equal(t, tt.alerts, types)

			if tt.wantCount == 0 {
				assert.Empty(t, report.Anomalies())
				return
			}
			a := report.Categories[models.CategoryPerformance].Anomalies[0]
			assert.Equal(t, string(models.ActivityScore), a.Metric)
			assert.Equal(t, tt.severity, a.Severity)
			assert.Equal(t, models.AnomalyStatistical, a.Type)
			assert.Equal(t, 85.0, a.Confidence)
			assert.Equal(t, 75.0, a.BaselineMean)
		})
	}
}

func TestDetectReportShape(t *testing.T) {
	d := newTestDetector()
	report, err := d.Detect(context.Background(), 5, models.MetricSet{models.ActivityScore: 140}, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, report.SubnetID)
	assert.Equal(t, "Test Subnet", report.SubnetName)
	assert.Len(t, report.Categories, 3)
	for _, c := range models.Categories() {
		assert.NotNil(t, report.Categories[c].Anomalies, c)
	}
	assert.Equal(t, 75, report.Categories[models.CategoryPerformance].Score)
	assert.Equal(t, 0, report.Categories[models.CategorySecurity].Score)
	assert.Equal(t, models.SeverityDistribution{High: 1}, report.Summary.SeverityDistribution)
	assert.Equal(t, testNow, report.Metadata.Timestamp)
	assert.Equal(t, models.EngineVersion, report.Metadata.EngineVersion)

	a := report.Anomalies()[0]
	assert.Equal(t, "activity_score is 86.7% above baseline (140.00 vs 75.00)", a.Description)
	assert.Equal(t, "subnet-5-high-anomaly-"+strconv.FormatInt(testNow.UnixMilli(), 10), report.Alerts[0].ID)
	assert.Equal(t, "High anomaly score detected: 75/100", report.Alerts[0].Message)
}

func TestDetectSecurityAlerts(t *testing.T) {
	d := newTestDetector()
	current := models.MetricSet{
		models.ValidatorCount:  300,
		models.TotalStake:      100_000_000,
		models.ConsensusHealth: 200,
	}
	report, err := d.Detect(context.Background(), 9, current, nil)
	require.NoError(t, err)

	require.Len(t, report.Alerts, 3)
	assert.Equal(t, models.AlertHighAnomalyScore, report.Alerts[0].Type)
	assert.Equal(t, models.AlertCriticalAnomaly, report.Alerts[1].Type)
	assert.Equal(t, string(models.ConsensusHealth), report.Alerts[1].Metric)
	assert.Equal(t, models.SeverityCritical, report.Alerts[1].Severity)
	assert.Equal(t, models.AlertSecurityConcern, report.Alerts[2].Type)
	assert.Equal(t, "Multiple security anomalies detected: 3 issues", report.Alerts[2].Message)
	assert.Equal(t, 83, report.Summary.AnomalyScore)
}

func TestDetectValidatorHeuristic(t *testing.T) {
	history := generateHistory(10, func(int) models.MetricSet {
		return models.MetricSet{models.ValidatorCount: 100}
	})

	tests := []struct {
		name        string
		current     float64
		history     *models.HistoricalData
		severity    models.Severity
		description string
	}{
		{name: "Без истории", current: 125},
		{name: "Малое изменение", current: 110, history: history},
		{name: "Рост", current: 125, history: history, severity: models.SeverityModerate,
			description: "Unusual validator count change: increase of 25.0%"},
		{name: "Резкое падение", current: 60, history: history, severity: models.SeverityHigh,
			description: "Unusual validator count change: decrease of 40.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector()
			report, err := d.Detect(context.Background(), 2, models.MetricSet{models.ValidatorCount: tt.current}, tt.history)
			require.NoError(t, err)

			var found *models.Anomaly
			for _, a := range report.Categories[models.CategorySecurity].Anomalies {
				if a.Type == models.AnomalyValidator {
					a := a
					found = &a
				}
			}
			if tt.severity == "" {
				assert.Nil(t, found)
				return
			}
			require.NotNil(t, found)
			assert.Equal(t, tt.severity, found.Severity)
			assert.Equal(t, tt.description, found.Description)
			assert.Equal(t, 85.0, found.Confidence)
			assert.Equal(t, 100.0, found.BaselineMean)
		})
	}
}

func TestDetectIsDeterministic(t *testing.T) {
	current := models.MetricSet{
		models.ActivityScore:  120,
		models.ValidatorCount: 90,
		models.TokenPrice:     2.5,
	}
	history := generateHistory(30, func(i int) models.MetricSet {
		return models.MetricSet{
			models.ActivityScore:  70 + float64(i%5),
			models.ValidatorCount: 150,
			models.TokenPrice:     1 + 0.01*float64(i%3),
		}
	})

	first, err := newTestDetector(WithPatternSource(newRandomPatterns(42))).Detect(context.Background(), 3, current, history)
	require.NoError(t, err)
	second, err := newTestDetector(WithPatternSource(newRandomPatterns(42))).Detect(context.Background(), 3, current, history)
	require.NoError(t, err)

	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Alerts, second.Alerts)

	statistical := func() *models.AnomalyReport {
		d := NewDetector(baseline.NewStore(), staticMetadata{}, WithClock(func() time.Time { return testNow }))
		r, err := d.Detect(context.Background(), 3, current, history)
		require.NoError(t, err)
		return r
	}
	assert.Equal(t, statistical(), statistical())
}

func TestCompositeScoreBounds(t *testing.T) {
	assert.Equal(t, 0, CompositeScore(nil))

	severities := []models.Severity{models.SeverityLow, models.SeverityModerate, models.SeverityHigh, models.SeverityCritical}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(20)
		all := make([]models.Anomaly, n)
		for j := range all {
			all[j].Severity = severities[rng.Intn(len(severities))]
		}
		score := CompositeScore(all)
		assert.GreaterOrEqual(t, score, 25)
		assert.LessOrEqual(t, score, 100)
	}

	all := []models.Anomaly{{Severity: models.SeverityLow}, {Severity: models.SeverityCritical}}
	assert.Equal(t, 63, CompositeScore(all))
	assert.Equal(t, 63, CategoryScore(all))
}

func TestDetectFailures(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		current models.MetricSet
	}{
		{name: "Ошибка источника", opts: []Option{WithPatternSource(failingPatterns{})}},
		{name: "Паника источника", opts: []Option{WithPatternSource(failingPatterns{panic: true})}},
		{name: "NaN значение", current: models.MetricSet{models.TotalStake: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := newTestDetector(tt.opts...).Detect(context.Background(), 11, tt.current, nil)
			assert.Nil(t, report)

			var detErr *models.AnomalyDetectionError
			require.ErrorAs(t, err, &detErr)
			assert.Equal(t, 11, detErr.SubnetID)
		})
	}
}

func TestDetectCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestDetector().Detect(ctx, 1, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
