package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/SubnetScope/models"
)

func TestObserveDetection(t *testing.T) {
	r := NewRegistry()

	report := &models.AnomalyReport{
		Summary: models.DetectionSummary{AnomalyScore: 75},
		Categories: map[models.Category]models.CategoryResult{
			models.CategoryEconomic: {Anomalies: []models.Anomaly{
				{Category: models.CategoryEconomic, Severity: models.SeverityHigh},
				{Category: models.CategoryEconomic, Severity: models.SeverityHigh},
			}},
		},
	}
	r.ObserveDetection(report)
	r.ObserveDetection(&models.AnomalyReport{})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Detections.WithLabelValues("high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Detections.WithLabelValues("none")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.AnomaliesFound.WithLabelValues("economic", "high")))
}

func TestCounters(t *testing.T) {
	r := NewRegistry()

	r.DetectionFailed()
	r.ObserveRecommendation(models.Buy)
	r.ObserveRecommendation(models.Buy)
	r.ObserveRisk(models.RiskModerate)
	r.NarrativeOutcome("risk", models.AnalysisRuleBased)
	r.BaselineLookup("memory", true)
	r.BaselineLookup("redis", false)
	r.AlertSent()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.DetectionFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Recommendations.WithLabelValues("BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RiskAssessments.WithLabelValues("Moderate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Narratives.WithLabelValues("risk", "rule_based")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.BaselineLookups.WithLabelValues("memory", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.BaselineLookups.WithLabelValues("redis", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.AlertsSent))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveDetection(&models.AnomalyReport{})
		r.DetectionFailed()
		r.ObserveRecommendation(models.Hold)
		r.ObserveRisk(models.RiskLow)
		r.ObserveDuration("detect", time.Now(), nil)
		r.NarrativeOutcome("anomaly", models.AnalysisAIPowered)
		r.BaselineLookup("memory", true)
		r.AlertSent()
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.ObserveDuration("detect", time.Now(), errors.New("boom"))
	r.ObserveRecommendation(models.Hold)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `subnetscope_recommendations_total{recommendation="HOLD"} 1`)
	assert.Contains(t, string(body), `subnetscope_operation_duration_seconds_count{operation="detect",result="error"} 1`)
}

func TestScoreBand(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "none"},
		{1, "low"},
		{40, "moderate"},
		{69, "moderate"},
		{70, "high"},
		{100, "high"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scoreBand(tt.score), "score %d", tt.score)
	}
}
