package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Alias1177/SubnetScope/models"
)

// Registry holds all Prometheus metrics of the analyzer.
// A nil *Registry is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	Detections        *prometheus.CounterVec
	AnomaliesFound    *prometheus.CounterVec
	DetectionFailures prometheus.Counter
	Recommendations   *prometheus.CounterVec
	RiskAssessments   *prometheus.CounterVec
	Duration          *prometheus.HistogramVec
	Narratives        *prometheus.CounterVec
	BaselineLookups   *prometheus.CounterVec
	AlertsSent        prometheus.Counter
}

// NewRegistry creates the metrics on a private registry.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Detections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subnetscope_detections_total",
				Help: "Anomaly detection runs by composite score band",
			},
			[]string{"band"},
		),

		AnomaliesFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subnetscope_anomalies_total",
				Help: "Detected anomalies by category and severity",
			},
			[]string{"category", "severity"},
		),

		DetectionFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "subnetscope_detection_failures_total",
				Help: "Detection runs that ended in AnomalyDetectionError",
			},
		),

		Recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subnetscope_recommendations_total",
				Help: "Investment recommendations by label",
			},
			[]string{"recommendation"},
		),

		RiskAssessments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subnetscope_risk_assessments_total",
				Help: "Risk assessments by composite level",
			},
			[]string{"level"},
		),

		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subnetscope_operation_duration_seconds",
				Help:    "Duration of analysis operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation", "result"},
		),

		Narratives: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subnetscope_narratives_total",
				Help: "Narratives by kind and analysis type (ai_powered or rule_based)",
			},
			[]string{"kind", "analysis_type"},
		),

		BaselineLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subnetscope_baseline_lookups_total",
				Help: "Baseline cache lookups by tier and outcome",
			},
			[]string{"tier", "hit"},
		),

		AlertsSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "subnetscope_alerts_sent_total",
				Help: "Alerts delivered to watchers",
			},
		),
	}

	r.registry.MustRegister(
		r.Detections,
		r.AnomaliesFound,
		r.DetectionFailures,
		r.Recommendations,
		r.RiskAssessments,
		r.Duration,
		r.Narratives,
		r.BaselineLookups,
		r.AlertsSent,
	)

	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveDetection counts a finished report.
func (r *Registry) ObserveDetection(report *models.AnomalyReport) {
	if r == nil || report == nil {
		return
	}
	r.Detections.WithLabelValues(scoreBand(report.Summary.AnomalyScore)).Inc()
	for _, a := range report.Anomalies() {
		r.AnomaliesFound.WithLabelValues(string(a.Category), string(a.Severity)).Inc()
	}
}

func (r *Registry) DetectionFailed() {
	if r == nil {
		return
	}
	r.DetectionFailures.Inc()
}

func (r *Registry) ObserveRecommendation(rec models.Recommendation) {
	if r == nil {
		return
	}
	r.Recommendations.WithLabelValues(string(rec)).Inc()
}

func (r *Registry) ObserveRisk(level models.RiskLevel) {
	if r == nil {
		return
	}
	r.RiskAssessments.WithLabelValues(string(level)).Inc()
}

// ObserveDuration records how long an operation took since start.
func (r *Registry) ObserveDuration(operation string, start time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.Duration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
}

// NarrativeOutcome matches narrative.OutcomeRecorder.
func (r *Registry) NarrativeOutcome(kind string, analysisType models.AnalysisType) {
	if r == nil {
		return
	}
	r.Narratives.WithLabelValues(kind, string(analysisType)).Inc()
}

// BaselineLookup matches baseline.LookupRecorder.
func (r *Registry) BaselineLookup(tier string, hit bool) {
	if r == nil {
		return
	}
	r.BaselineLookups.WithLabelValues(tier, strconv.FormatBool(hit)).Inc()
}

func (r *Registry) AlertSent() {
	if r == nil {
		return
	}
	r.AlertsSent.Inc()
}

func scoreBand(score int) string {
	switch {
	case score >= 70:
		return "high"
	case score >= 40:
		return "moderate"
	case score > 0:
		return "low"
	default:
		return "none"
	}
}
