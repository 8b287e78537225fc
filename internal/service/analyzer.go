package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SubnetScope/internal/anomaly"
	"github.com/Alias1177/SubnetScope/internal/investment"
	"github.com/Alias1177/SubnetScope/internal/metadata"
	"github.com/Alias1177/SubnetScope/internal/metrics"
	"github.com/Alias1177/SubnetScope/internal/narrative"
	"github.com/Alias1177/SubnetScope/internal/risk"
	"github.com/Alias1177/SubnetScope/models"
)

// Operation names used in logs and duration metrics.
const (
	OpDetect    = "detect"
	OpRisk      = "risk"
	OpRecommend = "recommend"
)

// DefaultHistoryLimit is how many stored points are loaded when a request
// carries no history.
const DefaultHistoryLimit = 48

// Bounds of RecentAlerts.
const (
	DefaultAlertLimit = 20
	MaxAlertLimit     = 100
)

// Analyzer is the single entry point used by the HTTP server, the bot and
// the CLI. It validates requests, loads stored history and attaches
// narratives to the numeric results.
type Analyzer struct {
	registry *metadata.Registry
	detector *anomaly.Detector
	assessor *risk.Assessor
	scorer   *investment.Scorer
	narrator *narrative.Generator
	history  models.HistoryProvider
	alerts   models.AlertStore
	samples  models.SampleRecorder
	metrics  *metrics.Registry
	parser   metricParser
	validate *validator.Validate
	limit    int
	newID    func() string
	logger   zerolog.Logger
}

// Deps are the engines the analyzer orchestrates
type Deps struct {
	Registry *metadata.Registry
	Detector *anomaly.Detector
	Assessor *risk.Assessor
	Scorer   *investment.Scorer
	Narrator *narrative.Generator
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithHistory loads stored history for requests that carry none.
func WithHistory(h models.HistoryProvider, limit int) Option {
	return func(a *Analyzer) {
		a.history = h
		if limit > 0 {
			a.limit = limit
		}
	}
}

// WithAlertStore persists the alerts of every report.
func WithAlertStore(s models.AlertStore) Option {
	return func(a *Analyzer) { a.alerts = s }
}

// WithSampleRecorder stores the current metrics of every anomaly request.
func WithSampleRecorder(r models.SampleRecorder) Option {
	return func(a *Analyzer) { a.samples = r }
}

// WithMetrics records durations, detections and recommendations.
func WithMetrics(m *metrics.Registry) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithStrictMetrics rejects unknown metric keys instead of dropping them.
func WithStrictMetrics(strict bool) Option {
	return func(a *Analyzer) { a.parser.strict = strict }
}

// WithRequestIDs overrides the request id generator.
func WithRequestIDs(newID func() string) Option {
	return func(a *Analyzer) { a.newID = newID }
}

type requestIDKey struct{}

// ContextWithRequestID attaches the caller's request id. Reports computed
// under this context carry it instead of a generated one.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (a *Analyzer) requestID(ctx context.Context) string {
	if id := RequestIDFromContext(ctx); id != "" {
		return id
	}
	return a.newID()
}

// NewAnalyzer creates the analyzer. Strict metric handling is the default.
func NewAnalyzer(deps Deps, opts ...Option) *Analyzer {
	a := &Analyzer{
		registry: deps.Registry,
		detector: deps.Detector,
		assessor: deps.Assessor,
		scorer:   deps.Scorer,
		narrator: deps.Narrator,
		parser:   metricParser{strict: true},
		validate: newValidator(),
		limit:    DefaultHistoryLimit,
		newID:    uuid.NewString,
		logger:   log.With().Str("component", "analyzer").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Subnet returns the metadata of a subnet.
func (a *Analyzer) Subnet(id int) (models.SubnetMetadata, error) {
	if err := metadata.ValidateID(id); err != nil {
		return models.SubnetMetadata{}, err
	}
	return a.registry.Lookup(id), nil
}

// DetectAnomalies runs the detector and attaches the narrative. Detection
// failures are returned as *models.AnomalyDetectionError.
func (a *Analyzer) DetectAnomalies(ctx context.Context, req AnomalyRequest) (report *models.AnomalyReport, err error) {
	start := time.Now()
	defer func() { a.metrics.ObserveDuration(OpDetect, start, err) }()

	if err := a.validate.Struct(req); err != nil {
		return nil, toValidationError(err)
	}
	current, history, err := a.inputs(ctx, req.SubnetID, req.Metrics, req.History)
	if err != nil {
		return nil, err
	}

	requestID := a.requestID(ctx)
	report, err = a.detect(ctx, req.SubnetID, current, history, requestID)
	if err != nil {
		return nil, err
	}

	a.persistAlerts(ctx, report)
	if len(req.Metrics) > 0 {
		a.recordSamples(ctx, req.SubnetID, current)
	}
	report.Analysis = a.narrator.Anomaly(ctx, report)
	return report, nil
}

// RecentAlerts lists stored alerts of a subnet, newest first. Without an
// alert store the list is empty.
func (a *Analyzer) RecentAlerts(ctx context.Context, subnetID int, limit int) ([]models.Alert, error) {
	if err := metadata.ValidateID(subnetID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	if limit > MaxAlertLimit {
		limit = MaxAlertLimit
	}
	if a.alerts == nil {
		return []models.Alert{}, nil
	}
	alerts, err := a.alerts.RecentAlerts(ctx, subnetID, limit)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return alerts, nil
}

// AssessRisk runs the risk assessor and attaches the narrative.
func (a *Analyzer) AssessRisk(ctx context.Context, req RiskRequest) (assessment *models.RiskAssessment, err error) {
	start := time.Now()
	defer func() { a.metrics.ObserveDuration(OpRisk, start, err) }()

	if err := a.validate.Struct(req); err != nil {
		return nil, toValidationError(err)
	}
	current, history, err := a.inputs(ctx, req.SubnetID, req.Metrics, req.History)
	if err != nil {
		return nil, err
	}

	requestID := a.requestID(ctx)
	assessment, err = a.assess(ctx, req.SubnetID, current, history, req.Market, requestID)
	if err != nil {
		return nil, err
	}

	assessment.Analysis = a.narrator.Risk(ctx, assessment)
	return assessment, nil
}

// Recommend builds an investment analysis. Anomalies are always detected
// from the request metrics; a failed detection only removes the anomaly
// signal from the market factor.
func (a *Analyzer) Recommend(ctx context.Context, req InvestmentRequest) (analysis *models.InvestmentAnalysis, err error) {
	start := time.Now()
	defer func() { a.metrics.ObserveDuration(OpRecommend, start, err) }()

	if err := a.validate.Struct(req); err != nil {
		return nil, toValidationError(err)
	}
	forecast, dropped, err := a.parser.forecast(req.Forecast)
	if err != nil {
		return nil, err
	}
	if len(dropped) > 0 {
		a.logger.Warn().Int("subnet_id", req.SubnetID).Strs("metrics", dropped).Msg("Dropping unknown forecast metrics")
	}
	current, history, err := a.inputs(ctx, req.SubnetID, req.Metrics, req.History)
	if err != nil {
		return nil, err
	}

	requestID := a.requestID(ctx)
	logger := a.logger.With().Str("request_id", requestID).Int("subnet_id", req.SubnetID).Logger()

	riskAssessment := req.Risk
	if riskAssessment == nil {
		riskAssessment, err = a.assess(ctx, req.SubnetID, current, history, req.Market, requestID)
		if err != nil {
			return nil, err
		}
	}

	anomalies, err := a.detect(ctx, req.SubnetID, current, history, requestID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn().Err(err).Msg("Scoring without anomaly signal")
		anomalies = nil
	}

	analysis, err = a.scorer.Recommend(ctx, req.SubnetID, investment.Input{
		Forecast:  forecast,
		Risk:      riskAssessment,
		Anomalies: anomalies,
		Market:    req.Market,
	})
	if err != nil {
		return nil, err
	}
	analysis.Metadata.RequestID = requestID
	a.metrics.ObserveRecommendation(analysis.Recommendation)

	analysis.Thesis = a.narrator.Investment(ctx, analysis)
	return analysis, nil
}

func (a *Analyzer) detect(ctx context.Context, subnetID int, current models.MetricSet, history *models.HistoricalData, requestID string) (*models.AnomalyReport, error) {
	report, err := a.detector.Detect(ctx, subnetID, current, history)
	if err != nil {
		a.metrics.DetectionFailed()
		a.logger.Error().Err(err).Str("request_id", requestID).Int("subnet_id", subnetID).Msg("Anomaly detection failed")
		var detErr *models.AnomalyDetectionError
		if !errors.As(err, &detErr) {
			err = &models.AnomalyDetectionError{SubnetID: subnetID, Err: err}
		}
		return nil, err
	}
	report.Metadata.RequestID = requestID
	a.metrics.ObserveDetection(report)
	return report, nil
}

func (a *Analyzer) assess(ctx context.Context, subnetID int, current models.MetricSet, history *models.HistoricalData, market models.MarketContext, requestID string) (*models.RiskAssessment, error) {
	assessment, err := a.assessor.Assess(ctx, subnetID, current, history, market)
	if err != nil {
		return nil, err
	}
	assessment.Metadata = models.ReportMetadata{
		RequestID:     requestID,
		Timestamp:     time.Now().UTC(),
		EngineVersion: models.EngineVersion,
	}
	a.metrics.ObserveRisk(assessment.Composite.Level)
	return assessment, nil
}

// inputs parses the request metrics and history. Without request history
// the stored series is used; without current metrics its latest point is.
func (a *Analyzer) inputs(ctx context.Context, subnetID int, raw map[string]float64, points []HistoryPoint) (models.MetricSet, *models.HistoricalData, error) {
	current, dropped, err := a.parser.parse("metrics", raw)
	if err != nil {
		return nil, nil, err
	}
	history, droppedHistory, err := a.parser.history(points)
	if err != nil {
		return nil, nil, err
	}
	if dropped = append(dropped, droppedHistory...); len(dropped) > 0 {
		a.logger.Warn().Int("subnet_id", subnetID).Strs("metrics", dropped).Msg("Dropping unknown metrics")
	}

	if history == nil && a.history != nil {
		stored, err := a.history.History(ctx, subnetID, a.limit)
		if err != nil {
			a.logger.Warn().Err(err).Int("subnet_id", subnetID).Msg("Stored history unavailable, using defaults")
		} else if stored.Len() > 0 {
			history = stored
		}
	}

	if len(current) == 0 && history.Len() > 0 {
		current = history.DataPoints[history.Len()-1].Metrics
	}
	return current, history, nil
}

func (a *Analyzer) persistAlerts(ctx context.Context, report *models.AnomalyReport) {
	if a.alerts == nil || len(report.Alerts) == 0 {
		return
	}
	if err := a.alerts.SaveAlerts(ctx, report.Alerts); err != nil {
		a.logger.Warn().Err(err).Int("subnet_id", report.SubnetID).Msg("Failed to persist alerts")
	}
}

func (a *Analyzer) recordSamples(ctx context.Context, subnetID int, current models.MetricSet) {
	if a.samples == nil || len(current) == 0 {
		return
	}
	point := models.DataPoint{Timestamp: time.Now().UTC(), Metrics: current}
	if err := a.samples.RecordSamples(ctx, subnetID, point); err != nil {
		a.logger.Warn().Err(err).Int("subnet_id", subnetID).Msg("Failed to record samples")
	}
}
