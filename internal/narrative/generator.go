package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/Alias1177/SubnetScope/models"
)

// Narrative kinds, used in logs and metrics.
const (
	KindAnomaly    = "anomaly"
	KindInvestment = "investment"
	KindRisk       = "risk"
)

// errCallerGone marks calls aborted by the caller. They do not count
// against the breaker.
var errCallerGone = errors.New("caller context done")

// OutcomeRecorder is told how every narrative was produced
type OutcomeRecorder func(kind string, analysisType models.AnalysisType)

// Generator writes natural-language summaries. It never fails: LLM errors,
// timeouts, empty answers and an open breaker all yield templated text.
type Generator struct {
	client  models.ChatCompleter
	model   string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	record  OutcomeRecorder
	logger  zerolog.Logger
}

// Option configures a Generator
type Option func(*Generator)

// WithModel sets the model name sent to the provider.
func WithModel(model string) Option {
	return func(g *Generator) { g.model = model }
}

// WithTimeout bounds every LLM call.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

// WithBreaker opens the circuit after consecutive failures and keeps it
// open for cooldown.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(g *Generator) { g.breaker = newBreaker(failures, cooldown, g.logger) }
}

// WithRecorder reports the outcome of every generation.
func WithRecorder(r OutcomeRecorder) Option {
	return func(g *Generator) { g.record = r }
}

// NewGenerator creates a generator. A nil client always uses templates.
func NewGenerator(client models.ChatCompleter, opts ...Option) *Generator {
	g := &Generator{
		client:  client,
		timeout: 20 * time.Second,
		logger:  log.With().Str("component", "narrative_generator").Logger(),
	}
	g.breaker = newBreaker(3, time.Minute, g.logger)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func newBreaker(failures uint32, cooldown time.Duration, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	if failures == 0 {
		failures = 3
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "llm",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("LLM circuit breaker state changed")
		},
	})
}

// Anomaly summarises an anomaly report. Reports without anomalies never
// reach the LLM.
func (g *Generator) Anomaly(ctx context.Context, r *models.AnomalyReport) *models.Narrative {
	fallback := func() string { return anomalyFallback(r) }
	if r.Summary.TotalAnomalies == 0 {
		return g.fallback(KindAnomaly, fallback)
	}
	return g.generate(ctx, KindAnomaly, models.ChatRequest{
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: anomalySystemPrompt},
			{Role: models.RoleUser, Content: anomalyPrompt(r)},
		},
		Temperature: 0.3,
		MaxTokens:   350,
	}, fallback)
}

// Investment writes the investment thesis.
func (g *Generator) Investment(ctx context.Context, a *models.InvestmentAnalysis) *models.Narrative {
	return g.generate(ctx, KindInvestment, models.ChatRequest{
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: investmentSystemPrompt},
			{Role: models.RoleUser, Content: investmentPrompt(a)},
		},
		Temperature: 0.3,
		MaxTokens:   400,
	}, func() string { return investmentFallback(a) })
}

// Risk summarises a risk assessment.
func (g *Generator) Risk(ctx context.Context, a *models.RiskAssessment) *models.Narrative {
	return g.generate(ctx, KindRisk, models.ChatRequest{
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: riskSystemPrompt},
			{Role: models.RoleUser, Content: riskPrompt(a)},
		},
		Temperature: 0.4,
		MaxTokens:   400,
	}, func() string { return riskFallback(a) })
}

func (g *Generator) generate(ctx context.Context, kind string, req models.ChatRequest, fallback func() string) *models.Narrative {
	if g.client == nil {
		return g.fallback(kind, fallback)
	}
	req.Model = g.model

	result, err := g.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.client.Complete(callCtx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", errCallerGone, err)
			}
			return nil, err
		}
		if strings.TrimSpace(resp.Content) == "" {
			return nil, models.ErrEmptyCompletion
		}
		return resp, nil
	})
	if err != nil {
		event := g.logger.Warn().Err(fmt.Errorf("%w: %w", models.ErrNarrativeUnavailable, err)).Str("kind", kind)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			event = event.Bool("breaker_open", true)
		}
		event.Msg("AI analysis failed, using fallback")
		return g.fallback(kind, fallback)
	}

	resp := result.(*models.ChatResponse)
	usage := resp.Usage
	g.recordOutcome(kind, models.AnalysisAIPowered)

	return &models.Narrative{
		Text:         resp.Content,
		ModelUsed:    resp.Model,
		AnalysisType: models.AnalysisAIPowered,
		Usage:        &usage,
	}
}

func (g *Generator) fallback(kind string, text func() string) *models.Narrative {
	g.recordOutcome(kind, models.AnalysisRuleBased)
	return &models.Narrative{
		Text:         text(),
		ModelUsed:    models.FallbackModel,
		AnalysisType: models.AnalysisRuleBased,
	}
}

func (g *Generator) recordOutcome(kind string, t models.AnalysisType) {
	if g.record != nil {
		g.record(kind, t)
	}
}
