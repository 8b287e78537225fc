package investment

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

// Input carries the upstream results. Any of them may be missing; the
// affected factors then fall back to neutral scores.
type Input struct {
	Forecast  *models.Forecast
	Risk      *models.RiskAssessment
	Anomalies *models.AnomalyReport
	Market    models.MarketContext
}

// Scorer turns upstream analyses into an investment recommendation
type Scorer struct {
	metadata models.MetadataProvider
	strategy config.Strategy
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures a Scorer
type Option func(*Scorer)

// WithStrategy overrides weights and recommendation bands.
func WithStrategy(s config.Strategy) Option {
	return func(sc *Scorer) { sc.strategy = s }
}

// WithClock fixes the metadata timestamp.
func WithClock(now func() time.Time) Option {
	return func(sc *Scorer) { sc.now = now }
}

// NewScorer creates an investment scorer
func NewScorer(metadata models.MetadataProvider, opts ...Option) *Scorer {
	s := &Scorer{
		metadata: metadata,
		strategy: config.Default().Strategy,
		now:      time.Now,
		logger:   log.With().Str("component", "investment_scorer").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend scores the five factors concurrently and derives the
// recommendation. Missing upstream data never fails the call.
func (s *Scorer) Recommend(ctx context.Context, subnetID int, in Input) (*models.InvestmentAnalysis, error) {
	meta := s.metadata.Lookup(subnetID)

	var scores models.FactorScores
	g, gctx := errgroup.WithContext(ctx)
	factor := func(dst *models.FactorScore, compute func() models.FactorScore) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			*dst = compute()
			return nil
		})
	}
	factor(&scores.Performance, func() models.FactorScore { return performanceFactor(in.Forecast) })
	factor(&scores.Risk, func() models.FactorScore { return riskFactor(in.Risk) })
	factor(&scores.Market, func() models.FactorScore { return marketFactor(in.Market, in.Anomalies) })
	factor(&scores.Fundamentals, func() models.FactorScore { return fundamentalsFactor(meta) })
	factor(&scores.Competitive, func() models.FactorScore { return competitiveFactor(subnetID) })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("investment scoring for subnet %d: %w", subnetID, err)
	}

	s.logDegraded(subnetID, in)

	contributions := Contributions(scores, s.strategy.Weights)
	composite := int(math.Round(contributions.Sum()))
	recommendation, strength := RecommendationFor(composite, s.strategy.Recommendation)

	riskScore := defaultRiskScore
	if in.Risk != nil {
		riskScore = in.Risk.Composite.RiskScore
	}

	price := models.TokenPrice.DefaultValue()
	if in.Forecast != nil {
		price = in.Forecast.CurrentMetrics.ValueOrDefault(models.TokenPrice)
	}

	analysis := &models.InvestmentAnalysis{
		SubnetID:        subnetID,
		SubnetName:      meta.Name,
		SubnetType:      meta.Type,
		CompositeScore:  composite,
		Recommendation:  recommendation,
		Strength:        strength,
		StrengthNumeric: recommendation.Rank(),
		Confidence:      Confidence(composite, in.Forecast.Usable()),
		PriceTarget:     PriceTargetFor(composite, price),
		TimeHorizon:     TimeHorizonFor(composite, riskScore),
		FactorScores:    scores,
		Contributions:   contributions,
		Strategies:      Strategies(composite, riskScore),
		RiskWarnings:    Warnings(in.Risk, in.Anomalies),
		MarketTiming:    Timing(in.Market),
		Metadata: models.ReportMetadata{
			Timestamp:     s.now().UTC(),
			EngineVersion: models.EngineVersion,
		},
	}

	s.logger.Info().
		Int("subnet_id", subnetID).
		Int("score", composite).
		Str("recommendation", string(recommendation)).
		Int("confidence", analysis.Confidence).
		Msg("Investment recommendation complete")

	return analysis, nil
}

func (s *Scorer) logDegraded(subnetID int, in Input) {
	var missing []string
	if !in.Forecast.Usable() {
		missing = append(missing, "forecast")
	}
	if in.Risk == nil {
		missing = append(missing, "risk")
	}
	if in.Anomalies == nil {
		missing = append(missing, "anomalies")
	}
	if len(missing) == 0 {
		return
	}
	s.logger.Debug().
		Err(models.ErrUpstreamDataMissing).
		Int("subnet_id", subnetID).
		Strs("missing", missing).
		Msg("Scoring with degraded factors")
}
