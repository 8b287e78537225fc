package investment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/SubnetScope/config"
	"github.com/Alias1177/SubnetScope/models"
)

type fakeMetadata map[int]models.SubnetMetadata

func (f fakeMetadata) Lookup(id int) models.SubnetMetadata {
	if m, ok := f[id]; ok {
		return m
	}
	return models.SubnetMetadata{ID: id, Name: "Unknown", Type: "unknown"}
}

var registry = fakeMetadata{
	1:  {ID: 1, Name: "Text Prompting", Type: "inference", Repository: "https://github.com/opentensor/prompting"},
	21: {ID: 21, Name: "Storage", Type: "storage", Repository: "https://github.com/example/storage"},
}

var fixedNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestScorer() *Scorer {
	return NewScorer(registry, WithClock(func() time.Time { return fixedNow }))
}

func risingForecast(price float64) *models.Forecast {
	f := &models.Forecast{CurrentMetrics: models.MetricSet{models.TokenPrice: price}}
	for day := 1; day <= 7; day++ {
		f.DailyPredictions = append(f.DailyPredictions, models.DailyPrediction{
			Day:               day,
			PredictedYield:    10 + float64(day),
			PredictedActivity: 70 + 3*float64(day),
			Confidence:        80,
		})
	}
	return f
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "Пусто", values: nil, want: 0},
		{name: "Одна точка", values: []float64{5}, want: 0},
		{name: "Рост", values: []float64{1, 2, 3}, want: 0.5},
		{name: "Падение", values: []float64{3, 2, 1}, want: -0.5},
		{name: "Плоско", values: []float64{4, 4, 4, 4}, want: 0},
		{name: "Нулевое среднее", values: []float64{-1, 1}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Trend(tt.values), 1e-9)
		})
	}
}

func TestRecommendWithoutUpstream(t *testing.T) {
	got, err := newTestScorer().Recommend(context.Background(), 1, Input{})
	require.NoError(t, err)

	assert.Equal(t, 50.0, got.FactorScores.Performance.Score)
	assert.LessOrEqual(t, got.FactorScores.Performance.Confidence, 30.0)
	assert.Equal(t, []string{"No forecast data available"}, got.FactorScores.Performance.Factors)
	assert.Equal(t, 40.0, got.FactorScores.Risk.Confidence)
	assert.Equal(t, 50.0, got.FactorScores.Market.Score)
	assert.Equal(t, []string{"No anomaly data available"}, got.FactorScores.Market.Factors)
	assert.Equal(t, 72.5, got.FactorScores.Fundamentals.Score)
	assert.Equal(t, 70.0, got.FactorScores.Competitive.Score)

	// 15 + 12.5 + 10 + 10.875 + 7
	assert.Equal(t, 55, got.CompositeScore)
	assert.Equal(t, models.Hold, got.Recommendation)
	assert.Equal(t, "Moderate", got.Strength)
	assert.Equal(t, 3, got.StrengthNumeric)
	assert.Equal(t, 63, got.Confidence)
	assert.Equal(t, "Short-term", got.TimeHorizon.Period)
	assert.Equal(t, 1.05, got.PriceTarget.TargetPrice)
	assert.Equal(t, 5.0, got.PriceTarget.ImpliedReturn)
	assert.Empty(t, got.RiskWarnings)
	assert.Equal(t, "NEUTRAL", got.MarketTiming.Timing)
	assert.Equal(t, fixedNow, got.Metadata.Timestamp)
	assert.InDelta(t, float64(got.CompositeScore), got.Contributions.Sum(), 0.5)
}

func TestRecommendStrongCase(t *testing.T) {
	risk := &models.RiskAssessment{Composite: models.CompositeRisk{RiskScore: 25}, Confidence: 82}
	anomalies := &models.AnomalyReport{Summary: models.DetectionSummary{AnomalyScore: 10}}

	got, err := newTestScorer().Recommend(context.Background(), 1, Input{
		Forecast:  risingForecast(2),
		Risk:      risk,
		Anomalies: anomalies,
		Market:    models.MarketContext{Sentiment: models.SentimentBull},
	})
	require.NoError(t, err)

	assert.Equal(t, 83.0, got.FactorScores.Performance.Score)
	assert.Equal(t, 80.0, got.FactorScores.Performance.Confidence)
	assert.Equal(t, 70.0, got.FactorScores.Risk.Score)
	assert.Equal(t, 82.0, got.FactorScores.Risk.Confidence)
	assert.Equal(t, 73.0, got.FactorScores.Market.Score)

	// 24.9 + 17.5 + 14.6 + 10.875 + 7
	assert.Equal(t, 75, got.CompositeScore)
	assert.Equal(t, models.Buy, got.Recommendation)
	assert.Equal(t, 88, got.Confidence)
	assert.Equal(t, "Long-term", got.TimeHorizon.Period)
	assert.Equal(t, 2.3, got.PriceTarget.TargetPrice)
	assert.Equal(t, "BUY", got.Strategies.Conservative.Recommendation)
	assert.Equal(t, "BUY", got.Strategies.Balanced.Recommendation)
	assert.Equal(t, "15-25%", got.Strategies.Aggressive.Allocation)
	assert.Equal(t, "FAVORABLE", got.MarketTiming.Timing)
}

func TestRecommendWarnings(t *testing.T) {
	got, err := newTestScorer().Recommend(context.Background(), 90, Input{
		Risk:      &models.RiskAssessment{Composite: models.CompositeRisk{RiskScore: 75}},
		Anomalies: &models.AnomalyReport{Summary: models.DetectionSummary{AnomalyScore: 80}},
		Market:    models.MarketContext{Sentiment: models.SentimentBear},
	})
	require.NoError(t, err)

	require.Len(t, got.RiskWarnings, 2)
	assert.Equal(t, "HIGH_RISK", got.RiskWarnings[0].Type)
	assert.Equal(t, "ANOMALY_DETECTED", got.RiskWarnings[1].Type)
	assert.Equal(t, 75.0, got.FactorScores.Risk.Confidence)
	assert.Equal(t, 20.0, got.FactorScores.Market.Score)
	assert.Equal(t, "AVOID", got.Strategies.Conservative.Recommendation)
	assert.Equal(t, "UNFAVORABLE", got.MarketTiming.Timing)
	assert.Contains(t, []models.Recommendation{models.Sell, models.StrongSell}, got.Recommendation)
}

func TestRecommendationIsMonotonic(t *testing.T) {
	bands := config.Default().Strategy.Recommendation
	prev := 0
	for score := 0; score <= 100; score++ {
		rec, _ := RecommendationFor(score, bands)
		assert.GreaterOrEqual(t, rec.Rank(), prev, "score %d", score)
		prev = rec.Rank()
	}

	tests := []struct {
		score int
		want  models.Recommendation
	}{
		{80, models.StrongBuy},
		{79, models.Buy},
		{65, models.Buy},
		{64, models.Hold},
		{40, models.Hold},
		{39, models.Sell},
		{25, models.Sell},
		{24, models.StrongSell},
	}
	for _, tt := range tests {
		rec, _ := RecommendationFor(tt.score, bands)
		assert.Equal(t, tt.want, rec, "score %d", tt.score)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name        string
		score       int
		hasForecast bool
		want        int
	}{
		{name: "Крайний балл с прогнозом", score: 85, hasForecast: true, want: 93},
		{name: "Крайний балл без прогноза", score: 10, want: 73},
		{name: "Средний балл без прогноза", score: 50, want: 63},
		{name: "Умеренный балл с прогнозом", score: 62, hasForecast: true, want: 88},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Confidence(tt.score, tt.hasForecast))
		})
	}
}

func TestEmptyForecastIsIgnored(t *testing.T) {
	got, err := newTestScorer().Recommend(context.Background(), 1, Input{Forecast: &models.Forecast{}})
	require.NoError(t, err)
	assert.Equal(t, 30.0, got.FactorScores.Performance.Confidence)
	assert.Equal(t, 63, got.Confidence)
}

func TestRecommendCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestScorer().Recommend(ctx, 1, Input{})
	assert.ErrorIs(t, err, context.Canceled)
}
