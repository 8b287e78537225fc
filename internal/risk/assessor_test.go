package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	1: {ID: 1, Name: "Text Prompting", Type: "inference", Repository: "https://github.com/opentensor/prompting"},
}

func TestAssessEstablishedSubnet(t *testing.T) {
	a := NewAssessor(registry)

	got, err := a.Assess(context.Background(), 1, models.MetricSet{}, nil, models.MarketContext{})
	require.NoError(t, err)

	assert.Equal(t, "Text Prompting", got.SubnetName)
	assert.Equal(t, 14, got.Technical.RiskScore)
	assert.Equal(t, 22, got.Governance.RiskScore)
	assert.Equal(t, 27, got.Economic.RiskScore)
	assert.Equal(t, 21, got.Composite.RiskScore)
	assert.Equal(t, models.RiskLow, got.Composite.Level)
	assert.Equal(t, map[string]int{"technical": 5, "governance": 6, "economic": 11}, got.Composite.Contribution)
	assert.Equal(t, 79, got.Confidence)

	assert.Equal(t, 15, got.Technical.Factors["security_posture"])
	assert.Equal(t, 60, got.Economic.Factors["market_exposure"])
	assert.Empty(t, got.Technical.KeyConcerns)
	assert.NotNil(t, got.Governance.Mitigations)
}

func TestAssessRiskySubnet(t *testing.T) {
	a := NewAssessor(registry)

	current := models.MetricSet{
		models.ValidatorCount:       30,
		models.NetworkParticipation: 30,
		models.CurrentYield:         50,
		models.TotalStake:           1_000_000,
		models.ActivityScore:        50,
	}
	history := &models.HistoricalData{}
	for i, y := range []float64{5, 20, 5, 20, 5, 20} {
		history.DataPoints = append(history.DataPoints, models.DataPoint{
			Timestamp: time.Date(2026, 1, 1, i, 0, 0, 0, time.UTC),
			Metrics:   models.MetricSet{models.CurrentYield: y},
		})
	}
	market := models.MarketContext{Sentiment: models.SentimentBear, Competition: "High"}

	got, err := a.Assess(context.Background(), 500, current, history, market)
	require.NoError(t, err)

	tests := []struct {
		name     string
		category models.RiskCategory
		score    int
		level    models.RiskLevel
		concerns []string
	}{
		{
			name:     "Технический риск",
			category: got.Technical,
			score:    33,
			level:    models.RiskModerate,
			concerns: []string{"Code quality issues"},
		},
		{
			name:     "Риск управления",
			category: got.Governance,
			score:    62,
			level:    models.RiskHigh,
			concerns: []string{"Centralization risk", "Low voting participation", "Limited transparency"},
		},
		{
			name:     "Экономический риск",
			category: got.Economic,
			score:    67,
			level:    models.RiskHigh,
			concerns: []string{"Yield sustainability concerns", "High market exposure", "Liquidity risk", "Economic model viability questions"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.score, tt.category.RiskScore)
			assert.Equal(t, tt.level, tt.category.Level)
			assert.Equal(t, tt.concerns, tt.category.KeyConcerns)
		})
	}

	assert.Equal(t, 54, got.Composite.RiskScore)
	assert.Equal(t, models.RiskModerate, got.Composite.Level)
	assert.Equal(t, 80, got.Economic.Factors["yield_sustainability"])
	assert.Equal(t, 90, got.Economic.Factors["market_exposure"])
}

func TestAssessIsDeterministic(t *testing.T) {
	a := NewAssessor(registry)
	current := models.MetricSet{models.ActivityScore: 82, models.ValidatorCount: 170}

	first, err := a.Assess(context.Background(), 1, current, nil, models.MarketContext{Sentiment: models.SentimentBull})
	require.NoError(t, err)
	second, err := a.Assess(context.Background(), 1, current, nil, models.MarketContext{Sentiment: models.SentimentBull})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMarketSentimentMovesExposure(t *testing.T) {
	a := NewAssessor(registry)
	exposure := func(s models.MarketSentiment) int {
		got, err := a.Assess(context.Background(), 1, nil, nil, models.MarketContext{Sentiment: s})
		require.NoError(t, err)
		return got.Economic.Factors["market_exposure"]
	}

	assert.Equal(t, 45, exposure(models.SentimentBull))
	assert.Equal(t, 60, exposure(models.SentimentNeutral))
	assert.Equal(t, 80, exposure(models.SentimentBear))
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   int
	}{
		{name: "Одинаковые оценки", scores: []int{40, 40, 40}, want: 85},
		{name: "Небольшой разброс", scores: []int{14, 22, 27}, want: 79},
		{name: "Большой разброс", scores: []int{0, 50, 100}, want: 65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Confidence(tt.scores...))
		})
	}
}

func TestAssessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAssessor(registry).Assess(ctx, 1, nil, nil, models.MarketContext{})
	assert.ErrorIs(t, err, context.Canceled)
}
