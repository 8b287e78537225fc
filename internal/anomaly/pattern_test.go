package anomaly

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/SubnetScope/config"
	"github.com/Alias1177/SubnetScope/models"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func generateHistory(n int, gen func(i int) models.MetricSet) *models.HistoricalData {
	h := &models.HistoricalData{}
	for i := 0; i < n; i++ {
		h.DataPoints = append(h.DataPoints, models.DataPoint{
			Timestamp: testNow.Add(time.Duration(i-n) * time.Hour),
			Metrics:   gen(i),
		})
	}
	return h
}

func TestCorrelationBreak(t *testing.T) {
	src := NewStatisticalSource(config.Default().Detection)

	tests := []struct {
		name     string
		category models.Category
		history  *models.HistoricalData
		wantHit  bool
	}{
		{
			name:     "Корреляция сохраняется",
			category: models.CategoryPerformance,
			history: generateHistory(12, func(i int) models.MetricSet {
				return models.MetricSet{
					models.ActivityScore:        float64(60 + i),
					models.NetworkParticipation: float64(70 + 2*i),
				}
			}),
		},
		{
			name:     "Корреляция инвертирована",
			category: models.CategoryPerformance,
			history: generateHistory(12, func(i int) models.MetricSet {
				y := float64(60 + i)
				if i >= 6 {
					y = float64(100 - i)
				}
				return models.MetricSet{
					models.ActivityScore:        float64(60 + i),
					models.NetworkParticipation: y,
				}
			}),
			wantHit: true,
		},
		{
			name:     "Недостаточно данных",
			category: models.CategoryPerformance,
			history: generateHistory(8, func(i int) models.MetricSet {
				return models.MetricSet{models.ActivityScore: float64(i), models.NetworkParticipation: float64(-i)}
			}),
		},
		{
			name:     "Плоский ряд",
			category: models.CategoryPerformance,
			history: generateHistory(12, func(i int) models.MetricSet {
				return models.MetricSet{models.ActivityScore: 75, models.NetworkParticipation: float64(i)}
			}),
		},
		{
			name:     "Нет истории",
			category: models.CategoryPerformance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := src.CorrelationBreak(context.Background(), PatternInput{
				SubnetID: 1,
				Category: tt.category,
				History:  tt.history,
				Now:      testNow,
			})
			require.NoError(t, err)
			if !tt.wantHit {
				assert.Nil(t, a)
				return
			}
			require.NotNil(t, a)
			assert.Equal(t, models.AnomalyCorrelation, a.Type)
			assert.Equal(t, models.SeverityModerate, a.Severity)
			assert.Equal(t, "metric_correlation", a.Metric)
			assert.InDelta(t, 2.0, a.PatternScore, 1e-9)
			assert.Equal(t, 75.0, a.Confidence)
		})
	}
}

func TestCyclicalBreak(t *testing.T) {
	src := NewStatisticalSource(config.Default().Detection)
	wave := func(i int) float64 { return 50 + 10*math.Sin(2*math.Pi*float64(i)/8) }

	tests := []struct {
		name    string
		history *models.HistoricalData
		wantHit bool
	}{
		{
			name: "Цикл продолжается",
			history: generateHistory(20, func(i int) models.MetricSet {
				return models.MetricSet{models.ActivityScore: wave(i)}
			}),
		},
		{
			name: "Цикл нарушен",
			history: generateHistory(20, func(i int) models.MetricSet {
				if i >= 16 {
					return models.MetricSet{models.ActivityScore: 90}
				}
				return models.MetricSet{models.ActivityScore: wave(i)}
			}),
			wantHit: true,
		},
		{
			name: "Слишком короткая история",
			history: generateHistory(10, func(i int) models.MetricSet {
				return models.MetricSet{models.ActivityScore: wave(i)}
			}),
		},
		{
			name: "Без цикла",
			history: generateHistory(20, func(i int) models.MetricSet {
				return models.MetricSet{models.ActivityScore: 75}
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := src.CyclicalBreak(context.Background(), PatternInput{
				Category: models.CategoryPerformance,
				History:  tt.history,
				Now:      testNow,
			})
			require.NoError(t, err)
			if !tt.wantHit {
				assert.Nil(t, a)
				return
			}
			require.NotNil(t, a)
			assert.Equal(t, models.AnomalyCyclical, a.Type)
			assert.Equal(t, models.SeverityLow, a.Severity)
			assert.Equal(t, 90.0, a.CurrentValue)
			assert.Greater(t, a.PatternScore, 2.0)
		})
	}
}

func TestPriceVolatility(t *testing.T) {
	src := NewStatisticalSource(config.Default().Detection)
	alternating := func(high float64) *models.HistoricalData {
		return generateHistory(10, func(i int) models.MetricSet {
			if i%2 == 0 {
				return models.MetricSet{models.TokenPrice: 1}
			}
			return models.MetricSet{models.TokenPrice: high}
		})
	}

	tests := []struct {
		name     string
		history  *models.HistoricalData
		current  float64
		severity models.Severity
	}{
		{
			name: "Стабильная цена",
			history: generateHistory(10, func(int) models.MetricSet {
				return models.MetricSet{models.TokenPrice: 1}
			}),
			current: 1,
		},
		{name: "Умеренная волатильность", history: alternating(1.3), current: 1, severity: models.SeverityModerate},
		{name: "Высокая волатильность", history: alternating(1.5), current: 1, severity: models.SeverityHigh},
		{name: "Нет истории цен", history: nil, current: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := src.PriceVolatility(context.Background(), PatternInput{
				Category: models.CategoryEconomic,
				Current:  models.MetricSet{models.TokenPrice: tt.current},
				History:  tt.history,
				Now:      testNow,
			})
			require.NoError(t, err)
			if tt.severity == "" {
				assert.Nil(t, a)
				return
			}
			require.NotNil(t, a)
			assert.Equal(t, models.AnomalyPrice, a.Type)
			assert.Equal(t, models.CategoryEconomic, a.Category)
			assert.Equal(t, tt.severity, a.Severity)
			assert.Equal(t, 90.0, a.Confidence)
		})
	}
}
