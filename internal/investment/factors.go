package investment

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/Alias1177/SubnetScope/models"
)

// neutral is the starting point of every factor score
const neutral = 50.0

var fundamentalTypeScores = map[string]float64{
	"inference": 75,
	"training":  70,
	"data":      80,
	"storage":   85,
	"compute":   72,
}

const defaultTypeScore = 65.0

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// Trend is the least-squares slope over x = 1..n divided by the mean.
// Series shorter than two points or with a zero mean have no trend.
func Trend(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	mean := stat.Mean(values, nil)
	if mean == 0 {
		return 0
	}
	_, slope := stat.LinearRegression(xs, values, nil, false)
	return slope / mean
}

func performanceFactor(f *models.Forecast) models.FactorScore {
	if !f.Usable() {
		return models.FactorScore{
			Score:      neutral,
			Confidence: 30,
			Factors:    []string{"No forecast data available"},
		}
	}

	n := len(f.DailyPredictions)
	yields := make([]float64, n)
	activity := make([]float64, n)
	var confidenceSum float64
	for i, p := range f.DailyPredictions {
		yields[i] = p.PredictedYield
		activity[i] = p.PredictedActivity
		confidenceSum += p.Confidence
	}
	avgConfidence := confidenceSum / float64(n)

	score := neutral
	factors := []string{}

	yieldTrend := Trend(yields)
	switch {
	case yieldTrend > 0.05:
		score += 15
		factors = append(factors, "Positive yield trend")
	case yieldTrend < -0.05:
		score -= 15
		factors = append(factors, "Negative yield trend")
	}

	activityTrend := Trend(activity)
	switch {
	case activityTrend > 0.03:
		score += 10
		factors = append(factors, "Increasing activity")
	case activityTrend < -0.03:
		score -= 10
		factors = append(factors, "Declining activity")
	}

	switch {
	case avgConfidence > 75:
		score += 8
		factors = append(factors, "High forecast confidence")
	case avgConfidence < 60:
		score -= 8
		factors = append(factors, "Low forecast confidence")
	}

	return models.FactorScore{
		Score:      clampScore(score),
		Confidence: math.Min(95, avgConfidence),
		Factors:    factors,
		Metrics: map[string]any{
			"yield_trend":         yieldTrend,
			"activity_trend":      activityTrend,
			"forecast_confidence": avgConfidence,
		},
	}
}

func riskFactor(r *models.RiskAssessment) models.FactorScore {
	if r == nil {
		return models.FactorScore{
			Score:      neutral,
			Confidence: 40,
			Factors:    []string{"No risk assessment available"},
		}
	}

	score := neutral
	factors := []string{}
	composite := r.Composite.RiskScore
	switch {
	case composite <= 30:
		score += 20
		factors = append(factors, "Low overall risk")
	case composite <= 50:
		score += 10
		factors = append(factors, "Moderate risk")
	case composite >= 70:
		score -= 20
		factors = append(factors, "High risk profile")
	}

	confidence := float64(r.Confidence)
	if confidence == 0 {
		confidence = 75
	}

	return models.FactorScore{
		Score:      clampScore(score),
		Confidence: confidence,
		Factors:    factors,
		Metrics:    map[string]any{"composite_risk": composite},
	}
}

func marketFactor(market models.MarketContext, anomalies *models.AnomalyReport) models.FactorScore {
	score := neutral
	factors := []string{}

	switch market.Sentiment {
	case models.SentimentBull:
		score += 15
		factors = append(factors, "Bullish market conditions")
	case models.SentimentBear:
		score -= 15
		factors = append(factors, "Bearish market conditions")
	}

	impact := 0
	if anomalies != nil {
		impact = anomalies.Summary.AnomalyScore
		switch {
		case impact >= 70:
			score -= 15
			factors = append(factors, "High anomaly activity affects market confidence")
		case impact <= 20:
			score += 8
			factors = append(factors, "Stable performance patterns")
		}
	} else {
		factors = append(factors, "No anomaly data available")
	}

	return models.FactorScore{
		Score:      clampScore(score),
		Confidence: 70,
		Factors:    factors,
		Metrics: map[string]any{
			"market_sentiment": string(market.Sentiment),
			"anomaly_impact":   impact,
		},
	}
}

func fundamentalsFactor(meta models.SubnetMetadata) models.FactorScore {
	typeScore, ok := fundamentalTypeScores[meta.Type]
	if !ok {
		typeScore = defaultTypeScore
	}

	score := (neutral + typeScore) / 2
	factors := []string{}
	switch {
	case typeScore >= 80:
		factors = append(factors, "Strong subnet category")
	case typeScore <= 65:
		factors = append(factors, "Challenging subnet category")
	}

	if meta.HasRepository() {
		score += 10
		factors = append(factors, "Open source transparency")
	} else {
		score -= 8
		factors = append(factors, "Limited code transparency")
	}

	return models.FactorScore{
		Score:      clampScore(score),
		Confidence: 80,
		Factors:    factors,
		Metrics: map[string]any{
			"subnet_type_score": typeScore,
			"has_github":        meta.HasRepository(),
		},
	}
}

func competitiveFactor(subnetID int) models.FactorScore {
	score := neutral
	factors := []string{}
	switch {
	case subnetID <= 10:
		score += 20
		factors = append(factors, "Early mover advantage")
	case subnetID <= 30:
		score += 10
		factors = append(factors, "Established market position")
	case subnetID >= 80:
		score -= 8
		factors = append(factors, "Late market entry")
	}

	return models.FactorScore{
		Score:      clampScore(score),
		Confidence: 75,
		Factors:    factors,
		Metrics:    map[string]any{"market_position_rank": subnetID},
	}
}
