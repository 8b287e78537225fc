package investment

import (
	"math"

	"github.com/Alias1177/SubnetScope/config"
	"github.com/Alias1177/SubnetScope/models"
)

// defaultRiskScore stands in for a missing risk assessment.
const defaultRiskScore = 50

// Contributions multiplies each factor score by its weight.
func Contributions(scores models.FactorScores, w config.FactorWeights) models.WeightedContributions {
	return models.WeightedContributions{
		Performance:  scores.Performance.Score * w.Performance,
		Risk:         scores.Risk.Score * w.Risk,
		Market:       scores.Market.Score * w.Market,
		Fundamentals: scores.Fundamentals.Score * w.Fundamentals,
		Competitive:  scores.Competitive.Score * w.Competitive,
	}
}

// RecommendationFor maps a composite score onto the bands and returns
// the recommendation with its strength label.
func RecommendationFor(score int, bands config.RecommendationBands) (models.Recommendation, string) {
	switch {
	case score >= bands.StrongBuy:
		return models.StrongBuy, "Very High"
	case score >= bands.Buy:
		return models.Buy, "High"
	case score >= bands.Hold:
		return models.Hold, "Moderate"
	case score >= bands.Sell:
		return models.Sell, "High"
	default:
		return models.StrongSell, "Very High"
	}
}

// Confidence is higher for decisive scores and when a forecast backs them.
func Confidence(score int, hasForecast bool) int {
	confidence := 75
	switch {
	case score >= 80 || score <= 20:
		confidence += 10
	case score >= 60 || score <= 40:
		confidence += 5
	}
	if hasForecast {
		confidence += 8
	} else {
		confidence -= 12
	}
	return max(50, min(95, confidence))
}

// PriceTargetFor projects the token price over 6-12 months.
func PriceTargetFor(score int, currentPrice float64) models.PriceTarget {
	var multiplier float64
	switch {
	case score >= 80:
		multiplier = 1.30
	case score >= 65:
		multiplier = 1.15
	case score >= 55:
		multiplier = 1.05
	case score >= 45:
		multiplier = 0.95
	default:
		multiplier = 0.85
	}

	return models.PriceTarget{
		TargetPrice:   math.Round(currentPrice*multiplier*1e4) / 1e4,
		CurrentPrice:  currentPrice,
		ImpliedReturn: math.Round((multiplier-1)*1000) / 10,
		TimeHorizon:   "6-12 months",
	}
}

// TimeHorizonFor picks the holding period from score and risk.
func TimeHorizonFor(score, riskScore int) models.TimeHorizon {
	switch {
	case score >= 75 && riskScore <= 40:
		return models.TimeHorizon{Period: "Long-term", Duration: "12-24 months", Rationale: "Strong fundamentals support extended holding"}
	case score >= 60 && riskScore <= 60:
		return models.TimeHorizon{Period: "Medium-term", Duration: "6-12 months", Rationale: "Solid opportunity with moderate timeline"}
	default:
		return models.TimeHorizon{Period: "Short-term", Duration: "3-6 months", Rationale: "Limited visibility requires shorter horizon"}
	}
}

// Strategies derives the advice for each investor profile.
func Strategies(score, riskScore int) models.StrategyRecommendations {
	var s models.StrategyRecommendations

	switch {
	case riskScore <= 40 && score >= 75:
		s.Conservative = models.StrategyAdvice{Recommendation: "BUY", Allocation: "15-25%", Rationale: "Low risk with solid fundamentals"}
	case riskScore <= 40 && score >= 60:
		s.Conservative = models.StrategyAdvice{Recommendation: "HOLD", Allocation: "10-15%", Rationale: "Low risk with solid fundamentals"}
	default:
		s.Conservative = models.StrategyAdvice{Recommendation: "AVOID", Allocation: "0%", Rationale: "Risk level too high for conservative strategy"}
	}

	switch {
	case score >= 70:
		s.Balanced = models.StrategyAdvice{Recommendation: "BUY", Allocation: "20-30%", Rationale: "Good risk-reward balance"}
	case score >= 45:
		s.Balanced = models.StrategyAdvice{Recommendation: "HOLD", Allocation: "10-20%", Rationale: "Moderate opportunity with manageable risk"}
	default:
		s.Balanced = models.StrategyAdvice{Recommendation: "REDUCE", Allocation: "5-10%", Rationale: "Below-average prospects"}
	}

	switch {
	case score >= 80:
		s.Aggressive = models.StrategyAdvice{Recommendation: "STRONG_BUY", Allocation: "25-40%", Rationale: "High growth potential despite elevated risk"}
	case score >= 65:
		s.Aggressive = models.StrategyAdvice{Recommendation: "BUY", Allocation: "15-25%", Rationale: "High growth potential despite elevated risk"}
	default:
		s.Aggressive = models.StrategyAdvice{Recommendation: "SPECULATIVE_HOLD", Allocation: "5-15%", Rationale: "Speculative opportunity with high volatility"}
	}

	return s
}

// Warnings lists the conditions worth flagging to investors. Missing
// inputs raise nothing.
func Warnings(risk *models.RiskAssessment, anomalies *models.AnomalyReport) []models.RiskWarning {
	warnings := []models.RiskWarning{}
	if risk != nil && risk.Composite.RiskScore >= 70 {
		warnings = append(warnings, models.RiskWarning{
			Type:     "HIGH_RISK",
			Severity: models.SeverityHigh,
			Message:  "High overall risk profile - consider position sizing carefully",
		})
	}
	if anomalies != nil && anomalies.Summary.AnomalyScore >= 60 {
		warnings = append(warnings, models.RiskWarning{
			Type:     "ANOMALY_DETECTED",
			Severity: models.SeverityModerate,
			Message:  "Unusual activity patterns detected - monitor closely",
		})
	}
	return warnings
}

// Timing reads entry timing from market sentiment.
func Timing(market models.MarketContext) models.MarketTiming {
	switch market.Sentiment {
	case models.SentimentBull:
		return models.MarketTiming{Timing: "FAVORABLE", Score: 2, Factors: []string{"Bullish market supports entry"}, Recommendation: "Consider entry"}
	case models.SentimentBear:
		return models.MarketTiming{Timing: "UNFAVORABLE", Score: -2, Factors: []string{"Bearish market suggests caution"}, Recommendation: "Wait for better entry"}
	default:
		return models.MarketTiming{Timing: "NEUTRAL", Factors: []string{}, Recommendation: "Timing neutral"}
	}
}
