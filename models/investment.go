package models

// Recommendation is the investment call derived from the composite score
type Recommendation string

const (
	StrongBuy  Recommendation = "STRONG_BUY"
	Buy        Recommendation = "BUY"
	Hold       Recommendation = "HOLD"
	Sell       Recommendation = "SELL"
	StrongSell Recommendation = "STRONG_SELL"
)

// Rank orders recommendations from STRONG_SELL (1) to STRONG_BUY (5).
func (r Recommendation) Rank() int {
	switch r {
	case StrongBuy:
		return 5
	case Buy:
		return 4
	case Hold:
		return 3
	case Sell:
		return 2
	case StrongSell:
		return 1
	}
	return 0
}

// MarketSentiment is the caller supplied market direction
type MarketSentiment string

const (
	SentimentBull    MarketSentiment = "bull"
	SentimentBear    MarketSentiment = "bear"
	SentimentNeutral MarketSentiment = "neutral"
)

// MarketContext describes external market conditions
type MarketContext struct {
	Sentiment   MarketSentiment `json:"market_sentiment,omitempty" validate:"omitempty,oneof=bull bear neutral"`
	Competition string          `json:"competition,omitempty"`
}

// DailyPrediction is one forecast step
type DailyPrediction struct {
	Day               int     `json:"day"`
	PredictedYield    float64 `json:"predicted_yield"`
	PredictedActivity float64 `json:"predicted_activity"`
	Confidence        float64 `json:"confidence" validate:"gte=0,lte=100"`
}

// Forecast is produced upstream and consumed by the scorer
type Forecast struct {
	DailyPredictions []DailyPrediction `json:"daily_predictions" validate:"dive"`
	CurrentMetrics   MetricSet         `json:"current_metrics,omitempty"`
}

// Usable reports whether the forecast carries any predictions.
func (f *Forecast) Usable() bool {
	return f != nil && len(f.DailyPredictions) > 0
}

// FactorScore is one of the five investment sub-scores
type FactorScore struct {
	Score      float64        `json:"score"`
	Confidence float64        `json:"confidence"`
	Factors    []string       `json:"factors"`
	Metrics    map[string]any `json:"metrics,omitempty"`
}

// FactorScores groups the five sub-scores
type FactorScores struct {
	Performance  FactorScore `json:"forecasted_performance"`
	Risk         FactorScore `json:"risk_assessment"`
	Market       FactorScore `json:"market_sentiment"`
	Fundamentals FactorScore `json:"technical_fundamentals"`
	Competitive  FactorScore `json:"competitive_position"`
}

// WeightedContributions is each factor score multiplied by its weight
type WeightedContributions struct {
	Performance  float64 `json:"performance"`
	Risk         float64 `json:"risk"`
	Market       float64 `json:"market"`
	Fundamentals float64 `json:"fundamentals"`
	Competitive  float64 `json:"competitive"`
}

// Sum adds up all contributions.
func (w WeightedContributions) Sum() float64 {
	return w.Performance + w.Risk + w.Market + w.Fundamentals + w.Competitive
}

// PriceTarget is the projected token price
type PriceTarget struct {
	TargetPrice   float64 `json:"target_price"`
	CurrentPrice  float64 `json:"current_price"`
	ImpliedReturn float64 `json:"implied_return"`
	TimeHorizon   string  `json:"time_horizon"`
}

// TimeHorizon is the suggested holding period
type TimeHorizon struct {
	Period    string `json:"period"`
	Duration  string `json:"duration"`
	Rationale string `json:"rationale"`
}

// StrategyAdvice is the call for one investor profile
type StrategyAdvice struct {
	Recommendation string `json:"recommendation"`
	Allocation     string `json:"allocation"`
	Rationale      string `json:"rationale"`
}

// StrategyRecommendations covers all investor profiles
type StrategyRecommendations struct {
	Conservative StrategyAdvice `json:"conservative"`
	Balanced     StrategyAdvice `json:"balanced"`
	Aggressive   StrategyAdvice `json:"aggressive"`
}

// RiskWarning flags a condition investors should know about
type RiskWarning struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// MarketTiming is the entry timing read from sentiment
type MarketTiming struct {
	Timing         string   `json:"timing"`
	Score          int      `json:"score"`
	Factors        []string `json:"factors"`
	Recommendation string   `json:"recommendation"`
}

// InvestmentAnalysis is the full recommendation for a subnet
type InvestmentAnalysis struct {
	SubnetID        int                     `json:"subnet_id"`
	SubnetName      string                  `json:"subnet_name"`
	SubnetType      string                  `json:"subnet_type"`
	CompositeScore  int                     `json:"composite_score"`
	Recommendation  Recommendation          `json:"recommendation"`
	Strength        string                  `json:"recommendation_strength"`
	StrengthNumeric int                     `json:"recommendation_numeric"`
	Confidence      int                     `json:"confidence"`
	PriceTarget     PriceTarget             `json:"price_target"`
	TimeHorizon     TimeHorizon             `json:"time_horizon"`
	FactorScores    FactorScores            `json:"factor_scores"`
	Contributions   WeightedContributions   `json:"weighted_contributions"`
	Strategies      StrategyRecommendations `json:"strategy_recommendations"`
	RiskWarnings    []RiskWarning           `json:"risk_warnings"`
	MarketTiming    MarketTiming            `json:"market_timing"`
	Thesis          *Narrative              `json:"investment_thesis,omitempty"`
	Metadata        ReportMetadata          `json:"recommendation_metadata"`
}
