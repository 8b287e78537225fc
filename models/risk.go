package models

// RiskLevel buckets a 0-100 risk score
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// RiskLevelFor maps a score to its level.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score <= 30:
		return RiskLow
	case score <= 60:
		return RiskModerate
	case score <= 80:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// RiskCategory is the assessment of one risk dimension.
// Factors holds per-factor risk, 0-100, higher is riskier.
type RiskCategory struct {
	Category    string         `json:"category"`
	RiskScore   int            `json:"risk_score"`
	Level       RiskLevel      `json:"risk_level"`
	Weight      int            `json:"weight_percentage"`
	Factors     map[string]int `json:"risk_factors"`
	KeyConcerns []string       `json:"key_concerns"`
	Mitigations []string       `json:"mitigation_strategies"`
}

// CompositeRisk combines the category scores
type CompositeRisk struct {
	RiskScore    int            `json:"risk_score"`
	Level        RiskLevel      `json:"risk_level"`
	Breakdown    map[string]int `json:"category_breakdown"`
	Contribution map[string]int `json:"weighted_contribution"`
}

// RiskAssessment is the full risk picture for a subnet
type RiskAssessment struct {
	SubnetID   int            `json:"subnet_id"`
	SubnetName string         `json:"subnet_name"`
	SubnetType string         `json:"subnet_type"`
	Technical  RiskCategory   `json:"technical_risk"`
	Governance RiskCategory   `json:"governance_risk"`
	Economic   RiskCategory   `json:"economic_risk"`
	Composite  CompositeRisk  `json:"composite_risk"`
	Confidence int            `json:"confidence_level"`
	Analysis   *Narrative     `json:"ai_analysis,omitempty"`
	Metadata   ReportMetadata `json:"assessment_metadata"`
}
