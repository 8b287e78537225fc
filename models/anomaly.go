package models

import "time"

// Severity is the ordinal anomaly intensity bucket
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Weight is used by the composite anomaly score.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityModerate:
		return 2
	default:
		return 1
	}
}

// CategoryScore is the per-anomaly contribution to a category score.
func (s Severity) CategoryScore() int {
	return s.Weight() * 25
}

// AnomalyType tells which check produced an anomaly
type AnomalyType string

const (
	AnomalyStatistical AnomalyType = "statistical"
	AnomalyValidator   AnomalyType = "validator_anomaly"
	AnomalyPrice       AnomalyType = "price_anomaly"
	AnomalyCorrelation AnomalyType = "correlation_anomaly"
	AnomalyCyclical    AnomalyType = "cyclical_anomaly"
)

// Anomaly is a single detected deviation
type Anomaly struct {
	Metric              string      `json:"metric"`
	Category            Category    `json:"category"`
	Type                AnomalyType `json:"type"`
	CurrentValue        float64     `json:"current_value"`
	BaselineMean        float64     `json:"baseline_mean"`
	BaselineStd         float64     `json:"baseline_std"`
	ZScore              float64     `json:"z_score"`
	PercentageDeviation float64     `json:"percentage_deviation"`
	ChangeRate          float64     `json:"change_rate,omitempty"`
	Volatility          float64     `json:"volatility,omitempty"`
	PatternScore        float64     `json:"pattern_score,omitempty"`
	Severity            Severity    `json:"severity"`
	Confidence          float64     `json:"confidence"`
	Timestamp           time.Time   `json:"timestamp"`
	Description         string      `json:"description"`
}

// SeverityDistribution counts anomalies per severity bucket
type SeverityDistribution struct {
	Low      int `json:"low"`
	Moderate int `json:"moderate"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// Add counts one anomaly of severity s.
func (d *SeverityDistribution) Add(s Severity) {
	switch s {
	case SeverityCritical:
		d.Critical++
	case SeverityHigh:
		d.High++
	case SeverityModerate:
		d.Moderate++
	default:
		d.Low++
	}
}

// DetectionSummary holds the aggregate numbers of a report
type DetectionSummary struct {
	TotalAnomalies       int                  `json:"total_anomalies"`
	AnomalyScore         int                  `json:"anomaly_score"`
	SeverityDistribution SeverityDistribution `json:"severity_distribution"`
	ConfidenceLevel      int                  `json:"confidence_level"`
}

// CategoryResult is the bucket of anomalies for one category
type CategoryResult struct {
	Anomalies []Anomaly `json:"anomalies"`
	Score     int       `json:"score"`
}

// AlertType identifies why an alert was raised
type AlertType string

const (
	AlertHighAnomalyScore AlertType = "high_anomaly_score"
	AlertCriticalAnomaly  AlertType = "critical_anomaly"
	AlertSecurityConcern  AlertType = "security_concern"
)

// Alert is raised from a report. Alerts live only in the response
// unless a caller persists them.
type Alert struct {
	ID            string    `json:"id"`
	Type          AlertType `json:"type"`
	Severity      Severity  `json:"severity"`
	SubnetID      int       `json:"subnet_id"`
	Metric        string    `json:"metric,omitempty"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	AutoGenerated bool      `json:"auto_generated"`
}

// AnomalyReport aggregates every anomaly found for a subnet
type AnomalyReport struct {
	SubnetID   int                         `json:"subnet_id"`
	SubnetName string                      `json:"subnet_name"`
	SubnetType string                      `json:"subnet_type"`
	Summary    DetectionSummary            `json:"detection_summary"`
	Categories map[Category]CategoryResult `json:"anomaly_categories"`
	Analysis   *Narrative                  `json:"ai_analysis,omitempty"`
	Alerts     []Alert                     `json:"alerts"`
	Metadata   ReportMetadata              `json:"detection_metadata"`
}

// Anomalies returns all anomalies in category order.
func (r *AnomalyReport) Anomalies() []Anomaly {
	if r == nil {
		return nil
	}
	var out []Anomaly
	for _, c := range Categories() {
		out = append(out, r.Categories[c].Anomalies...)
	}
	return out
}
