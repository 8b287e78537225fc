package telegram

import (
	"fmt"
	"strings"

	"github.com/Alias1177/SubnetScope/models"
)

const helpText = `SubnetScope watches Bittensor subnets for unusual behaviour.

Commands:
/subnet <id> - subnet description
/anomaly <id> - anomaly report from stored metrics
/risk <id> - risk assessment
/invest <id> - investment recommendation
/watch <id> - send me new alerts for a subnet
/unwatch <id> - stop alerts for a subnet
/watches - list my subscriptions`

var severityIcon = map[models.Severity]string{
	models.SeverityLow:      "🟢",
	models.SeverityModerate: "🟡",
	models.SeverityHigh:     "🟠",
	models.SeverityCritical: "🔴",
}

func formatSubnet(m models.SubnetMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subnet %d: %s\nType: %s\n", m.ID, m.Name, m.Type)
	if m.Description != "" {
		fmt.Fprintf(&b, "%s\n", m.Description)
	}
	if m.HasRepository() {
		fmt.Fprintf(&b, "Code: %s\n", m.Repository)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatReport(r *models.AnomalyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s (subnet %d)\n", r.SubnetName, r.SubnetID)
	fmt.Fprintf(&b, "Anomaly score: %d/100, confidence %d%%\n", r.Summary.AnomalyScore, r.Summary.ConfidenceLevel)
	fmt.Fprintf(&b, "Anomalies: %d\n", r.Summary.TotalAnomalies)

	for _, a := range r.Anomalies() {
		fmt.Fprintf(&b, "%s %s: %s\n", severityIcon[a.Severity], a.Metric, a.Description)
	}
	if r.Analysis != nil && r.Analysis.Text != "" {
		fmt.Fprintf(&b, "\n%s", r.Analysis.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAlerts(r *models.AnomalyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 %s (subnet %d): anomaly score %d/100\n", r.SubnetName, r.SubnetID, r.Summary.AnomalyScore)
	for _, a := range r.Alerts {
		fmt.Fprintf(&b, "%s %s\n", severityIcon[a.Severity], a.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatRisk(r *models.RiskAssessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚖️ %s (subnet %d)\n", r.SubnetName, r.SubnetID)
	fmt.Fprintf(&b, "Overall risk: %d/100 (%s), confidence %d%%\n", r.Composite.RiskScore, r.Composite.Level, r.Confidence)
	for _, c := range []models.RiskCategory{r.Technical, r.Governance, r.Economic} {
		fmt.Fprintf(&b, "• %s: %d (%s)\n", c.Category, c.RiskScore, c.Level)
	}
	if r.Analysis != nil && r.Analysis.Text != "" {
		fmt.Fprintf(&b, "\n%s", r.Analysis.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatInvestment(a *models.InvestmentAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💼 %s (subnet %d)\n", a.SubnetName, a.SubnetID)
	fmt.Fprintf(&b, "Recommendation: %s (%s)\n", a.Recommendation, a.Strength)
	fmt.Fprintf(&b, "Score: %d/100, confidence %d%%\n", a.CompositeScore, a.Confidence)
	fmt.Fprintf(&b, "Horizon: %s (%s)\n", a.TimeHorizon.Period, a.TimeHorizon.Duration)
	for _, w := range a.RiskWarnings {
		fmt.Fprintf(&b, "⚠️ %s\n", w.Message)
	}
	if a.Thesis != nil && a.Thesis.Text != "" {
		fmt.Fprintf(&b, "\n%s", a.Thesis.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatWatches(watches []models.Watch) string {
	if len(watches) == 0 {
		return "You are not watching any subnet. Use /watch <id> to subscribe."
	}
	ids := make([]string, 0, len(watches))
	for _, w := range watches {
		ids = append(ids, fmt.Sprintf("%d", w.SubnetID))
	}
	return "Watching subnets: " + strings.Join(ids, ", ")
}
