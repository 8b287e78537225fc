package narrative

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Alias1177/SubnetScope/models"
)

const (
	anomalySystemPrompt    = "You are a blockchain monitoring specialist expert in anomaly detection and incident response for decentralized networks."
	investmentSystemPrompt = "You are a cryptocurrency investment analyst specializing in DeFi protocols and blockchain infrastructure investments."
	riskSystemPrompt       = "You are a blockchain risk management expert specializing in DeFi protocol risk analysis and mitigation strategies."
)

// keyAnomalyLimit caps how many anomalies are listed in the prompt
const keyAnomalyLimit = 5

func anomalyPrompt(r *models.AnomalyReport) string {
	anomalies := r.Anomalies()

	var categories []string
	seen := make(map[models.Category]bool)
	for _, a := range anomalies {
		if !seen[a.Category] {
			seen[a.Category] = true
			categories = append(categories, string(a.Category))
		}
	}

	distribution, _ := json.Marshal(r.Summary.SeverityDistribution)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Analyze these anomalies detected in Bittensor subnet %d (%s):\n\n", r.SubnetID, r.SubnetName))
	sb.WriteString("**Anomaly Summary:**\n")
	sb.WriteString(fmt.Sprintf("- Total anomalies: %d\n", len(anomalies)))
	sb.WriteString(fmt.Sprintf("- Composite score: %d/100\n", r.Summary.AnomalyScore))
	sb.WriteString(fmt.Sprintf("- Categories affected: %s\n\n", strings.Join(categories, ", ")))

	sb.WriteString("**Key Anomalies:**\n")
	for i, a := range anomalies {
		if i == keyAnomalyLimit {
			break
		}
		sb.WriteString(fmt.Sprintf("- %s: %s (%s)\n", a.Metric, a.Description, a.Severity))
	}

	sb.WriteString("\n**Severity Distribution:**\n")
	sb.Write(distribution)
	sb.WriteString(`

Provide analysis including:
1. **Root Cause Assessment** (most likely causes)
2. **Impact Analysis** (potential consequences)
3. **Urgency Level** (immediate vs monitoring needed)
4. **Recommended Actions** (specific next steps)

Focus on actionable insights for subnet operators and validators.`)

	return sb.String()
}

func investmentPrompt(a *models.InvestmentAnalysis) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Provide investment analysis for Bittensor subnet %d (%s):\n\n", a.SubnetID, a.SubnetName))
	sb.WriteString("**Investment Summary:**\n")
	sb.WriteString(fmt.Sprintf("- Recommendation: %s\n", a.Recommendation))
	sb.WriteString(fmt.Sprintf("- Confidence: %d%%\n", a.Confidence))
	sb.WriteString(fmt.Sprintf("- Investment Score: %d/100\n", a.CompositeScore))
	sb.WriteString(fmt.Sprintf("- Time Horizon: %s (%s)\n", a.TimeHorizon.Period, a.TimeHorizon.Duration))
	sb.WriteString(`
Provide concise analysis including:
1. **Investment Thesis** (why invest/not invest)
2. **Key Value Drivers** (what drives returns)
3. **Primary Risks** (main concerns)
4. **Entry Strategy** (timing and approach)

Focus on actionable insights for crypto investors.`)

	return sb.String()
}

func riskPrompt(a *models.RiskAssessment) string {
	concerns := func(c models.RiskCategory) string {
		if len(c.KeyConcerns) == 0 {
			return "None identified"
		}
		return strings.Join(c.KeyConcerns, ", ")
	}
	line := func(label string, score int, level models.RiskLevel) string {
		return fmt.Sprintf("- **%s**: %d/100 (%s)\n", label, score, level)
	}

	var sb strings.Builder
	sb.WriteString("Analyze the comprehensive risk assessment for this Bittensor subnet:\n\n")
	sb.WriteString("**Subnet Information:**\n")
	sb.WriteString(fmt.Sprintf("- Name: %s\n- Type: %s\n- ID: %d\n\n", a.SubnetName, a.SubnetType, a.SubnetID))
	sb.WriteString("**Risk Assessment Results:**\n")
	sb.WriteString(line("Composite Risk", a.Composite.RiskScore, a.Composite.Level))
	sb.WriteString(line("Technical Risk", a.Technical.RiskScore, a.Technical.Level))
	sb.WriteString(line("Governance Risk", a.Governance.RiskScore, a.Governance.Level))
	sb.WriteString(line("Economic Risk", a.Economic.RiskScore, a.Economic.Level))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("**Key Technical Concerns**: %s\n", concerns(a.Technical)))
	sb.WriteString(fmt.Sprintf("**Key Governance Concerns**: %s\n", concerns(a.Governance)))
	sb.WriteString(fmt.Sprintf("**Key Economic Concerns**: %s\n", concerns(a.Economic)))
	sb.WriteString(`
Provide a concise risk analysis including:
1. **Overall Risk Assessment** (2-3 sentences)
2. **Primary Risk Drivers** (top 2-3 factors)
3. **Risk Outlook** (short-term and medium-term)
4. **Priority Actions** (most important mitigation steps)

Focus on actionable insights for validators and investors.`)

	return sb.String()
}

// Templated texts used whenever the LLM is unavailable.

func anomalyFallback(r *models.AnomalyReport) string {
	score := r.Summary.AnomalyScore
	switch {
	case score >= 70:
		return fmt.Sprintf("High anomaly activity detected in %s. Multiple metrics showing significant deviations requiring immediate attention.", r.SubnetName)
	case score >= 40:
		return fmt.Sprintf("Moderate anomaly activity in %s. Several metrics warrant monitoring and investigation.", r.SubnetName)
	case score > 0:
		return fmt.Sprintf("Low-level anomalies detected in %s. Routine monitoring recommended.", r.SubnetName)
	default:
		return fmt.Sprintf("No significant anomalies detected in %s. Subnet operating within normal parameters.", r.SubnetName)
	}
}

func investmentFallback(a *models.InvestmentAnalysis) string {
	switch a.Recommendation {
	case models.StrongBuy, models.Buy:
		return fmt.Sprintf("%s presents a compelling investment opportunity with strong fundamentals and favorable risk-reward profile. Score of %d/100 indicates solid upside potential.", a.SubnetName, a.CompositeScore)
	case models.Hold:
		return fmt.Sprintf("%s shows mixed signals with moderate investment potential. Score of %d/100 suggests a balanced approach with careful monitoring.", a.SubnetName, a.CompositeScore)
	default:
		return fmt.Sprintf("%s faces significant challenges with limited investment appeal. Score of %d/100 indicates potential downside risks outweigh opportunities.", a.SubnetName, a.CompositeScore)
	}
}

func riskFallback(a *models.RiskAssessment) string {
	score := a.Composite.RiskScore
	switch a.Composite.Level {
	case models.RiskLow:
		return fmt.Sprintf("%s demonstrates strong risk management with a composite score of %d/100. The subnet shows solid fundamentals across technical, governance, and economic dimensions.", a.SubnetName, score)
	case models.RiskModerate:
		return fmt.Sprintf("%s presents moderate risk with areas for improvement. Risk score of %d/100 indicates manageable concerns that should be monitored.", a.SubnetName, score)
	case models.RiskHigh:
		return fmt.Sprintf("%s shows elevated risk levels requiring attention. Score of %d/100 suggests significant concerns across multiple risk categories.", a.SubnetName, score)
	default:
		return fmt.Sprintf("%s presents critical risk levels requiring immediate action. Score of %d/100 indicates urgent need for risk mitigation measures.", a.SubnetName, score)
	}
}
