package risk

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/Alias1177/SubnetScope/models"
)

// Category weights in percent
const (
	TechnicalWeight  = 35
	GovernanceWeight = 25
	EconomicWeight   = 40
)

// Assessor scores technical, governance and economic risk of a subnet
type Assessor struct {
	metadata models.MetadataProvider
	logger   zerolog.Logger
}

// NewAssessor creates a risk assessor
func NewAssessor(metadata models.MetadataProvider) *Assessor {
	return &Assessor{
		metadata: metadata,
		logger:   log.With().Str("component", "risk_assessor").Logger(),
	}
}

type assessment struct {
	meta    models.SubnetMetadata
	current models.MetricSet
	history *models.HistoricalData
	market  models.MarketContext
}

// factor is one weighted reading. Quality readings are inverted into risk.
type factor struct {
	name    string
	weight  float64
	value   int
	quality bool
}

func (f factor) risk() int {
	if f.quality {
		return 100 - f.value
	}
	return f.value
}

// Assess builds the full risk assessment. The result is deterministic for
// the same inputs; only a cancelled context makes it fail.
func (a *Assessor) Assess(ctx context.Context, subnetID int, current models.MetricSet, history *models.HistoricalData, market models.MarketContext) (*models.RiskAssessment, error) {
	in := assessment{
		meta:    a.metadata.Lookup(subnetID),
		current: current,
		history: history,
		market:  market,
	}

	var technical, governance, economic models.RiskCategory
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		technical = in.technical()
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		governance = in.governance()
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		economic = in.economic()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("risk assessment for subnet %d: %w", subnetID, err)
	}

	composite := Composite(technical, governance, economic)

	a.logger.Info().
		Int("subnet_id", subnetID).
		Int("risk_score", composite.RiskScore).
		Str("risk_level", string(composite.Level)).
		Msg("Risk assessment complete")

	return &models.RiskAssessment{
		SubnetID:   subnetID,
		SubnetName: in.meta.Name,
		SubnetType: in.meta.Type,
		Technical:  technical,
		Governance: governance,
		Economic:   economic,
		Composite:  composite,
		Confidence: Confidence(technical.RiskScore, governance.RiskScore, economic.RiskScore),
	}, nil
}

// Composite weights the three category scores.
func Composite(technical, governance, economic models.RiskCategory) models.CompositeRisk {
	weighted := func(c models.RiskCategory) float64 {
		return float64(c.RiskScore*c.Weight) / 100
	}
	score := int(math.Round(weighted(technical) + weighted(governance) + weighted(economic)))

	return models.CompositeRisk{
		RiskScore: score,
		Level:     models.RiskLevelFor(score),
		Breakdown: map[string]int{
			technical.Category:  technical.RiskScore,
			governance.Category: governance.RiskScore,
			economic.Category:   economic.RiskScore,
		},
		Contribution: map[string]int{
			technical.Category:  int(math.Round(weighted(technical))),
			governance.Category: int(math.Round(weighted(governance))),
			economic.Category:   int(math.Round(weighted(economic))),
		},
	}
}

// Confidence drops as the category scores disagree.
func Confidence(scores ...int) int {
	values := make([]float64, len(scores))
	for i, s := range scores {
		values[i] = float64(s)
	}
	_, variance := stat.PopMeanVariance(values, nil)
	return int(math.Round(85 - math.Min(20, variance/5)))
}

func category(name string, weight int, factors []factor, concerns, mitigations []string) models.RiskCategory {
	var score float64
	readings := make(map[string]int, len(factors))
	for _, f := range factors {
		r := f.risk()
		readings[f.name] = r
		score += float64(r) * f.weight
	}
	rounded := int(math.Round(score))

	if concerns == nil {
		concerns = []string{}
	}
	if mitigations == nil {
		mitigations = []string{}
	}

	return models.RiskCategory{
		Category:    name,
		RiskScore:   rounded,
		Level:       models.RiskLevelFor(rounded),
		Weight:      weight,
		Factors:     readings,
		KeyConcerns: concerns,
		Mitigations: mitigations,
	}
}

func byType(subnetType string, table map[string]int, fallback int) int {
	if v, ok := table[subnetType]; ok {
		return v
	}
	return fallback
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func (in assessment) technical() models.RiskCategory {
	id, typ, repo := in.meta.ID, in.meta.Type, in.meta.HasRepository()

	codeQuality := byType(typ, map[string]int{"inference": 75, "training": 70, "data": 80, "storage": 85, "compute": 72}, 70)
	testCoverage := byType(typ, map[string]int{"inference": 60, "training": 55, "data": 70, "storage": 75, "compute": 58}, 60)
	if repo {
		codeQuality += 10
		testCoverage += 15
	} else {
		codeQuality -= 15
		testCoverage -= 10
	}
	codeQuality = clamp(codeQuality, 20, 100)
	testCoverage = clamp(testCoverage, 30, 90)

	security := byType(typ, map[string]int{"inference": 70, "training": 65, "data": 85, "storage": 90, "compute": 68}, 70)
	security = clamp(int(math.Round(float64(security)+math.Max(0, 15-float64(id)/8))), 0, 100)

	architecture := byType(typ, map[string]int{"inference": 80, "training": 75, "data": 70, "storage": 85, "compute": 78}, 75)
	switch {
	case id <= 20:
		architecture += 10
	case id <= 50:
		architecture += 5
	}

	updates := 80
	if id <= 30 {
		updates += 10
	}

	var concerns, mitigations []string
	if security < 60 {
		concerns = append(concerns, "Security vulnerabilities detected")
		mitigations = append(mitigations, "Implement security audit and penetration testing")
	}
	if codeQuality < 60 {
		concerns = append(concerns, "Code quality issues")
		mitigations = append(mitigations, "Establish code review processes and quality standards")
	}
	if testCoverage < 50 {
		concerns = append(concerns, "Insufficient test coverage")
		mitigations = append(mitigations, "Increase automated test coverage")
	}

	return category("technical", TechnicalWeight, []factor{
		{name: "code_quality", weight: 0.25, value: codeQuality, quality: true},
		{name: "security_posture", weight: 0.30, value: security, quality: true},
		{name: "architecture_maturity", weight: 0.20, value: architecture, quality: true},
		{name: "update_frequency", weight: 0.15, value: updates, quality: true},
		{name: "test_coverage", weight: 0.10, value: testCoverage, quality: true},
	}, concerns, mitigations)
}

func (in assessment) governance() models.RiskCategory {
	id, typ := in.meta.ID, in.meta.Type

	var decentralization int
	switch validators := in.current.ValueOrDefault(models.ValidatorCount); {
	case validators >= 200:
		decentralization = 85
	case validators >= 150:
		decentralization = 75
	case validators >= 100:
		decentralization = 65
	case validators >= 50:
		decentralization = 45
	default:
		decentralization = 25
	}

	voting := clamp(int(math.Round(in.current.ValueOrDefault(models.NetworkParticipation))), 0, 100)

	transparency := 40
	if in.meta.HasRepository() {
		transparency = 80
	}
	transparency += byType(typ, map[string]int{"inference": 5, "training": 0, "data": 10, "storage": 8, "compute": 3}, 0)
	transparency = min(100, transparency)

	community := 60
	switch {
	case id <= 10:
		community += 15
	case id <= 30:
		community += 8
	}

	evolution := 60
	switch {
	case id <= 20:
		evolution = 80
	case id <= 50:
		evolution = 70
	}

	var concerns, mitigations []string
	if decentralization < 60 {
		concerns = append(concerns, "Centralization risk")
		mitigations = append(mitigations, "Encourage more diverse validator participation")
	}
	if voting < 60 {
		concerns = append(concerns, "Low voting participation")
	}
	if transparency < 60 {
		concerns = append(concerns, "Limited transparency")
		mitigations = append(mitigations, "Improve documentation and communication")
	}
	if community < 50 {
		concerns = append(concerns, "Weak community engagement")
		mitigations = append(mitigations, "Establish community governance mechanisms")
	}

	return category("governance", GovernanceWeight, []factor{
		{name: "decentralization_level", weight: 0.30, value: decentralization, quality: true},
		{name: "voting_participation", weight: 0.25, value: voting, quality: true},
		{name: "transparency_score", weight: 0.20, value: transparency, quality: true},
		{name: "community_engagement", weight: 0.15, value: community, quality: true},
		{name: "governance_evolution", weight: 0.10, value: evolution, quality: true},
	}, concerns, mitigations)
}

func (in assessment) economic() models.RiskCategory {
	id, typ := in.meta.ID, in.meta.Type

	var sustainability int
	switch y := in.current.ValueOrDefault(models.CurrentYield); {
	case y >= 8 && y <= 18:
		sustainability = 85
	case y >= 5 && y <= 25:
		sustainability = 70
	case y >= 3 && y <= 30:
		sustainability = 55
	default:
		sustainability = 35
	}
	if yieldVolatility(in.history) > 0.3 {
		sustainability -= 15
	}
	sustainability = max(20, sustainability)

	tokenomics := byType(typ, map[string]int{"inference": 80, "training": 70, "data": 75, "storage": 85, "compute": 72}, 70)
	if id <= 30 {
		tokenomics += 8
	}

	exposure := 60
	switch in.market.Sentiment {
	case models.SentimentBull:
		exposure -= 15
	case models.SentimentBear:
		exposure += 20
	}
	if in.market.Competition == "High" {
		exposure += 10
	}
	exposure = clamp(exposure, 25, 95)

	var liquidity int
	switch stake := in.current.ValueOrDefault(models.TotalStake); {
	case stake >= 100_000_000:
		liquidity = 25
	case stake >= 50_000_000:
		liquidity = 45
	case stake >= 25_000_000:
		liquidity = 65
	default:
		liquidity = 80
	}
	if id <= 20 {
		liquidity -= 10
	}

	viability := int(math.Round(in.current.ValueOrDefault(models.ActivityScore) * 0.8))
	viability += byType(typ, map[string]int{"inference": 10, "training": 5, "data": 8, "storage": 12, "compute": 7}, 5)
	viability = clamp(viability, 30, 100)

	var concerns, mitigations []string
	if sustainability < 60 {
		concerns = append(concerns, "Yield sustainability concerns")
		mitigations = append(mitigations, "Review and optimize tokenomic parameters")
	}
	if exposure > 70 {
		concerns = append(concerns, "High market exposure")
		mitigations = append(mitigations, "Diversify revenue streams and reduce market dependency")
	}
	if liquidity > 70 {
		concerns = append(concerns, "Liquidity risk")
		mitigations = append(mitigations, "Improve liquidity provision mechanisms")
	}
	if viability < 60 {
		concerns = append(concerns, "Economic model viability questions")
	}

	return category("economic", EconomicWeight, []factor{
		{name: "yield_sustainability", weight: 0.35, value: sustainability, quality: true},
		{name: "tokenomic_model", weight: 0.25, value: tokenomics, quality: true},
		{name: "market_exposure", weight: 0.20, value: exposure},
		{name: "liquidity_risk", weight: 0.10, value: liquidity},
		{name: "economic_model_viability", weight: 0.10, value: viability, quality: true},
	}, concerns, mitigations)
}

// yieldVolatility is the coefficient of variation of historical yields
func yieldVolatility(h *models.HistoricalData) float64 {
	yields := h.Values(models.CurrentYield)
	if len(yields) < 2 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(yields, nil)
	if mean == 0 {
		return 0
	}
	return std / math.Abs(mean)
}
