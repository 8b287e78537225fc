package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// SeverityThresholds are the percentage-deviation lower bounds of each
// severity above low. Anything past percentage_threshold is at least low.
type SeverityThresholds struct {
	Moderate float64 `yaml:"moderate"`
	High     float64 `yaml:"high"`
	Critical float64 `yaml:"critical"`
}

// ConfidenceSettings drive the report level detection confidence
type ConfidenceSettings struct {
	Base                  int `yaml:"base"`
	ShortHistory          int `yaml:"short_history"`
	ShortHistoryPenalty   int `yaml:"short_history_penalty"`
	LowSeverityPenalty    int `yaml:"low_severity_penalty"`
	LowSeverityPenaltyCap int `yaml:"low_severity_penalty_cap"`
	Floor                 int `yaml:"floor"`
}

// ValidatorSettings configure the validator count heuristic
type ValidatorSettings struct {
	Window          int     `yaml:"window"`
	ChangeThreshold float64 `yaml:"change_threshold"`
	HighThreshold   float64 `yaml:"high_threshold"`
}

// PriceSettings configure the price volatility check
type PriceSettings struct {
	VolatilityThreshold float64 `yaml:"volatility_threshold"`
	HighThreshold       float64 `yaml:"high_threshold"`
}

// CorrelationSettings configure the correlation break check
type CorrelationSettings struct {
	Window         int     `yaml:"window"`
	BreakThreshold float64 `yaml:"break_threshold"`
}

// CyclicalSettings configure the cyclical break check
type CyclicalSettings struct {
	MinSamples         int     `yaml:"min_samples"`
	Holdout            int     `yaml:"holdout"`
	MinPower           float64 `yaml:"min_power"`
	DeviationThreshold float64 `yaml:"deviation_threshold"`
}

// AlertSettings decide when reports raise alerts
type AlertSettings struct {
	HighScore     int `yaml:"high_score"`
	SecurityCount int `yaml:"security_count"`
}

// Detection holds every anomaly detection parameter
type Detection struct {
	StatisticalThreshold float64             `yaml:"statistical_threshold"`
	PercentageThreshold  float64             `yaml:"percentage_threshold"`
	RollingWindow        int                 `yaml:"rolling_window"`
	MinDataPoints        int                 `yaml:"min_data_points"`
	Severity             SeverityThresholds  `yaml:"severity"`
	Confidence           ConfidenceSettings  `yaml:"confidence"`
	Validator            ValidatorSettings   `yaml:"validator"`
	Price                PriceSettings       `yaml:"price"`
	Correlation          CorrelationSettings `yaml:"correlation"`
	Cyclical             CyclicalSettings    `yaml:"cyclical"`
	Alerts               AlertSettings       `yaml:"alerts"`
}

// FactorWeights are the composite investment score weights
type FactorWeights struct {
	Performance  float64 `yaml:"performance"`
	Risk         float64 `yaml:"risk"`
	Market       float64 `yaml:"market"`
	Fundamentals float64 `yaml:"fundamentals"`
	Competitive  float64 `yaml:"competitive"`
}

// Sum of all weights.
func (w FactorWeights) Sum() float64 {
	return w.Performance + w.Risk + w.Market + w.Fundamentals + w.Competitive
}

// RecommendationBands are the inclusive lower bounds of each recommendation
type RecommendationBands struct {
	StrongBuy int `yaml:"strong_buy"`
	Buy       int `yaml:"buy"`
	Hold      int `yaml:"hold"`
	Sell      int `yaml:"sell"`
}

// Strategy holds the investment scorer parameters
type Strategy struct {
	Weights        FactorWeights       `yaml:"weights"`
	Recommendation RecommendationBands `yaml:"recommendation"`
}

// Thresholds is the whole tunable parameter set
type Thresholds struct {
	Detection Detection `yaml:"detection"`
	Strategy  Strategy  `yaml:"strategy"`
}

// Default returns the built-in parameters.
func Default() *Thresholds {
	var t Thresholds
	if err := yaml.Unmarshal(defaultsYAML, &t); err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return &t
}

// Load reads an override file on top of the defaults.
// An empty path returns the defaults.
func Load(path string) (*Thresholds, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading thresholds file: %w", err)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing thresholds file %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("thresholds file %s: %w", path, err)
	}
	return t, nil
}

// Validate rejects parameter sets the detectors cannot work with.
func (t *Thresholds) Validate() error {
	d := t.Detection
	if d.StatisticalThreshold <= 0 || d.PercentageThreshold <= 0 {
		return errors.New("detection thresholds must be positive")
	}
	if d.MinDataPoints < 2 {
		return errors.New("min_data_points must be at least 2")
	}
	if d.RollingWindow != 0 && d.RollingWindow < d.MinDataPoints {
		return errors.New("rolling_window must not be smaller than min_data_points")
	}
	s := d.Severity
	if !(d.PercentageThreshold < s.Moderate && s.Moderate < s.High && s.High < s.Critical) {
		return errors.New("severity thresholds must be strictly increasing")
	}
	if d.Cyclical.Holdout < 1 || d.Cyclical.MinSamples <= d.Cyclical.Holdout+2 {
		return errors.New("cyclical min_samples must exceed holdout by at least 3")
	}
	if d.Correlation.Window < 3 {
		return errors.New("correlation window must be at least 3")
	}

	if math.Abs(t.Strategy.Weights.Sum()-1) > 1e-6 {
		return fmt.Errorf("strategy weights must sum to 1, got %.4f", t.Strategy.Weights.Sum())
	}
	r := t.Strategy.Recommendation
	if !(r.Sell < r.Hold && r.Hold < r.Buy && r.Buy < r.StrongBuy) {
		return errors.New("recommendation bands must be strictly increasing")
	}
	return nil
}
