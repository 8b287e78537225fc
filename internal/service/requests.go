package service

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Alias1177/SubnetScope/internal/metadata"
	"github.com/Alias1177/SubnetScope/models"
)

// HistoryPoint is one historical observation as sent by callers
type HistoryPoint struct {
	Timestamp time.Time          `json:"timestamp" validate:"required"`
	Metrics   map[string]float64 `json:"metrics" validate:"required"`
}

// AnomalyRequest asks for an anomaly report
type AnomalyRequest struct {
	SubnetID int                `json:"subnet_id" validate:"gte=0,lte=1024"`
	Metrics  map[string]float64 `json:"metrics"`
	History  []HistoryPoint     `json:"historical_data" validate:"omitempty,dive"`
}

// RiskRequest asks for a risk assessment
type RiskRequest struct {
	SubnetID int                  `json:"subnet_id" validate:"gte=0,lte=1024"`
	Metrics  map[string]float64   `json:"metrics"`
	History  []HistoryPoint       `json:"historical_data" validate:"omitempty,dive"`
	Market   models.MarketContext `json:"market_context"`
}

// InvestmentRequest asks for a recommendation. Risk is assessed on the fly
// when the caller does not provide one.
type InvestmentRequest struct {
	SubnetID int                    `json:"subnet_id" validate:"gte=0,lte=1024"`
	Metrics  map[string]float64     `json:"metrics"`
	History  []HistoryPoint         `json:"historical_data" validate:"omitempty,dive"`
	Forecast *models.Forecast       `json:"forecast,omitempty"`
	Risk     *models.RiskAssessment `json:"risk_assessment,omitempty"`
	Market   models.MarketContext   `json:"market_context"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// toValidationError converts the first validator failure into the typed error.
func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &models.ValidationError{Message: err.Error()}
	}

	fe := fieldErrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	var msg string
	switch fe.Tag() {
	case "gte", "lte":
		msg = fmt.Sprintf("must be between %d and %d", metadata.MinSubnetID, metadata.MaxSubnetID)
		if fe.Field() != "subnet_id" {
			msg = fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
		}
	case "required":
		msg = "is required"
	case "oneof":
		msg = fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		msg = fmt.Sprintf("failed %s validation", fe.Tag())
	}
	return &models.ValidationError{Field: field, Message: msg}
}

// metricParser applies the strict or lenient metric policy
type metricParser struct {
	strict bool
}

func (p metricParser) parse(field string, raw map[string]float64) (models.MetricSet, []string, error) {
	set, unknown := models.ParseMetricSet(raw)
	if len(unknown) > 0 && p.strict {
		return nil, nil, &models.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("unknown metrics: %s", strings.Join(unknown, ", ")),
		}
	}
	for m, v := range set {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, &models.ValidationError{Field: field, Message: fmt.Sprintf("%s is not a finite number", m)}
		}
	}
	return set, unknown, nil
}

// forecast checks the forecast's current metrics like request metrics. The
// token price feeds the price target and must be positive.
func (p metricParser) forecast(f *models.Forecast) (*models.Forecast, []string, error) {
	if f == nil || len(f.CurrentMetrics) == 0 {
		return f, nil, nil
	}

	const field = "forecast.current_metrics"
	raw := make(map[string]float64, len(f.CurrentMetrics))
	for m, v := range f.CurrentMetrics {
		raw[string(m)] = v
	}
	set, unknown, err := p.parse(field, raw)
	if err != nil {
		return nil, nil, err
	}
	if price, ok := set.Value(models.TokenPrice); ok && price <= 0 {
		return nil, nil, &models.ValidationError{Field: field, Message: "token_price must be positive"}
	}

	out := *f
	out.CurrentMetrics = set
	return &out, unknown, nil
}

// history converts caller points to the ordered series used by the engines.
func (p metricParser) history(points []HistoryPoint) (*models.HistoricalData, []string, error) {
	if len(points) == 0 {
		return nil, nil, nil
	}

	h := &models.HistoricalData{DataPoints: make([]models.DataPoint, 0, len(points))}
	var dropped []string
	for i, pt := range points {
		set, unknown, err := p.parse(fmt.Sprintf("historical_data[%d].metrics", i), pt.Metrics)
		if err != nil {
			return nil, nil, err
		}
		dropped = append(dropped, unknown...)
		h.DataPoints = append(h.DataPoints, models.DataPoint{Timestamp: pt.Timestamp, Metrics: set})
	}
	sort.SliceStable(h.DataPoints, func(i, j int) bool {
		return h.DataPoints[i].Timestamp.Before(h.DataPoints[j].Timestamp)
	})
	return h, dropped, nil
}
