package baseline

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Alias1177/SubnetScope/models"
)

// Compute derives a baseline from raw values. values must not be empty.
func Compute(values []float64) models.Baseline {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, std := stat.PopMeanStdDev(sorted, nil)

	return models.Baseline{
		Mean:   mean,
		Std:    std,
		Median: median(sorted),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		// Empirical quantile picks sorted[ceil(n*p)-1]
		Percentile25: stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Percentile75: stat.Quantile(0.75, stat.Empirical, sorted, nil),
		Samples:      len(sorted),
	}
}

// median of sorted values, averaging the two middle values for even n
func median(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
