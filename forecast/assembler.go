package forecast

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"summerberry-forecast/helpers"
	"summerberry-forecast/models"
	"summerberry-forecast/predictor"
)

// MaxFactors is the length cap of the ranked factor list
const MaxFactors = 5

var factorCorrelation = map[string]string{
	"Temperature":          models.CorrelationPositive,
	"Flower Abortion Rate": models.CorrelationNegative,
	"Irrigation Volume":    models.CorrelationPositive,
	"Humidity":             models.CorrelationPositive,
	"Solar Radiation":      models.CorrelationPositive,
}

// Correlation returns the direction for a factor name, positive when unknown
func Correlation(name string) string {
	if c, ok := factorCorrelation[name]; ok {
		return c
	}
	return models.CorrelationPositive
}

// Assemble turns raw model output into the response aggregate.
// Statistics use the raw values; only the per-day points are truncated and floored at zero.
func Assemble(values []float64, selectedDate string, importance predictor.Importance) *models.PredictionResult {
	anchor, err := helpers.ParseISODate(selectedDate)
	if err != nil {
		anchor = helpers.Today()
	}

	raw := make([]float64, len(values))
	points := make([]models.ForecastPoint, len(values))
	for i, v := range values {
		raw[i] = finite(v)
		points[i] = models.ForecastPoint{
			Day:   fmt.Sprintf("Day %d", i+1),
			Date:  anchor.AddDate(0, 0, i).Format(helpers.ShortDate),
			Value: sanitize(v),
		}
	}

	result := &models.PredictionResult{
		Predictions: points,
		StdDev:      "0.0",
		Factors:     rankFactors(importance),
	}

	if len(raw) == 0 {
		return result
	}

	sum := floats.Sum(raw)
	mean, std := stat.PopMeanStdDev(raw, nil)

	result.Total = truncate(sum)
	result.Average = truncate(mean)
	result.StdDev = fmt.Sprintf("%.1f", std)
	return result
}

// finite replaces NaN and infinities with zero
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// truncate converts toward zero, saturating at the int32 range
func truncate(v float64) int {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int(v)
}

func sanitize(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if math.IsInf(v, 1) || v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

func rankFactors(importance predictor.Importance) []models.InfluencingFactor {
	factors := make([]models.InfluencingFactor, 0, len(importance))
	for _, score := range importance {
		factors = append(factors, models.InfluencingFactor{
			Name:        score.Name,
			Importance:  toPercent(score.Score),
			Correlation: Correlation(score.Name),
		})
	}

	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Importance > factors[j].Importance
	})

	if len(factors) > MaxFactors {
		factors = factors[:MaxFactors]
	}
	return factors
}

func toPercent(raw float64) int {
	if math.IsNaN(raw) {
		return 0
	}
	pct := math.Round(raw * 100)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}
