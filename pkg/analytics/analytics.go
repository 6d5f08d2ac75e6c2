// Package analytics derives per-sample movement figures and history summaries.
package analytics

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

const (
	trendBand        = 0.5
	highVolatility   = 2.0
	mediumVolatility = 1.0
)

// Movement is the change of a sample relative to the previous cached value
type Movement struct {
	Change        float64
	ChangePercent float64
	Trend         models.Trend
	Volatility    models.Volatility
}

// Neutral is the movement of a sample with no usable predecessor.
var Neutral = Movement{Trend: models.TrendNeutral, Volatility: models.VolatilityLow}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Derive compares price with previous. A nil previous, or one without a
// positive finite price, yields Neutral.
func Derive(price float64, previous *models.ProcessedSample) Movement {
	if previous == nil || !(previous.Price > 0) || math.IsInf(previous.Price, 0) {
		return Neutral
	}
	cur := decimal.NewFromFloat(price)
	prev := decimal.NewFromFloat(previous.Price)
	change := cur.Sub(prev)
	pct := change.Mul(decimal.NewFromInt(100)).Div(prev).Round(2).InexactFloat64()

	return Movement{
		Change:        change.Round(2).InexactFloat64(),
		ChangePercent: pct,
		Trend:         ClassifyTrend(pct),
		Volatility:    ClassifyVolatility(pct),
	}
}

func ClassifyTrend(changePercent float64) models.Trend {
	switch {
	case changePercent > trendBand:
		return models.TrendUp
	case changePercent < -trendBand:
		return models.TrendDown
	default:
		return models.TrendNeutral
	}
}

func ClassifyVolatility(changePercent float64) models.Volatility {
	abs := math.Abs(changePercent)
	switch {
	case abs > highVolatility:
		return models.VolatilityHigh
	case abs > mediumVolatility:
		return models.VolatilityMedium
	default:
		return models.VolatilityLow
	}
}

// IsBreach reports a sudden move strictly beyond threshold in either direction.
func IsBreach(changePercent, threshold float64) bool {
	return math.Abs(changePercent) > threshold
}

// BreachType names the direction of a breach.
func BreachType(changePercent float64) string {
	if changePercent > 0 {
		return models.AlertSuddenRise
	}
	return models.AlertSuddenDrop
}
