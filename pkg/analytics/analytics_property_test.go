package analytics_test

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/shubham-shewale/stock-alerts/pkg/analytics"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

func properties(t *testing.T) *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	return gopter.NewProperties(parameters)
}

// Property: change_percent is 100*(p - q)/q rounded to two decimals.
func TestProperty_ChangePercentMatchesFormula(t *testing.T) {
	props := properties(t)

	props.Property("change percent is the rounded relative move", prop.ForAll(
		func(current, previous float64) bool {
			m := analytics.Derive(current, prev(previous))
			exact := 100 * (current - previous) / previous
			return math.Abs(m.ChangePercent-exact) <= 0.005+1e-9
		},
		gen.Float64Range(0.01, 10000),
		gen.Float64Range(0.01, 10000),
	))

	props.TestingRun(t)
}

// Property: trend and volatility are pure functions of change_percent.
func TestProperty_ClassificationFollowsChangePercent(t *testing.T) {
	props := properties(t)

	props.Property("trend and volatility agree with thresholds", prop.ForAll(
		func(current, previous float64) bool {
			m := analytics.Derive(current, prev(previous))
			cp := m.ChangePercent

			switch {
			case cp > 0.5 && m.Trend != models.TrendUp:
				return false
			case cp < -0.5 && m.Trend != models.TrendDown:
				return false
			case math.Abs(cp) <= 0.5 && m.Trend != models.TrendNeutral:
				return false
			}

			switch {
			case math.Abs(cp) > 2:
				return m.Volatility == models.VolatilityHigh
			case math.Abs(cp) > 1:
				return m.Volatility == models.VolatilityMedium
			default:
				return m.Volatility == models.VolatilityLow
			}
		},
		gen.Float64Range(1, 500),
		gen.Float64Range(1, 500),
	))

	props.TestingRun(t)
}

// Property: a breach is reported exactly when |change_percent| exceeds the threshold,
// and never without a previous value.
func TestProperty_BreachIffBeyondThreshold(t *testing.T) {
	props := properties(t)

	props.Property("breach iff |cp| > threshold", prop.ForAll(
		func(current, previous, threshold float64) bool {
			m := analytics.Derive(current, prev(previous))
			return analytics.IsBreach(m.ChangePercent, threshold) == (math.Abs(m.ChangePercent) > threshold)
		},
		gen.Float64Range(1, 500),
		gen.Float64Range(1, 500),
		gen.Float64Range(0.1, 10),
	))

	props.Property("no breach on cold start", prop.ForAll(
		func(current, threshold float64) bool {
			m := analytics.Derive(current, nil)
			return !analytics.IsBreach(m.ChangePercent, threshold) && m.Change == 0
		},
		gen.Float64Range(0.01, 10000),
		gen.Float64Range(0, 10),
	))

	props.TestingRun(t)
}
