package analytics

import "github.com/shubham-shewale/stock-alerts/pkg/models"

const (
	DirectionUpward       = "UPWARD"
	DirectionDownward     = "DOWNWARD"
	DirectionStable       = "STABLE"
	DirectionInsufficient = "INSUFFICIENT_DATA"
)

type Summary struct {
	Symbol     string  `json:"symbol"`
	DataPoints int     `json:"data_points"`
	Average    float64 `json:"avg_price"`
	Min        float64 `json:"min_price"`
	Max        float64 `json:"max_price"`
	Range      float64 `json:"price_range"`
	Direction  string  `json:"trend_direction"`
}

// Summarize aggregates a newest-first history. The direction compares the
// average of the newer half against the older half with a 1% band.
func Summarize(symbol string, history []models.ProcessedSample) Summary {
	s := Summary{Symbol: symbol, DataPoints: len(history), Direction: DirectionInsufficient}
	if len(history) < 2 {
		return s
	}

	lo, hi := history[0].Price, history[0].Price
	var total float64
	for _, h := range history {
		total += h.Price
		lo = min(lo, h.Price)
		hi = max(hi, h.Price)
	}
	s.Average = Round2(total / float64(len(history)))
	s.Min = Round2(lo)
	s.Max = Round2(hi)
	s.Range = Round2(hi - lo)

	half := len(history) / 2
	recent := mean(history[:half])
	older := mean(history[half:])
	switch {
	case recent > older*1.01:
		s.Direction = DirectionUpward
	case recent < older*0.99:
		s.Direction = DirectionDownward
	default:
		s.Direction = DirectionStable
	}
	return s
}

func mean(xs []models.ProcessedSample) float64 {
	var total float64
	for _, x := range xs {
		total += x.Price
	}
	return total / float64(len(xs))
}
