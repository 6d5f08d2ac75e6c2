package models

import (
	"math"
	"strings"
	"time"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
)

// Sample is one observation of a symbol's market state
type Sample struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Volume        *int64    `json:"volume,omitempty"`
	Open          *float64  `json:"open,omitempty"`
	High          *float64  `json:"high,omitempty"`
	Low           *float64  `json:"low,omitempty"`
	PreviousClose *float64  `json:"previous_close,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source,omitempty"`
}

type Trend string

const (
	TrendUp      Trend = "UP"
	TrendDown    Trend = "DOWN"
	TrendNeutral Trend = "NEUTRAL"
)

type Volatility string

const (
	VolatilityLow    Volatility = "LOW"
	VolatilityMedium Volatility = "MEDIUM"
	VolatilityHigh   Volatility = "HIGH"
)

// ProcessedSample is a Sample enriched with analytics relative to the previous cached value
type ProcessedSample struct {
	Sample
	Change        float64    `json:"change"`
	ChangePercent float64    `json:"change_percent"`
	Trend         Trend      `json:"trend"`
	Volatility    Volatility `json:"volatility"`
	ProcessedAt   time.Time  `json:"processed_at"`
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Validate rejects samples the processor must never act on.
func (s Sample) Validate() error {
	if s.Symbol == "" {
		return errs.Invalid("symbol", "is required")
	}
	if math.IsNaN(s.Price) || math.IsInf(s.Price, 0) {
		return errs.Invalid("price", "must be finite")
	}
	if s.Price <= 0 {
		return errs.Invalid("price", "must be positive, got %v", s.Price)
	}
	if s.Timestamp.IsZero() {
		return errs.Invalid("timestamp", "is required")
	}
	return nil
}
