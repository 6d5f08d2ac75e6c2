package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
)

// Accepted timestamp layouts. Offset-less values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, errs.Invalid("timestamp", "unrecognized format %q", raw)
}

type sampleWire struct {
	Symbol        *string        `json:"symbol"`
	Price         *float64       `json:"price"`
	Volume        optionalNumber `json:"volume"`
	Open          optionalNumber `json:"open"`
	High          optionalNumber `json:"high"`
	Low           optionalNumber `json:"low"`
	PreviousClose optionalNumber `json:"previous_close"`
	Timestamp     *string        `json:"timestamp"`
	Source        *string        `json:"source"`
}

// optionalNumber accepts a JSON number or a numeric string and never fails
// the enclosing document. A present but unusable value is marked bad.
type optionalNumber struct {
	val float64
	set bool
	bad bool
}

func (n *optionalNumber) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !finite(v) {
		n.bad = true
		return nil
	}
	n.val, n.set = v, true
	return nil
}

func (n optionalNumber) float(field string, skipped *[]string) *float64 {
	if n.bad {
		*skipped = append(*skipped, field)
		return nil
	}
	if !n.set {
		return nil
	}
	v := n.val
	return &v
}

// integer accepts integral values such as 1234567.0 or 1.5e6.
func (n optionalNumber) integer(field string, skipped *[]string) *int64 {
	if n.set && (n.val != math.Trunc(n.val) || math.Abs(n.val) > 1<<53) {
		n.bad = true
	}
	if n.bad {
		*skipped = append(*skipped, field)
		return nil
	}
	if !n.set {
		return nil
	}
	v := int64(n.val)
	return &v
}

func (w sampleWire) sample() (Sample, []string, error) {
	var s Sample
	if w.Symbol != nil {
		s.Symbol = NormalizeSymbol(*w.Symbol)
	}
	if w.Price != nil {
		s.Price = *w.Price
	}
	if w.Timestamp != nil {
		ts, err := ParseTimestamp(*w.Timestamp)
		if err != nil {
			return Sample{}, nil, err
		}
		s.Timestamp = ts
	}
	if w.Source != nil {
		s.Source = *w.Source
	}

	var skipped []string
	s.Volume = w.Volume.integer("volume", &skipped)
	s.Open = w.Open.float("open", &skipped)
	s.High = w.High.float("high", &skipped)
	s.Low = w.Low.float("low", &skipped)
	s.PreviousClose = w.PreviousClose.float("previous_close", &skipped)
	return s, skipped, nil
}

// DecodeSample parses a raw-sample payload. It checks shape only; call Validate for semantics.
func DecodeSample(data []byte) (Sample, error) {
	s, _, err := DecodeSampleSkipping(data)
	return s, err
}

// DecodeSampleSkipping is DecodeSample that also names the optional fields
// that were present but unusable and were dropped from the sample.
// Only the required fields can fail the decode.
func DecodeSampleSkipping(data []byte) (Sample, []string, error) {
	var w sampleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Sample{}, nil, &errs.ValidationError{Message: "malformed sample: " + err.Error()}
	}
	return w.sample()
}

type processedWire struct {
	sampleWire
	Change        *float64 `json:"change"`
	ChangePercent *float64 `json:"change_percent"`
	Trend         *string  `json:"trend"`
	Volatility    *string  `json:"volatility"`
	ProcessedAt   *string  `json:"processed_at"`
}

// DecodeProcessedSample parses and validates a processed-sample payload.
func DecodeProcessedSample(data []byte) (ProcessedSample, error) {
	var w processedWire
	if err := json.Unmarshal(data, &w); err != nil {
		return ProcessedSample{}, &errs.ValidationError{Message: "malformed processed sample: " + err.Error()}
	}
	s, _, err := w.sample()
	if err != nil {
		return ProcessedSample{}, err
	}
	if err := s.Validate(); err != nil {
		return ProcessedSample{}, err
	}
	if w.ChangePercent == nil {
		return ProcessedSample{}, errs.Invalid("change_percent", "is required")
	}
	ps := ProcessedSample{Sample: s, ChangePercent: *w.ChangePercent, Trend: TrendNeutral, Volatility: VolatilityLow}
	if w.Change != nil {
		ps.Change = *w.Change
	}
	if w.Trend != nil {
		ps.Trend = Trend(*w.Trend)
	}
	if w.Volatility != nil {
		ps.Volatility = Volatility(*w.Volatility)
	}
	if w.ProcessedAt != nil {
		if ps.ProcessedAt, err = ParseTimestamp(*w.ProcessedAt); err != nil {
			return ProcessedSample{}, err
		}
	}
	return ps, nil
}

type triggerWire struct {
	EventID       *string  `json:"event_id"`
	Symbol        *string  `json:"symbol"`
	AlertType     *string  `json:"alert_type"`
	CurrentPrice  *float64 `json:"current_price"`
	PreviousPrice *float64 `json:"previous_price"`
	ChangePercent *float64 `json:"change_percent"`
	Threshold     *float64 `json:"threshold"`
	Timestamp     *string  `json:"timestamp"`
}

// DecodeAlertTrigger parses and validates an alert-trigger payload.
func DecodeAlertTrigger(data []byte) (AlertTrigger, error) {
	var w triggerWire
	if err := json.Unmarshal(data, &w); err != nil {
		return AlertTrigger{}, &errs.ValidationError{Message: "malformed alert trigger: " + err.Error()}
	}

	var t AlertTrigger
	if w.Symbol == nil || NormalizeSymbol(*w.Symbol) == "" {
		return AlertTrigger{}, errs.Invalid("symbol", "is required")
	}
	t.Symbol = NormalizeSymbol(*w.Symbol)

	if w.AlertType == nil || (*w.AlertType != AlertSuddenRise && *w.AlertType != AlertSuddenDrop) {
		return AlertTrigger{}, errs.Invalid("alert_type", "must be %s or %s", AlertSuddenRise, AlertSuddenDrop)
	}
	t.AlertType = *w.AlertType

	if w.ChangePercent == nil || !finite(*w.ChangePercent) {
		return AlertTrigger{}, errs.Invalid("change_percent", "is required")
	}
	t.ChangePercent = *w.ChangePercent

	if w.CurrentPrice == nil || !finite(*w.CurrentPrice) || *w.CurrentPrice <= 0 {
		return AlertTrigger{}, errs.Invalid("current_price", "must be a positive number")
	}
	t.CurrentPrice = *w.CurrentPrice

	if w.Timestamp == nil {
		return AlertTrigger{}, errs.Invalid("timestamp", "is required")
	}
	ts, err := ParseTimestamp(*w.Timestamp)
	if err != nil {
		return AlertTrigger{}, err
	}
	t.Timestamp = ts

	if w.EventID != nil {
		t.EventID = *w.EventID
	}
	if w.PreviousPrice != nil {
		t.PreviousPrice = *w.PreviousPrice
	}
	if w.Threshold != nil {
		t.Threshold = *w.Threshold
	}
	return t, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
