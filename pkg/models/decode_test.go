package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

func TestDecodeSample_AcceptsOptionalFields(t *testing.T) {
	payload := `{"symbol":" aapl ","price":150.25,"volume":1200,"open":149.5,"timestamp":"2024-03-01T14:30:00Z","source":"simulator","market_cap":1}`

	s, err := models.DecodeSample([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, 150.25, s.Price)
	require.NotNil(t, s.Volume)
	assert.Equal(t, int64(1200), *s.Volume)
	require.NotNil(t, s.Open)
	assert.Nil(t, s.High)
	assert.Equal(t, "simulator", s.Source)
	assert.True(t, s.Timestamp.Equal(time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)))
	assert.NoError(t, s.Validate())
}

func TestDecodeSample_NaiveTimestampIsUTC(t *testing.T) {
	s, err := models.DecodeSample([]byte(`{"symbol":"MSFT","price":1,"timestamp":"2024-03-01T14:30:00.123456"}`))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, s.Timestamp.Location())
	assert.Equal(t, 123456000, s.Timestamp.Nanosecond())
}

func TestDecodeSample_ShapeErrors(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"array":         `[1,2]`,
		"string price":  `{"symbol":"AAPL","price":"150","timestamp":"2024-03-01T14:30:00Z"}`,
		"bad timestamp": `{"symbol":"AAPL","price":150,"timestamp":"yesterday"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := models.DecodeSample([]byte(payload))
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestDecodeSample_OptionalNumberShapes(t *testing.T) {
	const head = `{"symbol":"AAPL","price":150.25,"timestamp":"2024-03-01T14:30:00Z",`
	tests := []struct {
		name       string
		fields     string
		wantVolume *int64
		wantOpen   *float64
		skipped    []string
	}{
		{"integral float volume", `"volume":1234567.0}`, ptr[int64](1234567), nil, nil},
		{"exponent volume", `"volume":1.5e6}`, ptr[int64](1500000), nil, nil},
		{"quoted volume", `"volume":"42"}`, ptr[int64](42), nil, nil},
		{"quoted open", `"open":"149.0"}`, nil, ptr(149.0), nil},
		{"null open", `"open":null}`, nil, nil, nil},
		{"fractional volume", `"volume":1.5}`, nil, nil, []string{"volume"}},
		{"word open", `"open":"n/a","volume":10}`, ptr[int64](10), nil, []string{"open"}},
		{"object high", `"high":{"v":1},"low":false}`, nil, nil, []string{"high", "low"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, skipped, err := models.DecodeSampleSkipping([]byte(head + tt.fields))
			require.NoError(t, err)
			assert.NoError(t, s.Validate())
			assert.Equal(t, tt.wantVolume, s.Volume)
			assert.Equal(t, tt.wantOpen, s.Open)
			assert.Equal(t, tt.skipped, skipped)
		})
	}
}

func TestDecodeSample_UnusableOptionalFieldKeepsSample(t *testing.T) {
	s, err := models.DecodeSample([]byte(`{"symbol":"AAPL","price":150.25,"volume":"lots","timestamp":"2024-03-01T14:30:00Z"}`))
	require.NoError(t, err)
	assert.Nil(t, s.Volume)
	assert.Equal(t, 150.25, s.Price)
}

func ptr[T any](v T) *T { return &v }

func TestSampleValidate(t *testing.T) {
	ts := time.Now()
	cases := map[string]models.Sample{
		"missing symbol":    {Price: 10, Timestamp: ts},
		"zero price":        {Symbol: "AAPL", Timestamp: ts},
		"negative price":    {Symbol: "AAPL", Price: -3, Timestamp: ts},
		"missing timestamp": {Symbol: "AAPL", Price: 10},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, errs.IsValidation(s.Validate()))
		})
	}
}

func TestDecodeProcessedSample(t *testing.T) {
	payload := `{"symbol":"TSLA","price":210,"timestamp":"2024-03-01T14:30:00Z","change":5,"change_percent":2.44,"trend":"UP","volatility":"HIGH","processed_at":"2024-03-01T14:30:01Z"}`
	ps, err := models.DecodeProcessedSample([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 2.44, ps.ChangePercent)
	assert.Equal(t, models.TrendUp, ps.Trend)
	assert.Equal(t, models.VolatilityHigh, ps.Volatility)

	_, err = models.DecodeProcessedSample([]byte(`{"symbol":"TSLA","price":210,"timestamp":"2024-03-01T14:30:00Z"}`))
	assert.True(t, errs.IsValidation(err), "change_percent is required")
}

func TestDecodeAlertTrigger(t *testing.T) {
	payload := `{"event_id":"e1","symbol":"NVDA","alert_type":"SUDDEN_DROP","current_price":98,"previous_price":100,"change_percent":-2,"threshold":1.5,"timestamp":"2024-03-01T14:30:00Z"}`
	tr, err := models.DecodeAlertTrigger([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "NVDA", tr.Symbol)
	assert.Equal(t, models.AlertSuddenDrop, tr.AlertType)
	assert.Equal(t, 1.5, tr.Threshold)

	bad := []string{
		`{"symbol":"NVDA","alert_type":"SIDEWAYS","current_price":98,"change_percent":-2,"timestamp":"2024-03-01T14:30:00Z"}`,
		`{"alert_type":"SUDDEN_DROP","current_price":98,"change_percent":-2,"timestamp":"2024-03-01T14:30:00Z"}`,
		`{"symbol":"NVDA","alert_type":"SUDDEN_DROP","current_price":98,"timestamp":"2024-03-01T14:30:00Z"}`,
		`{"symbol":"NVDA","alert_type":"SUDDEN_DROP","current_price":98,"change_percent":-2}`,
	}
	for _, payload := range bad {
		_, err := models.DecodeAlertTrigger([]byte(payload))
		assert.True(t, errs.IsValidation(err), payload)
	}
}

func TestAlertRuleValidate(t *testing.T) {
	ok := models.AlertRule{Symbol: "AAPL", RuleType: models.RulePriceAbove, ThresholdValue: 200}
	assert.NoError(t, ok.Validate())

	unknown := ok
	unknown.RuleType = "PRICE_SIDEWAYS"
	assert.True(t, errs.IsValidation(unknown.Validate()))

	noSymbol := ok
	noSymbol.Symbol = ""
	assert.True(t, errs.IsValidation(noSymbol.Validate()))
}
