package rules_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/cmd/alerter/internal/rules"
	"github.com/shubham-shewale/stock-alerts/pkg/errs"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) ActiveRules(ctx context.Context, symbol string) ([]models.AlertRule, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AlertRule), args.Error(1)
}

func processed(symbol string, price, changePercent float64) models.ProcessedSample {
	return models.ProcessedSample{Sample: models.Sample{Symbol: symbol, Price: price}, ChangePercent: changePercent}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		rule models.AlertRule
		ps   models.ProcessedSample
		want bool
	}{
		{"above crosses", models.AlertRule{RuleType: models.RulePriceAbove, ThresholdValue: 200}, processed("AAPL", 201, 0), true},
		{"above equal", models.AlertRule{RuleType: models.RulePriceAbove, ThresholdValue: 200}, processed("AAPL", 200, 0), false},
		{"below crosses", models.AlertRule{RuleType: models.RulePriceBelow, ThresholdValue: 180}, processed("TSLA", 179.99, 0), true},
		{"below equal", models.AlertRule{RuleType: models.RulePriceBelow, ThresholdValue: 180}, processed("TSLA", 180, 0), false},
		{"sudden change negative", models.AlertRule{RuleType: models.RuleSuddenChange, ThresholdValue: 2}, processed("NVDA", 90, -2.5), true},
		{"sudden change small", models.AlertRule{RuleType: models.RuleSuddenChange, ThresholdValue: 2}, processed("NVDA", 90, 2), false},
		{"unknown type", models.AlertRule{RuleType: "PRICE_SIDEWAYS", ThresholdValue: 0}, processed("NVDA", 90, 50), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.Matches(tt.rule, tt.ps))
		})
	}
}

func TestEngine_EvaluateKeepsStoreOrder(t *testing.T) {
	source := new(MockSource)
	active := []models.AlertRule{
		{ID: 1, UserID: 7, Symbol: "AAPL", RuleType: models.RulePriceAbove, ThresholdValue: 150},
		{ID: 2, UserID: 8, Symbol: "AAPL", RuleType: models.RulePriceBelow, ThresholdValue: 100},
		{ID: 3, UserID: 9, Symbol: "AAPL", RuleType: models.RuleSuddenChange, ThresholdValue: 1},
		{ID: 4, UserID: 9, Symbol: "AAPL", RuleType: "BOGUS", ThresholdValue: 1},
	}
	source.On("ActiveRules", mock.Anything, "AAPL").Return(active, nil)

	matched, err := rules.NewEngine(source, zap.NewNop()).Evaluate(context.Background(), processed("AAPL", 160, 1.2))
	require.NoError(t, err)

	require.Len(t, matched, 2)
	assert.Equal(t, int64(1), matched[0].ID)
	assert.Equal(t, int64(3), matched[1].ID)
	source.AssertExpectations(t)
}

func TestEngine_NoRules(t *testing.T) {
	source := new(MockSource)
	source.On("ActiveRules", mock.Anything, "JPM").Return(nil, nil)

	matched, err := rules.NewEngine(source, zap.NewNop()).Evaluate(context.Background(), processed("JPM", 150, 0))
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestEngine_LoadFailureIsTransient(t *testing.T) {
	source := new(MockSource)
	source.On("ActiveRules", mock.Anything, "JPM").Return(nil, errors.New("db down"))

	_, err := rules.NewEngine(source, zap.NewNop()).Evaluate(context.Background(), processed("JPM", 150, 0))
	require.Error(t, err)
	assert.True(t, errs.IsTransient(err))
}
