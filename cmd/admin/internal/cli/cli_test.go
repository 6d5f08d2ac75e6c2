package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/cmd/admin/internal/cli"
	"github.com/shubham-shewale/stock-alerts/pkg/analytics"
	"github.com/shubham-shewale/stock-alerts/pkg/errs"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

type MockHistory struct{ mock.Mock }

func (m *MockHistory) Query(ctx context.Context, symbol string, sinceHours, limit int) ([]models.ProcessedSample, error) {
	args := m.Called(ctx, symbol, sinceHours, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProcessedSample), args.Error(1)
}

func (m *MockHistory) Latest(ctx context.Context, symbol string) (models.ProcessedSample, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(models.ProcessedSample), args.Error(1)
}

func (m *MockHistory) Purge(ctx context.Context, olderThanDays int) (int64, error) {
	args := m.Called(ctx, olderThanDays)
	return args.Get(0).(int64), args.Error(1)
}

type MockCache struct{ mock.Mock }

func (m *MockCache) GetMany(ctx context.Context, symbols []string) (map[string]models.ProcessedSample, error) {
	args := m.Called(ctx, symbols)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.ProcessedSample), args.Error(1)
}

func (m *MockCache) Delete(ctx context.Context, symbol string) error {
	return m.Called(ctx, symbol).Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockRules struct{ mock.Mock }

func (m *MockRules) RulesForUser(ctx context.Context, userID int64) ([]models.AlertRule, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AlertRule), args.Error(1)
}

func (m *MockRules) CreateRule(ctx context.Context, rule models.AlertRule) (models.AlertRule, error) {
	args := m.Called(ctx, rule)
	return args.Get(0).(models.AlertRule), args.Error(1)
}

func (m *MockRules) DeleteRule(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockAlerts struct{ mock.Mock }

func (m *MockAlerts) ListAlerts(ctx context.Context, userID int64, limit int, unreadOnly bool) ([]models.Alert, error) {
	args := m.Called(ctx, userID, limit, unreadOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Alert), args.Error(1)
}

func (m *MockAlerts) MarkRead(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type harness struct {
	history *MockHistory
	cache   *MockCache
	rules   *MockRules
	alerts  *MockAlerts
	app     *cli.App
}

func newHarness() *harness {
	h := &harness{history: new(MockHistory), cache: new(MockCache), rules: new(MockRules), alerts: new(MockAlerts)}
	h.app = &cli.App{
		Logger:        zap.NewNop(),
		Migrate:       func(ctx context.Context) (int64, error) { return 1, nil },
		History:       h.history,
		Cache:         h.cache,
		Rules:         h.rules,
		Alerts:        h.alerts,
		RetentionDays: 30,
	}
	return h
}

func (h *harness) run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := cli.NewRootCmd(h.app)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

var at = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func sample(price float64, offset time.Duration) models.ProcessedSample {
	return models.ProcessedSample{Sample: models.Sample{Symbol: "AAPL", Price: price, Timestamp: at.Add(offset)}}
}

func TestMigrate(t *testing.T) {
	h := newHarness()
	out, err := h.run("migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema at version 1")
}

func TestHistory_NormalizesSymbolAndUsesDefaults(t *testing.T) {
	h := newHarness()
	h.history.On("Query", mock.Anything, "AAPL", 24, 100).Return([]models.ProcessedSample{sample(151, time.Minute), sample(150, 0)}, nil)

	out, err := h.run("history", "aapl")
	require.NoError(t, err)
	assert.Contains(t, out, "151.00")
	assert.Contains(t, out, "150.00")
	h.history.AssertExpectations(t)
}

func TestHistory_JSON(t *testing.T) {
	h := newHarness()
	h.history.On("Query", mock.Anything, "AAPL", 6, 10).Return([]models.ProcessedSample{sample(151, 0)}, nil)

	out, err := h.run("history", "AAPL", "--hours", "6", "--limit", "10", "--json")
	require.NoError(t, err)

	var rows []models.ProcessedSample
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 151.0, rows[0].Price)
}

func TestSummary(t *testing.T) {
	h := newHarness()
	rows := []models.ProcessedSample{sample(110, 3*time.Minute), sample(108, 2*time.Minute), sample(100, time.Minute), sample(100, 0)}
	h.history.On("Query", mock.Anything, "AAPL", 24, 100).Return(rows, nil)

	out, err := h.run("summary", "AAPL", "--json")
	require.NoError(t, err)

	var s analytics.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 4, s.DataPoints)
	assert.Equal(t, analytics.DirectionUpward, s.Direction)
	assert.Equal(t, 100.0, s.Min)
	assert.Equal(t, 110.0, s.Max)
}

func TestPurge_DefaultsToRetention(t *testing.T) {
	h := newHarness()
	h.history.On("Purge", mock.Anything, 30).Return(int64(12), nil)

	out, err := h.run("purge")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 12 samples older than 30 days")
}

func TestPurge_RejectsNonPositiveDays(t *testing.T) {
	h := newHarness()
	_, err := h.run("purge", "--days", "0")
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	h.history.AssertNotCalled(t, "Purge", mock.Anything, mock.Anything)
}

func TestLatest_CacheThenHistory(t *testing.T) {
	h := newHarness()
	cached := sample(151, time.Minute)
	stored := sample(98, 0)
	stored.Symbol = "MSFT"
	h.cache.On("GetMany", mock.Anything, []string{"AAPL", "MSFT", "JPM"}).
		Return(map[string]models.ProcessedSample{"AAPL": cached}, nil)
	h.history.On("Latest", mock.Anything, "MSFT").Return(stored, nil)
	h.history.On("Latest", mock.Anything, "JPM").Return(models.ProcessedSample{}, errs.ErrNotFound)

	out, err := h.run("latest", "aapl", "msft", "jpm", "--json")
	require.NoError(t, err)

	var rows []cli.LatestRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "cache", rows[0].Source)
	assert.Equal(t, 151.0, rows[0].Sample.Price)
	assert.Equal(t, "history", rows[1].Source)
	assert.Equal(t, 98.0, rows[1].Sample.Price)
	assert.Equal(t, "missing", rows[2].Source)
	assert.Nil(t, rows[2].Sample)
	h.history.AssertNotCalled(t, "Latest", mock.Anything, "AAPL")
}

func TestLatest_CacheDownUsesHistory(t *testing.T) {
	h := newHarness()
	h.cache.On("GetMany", mock.Anything, []string{"AAPL"}).Return(nil, errors.New("connection refused"))
	h.history.On("Latest", mock.Anything, "AAPL").Return(sample(150, 0), nil)

	out, err := h.run("latest", "AAPL")
	require.NoError(t, err)
	assert.Contains(t, out, "history")
	assert.Contains(t, out, "150.00")
}

func TestLatest_HistoryError(t *testing.T) {
	h := newHarness()
	h.cache.On("GetMany", mock.Anything, []string{"AAPL"}).Return(map[string]models.ProcessedSample{}, nil)
	h.history.On("Latest", mock.Anything, "AAPL").Return(models.ProcessedSample{}, errors.New("db down"))

	_, err := h.run("latest", "AAPL")
	assert.ErrorContains(t, err, "db down")
}

func TestCacheReset(t *testing.T) {
	h := newHarness()
	h.cache.On("Delete", mock.Anything, "AAPL").Return(nil)
	h.cache.On("Delete", mock.Anything, "TSLA").Return(nil)

	out, err := h.run("cache-reset", "aapl", "TSLA")
	require.NoError(t, err)
	assert.Contains(t, out, "reset AAPL")
	assert.Contains(t, out, "reset TSLA")
	h.cache.AssertExpectations(t)
}

func TestCacheReset_StopsOnError(t *testing.T) {
	h := newHarness()
	h.cache.On("Delete", mock.Anything, "AAPL").Return(errors.New("redis del AAPL: timeout"))

	_, err := h.run("cache-reset", "AAPL", "TSLA")
	assert.ErrorContains(t, err, "timeout")
	h.cache.AssertNotCalled(t, "Delete", mock.Anything, "TSLA")
}

func TestHealth(t *testing.T) {
	h := newHarness()
	h.cache.On("Ping", mock.Anything).Return(nil).Once()
	out, err := h.run("health")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	h.cache.On("Ping", mock.Anything).Return(errors.New("connection refused"))
	_, err = h.run("health")
	assert.ErrorContains(t, err, "redis: connection refused")
}

func TestRulesAdd(t *testing.T) {
	h := newHarness()
	want := models.AlertRule{UserID: 7, Symbol: "tsla", RuleType: models.RulePriceBelow, ThresholdValue: 180}
	created := want
	created.ID, created.Symbol, created.IsActive = 3, "TSLA", true
	h.rules.On("CreateRule", mock.Anything, want).Return(created, nil)

	out, err := h.run("rules", "add", "tsla", "price_below", "180", "--user", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "created rule 3: TSLA PRICE_BELOW 180.00 for user 7")
}

func TestRulesAdd_BadThreshold(t *testing.T) {
	h := newHarness()
	_, err := h.run("rules", "add", "TSLA", "PRICE_BELOW", "cheap")
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestRulesList(t *testing.T) {
	h := newHarness()
	h.rules.On("RulesForUser", mock.Anything, int64(1)).Return([]models.AlertRule{
		{ID: 1, UserID: 1, Symbol: "AAPL", RuleType: models.RulePriceAbove, ThresholdValue: 200, IsActive: true},
	}, nil)

	out, err := h.run("rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PRICE_ABOVE")
	assert.Contains(t, out, "200.00")
}

func TestRulesDelete_NotFound(t *testing.T) {
	h := newHarness()
	h.rules.On("DeleteRule", mock.Anything, int64(99)).Return(errs.ErrNotFound)

	_, err := h.run("rules", "delete", "99")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestAlertsListAndRead(t *testing.T) {
	h := newHarness()
	h.alerts.On("ListAlerts", mock.Anything, int64(1), 50, true).Return([]models.Alert{
		{ID: 5, UserID: 1, Symbol: "AAPL", AlertType: models.AlertSuddenRise, Message: "AAPL SUDDEN_RISE: Price changed by 3.00%", TriggeredAt: at},
	}, nil)
	h.alerts.On("MarkRead", mock.Anything, int64(5)).Return(nil)

	out, err := h.run("alerts", "list", "--unread")
	require.NoError(t, err)
	assert.Contains(t, out, "Price changed by 3.00%")

	out, err = h.run("alerts", "read", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "alert 5 marked read")
	h.alerts.AssertExpectations(t)
}
