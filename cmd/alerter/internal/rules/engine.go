package rules

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

// Source loads the active rules watching a symbol
type Source interface {
	ActiveRules(ctx context.Context, symbol string) ([]models.AlertRule, error)
}

type Engine struct {
	source Source
	logger *zap.Logger
}

func NewEngine(source Source, logger *zap.Logger) *Engine {
	return &Engine{source: source, logger: logger}
}

// Evaluate returns every active rule on the sample's symbol that the sample
// satisfies, in store order. Rules are independent of each other.
func (e *Engine) Evaluate(ctx context.Context, ps models.ProcessedSample) ([]models.AlertRule, error) {
	active, err := e.source.ActiveRules(ctx, ps.Symbol)
	if err != nil {
		return nil, errs.Transient("load rules for "+ps.Symbol, err)
	}

	var matched []models.AlertRule
	for _, r := range active {
		if Matches(r, ps) {
			matched = append(matched, r)
		} else if !r.RuleType.Known() {
			e.logger.Warn("Skipping rule with unknown type", zap.Int64("rule_id", r.ID), zap.String("rule_type", string(r.RuleType)))
		}
	}
	e.logger.Debug("Rules evaluated", zap.String("symbol", ps.Symbol), zap.Int("active", len(active)), zap.Int("matched", len(matched)))
	return matched, nil
}

// Matches applies one rule to one sample. Unknown rule types never match.
func Matches(r models.AlertRule, ps models.ProcessedSample) bool {
	switch r.RuleType {
	case models.RulePriceAbove:
		return ps.Price > r.ThresholdValue
	case models.RulePriceBelow:
		return ps.Price < r.ThresholdValue
	case models.RuleSuddenChange:
		return math.Abs(ps.ChangePercent) > r.ThresholdValue
	default:
		return false
	}
}
