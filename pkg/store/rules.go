package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

const ruleColumns = `id, user_id, symbol, rule_type, threshold_value, is_active, created_at`

type Rules struct {
	db *sql.DB
}

func NewRules(db *sql.DB) *Rules {
	return &Rules{db: db}
}

// ActiveRules returns the active rules on symbol in insertion order.
func (s *Rules) ActiveRules(ctx context.Context, symbol string) ([]models.AlertRule, error) {
	return s.list(ctx, `SELECT `+ruleColumns+` FROM alert_rules WHERE symbol = $1 AND is_active ORDER BY id`, symbol)
}

func (s *Rules) RulesForUser(ctx context.Context, userID int64) ([]models.AlertRule, error) {
	return s.list(ctx, `SELECT `+ruleColumns+` FROM alert_rules WHERE user_id = $1 ORDER BY id`, userID)
}

// CreateRule normalizes and validates rule before storing it.
func (s *Rules) CreateRule(ctx context.Context, rule models.AlertRule) (models.AlertRule, error) {
	rule.Symbol = models.NormalizeSymbol(rule.Symbol)
	if err := rule.Validate(); err != nil {
		return models.AlertRule{}, err
	}
	rule.IsActive = true

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO alert_rules (user_id, symbol, rule_type, threshold_value, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at`,
		rule.UserID, rule.Symbol, string(rule.RuleType), decimal.NewFromFloat(rule.ThresholdValue).StringFixed(2),
	).Scan(&rule.ID, &rule.CreatedAt)
	if err != nil {
		return models.AlertRule{}, fmt.Errorf("insert rule: %w", err)
	}
	return rule, nil
}

func (s *Rules) DeleteRule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// RuleOwners lists users holding an active rule on symbol.
func (s *Rules) RuleOwners(ctx context.Context, symbol string) ([]int64, error) {
	return userIDs(ctx, s.db, `SELECT DISTINCT user_id FROM alert_rules WHERE symbol = $1 AND is_active ORDER BY user_id`, symbol)
}

// Watchers lists users whose watchlist contains symbol.
func (s *Rules) Watchers(ctx context.Context, symbol string) ([]int64, error) {
	return userIDs(ctx, s.db, `SELECT DISTINCT user_id FROM watchlists WHERE symbol = $1 ORDER BY user_id`, symbol)
}

func (s *Rules) list(ctx context.Context, query string, arg any) ([]models.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []models.AlertRule
	for rows.Next() {
		var (
			r         models.AlertRule
			ruleType  string
			threshold string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Symbol, &ruleType, &threshold, &r.IsActive, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		d, err := decimal.NewFromString(threshold)
		if err != nil {
			return nil, fmt.Errorf("parse rule %d threshold %q: %w", r.ID, threshold, err)
		}
		r.RuleType = models.RuleType(ruleType)
		r.ThresholdValue = d.InexactFloat64()
		out = append(out, r)
	}
	return out, rows.Err()
}

func userIDs(ctx context.Context, db *sql.DB, query string, args ...any) ([]int64, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
