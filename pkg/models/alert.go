package models

import (
	"math"
	"time"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
)

type RuleType string

const (
	RulePriceAbove   RuleType = "PRICE_ABOVE"
	RulePriceBelow   RuleType = "PRICE_BELOW"
	RuleSuddenChange RuleType = "SUDDEN_CHANGE"
)

func (t RuleType) Known() bool {
	switch t {
	case RulePriceAbove, RulePriceBelow, RuleSuddenChange:
		return true
	}
	return false
}

// AlertRule is a user-owned threshold on one symbol
type AlertRule struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Symbol         string    `json:"symbol"`
	RuleType       RuleType  `json:"rule_type"`
	ThresholdValue float64   `json:"threshold_value"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Validate checks a rule before it is stored. Symbol must already be normalized.
func (r AlertRule) Validate() error {
	if r.Symbol == "" {
		return errs.Invalid("symbol", "is required")
	}
	if !r.RuleType.Known() {
		return errs.Invalid("rule_type", "unknown rule type %q", r.RuleType)
	}
	if math.IsNaN(r.ThresholdValue) || math.IsInf(r.ThresholdValue, 0) {
		return errs.Invalid("threshold_value", "must be finite")
	}
	return nil
}

const (
	AlertSuddenRise = "SUDDEN_RISE"
	AlertSuddenDrop = "SUDDEN_DROP"
)

// Alert is a persisted notification record. Only IsRead changes after creation.
type Alert struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Symbol      string    `json:"symbol"`
	AlertType   string    `json:"alert_type"`
	Threshold   *float64  `json:"threshold"`
	Message     string    `json:"message"`
	TriggeredAt time.Time `json:"triggered_at"`
	IsRead      bool      `json:"is_read"`

	// DedupeKey identifies the event that produced the alert; redeliveries reuse it.
	DedupeKey string `json:"-"`
}

// AlertTrigger is the message published on the alert-trigger destination when a sample breaches
type AlertTrigger struct {
	EventID       string    `json:"event_id"`
	Symbol        string    `json:"symbol"`
	AlertType     string    `json:"alert_type"`
	CurrentPrice  float64   `json:"current_price"`
	PreviousPrice float64   `json:"previous_price"`
	ChangePercent float64   `json:"change_percent"`
	Threshold     float64   `json:"threshold"`
	Timestamp     time.Time `json:"timestamp"`
}

const (
	NotificationAlert     = "alert"
	NotificationRuleAlert = "rule_alert"
)

// Notification is the envelope pushed to live listeners
type Notification struct {
	Type   string `json:"type"`
	UserID *int64 `json:"user_id,omitempty"`
	Data   Alert  `json:"data"`
}
