package alerter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

const stepAlerts = "alerts"

type RuleEvaluator interface {
	Evaluate(ctx context.Context, ps models.ProcessedSample) ([]models.AlertRule, error)
}

// AlertStore persists a batch of alerts atomically and returns the ones it created
type AlertStore interface {
	CreateAlerts(ctx context.Context, alerts []models.Alert) ([]models.Alert, error)
}

// Notifier forwards notifications without blocking or failing
type Notifier interface {
	Publish(event models.Notification)
}

// Alerter turns breach triggers and rule matches into stored alerts and
// live notifications. Alerts are stored before anyone is notified.
type Alerter struct {
	logger     *zap.Logger
	rules      RuleEvaluator
	store      AlertStore
	notifier   Notifier
	recipients Recipients
}

func New(logger *zap.Logger, rules RuleEvaluator, store AlertStore, notifier Notifier, recipients Recipients) *Alerter {
	return &Alerter{
		logger:     logger,
		rules:      rules,
		store:      store,
		notifier:   notifier,
		recipients: recipients,
	}
}

// HandleTrigger consumes one alert-trigger message.
func (a *Alerter) HandleTrigger(ctx context.Context, msg kafka.Message) error {
	trig, err := models.DecodeAlertTrigger(msg.Value)
	if err != nil {
		return err
	}

	users, err := a.recipients.Recipients(ctx, trig.Symbol)
	if err != nil {
		return errs.Transient("resolve breach recipients", err)
	}
	if len(users) == 0 {
		a.logger.Info("No recipients for breach", zap.String("symbol", trig.Symbol), zap.String("alert_type", trig.AlertType))
		return nil
	}

	threshold := trig.Threshold
	text := BreachMessage(trig)
	alerts := make([]models.Alert, 0, len(users))
	for _, uid := range users {
		alerts = append(alerts, models.Alert{
			UserID:    uid,
			Symbol:    trig.Symbol,
			AlertType: trig.AlertType,
			Threshold: &threshold,
			Message:   text,
			DedupeKey: breachKey(trig.EventID, uid),
		})
	}

	created, err := a.store.CreateAlerts(ctx, alerts)
	if err != nil {
		return &errs.PersistenceError{Step: stepAlerts, Err: err}
	}
	a.logger.Info("Alert stored", zap.String("message", text), zap.Int("recipients", len(users)), zap.Int("created", len(created)))

	for _, alert := range created {
		a.notifier.Publish(models.Notification{Type: models.NotificationAlert, Data: alert})
	}
	return nil
}

// HandleProcessed consumes one processed-sample message and evaluates rules against it.
func (a *Alerter) HandleProcessed(ctx context.Context, msg kafka.Message) error {
	ps, err := models.DecodeProcessedSample(msg.Value)
	if err != nil {
		return err
	}

	matched, err := a.rules.Evaluate(ctx, ps)
	if err != nil {
		return err
	}
	if len(matched) == 0 {
		return nil
	}

	alerts := make([]models.Alert, 0, len(matched))
	for _, r := range matched {
		threshold := r.ThresholdValue
		alerts = append(alerts, models.Alert{
			UserID:    r.UserID,
			Symbol:    ps.Symbol,
			AlertType: string(r.RuleType),
			Threshold: &threshold,
			Message:   RuleMessage(ps, r),
			DedupeKey: ruleKey(r.ID, ps),
		})
	}

	created, err := a.store.CreateAlerts(ctx, alerts)
	if err != nil {
		return &errs.PersistenceError{Step: stepAlerts, Err: err}
	}

	for _, alert := range created {
		a.logger.Info("Rule-based alert created", zap.Int64("user_id", alert.UserID), zap.String("message", alert.Message))
		uid := alert.UserID
		a.notifier.Publish(models.Notification{Type: models.NotificationRuleAlert, UserID: &uid, Data: alert})
	}
	return nil
}

func BreachMessage(t models.AlertTrigger) string {
	return fmt.Sprintf("%s %s: Price changed by %s%%", t.Symbol, t.AlertType, fixed2(t.ChangePercent))
}

func RuleMessage(ps models.ProcessedSample, r models.AlertRule) string {
	return fmt.Sprintf("%s triggered %s rule: Price $%s vs threshold $%s",
		ps.Symbol, r.RuleType, fixed2(ps.Price), fixed2(r.ThresholdValue))
}

func fixed2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func breachKey(eventID string, userID int64) string {
	if eventID == "" {
		return ""
	}
	return "breach:" + eventID + ":" + strconv.FormatInt(userID, 10)
}

func ruleKey(ruleID int64, ps models.ProcessedSample) string {
	return "rule:" + strconv.FormatInt(ruleID, 10) + ":" + ps.Symbol + ":" + ps.Timestamp.UTC().Format(time.RFC3339Nano)
}
