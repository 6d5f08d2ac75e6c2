package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/analytics"
	"github.com/shubham-shewale/stock-alerts/pkg/config"
	"github.com/shubham-shewale/stock-alerts/pkg/errs"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

// Side-effect steps, in the order they run
const (
	StepCache     = "cache"
	StepHistory   = "history"
	StepProcessed = "processed"
	StepTrigger   = "trigger"
)

type Config struct {
	CacheTTL        time.Duration
	BreachThreshold float64
	ProcessedTopic  string
	AlertTopic      string
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		CacheTTL:        cfg.Processor.CacheTTL,
		BreachThreshold: cfg.Processor.BreachThreshold,
		ProcessedTopic:  cfg.Kafka.ProcessedTopic,
		AlertTopic:      cfg.Kafka.AlertTopic,
	}
}

// Result is what one processed sample produced
type Result struct {
	Processed models.ProcessedSample
	Trigger   *models.AlertTrigger
}

type Processor struct {
	cfg       Config
	logger    Logger
	cache     Cache
	history   History
	publisher Publisher
	now       func() time.Time
}

func NewProcessor(cfg Config, logger Logger, cache Cache, history History, publisher Publisher) *Processor {
	return &Processor{
		cfg:       cfg,
		logger:    logger,
		cache:     cache,
		history:   history,
		publisher: publisher,
		now:       time.Now,
	}
}

// Handle decodes one raw-sample message and processes it.
func (p *Processor) Handle(ctx context.Context, msg kafka.Message) error {
	sample, skipped, err := models.DecodeSampleSkipping(msg.Value)
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		p.logger.Warn("Dropped unusable optional fields", zap.String("symbol", sample.Symbol), zap.Strings("fields", skipped))
	}
	_, err = p.Process(ctx, sample)
	return err
}

// Process validates sample, derives its analytics against the cached
// previous value, then caches, records and publishes it, and finally emits
// an alert trigger on a breach. The first failing step aborts the rest.
func (p *Processor) Process(ctx context.Context, sample models.Sample) (Result, error) {
	if err := sample.Validate(); err != nil {
		p.logger.Warn("Invalid sample", zap.String("symbol", sample.Symbol), zap.Error(err))
		return Result{}, err
	}

	ps, previousPrice := p.derive(ctx, sample)
	res := Result{Processed: ps}

	var done []string
	if err := p.cache.Set(ctx, ps.Symbol, ps, p.cfg.CacheTTL); err != nil {
		return res, &errs.PersistenceError{Step: StepCache, Err: err}
	}
	done = append(done, StepCache)

	if err := p.history.Append(ctx, ps); err != nil {
		return res, &errs.PersistenceError{Step: StepHistory, Completed: done, Err: err}
	}
	done = append(done, StepHistory)

	if err := p.publish(ctx, p.cfg.ProcessedTopic, ps.Symbol, ps); err != nil {
		return res, &errs.TransientError{Op: "publish " + StepProcessed, Completed: done, Err: err}
	}
	done = append(done, StepProcessed)

	p.logger.Debug("Processed",
		zap.String("symbol", ps.Symbol),
		zap.Float64("price", ps.Price),
		zap.Float64("change_percent", ps.ChangePercent),
		zap.String("trend", string(ps.Trend)))

	if !analytics.IsBreach(ps.ChangePercent, p.cfg.BreachThreshold) {
		return res, nil
	}

	trigger := models.AlertTrigger{
		EventID:       EventID(ps.Symbol, ps.Timestamp),
		Symbol:        ps.Symbol,
		AlertType:     analytics.BreachType(ps.ChangePercent),
		CurrentPrice:  ps.Price,
		PreviousPrice: previousPrice,
		ChangePercent: ps.ChangePercent,
		Threshold:     p.cfg.BreachThreshold,
		Timestamp:     ps.Timestamp,
	}
	if err := p.publish(ctx, p.cfg.AlertTopic, ps.Symbol, trigger); err != nil {
		return res, &errs.TransientError{Op: "publish " + StepTrigger, Completed: done, Err: err}
	}
	res.Trigger = &trigger

	p.logger.Warn("Breach detected",
		zap.String("symbol", ps.Symbol),
		zap.String("alert_type", trigger.AlertType),
		zap.Float64("change_percent", ps.ChangePercent))
	return res, nil
}

// derive returns the processed sample and the price it was compared against.
// A redelivered sample finds itself in the cache; its stored analytics are
// reused so a replay reproduces the first delivery's output.
func (p *Processor) derive(ctx context.Context, sample models.Sample) (models.ProcessedSample, float64) {
	previous, err := p.cache.Get(ctx, sample.Symbol)
	if err != nil {
		p.logger.Warn("Cache read failed, treating as cold start", zap.String("symbol", sample.Symbol), zap.Error(err))
		previous = nil
	}

	if previous != nil && previous.Timestamp.Equal(sample.Timestamp) && previous.Price == sample.Price {
		p.logger.Debug("Replaying already cached sample", zap.String("symbol", sample.Symbol))
		return *previous, analytics.Round2(previous.Price - previous.Change)
	}

	m := analytics.Derive(sample.Price, previous)
	ps := models.ProcessedSample{
		Sample:        sample,
		Change:        m.Change,
		ChangePercent: m.ChangePercent,
		Trend:         m.Trend,
		Volatility:    m.Volatility,
		ProcessedAt:   p.now().UTC(),
	}
	var previousPrice float64
	if previous != nil {
		previousPrice = previous.Price
	}
	return ps, previousPrice
}

func (p *Processor) publish(ctx context.Context, topic, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal for %s: %w", topic, err)
	}
	return p.publisher.Publish(ctx, topic, []byte(key), payload)
}

// EventID is stable for a symbol and sample timestamp, so a redelivered
// breach carries the same id as the first delivery.
func EventID(symbol string, ts time.Time) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(symbol+"|"+ts.UTC().Format(time.RFC3339Nano))).String()
}
