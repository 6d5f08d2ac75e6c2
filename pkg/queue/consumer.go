package queue

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
)

const RedeliveryHeader = "x-redelivery"

type Outcome int

const (
	Ack Outcome = iota
	Reject
	Requeue
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Reject:
		return "reject"
	case Requeue:
		return "requeue"
	}
	return "unknown"
}

// OutcomeFor maps a handler error to what happens to the message:
// success acks, invalid input is rejected, everything else is requeued.
func OutcomeFor(err error) Outcome {
	switch {
	case err == nil:
		return Ack
	case errs.IsValidation(err):
		return Reject
	default:
		return Requeue
	}
}

type ConsumerConfig struct {
	Name            string
	Topic           string
	MaxBackoff      time.Duration
	MaxRedeliveries int // 0 means unlimited
	FetchBackoff    time.Duration
}

// Consumer runs one sequential consumption loop over a topic. Offsets are
// committed only after the handler's side effects finished. A requeued
// message is republished to the tail of its topic before its offset is
// committed.
type Consumer struct {
	cfg       ConsumerConfig
	logger    *zap.Logger
	reader    KafkaReader
	publisher Publisher
	handler   Handler
}

func NewConsumer(cfg ConsumerConfig, logger *zap.Logger, reader KafkaReader, publisher Publisher, handler Handler) *Consumer {
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.FetchBackoff <= 0 {
		cfg.FetchBackoff = time.Second
	}
	return &Consumer{
		cfg:       cfg,
		logger:    logger.With(zap.String("consumer", cfg.Name), zap.String("topic", cfg.Topic)),
		reader:    reader,
		publisher: publisher,
		handler:   handler,
	}
}

// Run blocks until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Consumer Started")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				c.logger.Info("Consumer stopped")
				return nil
			}
			c.logger.Error("Kafka Fetch Error", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.cfg.FetchBackoff):
			}
			continue
		}
		c.dispatch(ctx, m)
	}
}

func (c *Consumer) dispatch(ctx context.Context, m kafka.Message) {
	// The in-flight message is finished even if shutdown starts meanwhile.
	workCtx := context.WithoutCancel(ctx)

	err := c.handler.Handle(workCtx, m)
	outcome := OutcomeFor(err)

	fields := []zap.Field{
		zap.String("key", string(m.Key)),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
		zap.Stringer("outcome", outcome),
	}

	switch outcome {
	case Ack:
		c.logger.Debug("Message handled", fields...)
		c.commit(workCtx, m)
	case Reject:
		c.logger.Warn("Dropping invalid message", append(fields, zap.Error(err))...)
		c.commit(workCtx, m)
	case Requeue:
		c.logger.Error("Message handling failed, requeueing", append(fields, zap.Error(err))...)
		c.requeue(ctx, m)
	}
}

func (c *Consumer) requeue(ctx context.Context, m kafka.Message) {
	attempt := Redeliveries(m) + 1
	if c.cfg.MaxRedeliveries > 0 && attempt > c.cfg.MaxRedeliveries {
		c.logger.Error("Redelivery limit reached, dropping message",
			zap.String("key", string(m.Key)), zap.Int("redeliveries", attempt-1))
		c.commit(context.WithoutCancel(ctx), m)
		return
	}

	headers := withRedelivery(m.Headers, attempt)
	b := retry.WithCappedDuration(c.cfg.MaxBackoff, retry.NewExponential(min(100*time.Millisecond, c.cfg.MaxBackoff)))

	// Retried until it succeeds or shutdown begins; on shutdown the offset stays uncommitted.
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := c.publisher.Publish(ctx, c.cfg.Topic, m.Key, m.Value, headers...); err != nil {
			c.logger.Warn("Requeue publish failed", zap.String("key", string(m.Key)), zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("Requeue abandoned, leaving offset uncommitted", zap.String("key", string(m.Key)), zap.Error(err))
		return
	}
	c.commit(context.WithoutCancel(ctx), m)
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.logger.Error("Kafka Commit Error", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}

// Redeliveries reports how many times a message has been requeued.
func Redeliveries(m kafka.Message) int {
	for _, h := range m.Headers {
		if h.Key == RedeliveryHeader {
			n, err := strconv.Atoi(string(h.Value))
			if err == nil {
				return n
			}
		}
	}
	return 0
}

func withRedelivery(headers []kafka.Header, attempt int) []kafka.Header {
	out := make([]kafka.Header, 0, len(headers)+1)
	for _, h := range headers {
		if h.Key != RedeliveryHeader {
			out = append(out, h)
		}
	}
	return append(out, kafka.Header{Key: RedeliveryHeader, Value: []byte(strconv.Itoa(attempt))})
}
