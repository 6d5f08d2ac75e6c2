package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
)

var ErrProducerClosed = errors.New("producer closed")

// WriterFactory builds a writer bound to one topic
type WriterFactory func(topic string) KafkaWriter

// Producer keeps one lazily created writer per topic. A failed write
// replaces that topic's writer and is retried exactly once.
type Producer struct {
	logger    *zap.Logger
	newWriter WriterFactory

	mu      sync.Mutex
	writers map[string]KafkaWriter
	closed  bool
}

func NewProducer(logger *zap.Logger, newWriter WriterFactory) *Producer {
	return &Producer{
		logger:    logger,
		newWriter: newWriter,
		writers:   make(map[string]KafkaWriter),
	}
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	msg := kafka.Message{Key: key, Value: value, Headers: headers}

	w, err := p.writer(topic)
	if err != nil {
		return err
	}
	if err = w.WriteMessages(ctx, msg); err == nil {
		return nil
	}

	p.logger.Warn("Kafka Write Error, reconnecting", zap.String("topic", topic), zap.Error(err))
	w, rerr := p.reconnect(topic, w)
	if rerr != nil {
		return rerr
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		return errs.Transient("publish "+topic, err)
	}
	return nil
}

func (p *Producer) writer(topic string) (KafkaWriter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrProducerClosed
	}
	w, ok := p.writers[topic]
	if !ok {
		w = p.newWriter(topic)
		p.writers[topic] = w
	}
	return w, nil
}

// reconnect swaps out stale unless another publisher already did.
func (p *Producer) reconnect(topic string, stale KafkaWriter) (KafkaWriter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrProducerClosed
	}
	if current := p.writers[topic]; current != stale {
		return current, nil
	}
	if err := stale.Close(); err != nil {
		p.logger.Debug("Closing stale writer failed", zap.String("topic", topic), zap.Error(err))
	}
	w := p.newWriter(topic)
	p.writers[topic] = w
	return w, nil
}

// Close flushes and closes every writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errList []error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			errList = append(errList, err)
			p.logger.Error("Error closing Kafka writer", zap.String("topic", topic), zap.Error(err))
		}
	}
	p.writers = nil
	return errors.Join(errList...)
}
