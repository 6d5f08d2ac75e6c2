// Package fanout forwards alert notifications to live listeners over Redis pub/sub.
package fanout

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/config"
	"github.com/shubham-shewale/stock-alerts/pkg/errs"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type Stats struct {
	Published uint64
	Dropped   uint64
	Failed    uint64
}

// Notifier never blocks its caller. Events go into a bounded buffer drained
// by one goroutine; a full buffer drops the event and counts it.
type Notifier struct {
	client  RedisPublisher
	channel string
	timeout time.Duration
	logger  *zap.Logger

	queue chan []byte
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

func NewNotifier(client RedisPublisher, cfg config.FanoutConfig, logger *zap.Logger) *Notifier {
	size := cfg.BufferSize
	if size <= 0 {
		size = 256
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	n := &Notifier{
		client:  client,
		channel: cfg.Channel,
		timeout: timeout,
		logger:  logger,
		queue:   make(chan []byte, size),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Publish enqueues one notification. Delivery failures never reach the caller.
func (n *Notifier) Publish(event models.Notification) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.failed.Add(1)
		n.logger.Error("Notification marshal failed", zap.Error(err))
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.dropped.Add(1)
		return
	}

	select {
	case n.queue <- payload:
	default:
		dropped := n.dropped.Add(1)
		n.logger.Warn("Notification buffer full, dropping",
			zap.String("type", event.Type),
			zap.String("symbol", event.Data.Symbol),
			zap.Uint64("dropped_total", dropped))
	}
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for payload := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		err := n.client.Publish(ctx, n.channel, payload).Err()
		cancel()
		if err != nil {
			n.failed.Add(1)
			n.logger.Error("Notification publish failed", zap.Error(&errs.NotificationError{Channel: n.channel, Err: err}))
			continue
		}
		n.published.Add(1)
	}
}

func (n *Notifier) Stats() Stats {
	return Stats{
		Published: n.published.Load(),
		Dropped:   n.dropped.Load(),
		Failed:    n.failed.Load(),
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	n.wg.Wait()
	s := n.Stats()
	n.logger.Info("Notifier closed",
		zap.Uint64("published", s.Published),
		zap.Uint64("dropped", s.Dropped),
		zap.Uint64("failed", s.Failed))
}
