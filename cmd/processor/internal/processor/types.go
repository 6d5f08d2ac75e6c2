package processor

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

// Logger abstracts the logging library
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Fatal(msg string, fields ...zap.Field)
	Sync() error
}

// Cache holds the latest processed value per symbol. Get returns nil when absent.
type Cache interface {
	Get(ctx context.Context, symbol string) (*models.ProcessedSample, error)
	Set(ctx context.Context, symbol string, value models.ProcessedSample, ttl time.Duration) error
}

// History is the durable record of processed samples
type History interface {
	Append(ctx context.Context, ps models.ProcessedSample) error
}

// Publisher abstracts the output streams
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error
}
