package fetcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shubham-shewale/stock-alerts/pkg/models"
	"github.com/shubham-shewale/stock-alerts/pkg/queue"
)

// RawPublisher enqueues samples on the raw topic keyed by symbol, so one
// symbol's samples stay on one partition in order.
type RawPublisher struct {
	producer queue.Publisher
	topic    string
}

func NewRawPublisher(producer queue.Publisher, topic string) *RawPublisher {
	return &RawPublisher{producer: producer, topic: topic}
}

func (p *RawPublisher) Publish(ctx context.Context, sample models.Sample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal sample %s: %w", sample.Symbol, err)
	}
	return p.producer.Publish(ctx, p.topic, []byte(sample.Symbol), payload)
}
