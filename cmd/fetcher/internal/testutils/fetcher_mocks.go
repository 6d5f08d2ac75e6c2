package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

// MockKafkaWriter records writes; used behind queue.Producer. FailWrites
// fails that many writes before succeeding.
type MockKafkaWriter struct {
	Messages   []kafka.Message
	Mu         sync.Mutex
	FailWrites int
	Closed     bool
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.FailWrites > 0 {
		m.FailWrites--
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

type MockClock struct {
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time { return m.CurrentTime }

type MockRand struct {
	ValInt   int
	ValFloat float64
}

func (m *MockRand) Intn(n int) int   { return m.ValInt }
func (m *MockRand) Float64() float64 { return m.ValFloat }

// MockSource returns a fixed price per symbol and fails for symbols in Fail.
type MockSource struct {
	Prices map[string]float64
	Fail   map[string]bool
	At     time.Time
}

func (m *MockSource) Quote(ctx context.Context, symbol string) (models.Sample, error) {
	if m.Fail[symbol] {
		return models.Sample{}, errors.New("quote unavailable")
	}
	return models.Sample{Symbol: symbol, Price: m.Prices[symbol], Timestamp: m.At, Source: "test"}, nil
}

type MockSamplePublisher struct {
	Mu      sync.Mutex
	Samples []models.Sample
	Fail    map[string]bool
}

func (m *MockSamplePublisher) Publish(ctx context.Context, sample models.Sample) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Fail[sample.Symbol] {
		return errors.New("broker unavailable")
	}
	m.Samples = append(m.Samples, sample)
	return nil
}

// CountingLimiter never waits; it errors once ctx is done.
type CountingLimiter struct {
	Calls int
}

func (l *CountingLimiter) Wait(ctx context.Context) error {
	l.Calls++
	return ctx.Err()
}
