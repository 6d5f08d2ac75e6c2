package testutils

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

type MockKafkaReader struct {
	Messages  []kafka.Message
	Index     int
	Committed []kafka.Message
	Mu        sync.Mutex
	// Closed simulates a closed connection or end of stream
	Closed bool
}

func (m *MockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Closed {
		return kafka.Message{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}

	if m.Index >= len(m.Messages) {
		// Returning DeadlineExceeded is a clean way to stop the consumer loop in tests
		return kafka.Message{}, context.DeadlineExceeded
	}

	msg := m.Messages[m.Index]
	m.Index++
	return msg, nil
}

func (m *MockKafkaReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Committed = append(m.Committed, msgs...)
	return nil
}

func (m *MockKafkaReader) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

// MockKafkaWriter records messages per topic; used behind queue.Producer.
type MockKafkaWriter struct {
	Topic    string
	Messages []kafka.Message
	Mu       sync.Mutex
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error { return nil }

type MockCache struct {
	Mu      sync.Mutex
	Entries map[string]models.ProcessedSample
	TTLs    map[string]time.Duration
	GetErr  error
	SetErr  error
	Sets    int
}

func NewMockCache() *MockCache {
	return &MockCache{Entries: map[string]models.ProcessedSample{}, TTLs: map[string]time.Duration{}}
}

func (m *MockCache) Get(ctx context.Context, symbol string) (*models.ProcessedSample, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	v, ok := m.Entries[symbol]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *MockCache) Set(ctx context.Context, symbol string, value models.ProcessedSample, ttl time.Duration) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.Sets++
	m.Entries[symbol] = value
	m.TTLs[symbol] = ttl
	return nil
}

type MockHistory struct {
	Mu   sync.Mutex
	Rows []models.ProcessedSample
	Err  error
}

func (m *MockHistory) Append(ctx context.Context, ps models.ProcessedSample) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Rows = append(m.Rows, ps)
	return nil
}

type Published struct {
	Topic string
	Key   string
	Value []byte
}

type MockPublisher struct {
	Mu        sync.Mutex
	Messages  []Published
	FailTopic string
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if topic == m.FailTopic {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, Published{Topic: topic, Key: string(key), Value: value})
	return nil
}

func (m *MockPublisher) OnTopic(topic string) []Published {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var out []Published
	for _, msg := range m.Messages {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}
