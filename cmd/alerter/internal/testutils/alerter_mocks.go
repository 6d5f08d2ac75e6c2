package testutils

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"

	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

type MockRuleEvaluator struct {
	mock.Mock
}

func (m *MockRuleEvaluator) Evaluate(ctx context.Context, ps models.ProcessedSample) ([]models.AlertRule, error) {
	args := m.Called(ctx, ps)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AlertRule), args.Error(1)
}

// MockAlertStore assigns ids and skips alerts whose dedupe key it has already seen.
type MockAlertStore struct {
	Mu      sync.Mutex
	Alerts  []models.Alert
	Err     error
	nextID  int64
	seen    map[string]bool
	Batches int
}

func (m *MockAlertStore) CreateAlerts(ctx context.Context, alerts []models.Alert) ([]models.Alert, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	m.Batches++

	var created []models.Alert
	for _, a := range alerts {
		if a.DedupeKey != "" && m.seen[a.DedupeKey] {
			continue
		}
		if a.DedupeKey != "" {
			m.seen[a.DedupeKey] = true
		}
		m.nextID++
		a.ID = m.nextID
		a.TriggeredAt = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
		m.Alerts = append(m.Alerts, a)
		created = append(created, a)
	}
	return created, nil
}

type MockNotifier struct {
	Mu     sync.Mutex
	Events []models.Notification
}

func (m *MockNotifier) Publish(event models.Notification) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Events = append(m.Events, event)
}

func (m *MockNotifier) Snapshot() []models.Notification {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]models.Notification(nil), m.Events...)
}

type MockUserLookup struct {
	WatcherIDs []int64
	OwnerIDs   []int64
	Err        error
}

func (m *MockUserLookup) Watchers(ctx context.Context, symbol string) ([]int64, error) {
	return m.WatcherIDs, m.Err
}

func (m *MockUserLookup) RuleOwners(ctx context.Context, symbol string) ([]int64, error) {
	return m.OwnerIDs, m.Err
}

// MockKafkaReader replays Messages then reports a deadline so the consumer loop exits.
type MockKafkaReader struct {
	Messages  []kafka.Message
	Index     int
	Committed []kafka.Message
	Mu        sync.Mutex
}

func (m *MockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if m.Index >= len(m.Messages) {
		return kafka.Message{}, io.EOF
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

func (m *MockKafkaReader) Close() error { return nil }

type MockPublisher struct {
	Mu       sync.Mutex
	Messages []kafka.Message
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Messages = append(m.Messages, kafka.Message{Topic: topic, Key: key, Value: value, Headers: headers})
	return nil
}
