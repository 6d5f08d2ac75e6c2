package queue_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/stock-alerts/pkg/queue"
)

type fakeReader struct {
	Mu        sync.Mutex
	Messages  []kafka.Message
	Index     int
	Committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if r.Index >= len(r.Messages) {
		return kafka.Message{}, context.DeadlineExceeded
	}
	m := r.Messages[r.Index]
	r.Index++
	return m, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.Committed = append(r.Committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type published struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers []kafka.Header
}

type fakePublisher struct {
	Mu        sync.Mutex
	Published []published
	Calls     int
	FailFirst int
	OnCall    func(call int)
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	p.Mu.Lock()
	p.Calls++
	call := p.Calls
	hook := p.OnCall
	p.Mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if call <= p.FailFirst {
		return errors.New("broker unavailable")
	}

	p.Mu.Lock()
	defer p.Mu.Unlock()
	p.Published = append(p.Published, published{Topic: topic, Key: key, Value: value, Headers: headers})
	return nil
}

type fakeWriter struct {
	Mu       sync.Mutex
	Messages []kafka.Message
	Fail     bool
	Closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.Mu.Lock()
	defer w.Mu.Unlock()
	if w.Fail {
		return errors.New("write: broken pipe")
	}
	w.Messages = append(w.Messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.Mu.Lock()
	defer w.Mu.Unlock()
	w.Closed = true
	return nil
}

// writerSequence hands out the prepared writers in order.
type writerSequence struct {
	Writers []*fakeWriter
	Topics  []string
}

func (s *writerSequence) Factory() queue.WriterFactory {
	return func(topic string) queue.KafkaWriter {
		s.Topics = append(s.Topics, topic)
		w := s.Writers[0]
		if len(s.Writers) > 1 {
			s.Writers = s.Writers[1:]
		}
		return w
	}
}

type fakeClock struct{}

func (fakeClock) Now() time.Time        { return time.Unix(0, 0) }
func (fakeClock) Sleep(d time.Duration) {}

type fakeConn struct {
	Created    []kafka.TopicConfig
	Partitions int
}

func (c *fakeConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "localhost", Port: 9092}, nil
}
func (c *fakeConn) Close() error { return nil }
func (c *fakeConn) CreateTopics(topics ...kafka.TopicConfig) error {
	c.Created = append(c.Created, topics...)
	return nil
}
func (c *fakeConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	parts := make([]kafka.Partition, c.Partitions)
	return parts, nil
}

type fakeDialer struct {
	Conn      *fakeConn
	Addresses []string
	Err       error
}

func (d *fakeDialer) DialContext(ctx context.Context, network, address string) (queue.KafkaConn, error) {
	d.Addresses = append(d.Addresses, address)
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Conn, nil
}
