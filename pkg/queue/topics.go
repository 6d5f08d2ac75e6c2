package queue

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/config"
)

// TopicConfigs describes the pipeline's three destinations. Raw samples
// expire after the configured retention; stale prices are worthless.
func TopicConfigs(cfg config.KafkaConfig) []kafka.TopicConfig {
	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	raw := kafka.TopicConfig{
		Topic:             cfg.RawTopic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}
	if cfg.RawRetention > 0 {
		raw.ConfigEntries = []kafka.ConfigEntry{{
			ConfigName:  "retention.ms",
			ConfigValue: strconv.FormatInt(cfg.RawRetention.Milliseconds(), 10),
		}}
	}
	return []kafka.TopicConfig{
		raw,
		{Topic: cfg.ProcessedTopic, NumPartitions: partitions, ReplicationFactor: 1},
		{Topic: cfg.AlertTopic, NumPartitions: partitions, ReplicationFactor: 1},
	}
}

type TopicCreator struct {
	logger *zap.Logger
	dialer KafkaDialer
	clock  Clock
}

func NewTopicCreator(logger *zap.Logger, dialer KafkaDialer, clock Clock) *TopicCreator {
	return &TopicCreator{
		logger: logger,
		dialer: dialer,
		clock:  clock,
	}
}

// Ensure creates the topics through the cluster controller and waits until
// each one reports partitions. Topics that already exist are left as they are.
func (tc *TopicCreator) Ensure(ctx context.Context, brokers []string, topics ...kafka.TopicConfig) error {
	var conn KafkaConn
	var err error

	for _, addr := range brokers {
		conn, err = tc.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			break
		}
	}
	if conn == nil {
		if err == nil {
			err = errors.New("no brokers configured")
		}
		return fmt.Errorf("dial brokers: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("get controller: %w", err)
	}

	controllerAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := tc.dialer.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer controllerConn.Close()

	if err := controllerConn.CreateTopics(topics...); err != nil {
		tc.logger.Info("Topic creation finished (might already exist)", zap.Error(err))
	} else {
		tc.logger.Info("Topic creation request sent", zap.Int("topics", len(topics)))
	}

	for _, t := range topics {
		if err := tc.waitForTopic(conn, t.Topic); err != nil {
			return err
		}
	}
	return nil
}

func (tc *TopicCreator) waitForTopic(conn KafkaConn, topicName string) error {
	tc.logger.Info("Waiting for topic initialization...", zap.String("topic", topicName))
	for i := 0; i < 5; i++ {
		partitions, err := conn.ReadPartitions(topicName)
		if err == nil && len(partitions) > 0 {
			tc.logger.Info("Topic is ready!", zap.String("topic", topicName), zap.Int("partitions", len(partitions)))
			return nil
		}
		tc.clock.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for topic %s", topicName)
}
