package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/cmd/processor/internal/processor"
	"github.com/shubham-shewale/stock-alerts/pkg/cache"
	"github.com/shubham-shewale/stock-alerts/pkg/config"
	"github.com/shubham-shewale/stock-alerts/pkg/queue"
	"github.com/shubham-shewale/stock-alerts/pkg/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()
	logger = logger.With(zap.String("service", "processor"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	db, err := store.Open(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	if cfg.Postgres.AutoMigrate {
		if err := store.Migrate(db.DB); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	if cfg.Kafka.CreateTopics {
		tc := queue.NewTopicCreator(logger, &queue.RealKafkaDialer{Dialer: kafka.DefaultDialer}, queue.RealClock{})
		if err := tc.Ensure(ctx, cfg.Kafka.Brokers, queue.TopicConfigs(cfg.Kafka)...); err != nil {
			logger.Warn("Topic setup incomplete", zap.Error(err))
		}
	}

	producer := queue.NewProducer(logger, queue.NewWriterFactory(cfg.Kafka))
	reader := queue.NewReader(cfg.Kafka, cfg.Kafka.RawTopic, cfg.Kafka.ProcessorGroupID)

	latest := cache.NewLatestCache(rdb, logger)
	// Topic setup and migrations can take a while; recheck Redis before consuming.
	if err := latest.Ping(ctx); err != nil {
		logger.Fatal("Redis unavailable", zap.Error(err))
	}

	proc := processor.NewProcessor(
		processor.ConfigFrom(cfg),
		logger,
		latest,
		store.NewHistory(db.DB),
		producer,
	)

	consumer := queue.NewConsumer(queue.ConsumerConfig{
		Name:            "processor",
		Topic:           cfg.Kafka.RawTopic,
		MaxBackoff:      cfg.Kafka.RequeueMaxBackoff,
		MaxRedeliveries: cfg.Kafka.MaxRedeliveries,
	}, logger, reader, producer, proc)

	logger.Info("Processor Started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.RawTopic),
		zap.Float64("breach_threshold", cfg.Processor.BreachThreshold))

	// Run returns once the signal context is cancelled and the in-flight message is finished.
	if err := consumer.Run(ctx); err != nil {
		logger.Error("Consumer stopped with error", zap.Error(err))
	}
	logger.Info("Shutdown signal received, stopping processor...")

	logger.Info("Closing Kafka Reader...")
	if err := reader.Close(); err != nil {
		logger.Error("Error closing reader", zap.Error(err))
	}
	if err := producer.Close(); err != nil {
		logger.Error("Error closing producer", zap.Error(err))
	}

	logger.Info("Closing Redis and PostgreSQL...")
	rdb.Close()
	db.Close()

	logger.Info("Processor exited cleanly")
}
