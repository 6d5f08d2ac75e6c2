package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shubham-shewale/stock-alerts/cmd/fetcher/internal/fetcher"
	"github.com/shubham-shewale/stock-alerts/pkg/config"
	"github.com/shubham-shewale/stock-alerts/pkg/queue"
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
	logger = logger.With(zap.String("service", "fetcher"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ensure the raw topic exists with its retention before the first publish
	if cfg.Kafka.CreateTopics {
		tc := queue.NewTopicCreator(logger, &queue.RealKafkaDialer{Dialer: kafka.DefaultDialer}, queue.RealClock{})
		if err := tc.Ensure(ctx, cfg.Kafka.Brokers, queue.TopicConfigs(cfg.Kafka)...); err != nil {
			logger.Warn("Topic setup incomplete", zap.Error(err))
		}
	}

	producer := queue.NewProducer(logger, queue.NewWriterFactory(cfg.Kafka))

	limit := rate.Inf
	if cfg.Fetcher.RatePerSecond > 0 {
		limit = rate.Limit(cfg.Fetcher.RatePerSecond)
	}

	f := fetcher.NewFetcher(
		logger,
		fetcher.NewSimulator(fetcher.DefaultBasePrices, fetcher.NewRealRand(cfg.Fetcher.Seed), fetcher.RealClock{}),
		fetcher.NewRawPublisher(producer, cfg.Kafka.RawTopic),
		rate.NewLimiter(limit, 1),
		cfg.Fetcher.Symbols,
		cfg.Fetcher.Interval,
	)

	f.Run(ctx)
	logger.Info("Shutdown signal received")

	// Flushes any buffered writes
	if err := producer.Close(); err != nil {
		logger.Error("Error closing Kafka producer", zap.Error(err))
	} else {
		logger.Info("Kafka producer closed cleanly")
	}
}
