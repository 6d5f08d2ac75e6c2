package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shubham-shewale/stock-alerts/cmd/alerter/internal/alerter"
	"github.com/shubham-shewale/stock-alerts/cmd/alerter/internal/rules"
	"github.com/shubham-shewale/stock-alerts/pkg/cache"
	"github.com/shubham-shewale/stock-alerts/pkg/config"
	"github.com/shubham-shewale/stock-alerts/pkg/fanout"
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
	logger = logger.With(zap.String("service", "alerter"))

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

	ruleStore := store.NewRules(db.DB)
	recipients, err := alerter.NewRecipients(cfg.Alerts.BreachRecipients, ruleStore)
	if err != nil {
		logger.Fatal("Invalid breach recipients", zap.Error(err))
	}

	notifier := fanout.NewNotifier(rdb, cfg.Fanout, logger)
	svc := alerter.New(logger, rules.NewEngine(ruleStore, logger), store.NewAlerts(db.DB), notifier, recipients)

	producer := queue.NewProducer(logger, queue.NewWriterFactory(cfg.Kafka))
	triggerReader := queue.NewReader(cfg.Kafka, cfg.Kafka.AlertTopic, cfg.Kafka.AlerterTriggerGroupID)
	processedReader := queue.NewReader(cfg.Kafka, cfg.Kafka.ProcessedTopic, cfg.Kafka.AlerterRulesGroupID)

	breaches := queue.NewConsumer(queue.ConsumerConfig{
		Name:            "breach-alerts",
		Topic:           cfg.Kafka.AlertTopic,
		MaxBackoff:      cfg.Kafka.RequeueMaxBackoff,
		MaxRedeliveries: cfg.Kafka.MaxRedeliveries,
	}, logger, triggerReader, producer, queue.HandlerFunc(svc.HandleTrigger))

	ruleAlerts := queue.NewConsumer(queue.ConsumerConfig{
		Name:            "rule-alerts",
		Topic:           cfg.Kafka.ProcessedTopic,
		MaxBackoff:      cfg.Kafka.RequeueMaxBackoff,
		MaxRedeliveries: cfg.Kafka.MaxRedeliveries,
	}, logger, processedReader, producer, queue.HandlerFunc(svc.HandleProcessed))

	logger.Info("Alert Service Started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("trigger_group", cfg.Kafka.AlerterTriggerGroupID),
		zap.String("rules_group", cfg.Kafka.AlerterRulesGroupID),
		zap.String("recipients", cfg.Alerts.BreachRecipients.Mode))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return breaches.Run(gctx) })
	g.Go(func() error { return ruleAlerts.Run(gctx) })
	if err := g.Wait(); err != nil {
		logger.Error("Consumer stopped with error", zap.Error(err))
	}
	logger.Info("Shutdown signal received, stopping alert service...")

	for name, r := range map[string]*kafka.Reader{"trigger": triggerReader, "processed": processedReader} {
		if err := r.Close(); err != nil {
			logger.Error("Error closing reader", zap.String("reader", name), zap.Error(err))
		}
	}
	if err := producer.Close(); err != nil {
		logger.Error("Error closing producer", zap.Error(err))
	}

	notifier.Close()
	stats := notifier.Stats()
	logger.Info("Fanout drained",
		zap.Uint64("published", stats.Published),
		zap.Uint64("dropped", stats.Dropped),
		zap.Uint64("failed", stats.Failed))

	rdb.Close()
	db.Close()
	logger.Info("Alert service exited cleanly")
}
