package fetcher

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Fetcher struct {
	logger    *zap.Logger
	source    QuoteSource
	publisher SamplePublisher
	limiter   Limiter
	symbols   []string
	interval  time.Duration
}

func NewFetcher(
	logger *zap.Logger,
	source QuoteSource,
	publisher SamplePublisher,
	limiter Limiter,
	symbols []string,
	interval time.Duration,
) *Fetcher {
	return &Fetcher{
		logger:    logger,
		source:    source,
		publisher: publisher,
		limiter:   limiter,
		symbols:   symbols,
		interval:  interval,
	}
}

// Run fetches once immediately and then every interval until ctx is cancelled.
func (f *Fetcher) Run(ctx context.Context) {
	f.logger.Info("Fetcher Started", zap.Strings("symbols", f.symbols), zap.Duration("interval", f.interval))

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		f.RunCycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunCycle fetches and publishes every symbol once. A failure on one symbol
// is logged and the cycle moves on. It returns how many samples were published.
func (f *Fetcher) RunCycle(ctx context.Context) int {
	f.logger.Info("Starting fetch cycle", zap.Int("symbols", len(f.symbols)))

	published := 0
	for _, symbol := range f.symbols {
		if err := f.limiter.Wait(ctx); err != nil {
			// ctx is done or the wait would outlive its deadline.
			f.logger.Debug("Fetch cycle interrupted", zap.Error(err))
			return published
		}

		sample, err := f.source.Quote(ctx, symbol)
		if err != nil {
			f.logger.Error("Failed to fetch quote", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if err := f.publisher.Publish(ctx, sample); err != nil {
			f.logger.Error("Failed to publish sample", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		published++
		f.logger.Debug("Published sample", zap.String("symbol", sample.Symbol), zap.Float64("price", sample.Price))
	}

	f.logger.Info("Fetch cycle complete", zap.Int("published", published), zap.Int("symbols", len(f.symbols)))
	return published
}
