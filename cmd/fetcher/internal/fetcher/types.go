package fetcher

import (
	"context"
	"math/rand"
	"time"

	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

// for deterministic testing
type Clock interface {
	Now() time.Time
}

// for deterministic values
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// QuoteSource returns the current quote for one symbol
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (models.Sample, error)
}

type SamplePublisher interface {
	Publish(ctx context.Context, sample models.Sample) error
}

// Limiter paces calls to the quote source. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

type RealRand struct{ *rand.Rand }

func (r RealRand) Intn(n int) int   { return r.Rand.Intn(n) }
func (r RealRand) Float64() float64 { return r.Rand.Float64() }

// NewRealRand seeds from the clock when seed is 0.
func NewRealRand(seed int64) RealRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return RealRand{rand.New(rand.NewSource(seed))}
}
