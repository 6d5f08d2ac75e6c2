package fetcher

import (
	"context"
	"sync"

	"github.com/shubham-shewale/stock-alerts/pkg/analytics"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

const (
	SimulatorSource = "simulator"

	defaultBasePrice = 100.0
	// maxStep is the largest single-quote move as a fraction of the last price.
	maxStep   = 0.02
	maxVolume = 5_000_000
)

var DefaultBasePrices = map[string]float64{
	"AAPL":  185.0,
	"GOOGL": 140.0,
	"MSFT":  375.0,
	"AMZN":  150.0,
	"TSLA":  240.0,
	"META":  350.0,
	"NVDA":  480.0,
	"JPM":   170.0,
}

type session struct {
	open, high, low, last float64
	volume                int64
}

// Simulator is a random-walk QuoteSource. Each symbol starts at its base
// price, which also serves as the previous close.
type Simulator struct {
	rand       Rand
	clock      Clock
	basePrices map[string]float64

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSimulator(basePrices map[string]float64, rnd Rand, clock Clock) *Simulator {
	return &Simulator{
		rand:       rnd,
		clock:      clock,
		basePrices: basePrices,
		sessions:   make(map[string]*session),
	}
}

func (s *Simulator) Quote(ctx context.Context, symbol string) (models.Sample, error) {
	if err := ctx.Err(); err != nil {
		return models.Sample{}, err
	}
	symbol = models.NormalizeSymbol(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.base(symbol)
	sess, ok := s.sessions[symbol]
	if !ok {
		sess = &session{open: base, high: base, low: base, last: base}
		s.sessions[symbol] = sess
	}

	// Float64 of 0.5 leaves the price unchanged.
	step := (s.rand.Float64()*2 - 1) * maxStep
	price := analytics.Round2(sess.last * (1 + step))
	if price <= 0 {
		price = 0.01
	}
	sess.last = price
	sess.high = max(sess.high, price)
	sess.low = min(sess.low, price)
	sess.volume += int64(s.rand.Intn(maxVolume))

	open, high, low, prevClose, volume := sess.open, sess.high, sess.low, base, sess.volume
	return models.Sample{
		Symbol:        symbol,
		Price:         price,
		Volume:        &volume,
		Open:          &open,
		High:          &high,
		Low:           &low,
		PreviousClose: &prevClose,
		Timestamp:     s.clock.Now().UTC(),
		Source:        SimulatorSource,
	}, nil
}

func (s *Simulator) base(symbol string) float64 {
	if p, ok := s.basePrices[symbol]; ok && p > 0 {
		return p
	}
	return defaultBasePrice
}
