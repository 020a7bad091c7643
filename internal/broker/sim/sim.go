package sim

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"scalp-terminal/internal/interfaces"
	"scalp-terminal/internal/types"
)

const (
	tickSize   = 0.05
	depthLevel = 5
)

// Provider synthesizes a five-level order book around a per-instrument random
// walk so the terminal runs end to end without market access or credentials.
type Provider struct {
	mu   sync.Mutex
	rng  *rand.Rand
	mids map[string]float64
}

var _ interfaces.QuoteProvider = (*Provider)(nil)

func New(seed int64) *Provider {
	return &Provider{
		rng:  rand.New(rand.NewSource(seed)),
		mids: make(map[string]float64),
	}
}

func (p *Provider) Depth(ctx context.Context, inst types.Instrument) (types.Depth, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mid := p.step(inst.ID())

	var d types.Depth
	for i := 0; i < depthLevel; i++ {
		bid := roundTick(mid - float64(i+1)*tickSize)
		ask := roundTick(mid + float64(i+1)*tickSize)
		qty := (1 + p.rng.Intn(50)) * inst.LotSize
		d.Bids = append(d.Bids, types.DepthLevel{Price: toPrice(bid), Quantity: qty})
		qty = (1 + p.rng.Intn(50)) * inst.LotSize
		d.Asks = append(d.Asks, types.DepthLevel{Price: toPrice(ask), Quantity: qty})
	}
	return d, nil
}

func (p *Provider) LTP(ctx context.Context, inst types.Instrument) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return toPrice(roundTick(p.step(inst.ID()))), nil
}

// step advances the random walk for one instrument and returns the new mid.
// Callers hold p.mu.
func (p *Provider) step(instrumentID string) float64 {
	mid, ok := p.mids[instrumentID]
	if !ok {
		mid = baseFor(instrumentID)
	}
	mid += (p.rng.Float64() - 0.5) * mid * 0.001
	if mid < tickSize*10 {
		mid = tickSize * 10
	}
	p.mids[instrumentID] = mid
	return mid
}

// baseFor derives a stable starting price from the instrument id so distinct
// instruments get distinct but repeatable levels.
func baseFor(instrumentID string) float64 {
	h := fnv.New32a()
	h.Write([]byte(instrumentID))
	return 500 + float64(h.Sum32()%45000)/10
}

func roundTick(v float64) float64 {
	return math.Round(v/tickSize) * tickSize
}

func toPrice(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
