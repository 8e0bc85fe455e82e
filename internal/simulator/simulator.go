// Package simulator drives a book.OrderBook with a stochastic stream of
// orders, emulating a high-throughput market so the rest of the system has
// something to publish.
package simulator

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/book"
)

const (
	// batchSize is how many orders are generated before the throttle check
	// and a stats refresh against the book happen again.
	batchSize = 10000

	priceMoveRange  = 0.01   // random walk: +/-1% per order
	meanReversion   = 0.0001 // pull back toward basePrice each order
	minOrderSize    = 0.001
	maxOrderSize    = 2.0
	minSpreadFactor = 0.5
	maxSpreadFactor = 5.0

	defaultCallbackInterval = 1000
)

// PriceCallback is invoked periodically (every CallbackInterval generated
// orders) with the simulator's current reference price and the cumulative
// order count. It must not block.
type PriceCallback func(price float64, orderCount uint64)

// Generator is a price random walk plus an order-submission loop feeding a
// single book.OrderBook. It owns one goroutine, managed with tomb.Tomb the
// same way the rest of this module manages background work.
type Generator struct {
	t tomb.Tomb

	book      *book.OrderBook
	basePrice float64

	stats Stats

	targetOPS uint64

	priceCallback    PriceCallback
	callbackInterval uint64
}

// New builds a Generator targeting book, anchored at basePrice.
func New(b *book.OrderBook, basePrice float64) *Generator {
	g := &Generator{
		book:             b,
		basePrice:        basePrice,
		callbackInterval: defaultCallbackInterval,
	}
	g.stats.seed(basePrice)
	return g
}

// SetPriceCallback installs a hook fired every interval generated orders.
// interval of 0 keeps the previous interval.
func (g *Generator) SetPriceCallback(cb PriceCallback, interval uint64) {
	g.priceCallback = cb
	if interval > 0 {
		g.callbackInterval = interval
	}
}

// Stats returns the live stats block. Safe to read concurrently with Start.
func (g *Generator) Stats() *Stats { return &g.stats }

// Start launches the generation loop targeting targetOPS orders per second.
// Calling Start twice on an already-running Generator is a no-op.
func (g *Generator) Start(targetOPS uint64) bool {
	if g.stats.running.Swap(true) {
		return false
	}
	g.targetOPS = targetOPS

	g.t.Go(func() error {
		g.run()
		return nil
	})
	return true
}

// Stop signals the generation loop to exit and blocks until it has.
func (g *Generator) Stop() error {
	g.stats.running.Store(false)
	g.t.Kill(nil)
	return g.t.Wait()
}

func (g *Generator) run() {
	log.Info().Float64("basePrice", g.basePrice).Msg("simulator starting")

	currentPrice := g.basePrice
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	startTime := time.Now()
	var orderCount, lastCallback uint64

	for g.stats.running.Load() {
		select {
		case <-g.t.Dying():
			return
		default:
		}

		for i := 0; i < batchSize && g.stats.running.Load(); i++ {
			currentPrice = g.step(currentPrice, rng)
			orderCount++
			g.stats.ordersGenerated.Add(1)

			if g.priceCallback != nil && orderCount-lastCallback >= g.callbackInterval {
				g.priceCallback(currentPrice, orderCount)
				lastCallback = orderCount
			}
		}

		elapsed := time.Since(startTime).Seconds()
		if elapsed > 0 {
			g.stats.ordersPerSecond.Store(float64(orderCount) / elapsed)
		}

		if g.targetOPS > 0 {
			expected := float64(orderCount) / float64(g.targetOPS)
			if elapsed < expected {
				time.Sleep(time.Duration((expected - elapsed) * float64(time.Second)))
			}
		}

		g.stats.tradesExecuted.Store(g.book.TradeCount())
	}

	log.Info().Uint64("orders", orderCount).Msg("simulator stopped")
}

// step evolves the reference price by one random-walk-plus-mean-reversion
// tick, submits one order derived from it, and returns the new reference
// price.
func (g *Generator) step(currentPrice float64, rng *rand.Rand) float64 {
	priceChange := (rng.Float64()*2 - 1) * priceMoveRange
	currentPrice *= 1 + priceChange

	reversion := (g.basePrice - currentPrice) * meanReversion
	currentPrice += reversion

	g.stats.recordPrice(currentPrice)

	side := book.Bid
	if rng.Intn(2) == 1 {
		side = book.Ask
	}
	spread := minSpreadFactor + rng.Float64()*(maxSpreadFactor-minSpreadFactor)

	price := currentPrice + spread
	if side == book.Bid {
		price = currentPrice - spread
	}
	size := minOrderSize + rng.Float64()*(maxOrderSize-minOrderSize)

	if _, err := g.book.Add(side, price, size); err != nil {
		log.Debug().Err(err).Msg("generated order rejected")
	}

	return currentPrice
}
