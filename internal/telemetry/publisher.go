package telemetry

import (
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/book"
	"fenrir/internal/simulator"
)

// defaultBroadcastIntervalMs is 20 updates/sec, matching the original
// engine's telemetry cadence.
const defaultBroadcastIntervalMs = 50

// broadcaster is the subset of transport.Server a Publisher needs. Kept
// narrow so tests can fake it without spinning up a real listener.
type broadcaster interface {
	Broadcast(payload []byte)
	ClientCount() int
}

// clock returns the current time in milliseconds since epoch. Publisher
// holds one as a field rather than calling time.Now() directly so tests can
// control it.
type clock func() int64

func defaultClock() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// Publisher periodically samples an order book and a simulator's stats and
// broadcasts the result as a single telemetry Record over a broadcaster.
type Publisher struct {
	t tomb.Tomb

	book   *book.OrderBook
	stats  *simulator.Stats
	server broadcaster
	symbol string

	intervalMs int64
	now        clock
}

// New builds a Publisher for symbol, sampling b and stats and broadcasting
// through server at the default interval.
func New(server broadcaster, b *book.OrderBook, stats *simulator.Stats, symbol string) *Publisher {
	return &Publisher{
		book:       b,
		stats:      stats,
		server:     server,
		symbol:     symbol,
		intervalMs: defaultBroadcastIntervalMs,
		now:        defaultClock,
	}
}

// SetInterval overrides the default broadcast interval.
func (p *Publisher) SetInterval(ms int64) {
	if ms > 0 {
		p.intervalMs = ms
	}
}

// Start launches the broadcast loop.
func (p *Publisher) Start() {
	p.t.Go(func() error {
		p.run()
		return nil
	})
}

// Stop signals the broadcast loop to exit and waits for it.
func (p *Publisher) Stop() error {
	p.t.Kill(nil)
	return p.t.Wait()
}

func (p *Publisher) run() {
	log.Info().Int64("intervalMs", p.intervalMs).Msg("telemetry: publisher starting")
	interval := time.Duration(p.intervalMs) * time.Millisecond

	for {
		start := time.Now()

		select {
		case <-p.t.Dying():
			log.Info().Msg("telemetry: publisher stopped")
			return
		default:
		}

		if p.server.ClientCount() > 0 {
			p.broadcastOnce()
		}

		elapsed := time.Since(start)
		sleepFor := interval - elapsed
		if sleepFor > 0 {
			select {
			case <-time.After(sleepFor):
			case <-p.t.Dying():
				return
			}
		}
	}
}

func (p *Publisher) broadcastOnce() {
	r := &Record{
		TimestampMs:     p.now(),
		Symbol:          p.symbol,
		Price:           p.stats.CurrentPrice(),
		High:            p.stats.HighPrice(),
		Low:             p.stats.LowPrice(),
		OrdersPerSecond: p.stats.OrdersPerSecond(),
		TotalOrders:     p.stats.OrdersGenerated(),
		TotalTrades:     p.stats.TradesExecuted(),
	}
	FromBook(r, p.book)

	payload, err := r.MarshalJSON()
	if err != nil {
		log.Error().Err(err).Msg("telemetry: failed to marshal record")
		return
	}
	p.server.Broadcast(payload)
}
