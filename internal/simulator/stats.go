package simulator

import (
	"math"
	"sync/atomic"
)

// atomicFloat64 stores a float64 behind an atomic.Uint64, following the same
// bit-reinterpretation trick atomic.Value would need a wrapper struct for.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (f *atomicFloat64) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat64) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

// Stats is a lock-free, best-effort snapshot of a running Generator. Each
// field is independently atomic; callers reading multiple fields in one
// observation may see them from slightly different instants.
type Stats struct {
	ordersGenerated atomic.Uint64
	tradesExecuted  atomic.Uint64
	currentPrice    atomicFloat64
	highPrice       atomicFloat64
	lowPrice        atomicFloat64
	ordersPerSecond atomicFloat64
	running         atomic.Bool
}

func (s *Stats) OrdersGenerated() uint64 { return s.ordersGenerated.Load() }
func (s *Stats) TradesExecuted() uint64  { return s.tradesExecuted.Load() }
func (s *Stats) CurrentPrice() float64   { return s.currentPrice.Load() }
func (s *Stats) HighPrice() float64      { return s.highPrice.Load() }
func (s *Stats) LowPrice() float64       { return s.lowPrice.Load() }
func (s *Stats) OrdersPerSecond() float64 { return s.ordersPerSecond.Load() }
func (s *Stats) Running() bool           { return s.running.Load() }

func (s *Stats) seed(price float64) {
	s.currentPrice.Store(price)
	s.highPrice.Store(price)
	s.lowPrice.Store(price)
}

func (s *Stats) recordPrice(price float64) {
	s.currentPrice.Store(price)
	if price > s.highPrice.Load() {
		s.highPrice.Store(price)
	}
	if price < s.lowPrice.Load() {
		s.lowPrice.Store(price)
	}
}
