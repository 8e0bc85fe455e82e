package book

import (
	"math/rand"
	"testing"
)

// BenchmarkAddRestingOnly measures pure insertion cost with no crossing
// (every order rests), exercising btree Set/GetMut on a growing ladder.
func BenchmarkAddRestingOnly(b *testing.B) {
	ob := New()
	rng := rand.New(rand.NewSource(1))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		price := 100.00 - float64(i%5000)*0.01
		_, _ = ob.Add(Bid, price, 1+rng.Float64())
	}
}

// BenchmarkAddCrossing alternates bid/ask at the same price so every ask
// matches the bid resting just before it, exercising the match sweep and
// trade callback path.
func BenchmarkAddCrossing(b *testing.B) {
	ob := New()
	var trades uint64
	ob.SetTradeCallback(func(Trade) { trades++ })
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%2 == 0 {
			_, _ = ob.Add(Bid, 100.00, 1)
		} else {
			_, _ = ob.Add(Ask, 100.00, 1)
		}
	}
	b.StopTimer()
	b.ReportMetric(float64(trades)/b.Elapsed().Seconds(), "trades/sec")
}

// BenchmarkDeepBookSweep primes a deep multi-level book then measures a
// single sweeping aggressor order that walks many levels.
func BenchmarkDeepBookSweep(b *testing.B) {
	const levels = 200
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		ob := New()
		for l := 0; l < levels; l++ {
			_, _ = ob.Add(Ask, 100.00+float64(l)*0.01, 1)
		}
		b.StartTimer()
		_, _ = ob.Add(Bid, 100.00+float64(levels)*0.01, float64(levels))
	}
}
