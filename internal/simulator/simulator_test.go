package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
)

func TestGeneratorStatsSeededAtBasePrice(t *testing.T) {
	g := New(book.New(), 92000.00)
	assert.Equal(t, 92000.00, g.Stats().CurrentPrice())
	assert.Equal(t, 92000.00, g.Stats().HighPrice())
	assert.Equal(t, 92000.00, g.Stats().LowPrice())
	assert.False(t, g.Stats().Running())
}

func TestGeneratorStartStopLifecycle(t *testing.T) {
	b := book.New()
	g := New(b, 92000.00)

	require.True(t, g.Start(50000))
	assert.False(t, g.Start(50000), "second Start on a running Generator must be a no-op")

	require.Eventually(t, func() bool {
		return g.Stats().OrdersGenerated() > 0
	}, time.Second, time.Millisecond)

	require.NoError(t, g.Stop())
	assert.False(t, g.Stats().Running())

	assert.Greater(t, b.OrderCount(), uint64(0))
}

func TestGeneratorPriceCallbackFires(t *testing.T) {
	g := New(book.New(), 92000.00)

	var calls int
	g.SetPriceCallback(func(price float64, count uint64) {
		calls++
	}, 10)

	require.True(t, g.Start(100000))
	require.Eventually(t, func() bool {
		return calls > 0
	}, time.Second, time.Millisecond)
	require.NoError(t, g.Stop())
}

func TestAtomicFloat64RoundTrips(t *testing.T) {
	var f atomicFloat64
	f.Store(3.14159)
	assert.InDelta(t, 3.14159, f.Load(), 1e-12)

	f.Store(-92000.50)
	assert.InDelta(t, -92000.50, f.Load(), 1e-9)
}
