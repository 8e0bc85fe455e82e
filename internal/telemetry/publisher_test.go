package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
	"fenrir/internal/simulator"
)

type fakeBroadcaster struct {
	mu      sync.Mutex
	clients int
	payload [][]byte
}

func (f *fakeBroadcaster) Broadcast(payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payload = append(f.payload, payload)
}

func (f *fakeBroadcaster) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients
}

func (f *fakeBroadcaster) setClients(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients = n
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payload)
}

func TestPublisherSkipsBroadcastWithNoClients(t *testing.T) {
	fb := &fakeBroadcaster{}
	b := book.New()
	gen := simulator.New(b, 92000.00)

	p := New(fb, b, gen.Stats(), "BTCUSDT")
	p.SetInterval(20)
	p.Start()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, p.Stop())

	assert.Zero(t, fb.count())
}

func TestPublisherBroadcastsWhenClientsConnected(t *testing.T) {
	fb := &fakeBroadcaster{}
	fb.setClients(1)
	b := book.New()
	gen := simulator.New(b, 92000.00)

	p := New(fb, b, gen.Stats(), "BTCUSDT")
	p.SetInterval(10)
	p.Start()

	require.Eventually(t, func() bool {
		return fb.count() > 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop())

	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.Contains(t, string(fb.payload[0]), `"symbol":"BTCUSDT"`)
}
