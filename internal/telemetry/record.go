// Package telemetry builds and broadcasts periodic JSON snapshots of a
// running market: price, depth, and throughput, shaped for a browser chart
// to consume directly off the wire.
package telemetry

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fenrir/internal/book"
)

// maxDepthLevels bounds how many price levels per side a Record carries.
const maxDepthLevels = 10

// DepthLevel is one {price, size} entry in a Record's bid/ask arrays.
type DepthLevel struct {
	Price float64
	Size  float64
}

// Record is a single point-in-time snapshot of the market, market
// generator, and book depth. Its JSON encoding is hand-built rather than
// produced with encoding/json so every numeric field gets an exact fixed
// number of decimal digits instead of Go's shortest round-trippable
// representation.
type Record struct {
	TimestampMs int64
	Symbol      string

	Price float64
	High  float64
	Low   float64

	BestBid  float64
	BestAsk  float64
	Spread   float64
	MidPrice float64

	OrdersPerSecond float64
	TotalOrders     uint64
	TotalTrades     uint64

	Bids []DepthLevel
	Asks []DepthLevel
}

// FromBook builds a Record's book-derived fields from live book state,
// capping depth to maxDepthLevels per side.
func FromBook(r *Record, b *book.OrderBook) {
	r.BestBid = b.BestBid()
	r.BestAsk = b.BestAsk()
	r.Spread = b.Spread()
	r.MidPrice = b.MidPrice()
	r.Bids = toDepthLevels(b.TopBids(maxDepthLevels))
	r.Asks = toDepthLevels(b.TopAsks(maxDepthLevels))
}

func toDepthLevels(levels []book.Level) []DepthLevel {
	out := make([]DepthLevel, len(levels))
	for i, l := range levels {
		out[i] = DepthLevel{Price: l.Price, Size: l.Quantity}
	}
	return out
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// MarshalJSON renders the record in the exact field order and decimal
// precision the telemetry schema specifies: two digits for price-like
// fields, four for depth sizes, zero for ordersPerSecond.
func (r *Record) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteString(`{"type":"telemetry","timestamp":`)
	b.WriteString(strconv.FormatInt(r.TimestampMs, 10))
	b.WriteString(`,"symbol":"`)
	b.WriteString(r.Symbol)
	b.WriteString(`","price":`)
	b.WriteString(fixed(r.Price, 2))
	b.WriteString(`,"high":`)
	b.WriteString(fixed(r.High, 2))
	b.WriteString(`,"low":`)
	b.WriteString(fixed(r.Low, 2))
	b.WriteString(`,"bestBid":`)
	b.WriteString(fixed(r.BestBid, 2))
	b.WriteString(`,"bestAsk":`)
	b.WriteString(fixed(r.BestAsk, 2))
	b.WriteString(`,"spread":`)
	b.WriteString(fixed(r.Spread, 2))
	b.WriteString(`,"midPrice":`)
	b.WriteString(fixed(r.MidPrice, 2))
	b.WriteString(`,"ordersPerSecond":`)
	b.WriteString(fixed(r.OrdersPerSecond, 0))
	b.WriteString(`,"totalOrders":`)
	b.WriteString(strconv.FormatUint(r.TotalOrders, 10))
	b.WriteString(`,"totalTrades":`)
	b.WriteString(strconv.FormatUint(r.TotalTrades, 10))
	b.WriteString(`,"bids":[`)
	writeDepth(&b, r.Bids)
	b.WriteString(`],"asks":[`)
	writeDepth(&b, r.Asks)
	b.WriteString(`]}`)
	return []byte(b.String()), nil
}

func writeDepth(b *strings.Builder, levels []DepthLevel) {
	for i, l := range levels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`{"price":`)
		b.WriteString(fixed(l.Price, 2))
		b.WriteString(`,"size":`)
		b.WriteString(fixed(l.Size, 4))
		b.WriteByte('}')
	}
}
