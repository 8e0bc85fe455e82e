package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
)

func TestRecordMarshalJSONFieldShapeAndPrecision(t *testing.T) {
	r := &Record{
		TimestampMs:     1700000000000,
		Symbol:          "BTCUSDT",
		Price:           92000.123,
		High:            92500,
		Low:             91500,
		BestBid:         91999.5,
		BestAsk:         92000.5,
		Spread:          1,
		MidPrice:        92000,
		OrdersPerSecond: 123456.789,
		TotalOrders:     42,
		TotalTrades:     7,
		Bids:            []DepthLevel{{Price: 91999.5, Size: 1.23456}},
		Asks:            []DepthLevel{{Price: 92000.5, Size: 0.5}},
	}

	out, err := r.MarshalJSON()
	require.NoError(t, err)
	json := string(out)

	assert.Contains(t, json, `"type":"telemetry"`)
	assert.Contains(t, json, `"timestamp":1700000000000`)
	assert.Contains(t, json, `"symbol":"BTCUSDT"`)
	assert.Contains(t, json, `"price":92000.12`)
	assert.Contains(t, json, `"high":92500.00`)
	assert.Contains(t, json, `"low":91500.00`)
	assert.Contains(t, json, `"bestBid":91999.50`)
	assert.Contains(t, json, `"bestAsk":92000.50`)
	assert.Contains(t, json, `"ordersPerSecond":123457`)
	assert.Contains(t, json, `"totalOrders":42`)
	assert.Contains(t, json, `"totalTrades":7`)
	assert.Contains(t, json, `"bids":[{"price":91999.50,"size":1.2346}]`)
	assert.Contains(t, json, `"asks":[{"price":92000.50,"size":0.5000}]`)
	assert.True(t, len(json) > 0 && json[len(json)-1] == '}')
}

func TestRecordMarshalJSONEmptyDepth(t *testing.T) {
	r := &Record{Symbol: "BTCUSDT"}
	out, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"bids":[],"asks":[]`)
}

func TestFromBookCapsDepthAtTenLevels(t *testing.T) {
	b := book.New()
	for i := 0; i < 15; i++ {
		_, err := b.Add(book.Bid, 100.00-float64(i)*0.01, 1)
		require.NoError(t, err)
	}

	r := &Record{}
	FromBook(r, b)
	assert.Len(t, r.Bids, 10)
}
