package book

import (
	"container/list"
	"errors"
	"sync"

	"github.com/tidwall/btree"
)

var (
	// ErrInvalidPrice is returned by Add when price <= 0.
	ErrInvalidPrice = errors.New("book: price must be positive")
	// ErrInvalidQuantity is returned by Add when quantity <= 0.
	ErrInvalidQuantity = errors.New("book: quantity must be positive")
)

// priceLevel is one FIFO queue of resting orders at a single price.
type priceLevel struct {
	price  float64
	orders *list.List // of *Order, front is oldest (next to fill)
}

func newPriceLevel(price float64) *priceLevel {
	return &priceLevel{price: price, orders: list.New()}
}

func (l *priceLevel) totalQuantity() float64 {
	var total float64
	for e := l.orders.Front(); e != nil; e = e.Next() {
		total += e.Value.(*Order).Quantity
	}
	return total
}

type ladder = btree.BTreeG[*priceLevel]

func newBidLadder() *ladder {
	return btree.NewBTreeG(func(a, b *priceLevel) bool { return a.price > b.price })
}

func newAskLadder() *ladder {
	return btree.NewBTreeG(func(a, b *priceLevel) bool { return a.price < b.price })
}

// orderLocation lets Cancel find and remove a resting order in O(1).
type orderLocation struct {
	side  Side
	level *priceLevel
	elem  *list.Element
}

// Level is one aggregated entry of a depth snapshot: a price and the sum
// of quantities resting at it.
type Level struct {
	Price    float64
	Quantity float64
}

// OrderBook is a single-instrument, price-time-priority limit order book.
// It is not internally lock-free: a coarse mutex guards every public call,
// matching spec's recommended default of confining matching to one
// mutator while tolerating concurrent best-effort readers.
type OrderBook struct {
	mu sync.Mutex

	bids *ladder
	asks *ladder
	idx  map[int64]orderLocation

	nextID     int64
	tradeCount uint64
	lastPrice  float64

	onTrade TradeCallback
}

// New builds an empty order book.
func New() *OrderBook {
	return &OrderBook{
		bids: newBidLadder(),
		asks: newAskLadder(),
		idx:  make(map[int64]orderLocation),
	}
}

// SetTradeCallback installs the single sink invoked synchronously, on the
// caller's goroutine, for every trade produced while matching. Replaces
// any previously installed callback.
func (ob *OrderBook) SetTradeCallback(f TradeCallback) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.onTrade = f
}

// Add creates a new order and attempts to match it against the opposite
// ladder before resting any residual quantity on its own side. It returns
// the new order's id, or 0 if the order filled entirely during matching
// and never rested.
func (ob *OrderBook) Add(side Side, price, quantity float64) (int64, error) {
	if price <= 0 {
		return 0, ErrInvalidPrice
	}
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.nextID++
	order := &Order{
		ID:        ob.nextID,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		Timestamp: nowNanos(),
	}

	if side == Bid {
		ob.match(order, ob.asks)
	} else {
		ob.match(order, ob.bids)
	}

	if order.Filled() {
		return 0, nil
	}

	ob.rest(order)
	return order.ID, nil
}

// match crosses the incoming order against opposite, emitting a Trade for
// every fill in execution order before this call returns.
func (ob *OrderBook) match(incoming *Order, opposite *ladder) {
	for incoming.Quantity > 0 {
		level, ok := opposite.MinMut()
		if !ok {
			return
		}
		if incoming.Side == Bid && incoming.Price < level.price {
			return
		}
		if incoming.Side == Ask && incoming.Price > level.price {
			return
		}

		for incoming.Quantity > 0 {
			front := level.orders.Front()
			if front == nil {
				break
			}
			maker := front.Value.(*Order)

			fillQty := minFloat(incoming.Quantity, maker.Quantity)
			fillPrice := level.price // maker's price wins

			incoming.Quantity -= fillQty
			maker.Quantity -= fillQty
			ob.recordTrade(incoming, maker, fillPrice, fillQty)

			if maker.Filled() {
				delete(ob.idx, maker.ID)
				level.orders.Remove(front)
			}
		}

		if level.orders.Len() == 0 {
			opposite.Delete(level)
		}
	}
}

func (ob *OrderBook) recordTrade(incoming, maker *Order, price, qty float64) {
	ob.tradeCount++
	ob.lastPrice = price

	var t Trade
	if incoming.Side == Bid {
		t = Trade{BidOrderID: incoming.ID, AskOrderID: maker.ID, Price: price, Quantity: qty, Timestamp: nowNanos()}
	} else {
		t = Trade{BidOrderID: maker.ID, AskOrderID: incoming.ID, Price: price, Quantity: qty, Timestamp: nowNanos()}
	}
	if ob.onTrade != nil {
		ob.onTrade(t)
	}
}

// rest pushes a residual order onto the tail of its own-side queue,
// creating the price level if absent, and records its location.
func (ob *OrderBook) rest(order *Order) {
	own := ob.bids
	if order.Side == Ask {
		own = ob.asks
	}

	level, ok := own.GetMut(&priceLevel{price: order.Price})
	if !ok {
		level = newPriceLevel(order.Price)
		own.Set(level)
	}
	elem := level.orders.PushBack(order)
	ob.idx[order.ID] = orderLocation{side: order.Side, level: level, elem: elem}
}

// Cancel removes a resting order by id. Returns false if the id is not
// currently resting (never existed, already filled, or already canceled).
func (ob *OrderBook) Cancel(id int64) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	loc, ok := ob.idx[id]
	if !ok {
		return false
	}

	loc.level.orders.Remove(loc.elem)
	if loc.level.orders.Len() == 0 {
		own := ob.bids
		if loc.side == Ask {
			own = ob.asks
		}
		own.Delete(loc.level)
	}
	delete(ob.idx, id)
	return true
}

// BestBid returns the highest resting bid price, or 0 if the bid side is
// empty.
func (ob *OrderBook) BestBid() float64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	if level, ok := ob.bids.MinMut(); ok {
		return level.price
	}
	return 0
}

// BestAsk returns the lowest resting ask price, or 0 if the ask side is
// empty.
func (ob *OrderBook) BestAsk() float64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	if level, ok := ob.asks.MinMut(); ok {
		return level.price
	}
	return 0
}

// Spread returns BestAsk-BestBid, or 0 if either side is empty.
func (ob *OrderBook) Spread() float64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	bid, bidOK := ob.bids.MinMut()
	ask, askOK := ob.asks.MinMut()
	if !bidOK || !askOK {
		return 0
	}
	return ask.price - bid.price
}

// MidPrice returns the arithmetic mean of best bid and ask if both sides
// are populated, otherwise the last traded price (0 if there has been
// none).
func (ob *OrderBook) MidPrice() float64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	bid, bidOK := ob.bids.MinMut()
	ask, askOK := ob.asks.MinMut()
	if bidOK && askOK {
		return (bid.price + ask.price) / 2
	}
	return ob.lastPrice
}

// TopBids returns up to n (price, aggregated quantity) pairs, best first.
func (ob *OrderBook) TopBids(n int) []Level {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return topLevels(ob.bids, n)
}

// TopAsks returns up to n (price, aggregated quantity) pairs, best first.
func (ob *OrderBook) TopAsks(n int) []Level {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return topLevels(ob.asks, n)
}

func topLevels(l *ladder, n int) []Level {
	items := l.Items()
	if n > len(items) {
		n = len(items)
	}
	out := make([]Level, n)
	for i := 0; i < n; i++ {
		out[i] = Level{Price: items[i].price, Quantity: items[i].totalQuantity()}
	}
	return out
}

// TradeCount returns the number of trades executed since construction or
// the last Clear.
func (ob *OrderBook) TradeCount() uint64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.tradeCount
}

// OrderCount returns the number of orders ever accepted by Add, including
// ones that filled immediately and never rested.
func (ob *OrderBook) OrderCount() uint64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return uint64(ob.nextID)
}

// Clear drops both ladders, the id index, and the trade counter. The id
// allocator is left untouched so future ids stay unique for the life of
// the process.
func (ob *OrderBook) Clear() {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.bids = newBidLadder()
	ob.asks = newAskLadder()
	ob.idx = make(map[int64]orderLocation)
	ob.tradeCount = 0
	ob.lastPrice = 0
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
