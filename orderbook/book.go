// Package orderbook implements one symbol's limit order book: the
// price-level index on each side, the per-book order map, top-of-book
// change detection, and the matching/cancel/flush operations (§4.3-§4.8).
package orderbook

import (
	"github.com/tembolo1284/matchengine/arena"
	"github.com/tembolo1284/matchengine/domain"
	"github.com/tembolo1284/matchengine/index"
)

// MaxMatchIterations and MaxOrdersAtPriceLevel bound the matching loops
// (§4.4 point 6) purely as safety rails against a malformed book; real
// books never approach these figures.
const (
	MaxMatchIterations    = 1_000_000
	MaxOrdersAtPriceLevel = 100_000
)

// Location is the value stored in an OrderBook's order map: where to find
// a resting order (§3, OrderMap slot).
type Location struct {
	Side  domain.Side
	Price uint32
	Slot  arena.Slot
}

// OrderBook is one symbol's book: sorted price levels on each side, the
// order map, and top-of-book tracking state. It is created lazily by
// MatchingEngine on first order for a symbol and lives until engine
// teardown (§3).
type OrderBook struct {
	Symbol string

	pool *arena.Pool
	Bids *LevelIndex // descending
	Asks *LevelIndex // ascending

	orders *index.Table[uint64, Location]

	prevBidPrice, prevAskPrice uint32
	prevBidQty, prevAskQty     uint64
	bidEverActive, askEverActive bool

	flushState flushState

	// EmitRejectOnCapacityExhaustion switches the behaviour on arena/level
	// exhaustion between a silent drop-with-counter and an explicit Reject
	// message (§7's "(Implementers may choose to emit a Reject message...)").
	EmitRejectOnCapacityExhaustion bool
}

// New creates an empty book for symbol, backed by pool and sized for
// orderMapCapacity resting orders.
func New(symbol string, pool *arena.Pool, orderMapCapacity int) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		pool:   pool,
		Bids:   NewLevelIndex(true),
		Asks:   NewLevelIndex(false),
		orders: index.New[uint64, Location](orderMapCapacity, index.HashUint64, 0),
	}
}

// levelIndexFor returns the LevelIndex for side.
func (b *OrderBook) levelIndexFor(side domain.Side) *LevelIndex {
	if side == domain.Buy {
		return b.Bids
	}
	return b.Asks
}

// unlinkFromFIFO removes slot from its level's doubly-linked FIFO and
// updates the level's aggregate quantity. It does not remove an emptied
// level — callers do that once they know whether they're also about to
// reinsert (matching) or are done for good (cancel/flush).
func (b *OrderBook) unlinkFromFIFO(li *LevelIndex, idx int, slot arena.Slot, order *arena.Order) {
	level := li.At(idx)
	if order.Prev != arena.NoSlot {
		b.pool.Get(order.Prev).Next = order.Next
	} else {
		level.Head = order.Next
	}
	if order.Next != arena.NoSlot {
		b.pool.Get(order.Next).Prev = order.Prev
	} else {
		level.Tail = order.Prev
	}
	level.TotalQty -= uint64(order.RemainingQty)
	order.Prev, order.Next = arena.NoSlot, arena.NoSlot
}

// appendToFIFO appends slot to the tail of the level's FIFO (§4.3, "append
// to FIFO tail" — time priority).
func (b *OrderBook) appendToFIFO(li *LevelIndex, idx int, slot arena.Slot, order *arena.Order) {
	level := li.At(idx)
	order.Prev = level.Tail
	order.Next = arena.NoSlot
	if level.Tail != arena.NoSlot {
		b.pool.Get(level.Tail).Next = slot
	} else {
		level.Head = slot
	}
	level.Tail = slot
	level.TotalQty += uint64(order.RemainingQty)
}

// PriceLevelView is a read-only depth row (§5 supplemented Depth query).
type PriceLevelView struct {
	Price    uint32
	Quantity uint64
	Orders   int
}

// Depth returns up to n price levels on each side, best first. It is a
// read-only diagnostic, never called from the matching hot path.
func (b *OrderBook) Depth(n int) (bids, asks []PriceLevelView) {
	bids = depthOf(b, b.Bids, n)
	asks = depthOf(b, b.Asks, n)
	return bids, asks
}

func depthOf(b *OrderBook, li *LevelIndex, n int) []PriceLevelView {
	if n > li.Len() {
		n = li.Len()
	}
	out := make([]PriceLevelView, n)
	for i := 0; i < n; i++ {
		level := li.At(i)
		count := 0
		for s := level.Head; s != arena.NoSlot; s = b.pool.Get(s).Next {
			count++
		}
		out[i] = PriceLevelView{Price: level.Price, Quantity: level.TotalQty, Orders: count}
	}
	return out
}
