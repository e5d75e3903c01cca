// Package matching ties together the per-symbol order books into the
// multi-symbol engine a shard processor drives (§4.9): symbol lookup,
// order routing, cancel resolution (with or without a known symbol), and
// whole-engine flush.
package matching

import (
	"errors"

	"github.com/tembolo1284/matchengine/arena"
	"github.com/tembolo1284/matchengine/domain"
	"github.com/tembolo1284/matchengine/index"
	"github.com/tembolo1284/matchengine/orderbook"
)

// MaxSymbols bounds the number of distinct symbols one engine (one shard)
// may hold books for (§4.9). Books live in a fixed, contiguous array so
// indices stay stable for the lifetime of the engine.
const MaxSymbols = 64

// DefaultOrderMapCapacity sizes each book's per-symbol order map.
const DefaultOrderMapCapacity = 1 << 16

// DefaultArenaCapacity sizes each book's arena slab.
const DefaultArenaCapacity = 1 << 16

// ErrTooManySymbols is returned by GetOrCreateBook when MaxSymbols books
// already exist and symbol is not one of them.
var ErrTooManySymbols = errors.New("matching: symbol table full")

// Engine owns every order book handled by one shard, plus the two
// open-addressed maps that let it resolve a symbol-less cancel and find a
// book by symbol in O(1) (§3, §4.9).
type Engine struct {
	books       [MaxSymbols]*orderbook.OrderBook
	bookCount   int
	symbolIndex *index.Table[string, int] // symbol -> index into books[]
	orderSymbol *index.Table[uint64, string] // composite order key -> symbol

	orderMapCapacity int
	arenaCapacity    int
	clock            func() int64

	// EmitRejectOnCapacityExhaustion is propagated to every book created by
	// this engine (§7).
	EmitRejectOnCapacityExhaustion bool
}

// New creates an empty engine. clock feeds each book's arena with a
// monotonic timestamp source; pass nil in tests that don't care.
func New(clock func() int64) *Engine {
	return &Engine{
		symbolIndex:      index.New[string, int](MaxSymbols, index.HashString, 0),
		orderSymbol:      index.New[uint64, string](DefaultOrderMapCapacity, index.HashUint64, 0),
		orderMapCapacity: DefaultOrderMapCapacity,
		arenaCapacity:    DefaultArenaCapacity,
		clock:            clock,
	}
}

// GetOrCreateBook returns the book for symbol, creating it (and a fresh
// arena) on first use (§3: "created lazily by the engine on first order").
func (e *Engine) GetOrCreateBook(symbol string) (*orderbook.OrderBook, error) {
	if idx, ok := e.symbolIndex.Find(symbol); ok {
		return e.books[idx], nil
	}
	if e.bookCount >= MaxSymbols {
		return nil, ErrTooManySymbols
	}

	pool := arena.NewPool(e.arenaCapacity, e.clock)
	book := orderbook.New(symbol, pool, e.orderMapCapacity)
	book.EmitRejectOnCapacityExhaustion = e.EmitRejectOnCapacityExhaustion

	idx := e.bookCount
	e.books[idx] = book
	e.bookCount++
	e.symbolIndex.Insert(symbol, idx)
	return book, nil
}

// BookFor returns the existing book for symbol, if any.
func (e *Engine) BookFor(symbol string) (*orderbook.OrderBook, bool) {
	idx, ok := e.symbolIndex.Find(symbol)
	if !ok {
		return nil, false
	}
	return e.books[idx], true
}

// ProcessNewOrder routes msg to its symbol's book (creating it if needed),
// records the order's symbol for later symbol-less cancels, and returns
// the resulting output messages (§4.9 point 2).
func (e *Engine) ProcessNewOrder(msg domain.NewOrderMsg, clientID uint32) []domain.OutputMessage {
	if !domain.ValidSymbol(msg.Symbol) {
		return []domain.OutputMessage{{
			Kind: domain.KindReject,
			Reject: domain.RejectMsg{
				Symbol:      msg.Symbol,
				UserID:      msg.UserID,
				UserOrderID: msg.UserOrderID,
				Reason:      domain.RejectInvalidSymbol,
			},
		}}
	}

	book, err := e.GetOrCreateBook(msg.Symbol)
	if err != nil {
		return []domain.OutputMessage{{
			Kind: domain.KindReject,
			Reject: domain.RejectMsg{
				Symbol:      msg.Symbol,
				UserID:      msg.UserID,
				UserOrderID: msg.UserOrderID,
				Reason:      domain.RejectSymbolTableFull,
			},
		}}
	}

	out := book.ProcessNewOrder(msg, clientID)
	e.orderSymbol.Insert(arena.CompositeKey(msg.UserID, msg.UserOrderID), msg.Symbol)
	return out
}

// ProcessCancel implements §4.9 point 3: if msg.Symbol is given, route
// directly; otherwise resolve it via the order_key->symbol map. If the
// order can't be resolved to any known book, a CancelAck is still
// returned (§4.6 is unconditional) with no book-level side effects.
func (e *Engine) ProcessCancel(msg domain.CancelMsg) []domain.OutputMessage {
	symbol := msg.Symbol
	if symbol == "" {
		key := arena.CompositeKey(msg.UserID, msg.UserOrderID)
		resolved, ok := e.orderSymbol.Find(key)
		if !ok {
			return []domain.OutputMessage{{
				Kind: domain.KindCancelAck,
				CancelAck: domain.CancelAckMsg{
					UserID:      msg.UserID,
					UserOrderID: msg.UserOrderID,
				},
			}}
		}
		symbol = resolved
	}

	book, ok := e.BookFor(symbol)
	if !ok {
		return []domain.OutputMessage{{
			Kind: domain.KindCancelAck,
			CancelAck: domain.CancelAckMsg{
				Symbol:      symbol,
				UserID:      msg.UserID,
				UserOrderID: msg.UserOrderID,
			},
		}}
	}

	out := book.Cancel(msg.UserID, msg.UserOrderID)
	e.orderSymbol.Remove(arena.CompositeKey(msg.UserID, msg.UserOrderID))
	return out
}

// CancelAllForClient cancels every resting order for clientID across every
// book the engine holds (§4.7 extended to the whole engine, since a
// client's orders can span symbols).
func (e *Engine) CancelAllForClient(clientID uint32) []domain.OutputMessage {
	var out []domain.OutputMessage
	for i := 0; i < e.bookCount; i++ {
		out = append(out, e.books[i].CancelAllForClient(clientID)...)
	}
	return out
}

// ProcessFlush implements §4.9 point 4: flush every book atomically and
// clear the engine-wide order_key->symbol map, since every resting order
// is now gone.
func (e *Engine) ProcessFlush() []domain.OutputMessage {
	var out []domain.OutputMessage
	for i := 0; i < e.bookCount; i++ {
		out = append(out, e.books[i].FlushAtomic()...)
	}
	e.orderSymbol = index.New[uint64, string](e.orderMapCapacity, index.HashUint64, 0)
	return out
}

// SymbolCount returns the number of distinct symbols with a book.
func (e *Engine) SymbolCount() int { return e.bookCount }
