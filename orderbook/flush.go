package orderbook

import (
	"github.com/tembolo1284/matchengine/arena"
	"github.com/tembolo1284/matchengine/domain"
)

// FlushBatchSize is the default per-call budget for the iterative Flush
// (§4.8), bounding the tail latency a single Flush call can impose on a
// shard that is still processing other symbols.
const FlushBatchSize = 256

type sidePhase uint8

const (
	phaseBids sidePhase = iota
	phaseAsks
	phaseDone
)

// flushState is the book's resumable position within an in-progress
// iterative Flush (§4.8: "the book carries a small flush_state
// {current_level, current_order, side_phase, in_progress}"). Because
// Remove always compacts the level array, the order and level currently
// being drained are always at index 0 of the active side, so no explicit
// level/order cursor is needed beyond the phase itself.
type flushState struct {
	inProgress bool
	phase      sidePhase
}

// Flush drains up to budget resting orders, emitting one CancelAck per
// order, and reports whether the book is now fully flushed. Call
// repeatedly with done == false to finish an iterative flush without
// blocking a shard for the whole book's size.
func (b *OrderBook) Flush(budget int) (out []domain.OutputMessage, done bool) {
	if !b.flushState.inProgress {
		b.flushState = flushState{inProgress: true, phase: phaseBids}
	}

	out = make([]domain.OutputMessage, 0, budget)
	for len(out) < budget {
		li := b.activeSide()
		if li == nil {
			out = append(out, b.finalizeFlush()...)
			return out, true
		}

		lvl, ok := li.Best()
		if !ok {
			b.advancePhase()
			continue
		}

		out = append(out, b.popOneForFlush(li, lvl))
	}
	return out, false
}

// FlushAtomic drains the entire book in one call. It is equivalent to
// calling Flush with an unbounded budget, producing the identical final
// state and output multiset as the iterative form — acceptable because
// each shard's engine is single-threaded, so nothing observes the
// intermediate state either way (§4.8).
func (b *OrderBook) FlushAtomic() []domain.OutputMessage {
	var out []domain.OutputMessage
	for {
		batch, done := b.Flush(FlushBatchSize)
		out = append(out, batch...)
		if done {
			return out
		}
	}
}

func (b *OrderBook) activeSide() *LevelIndex {
	switch b.flushState.phase {
	case phaseBids:
		return b.Bids
	case phaseAsks:
		return b.Asks
	default:
		return nil
	}
}

func (b *OrderBook) advancePhase() {
	if b.flushState.phase == phaseBids {
		b.flushState.phase = phaseAsks
	} else {
		b.flushState.phase = phaseDone
	}
}

func (b *OrderBook) popOneForFlush(li *LevelIndex, lvl *PriceLevel) domain.OutputMessage {
	slot := lvl.Head
	order := b.pool.Get(slot)

	ack := domain.OutputMessage{
		Kind: domain.KindCancelAck,
		CancelAck: domain.CancelAckMsg{
			Symbol:      b.Symbol,
			UserID:      order.UserID,
			UserOrderID: order.UserOrderID,
		},
	}

	b.unlinkFromFIFO(li, 0, slot, order)
	b.orders.Remove(order.Key())
	b.pool.Free(slot)
	if lvl.Head == arena.NoSlot {
		li.Remove(0)
	}
	return ack
}

// finalizeFlush runs once both sides have drained: it forces the
// eliminated top-of-book sentinel for any side that was ever active and
// resets flush tracking so the book can accept a fresh Flush later.
func (b *OrderBook) finalizeFlush() []domain.OutputMessage {
	b.Bids.Reset()
	b.Asks.Reset()
	out := b.forceEliminations()
	b.flushState = flushState{}
	return out
}
