package orderbook

import (
	"github.com/emirpasic/gods/v2/queues/arrayqueue"

	"github.com/tembolo1284/matchengine/arena"
	"github.com/tembolo1284/matchengine/domain"
)

// Cancel implements §4.6: look up the order in the book's order map, and
// if found, unlink it from its FIFO, remove the level if it emptied, free
// its arena slot, and remove the map entry. A CancelAck is always
// returned, whether or not the order existed, so the caller can reply to
// the client unconditionally.
func (b *OrderBook) Cancel(userID, userOrderID uint32) []domain.OutputMessage {
	key := arena.CompositeKey(userID, userOrderID)
	out := make([]domain.OutputMessage, 0, 3)
	out = append(out, domain.OutputMessage{
		Kind: domain.KindCancelAck,
		CancelAck: domain.CancelAckMsg{
			UserID:      userID,
			UserOrderID: userOrderID,
		},
	})

	loc, ok := b.orders.Find(key)
	if !ok {
		return out
	}
	out[0].CancelAck.Symbol = b.Symbol

	li := b.levelIndexFor(loc.Side)
	idx, found := li.Find(loc.Price)
	if !found {
		// Map and level index disagree: treat as already-gone rather than panic.
		b.orders.Remove(key)
		return out
	}

	order := b.pool.Get(loc.Slot)
	b.unlinkFromFIFO(li, idx, loc.Slot, order)
	if li.At(idx).Head == arena.NoSlot {
		li.Remove(idx)
	}
	b.orders.Remove(key)
	b.pool.Free(loc.Slot)

	out = append(out, b.checkTOBChanges()...)
	return out
}

// CancelAllForClient implements §4.7's two-phase collect-then-apply
// cancel: the order map has no secondary index by client, so this first
// walks every resting order on both sides collecting the matches into a
// queue, then cancels each one. Collecting first avoids mutating a FIFO
// while iterating it.
func (b *OrderBook) CancelAllForClient(clientID uint32) []domain.OutputMessage {
	matches := arrayqueue.New[arena.Slot]()

	for _, li := range [...]*LevelIndex{b.Bids, b.Asks} {
		for i := 0; i < li.Len(); i++ {
			for s := li.At(i).Head; s != arena.NoSlot; s = b.pool.Get(s).Next {
				if b.pool.Get(s).ClientID == clientID {
					matches.Enqueue(s)
				}
			}
		}
	}

	var out []domain.OutputMessage
	for {
		slot, ok := matches.Dequeue()
		if !ok {
			break
		}
		order := b.pool.Get(slot)
		out = append(out, b.Cancel(order.UserID, order.UserOrderID)...)
	}
	return out
}
