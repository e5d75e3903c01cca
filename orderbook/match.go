package orderbook

import (
	"github.com/tembolo1284/matchengine/arena"
	"github.com/tembolo1284/matchengine/domain"
)

// ProcessNewOrder implements the matching algorithm of §4.4: allocate,
// ack, match against the opposite side's best levels in price-time
// priority, then either rest the remainder (limit orders) or free the
// slot (market orders, or limit orders that filled completely).
//
// The order's EnqueuedAt timestamp comes from the arena pool's clock at
// Alloc time, so the book reads no package-global clock.
func (b *OrderBook) ProcessNewOrder(msg domain.NewOrderMsg, clientID uint32) []domain.OutputMessage {
	slot, order, err := b.pool.Alloc()
	if err != nil {
		if b.EmitRejectOnCapacityExhaustion {
			return []domain.OutputMessage{{
				Kind: domain.KindReject,
				Reject: domain.RejectMsg{
					Symbol:      b.Symbol,
					UserID:      msg.UserID,
					UserOrderID: msg.UserOrderID,
					Reason:      domain.RejectArenaExhausted,
				},
			}}
		}
		return nil
	}

	order.Side = msg.Side
	order.Type = domain.Limit
	if msg.Price == 0 {
		order.Type = domain.Market
	}
	order.Price = msg.Price
	order.OriginalQty = msg.Quantity
	order.RemainingQty = msg.Quantity
	order.UserID = msg.UserID
	order.UserOrderID = msg.UserOrderID
	order.ClientID = clientID
	order.Prev, order.Next = arena.NoSlot, arena.NoSlot

	out := make([]domain.OutputMessage, 0, 4)
	out = append(out, domain.OutputMessage{
		Kind: domain.KindAck,
		Ack: domain.AckMsg{
			Symbol:      b.Symbol,
			UserID:      msg.UserID,
			UserOrderID: msg.UserOrderID,
		},
	})

	var contra *LevelIndex
	if msg.Side == domain.Buy {
		contra = b.Asks
	} else {
		contra = b.Bids
	}

	out = b.matchAgainst(contra, slot, order, out)

	if order.RemainingQty > 0 && order.Type == domain.Limit {
		own := b.levelIndexFor(order.Side)
		idx, insErr := own.Insert(order.Price)
		if insErr != nil {
			// Level table full: treat exactly like arena exhaustion (§7).
			if b.EmitRejectOnCapacityExhaustion {
				out = append(out, domain.OutputMessage{
					Kind: domain.KindReject,
					Reject: domain.RejectMsg{
						Symbol:      b.Symbol,
						UserID:      msg.UserID,
						UserOrderID: msg.UserOrderID,
						Reason:      domain.RejectSymbolTableFull,
					},
				})
			}
			b.pool.Free(slot)
			out = append(out, b.checkTOBChanges()...)
			return out
		}
		if !b.orders.Insert(order.Key(), Location{Side: order.Side, Price: order.Price, Slot: slot}) {
			// Order map probe limit exceeded: drop the remainder like any
			// other capacity exhaustion (§7).
			if b.EmitRejectOnCapacityExhaustion {
				out = append(out, domain.OutputMessage{Kind: domain.KindReject, Reject: domain.RejectMsg{
					Symbol: b.Symbol, UserID: msg.UserID, UserOrderID: msg.UserOrderID, Reason: domain.RejectProbeLimitExceeded}})
			}
			if own.At(idx).Head == arena.NoSlot {
				own.Remove(idx)
			}
			b.pool.Free(slot)
			out = append(out, b.checkTOBChanges()...)
			return out
		}
		b.appendToFIFO(own, idx, slot, order)
	} else {
		b.pool.Free(slot)
	}

	out = append(out, b.checkTOBChanges()...)
	return out
}

// matchAgainst walks contra's best levels while aggressor crosses them,
// emitting one Trade per passive order consumed (§4.4 steps 3-6).
func (b *OrderBook) matchAgainst(contra *LevelIndex, aggressorSlot arena.Slot, aggressor *arena.Order, out []domain.OutputMessage) []domain.OutputMessage {
	iterations := 0
	for aggressor.RemainingQty > 0 && iterations < MaxMatchIterations {
		lvl, ok := contra.Best()
		if !ok {
			break
		}
		if !crosses(aggressor, lvl.Price) {
			break
		}

		for j := 0; j < MaxOrdersAtPriceLevel && lvl.Head != arena.NoSlot && aggressor.RemainingQty > 0; j++ {
			iterations++
			passiveSlot := lvl.Head
			passive := b.pool.Get(passiveSlot)

			tradeQty := aggressor.RemainingQty
			if passive.RemainingQty < tradeQty {
				tradeQty = passive.RemainingQty
			}

			out = append(out, buildTrade(b.Symbol, aggressorSlot, aggressor, passiveSlot, passive, lvl.Price, tradeQty))

			aggressor.RemainingQty -= tradeQty
			passive.RemainingQty -= tradeQty
			lvl.TotalQty -= uint64(tradeQty)

			if passive.RemainingQty == 0 {
				lvl.Head = passive.Next
				if lvl.Head != arena.NoSlot {
					b.pool.Get(lvl.Head).Prev = arena.NoSlot
				} else {
					lvl.Tail = arena.NoSlot
				}
				b.orders.Remove(passive.Key())
				b.pool.Free(passiveSlot)
			}
		}

		if lvl.Head == arena.NoSlot {
			contra.Remove(0)
		}
		if iterations >= MaxMatchIterations {
			break
		}
	}
	return out
}

// crosses reports whether the aggressor's terms cross the best contra
// price (§4.4 step 3): a market order always crosses; a limit order
// crosses a buy-side aggressor iff its price >= the ask, or a sell-side
// aggressor iff its price <= the bid.
func crosses(aggressor *arena.Order, contraPrice uint32) bool {
	if aggressor.Type == domain.Market {
		return true
	}
	if aggressor.Side == domain.Buy {
		return aggressor.Price >= contraPrice
	}
	return aggressor.Price <= contraPrice
}

// buildTrade assigns buy/sell identity from aggressor+passive based on
// side, and always prices the trade at the passive's level (§4.4's
// price-improvement rationale, §8 R3).
func buildTrade(symbol string, aggrSlot arena.Slot, aggressor *arena.Order, passiveSlot arena.Slot, passive *arena.Order, price uint32, qty uint32) domain.OutputMessage {
	buy, sell := aggressor, passive
	if aggressor.Side == domain.Sell {
		buy, sell = passive, aggressor
	}
	return domain.OutputMessage{
		Kind: domain.KindTrade,
		Trade: domain.TradeMsg{
			Symbol:          symbol,
			BuyUserID:       buy.UserID,
			BuyUserOrderID:  buy.UserOrderID,
			SellUserID:      sell.UserID,
			SellUserOrderID: sell.UserOrderID,
			Price:           price,
			Quantity:        qty,
			BuyClientID:     buy.ClientID,
			SellClientID:    sell.ClientID,
		},
	}
}
