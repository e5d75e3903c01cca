package orderbook

import "github.com/tembolo1284/matchengine/domain"

// checkTOBChanges implements §4.5. It must run after every mutation to the
// book (match, cancel, insert) and returns zero, one, or two TopOfBookMsg
// values (one per side that changed).
func (b *OrderBook) checkTOBChanges() []domain.OutputMessage {
	var out []domain.OutputMessage

	if msg, changed := b.sideTOB(domain.Buy); changed {
		out = append(out, msg)
	}
	if msg, changed := b.sideTOB(domain.Sell); changed {
		out = append(out, msg)
	}
	return out
}

func (b *OrderBook) sideTOB(side domain.Side) (domain.OutputMessage, bool) {
	li := b.levelIndexFor(side)

	var curPrice uint32
	var curQty uint64
	if lvl, ok := li.Best(); ok {
		curPrice, curQty = lvl.Price, lvl.TotalQty
		b.setEverActive(side)
	}

	prevPrice, prevQty := b.prevFor(side)
	if curPrice == prevPrice && curQty == prevQty {
		return domain.OutputMessage{}, false
	}
	b.setPrev(side, curPrice, curQty)

	if curPrice == 0 {
		if !b.everActive(side) {
			return domain.OutputMessage{}, false
		}
		// eliminated sentinel: price=0, qty=0 (§9 standardises on this form)
	}

	return domain.OutputMessage{
		Kind: domain.KindTopOfBook,
		TopOfBook: domain.TopOfBookMsg{
			Symbol:   b.Symbol,
			Side:     side,
			Price:    curPrice,
			Quantity: curQty,
		},
	}, true
}

func (b *OrderBook) setEverActive(side domain.Side) {
	if side == domain.Buy {
		b.bidEverActive = true
	} else {
		b.askEverActive = true
	}
}

func (b *OrderBook) everActive(side domain.Side) bool {
	if side == domain.Buy {
		return b.bidEverActive
	}
	return b.askEverActive
}

func (b *OrderBook) prevFor(side domain.Side) (uint32, uint64) {
	if side == domain.Buy {
		return b.prevBidPrice, b.prevBidQty
	}
	return b.prevAskPrice, b.prevAskQty
}

func (b *OrderBook) setPrev(side domain.Side, price uint32, qty uint64) {
	if side == domain.Buy {
		b.prevBidPrice, b.prevBidQty = price, qty
	} else {
		b.prevAskPrice, b.prevAskQty = price, qty
	}
}

// forceEliminations emits the eliminated sentinel for every side that was
// ever active, regardless of whether the previous snapshot already says
// so — used by Flush, which must guarantee both sides report eliminated
// once the book empties (§4.8).
func (b *OrderBook) forceEliminations() []domain.OutputMessage {
	var out []domain.OutputMessage
	if b.bidEverActive {
		out = append(out, domain.OutputMessage{
			Kind:      domain.KindTopOfBook,
			TopOfBook: domain.TopOfBookMsg{Symbol: b.Symbol, Side: domain.Buy},
		})
	}
	if b.askEverActive {
		out = append(out, domain.OutputMessage{
			Kind:      domain.KindTopOfBook,
			TopOfBook: domain.TopOfBookMsg{Symbol: b.Symbol, Side: domain.Sell},
		})
	}
	b.prevBidPrice, b.prevBidQty = 0, 0
	b.prevAskPrice, b.prevAskQty = 0, 0
	b.bidEverActive, b.askEverActive = false, false
	return out
}
