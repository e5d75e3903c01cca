// Command matchengine-demo is a small in-memory walkthrough of the
// matching engine: it submits a few orders directly (no pipeline, no
// sockets) and prints every message the engine emits, the way the
// teacher's own root main.go demonstrated its single-symbol engine before
// any transport layer existed.
package main

import (
	"fmt"
	"time"

	"github.com/tembolo1284/matchengine/domain"
	"github.com/tembolo1284/matchengine/matching"
)

func main() {
	clock := func() int64 { return time.Now().UnixNano() }
	engine := matching.New(clock)

	fmt.Println("matching engine demo")

	submit := func(userID, userOrderID uint32, side domain.Side, price, qty uint32) {
		out := engine.ProcessNewOrder(domain.NewOrderMsg{
			Symbol:      "BTCUSD",
			UserID:      userID,
			UserOrderID: userOrderID,
			Side:        side,
			Price:       price,
			Quantity:    qty,
		}, userID)
		for _, msg := range out {
			printMessage(msg)
		}
	}

	submit(1, 1, domain.Sell, 50000, 100_000_000) // 1 BTC ask @ 50000
	submit(2, 1, domain.Buy, 50000, 50_000_000)   // 0.5 BTC bid, crosses

	fmt.Println("\ncancelling remaining sell order...")
	for _, msg := range engine.ProcessCancel(domain.CancelMsg{Symbol: "BTCUSD", UserID: 1, UserOrderID: 1}) {
		printMessage(msg)
	}
}

func printMessage(msg domain.OutputMessage) {
	switch msg.Kind {
	case domain.KindAck:
		fmt.Printf("ack       user=%d order=%d\n", msg.Ack.UserID, msg.Ack.UserOrderID)
	case domain.KindCancelAck:
		fmt.Printf("cancelack user=%d order=%d\n", msg.CancelAck.UserID, msg.CancelAck.UserOrderID)
	case domain.KindTrade:
		t := msg.Trade
		fmt.Printf("trade     buy=%d/%d sell=%d/%d price=%d qty=%d\n",
			t.BuyUserID, t.BuyUserOrderID, t.SellUserID, t.SellUserOrderID, t.Price, t.Quantity)
	case domain.KindTopOfBook:
		t := msg.TopOfBook
		if t.Eliminated() {
			fmt.Printf("tob       side=%s eliminated\n", t.Side)
		} else {
			fmt.Printf("tob       side=%s price=%d qty=%d\n", t.Side, t.Price, t.Quantity)
		}
	case domain.KindReject:
		fmt.Printf("reject    user=%d order=%d reason=%s\n", msg.Reject.UserID, msg.Reject.UserOrderID, msg.Reject.Reason)
	}
}
