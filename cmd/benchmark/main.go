// Command benchmark drives the matching engine directly (no pipeline, no
// goroutines) to measure raw order-processing throughput, the way the
// teacher's benchmark measured its single-symbol engine before any I/O
// layer is involved.
package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/tembolo1284/matchengine/domain"
	"github.com/tembolo1284/matchengine/matching"
)

func main() {
	fmt.Println("=== matching engine throughput benchmark ===")

	clock := func() int64 { return time.Now().UnixNano() }
	engine := matching.New(clock)

	const (
		symbol   = "BTCUSD"
		duration = 5 * time.Second
	)

	var (
		orders int64
		trades int64
	)

	fmt.Printf("CPU cores: %d\n", runtime.NumCPU())
	fmt.Printf("duration:  %v\n\n", duration)

	start := time.Now()
	userOrderID := uint32(0)
	for time.Since(start) < duration {
		var side domain.Side
		if userOrderID%2 == 0 {
			side = domain.Buy
		} else {
			side = domain.Sell
		}
		price := uint32(50000 + userOrderID%200)

		out := engine.ProcessNewOrder(domain.NewOrderMsg{
			Symbol:      symbol,
			UserID:      1,
			UserOrderID: userOrderID,
			Side:        side,
			Price:       price,
			Quantity:    1,
		}, 0)
		orders++
		for _, msg := range out {
			if msg.Kind == domain.KindTrade {
				trades++
			}
		}
		userOrderID++
	}

	elapsed := time.Since(start)
	qps := float64(orders) / elapsed.Seconds()
	tps := float64(trades) / elapsed.Seconds()

	fmt.Println("=== results ===")
	fmt.Printf("elapsed:           %v\n", elapsed)
	fmt.Printf("orders processed:  %d\n", orders)
	fmt.Printf("trades executed:   %d\n", trades)
	fmt.Printf("order throughput:  %.0f orders/sec\n", qps)
	fmt.Printf("trade throughput:  %.0f trades/sec\n", tps)
	fmt.Printf("match rate:        %.2f%%\n", float64(trades)/float64(orders)*100)

	book, _ := engine.BookFor(symbol)
	bids, asks := book.Depth(5)
	fmt.Println("\nbid depth (top 5):")
	for i, lvl := range bids {
		fmt.Printf("  %d. price=%d qty=%d orders=%d\n", i+1, lvl.Price, lvl.Quantity, lvl.Orders)
	}
	fmt.Println("ask depth (top 5):")
	for i, lvl := range asks {
		fmt.Printf("  %d. price=%d qty=%d orders=%d\n", i+1, lvl.Price, lvl.Quantity, lvl.Orders)
	}
}
