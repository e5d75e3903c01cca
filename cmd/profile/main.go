// Command profile runs the same synchronous workload as cmd/benchmark
// under a CPU profiler, for locating hot paths in the matching algorithm.
package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/tembolo1284/matchengine/domain"
	"github.com/tembolo1284/matchengine/matching"
)

func main() {
	cpuFile, err := os.Create("cpu.prof")
	if err != nil {
		panic(err)
	}
	defer cpuFile.Close()

	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		panic(err)
	}
	defer pprof.StopCPUProfile()

	fmt.Println("=== profiling matching engine ===")
	fmt.Println("writing CPU profile to cpu.prof")

	clock := func() int64 { return time.Now().UnixNano() }
	engine := matching.New(clock)

	const (
		symbol   = "BTCUSD"
		duration = 10 * time.Second
	)

	var orders, trades int64
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
	fmt.Printf("\norders processed: %d\n", orders)
	fmt.Printf("trades executed:  %d\n", trades)
	fmt.Printf("order throughput: %.0f orders/sec\n", float64(orders)/elapsed.Seconds())
	fmt.Printf("trade throughput: %.0f trades/sec\n", float64(trades)/elapsed.Seconds())

	fmt.Println("\nanalyze with:")
	fmt.Println("  go tool pprof -http=:8080 cpu.prof")
	fmt.Println("  (then) top10")
	fmt.Println("  (then) list <function name>")
}
