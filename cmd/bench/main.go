// Command bench drives an in-process throughput measurement against a
// single instrument's order book, bypassing the network stack entirely.
// It exists to characterize the matching core in isolation from the
// gateway/transport plumbing.
package main

import (
	"flag"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"flashoms/book"
	"flashoms/domain"
	"flashoms/wire"
)

func main() {
	duration := flag.Duration("duration", 5*time.Second, "测试时长")
	orderPoolSize := flag.Int("orders", 200_000, "订单对象池容量")
	levelPoolSize := flag.Int("levels", 50_000, "价格档位对象池容量")
	flag.Parse()

	fmt.Println("=== 撮合核心性能测试 (无网络层) ===")

	orderPool := domain.NewOrderPool(*orderPoolSize)
	levelPool := domain.NewPriceLevelPool(*levelPoolSize)
	ob := book.NewLimitOrderBook(1, 0, orderPool, levelPool)

	numWorkers := runtime.NumCPU() - 1
	if numWorkers < 1 {
		numWorkers = 1
	}

	var (
		orderCount atomic.Int64
		fillCount  atomic.Int64
	)

	noop := func(book.FillEvent) { fillCount.Add(1) }

	fmt.Printf("CPU 核心数: %d\n", runtime.NumCPU())
	fmt.Printf("并发生产者: %d\n", numWorkers)
	fmt.Printf("测试时长: %v\n\n", *duration)

	stop := make(chan struct{})
	var nextOrderID atomic.Uint64
	// The book and its pools are single-goroutine structures, so producers
	// take turns on them.
	var bookMu sync.Mutex
	start := time.Now()

	for w := 0; w < numWorkers; w++ {
		go func(workerID int) {
			i := 0
			for {
				select {
				case <-stop:
					return
				default:
				}
				var side wire.Side
				if i%2 == 0 {
					side = wire.Buy
				} else {
					side = wire.Sell
				}
				price := int64(50_000+i%200) * wire.PriceScale

				bookMu.Lock()
				o, err := orderPool.Borrow()
				if err != nil {
					bookMu.Unlock()
					i++
					continue
				}
				o.InternalOrderID = nextOrderID.Add(1)
				o.Price = price
				o.Qty = 1
				o.Side = side
				o.InstrumentID = 1
				o.TIF = wire.GTC

				ob.AddOrder(o, noop)
				bookMu.Unlock()
				orderCount.Add(1)
				i++
			}
		}(w)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			elapsed := time.Since(start).Seconds()
			orders := orderCount.Load()
			fills := fillCount.Load()
			fmt.Printf("[%.0fs] 订单: %d (%.0f/s) | 成交事件: %d (%.0f/s)\n",
				elapsed, orders, float64(orders)/elapsed, fills, float64(fills)/elapsed)
		}
	}()

	time.Sleep(*duration)
	close(stop)
	time.Sleep(50 * time.Millisecond)
	bookMu.Lock()
	defer bookMu.Unlock()

	elapsed := time.Since(start).Seconds()
	totalOrders := orderCount.Load()
	totalFills := fillCount.Load()

	fmt.Println("\n=== 测试结果 ===")
	fmt.Printf("总订单数:   %d\n", totalOrders)
	fmt.Printf("总成交事件: %d\n", totalFills)
	fmt.Printf("吞吐量:     %.0f orders/sec\n", float64(totalOrders)/elapsed)
	fmt.Printf("最佳买价:   %d\n", ob.BestBid())
	fmt.Printf("最佳卖价:   %d\n", ob.BestAsk())
	fmt.Printf("订单池剩余: %d/%d\n", orderPool.Available(), orderPool.Capacity())
}
