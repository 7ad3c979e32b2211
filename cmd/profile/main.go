// Command profile runs the same in-process order book workload as bench,
// but wrapped in a CPU profile for hotspot analysis with `go tool pprof`.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"time"

	"flashoms/book"
	"flashoms/domain"
	"flashoms/wire"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "测试时长")
	outFile := flag.String("out", "cpu.prof", "CPU profile 输出路径")
	flag.Parse()

	f, err := os.Create(*outFile)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	if err := pprof.StartCPUProfile(f); err != nil {
		panic(err)
	}
	defer pprof.StopCPUProfile()

	fmt.Println("=== 性能分析开始 ===")
	fmt.Printf("生成 CPU profile: %s\n", *outFile)

	orderPool := domain.NewOrderPool(200_000)
	levelPool := domain.NewPriceLevelPool(50_000)
	ob := book.NewLimitOrderBook(1, 0, orderPool, levelPool)

	numWorkers := runtime.NumCPU() - 2
	if numWorkers < 1 {
		numWorkers = 1
	}

	var orderCount, fillCount atomic.Int64
	noop := func(book.FillEvent) { fillCount.Add(1) }

	fmt.Printf("CPU 核心数: %d\n", runtime.NumCPU())
	fmt.Printf("生产者数量: %d\n", numWorkers)
	fmt.Printf("测试时长: %v\n\n", *duration)

	startTime := time.Now()
	stopChan := make(chan struct{})
	var nextOrderID atomic.Uint64
	// The book and its pools are single-goroutine structures, so producers
	// take turns on them.
	var bookMu sync.Mutex

	for w := 0; w < numWorkers; w++ {
		go func() {
			i := 0
			for {
				select {
				case <-stopChan:
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
		}()
	}

	time.Sleep(*duration)
	close(stopChan)
	time.Sleep(500 * time.Millisecond)

	elapsed := time.Since(startTime)
	fmt.Println("\n=== 性能测试结果 ===")
	fmt.Printf("总订单数: %d\n", orderCount.Load())
	fmt.Printf("总成交事件: %d\n", fillCount.Load())
	fmt.Printf("Order QPS: %.0f orders/sec\n", float64(orderCount.Load())/elapsed.Seconds())

	fmt.Println("\n分析 CPU profile:")
	fmt.Printf("  go tool pprof -http=:8080 %s\n", *outFile)
	fmt.Println("  然后输入: top10  (查看前 10 个热点函数)")
}
