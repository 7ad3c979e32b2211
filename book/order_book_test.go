package book

import (
	"math"
	"testing"

	"flashoms/domain"
	"flashoms/wire"
)

const testPrice = 100 * wire.PriceScale

func newTestBook(t *testing.T) (*LimitOrderBook, *domain.OrderPool, *domain.PriceLevelPool) {
	t.Helper()
	op := domain.NewOrderPool(64)
	lp := domain.NewPriceLevelPool(64)
	return NewLimitOrderBook(1, 0, op, lp), op, lp
}

func newResting(op *domain.OrderPool, id uint64, side wire.Side, price int64, qty uint64, tif wire.TimeInForce) *domain.Order {
	o, err := op.Borrow()
	if err != nil {
		panic(err)
	}
	o.InternalOrderID = id
	o.Side = side
	o.Price = price
	o.Qty = qty
	o.OrigQty = qty
	o.TIF = tif
	o.SessionID = uint32(id)
	return o
}

// S1 — full cross.
func TestFullCross(t *testing.T) {
	b, op, _ := newTestBook(t)
	sell := newResting(op, 1, wire.Sell, testPrice, 50, wire.GTC)
	b.AddOrder(sell, nil)

	var fills []FillEvent
	buy := newResting(op, 2, wire.Buy, testPrice, 50, wire.GTC)
	resting := b.AddOrder(buy, func(f FillEvent) { fills = append(fills, f) })

	if resting {
		t.Error("fully-crossed aggressor should not rest")
	}
	if len(fills) != 2 {
		t.Fatalf("expected 2 fill events (aggressor+passive), got %d", len(fills))
	}
	agg, pas := fills[0], fills[1]
	if agg.InternalOrderID != 2 || pas.InternalOrderID != 1 {
		t.Errorf("fill legs in wrong order: %+v / %+v", agg, pas)
	}
	if agg.FillPrice != testPrice || agg.FillQty != 50 || agg.LeavesQty != 0 || pas.LeavesQty != 0 {
		t.Errorf("unexpected fill values: %+v / %+v", agg, pas)
	}
	if b.BidLevels() != 0 || b.AskLevels() != 0 {
		t.Error("both sides should be empty after a full cross")
	}
}

// S2 — partial fill.
func TestPartialFill(t *testing.T) {
	b, op, _ := newTestBook(t)
	sell := newResting(op, 1, wire.Sell, testPrice, 30, wire.GTC)
	b.AddOrder(sell, nil)

	var fills []FillEvent
	buy := newResting(op, 2, wire.Buy, testPrice, 100, wire.GTC)
	resting := b.AddOrder(buy, func(f FillEvent) { fills = append(fills, f) })

	if !resting {
		t.Error("partially-filled GTC aggressor should rest")
	}
	if len(fills) != 2 || fills[0].FillQty != 30 {
		t.Fatalf("unexpected fills: %+v", fills)
	}
	if fills[0].LeavesQty != 70 {
		t.Errorf("aggressor leaves = %d, want 70", fills[0].LeavesQty)
	}
	if b.BestBid() != testPrice || b.BidLevels() != 1 {
		t.Errorf("expected one bid level at %d", testPrice)
	}
}

// S3 — FIFO time priority within a level.
func TestFIFOWithinLevel(t *testing.T) {
	b, op, _ := newTestBook(t)
	b.AddOrder(newResting(op, 1, wire.Sell, testPrice, 20, wire.GTC), nil)
	b.AddOrder(newResting(op, 2, wire.Sell, testPrice, 20, wire.GTC), nil)

	var passiveOrder []uint64
	buy := newResting(op, 3, wire.Buy, testPrice, 40, wire.GTC)
	b.AddOrder(buy, func(f FillEvent) {
		if f.InternalOrderID != 3 {
			passiveOrder = append(passiveOrder, f.InternalOrderID)
		}
	})

	if len(passiveOrder) != 2 || passiveOrder[0] != 1 || passiveOrder[1] != 2 {
		t.Errorf("expected passive fills in order [1 2], got %v", passiveOrder)
	}
	if b.AskLevels() != 0 {
		t.Error("ask side should be empty")
	}
}

// S4 — IOC remainder dropped, no rest, no error.
func TestIOCRemainderDropped(t *testing.T) {
	b, op, _ := newTestBook(t)
	b.AddOrder(newResting(op, 1, wire.Sell, testPrice, 30, wire.GTC), nil)

	var fills []FillEvent
	buy := newResting(op, 2, wire.Buy, testPrice, 100, wire.IOC)
	resting := b.AddOrder(buy, func(f FillEvent) { fills = append(fills, f) })

	if resting {
		t.Error("IOC order must never rest")
	}
	if len(fills) != 2 || fills[0].FillQty != 30 {
		t.Fatalf("unexpected fills: %+v", fills)
	}
	if b.BestBid() != math.MinInt64 {
		t.Error("no bid should rest after IOC remainder is dropped")
	}
}

// S5 — price priority: best (lowest) ask fills first regardless of arrival order.
func TestPricePriority(t *testing.T) {
	b, op, _ := newTestBook(t)
	b.AddOrder(newResting(op, 1, wire.Sell, 99*wire.PriceScale, 10, wire.GTC), nil)
	b.AddOrder(newResting(op, 2, wire.Sell, 101*wire.PriceScale, 10, wire.GTC), nil)

	var fills []FillEvent
	buy := newResting(op, 3, wire.Buy, 105*wire.PriceScale, 10, wire.GTC)
	b.AddOrder(buy, func(f FillEvent) { fills = append(fills, f) })

	if len(fills) != 2 || fills[0].FillPrice != 99*wire.PriceScale {
		t.Fatalf("expected fill at 99, got %+v", fills)
	}
	if b.BestAsk() != 101*wire.PriceScale {
		t.Errorf("best ask after = %d, want %d", b.BestAsk(), 101*wire.PriceScale)
	}
}

// S6 — cancel, then cancel again.
func TestCancelThenCancelAgain(t *testing.T) {
	b, op, _ := newTestBook(t)
	buy := newResting(op, 1, wire.Buy, testPrice, 50, wire.GTC)
	b.AddOrder(buy, nil)

	if err := b.Cancel(1); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if b.BestBid() != math.MinInt64 {
		t.Error("best bid should be sentinel after cancelling the only order")
	}
	if err := b.Cancel(1); err != ErrOrderNotFound {
		t.Errorf("second cancel should fail with ErrOrderNotFound, got %v", err)
	}
}

// Boundary: equal price crosses; strictly worse price rests without matching.
func TestBoundaryEqualAndWorsePrice(t *testing.T) {
	b, op, _ := newTestBook(t)
	b.AddOrder(newResting(op, 1, wire.Sell, testPrice, 10, wire.GTC), nil)

	fills := 0
	worse := newResting(op, 2, wire.Buy, testPrice-1, 10, wire.GTC)
	b.AddOrder(worse, func(FillEvent) { fills++ })
	if fills != 0 {
		t.Error("strictly worse bid must not cross")
	}
	if b.BestBid() != testPrice-1 {
		t.Error("worse bid should rest since it did not cross")
	}

	equal := newResting(op, 3, wire.Buy, testPrice, 10, wire.GTC)
	b.AddOrder(equal, func(FillEvent) { fills++ })
	if fills == 0 {
		t.Error("equal price should cross")
	}
}

// Boundary: empty opposing side, GTC rests, IOC drops silently.
func TestBoundaryEmptyOpposingSide(t *testing.T) {
	b, op, _ := newTestBook(t)
	gtc := newResting(op, 1, wire.Buy, testPrice, 10, wire.GTC)
	if !b.AddOrder(gtc, nil) {
		t.Error("GTC into an empty book should rest")
	}

	ioc := newResting(op, 2, wire.Buy, testPrice+1, 10, wire.IOC)
	if b.AddOrder(ioc, nil) {
		t.Error("IOC that finds nothing to match must not rest")
	}
}

// Invariant 1: level totalQty equals sum of resting order quantities.
func TestInvariantLevelTotalQtyMatchesOrders(t *testing.T) {
	b, op, _ := newTestBook(t)
	b.AddOrder(newResting(op, 1, wire.Sell, testPrice, 10, wire.GTC), nil)
	b.AddOrder(newResting(op, 2, wire.Sell, testPrice, 15, wire.GTC), nil)

	node := b.asks.Left()
	if node == nil {
		t.Fatal("expected a resting ask level")
	}
	var sum uint64
	for o := node.Value.Head; o != nil; o = o.Next() {
		sum += o.Qty
	}
	if sum != node.Value.TotalQty {
		t.Errorf("level totalQty %d != sum of order qty %d", node.Value.TotalQty, sum)
	}
}

// Invariant 3: book never rests crossed after AddOrder returns.
func TestInvariantNoCrossedBookAtRest(t *testing.T) {
	b, op, _ := newTestBook(t)
	b.AddOrder(newResting(op, 1, wire.Buy, testPrice, 10, wire.GTC), nil)
	b.AddOrder(newResting(op, 2, wire.Sell, testPrice+10, 10, wire.GTC), nil)

	if b.BestBid() >= b.BestAsk() {
		t.Errorf("book crossed at rest: bid=%d ask=%d", b.BestBid(), b.BestAsk())
	}
}

// Invariant 6: pool accounting holds at quiescent moments.
func TestInvariantPoolAccounting(t *testing.T) {
	b, op, lp := newTestBook(t)
	capacity := op.Capacity()

	b.AddOrder(newResting(op, 1, wire.Sell, testPrice, 10, wire.GTC), nil)
	b.AddOrder(newResting(op, 2, wire.Buy, testPrice, 10, wire.GTC), nil)

	if op.Available() != capacity {
		t.Errorf("orderPool available = %d, want %d after a full cross releases both orders", op.Available(), capacity)
	}
	_ = lp
}

// PriceLevel pool exhaustion must reject the order cleanly, not corrupt
// orderIndex with a released, zeroed *Order.
func TestRestFailsCleanlyWhenLevelPoolExhausted(t *testing.T) {
	op := domain.NewOrderPool(64)
	lp := domain.NewPriceLevelPool(1)
	b := NewLimitOrderBook(1, 0, op, lp)

	// Exhausts the single price level by resting the first GTC order.
	first := newResting(op, 1, wire.Buy, testPrice, 10, wire.GTC)
	if !b.AddOrder(first, nil) {
		t.Fatal("first order should rest and claim the only price level")
	}

	// A second order at a different price needs a new level, which the
	// pool cannot provide.
	second := newResting(op, 2, wire.Buy, testPrice-1, 10, wire.GTC)
	if b.AddOrder(second, nil) {
		t.Fatal("AddOrder must return false when the level pool is exhausted")
	}
	if b.Has(2) {
		t.Error("a dropped order must not appear in orderIndex")
	}
	if err := b.Cancel(2); err == nil {
		t.Error("cancelling a never-rested order must fail, not panic")
	}
}
