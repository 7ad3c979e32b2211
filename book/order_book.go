// Package book implements the price-time priority limit order book for a
// single instrument (spec component C4): matching, resting, and cancelling
// orders with an allocation-free hot path built on fixed-capacity pools.
package book

import (
	"errors"
	"math"
	"strconv"

	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"flashoms/domain"
	"flashoms/metrics"
	"flashoms/wire"
)

// ErrOrderNotFound is returned by Cancel when the internal order id is not
// resting anywhere in the book.
var ErrOrderNotFound = errors.New("book: order not found")

// FillEvent describes one leg of a match, addressed to the party named by
// SessionID/Side: an aggressor fill and its matching passive fill are
// reported as two separate FillEvents, mirroring the wire.Fill convention
// that "side" always means the side of the addressee.
type FillEvent struct {
	InternalOrderID uint64
	SessionID       uint32
	InstrumentID    uint32
	Side            wire.Side
	FillPrice       int64
	FillQty         uint64
	LeavesQty       uint64
}

// MatchCallback receives fill events as they are produced: for each match,
// the aggressor's leg first, then the passive order's leg. Each FillEvent is
// passed by value.
type MatchCallback func(FillEvent)

func bidLess(a, b int64) int {
	if a > b {
		return -1
	} else if a < b {
		return 1
	}
	return 0
}

func askLess(a, b int64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// LimitOrderBook is the order book for one instrument. bids is ordered
// highest-price-first, asks lowest-price-first, so BestBid/BestAsk are
// O(log n) tree-min lookups and matching always walks from the correct end.
type LimitOrderBook struct {
	instrumentID uint32
	partition    int
	orderPool    *domain.OrderPool
	levelPool    *domain.PriceLevelPool

	bids *rbt.Tree[int64, *domain.PriceLevel]
	asks *rbt.Tree[int64, *domain.PriceLevel]

	orderIndex map[uint64]*domain.Order
}

// NewLimitOrderBook creates a book for instrumentID, sharing orderPool and
// levelPool with sibling books in the same partition. partition is the
// owning engine partition's id, used only to label pool-exhaustion metrics.
func NewLimitOrderBook(instrumentID uint32, partition int, orderPool *domain.OrderPool, levelPool *domain.PriceLevelPool) *LimitOrderBook {
	return &LimitOrderBook{
		instrumentID: instrumentID,
		partition:    partition,
		orderPool:    orderPool,
		levelPool:    levelPool,
		bids:         rbt.NewWith[int64, *domain.PriceLevel](bidLess),
		asks:         rbt.NewWith[int64, *domain.PriceLevel](askLess),
		orderIndex:   make(map[uint64]*domain.Order, 1024),
	}
}

// InstrumentID returns the instrument this book matches orders for.
func (b *LimitOrderBook) InstrumentID() uint32 {
	return b.instrumentID
}

// AddOrder attempts to match incoming against the opposite side, then rests
// any unfilled GTC remainder on the book. Returns true if the order (or its
// remainder) is now resting. incoming.Qty is mutated as it is filled; if it
// reaches zero, is IOC, or the level pool is exhausted, incoming is released
// back to the pool before AddOrder returns, and orderIndex is never touched
// for a non-resting order.
func (b *LimitOrderBook) AddOrder(incoming *domain.Order, cb MatchCallback) bool {
	if incoming.Side == wire.Buy {
		b.matchAgainstAsks(incoming, cb)
	} else {
		b.matchAgainstBids(incoming, cb)
	}

	if incoming.Qty == 0 {
		b.orderPool.Release(incoming)
		return false
	}

	if incoming.TIF == wire.IOC {
		b.orderPool.Release(incoming)
		return false
	}

	if !b.rest(incoming) {
		return false
	}
	b.orderIndex[incoming.InternalOrderID] = incoming
	return true
}

func (b *LimitOrderBook) matchAgainstAsks(buy *domain.Order, cb MatchCallback) {
	for buy.Qty > 0 {
		node := b.asks.Left()
		if node == nil {
			return
		}
		bestAskPrice := node.Key
		if buy.Price < bestAskPrice {
			return
		}
		level := node.Value
		b.matchLevel(buy, level, bestAskPrice, cb)
		if level.IsEmpty() {
			b.asks.Remove(bestAskPrice)
			b.levelPool.Release(level)
		}
	}
}

func (b *LimitOrderBook) matchAgainstBids(sell *domain.Order, cb MatchCallback) {
	for sell.Qty > 0 {
		node := b.bids.Left() // bids ordered high-to-low: Left() is the best bid
		if node == nil {
			return
		}
		bestBidPrice := node.Key
		if sell.Price > bestBidPrice {
			return
		}
		level := node.Value
		b.matchLevel(sell, level, bestBidPrice, cb)
		if level.IsEmpty() {
			b.bids.Remove(bestBidPrice)
			b.levelPool.Release(level)
		}
	}
}

func (b *LimitOrderBook) matchLevel(aggressor *domain.Order, level *domain.PriceLevel, price int64, cb MatchCallback) {
	passive := level.Head
	for passive != nil && aggressor.Qty > 0 {
		fillQty := aggressor.Qty
		if passive.Qty < fillQty {
			fillQty = passive.Qty
		}
		aggressor.Qty -= fillQty
		passive.Qty -= fillQty
		level.TotalQty -= fillQty

		if cb != nil {
			cb(FillEvent{
				InternalOrderID: aggressor.InternalOrderID,
				SessionID:       aggressor.SessionID,
				InstrumentID:    b.instrumentID,
				Side:            aggressor.Side,
				FillPrice:       price,
				FillQty:         fillQty,
				LeavesQty:       aggressor.Qty,
			})
			cb(FillEvent{
				InternalOrderID: passive.InternalOrderID,
				SessionID:       passive.SessionID,
				InstrumentID:    b.instrumentID,
				Side:            aggressor.Side.Opposite(),
				FillPrice:       price,
				FillQty:         fillQty,
				LeavesQty:       passive.Qty,
			})
		}

		next := passive.Next()
		if passive.Qty == 0 {
			level.RemoveOrder(passive)
			delete(b.orderIndex, passive.InternalOrderID)
			b.orderPool.Release(passive)
		}
		passive = next
	}
}

// rest tries to place o on its book side, borrowing a new PriceLevel if
// none exists yet at o.Price. Returns false, having released o back to
// orderPool, if the level pool is exhausted — the caller must not add o to
// orderIndex or otherwise treat it as resting.
func (b *LimitOrderBook) rest(o *domain.Order) bool {
	tree := b.treeFor(o.Side)
	level, found := tree.Get(o.Price)
	if !found {
		var err error
		level, err = b.levelPool.Borrow(o.Price)
		if err != nil {
			metrics.PoolExhaustedTotal.WithLabelValues("level", strconv.Itoa(b.partition)).Inc()
			b.orderPool.Release(o)
			return false
		}
		tree.Put(o.Price, level)
	}
	level.AddOrder(o)
	return true
}

func (b *LimitOrderBook) treeFor(side wire.Side) *rbt.Tree[int64, *domain.PriceLevel] {
	if side == wire.Buy {
		return b.bids
	}
	return b.asks
}

// Cancel removes the resting order with the given internal id. Returns
// ErrOrderNotFound if it is not resting in this book (already filled,
// already cancelled, or never accepted).
func (b *LimitOrderBook) Cancel(internalOrderID uint64) error {
	o, ok := b.orderIndex[internalOrderID]
	if !ok {
		return ErrOrderNotFound
	}
	delete(b.orderIndex, internalOrderID)

	level := o.Level()
	tree := b.treeFor(o.Side)
	level.RemoveOrder(o)
	if level.IsEmpty() {
		tree.Remove(level.Price)
		b.levelPool.Release(level)
	}
	b.orderPool.Release(o)
	return nil
}

// BestBid returns the highest resting bid price, or math.MinInt64 if there
// are no bids.
func (b *LimitOrderBook) BestBid() int64 {
	node := b.bids.Left()
	if node == nil {
		return math.MinInt64
	}
	return node.Key
}

// BestAsk returns the lowest resting ask price, or math.MaxInt64 if there
// are no asks.
func (b *LimitOrderBook) BestAsk() int64 {
	node := b.asks.Left()
	if node == nil {
		return math.MaxInt64
	}
	return node.Key
}

// BidLevels reports the number of distinct bid price levels.
func (b *LimitOrderBook) BidLevels() int {
	return b.bids.Size()
}

// AskLevels reports the number of distinct ask price levels.
func (b *LimitOrderBook) AskLevels() int {
	return b.asks.Size()
}

// Has reports whether internalOrderID is currently resting in this book.
func (b *LimitOrderBook) Has(internalOrderID uint64) bool {
	_, ok := b.orderIndex[internalOrderID]
	return ok
}
