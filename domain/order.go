// Package domain holds the pooled, intrusively-linked types that make up a
// resting order and a price level. Instances are never allocated on the hot
// path: they come from OrderPool and PriceLevelPool, both fixed-capacity and
// pre-populated at construction (spec invariant: bounded working set).
package domain

import "flashoms/wire"

// Order is a resting or in-flight limit order. Fields are read and written
// directly by the matching engine; there are no getters or setters, to keep
// the hot path free of call overhead.
//
// Memory layout: hot fields used on every match iteration (Price, Qty,
// Side, the intrusive links) are declared first so they land in the same
// cache line for a resting order scanned during matching.
type Order struct {
	InternalOrderID uint64
	Price           int64 // scaled, see wire.PriceScale
	Qty             uint64
	Side            wire.Side

	prev  *Order
	next  *Order
	level *PriceLevel // back-pointer, enables O(1) cancel without a book scan

	SessionID    uint32
	ClientSeqNo  uint64
	InstrumentID uint32
	TIF          wire.TimeInForce
	OrigQty      uint64
	RecvTsNanos  int64
}

func (o *Order) reset() {
	*o = Order{}
}

// Level returns the PriceLevel the order currently rests on, or nil if the
// order is not resting (still being matched, or already released).
func (o *Order) Level() *PriceLevel {
	return o.level
}

// Next returns the next order in its price level's FIFO queue, or nil.
func (o *Order) Next() *Order {
	return o.next
}

// LeavesQty is qty remaining after any partial fills.
func (o *Order) LeavesQty() uint64 {
	return o.Qty
}
