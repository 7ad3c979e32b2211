// Package engine implements the engine partition worker (spec component
// C5): a single-threaded owner of the books and pools for every instrument
// whose partition = instrumentId % numPartitions. It polls its inbound
// stream, matches, and publishes ACK/FILL/REJECT/CANCEL_ACK to its outbound
// stream, exactly as the reference EnginePartition does over Aeron.
package engine

import (
	"runtime"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"flashoms/book"
	"flashoms/domain"
	"flashoms/metrics"
	"flashoms/transport"
	"flashoms/wire"
)

const (
	orderPoolSize = 100_000
	levelPoolSize = 50_000

	// maxFragmentsPerPoll bounds how many inbound messages a single Poll
	// call drains before the loop checks the running flag again.
	maxFragmentsPerPoll = 256

	maxOutboundRetries = 3
)

// Partition owns a subset of instruments and runs its own poll loop. It
// must only ever be driven by the goroutine that calls Run; every other
// method here except Stop is unsafe to call concurrently with Run.
type Partition struct {
	id            int
	numPartitions int

	orderPool *domain.OrderPool
	levelPool *domain.PriceLevelPool
	books     map[uint32]*book.LimitOrderBook

	inbound  *transport.Stream
	outbound *transport.Stream

	outBuf  []byte
	running atomic.Bool

	log *zap.Logger
}

// NewPartition constructs a partition. inbound/outbound must be the streams
// for this partition's id, resolved via transport.Partition.
func NewPartition(id, numPartitions int, inbound, outbound *transport.Stream, logger *zap.Logger) *Partition {
	return &Partition{
		id:            id,
		numPartitions: numPartitions,
		orderPool:     domain.NewOrderPool(orderPoolSize),
		levelPool:     domain.NewPriceLevelPool(levelPoolSize),
		books:         make(map[uint32]*book.LimitOrderBook, 512),
		inbound:       inbound,
		outbound:      outbound,
		outBuf:        make([]byte, 128),
		log:           logger.With(zap.Int("partition", id)),
	}
}

// Run drives the poll loop until Stop is called. It locks the calling
// goroutine to its OS thread for the duration, matching the reference's
// one-native-thread-per-partition model, and should be launched with `go`.
func (p *Partition) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p.running.Store(true)
	p.log.Info("partition started")

	for p.running.Load() {
		n := p.inbound.Poll(maxFragmentsPerPoll, p.onFragment)
		if n == 0 {
			runtime.Gosched()
		}
	}
	p.log.Info("partition stopped")
}

// Stop causes Run's poll loop to exit at its next iteration.
func (p *Partition) Stop() {
	p.running.Store(false)
}

func (p *Partition) onFragment(msg []byte) {
	typ, err := wire.DecodeInternalHeader(msg)
	if err != nil {
		p.log.Warn("dropping fragment with unknown type", zap.Error(err))
		return
	}
	payload := msg[wire.InternalHeaderSize:]

	switch typ {
	case wire.MsgNewOrder:
		p.handleNewOrder(payload)
	case wire.MsgCancelRequest:
		p.handleCancel(payload)
	default:
		p.log.Warn("unexpected msg type on inbound stream", zap.Stringer("type", typ))
	}
}

func (p *Partition) handleNewOrder(payload []byte) {
	m, err := wire.DecodeInternalNewOrder(payload)
	if err != nil {
		p.log.Warn("dropping malformed NEW_ORDER fragment", zap.Error(err))
		return
	}

	o, err := p.orderPool.Borrow()
	if err != nil {
		metrics.PoolExhaustedTotal.WithLabelValues("order", strconv.Itoa(p.id)).Inc()
		p.publishReject(m.SessionID, m.ClientSeqNo, wire.ReasonSystemBusy)
		return
	}

	o.InternalOrderID = m.InternalOrderID
	o.SessionID = m.SessionID
	o.ClientSeqNo = m.ClientSeqNo
	o.InstrumentID = m.InstrumentID
	o.Side = m.Side
	o.TIF = m.TIF
	o.Price = m.Price
	o.Qty = m.Qty
	o.OrigQty = m.Qty
	o.RecvTsNanos = m.RecvTsNanos

	// ACK precedes any FILL/CANCEL_ACK for this order (spec.md §5 ordering
	// guarantee): publish it before handing the order to the book.
	p.publishAck(m.InternalOrderID, m.ClientSeqNo, m.SessionID, m.InstrumentID)

	b := p.bookFor(m.InstrumentID)
	b.AddOrder(o, p.onFill)
}

func (p *Partition) handleCancel(payload []byte) {
	m, err := wire.DecodeCancelRequest(payload)
	if err != nil {
		p.log.Warn("dropping malformed CANCEL_REQUEST fragment", zap.Error(err))
		return
	}

	// The instrumentId on a cancel request is not trusted to locate the
	// order directly: every book in this partition is scanned until one
	// reports the order resting. This mirrors EnginePartition.handleCancel
	// in the reference, which broadcasts the cancel to all books because
	// only the order map (not the request) reliably names the owning book.
	for _, b := range p.books {
		if b.Cancel(m.InternalOrderID) == nil {
			p.publishCancelAck(m.InternalOrderID, m.SessionID)
			return
		}
	}
	p.publishReject(m.SessionID, m.ClientSeqNo, wire.ReasonOrderNotFound)
}

func (p *Partition) onFill(f book.FillEvent) {
	p.publishFill(f)
}

func (p *Partition) bookFor(instrumentID uint32) *book.LimitOrderBook {
	b, ok := p.books[instrumentID]
	if !ok {
		b = book.NewLimitOrderBook(instrumentID, p.id, p.orderPool, p.levelPool)
		p.books[instrumentID] = b
	}
	return b
}

