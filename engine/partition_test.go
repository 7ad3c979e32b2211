package engine

import (
	"testing"

	"go.uber.org/zap"

	"flashoms/transport"
	"flashoms/wire"
)

func newTestPartition(t *testing.T) (*Partition, *transport.Stream) {
	t.Helper()
	inbound := transport.NewStream(64)
	outbound := transport.NewStream(64)
	p := NewPartition(0, 1, inbound, outbound, zap.NewNop())
	return p, outbound
}

func publishInternalNewOrder(t *testing.T, p *Partition, m wire.InternalNewOrder) {
	t.Helper()
	buf := make([]byte, wire.InternalHeaderSize+wire.InternalNewOrderSize)
	wire.EncodeInternalHeader(buf, wire.MsgNewOrder)
	wire.EncodeInternalNewOrder(buf[wire.InternalHeaderSize:], m)
	p.onFragment(buf)
}

func decodeOutbound(t *testing.T, out *transport.Stream) []wire.MsgType {
	t.Helper()
	var types []wire.MsgType
	out.Poll(64, func(msg []byte) {
		typ, err := wire.DecodeInternalHeader(msg)
		if err != nil {
			t.Fatalf("decode header: %v", err)
		}
		types = append(types, typ)
	})
	return types
}

func TestNewOrderRestsAndAcks(t *testing.T) {
	p, out := newTestPartition(t)
	publishInternalNewOrder(t, p, wire.InternalNewOrder{
		InternalOrderID: 1,
		NewOrder: wire.NewOrder{
			SessionID: 1, ClientSeqNo: 1, InstrumentID: 5,
			Side: wire.Buy, TIF: wire.GTC, Price: testPrice(), Qty: 10,
		},
	})

	types := decodeOutbound(t, out)
	if len(types) != 1 || types[0] != wire.MsgAck {
		t.Fatalf("expected a single ACK for a resting order, got %v", types)
	}
}

// ACK must precede any FILL for the same match.
func TestAckPrecedesFill(t *testing.T) {
	p, out := newTestPartition(t)
	publishInternalNewOrder(t, p, wire.InternalNewOrder{
		InternalOrderID: 1,
		NewOrder:        wire.NewOrder{SessionID: 1, ClientSeqNo: 1, InstrumentID: 5, Side: wire.Sell, TIF: wire.GTC, Price: testPrice(), Qty: 10},
	})
	decodeOutbound(t, out) // drain the resting order's ACK

	publishInternalNewOrder(t, p, wire.InternalNewOrder{
		InternalOrderID: 2,
		NewOrder:        wire.NewOrder{SessionID: 2, ClientSeqNo: 1, InstrumentID: 5, Side: wire.Buy, TIF: wire.GTC, Price: testPrice(), Qty: 10},
	})

	types := decodeOutbound(t, out)
	if len(types) < 3 {
		t.Fatalf("expected ACK + 2 FILLs, got %v", types)
	}
	if types[0] != wire.MsgAck {
		t.Fatalf("first outbound message must be ACK, got %v", types[0])
	}
	for _, ty := range types[1:] {
		if ty != wire.MsgFill {
			t.Errorf("expected only FILLs after the ACK, got %v", ty)
		}
	}
}

func TestCancelNotFoundRejects(t *testing.T) {
	p, out := newTestPartition(t)

	buf := make([]byte, wire.InternalHeaderSize+wire.CancelRequestPayloadSize)
	wire.EncodeInternalHeader(buf, wire.MsgCancelRequest)
	wire.EncodeCancelRequest(buf[wire.InternalHeaderSize:], wire.CancelRequest{
		SessionID: 1, ClientSeqNo: 1, InternalOrderID: 999, InstrumentID: 5,
	})
	p.onFragment(buf)

	types := decodeOutbound(t, out)
	if len(types) != 1 || types[0] != wire.MsgReject {
		t.Fatalf("expected REJECT for an unknown cancel, got %v", types)
	}
}

func TestCancelFoundAcks(t *testing.T) {
	p, out := newTestPartition(t)
	publishInternalNewOrder(t, p, wire.InternalNewOrder{
		InternalOrderID: 7,
		NewOrder:        wire.NewOrder{SessionID: 1, ClientSeqNo: 1, InstrumentID: 5, Side: wire.Buy, TIF: wire.GTC, Price: testPrice(), Qty: 10},
	})
	decodeOutbound(t, out) // drain ACK

	buf := make([]byte, wire.InternalHeaderSize+wire.CancelRequestPayloadSize)
	wire.EncodeInternalHeader(buf, wire.MsgCancelRequest)
	wire.EncodeCancelRequest(buf[wire.InternalHeaderSize:], wire.CancelRequest{
		SessionID: 1, ClientSeqNo: 2, InternalOrderID: 7, InstrumentID: 5,
	})
	p.onFragment(buf)

	types := decodeOutbound(t, out)
	if len(types) != 1 || types[0] != wire.MsgCancelAck {
		t.Fatalf("expected CANCEL_ACK, got %v", types)
	}
}

func TestPoolExhaustionRejectsSystemBusy(t *testing.T) {
	inbound := transport.NewStream(4)
	outbound := transport.NewStream(4)
	p := NewPartition(0, 1, inbound, outbound, zap.NewNop())

	// Drain the order pool down to zero by resting buy orders, which never
	// match each other, all at one price so the price level pool (smaller
	// than the order pool) is not exhausted first.
	capacity := p.orderPool.Capacity()
	for i := 0; i < capacity; i++ {
		publishInternalNewOrder(t, p, wire.InternalNewOrder{
			InternalOrderID: uint64(i + 1),
			NewOrder: wire.NewOrder{
				SessionID: 1, ClientSeqNo: uint64(i + 1), InstrumentID: 5,
				Side: wire.Buy, TIF: wire.GTC, Price: testPrice(), Qty: 1,
			},
		})
		decodeOutbound(t, outbound)
	}

	publishInternalNewOrder(t, p, wire.InternalNewOrder{
		InternalOrderID: uint64(capacity + 1),
		NewOrder: wire.NewOrder{
			SessionID: 1, ClientSeqNo: uint64(capacity + 1), InstrumentID: 5,
			Side: wire.Buy, TIF: wire.GTC, Price: testPrice(), Qty: 1,
		},
	})

	types := decodeOutbound(t, outbound)
	if len(types) != 1 || types[0] != wire.MsgReject {
		t.Fatalf("expected REJECT(SYSTEM_BUSY) once the order pool is exhausted, got %v", types)
	}
}

func testPrice() int64 {
	return 100 * wire.PriceScale
}
