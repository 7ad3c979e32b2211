package engine

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"flashoms/book"
	"flashoms/metrics"
	"flashoms/transport"
	"flashoms/wire"
)

func (p *Partition) publishAck(internalOrderID, clientSeqNo uint64, sessionID, instrumentID uint32) {
	buf := p.frame(wire.MsgAck, wire.AckPayloadSize)
	wire.EncodeAck(buf[wire.InternalHeaderSize:], wire.Ack{
		InternalOrderID: internalOrderID,
		ClientSeqNo:     clientSeqNo,
		SessionID:       sessionID,
		InstrumentID:    instrumentID,
		TsNanos:         time.Now().UnixNano(),
	})
	p.offer(buf, wire.MsgAck)
}

func (p *Partition) publishFill(f book.FillEvent) {
	buf := p.frame(wire.MsgFill, wire.FillPayloadSize)
	wire.EncodeFill(buf[wire.InternalHeaderSize:], wire.Fill{
		InternalOrderID: f.InternalOrderID,
		SessionID:       f.SessionID,
		InstrumentID:    f.InstrumentID,
		Side:            f.Side,
		FillPrice:       f.FillPrice,
		FillQty:         f.FillQty,
		LeavesQty:       f.LeavesQty,
		TsNanos:         time.Now().UnixNano(),
	})
	p.offer(buf, wire.MsgFill)
}

func (p *Partition) publishReject(sessionID uint32, clientSeqNo uint64, reason wire.RejectReason) {
	buf := p.frame(wire.MsgReject, wire.RejectPayloadSize)
	wire.EncodeReject(buf[wire.InternalHeaderSize:], wire.Reject{
		SessionID:   sessionID,
		ClientSeqNo: clientSeqNo,
		Reason:      reason,
	})
	p.offer(buf, wire.MsgReject)
	metrics.RejectTotal.WithLabelValues(reason.String()).Inc()
}

func (p *Partition) publishCancelAck(internalOrderID uint64, sessionID uint32) {
	buf := p.frame(wire.MsgCancelAck, wire.CancelAckPayloadSize)
	wire.EncodeCancelAck(buf[wire.InternalHeaderSize:], wire.CancelAck{
		InternalOrderID: internalOrderID,
		SessionID:       sessionID,
	})
	p.offer(buf, wire.MsgCancelAck)
}

// frame writes the internal (unframed) header into p.outBuf, growing it if
// needed, and returns the slice covering header+payload.
func (p *Partition) frame(t wire.MsgType, payloadSize int) []byte {
	total := wire.InternalHeaderSize + payloadSize
	if cap(p.outBuf) < total {
		p.outBuf = make([]byte, total)
	}
	buf := p.outBuf[:total]
	wire.EncodeInternalHeader(buf, t)
	return buf
}

// offer publishes buf to the outbound stream, retrying up to
// maxOutboundRetries times on transient backpressure before dropping the
// message (spec.md §7: accepted risk, documented).
func (p *Partition) offer(buf []byte, t wire.MsgType) {
	for attempt := 0; attempt < maxOutboundRetries; attempt++ {
		switch p.outbound.Publish(buf) {
		case transport.OK:
			return
		case transport.Backpressured, transport.AdminBlocked:
			continue
		default:
			p.log.Warn("outbound publish failed", zap.Stringer("type", t))
			return
		}
	}
	p.log.Error("dropping outbound message after exhausting retries", zap.Stringer("type", t))
	metrics.OutboundDroppedTotal.WithLabelValues(strconv.Itoa(p.id), t.String()).Inc()
}
