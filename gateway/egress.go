package gateway

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"flashoms/metrics"
	"flashoms/transport"
	"flashoms/wire"
)

const maxFragmentsPerStreamPoll = 64

// Egress is the single worker that polls every partition's outbound stream
// round-robin and forwards fragments to their owning client connection
// (spec component C8).
type Egress struct {
	Sessions *Registry
	Bus      *transport.Bus

	running atomic.Bool
	log     *zap.Logger
}

// NewEgress creates an Egress bound to sessions and bus.
func NewEgress(sessions *Registry, bus *transport.Bus, logger *zap.Logger) *Egress {
	return &Egress{Sessions: sessions, Bus: bus, log: logger}
}

// Run polls every partition's outbound stream until Stop is called.
func (e *Egress) Run() {
	e.running.Store(true)
	numPartitions := e.Bus.NumPartitions()

	for e.running.Load() {
		fragments := 0
		for partition := 0; partition < numPartitions; partition++ {
			fragments += e.Bus.Outbound(partition).Poll(maxFragmentsPerStreamPoll, e.onFragment)
		}
		if fragments == 0 {
			time.Sleep(time.Microsecond)
		}
	}
}

// Stop causes Run's poll loop to exit at its next iteration.
func (e *Egress) Stop() {
	e.running.Store(false)
}

func (e *Egress) onFragment(msg []byte) {
	typ, err := wire.DecodeInternalHeader(msg)
	if err != nil {
		e.log.Warn("dropping outbound fragment with unknown type", zap.Error(err))
		return
	}
	payload := msg[wire.InternalHeaderSize:]

	var sessionID uint32
	switch typ {
	case wire.MsgAck:
		ack, err := wire.DecodeAck(payload)
		if err != nil {
			return
		}
		sessionID = ack.SessionID
		metrics.AckLatencySeconds.Observe(time.Duration(time.Now().UnixNano() - ack.TsNanos).Seconds())
	case wire.MsgFill:
		fill, err := wire.DecodeFill(payload)
		if err != nil {
			return
		}
		sessionID = fill.SessionID
	case wire.MsgReject:
		rej, err := wire.DecodeReject(payload)
		if err != nil {
			return
		}
		sessionID = rej.SessionID
	case wire.MsgCancelAck:
		cack, err := wire.DecodeCancelAck(payload)
		if err != nil {
			return
		}
		sessionID = cack.SessionID
	default:
		e.log.Warn("unhandled outbound msg type", zap.Stringer("type", typ))
		return
	}

	e.forward(sessionID, typ, msg)
}

func (e *Egress) forward(sessionID uint32, typ wire.MsgType, internalMsg []byte) {
	session, ok := e.Sessions.Get(sessionID)
	if !ok || !session.IsActive() {
		return
	}

	// internalMsg is [type(1)][payload]; the TCP frame header's length
	// field counts exactly those bytes, so it can be reused verbatim.
	payload := internalMsg[wire.InternalHeaderSize:]
	frame := make([]byte, wire.FrameHeaderSize+len(payload))
	wire.EncodeFrameHeader(frame, typ, len(payload))
	copy(frame[wire.FrameHeaderSize:], payload)

	session.Conn.Write(frame)
}
