package gateway

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"flashoms/transport"
	"flashoms/wire"
)

// connState is the per-connection state machine (spec.md §4.7): a
// connection starts unauthenticated, becomes ready once LOGON succeeds, and
// is closed on disconnect or fatal decode error.
type connState int

const (
	stateUnauth connState = iota
	stateReady
	stateClosed
)

// Ingress owns the shared, gateway-wide resources every connection handler
// needs: the session registry, the partition transport bus, and the
// monotonic internal order id counter (spec.md §5: "gateway-wide").
type Ingress struct {
	Sessions      *Registry
	Bus           *transport.Bus
	NumPartitions int

	nextOrderID atomic.Uint64
	log         *zap.Logger
}

// NewIngress wires an Ingress against an existing registry and bus.
func NewIngress(sessions *Registry, bus *transport.Bus, numPartitions int, logger *zap.Logger) *Ingress {
	ig := &Ingress{Sessions: sessions, Bus: bus, NumPartitions: numPartitions, log: logger}
	ig.nextOrderID.Store(1)
	return ig
}

// HandleConnection reads length-prefixed frames from conn until it closes
// or a read error occurs. It never panics: frames with an unknown type or a
// length too short to cover the type byte are logged and skipped, and frames
// whose payload does not decode are dropped, keeping the connection alive.
func (ig *Ingress) HandleConnection(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
		tcp.SetKeepAlive(true)
	}

	c := &connHandler{ig: ig, conn: conn, r: bufio.NewReader(conn), state: stateUnauth}
	defer c.close()

	for c.state != stateClosed {
		if err := c.readFrame(); err != nil {
			if !errors.Is(err, io.EOF) {
				ig.log.Debug("connection read error", zap.Error(err))
			}
			return
		}
	}
}

type connHandler struct {
	ig      *Ingress
	conn    net.Conn
	r       *bufio.Reader
	state   connState
	session *Session
}

func (c *connHandler) close() {
	c.state = stateClosed
	if c.session != nil {
		c.ig.Sessions.Remove(c.session.SessionID)
	}
	c.conn.Close()
}

func (c *connHandler) readFrame() error {
	header := make([]byte, wire.FrameHeaderSize)
	if _, err := io.ReadFull(c.r, header); err != nil {
		return err
	}
	frameLen, typ, err := wire.DecodeFrameHeader(header)
	if err != nil {
		// Unknown type: still must skip the declared payload to resync.
		c.ig.log.Warn("dropping frame with unknown type", zap.Stringer("type", typ))
		payloadLen := frameLen - 1
		if payloadLen > 0 {
			io.CopyN(io.Discard, c.r, int64(payloadLen))
		}
		return nil
	}
	if frameLen < 1 {
		c.ig.log.Warn("dropping frame whose length does not cover its type byte", zap.Stringer("type", typ))
		return nil
	}

	payload := make([]byte, frameLen-1)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		return err
	}

	c.dispatch(typ, payload)
	return nil
}

func (c *connHandler) dispatch(typ wire.MsgType, payload []byte) {
	switch typ {
	case wire.MsgLogon:
		c.handleLogon(payload)
	case wire.MsgNewOrder:
		c.handleNewOrder(payload)
	case wire.MsgCancelRequest:
		c.handleCancel(payload)
	default:
		c.ig.log.Warn("unhandled inbound msg type", zap.Stringer("type", typ))
	}
}

func (c *connHandler) handleLogon(payload []byte) {
	logon, err := wire.DecodeLogon(payload)
	if err != nil {
		return
	}
	if c.session != nil {
		c.ig.log.Warn("duplicate logon", zap.Uint32("sessionId", c.session.SessionID))
		return
	}

	session := c.ig.Sessions.Register(logon.ClientID, c.conn)
	c.session = session
	c.state = stateReady

	buf := make([]byte, wire.FrameHeaderSize+wire.LogonAckPayloadSize)
	wire.EncodeFrameHeader(buf, wire.MsgLogonAck, wire.LogonAckPayloadSize)
	wire.EncodeLogonAck(buf[wire.FrameHeaderSize:], wire.LogonAck{SessionID: session.SessionID})
	c.conn.Write(buf)
}

func (c *connHandler) handleNewOrder(payload []byte) {
	if c.session == nil {
		c.sendReject(0, 0, wire.ReasonSessionNotLoggedOn)
		return
	}

	m, err := wire.DecodeNewOrder(payload)
	if err != nil {
		return
	}

	switch c.session.ValidateAndAdvance(m.ClientSeqNo) {
	case Duplicate:
		c.sendReject(c.session.SessionID, m.ClientSeqNo, wire.ReasonDuplicateSeqNo)
		return
	case Gap:
		c.sendReject(c.session.SessionID, m.ClientSeqNo, wire.ReasonSeqNoGap)
		return
	}

	internalID := c.ig.nextOrderID.Add(1) - 1
	m.SessionID = c.session.SessionID
	m.RecvTsNanos = time.Now().UnixNano()

	partition := transport.Partition(m.InstrumentID, c.ig.NumPartitions)
	stream := c.ig.Bus.Inbound(partition)

	buf := make([]byte, wire.InternalHeaderSize+wire.InternalNewOrderSize)
	wire.EncodeInternalHeader(buf, wire.MsgNewOrder)
	wire.EncodeInternalNewOrder(buf[wire.InternalHeaderSize:], wire.InternalNewOrder{InternalOrderID: internalID, NewOrder: m})

	if stream.Publish(buf) != transport.OK {
		c.sendReject(c.session.SessionID, m.ClientSeqNo, wire.ReasonSystemBusy)
	}
}

func (c *connHandler) handleCancel(payload []byte) {
	if c.session == nil {
		return
	}
	req, err := wire.DecodeCancelRequest(payload)
	if err != nil {
		return
	}
	req.SessionID = c.session.SessionID

	// No sequence check is enforced on cancels, matching the reference.
	partition := transport.Partition(req.InstrumentID, c.ig.NumPartitions)
	stream := c.ig.Bus.Inbound(partition)

	buf := make([]byte, wire.InternalHeaderSize+wire.CancelRequestPayloadSize)
	wire.EncodeInternalHeader(buf, wire.MsgCancelRequest)
	wire.EncodeCancelRequest(buf[wire.InternalHeaderSize:], req)
	stream.Publish(buf)
}

func (c *connHandler) sendReject(sessionID uint32, clientSeqNo uint64, reason wire.RejectReason) {
	buf := make([]byte, wire.FrameHeaderSize+wire.RejectPayloadSize)
	wire.EncodeFrameHeader(buf, wire.MsgReject, wire.RejectPayloadSize)
	wire.EncodeReject(buf[wire.FrameHeaderSize:], wire.Reject{SessionID: sessionID, ClientSeqNo: clientSeqNo, Reason: reason})
	c.conn.Write(buf)
}
