package wire

import "encoding/binary"

// Payload sizes in bytes, matching spec.md §4.1 exactly.
const (
	LogonPayloadSize         = 12
	LogonAckPayloadSize      = 4
	NewOrderPayloadSize      = 50 // TCP client -> gateway
	InternalNewOrderSize     = 62 // gateway -> engine, internalOrderId prepended
	CancelRequestPayloadSize = 24 // gateway -> engine, internal only
	AckPayloadSize           = 32
	RejectPayloadSize        = 13
	FillPayloadSize          = 49
	CancelAckPayloadSize     = 12
)

// Logon is the client -> gateway LOGON payload.
type Logon struct {
	SessionID uint32
	ClientID  uint64
}

// EncodeLogon writes a Logon payload into buf[0:LogonPayloadSize].
func EncodeLogon(buf []byte, m Logon) {
	binary.LittleEndian.PutUint32(buf[0:4], m.SessionID)
	binary.LittleEndian.PutUint64(buf[4:12], m.ClientID)
}

// DecodeLogon reads a Logon payload from buf.
func DecodeLogon(buf []byte) (Logon, error) {
	if len(buf) < LogonPayloadSize {
		return Logon{}, ErrShortPayload
	}
	return Logon{
		SessionID: binary.LittleEndian.Uint32(buf[0:4]),
		ClientID:  binary.LittleEndian.Uint64(buf[4:12]),
	}, nil
}

// LogonAck is the gateway -> client LOGON_ACK payload.
type LogonAck struct {
	SessionID uint32
}

func EncodeLogonAck(buf []byte, m LogonAck) {
	binary.LittleEndian.PutUint32(buf[0:4], m.SessionID)
}

func DecodeLogonAck(buf []byte) (LogonAck, error) {
	if len(buf) < LogonAckPayloadSize {
		return LogonAck{}, ErrShortPayload
	}
	return LogonAck{SessionID: binary.LittleEndian.Uint32(buf[0:4])}, nil
}

// NewOrder is the client -> gateway NEW_ORDER payload (50 bytes).
type NewOrder struct {
	SessionID    uint32
	ClientID     uint64
	ClientSeqNo  uint64
	InstrumentID uint32
	Side         Side
	TIF          TimeInForce
	Price        int64
	Qty          uint64
	RecvTsNanos  int64
}

func EncodeNewOrder(buf []byte, m NewOrder) {
	binary.LittleEndian.PutUint32(buf[0:4], m.SessionID)
	binary.LittleEndian.PutUint64(buf[4:12], m.ClientID)
	binary.LittleEndian.PutUint64(buf[12:20], m.ClientSeqNo)
	binary.LittleEndian.PutUint32(buf[20:24], m.InstrumentID)
	buf[24] = byte(m.Side)
	buf[25] = byte(m.TIF)
	binary.LittleEndian.PutUint64(buf[26:34], uint64(m.Price))
	binary.LittleEndian.PutUint64(buf[34:42], m.Qty)
	binary.LittleEndian.PutUint64(buf[42:50], uint64(m.RecvTsNanos))
}

func DecodeNewOrder(buf []byte) (NewOrder, error) {
	if len(buf) < NewOrderPayloadSize {
		return NewOrder{}, ErrShortPayload
	}
	return NewOrder{
		SessionID:    binary.LittleEndian.Uint32(buf[0:4]),
		ClientID:     binary.LittleEndian.Uint64(buf[4:12]),
		ClientSeqNo:  binary.LittleEndian.Uint64(buf[12:20]),
		InstrumentID: binary.LittleEndian.Uint32(buf[20:24]),
		Side:         SideFromCode(buf[24]),
		TIF:          TimeInForceFromCode(buf[25]),
		Price:        int64(binary.LittleEndian.Uint64(buf[26:34])),
		Qty:          binary.LittleEndian.Uint64(buf[34:42]),
		RecvTsNanos:  int64(binary.LittleEndian.Uint64(buf[42:50])),
	}, nil
}

// InternalNewOrder is the gateway -> engine NEW_ORDER payload: the
// NewOrder fields with InternalOrderID prepended. The payload is 62 bytes:
// the 8-byte id, the 50-byte NewOrder layout, and 4 unused trailing bytes.
type InternalNewOrder struct {
	InternalOrderID uint64
	NewOrder
}

func EncodeInternalNewOrder(buf []byte, m InternalNewOrder) {
	binary.LittleEndian.PutUint64(buf[0:8], m.InternalOrderID)
	EncodeNewOrder(buf[8:8+NewOrderPayloadSize], m.NewOrder)
}

func DecodeInternalNewOrder(buf []byte) (InternalNewOrder, error) {
	if len(buf) < InternalNewOrderSize {
		return InternalNewOrder{}, ErrShortPayload
	}
	no, err := DecodeNewOrder(buf[8 : 8+NewOrderPayloadSize])
	if err != nil {
		return InternalNewOrder{}, err
	}
	return InternalNewOrder{
		InternalOrderID: binary.LittleEndian.Uint64(buf[0:8]),
		NewOrder:        no,
	}, nil
}

// CancelRequest is the gateway -> engine CANCEL_REQUEST payload (internal
// only; there is no separate TCP layout — the gateway re-encodes the
// client's cancel request into this shape before publishing it).
type CancelRequest struct {
	SessionID       uint32
	ClientSeqNo     uint64
	InternalOrderID uint64
	InstrumentID    uint32
}

func EncodeCancelRequest(buf []byte, m CancelRequest) {
	binary.LittleEndian.PutUint32(buf[0:4], m.SessionID)
	binary.LittleEndian.PutUint64(buf[4:12], m.ClientSeqNo)
	binary.LittleEndian.PutUint64(buf[12:20], m.InternalOrderID)
	binary.LittleEndian.PutUint32(buf[20:24], m.InstrumentID)
}

func DecodeCancelRequest(buf []byte) (CancelRequest, error) {
	if len(buf) < CancelRequestPayloadSize {
		return CancelRequest{}, ErrShortPayload
	}
	return CancelRequest{
		SessionID:       binary.LittleEndian.Uint32(buf[0:4]),
		ClientSeqNo:     binary.LittleEndian.Uint64(buf[4:12]),
		InternalOrderID: binary.LittleEndian.Uint64(buf[12:20]),
		InstrumentID:    binary.LittleEndian.Uint32(buf[20:24]),
	}, nil
}

// Ack is the outbound ACK payload.
type Ack struct {
	InternalOrderID uint64
	ClientSeqNo     uint64
	SessionID       uint32
	InstrumentID    uint32
	TsNanos         int64
}

func EncodeAck(buf []byte, m Ack) {
	binary.LittleEndian.PutUint64(buf[0:8], m.InternalOrderID)
	binary.LittleEndian.PutUint64(buf[8:16], m.ClientSeqNo)
	binary.LittleEndian.PutUint32(buf[16:20], m.SessionID)
	binary.LittleEndian.PutUint32(buf[20:24], m.InstrumentID)
	binary.LittleEndian.PutUint64(buf[24:32], uint64(m.TsNanos))
}

func DecodeAck(buf []byte) (Ack, error) {
	if len(buf) < AckPayloadSize {
		return Ack{}, ErrShortPayload
	}
	return Ack{
		InternalOrderID: binary.LittleEndian.Uint64(buf[0:8]),
		ClientSeqNo:     binary.LittleEndian.Uint64(buf[8:16]),
		SessionID:       binary.LittleEndian.Uint32(buf[16:20]),
		InstrumentID:    binary.LittleEndian.Uint32(buf[20:24]),
		TsNanos:         int64(binary.LittleEndian.Uint64(buf[24:32])),
	}, nil
}

// Reject is the outbound REJECT payload.
type Reject struct {
	SessionID   uint32
	ClientSeqNo uint64
	Reason      RejectReason
}

func EncodeReject(buf []byte, m Reject) {
	binary.LittleEndian.PutUint32(buf[0:4], m.SessionID)
	binary.LittleEndian.PutUint64(buf[4:12], m.ClientSeqNo)
	buf[12] = byte(m.Reason)
}

func DecodeReject(buf []byte) (Reject, error) {
	if len(buf) < RejectPayloadSize {
		return Reject{}, ErrShortPayload
	}
	return Reject{
		SessionID:   binary.LittleEndian.Uint32(buf[0:4]),
		ClientSeqNo: binary.LittleEndian.Uint64(buf[4:12]),
		Reason:      RejectReasonFromCode(buf[12]),
	}, nil
}

// Fill is the outbound FILL payload. Emitted once per side per match
// (spec.md §4.5): the aggressor's copy carries its own side, the passive's
// copy carries the opposite side — "side" always means "side of the party
// this FILL is addressed to" (see spec.md §9 Open Questions).
type Fill struct {
	InternalOrderID uint64
	SessionID       uint32
	InstrumentID    uint32
	Side            Side
	FillPrice       int64
	FillQty         uint64
	LeavesQty       uint64
	TsNanos         int64
}

func EncodeFill(buf []byte, m Fill) {
	binary.LittleEndian.PutUint64(buf[0:8], m.InternalOrderID)
	binary.LittleEndian.PutUint32(buf[8:12], m.SessionID)
	binary.LittleEndian.PutUint32(buf[12:16], m.InstrumentID)
	buf[16] = byte(m.Side)
	binary.LittleEndian.PutUint64(buf[17:25], uint64(m.FillPrice))
	binary.LittleEndian.PutUint64(buf[25:33], m.FillQty)
	binary.LittleEndian.PutUint64(buf[33:41], m.LeavesQty)
	binary.LittleEndian.PutUint64(buf[41:49], uint64(m.TsNanos))
}

func DecodeFill(buf []byte) (Fill, error) {
	if len(buf) < FillPayloadSize {
		return Fill{}, ErrShortPayload
	}
	return Fill{
		InternalOrderID: binary.LittleEndian.Uint64(buf[0:8]),
		SessionID:       binary.LittleEndian.Uint32(buf[8:12]),
		InstrumentID:    binary.LittleEndian.Uint32(buf[12:16]),
		Side:            SideFromCode(buf[16]),
		FillPrice:       int64(binary.LittleEndian.Uint64(buf[17:25])),
		FillQty:         binary.LittleEndian.Uint64(buf[25:33]),
		LeavesQty:       binary.LittleEndian.Uint64(buf[33:41]),
		TsNanos:         int64(binary.LittleEndian.Uint64(buf[41:49])),
	}, nil
}

// CancelAck is the outbound CANCEL_ACK payload.
type CancelAck struct {
	InternalOrderID uint64
	SessionID       uint32
}

func EncodeCancelAck(buf []byte, m CancelAck) {
	binary.LittleEndian.PutUint64(buf[0:8], m.InternalOrderID)
	binary.LittleEndian.PutUint32(buf[8:12], m.SessionID)
}

func DecodeCancelAck(buf []byte) (CancelAck, error) {
	if len(buf) < CancelAckPayloadSize {
		return CancelAck{}, ErrShortPayload
	}
	return CancelAck{
		InternalOrderID: binary.LittleEndian.Uint64(buf[0:8]),
		SessionID:       binary.LittleEndian.Uint32(buf[8:12]),
	}, nil
}
