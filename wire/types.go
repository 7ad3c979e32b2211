// Package wire implements the binary protocol codec (spec component C1):
// fixed-layout little-endian messages exchanged between clients, the
// gateway, and the engine partitions. Every Encode/Decode function in this
// package operates on a caller-supplied buffer and performs no allocation.
package wire

import "fmt"

// MsgType is the one-byte wire message type code. Codes 1-19 are inbound
// (client -> gateway), 20-39 are outbound (gateway -> client); the same
// codes are reused, unframed, on the gateway<->engine partition transport.
type MsgType uint8

const (
	MsgLogon         MsgType = 1
	MsgNewOrder      MsgType = 2
	MsgCancelRequest MsgType = 3

	MsgLogonAck  MsgType = 20
	MsgAck       MsgType = 21
	MsgReject    MsgType = 22
	MsgFill      MsgType = 23
	MsgCancelAck MsgType = 24
	MsgHeartbeat MsgType = 30
)

func (t MsgType) String() string {
	switch t {
	case MsgLogon:
		return "LOGON"
	case MsgNewOrder:
		return "NEW_ORDER"
	case MsgCancelRequest:
		return "CANCEL_REQUEST"
	case MsgLogonAck:
		return "LOGON_ACK"
	case MsgAck:
		return "ACK"
	case MsgReject:
		return "REJECT"
	case MsgFill:
		return "FILL"
	case MsgCancelAck:
		return "CANCEL_ACK"
	case MsgHeartbeat:
		return "HEARTBEAT"
	default:
		return fmt.Sprintf("MsgType(%d)", uint8(t))
	}
}

// IsKnown reports whether t is one of the closed set of codes above.
// Decode paths must treat an unknown code as a soft error (log and drop),
// never a crash.
func (t MsgType) IsKnown() bool {
	switch t {
	case MsgLogon, MsgNewOrder, MsgCancelRequest,
		MsgLogonAck, MsgAck, MsgReject, MsgFill, MsgCancelAck, MsgHeartbeat:
		return true
	default:
		return false
	}
}

// Side is the order side.
type Side uint8

const (
	Buy  Side = 1
	Sell Side = 2
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the other side. Used to report the passive leg of a
// fill from the resting order's own point of view (spec.md §4.5).
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// SideFromCode decodes a wire side byte. Any value other than 1 decodes as
// SELL, matching the original protocol.Side.fromCode fallback.
func SideFromCode(b uint8) Side {
	if b == uint8(Buy) {
		return Buy
	}
	return Sell
}

// TimeInForce controls what happens to any unfilled remainder.
type TimeInForce uint8

const (
	GTC TimeInForce = 1 // Good-Till-Cancel: unfilled remainder rests.
	IOC TimeInForce = 2 // Immediate-Or-Cancel: unfilled remainder is dropped.
)

func (t TimeInForce) String() string {
	if t == GTC {
		return "GTC"
	}
	return "IOC"
}

// TimeInForceFromCode decodes a wire TIF byte; anything but 1 decodes IOC.
func TimeInForceFromCode(b uint8) TimeInForce {
	if b == uint8(GTC) {
		return GTC
	}
	return IOC
}

// RejectReason is the one-byte reason code carried on a REJECT message.
type RejectReason uint8

const (
	ReasonUnknown            RejectReason = 0
	ReasonDuplicateSeqNo     RejectReason = 1
	ReasonSeqNoGap           RejectReason = 2
	ReasonSystemBusy         RejectReason = 3
	ReasonOrderNotFound      RejectReason = 4
	ReasonInvalidPrice       RejectReason = 5
	ReasonInvalidQty         RejectReason = 6
	ReasonSessionNotLoggedOn RejectReason = 7
)

func (r RejectReason) String() string {
	switch r {
	case ReasonDuplicateSeqNo:
		return "DUPLICATE_SEQNO"
	case ReasonSeqNoGap:
		return "SEQNO_GAP"
	case ReasonSystemBusy:
		return "SYSTEM_BUSY"
	case ReasonOrderNotFound:
		return "ORDER_NOT_FOUND"
	case ReasonInvalidPrice:
		return "INVALID_PRICE"
	case ReasonInvalidQty:
		return "INVALID_QTY"
	case ReasonSessionNotLoggedOn:
		return "SESSION_NOT_LOGGED_ON"
	default:
		return "UNKNOWN"
	}
}

// RejectReasonFromCode decodes a reject reason byte, falling back to
// ReasonUnknown for any code outside the closed enum rather than erroring —
// this keeps the codec forward-compatible with reason codes added later.
func RejectReasonFromCode(b uint8) RejectReason {
	switch RejectReason(b) {
	case ReasonDuplicateSeqNo, ReasonSeqNoGap, ReasonSystemBusy, ReasonOrderNotFound,
		ReasonInvalidPrice, ReasonInvalidQty, ReasonSessionNotLoggedOn:
		return RejectReason(b)
	default:
		return ReasonUnknown
	}
}

// PriceScale is the fixed-point scale factor: a wire/engine price is
// int64(decimalPrice * PriceScale).
const PriceScale int64 = 1_000_000
