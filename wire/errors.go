package wire

import "errors"

// ErrShortPayload is returned when a Decode function is given a buffer
// shorter than the fixed layout it expects. Callers treat this as a soft
// protocol decode error: log and drop the frame, never crash (spec.md §7).
var ErrShortPayload = errors.New("wire: payload too short")

// ErrUnknownMsgType is returned by DecodeFrameHeader for a type code
// outside the closed MsgType enum.
var ErrUnknownMsgType = errors.New("wire: unknown message type")
