package wire

import "encoding/binary"

// TCP frame layout (client<->gateway): [len:u16 LE][type:u8][payload].
// len counts bytes after the length field itself, i.e. 1 + len(payload).
const (
	FrameHeaderSize = 3
	MaxFrameSize    = 65535
)

// EncodeFrameHeader writes the 3-byte frame header into buf[0:3] for a
// payload of the given size.
func EncodeFrameHeader(buf []byte, t MsgType, payloadSize int) {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(1+payloadSize))
	buf[2] = byte(t)
}

// DecodeFrameHeader reads the frame length (total bytes following the
// length field) and message type from buf[0:3].
func DecodeFrameHeader(buf []byte) (frameLen int, t MsgType, err error) {
	if len(buf) < FrameHeaderSize {
		return 0, 0, ErrShortPayload
	}
	frameLen = int(binary.LittleEndian.Uint16(buf[0:2]))
	code := MsgType(buf[2])
	if !code.IsKnown() {
		return frameLen, code, ErrUnknownMsgType
	}
	return frameLen, code, nil
}

// InternalHeaderSize is the size of the unframed partition-transport
// header: just the one-byte type code, no length prefix (the transport
// substrate itself delivers complete messages, per spec.md §4.9).
const InternalHeaderSize = 1

// EncodeInternalHeader writes the one-byte type code at buf[0].
func EncodeInternalHeader(buf []byte, t MsgType) {
	buf[0] = byte(t)
}

// DecodeInternalHeader reads the type code from buf[0].
func DecodeInternalHeader(buf []byte) (t MsgType, err error) {
	if len(buf) < InternalHeaderSize {
		return 0, ErrShortPayload
	}
	code := MsgType(buf[0])
	if !code.IsKnown() {
		return code, ErrUnknownMsgType
	}
	return code, nil
}
