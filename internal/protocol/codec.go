package protocol

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed wire header length in bytes.
const HeaderSize = 26

// FlagReliable marks a message for the reliable delivery class. The
// transport is a stream today, so the flag is carried but not acted on.
// Bits 1-7 are reserved and written as zero.
const FlagReliable uint8 = 0x01

// Encode serializes m into a freshly allocated buffer of exactly
// HeaderSize+len(payload) bytes. Encode cannot fail.
func Encode(m Message) []byte {
	buf := make([]byte, HeaderSize+len(m.Payload))
	buf[0] = byte(m.Type)
	if m.Reliable {
		buf[1] = FlagReliable
	}
	binary.BigEndian.PutUint32(buf[2:6], m.SenderID)
	binary.BigEndian.PutUint32(buf[6:10], m.ReceiverID)
	binary.BigEndian.PutUint32(buf[10:14], m.Sequence)
	binary.BigEndian.PutUint64(buf[14:22], uint64(m.Timestamp))
	binary.BigEndian.PutUint32(buf[22:26], uint32(len(m.Payload)))
	copy(buf[HeaderSize:], m.Payload)
	return buf
}

// Decode parses one complete frame from b. It fails with ErrMessageInvalid
// only when the header is truncated or the declared payload length exceeds
// the supplied bytes. Unknown type ordinals decode as-is. The returned
// payload is a copy owned by the message.
func Decode(b []byte) (Message, error) {
	if len(b) < HeaderSize {
		return Message{}, fmt.Errorf("%w: truncated header (%d bytes)", ErrMessageInvalid, len(b))
	}
	payloadLen := binary.BigEndian.Uint32(b[22:26])
	if uint64(HeaderSize)+uint64(payloadLen) > uint64(len(b)) {
		return Message{}, fmt.Errorf("%w: truncated payload (declared %d, have %d)",
			ErrMessageInvalid, payloadLen, len(b)-HeaderSize)
	}
	m := Message{
		Type:       MessageType(b[0]),
		Reliable:   b[1]&FlagReliable != 0,
		SenderID:   binary.BigEndian.Uint32(b[2:6]),
		ReceiverID: binary.BigEndian.Uint32(b[6:10]),
		Sequence:   binary.BigEndian.Uint32(b[10:14]),
		Timestamp:  int64(binary.BigEndian.Uint64(b[14:22])),
	}
	if payloadLen > 0 {
		m.Payload = make([]byte, payloadLen)
		copy(m.Payload, b[HeaderSize:HeaderSize+int(payloadLen)])
	}
	return m, nil
}
