package protocol

import "time"

// MessageType is the raw wire ordinal of a message kind. Ordinals outside
// the known set still decode; this layer does not police future kinds.
type MessageType uint8

const (
	MessageHandshake MessageType = iota
	MessageData
	MessagePing
	MessagePong
	MessageDisconnect
)

func (t MessageType) String() string {
	switch t {
	case MessageHandshake:
		return "handshake"
	case MessageData:
		return "data"
	case MessagePing:
		return "ping"
	case MessagePong:
		return "pong"
	case MessageDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// BroadcastID is the reserved receiver id addressing every connected peer.
// It is never assigned to a peer.
const BroadcastID uint32 = 0

// Message is one wire message. Payload is shared by reference when a
// Message is copied; decoded messages always own their payload bytes.
// Sequence and Reliable are the only fields meant to change after
// construction.
type Message struct {
	Type       MessageType
	SenderID   uint32
	ReceiverID uint32
	Sequence   uint32
	Timestamp  int64 // microseconds since epoch, round-trips exactly
	Reliable   bool
	Payload    []byte
}

// NewMessage stamps the message with the current wall-clock time.
func NewMessage(t MessageType, sender, receiver uint32, payload []byte) Message {
	return Message{
		Type:       t,
		SenderID:   sender,
		ReceiverID: receiver,
		Timestamp:  time.Now().UnixMicro(),
		Payload:    payload,
	}
}

// IsBroadcast reports whether the message addresses every peer.
func (m Message) IsBroadcast() bool {
	return m.ReceiverID == BroadcastID
}
