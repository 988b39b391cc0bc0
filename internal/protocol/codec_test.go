package protocol

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := Message{
		Type:       MessageData,
		SenderID:   7,
		ReceiverID: 42,
		Sequence:   9001,
		Timestamp:  time.Now().UnixMicro(),
		Reliable:   true,
		Payload:    []byte("state delta for tick 8814"),
	}
	buf := Encode(in)
	if len(buf) != HeaderSize+len(in.Payload) {
		t.Fatalf("encoded length = %d, want %d", len(buf), HeaderSize+len(in.Payload))
	}
	out, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Type != in.Type || out.SenderID != in.SenderID || out.ReceiverID != in.ReceiverID {
		t.Fatalf("identity mismatch: got=%+v want=%+v", out, in)
	}
	if out.Sequence != in.Sequence || out.Timestamp != in.Timestamp || out.Reliable != in.Reliable {
		t.Fatalf("metadata mismatch: got=%+v want=%+v", out, in)
	}
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("payload mismatch: %q", out.Payload)
	}
}

func TestEncodeDecodeEmptyPayload(t *testing.T) {
	in := NewMessage(MessagePing, 3, 4, nil)
	out, err := Decode(Encode(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Payload) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(out.Payload))
	}
	if out.Timestamp != in.Timestamp {
		t.Fatalf("timestamp not preserved: got=%d want=%d", out.Timestamp, in.Timestamp)
	}
}

func TestEncodeNegativeTimestampRoundTrips(t *testing.T) {
	in := Message{Type: MessageData, Timestamp: -1}
	out, err := Decode(Encode(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Timestamp != -1 {
		t.Fatalf("timestamp = %d, want -1", out.Timestamp)
	}
}

func TestDecodeTruncatedHeader(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); !errors.Is(err, ErrMessageInvalid) {
		t.Fatalf("expected ErrMessageInvalid, got %v", err)
	}
	if _, err := Decode(make([]byte, HeaderSize-1)); !errors.Is(err, ErrMessageInvalid) {
		t.Fatalf("expected ErrMessageInvalid on 25 bytes, got %v", err)
	}
}

func TestDecodeTruncatedPayload(t *testing.T) {
	buf := Encode(Message{Type: MessageData, Payload: []byte("abcdef")})
	if _, err := Decode(buf[:len(buf)-2]); !errors.Is(err, ErrMessageInvalid) {
		t.Fatalf("expected ErrMessageInvalid, got %v", err)
	}
}

func TestDecodeUnknownTypeOrdinal(t *testing.T) {
	buf := Encode(Message{Type: MessageType(250)})
	out, err := Decode(buf)
	if err != nil {
		t.Fatalf("unknown ordinal must still decode, got %v", err)
	}
	if out.Type != MessageType(250) {
		t.Fatalf("raw ordinal not preserved: %d", out.Type)
	}
}

func TestDecodeReservedFlagBitsIgnored(t *testing.T) {
	buf := Encode(Message{Type: MessageData, Reliable: true})
	buf[1] |= 0xFE
	out, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Reliable {
		t.Fatalf("reliable bit lost")
	}
}

func TestDecodeOwnsPayload(t *testing.T) {
	buf := Encode(Message{Type: MessageData, Payload: []byte("hold")})
	out, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	buf[HeaderSize] = 'X'
	if string(out.Payload) != "hold" {
		t.Fatalf("decoded payload aliases the input buffer")
	}
}

func TestIsBroadcast(t *testing.T) {
	if !NewMessage(MessageData, 1, BroadcastID, nil).IsBroadcast() {
		t.Fatalf("receiver 0 must be broadcast")
	}
	if NewMessage(MessageData, 1, 2, nil).IsBroadcast() {
		t.Fatalf("receiver 2 must not be broadcast")
	}
}
