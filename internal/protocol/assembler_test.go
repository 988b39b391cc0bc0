package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestAssemblerSingleFrame(t *testing.T) {
	a := NewAssembler(DefaultLimits())
	a.Feed(Encode(NewMessage(MessageData, 1, 0, []byte("hello"))))

	m, ok, err := a.Next()
	if err != nil || !ok {
		t.Fatalf("expected one frame, ok=%v err=%v", ok, err)
	}
	if string(m.Payload) != "hello" {
		t.Fatalf("payload = %q", m.Payload)
	}
	if _, ok, _ := a.Next(); ok {
		t.Fatalf("expected no second frame")
	}
	if a.Buffered() != 0 {
		t.Fatalf("buffer not drained: %d bytes left", a.Buffered())
	}
}

func TestAssemblerPartialFeeds(t *testing.T) {
	a := NewAssembler(DefaultLimits())
	buf := Encode(NewMessage(MessageData, 1, 2, []byte("split across reads")))

	for i := 0; i < len(buf); i++ {
		a.Feed(buf[i : i+1])
		if i < len(buf)-1 {
			if _, ok, err := a.Next(); ok || err != nil {
				t.Fatalf("premature frame at byte %d: ok=%v err=%v", i, ok, err)
			}
		}
	}
	m, ok, err := a.Next()
	if err != nil || !ok {
		t.Fatalf("expected frame after final byte, ok=%v err=%v", ok, err)
	}
	if string(m.Payload) != "split across reads" {
		t.Fatalf("payload = %q", m.Payload)
	}
}

func TestAssemblerCoalescedFrames(t *testing.T) {
	a := NewAssembler(DefaultLimits())
	var stream []byte
	for i := uint32(0); i < 3; i++ {
		m := NewMessage(MessageData, i+1, 0, []byte{byte('a' + i)})
		stream = append(stream, Encode(m)...)
	}
	a.Feed(stream)

	var got []byte
	for {
		m, ok, err := a.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, m.Payload...)
	}
	if !bytes.Equal(got, []byte("abc")) {
		t.Fatalf("frames out of order or lost: %q", got)
	}
}

func TestAssemblerOversizedFrameSkipped(t *testing.T) {
	a := NewAssembler(Limits{MaxPayloadBytes: 16})

	big := Encode(NewMessage(MessageData, 1, 0, make([]byte, 64)))
	after := Encode(NewMessage(MessageData, 2, 0, []byte("ok")))
	a.Feed(big)
	a.Feed(after)

	_, ok, err := a.Next()
	if ok || !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected skip report, ok=%v err=%v", ok, err)
	}
	if !errors.Is(err, ErrMessageInvalid) {
		t.Fatalf("oversize must still classify as invalid: %v", err)
	}
	m, ok, err := a.Next()
	if err != nil || !ok {
		t.Fatalf("stream must stay framed after skip, ok=%v err=%v", ok, err)
	}
	if m.SenderID != 2 || string(m.Payload) != "ok" {
		t.Fatalf("wrong follow-up frame: %+v", m)
	}
}

func TestAssemblerOversizedFrameFedInPieces(t *testing.T) {
	a := NewAssembler(Limits{MaxPayloadBytes: 8})
	big := Encode(NewMessage(MessageData, 1, 0, make([]byte, 32)))

	a.Feed(big[:HeaderSize])
	if _, ok, err := a.Next(); ok || !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected skip report from header alone, ok=%v err=%v", ok, err)
	}
	a.Feed(big[HeaderSize:])
	a.Feed(Encode(NewMessage(MessagePing, 3, 0, nil)))

	m, ok, err := a.Next()
	if err != nil || !ok {
		t.Fatalf("expected ping after discard, ok=%v err=%v", ok, err)
	}
	if m.Type != MessagePing {
		t.Fatalf("type = %v", m.Type)
	}
}

func TestAssemblerReset(t *testing.T) {
	a := NewAssembler(DefaultLimits())
	a.Feed([]byte{1, 2, 3})
	a.Reset()
	if a.Buffered() != 0 {
		t.Fatalf("reset left %d bytes", a.Buffered())
	}
}
