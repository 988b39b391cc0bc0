package protocol

import (
	"encoding/binary"
	"fmt"
)

// Limits constrains assembler memory use per connection.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

// Assembler accumulates raw stream bytes across non-blocking reads and
// yields complete frames. Partial trailing bytes stay buffered until the
// next Feed. A declared payload beyond the limit is skipped byte-for-byte
// so the stream stays framed, and is reported once as ErrPayloadTooLarge.
type Assembler struct {
	limits  Limits
	buf     []byte
	discard uint64
}

func NewAssembler(limits Limits) *Assembler {
	if limits.MaxPayloadBytes == 0 {
		limits = DefaultLimits()
	}
	return &Assembler{limits: limits}
}

// Feed appends freshly read bytes to the receive buffer.
func (a *Assembler) Feed(p []byte) {
	if len(p) == 0 {
		return
	}
	a.buf = append(a.buf, p...)
}

// Buffered returns the number of bytes awaiting frame completion.
func (a *Assembler) Buffered() int {
	return len(a.buf)
}

// Reset drops all buffered state, for connection reuse.
func (a *Assembler) Reset() {
	a.buf = nil
	a.discard = 0
}

// Next extracts one complete frame if available. The boolean reports
// whether a message was produced; callers loop until it is false. A
// non-nil error reports one skipped oversized frame and leaves the
// assembler usable.
func (a *Assembler) Next() (Message, bool, error) {
	a.drainDiscard()
	if a.discard > 0 || len(a.buf) < HeaderSize {
		return Message{}, false, nil
	}

	payloadLen := binary.BigEndian.Uint32(a.buf[22:26])
	if payloadLen > a.limits.MaxPayloadBytes {
		a.discard = uint64(HeaderSize) + uint64(payloadLen)
		a.drainDiscard()
		return Message{}, false, fmt.Errorf("%w: declared %d exceeds limit %d",
			ErrPayloadTooLarge, payloadLen, a.limits.MaxPayloadBytes)
	}

	total := HeaderSize + int(payloadLen)
	if len(a.buf) < total {
		return Message{}, false, nil
	}

	m, err := Decode(a.buf[:total])
	if err != nil {
		// Unreachable given the length check above, but never let a
		// decode slip through silently.
		a.buf = a.buf[total:]
		return Message{}, false, err
	}
	a.buf = a.buf[total:]
	if len(a.buf) == 0 {
		a.buf = nil
	}
	return m, true, nil
}

func (a *Assembler) drainDiscard() {
	if a.discard == 0 {
		return
	}
	n := uint64(len(a.buf))
	if n <= a.discard {
		a.discard -= n
		a.buf = nil
		return
	}
	a.buf = a.buf[a.discard:]
	a.discard = 0
}
