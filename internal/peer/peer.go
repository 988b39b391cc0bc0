// Package peer tracks one remote endpoint: identity, lifecycle state,
// round-trip estimate, last-activity timestamp. A Peer performs no I/O;
// its owning client/server drives every transition.
package peer

import (
	"sync"
	"time"
)

// State is a peer's position in the connection lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return "invalid"
	}
}

// StateListener observes an actual state change. Redundant SetState calls
// do not reach it.
type StateListener func(old, new State)

// RTTListener observes a changed round-trip estimate in milliseconds.
type RTTListener func(ms uint32)

// Peer is one remote endpoint record. ID, Addr and Port are fixed at
// construction; ID is never the reserved broadcast id 0.
type Peer struct {
	id   uint32
	addr string
	port uint16

	mu           sync.Mutex
	state        State
	rtt          uint32
	lastActivity int64 // microseconds since epoch

	onState StateListener
	onRTT   RTTListener
}

func New(id uint32, addr string, port uint16) *Peer {
	return &Peer{
		id:           id,
		addr:         addr,
		port:         port,
		state:        Disconnected,
		lastActivity: time.Now().UnixMicro(),
	}
}

func (p *Peer) ID() uint32   { return p.id }
func (p *Peer) Addr() string { return p.addr }
func (p *Peer) Port() uint16 { return p.port }

// OnStateChange registers the single state observer. Owners register
// before driving transitions.
func (p *Peer) OnStateChange(fn StateListener) {
	p.mu.Lock()
	p.onState = fn
	p.mu.Unlock()
}

// OnRTTChange registers the single rtt observer.
func (p *Peer) OnRTTChange(fn RTTListener) {
	p.mu.Lock()
	p.onRTT = fn
	p.mu.Unlock()
}

func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetState moves the peer to s. Setting the current state again is a
// no-op and notifies nothing, so redundant teardown calls cannot
// double-notify.
func (p *Peer) SetState(s State) {
	p.mu.Lock()
	if p.state == s {
		p.mu.Unlock()
		return
	}
	old := p.state
	p.state = s
	fn := p.onState
	p.mu.Unlock()
	if fn != nil {
		fn(old, s)
	}
}

func (p *Peer) IsConnected() bool {
	return p.State() == Connected
}

// Touch refreshes last-activity to now. Owners call it on every observed
// read or write so liveness policies layered on top have a signal.
func (p *Peer) Touch() {
	p.mu.Lock()
	p.lastActivity = time.Now().UnixMicro()
	p.mu.Unlock()
}

// LastActivity returns the last-activity timestamp in microseconds.
func (p *Peer) LastActivity() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastActivity
}

func (p *Peer) RTT() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rtt
}

// UpdateRTT overwrites the estimate. An unchanged value is a no-op and
// notifies nothing.
func (p *Peer) UpdateRTT(ms uint32) {
	p.mu.Lock()
	if p.rtt == ms {
		p.mu.Unlock()
		return
	}
	p.rtt = ms
	fn := p.onRTT
	p.mu.Unlock()
	if fn != nil {
		fn(ms)
	}
}
