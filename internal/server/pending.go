package server

import (
	"sync"
	"time"
)

// pendingPing tracks one ping awaiting its pong.
type pendingPing struct {
	PeerID   uint32
	Sequence uint32
	SentAt   time.Time
}

// pingLedger stores in-flight pings keyed by (peer, sequence) so a pong
// can be matched back to the send that timed it.
type pingLedger struct {
	mu    sync.Mutex
	seq   uint32
	items map[uint64]pendingPing
}

func newPingLedger() *pingLedger {
	return &pingLedger{items: make(map[uint64]pendingPing)}
}

func pingKey(peerID, seq uint32) uint64 {
	return uint64(peerID)<<32 | uint64(seq)
}

// begin assigns the next sequence and records the outgoing ping.
func (l *pingLedger) begin(peerID uint32, at time.Time) pendingPing {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	item := pendingPing{PeerID: peerID, Sequence: l.seq, SentAt: at}
	l.items[pingKey(peerID, item.Sequence)] = item
	return item
}

// resolve matches a pong and returns the measured round trip.
func (l *pingLedger) resolve(peerID, seq uint32, at time.Time) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := pingKey(peerID, seq)
	item, ok := l.items[key]
	if !ok {
		return 0, false
	}
	delete(l.items, key)
	return at.Sub(item.SentAt), true
}

// drop forgets every pending ping for a departed peer.
func (l *pingLedger) drop(peerID uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, item := range l.items {
		if item.PeerID == peerID {
			delete(l.items, key)
		}
	}
}
