package peer

import (
	"testing"
	"time"
)

func TestSetStateIdempotent(t *testing.T) {
	p := New(1, "10.0.0.8", 7777)

	var notifications int
	var lastOld, lastNew State
	p.OnStateChange(func(old, new State) {
		notifications++
		lastOld, lastNew = old, new
	})

	p.SetState(Connecting)
	p.SetState(Connecting)
	if notifications != 1 {
		t.Fatalf("expected exactly one notification, got %d", notifications)
	}
	if lastOld != Disconnected || lastNew != Connecting {
		t.Fatalf("observation = (%v, %v)", lastOld, lastNew)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	p := New(2, "10.0.0.9", 7777)

	var seen []State
	p.OnStateChange(func(_, new State) {
		seen = append(seen, new)
	})

	for _, s := range []State{Connecting, Connected, Disconnecting, Disconnected} {
		p.SetState(s)
	}
	want := []State{Connecting, Connected, Disconnecting, Disconnected}
	if len(seen) != len(want) {
		t.Fatalf("saw %d transitions, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transition[%d] = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestIsConnected(t *testing.T) {
	p := New(3, "host", 1)
	if p.IsConnected() {
		t.Fatalf("fresh peer must not be connected")
	}
	p.SetState(Connected)
	if !p.IsConnected() {
		t.Fatalf("connected peer must report connected")
	}
	p.SetState(Disconnecting)
	if p.IsConnected() {
		t.Fatalf("disconnecting peer must not report connected")
	}
}

func TestUpdateRTTNotifiesOnChangeOnly(t *testing.T) {
	p := New(4, "host", 1)

	var notifications int
	p.OnRTTChange(func(uint32) { notifications++ })

	p.UpdateRTT(30)
	p.UpdateRTT(30)
	p.UpdateRTT(45)
	if notifications != 2 {
		t.Fatalf("expected 2 notifications, got %d", notifications)
	}
	if p.RTT() != 45 {
		t.Fatalf("rtt = %d, want 45", p.RTT())
	}
}

func TestTouchAdvancesLastActivity(t *testing.T) {
	p := New(5, "host", 1)
	before := p.LastActivity()
	if before == 0 {
		t.Fatalf("last activity must initialize to creation time")
	}
	time.Sleep(2 * time.Millisecond)
	p.Touch()
	if p.LastActivity() <= before {
		t.Fatalf("touch did not advance last activity: %d -> %d", before, p.LastActivity())
	}
}
