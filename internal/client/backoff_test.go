package client

import (
	"math/rand"
	"testing"
	"time"
)

func TestNextBackoffDelayGrowsAndCaps(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     500 * time.Millisecond,
	}
	if d := NextBackoffDelay(cfg, 1, nil); d != 100*time.Millisecond {
		t.Fatalf("attempt 1 = %v", d)
	}
	if d := NextBackoffDelay(cfg, 2, nil); d != 200*time.Millisecond {
		t.Fatalf("attempt 2 = %v", d)
	}
	if d := NextBackoffDelay(cfg, 10, nil); d != 500*time.Millisecond {
		t.Fatalf("attempt 10 must cap at max, got %v", d)
	}
}

func TestNextBackoffDelayJitterStaysBounded(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     time.Second,
		Jitter:       true,
	}
	rng := rand.New(rand.NewSource(1))
	for attempt := 2; attempt < 8; attempt++ {
		d := NextBackoffDelay(cfg, attempt, rng)
		if d < 0 || d > 1500*time.Millisecond {
			t.Fatalf("attempt %d out of bounds: %v", attempt, d)
		}
	}
}

func TestNextBackoffDelayZeroInitial(t *testing.T) {
	if d := NextBackoffDelay(BackoffConfig{}, 3, nil); d != 0 {
		t.Fatalf("expected zero delay, got %v", d)
	}
}
