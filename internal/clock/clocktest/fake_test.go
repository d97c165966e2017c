package clocktest

import (
	"testing"
	"time"
)

func TestFakeFiresInOrder(t *testing.T) {
	clk := NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	var fired []string
	clk.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	clk.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	stopped := clk.AfterFunc(1500*time.Millisecond, func() { fired = append(fired, "x") })
	if !stopped.Stop() {
		t.Fatalf("stop should report true for pending timer")
	}

	clk.Advance(1999 * time.Millisecond)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("fired want [a] got %v", fired)
	}
	clk.Advance(time.Millisecond)
	if len(fired) != 2 || fired[1] != "b" {
		t.Fatalf("fired want [a b] got %v", fired)
	}
	if clk.Pending() != 0 {
		t.Fatalf("pending want 0 got %d", clk.Pending())
	}
}

func TestFakeTimerRegisteredDuringFire(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))
	count := 0
	clk.AfterFunc(time.Second, func() {
		count++
		clk.AfterFunc(time.Second, func() { count++ })
	})
	clk.Advance(3 * time.Second)
	if count != 2 {
		t.Fatalf("count want 2 got %d", count)
	}
}
