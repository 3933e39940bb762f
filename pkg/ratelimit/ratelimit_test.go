package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestPacer_ZeroDoesNotBlock(t *testing.T) {
	p := NewPacer(0, 0)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Errorf("zero pacer should not block")
	}

	var nilPacer *Pacer
	if err := nilPacer.Wait(context.Background()); err != nil {
		t.Fatalf("nil pacer should not fail: %v", err)
	}
}

func TestPacer_NextWithinBounds(t *testing.T) {
	p := NewPacer(15*time.Second, 25*time.Second)
	for i := 0; i < 1000; i++ {
		d := p.Next()
		if d < 15*time.Second || d > 25*time.Second {
			t.Fatalf("delay %v outside [15s, 25s]", d)
		}
	}
}

func TestPacer_NormalizesBounds(t *testing.T) {
	p := NewPacer(8*time.Second, 5*time.Second)
	lo, hi := p.Bounds()
	if lo != 5*time.Second || hi != 8*time.Second {
		t.Errorf("expected swapped bounds 5s..8s, got %v..%v", lo, hi)
	}

	p = NewPacer(-time.Second, 2*time.Second)
	lo, _ = p.Bounds()
	if lo != 0 {
		t.Errorf("expected negative min clamped to 0, got %v", lo)
	}

	p = NewPacer(time.Second, time.Second)
	if p.Next() != time.Second {
		t.Errorf("expected fixed delay of 1s")
	}
}

func TestPacer_Wait(t *testing.T) {
	p := NewPacer(40*time.Millisecond, 60*time.Millisecond)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 40*time.Millisecond || elapsed > 250*time.Millisecond {
		t.Errorf("expected wait around 40-60ms, took %v", elapsed)
	}
}

func TestPacer_ContextCancellation(t *testing.T) {
	p := NewPacer(time.Minute, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := p.Wait(ctx); err == nil {
		t.Fatal("expected context canceled error")
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("cancelled wait should return immediately")
	}
}

func TestChance(t *testing.T) {
	if Chance(0) || Chance(-1) {
		t.Error("zero probability must never fire")
	}
	if !Chance(1) || !Chance(2) {
		t.Error("probability >= 1 must always fire")
	}

	hits := 0
	for i := 0; i < 10000; i++ {
		if Chance(0.3) {
			hits++
		}
	}
	if hits < 2500 || hits > 3500 {
		t.Errorf("expected roughly 3000 hits at p=0.3, got %d", hits)
	}
}

func TestIntBetween(t *testing.T) {
	for i := 0; i < 500; i++ {
		n := IntBetween(10, 50)
		if n < 10 || n > 50 {
			t.Fatalf("value %d outside [10, 50]", n)
		}
	}
	if IntBetween(7, 7) != 7 || IntBetween(9, 3) != 9 {
		t.Error("degenerate ranges should return lo")
	}
}
