package collector

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestInputCounters_Snapshot(t *testing.T) {
	start := fixedNow()
	c := newInputCounters(start)

	c.addKey(start.Add(time.Second))
	c.addKey(start.Add(2 * time.Second))
	c.addClick(start.Add(3 * time.Second))
	c.addMove(start.Add(4 * time.Second))

	got := c.snapshot(start.Add(9 * time.Second))
	want := InputStats{Keys: 2, Clicks: 1, Moves: 1, SecondsSinceLastActivity: 5}
	if got != want {
		t.Fatalf("snapshot = %+v, want %+v", got, want)
	}
}

func TestInputCounters_ClockSkewNeverNegative(t *testing.T) {
	start := fixedNow()
	c := newInputCounters(start)
	if got := c.snapshot(start.Add(-time.Minute)).SecondsSinceLastActivity; got != 0 {
		t.Fatalf("SecondsSinceLastActivity = %d, want 0", got)
	}
}

func TestInputLoop_StartIsIdempotent(t *testing.T) {
	l := inputLoop{stopTimeout: time.Second}
	var runs atomic.Int32

	run := func(ctx context.Context) {
		runs.Add(1)
		<-ctx.Done()
	}
	if !l.start(run) {
		t.Fatal("first start = false, want true")
	}
	if l.start(run) {
		t.Fatal("second start = true, want false")
	}
	if !l.running() {
		t.Fatal("running = false after start")
	}
	if !l.stop() {
		t.Fatal("stop = false, want true")
	}
	if l.running() {
		t.Fatal("running = true after stop")
	}
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
}

func TestInputLoop_StopWithoutStart(t *testing.T) {
	var l inputLoop
	if !l.stop() {
		t.Fatal("stop on idle loop = false, want true")
	}
	if !l.stop() {
		t.Fatal("second stop = false, want true")
	}
}

func TestInputLoop_StopIsBounded(t *testing.T) {
	l := inputLoop{stopTimeout: 20 * time.Millisecond}
	release := make(chan struct{})
	defer close(release)

	l.start(func(ctx context.Context) {
		<-release
	})

	begin := time.Now()
	if l.stop() {
		t.Fatal("stop = true for a stuck poller, want false")
	}
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Fatalf("stop took %v, want about 20ms", elapsed)
	}
}

func TestInputLoop_RestartAfterExit(t *testing.T) {
	l := inputLoop{stopTimeout: time.Second}
	exited := make(chan struct{})
	l.start(func(ctx context.Context) { close(exited) })
	<-exited

	deadline := time.Now().Add(time.Second)
	for l.running() {
		if time.Now().After(deadline) {
			t.Fatal("loop still running after run returned")
		}
		time.Sleep(time.Millisecond)
	}

	if !l.start(func(ctx context.Context) { <-ctx.Done() }) {
		t.Fatal("start after exit = false, want true")
	}
	l.stop()
}

func TestPollEvery_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32
	done := make(chan struct{})

	go func() {
		defer close(done)
		pollEvery(ctx, time.Millisecond, func(time.Time) {
			if ticks.Add(1) == 3 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pollEvery did not return after cancel")
	}
	if ticks.Load() < 3 {
		t.Fatalf("ticks = %d, want >= 3", ticks.Load())
	}
}
