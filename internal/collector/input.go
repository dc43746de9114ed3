package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type timeSource func() time.Time

// inputCounters are incremented by the single input goroutine and read
// lock-free by everyone else.
type inputCounters struct {
	keys         atomic.Int64
	clicks       atomic.Int64
	moves        atomic.Int64
	lastActivity atomic.Int64 // unix nanoseconds
}

func newInputCounters(now time.Time) *inputCounters {
	c := &inputCounters{}
	c.lastActivity.Store(now.UnixNano())
	return c
}

func (c *inputCounters) addKey(now time.Time) {
	c.keys.Add(1)
	c.touch(now)
}

func (c *inputCounters) addClick(now time.Time) {
	c.clicks.Add(1)
	c.touch(now)
}

func (c *inputCounters) addMove(now time.Time) {
	c.moves.Add(1)
	c.touch(now)
}

func (c *inputCounters) touch(now time.Time) {
	c.lastActivity.Store(now.UnixNano())
}

func (c *inputCounters) snapshot(now time.Time) InputStats {
	last := time.Unix(0, c.lastActivity.Load())
	idle := int64(now.Sub(last) / time.Second)
	if idle < 0 {
		idle = 0
	}
	return InputStats{
		Keys:                     c.keys.Load(),
		Clicks:                   c.clicks.Load(),
		Moves:                    c.moves.Load(),
		SecondsSinceLastActivity: idle,
	}
}

// inputLoop owns the lifecycle of a background input poller. start and stop
// are idempotent; stop waits at most stopTimeout for the poller to return.
type inputLoop struct {
	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	stopTimeout time.Duration
}

// start launches run in a new goroutine unless one is already active.
// run must return promptly once ctx is cancelled and must release any OS
// handles it opened before returning.
func (l *inputLoop) start(run func(ctx context.Context)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done != nil {
		select {
		case <-l.done:
			// Previous poller exited on its own (no devices); allow a restart.
		default:
			return false
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go func() {
		defer close(done)
		run(ctx)
	}()
	return true
}

// stop cancels the poller and reports whether it finished within the timeout.
func (l *inputLoop) stop() bool {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return true
	}
	cancel()

	timer := time.NewTimer(l.stopTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (l *inputLoop) running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

// pollEvery calls fn every interval until ctx is cancelled.
func pollEvery(ctx context.Context, interval time.Duration, fn func(now time.Time)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fn(now)
		}
	}
}
