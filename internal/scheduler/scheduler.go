// Package scheduler runs periodic metric collection against a Source and
// hands each sample to a Sink on behalf of the bound user.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/account"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/collector"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/logging"
)

const DefaultInterval = 5 * time.Second

// ErrGuestMode is returned by SaveNow when no user is bound.
var ErrGuestMode = errors.New("no user bound, sample not saved")

// Warning thresholds checked after every collection.
const (
	cpuWarnPercent      = 90
	ramWarnPercent      = 85
	diskFreeWarnPercent = 10
)

// Sink persists collected samples.
type Sink interface {
	SaveSample(userID int64, s collector.MetricSample) error
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

type Scheduler struct {
	source   collector.Source
	sink     Sink
	log      *slog.Logger
	interval time.Duration

	// lifeMu serialises Start and Stop.
	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// pollMu serialises whole collections on the source.
	pollMu sync.Mutex

	mu         sync.Mutex
	user       *account.User
	latest     collector.MetricSample
	haveLatest bool
}

func New(source collector.Source, sink Sink, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		source:   source,
		sink:     sink,
		log:      logger.With("topic", logging.TopicMetrics),
		interval: DefaultInterval,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins collecting for user, or in guest mode when user is nil. The
// first collection happens immediately. Start is a no-op while running.
func (s *Scheduler) Start(user *account.User) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.done != nil {
		return
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	s.source.StartInputMonitoring()
	go s.run(ctx, user, done)

	if user.Valid() {
		s.log.Info("monitoring started", "user", user.Name, "interval", s.interval)
	} else {
		s.log.Info("monitoring started in guest mode", "interval", s.interval)
	}
}

// Stop halts collection and waits for a tick in progress to finish. It is
// safe to call in any state.
func (s *Scheduler) Stop() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.done == nil {
		return
	}

	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
	s.source.StopInputMonitoring()

	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.log.Info("monitoring stopped")
}

func (s *Scheduler) Running() bool {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	return s.done != nil
}

// User returns the user samples are attributed to, nil in guest mode or
// while stopped.
func (s *Scheduler) User() *account.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Latest returns the most recent sample collected by any path.
func (s *Scheduler) Latest() (collector.MetricSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.haveLatest
}

// CollectNow takes one sample synchronously without persisting it.
func (s *Scheduler) CollectNow() collector.MetricSample {
	return s.collect()
}

// SaveNow takes one sample and persists it for the bound user.
func (s *Scheduler) SaveNow() (collector.MetricSample, error) {
	user := s.User()
	sample := s.collect()
	if !user.Valid() {
		return sample, ErrGuestMode
	}
	if err := s.sink.SaveSample(user.ID, sample); err != nil {
		return sample, fmt.Errorf("save sample: %w", err)
	}
	return sample, nil
}

func (s *Scheduler) run(ctx context.Context, user *account.User, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(user)
	lastTick := time.Now().Round(0) // wall clock, so suspend shows up as a gap
	for {
		select {
		case <-ticker.C:
			now := time.Now().Round(0)
			if gap := now.Sub(lastTick); gap > 3*s.interval {
				s.log.Info("wall-clock jump detected", "gap_secs", int(gap.Seconds()))
			}
			lastTick = now
			s.tick(user)
		case <-ctx.Done():
			return
		}
	}
}

// tick runs one collection. A panic in the source or sink is logged and the
// schedule continues.
func (s *Scheduler) tick(user *account.User) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("collection failed", "panic", r)
		}
	}()

	sample := s.collect()
	s.log.Debug("sample",
		"cpu", sample.CPUPercent,
		"ram_mb", sample.RAMUsedMB,
		"window", sample.ActiveWindow,
		"keys", sample.KeyPresses,
		"clicks", sample.MouseClicks)
	for _, w := range thresholdWarnings(sample) {
		s.log.Warn(w)
	}

	if !user.Valid() {
		return
	}
	if err := s.sink.SaveSample(user.ID, sample); err != nil {
		s.log.Error("store sample", "err", err)
	}
}

func (s *Scheduler) collect() collector.MetricSample {
	sample := func() collector.MetricSample {
		s.pollMu.Lock()
		defer s.pollMu.Unlock()
		return s.source.CollectAllMetrics()
	}()

	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now()
	}
	s.mu.Lock()
	s.latest, s.haveLatest = sample, true
	s.mu.Unlock()
	return sample
}

func thresholdWarnings(s collector.MetricSample) []string {
	var out []string
	if s.CPUPercent > cpuWarnPercent {
		out = append(out, fmt.Sprintf("high CPU load: %.2f%%", s.CPUPercent))
	}
	if s.RAMTotalMB > 0 {
		if pct := s.RAMUsedMB / s.RAMTotalMB * 100; pct > ramWarnPercent {
			out = append(out, fmt.Sprintf("high memory usage: %.2f%%", pct))
		}
	}
	if s.DiskTotalGB > 0 {
		if pct := s.DiskFreeGB() / s.DiskTotalGB * 100; pct < diskFreeWarnPercent {
			out = append(out, fmt.Sprintf("low disk space: %.2f%% free", pct))
		}
	}
	return out
}
