//go:build !linux && !windows

package collector

import (
	"runtime"
	"time"
)

// unsupportedSource reports neutral values on platforms without a reader.
type unsupportedSource struct {
	started time.Time
}

func newPlatformSource(opts Options) Source {
	opts = opts.withDefaults(time.Second)
	opts.Logger.Warn("no metrics reader for this platform, reporting neutral values", "os", runtime.GOOS)
	return &unsupportedSource{started: time.Now()}
}

func (s *unsupportedSource) OS() string                { return runtime.GOOS }
func (s *unsupportedSource) CPULoad() float64          { return 0 }
func (s *unsupportedSource) RAMUsed() float64          { return 0 }
func (s *unsupportedSource) RAMTotal() float64         { return 0 }
func (s *unsupportedSource) UpdateDiskStats()          {}
func (s *unsupportedSource) DiskUsedGB() float64       { return 0 }
func (s *unsupportedSource) DiskFreeGB() float64       { return 0 }
func (s *unsupportedSource) DiskTotalGB() float64      { return 0 }
func (s *unsupportedSource) DiskDetails() string       { return unknownDisks }
func (s *unsupportedSource) ActiveWindowTitle() string { return UnknownWindow }
func (s *unsupportedSource) Uptime() string            { return FormatUptime(s.UptimeSeconds()) }
func (s *unsupportedSource) StartInputMonitoring()     {}
func (s *unsupportedSource) StopInputMonitoring()      {}

func (s *unsupportedSource) UptimeSeconds() int64 {
	return int64(time.Since(s.started) / time.Second)
}

func (s *unsupportedSource) InputStats() InputStats {
	return InputStats{SecondsSinceLastActivity: s.UptimeSeconds()}
}

func (s *unsupportedSource) CollectAllMetrics() MetricSample {
	return collectAll(s)
}
