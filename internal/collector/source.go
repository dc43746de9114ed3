package collector

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Source reads OS counters and turns them into MetricSamples. There is one
// implementation per platform; callers never need to know which one they hold.
//
// A Source keeps CPU delta state between calls, so a single instance must be
// polled by one logical caller at a time.
type Source interface {
	CPULoad() float64
	RAMUsed() float64
	RAMTotal() float64

	UpdateDiskStats()
	DiskUsedGB() float64
	DiskFreeGB() float64
	DiskTotalGB() float64
	DiskDetails() string

	ActiveWindowTitle() string
	Uptime() string
	UptimeSeconds() int64

	StartInputMonitoring()
	StopInputMonitoring()
	InputStats() InputStats

	CollectAllMetrics() MetricSample
	OS() string
}

// Options tune the background input loop of a Source.
type Options struct {
	// InputPollInterval is the cadence of the input loop. Zero picks the
	// platform default.
	InputPollInterval time.Duration
	// InputStopTimeout bounds how long StopInputMonitoring waits for the
	// current input iteration.
	InputStopTimeout time.Duration
	Logger           *slog.Logger
}

const defaultInputStopTimeout = 200 * time.Millisecond

const unknownDisks = "Unknown"

func (o Options) withDefaults(poll time.Duration) Options {
	if o.InputPollInterval <= 0 {
		o.InputPollInterval = poll
	}
	if o.InputStopTimeout <= 0 {
		o.InputStopTimeout = defaultInputStopTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// NewSource returns the Source for the running platform.
func NewSource(opts Options) Source {
	return newPlatformSource(opts)
}

// collectAll reads every metric from src in the order the getters depend on:
// disk stats are refreshed before the disk getters are read.
func collectAll(src Source) MetricSample {
	src.UpdateDiskStats()

	s := MetricSample{
		CPUPercent:    src.CPULoad(),
		RAMUsedMB:     src.RAMUsed(),
		RAMTotalMB:    src.RAMTotal(),
		DiskUsedGB:    src.DiskUsedGB(),
		DiskTotalGB:   src.DiskTotalGB(),
		DiskDetails:   src.DiskDetails(),
		ActiveWindow:  src.ActiveWindowTitle(),
		UptimeSeconds: src.UptimeSeconds(),
		OS:            src.OS(),
	}
	in := src.InputStats()
	s.KeyPresses = in.Keys
	s.MouseClicks = in.Clicks
	s.MouseMoves = in.Moves
	s.IdleSeconds = in.SecondsSinceLastActivity
	s.RecordedAt = time.Now()
	return s
}

// FormatUptime renders seconds as "D d H h M m".
func FormatUptime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%d d %d h %d m", days, hours, minutes)
}

// normalizeTitle trims a window title, substitutes UnknownWindow for empty
// titles and truncates to MaxWindowTitleLen runes.
func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return UnknownWindow
	}
	if utf8.RuneCountInString(title) <= MaxWindowTitleLen {
		return title
	}
	runes := []rune(title)
	return string(runes[:MaxWindowTitleLen])
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

func bytesToMB(b uint64) float64 {
	return round2(float64(b) / 1024 / 1024)
}

func bytesToGB(b uint64) float64 {
	return float64(b) / 1e9
}

// diskVolume is one fixed volume as seen by UpdateDiskStats.
type diskVolume struct {
	Name    string
	TotalGB float64
	FreeGB  float64
}

// diskStats caches the result of the last volume enumeration.
type diskStats struct {
	totalGB float64
	freeGB  float64
	details string
}

func summarizeVolumes(vols []diskVolume) diskStats {
	if len(vols) == 0 {
		return diskStats{details: unknownDisks}
	}
	var st diskStats
	parts := make([]string, 0, len(vols))
	for _, v := range vols {
		st.totalGB += v.TotalGB
		st.freeGB += v.FreeGB
		parts = append(parts, fmt.Sprintf("%s: %.2f / %.2f GB", v.Name, v.TotalGB-v.FreeGB, v.TotalGB))
	}
	st.totalGB = round2(st.totalGB)
	st.freeGB = round2(st.freeGB)
	st.details = strings.Join(parts, " | ")
	return st
}

func (d diskStats) usedGB() float64 {
	used := d.totalGB - d.freeGB
	if used < 0 {
		return 0
	}
	return round2(used)
}
