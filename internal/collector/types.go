package collector

import "time"

// UnknownWindow is reported when the foreground window cannot be read.
const UnknownWindow = "Unknown"

// MaxWindowTitleLen is the maximum number of runes kept from a window title.
const MaxWindowTitleLen = 120

// MetricSample is one poll of host resource and activity counters.
type MetricSample struct {
	CPUPercent    float64   `json:"cpu_percent"`
	RAMUsedMB     float64   `json:"ram_used_mb"`
	RAMTotalMB    float64   `json:"ram_total_mb"`
	DiskUsedGB    float64   `json:"disk_used_gb"`
	DiskTotalGB   float64   `json:"disk_total_gb"`
	DiskDetails   string    `json:"disk_details"`
	ActiveWindow  string    `json:"active_window"`
	KeyPresses    int64     `json:"key_presses"`
	MouseClicks   int64     `json:"mouse_clicks"`
	MouseMoves    int64     `json:"mouse_moves"`
	IdleSeconds   int64     `json:"idle_seconds"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	OS            string    `json:"os"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// DiskFreeGB returns the free space implied by the sample's disk totals.
func (s MetricSample) DiskFreeGB() float64 {
	free := s.DiskTotalGB - s.DiskUsedGB
	if free < 0 {
		return 0
	}
	return free
}

// InputStats is a snapshot of the input activity counters.
type InputStats struct {
	Keys                     int64 `json:"keys"`
	Clicks                   int64 `json:"clicks"`
	Moves                    int64 `json:"moves"`
	SecondsSinceLastActivity int64 `json:"seconds_since_last_activity"`
}
