// Package report aggregates stored samples into per-period reports bucketed
// by day and hour.
package report

import (
	"errors"
	"math"
	"sort"
	"time"
)

var (
	ErrNoUser        = errors.New("report requires a registered user")
	ErrInvalidPeriod = errors.New("report period end is before start")
)

// Report summarises one user's activity over a closed range of calendar days.
type Report struct {
	ID                   int64              `json:"id,omitempty"`
	UserID               int64              `json:"user_id"`
	Name                 string             `json:"name"`
	PeriodStart          time.Time          `json:"period_start"`
	PeriodEnd            time.Time          `json:"period_end"`
	CreatedAt            time.Time          `json:"created_at"`
	CPUAvg               float64            `json:"cpu_avg"`
	RAMAvg               float64            `json:"ram_avg"`
	IdleSecondsTotal     float64            `json:"idle_seconds_total"`
	AvgUptimeHoursPerDay float64            `json:"avg_uptime_hours_per_day"`
	AppUsagePercent      map[string]float64 `json:"app_usage_percent"`
	Days                 []DaySummary       `json:"days"`
}

// DaySummary holds the non-empty hour buckets of one calendar day.
type DaySummary struct {
	Date  time.Time  `json:"date"`
	Hours []HourStat `json:"hours"`
}

// HourStat is the aggregate of every sample recorded within one hour.
type HourStat struct {
	Hour    int     `json:"hour"`
	AvgCPU  float64 `json:"avg_cpu"`
	AvgRAM  float64 `json:"avg_ram"`
	Samples int     `json:"samples"`
}

// AppShare is one entry of Report.AppUsagePercent.
type AppShare struct {
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
}

// TopApps returns application shares ordered by percent, then name.
func (r *Report) TopApps() []AppShare {
	if r == nil {
		return nil
	}
	apps := make([]AppShare, 0, len(r.AppUsagePercent))
	for name, pct := range r.AppUsagePercent {
		apps = append(apps, AppShare{Name: name, Percent: pct})
	}
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].Percent != apps[j].Percent {
			return apps[i].Percent > apps[j].Percent
		}
		return apps[i].Name < apps[j].Name
	})
	return apps
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
