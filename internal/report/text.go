package report

import (
	"fmt"
	"strings"
	"time"
)

const noHourlyData = "No hourly data."

// HourlyText renders CPU and RAM averages hour by hour, one block per day.
func HourlyText(r *Report) string {
	var b strings.Builder
	var current time.Time
	for it := r.Hours(); !it.Done(); it.Advance() {
		day, _ := it.Day()
		if !day.Equal(current) {
			current = day
			fmt.Fprintf(&b, "%s\n", day.Format(time.DateOnly))
		}
		h, _ := it.Current()
		fmt.Fprintf(&b, "  %02d:00  CPU: %.2f%% | RAM: %.2f MB\n", h.Hour, h.AvgCPU, h.AvgRAM)
	}
	if b.Len() == 0 {
		return noHourlyData
	}
	return b.String()
}

// Summary renders the scalar fields of a report and its top applications.
func Summary(r *Report) string {
	if r == nil {
		return noHourlyData
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s to %s)\n", r.Name, r.PeriodStart.Format(time.DateOnly), r.PeriodEnd.Format(time.DateOnly))
	fmt.Fprintf(&b, "CPU avg: %.2f%%\n", r.CPUAvg)
	fmt.Fprintf(&b, "RAM avg: %.2f MB\n", r.RAMAvg)
	fmt.Fprintf(&b, "Idle total: %s\n", time.Duration(r.IdleSecondsTotal)*time.Second)
	fmt.Fprintf(&b, "Uptime per day: %.2f h\n", r.AvgUptimeHoursPerDay)
	if apps := r.TopApps(); len(apps) > 0 {
		b.WriteString("Applications:\n")
		for _, a := range apps {
			fmt.Fprintf(&b, "  %-40s %6.2f%%\n", a.Name, a.Percent)
		}
	}
	return b.String()
}
