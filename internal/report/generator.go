package report

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/account"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/collector"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/idle"
)

// Store supplies the history a report is built from. Both queries are
// inclusive of from and to.
type Store interface {
	SamplesInRange(userID int64, from, to time.Time) ([]collector.MetricSample, error)
	IdleSessionsInRange(userID int64, from, to time.Time) ([]idle.Session, error)
}

type Generator struct {
	store Store
	loc   *time.Location
	log   *slog.Logger
	now   func() time.Time
}

type Option func(*Generator)

// WithLocation sets the time zone used for calendar days and hours.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) {
		if loc != nil {
			g.loc = loc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

func NewGenerator(store Store, opts ...Option) *Generator {
	g := &Generator{store: store, loc: time.Local, log: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Location returns the time zone reports are bucketed in.
func (g *Generator) Location() *time.Location {
	return g.loc
}

// Generate builds a report for the calendar days start through end inclusive.
// Only the date part of start and end is used.
func (g *Generator) Generate(user *account.User, name string, start, end time.Time) (*Report, error) {
	if !user.Valid() {
		return nil, ErrNoUser
	}
	from := g.dayStart(start)
	last := g.dayStart(end)
	if last.Before(from) {
		return nil, ErrInvalidPeriod
	}
	to := time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 0, g.loc)

	samples, err := g.store.SamplesInRange(user.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}
	sessions, err := g.store.IdleSessionsInRange(user.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load idle sessions: %w", err)
	}

	if name == "" {
		name = fmt.Sprintf("Report %s to %s", from.Format(time.DateOnly), last.Format(time.DateOnly))
	}
	r := &Report{
		UserID:               user.ID,
		Name:                 name,
		PeriodStart:          from,
		PeriodEnd:            last,
		CreatedAt:            g.now(),
		CPUAvg:               average(samples, func(s collector.MetricSample) float64 { return s.CPUPercent }),
		RAMAvg:               average(samples, func(s collector.MetricSample) float64 { return s.RAMUsedMB }),
		IdleSecondsTotal:     totalIdle(sessions),
		AppUsagePercent:      appUsagePercent(samples),
		Days:                 g.buildDays(samples),
		AvgUptimeHoursPerDay: g.averageUptimeHours(samples),
	}
	g.log.Debug("report generated", "user", user.Name, "from", from, "to", to,
		"samples", len(samples), "idle_sessions", len(sessions), "days", len(r.Days))
	return r, nil
}

func (g *Generator) dayStart(t time.Time) time.Time {
	t = t.In(g.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, g.loc)
}

func average(samples []collector.MetricSample, field func(collector.MetricSample) float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += field(s)
	}
	return round2(sum / float64(len(samples)))
}

// totalIdle sums closed sessions; open sessions have no duration yet.
func totalIdle(sessions []idle.Session) float64 {
	var sum int64
	for _, s := range sessions {
		if s.Open() {
			continue
		}
		sum += s.DurationSeconds
	}
	return float64(sum)
}

// appUsagePercent divides per-application sample counts by the total sample
// count. Samples without a usable title stay in the denominator.
func appUsagePercent(samples []collector.MetricSample) map[string]float64 {
	usage := make(map[string]float64)
	if len(samples) == 0 {
		return usage
	}
	counts := make(map[string]int)
	for _, s := range samples {
		if name := normalizeAppName(s.ActiveWindow); name != "" {
			counts[name]++
		}
	}
	total := float64(len(samples))
	for name, n := range counts {
		usage[name] = round2(float64(n) * 100 / total)
	}
	return usage
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func (g *Generator) civil(t time.Time) (civilDate, int) {
	t = t.In(g.loc)
	return civilDate{t.Year(), t.Month(), t.Day()}, t.Hour()
}

func (g *Generator) midnight(d civilDate) time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, g.loc)
}

func sortedDates(m map[civilDate]map[int][]collector.MetricSample) []civilDate {
	dates := make([]civilDate, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool {
		a, b := dates[i], dates[j]
		if a.year != b.year {
			return a.year < b.year
		}
		if a.month != b.month {
			return a.month < b.month
		}
		return a.day < b.day
	})
	return dates
}

// buildDays groups samples by date then hour and materialises only the
// buckets that received samples.
func (g *Generator) buildDays(samples []collector.MetricSample) []DaySummary {
	buckets := make(map[civilDate]map[int][]collector.MetricSample)
	for _, s := range samples {
		if s.RecordedAt.IsZero() {
			continue
		}
		date, hour := g.civil(s.RecordedAt)
		hours, ok := buckets[date]
		if !ok {
			hours = make(map[int][]collector.MetricSample)
			buckets[date] = hours
		}
		hours[hour] = append(hours[hour], s)
	}

	days := make([]DaySummary, 0, len(buckets))
	for _, date := range sortedDates(buckets) {
		hours := buckets[date]
		keys := make([]int, 0, len(hours))
		for h := range hours {
			keys = append(keys, h)
		}
		sort.Ints(keys)

		day := DaySummary{Date: g.midnight(date), Hours: make([]HourStat, 0, len(keys))}
		for _, h := range keys {
			bucket := hours[h]
			day.Hours = append(day.Hours, HourStat{
				Hour:    h,
				AvgCPU:  average(bucket, func(s collector.MetricSample) float64 { return s.CPUPercent }),
				AvgRAM:  average(bucket, func(s collector.MetricSample) float64 { return s.RAMUsedMB }),
				Samples: len(bucket),
			})
		}
		days = append(days, day)
	}
	return days
}

// averageUptimeHours averages, over the days with samples, the largest uptime
// seen on each day.
func (g *Generator) averageUptimeHours(samples []collector.MetricSample) float64 {
	peak := make(map[civilDate]int64)
	for _, s := range samples {
		if s.RecordedAt.IsZero() {
			continue
		}
		date, _ := g.civil(s.RecordedAt)
		if cur, ok := peak[date]; !ok || s.UptimeSeconds > cur {
			peak[date] = s.UptimeSeconds
		}
	}
	if len(peak) == 0 {
		return 0
	}
	var hours float64
	for _, secs := range peak {
		hours += float64(secs) / 3600
	}
	return round2(hours / float64(len(peak)))
}
