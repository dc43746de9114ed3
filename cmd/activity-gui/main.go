package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	godbus "github.com/godbus/dbus/v5"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/logging"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/report"
)

const refreshInterval = 5 * time.Second

type gui struct {
	client  *dbusClient
	log     *slog.Logger
	stats   *statsBar
	ranges  *timeRangeBar
	summary *widget.Label
	hourly  *widget.Label
	status  *widget.Label
	monitor *widget.Check
	cpuG    *hourGraph
	ramG    *hourGraph

	selectedRange atomic.Int32
}

func main() {
	verbose := flag.Bool("verbose", false, "enable all verbose logging (equivalent to -log=all)")
	logFlag := flag.String("log", "", "comma-separated log topics: dbus,report (or 'all')")
	flag.Parse()

	logger, closer := logging.New(logging.Options{Verbose: *verbose, Topics: *logFlag, Level: slog.LevelDebug})
	defer closer.Close()

	client, err := newDBusClient()
	if err != nil {
		logger.Error("connect to D-Bus", "err", err)
		os.Exit(1)
	}

	a := app.NewWithID("org.gnome.ActivityMonitorGUI")
	win := a.NewWindow("Activity Monitor")
	win.Resize(fyne.NewSize(900, 600))

	g := &gui{client: client, log: logger.With("topic", logging.TopicDBus)}
	win.SetContent(g.build())

	stop := make(chan struct{})
	go g.refreshLoop(stop)
	win.SetOnClosed(func() { close(stop) })
	win.ShowAndRun()
}

func (g *gui) build() fyne.CanvasObject {
	g.stats = newStatsBar()
	g.ranges = newTimeRangeBar(0, func(idx int) {
		g.selectedRange.Store(int32(idx))
		go g.refresh()
	})
	g.summary = widget.NewLabel("")
	g.hourly = widget.NewLabel("Loading…")
	g.hourly.TextStyle = fyne.TextStyle{Monospace: true}
	g.status = widget.NewLabel("")
	g.cpuG = newHourGraph("CPU per hour", "%", colBarCPU, 100, func(h report.HourStat) float64 { return h.AvgCPU })
	g.ramG = newHourGraph("RAM per hour", " MB", colBarRAM, 0, func(h report.HourStat) float64 { return h.AvgRAM })

	g.monitor = widget.NewCheck("Monitoring", func(on bool) {
		go func() {
			if err := g.client.SetMonitoring(on); err != nil {
				g.setStatus(fmt.Sprintf("toggle monitoring: %v", err))
			}
		}()
	})

	saveBtn := widget.NewButton("Save now", func() {
		go func() {
			if _, err := g.client.SaveNow(); err != nil {
				g.setStatus(describe(err))
				return
			}
			g.setStatus("Sample saved")
		}()
	})
	idleBtn := widget.NewButton("Start idle", nil)
	idleBtn.OnTapped = func() {
		go g.toggleIdle(idleBtn)
	}

	controls := container.NewHBox(g.monitor, saveBtn, idleBtn, g.status)
	top := container.NewVBox(g.stats.container, controls, g.ranges.container, g.summary)
	graphs := container.NewGridWithRows(2, g.cpuG, g.ramG)
	return container.NewBorder(top, nil, nil, nil, container.NewHSplit(graphs, container.NewVScroll(g.hourly)))
}

func (g *gui) toggleIdle(btn *widget.Button) {
	if btn.Text == "Start idle" {
		sess, err := g.client.StartIdle()
		if err != nil {
			g.setStatus(describe(err))
			return
		}
		fyne.Do(func() { btn.SetText("End idle") })
		g.setStatus(fmt.Sprintf("Idle since %s", sess.Start.Format(time.Kitchen)))
		return
	}
	sess, err := g.client.EndIdle()
	if err != nil {
		g.setStatus(describe(err))
		return
	}
	fyne.Do(func() { btn.SetText("Start idle") })
	if sess != nil {
		g.setStatus(fmt.Sprintf("Idle for %s", time.Duration(sess.DurationSeconds)*time.Second))
	}
}

func (g *gui) refreshLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	g.refresh()
	for {
		select {
		case <-ticker.C:
			g.refresh()
		case <-stop:
			return
		}
	}
}

// refresh fetches over D-Bus off the UI goroutine and applies the results
// with fyne.Do.
func (g *gui) refresh() {
	sample, err := g.client.GetLatestSample()
	if err != nil {
		g.log.Debug("get latest sample", "err", err)
	}
	running, err := g.client.IsMonitoring()
	if err != nil {
		g.log.Debug("is monitoring", "err", err)
	}

	from, to := timeRanges[g.selectedRange.Load()].Bounds(time.Now())
	rep, repErr := g.client.GetReport(from, to)
	if repErr != nil {
		g.log.Debug("get report", "err", repErr)
	}

	fyne.Do(func() {
		g.stats.Update(sample)
		// Assigning Checked directly skips OnChanged.
		g.monitor.Checked = running
		g.monitor.Refresh()
		if repErr != nil {
			g.summary.SetText(describe(repErr))
			g.hourly.SetText("")
			return
		}
		g.summary.SetText(summaryLine(rep))
		g.cpuG.SetReport(rep)
		g.ramG.SetReport(rep)
		g.hourly.SetText(report.HourlyText(rep))
	})
}

func (g *gui) setStatus(msg string) {
	fyne.Do(func() { g.status.SetText(msg) })
}

func summaryLine(r *report.Report) string {
	line := fmt.Sprintf("CPU avg %.2f%%   RAM avg %.0f MB   Idle %s   Uptime %.2f h/day",
		r.CPUAvg, r.RAMAvg, time.Duration(r.IdleSecondsTotal)*time.Second, r.AvgUptimeHoursPerDay)
	if apps := r.TopApps(); len(apps) > 0 {
		line += fmt.Sprintf("   Top: %s %.1f%%", apps[0].Name, apps[0].Percent)
	}
	return line
}

// describe turns a D-Bus error into a user-facing message.
func describe(err error) string {
	var dErr godbus.Error
	if errors.As(err, &dErr) && len(dErr.Body) > 0 {
		if msg, ok := dErr.Body[0].(string); ok {
			return msg
		}
	}
	return err.Error()
}
