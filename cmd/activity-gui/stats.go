package main

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/collector"
)

const maxWindowLabelLen = 32

type statsBar struct {
	cpuLabel    *canvas.Text
	ramLabel    *canvas.Text
	diskLabel   *canvas.Text
	windowLabel *canvas.Text
	inputLabel  *canvas.Text
	idleLabel   *canvas.Text
	container   fyne.CanvasObject
}

func newStatsBar() *statsBar {
	s := &statsBar{
		cpuLabel:    newStatText("--%"),
		ramLabel:    newStatText("-- MB"),
		diskLabel:   newStatText("-- GB"),
		windowLabel: newStatText("--"),
		inputLabel:  newStatText("--"),
		idleLabel:   newStatText("--"),
	}

	bg := canvas.NewRectangle(accentBgColor())

	row := container.New(layout.NewHBoxLayout(),
		container.NewVBox(newLabelText("CPU"), s.cpuLabel),
		layout.NewSpacer(),
		container.NewVBox(newLabelText("RAM"), s.ramLabel),
		layout.NewSpacer(),
		container.NewVBox(newLabelText("Disk free"), s.diskLabel),
		layout.NewSpacer(),
		container.NewVBox(newLabelText("Window"), s.windowLabel),
		layout.NewSpacer(),
		container.NewVBox(newLabelText("Keys / clicks / moves"), s.inputLabel),
		layout.NewSpacer(),
		container.NewVBox(newLabelText("Since input"), s.idleLabel),
	)

	s.container = container.NewStack(bg, container.NewPadded(row))
	return s
}

func (s *statsBar) Update(sample *collector.MetricSample) {
	if sample == nil {
		return
	}
	s.cpuLabel.Text = fmt.Sprintf("%.1f%%", sample.CPUPercent)
	s.ramLabel.Text = fmt.Sprintf("%.0f / %.0f MB", sample.RAMUsedMB, sample.RAMTotalMB)
	s.diskLabel.Text = fmt.Sprintf("%.1f GB", sample.DiskFreeGB())
	s.windowLabel.Text = shorten(sample.ActiveWindow, maxWindowLabelLen)
	s.inputLabel.Text = fmt.Sprintf("%d / %d / %d", sample.KeyPresses, sample.MouseClicks, sample.MouseMoves)
	s.idleLabel.Text = (time.Duration(sample.IdleSeconds) * time.Second).String()
	for _, t := range []*canvas.Text{s.cpuLabel, s.ramLabel, s.diskLabel, s.windowLabel, s.inputLabel, s.idleLabel} {
		t.Refresh()
	}
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func newStatText(text string) *canvas.Text {
	t := canvas.NewText(text, colorGreenAccent)
	t.TextSize = 18
	t.TextStyle = fyne.TextStyle{Bold: true}
	return t
}

func newLabelText(text string) *canvas.Text {
	t := canvas.NewText(text, colorWhiteLabel)
	t.TextSize = 12
	return t
}
