package main

import (
	"fmt"
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/report"
)

var (
	colGraphBg = color.NRGBA{R: 31, G: 31, B: 31, A: 230}
	colGrid    = color.NRGBA{R: 255, G: 255, B: 255, A: 20}
	colLabel   = color.NRGBA{R: 255, G: 255, B: 255, A: 128}
	colTitle   = color.NRGBA{R: 255, G: 255, B: 255, A: 178}
	colBarCPU  = color.NRGBA{R: 77, G: 191, B: 102, A: 220}
	colBarRAM  = color.NRGBA{R: 89, G: 140, B: 230, A: 220}
)

const (
	padLeft   = 50
	padRight  = 15
	padTop    = 30
	padBottom = 24
	gridLines = 4
)

// hourGraph draws one bar per hour bucket of a report.
type hourGraph struct {
	widget.BaseWidget

	title    string
	unit     string
	barColor color.Color
	value    func(report.HourStat) float64
	fixedMax float64

	bars      []float64
	firstDay  string
	lastDay   string
	scaledMax float64
}

func newHourGraph(title, unit string, barColor color.Color, fixedMax float64, value func(report.HourStat) float64) *hourGraph {
	g := &hourGraph{title: title, unit: unit, barColor: barColor, fixedMax: fixedMax, value: value}
	g.ExtendBaseWidget(g)
	return g
}

// SetReport replaces the plotted buckets.
func (g *hourGraph) SetReport(r *report.Report) {
	g.bars = g.bars[:0]
	g.firstDay, g.lastDay = "", ""
	for it := r.Hours(); !it.Done(); it.Advance() {
		h, _ := it.Current()
		day, _ := it.Day()
		label := fmt.Sprintf("%s %02d:00", day.Format("Jan 2"), h.Hour)
		if g.firstDay == "" {
			g.firstDay = label
		}
		g.lastDay = label
		g.bars = append(g.bars, g.value(h))
	}
	g.scaledMax = scaleMax(g.bars, g.fixedMax)
	g.Refresh()
}

// scaleMax returns fixed when set, otherwise the largest value rounded up to
// a multiple of the grid step.
func scaleMax(values []float64, fixed float64) float64 {
	if fixed > 0 {
		return fixed
	}
	var peak float64
	for _, v := range values {
		peak = math.Max(peak, v)
	}
	if peak <= 0 {
		return 1
	}
	step := math.Pow(10, math.Floor(math.Log10(peak)))
	return math.Ceil(peak/step) * step
}

func (g *hourGraph) CreateRenderer() fyne.WidgetRenderer {
	r := &hourGraphRenderer{
		g:     g,
		bg:    canvas.NewRectangle(colGraphBg),
		title: canvas.NewText(g.title, colTitle),
		from:  canvas.NewText("", colLabel),
		to:    canvas.NewText("", colLabel),
		empty: canvas.NewText("No data", colLabel),
	}
	r.title.TextSize = 11
	for _, t := range []*canvas.Text{r.from, r.to} {
		t.TextSize = 9
	}
	for i := 0; i <= gridLines; i++ {
		r.grid = append(r.grid, canvas.NewLine(colGrid))
		l := canvas.NewText("", colLabel)
		l.TextSize = 9
		r.gridLabels = append(r.gridLabels, l)
	}
	r.Refresh()
	return r
}

type hourGraphRenderer struct {
	g          *hourGraph
	bg         *canvas.Rectangle
	title      *canvas.Text
	from, to   *canvas.Text
	empty      *canvas.Text
	grid       []*canvas.Line
	gridLabels []*canvas.Text
	bars       []*canvas.Rectangle
}

func (r *hourGraphRenderer) MinSize() fyne.Size {
	return fyne.NewSize(padLeft+padRight+200, padTop+padBottom+100)
}

func (r *hourGraphRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	r.title.Move(fyne.NewPos(padLeft, 8))

	plotW := size.Width - padLeft - padRight
	plotH := size.Height - padTop - padBottom
	if plotW <= 0 || plotH <= 0 {
		return
	}

	for i, line := range r.grid {
		y := padTop + plotH - plotH*float32(i)/gridLines
		line.Position1 = fyne.NewPos(padLeft, y)
		line.Position2 = fyne.NewPos(padLeft+plotW, y)
		r.gridLabels[i].Move(fyne.NewPos(5, y-6))
	}

	r.empty.Move(fyne.NewPos(padLeft+plotW/2-20, padTop+plotH/2-8))
	r.from.Move(fyne.NewPos(padLeft, padTop+plotH+6))
	r.to.Move(fyne.NewPos(padLeft+plotW-r.to.MinSize().Width, padTop+plotH+6))

	n := len(r.bars)
	if n == 0 {
		return
	}
	slot := plotW / float32(n)
	gap := float32(math.Min(2, float64(slot)/4))
	for i, bar := range r.bars {
		v := r.g.bars[i] / r.g.scaledMax
		if v > 1 {
			v = 1
		}
		h := plotH * float32(v)
		bar.Resize(fyne.NewSize(slot-gap, h))
		bar.Move(fyne.NewPos(padLeft+float32(i)*slot, padTop+plotH-h))
	}
}

func (r *hourGraphRenderer) Refresh() {
	for len(r.bars) < len(r.g.bars) {
		r.bars = append(r.bars, canvas.NewRectangle(r.g.barColor))
	}
	r.bars = r.bars[:len(r.g.bars)]

	for i, l := range r.gridLabels {
		l.Text = fmt.Sprintf("%.0f%s", r.g.scaledMax*float64(i)/gridLines, r.g.unit)
	}
	r.from.Text = r.g.firstDay
	r.to.Text = r.g.lastDay
	if len(r.g.bars) == 0 {
		r.empty.Show()
	} else {
		r.empty.Hide()
	}

	r.Layout(r.g.Size())
	canvas.Refresh(r.g)
}

func (r *hourGraphRenderer) Objects() []fyne.CanvasObject {
	objs := []fyne.CanvasObject{r.bg, r.title, r.from, r.to, r.empty}
	for _, l := range r.grid {
		objs = append(objs, l)
	}
	for _, l := range r.gridLabels {
		objs = append(objs, l)
	}
	for _, b := range r.bars {
		objs = append(objs, b)
	}
	return objs
}

func (r *hourGraphRenderer) Destroy() {}
