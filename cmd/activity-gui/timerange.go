package main

import (
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// timeRange covers Days calendar days ending today.
type timeRange struct {
	Label string
	Days  int
}

var timeRanges = []timeRange{
	{"Today", 1},
	{"7 days", 7},
	{"30 days", 30},
}

// Bounds returns the first and last day of the range.
func (tr timeRange) Bounds(now time.Time) (from, to time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.AddDate(0, 0, -(tr.Days - 1)), today
}

type timeRangeBar struct {
	buttons   []*widget.Button
	container fyne.CanvasObject
}

func newTimeRangeBar(selected int, onSelect func(int)) *timeRangeBar {
	bar := &timeRangeBar{buttons: make([]*widget.Button, len(timeRanges))}
	objs := make([]fyne.CanvasObject, len(timeRanges))
	for i, tr := range timeRanges {
		idx := i
		btn := widget.NewButton(tr.Label, func() {
			bar.setSelected(idx)
			onSelect(idx)
		})
		bar.buttons[idx] = btn
		objs[idx] = btn
	}
	bar.setSelected(selected)
	row := container.New(layout.NewHBoxLayout(), objs...)
	bar.container = container.NewStack(canvas.NewRectangle(colorBarBg), container.NewPadded(row))
	return bar
}

func (b *timeRangeBar) setSelected(idx int) {
	for i, btn := range b.buttons {
		if i == idx {
			btn.Importance = widget.HighImportance
		} else {
			btn.Importance = widget.MediumImportance
		}
		btn.Refresh()
	}
}
