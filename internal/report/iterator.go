package report

import "time"

// HourIterator walks the hour buckets of a report in order, skipping days
// that have none. It is restartable through Reset.
type HourIterator struct {
	days []DaySummary
	day  int
	hour int
}

// Hours returns an iterator positioned on the first hour bucket.
func (r *Report) Hours() *HourIterator {
	it := &HourIterator{}
	if r != nil {
		it.days = r.Days
	}
	it.Reset()
	return it
}

func (it *HourIterator) Reset() {
	it.day, it.hour = 0, 0
	it.skipExhausted()
}

// Advance moves to the next hour bucket. It does nothing once Done.
func (it *HourIterator) Advance() {
	if it.Done() {
		return
	}
	it.hour++
	it.skipExhausted()
}

func (it *HourIterator) Done() bool {
	return it.day >= len(it.days)
}

// Current returns the bucket under the cursor.
func (it *HourIterator) Current() (HourStat, bool) {
	if it.Done() {
		return HourStat{}, false
	}
	return it.days[it.day].Hours[it.hour], true
}

// Day returns the date of the bucket under the cursor.
func (it *HourIterator) Day() (time.Time, bool) {
	if it.Done() {
		return time.Time{}, false
	}
	return it.days[it.day].Date, true
}

func (it *HourIterator) skipExhausted() {
	for it.day < len(it.days) && it.hour >= len(it.days[it.day].Hours) {
		it.day++
		it.hour = 0
	}
}

// HourCount returns the number of hour buckets across all days.
func (r *Report) HourCount() int {
	n := 0
	for it := r.Hours(); !it.Done(); it.Advance() {
		n++
	}
	return n
}

// HourAt returns the i-th hour bucket in traversal order.
func (r *Report) HourAt(i int) (HourStat, bool) {
	if i < 0 {
		return HourStat{}, false
	}
	for it := r.Hours(); !it.Done(); it.Advance() {
		if i == 0 {
			return it.Current()
		}
		i--
	}
	return HourStat{}, false
}
