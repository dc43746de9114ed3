package collector

import "sync"

// cpuCounters is one raw reading of cumulative CPU time. Units are whatever
// the platform reports (jiffies, seconds, 100ns ticks); only deltas matter.
type cpuCounters struct {
	Idle  float64
	Total float64
}

// cpuDelta turns consecutive cumulative readings into a utilisation
// percentage. The first observation only seeds the baseline and reports 0.
type cpuDelta struct {
	mu     sync.Mutex
	prev   cpuCounters
	seeded bool
}

// observe records cur and returns the utilisation since the previous call.
func (d *cpuDelta) observe(cur cpuCounters) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.seeded {
		d.prev = cur
		d.seeded = true
		return 0
	}

	totalDelta := cur.Total - d.prev.Total
	idleDelta := cur.Idle - d.prev.Idle
	d.prev = cur

	if totalDelta <= 0 {
		return 0
	}
	usage := (1 - idleDelta/totalDelta) * 100
	if usage < 0 {
		usage = 0
	}
	if usage > 100 {
		usage = 100
	}
	return round2(usage)
}
