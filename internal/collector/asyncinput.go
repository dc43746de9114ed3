package collector

import "time"

// Virtual-key codes polled by asyncPoller.
const (
	vkLButton  = 0x01
	vkRButton  = 0x02
	vkMButton  = 0x04
	vkFirstKey = 0x08
	vkLastKey  = 0xFE
	vkShift    = 0x10
	vkControl  = 0x11
	vkMenu     = 0x12

	// cursorMoveThreshold is the per-axis distance in pixels that counts as
	// a mouse move between two polls.
	cursorMoveThreshold = 3
)

var mouseButtons = [...]int{vkLButton, vkRButton, vkMButton}

// asyncPoller derives input events from polled key and cursor state. A key
// counts once on its up-to-down transition.
type asyncPoller struct {
	keyDown func(vk int) bool
	cursor  func() (x, y int32, ok bool)

	down    [256]bool
	lastX   int32
	lastY   int32
	havePos bool
}

func (p *asyncPoller) step(c *inputCounters, now time.Time) {
	for vk := vkFirstKey; vk <= vkLastKey; vk++ {
		if p.pressed(vk) && !isModifierAlias(vk) {
			// Left/right modifier variants are reported separately.
			c.addKey(now)
		}
	}
	for _, vk := range mouseButtons {
		if p.pressed(vk) {
			c.addClick(now)
		}
	}

	x, y, ok := p.cursor()
	if !ok {
		return
	}
	if p.havePos && (abs32(x-p.lastX) >= cursorMoveThreshold || abs32(y-p.lastY) >= cursorMoveThreshold) {
		c.addMove(now)
	}
	p.lastX, p.lastY, p.havePos = x, y, true
}

// pressed reports an up-to-down transition of vk since the previous poll.
func (p *asyncPoller) pressed(vk int) bool {
	d := p.keyDown(vk)
	was := p.down[vk]
	p.down[vk] = d
	return d && !was
}

func isModifierAlias(vk int) bool {
	return vk == vkShift || vk == vkControl || vk == vkMenu
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
