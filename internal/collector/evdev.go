package collector

import "encoding/binary"

// Linux input event types and codes from linux/input-event-codes.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	relX = 0x00
	relY = 0x01

	btnMouseFirst = 0x110 // BTN_LEFT
	btnMouseLast  = 0x117 // BTN_TASK

	keyValuePress = 1
)

// inputEvent is the decoded tail of a struct input_event. The leading
// timeval is skipped; its width depends on the architecture.
type inputEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

// decodeEvents splits buf into input_event records of eventSize bytes.
// Trailing partial records are ignored.
func decodeEvents(buf []byte, eventSize int) []inputEvent {
	if eventSize < 8 {
		return nil
	}
	tv := eventSize - 8
	n := len(buf) / eventSize
	events := make([]inputEvent, 0, n)
	for i := 0; i < n; i++ {
		rec := buf[i*eventSize : (i+1)*eventSize]
		events = append(events, inputEvent{
			Type:  binary.LittleEndian.Uint16(rec[tv:]),
			Code:  binary.LittleEndian.Uint16(rec[tv+2:]),
			Value: int32(binary.LittleEndian.Uint32(rec[tv+4:])),
		})
	}
	return events
}

// evdevTally folds decoded events into the counters. Relative X/Y motion is
// accumulated per device until the next EV_SYN so one physical movement
// counts once rather than once per axis.
type evdevTally struct {
	moved bool
}

func (t *evdevTally) apply(ev inputEvent, c *inputCounters, now timeSource) {
	switch ev.Type {
	case evKey:
		if ev.Value != keyValuePress {
			return
		}
		if ev.Code >= btnMouseFirst && ev.Code <= btnMouseLast {
			c.addClick(now())
		} else {
			c.addKey(now())
		}
	case evRel:
		if ev.Code == relX || ev.Code == relY {
			t.moved = true
		} else {
			c.touch(now())
		}
	case evSyn:
		if t.moved {
			c.addMove(now())
			t.moved = false
		}
	}
}
