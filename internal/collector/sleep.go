package collector

import (
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	logindManager     = "org.freedesktop.login1.Manager"
	prepareForSleep   = logindManager + ".PrepareForSleep"
	prepareToShutdown = logindManager + ".PrepareForShutdown"
)

// SleepEvent reports a suspend (Sleeping true) or resume transition.
type SleepEvent struct {
	Sleeping bool
	At       time.Time
}

// SleepMonitor listens for systemd-logind PrepareForSleep signals so the
// daemon can open an idle session while the machine is suspended and close it
// on resume.
type SleepMonitor struct {
	conn   *dbus.Conn
	done   chan struct{}
	events chan SleepEvent
	log    *slog.Logger
}

// NewSleepMonitor creates a new sleep monitor connected to the system bus.
func NewSleepMonitor(logger *slog.Logger) (*SleepMonitor, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}

	for _, member := range []string{"PrepareForSleep", "PrepareForShutdown"} {
		err = conn.AddMatchSignal(
			dbus.WithMatchInterface(logindManager),
			dbus.WithMatchMember(member),
		)
		if err != nil {
			return nil, err
		}
	}

	m := &SleepMonitor{
		conn:   conn,
		done:   make(chan struct{}),
		events: make(chan SleepEvent, 4),
		log:    logger,
	}
	go m.listen()
	return m, nil
}

// Events delivers sleep and wake transitions. Events are dropped if the
// consumer falls behind by more than a few transitions.
func (m *SleepMonitor) Events() <-chan SleepEvent {
	return m.events
}

// Close stops the monitor.
func (m *SleepMonitor) Close() {
	close(m.done)
}

func (m *SleepMonitor) listen() {
	ch := make(chan *dbus.Signal, 16)
	m.conn.Signal(ch)
	defer m.conn.RemoveSignal(ch)

	for {
		select {
		case sig := <-ch:
			if sig.Name == prepareToShutdown && len(sig.Body) > 0 {
				if active, _ := sig.Body[0].(bool); active {
					m.log.Info("system preparing for shutdown")
				}
				continue
			}
			ev, ok := sleepEventFromSignal(sig, time.Now())
			if !ok {
				continue
			}
			if ev.Sleeping {
				m.log.Info("system going to sleep")
			} else {
				m.log.Info("system woke up")
			}
			select {
			case m.events <- ev:
			default:
				m.log.Warn("sleep event dropped", "sleeping", ev.Sleeping)
			}
		case <-m.done:
			return
		}
	}
}

// sleepEventFromSignal decodes a PrepareForSleep signal.
func sleepEventFromSignal(sig *dbus.Signal, now time.Time) (SleepEvent, bool) {
	if sig == nil || sig.Name != prepareForSleep || len(sig.Body) < 1 {
		return SleepEvent{}, false
	}
	active, ok := sig.Body[0].(bool)
	if !ok {
		return SleepEvent{}, false
	}
	return SleepEvent{Sleeping: active, At: now}, true
}
