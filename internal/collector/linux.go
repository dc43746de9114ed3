//go:build linux

package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/sys/unix"
)

const (
	linuxInputPoll     = 30 * time.Millisecond
	windowQueryTimeout = 2 * time.Second
)

// devInputGlob locates evdev character devices. Tests point it at a temp dir.
var devInputGlob = "/dev/input/event*"

// evdevEventSize is sizeof(struct input_event) for this architecture.
var evdevEventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

// LinuxSource reads metrics from procfs (through gopsutil), X11 (through
// xprop) and raw evdev devices.
type LinuxSource struct {
	opts Options
	log  *slog.Logger

	cpu cpuDelta

	diskMu sync.Mutex
	disk   diskStats

	readCPU     func() (cpuCounters, error)
	readMem     func() (total, available uint64, err error)
	listVolumes func() ([]diskVolume, error)
	readUptime  func() (uint64, error)
	runCommand  func(ctx context.Context, name string, args ...string) ([]byte, error)

	counters *inputCounters
	loop     inputLoop
}

func newPlatformSource(opts Options) Source {
	return NewLinuxSource(opts)
}

// NewLinuxSource creates a LinuxSource. The CPU baseline is empty until the
// first CPULoad call.
func NewLinuxSource(opts Options) *LinuxSource {
	opts = opts.withDefaults(linuxInputPoll)
	return &LinuxSource{
		opts:        opts,
		log:         opts.Logger,
		disk:        diskStats{details: unknownDisks},
		readCPU:     readProcCPU,
		readMem:     readProcMem,
		listVolumes: listFixedVolumes,
		readUptime:  host.Uptime,
		runCommand:  runCommand,
		counters:    newInputCounters(time.Now()),
		loop:        inputLoop{stopTimeout: opts.InputStopTimeout},
	}
}

func (s *LinuxSource) OS() string { return "Linux" }

// CPULoad returns utilisation since the previous call; the first call is 0.
func (s *LinuxSource) CPULoad() float64 {
	cur, err := s.readCPU()
	if err != nil {
		s.log.Debug("read cpu times failed", "err", err)
		return 0
	}
	return s.cpu.observe(cur)
}

func (s *LinuxSource) RAMUsed() float64 {
	total, avail, err := s.readMem()
	if err != nil || avail > total {
		s.log.Debug("read memory failed", "err", err)
		return 0
	}
	return bytesToMB(total - avail)
}

func (s *LinuxSource) RAMTotal() float64 {
	total, _, err := s.readMem()
	if err != nil {
		s.log.Debug("read memory failed", "err", err)
		return 0
	}
	return bytesToMB(total)
}

// UpdateDiskStats re-enumerates mounted block devices.
func (s *LinuxSource) UpdateDiskStats() {
	vols, err := s.listVolumes()
	if err != nil {
		s.log.Debug("list volumes failed", "err", err)
		vols = nil
	}
	st := summarizeVolumes(vols)
	s.diskMu.Lock()
	s.disk = st
	s.diskMu.Unlock()
}

func (s *LinuxSource) DiskTotalGB() float64 {
	s.diskMu.Lock()
	defer s.diskMu.Unlock()
	return s.disk.totalGB
}

func (s *LinuxSource) DiskFreeGB() float64 {
	s.diskMu.Lock()
	defer s.diskMu.Unlock()
	return s.disk.freeGB
}

func (s *LinuxSource) DiskUsedGB() float64 {
	s.diskMu.Lock()
	defer s.diskMu.Unlock()
	return s.disk.usedGB()
}

func (s *LinuxSource) DiskDetails() string {
	s.diskMu.Lock()
	defer s.diskMu.Unlock()
	return s.disk.details
}

// ActiveWindowTitle asks the X server for the focused window's name.
func (s *LinuxSource) ActiveWindowTitle() string {
	ctx, cancel := context.WithTimeout(context.Background(), windowQueryTimeout)
	defer cancel()

	out, err := s.runCommand(ctx, "xprop", "-root", "_NET_ACTIVE_WINDOW")
	if err != nil {
		s.log.Debug("query active window failed", "err", err)
		return UnknownWindow
	}
	id := parseActiveWindowID(string(out))
	if id == "" {
		return UnknownWindow
	}

	out, err = s.runCommand(ctx, "xprop", "-id", id, "_NET_WM_NAME", "WM_NAME")
	if err != nil {
		s.log.Debug("query window name failed", "id", id, "err", err)
		return UnknownWindow
	}
	return normalizeTitle(parseWindowName(string(out)))
}

func (s *LinuxSource) Uptime() string {
	return FormatUptime(s.UptimeSeconds())
}

func (s *LinuxSource) UptimeSeconds() int64 {
	secs, err := s.readUptime()
	if err != nil {
		s.log.Debug("read uptime failed", "err", err)
		return 0
	}
	return int64(secs)
}

// StartInputMonitoring begins polling evdev devices. Without read access to
// /dev/input the counters simply stay at zero.
func (s *LinuxSource) StartInputMonitoring() {
	if s.loop.start(s.runInput) {
		s.log.Debug("input monitoring started", "topic", "input", "interval", s.opts.InputPollInterval)
	}
}

func (s *LinuxSource) StopInputMonitoring() {
	if !s.loop.stop() {
		s.log.Warn("input loop did not stop in time", "topic", "input", "timeout", s.opts.InputStopTimeout)
	}
}

func (s *LinuxSource) InputStats() InputStats {
	return s.counters.snapshot(time.Now())
}

func (s *LinuxSource) CollectAllMetrics() MetricSample {
	return collectAll(s)
}

type evdevDevice struct {
	path  string
	fd    int
	tally evdevTally
}

func (s *LinuxSource) runInput(ctx context.Context) {
	paths, err := filepath.Glob(devInputGlob)
	if err != nil {
		s.log.Debug("glob input devices", "topic", "input", "err", err)
		return
	}

	var devs []*evdevDevice
	for _, p := range paths {
		fd, err := unix.Open(p, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			continue
		}
		devs = append(devs, &evdevDevice{path: p, fd: fd})
	}
	if len(devs) == 0 {
		s.log.Info("no readable input devices, activity counters disabled", "topic", "input", "glob", devInputGlob)
		return
	}
	defer func() {
		for _, d := range devs {
			unix.Close(d.fd)
		}
	}()

	s.log.Debug("opened input devices", "topic", "input", "count", len(devs))
	buf := make([]byte, evdevEventSize*64)
	pollEvery(ctx, s.opts.InputPollInterval, func(time.Time) {
		for _, d := range devs {
			s.drain(d, buf)
		}
	})
}

// drain reads everything currently buffered on a device.
func (s *LinuxSource) drain(d *evdevDevice, buf []byte) {
	for {
		n, err := unix.Read(d.fd, buf)
		if err != nil {
			if !errors.Is(err, unix.EAGAIN) {
				s.log.Debug("read input device", "topic", "input", "path", d.path, "err", err)
			}
			return
		}
		if n <= 0 {
			return
		}
		for _, ev := range decodeEvents(buf[:n], evdevEventSize) {
			d.tally.apply(ev, s.counters, time.Now)
		}
		if n < len(buf) {
			return
		}
	}
}

func readProcCPU() (cpuCounters, error) {
	times, err := cpu.Times(false)
	if err != nil {
		return cpuCounters{}, fmt.Errorf("cpu times: %w", err)
	}
	if len(times) == 0 {
		return cpuCounters{}, fmt.Errorf("cpu times: empty result")
	}
	t := times[0]
	idle := t.Idle + t.Iowait
	total := t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
	return cpuCounters{Idle: idle, Total: total}, nil
}

func readProcMem() (uint64, uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, fmt.Errorf("virtual memory: %w", err)
	}
	return vm.Total, vm.Available, nil
}

// listFixedVolumes returns one entry per mounted block device.
func listFixedVolumes() ([]diskVolume, error) {
	parts, err := disk.Partitions(false)
	if err != nil {
		return nil, fmt.Errorf("partitions: %w", err)
	}
	seen := make(map[string]bool, len(parts))
	var vols []diskVolume
	for _, p := range parts {
		if !strings.HasPrefix(p.Device, "/dev/") || strings.HasPrefix(p.Device, "/dev/loop") {
			continue
		}
		if seen[p.Device] {
			continue
		}
		u, err := disk.Usage(p.Mountpoint)
		if err != nil || u.Total == 0 {
			continue
		}
		seen[p.Device] = true
		vols = append(vols, diskVolume{
			Name:    p.Mountpoint,
			TotalGB: bytesToGB(u.Total),
			FreeGB:  bytesToGB(u.Free),
		})
	}
	return vols, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// parseActiveWindowID extracts the id from
// "_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3a00007".
func parseActiveWindowID(out string) string {
	_, after, ok := strings.Cut(out, "#")
	if !ok {
		return ""
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return ""
	}
	id := strings.TrimRight(fields[0], ",")
	if id == "0x0" {
		return ""
	}
	return id
}

// parseWindowName returns the first quoted property value in xprop output,
// which is _NET_WM_NAME when the window sets it.
func parseWindowName(out string) string {
	for _, line := range strings.Split(out, "\n") {
		_, val, ok := strings.Cut(line, " = ")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		if len(val) < 2 || val[0] != '"' || val[len(val)-1] != '"' {
			continue
		}
		name := strings.ReplaceAll(val[1:len(val)-1], `\"`, `"`)
		if name != "" {
			return name
		}
	}
	return ""
}
