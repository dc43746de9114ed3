//go:build windows

package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	windowsInputPoll = 80 * time.Millisecond
	driveFixed       = 3
)

var (
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")
	user32   = windows.NewLazySystemDLL("user32.dll")

	procGetSystemTimes       = kernel32.NewProc("GetSystemTimes")
	procGlobalMemoryStatusEx = kernel32.NewProc("GlobalMemoryStatusEx")
	procGetLogicalDrives     = kernel32.NewProc("GetLogicalDrives")
	procGetDriveTypeW        = kernel32.NewProc("GetDriveTypeW")
	procGetDiskFreeSpaceExW  = kernel32.NewProc("GetDiskFreeSpaceExW")
	procGetTickCount64       = kernel32.NewProc("GetTickCount64")

	procGetForegroundWindow  = user32.NewProc("GetForegroundWindow")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetAsyncKeyState     = user32.NewProc("GetAsyncKeyState")
	procGetCursorPos         = user32.NewProc("GetCursorPos")
)

type memoryStatusEx struct {
	Length               uint32
	MemoryLoad           uint32
	TotalPhys            uint64
	AvailPhys            uint64
	TotalPageFile        uint64
	AvailPageFile        uint64
	TotalVirtual         uint64
	AvailVirtual         uint64
	AvailExtendedVirtual uint64
}

type point struct {
	X, Y int32
}

// WindowsSource reads metrics through kernel32 and user32.
type WindowsSource struct {
	opts Options
	log  *slog.Logger

	cpu cpuDelta

	diskMu sync.Mutex
	disk   diskStats

	counters *inputCounters
	loop     inputLoop
}

func newPlatformSource(opts Options) Source {
	return NewWindowsSource(opts)
}

// NewWindowsSource creates a WindowsSource. The CPU baseline is empty until
// the first CPULoad call.
func NewWindowsSource(opts Options) *WindowsSource {
	opts = opts.withDefaults(windowsInputPoll)
	return &WindowsSource{
		opts:     opts,
		log:      opts.Logger,
		disk:     diskStats{details: unknownDisks},
		counters: newInputCounters(time.Now()),
		loop:     inputLoop{stopTimeout: opts.InputStopTimeout},
	}
}

func (s *WindowsSource) OS() string { return "Windows" }

func filetimeTicks(ft windows.Filetime) float64 {
	return float64(uint64(ft.HighDateTime)<<32 | uint64(ft.LowDateTime))
}

// CPULoad returns utilisation since the previous call; the first call is 0.
func (s *WindowsSource) CPULoad() float64 {
	var idle, kernel, user windows.Filetime
	r, _, err := procGetSystemTimes.Call(
		uintptr(unsafe.Pointer(&idle)),
		uintptr(unsafe.Pointer(&kernel)),
		uintptr(unsafe.Pointer(&user)),
	)
	if r == 0 {
		s.log.Debug("GetSystemTimes failed", "err", err)
		return 0
	}
	// Kernel time already includes idle time.
	return s.cpu.observe(cpuCounters{
		Idle:  filetimeTicks(idle),
		Total: filetimeTicks(kernel) + filetimeTicks(user),
	})
}

func (s *WindowsSource) memoryStatus() (memoryStatusEx, bool) {
	ms := memoryStatusEx{}
	ms.Length = uint32(unsafe.Sizeof(ms))
	r, _, err := procGlobalMemoryStatusEx.Call(uintptr(unsafe.Pointer(&ms)))
	if r == 0 {
		s.log.Debug("GlobalMemoryStatusEx failed", "err", err)
		return ms, false
	}
	return ms, true
}

// RAMUsed is physical memory in use, in MB.
func (s *WindowsSource) RAMUsed() float64 {
	ms, ok := s.memoryStatus()
	if !ok || ms.AvailPhys > ms.TotalPhys {
		return 0
	}
	return bytesToMB(ms.TotalPhys - ms.AvailPhys)
}

func (s *WindowsSource) RAMTotal() float64 {
	ms, ok := s.memoryStatus()
	if !ok {
		return 0
	}
	return bytesToMB(ms.TotalPhys)
}

// UpdateDiskStats enumerates fixed drives by letter.
func (s *WindowsSource) UpdateDiskStats() {
	vols, err := fixedDrives()
	if err != nil {
		s.log.Debug("enumerate drives failed", "err", err)
	}
	st := summarizeVolumes(vols)
	s.diskMu.Lock()
	s.disk = st
	s.diskMu.Unlock()
}

func fixedDrives() ([]diskVolume, error) {
	mask, _, err := procGetLogicalDrives.Call()
	if mask == 0 {
		return nil, fmt.Errorf("GetLogicalDrives: %w", err)
	}
	var vols []diskVolume
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		root := string(rune('A'+i)) + `:\`
		p, err := windows.UTF16PtrFromString(root)
		if err != nil {
			continue
		}
		t, _, _ := procGetDriveTypeW.Call(uintptr(unsafe.Pointer(p)))
		if t != driveFixed {
			continue
		}
		var freeAvail, total, totalFree uint64
		r, _, _ := procGetDiskFreeSpaceExW.Call(
			uintptr(unsafe.Pointer(p)),
			uintptr(unsafe.Pointer(&freeAvail)),
			uintptr(unsafe.Pointer(&total)),
			uintptr(unsafe.Pointer(&totalFree)),
		)
		if r == 0 || total == 0 {
			continue
		}
		vols = append(vols, diskVolume{
			Name:    root[:2],
			TotalGB: bytesToGB(total),
			FreeGB:  bytesToGB(totalFree),
		})
	}
	return vols, nil
}

func (s *WindowsSource) DiskTotalGB() float64 {
	s.diskMu.Lock()
	defer s.diskMu.Unlock()
	return s.disk.totalGB
}

func (s *WindowsSource) DiskFreeGB() float64 {
	s.diskMu.Lock()
	defer s.diskMu.Unlock()
	return s.disk.freeGB
}

func (s *WindowsSource) DiskUsedGB() float64 {
	s.diskMu.Lock()
	defer s.diskMu.Unlock()
	return s.disk.usedGB()
}

func (s *WindowsSource) DiskDetails() string {
	s.diskMu.Lock()
	defer s.diskMu.Unlock()
	return s.disk.details
}

// ActiveWindowTitle reads the caption of the foreground window.
func (s *WindowsSource) ActiveWindowTitle() string {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return UnknownWindow
	}
	n, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if n == 0 {
		return UnknownWindow
	}
	buf := make([]uint16, n+1)
	r, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if r == 0 {
		return UnknownWindow
	}
	return normalizeTitle(windows.UTF16ToString(buf[:r]))
}

func (s *WindowsSource) Uptime() string {
	return FormatUptime(s.UptimeSeconds())
}

// UptimeSeconds comes from GetTickCount64, which does not wrap.
func (s *WindowsSource) UptimeSeconds() int64 {
	ms, _, _ := procGetTickCount64.Call()
	return int64(ms / 1000)
}

// StartInputMonitoring begins polling key, button and cursor state with
// GetAsyncKeyState and GetCursorPos.
func (s *WindowsSource) StartInputMonitoring() {
	if s.loop.start(s.runInput) {
		s.log.Debug("input monitoring started", "topic", "input", "interval", s.opts.InputPollInterval)
	}
}

func (s *WindowsSource) StopInputMonitoring() {
	if !s.loop.stop() {
		s.log.Warn("input loop did not stop in time", "topic", "input", "timeout", s.opts.InputStopTimeout)
	}
}

func (s *WindowsSource) InputStats() InputStats {
	return s.counters.snapshot(time.Now())
}

func (s *WindowsSource) CollectAllMetrics() MetricSample {
	return collectAll(s)
}

func (s *WindowsSource) runInput(ctx context.Context) {
	p := &asyncPoller{
		keyDown: asyncKeyDown,
		cursor:  cursorPos,
	}
	pollEvery(ctx, s.opts.InputPollInterval, func(now time.Time) {
		p.step(s.counters, now)
	})
}

func asyncKeyDown(vk int) bool {
	r, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return r&0x8000 != 0
}

func cursorPos() (int32, int32, bool) {
	var pt point
	r, _, _ := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	if r == 0 {
		return 0, 0, false
	}
	return pt.X, pt.Y, true
}
