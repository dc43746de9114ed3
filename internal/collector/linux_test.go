//go:build linux

package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLinuxSource(t *testing.T) *LinuxSource {
	t.Helper()
	s := NewLinuxSource(Options{InputPollInterval: 5 * time.Millisecond})
	s.readCPU = func() (cpuCounters, error) { return cpuCounters{}, errors.New("not stubbed") }
	s.readMem = func() (uint64, uint64, error) { return 8 << 30, 6 << 30, nil }
	s.listVolumes = func() ([]diskVolume, error) {
		return []diskVolume{{Name: "/", TotalGB: 250, FreeGB: 100}}, nil
	}
	s.readUptime = func() (uint64, error) { return 90061, nil }
	s.runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("no display")
	}
	return s
}

func TestLinuxSource_CPULoad(t *testing.T) {
	s := newTestLinuxSource(t)
	readings := []cpuCounters{{Idle: 100, Total: 200}, {Idle: 150, Total: 400}}
	s.readCPU = func() (cpuCounters, error) {
		r := readings[0]
		readings = readings[1:]
		return r, nil
	}

	if got := s.CPULoad(); got != 0 {
		t.Fatalf("first CPULoad = %v, want 0", got)
	}
	if got := s.CPULoad(); got != 75 {
		t.Fatalf("second CPULoad = %v, want 75", got)
	}
}

func TestLinuxSource_CPULoadError(t *testing.T) {
	s := newTestLinuxSource(t)
	if got := s.CPULoad(); got != 0 {
		t.Fatalf("CPULoad on read error = %v, want 0", got)
	}
}

func TestLinuxSource_Memory(t *testing.T) {
	s := newTestLinuxSource(t)
	if got := s.RAMTotal(); got != 8192 {
		t.Fatalf("RAMTotal = %v, want 8192", got)
	}
	if got := s.RAMUsed(); got != 2048 {
		t.Fatalf("RAMUsed = %v, want 2048", got)
	}

	s.readMem = func() (uint64, uint64, error) { return 0, 0, errors.New("boom") }
	if s.RAMTotal() != 0 || s.RAMUsed() != 0 {
		t.Fatal("memory getters should report 0 on error")
	}
}

func TestLinuxSource_DiskGettersNeedUpdate(t *testing.T) {
	s := newTestLinuxSource(t)
	if s.DiskTotalGB() != 0 || s.DiskDetails() != unknownDisks {
		t.Fatalf("before update: total=%v details=%q", s.DiskTotalGB(), s.DiskDetails())
	}

	s.UpdateDiskStats()
	if s.DiskTotalGB() != 250 || s.DiskFreeGB() != 100 || s.DiskUsedGB() != 150 {
		t.Fatalf("after update: total=%v free=%v used=%v", s.DiskTotalGB(), s.DiskFreeGB(), s.DiskUsedGB())
	}
	if s.DiskDetails() != "/: 150.00 / 250.00 GB" {
		t.Fatalf("DiskDetails = %q", s.DiskDetails())
	}

	s.listVolumes = func() ([]diskVolume, error) { return nil, errors.New("boom") }
	s.UpdateDiskStats()
	if s.DiskTotalGB() != 0 || s.DiskDetails() != unknownDisks {
		t.Fatalf("after failed update: total=%v details=%q", s.DiskTotalGB(), s.DiskDetails())
	}
}

func TestLinuxSource_Uptime(t *testing.T) {
	s := newTestLinuxSource(t)
	if got := s.UptimeSeconds(); got != 90061 {
		t.Fatalf("UptimeSeconds = %d, want 90061", got)
	}
	if got := s.Uptime(); got != "1 d 1 h 1 m" {
		t.Fatalf("Uptime = %q, want 1 d 1 h 1 m", got)
	}
}

func TestLinuxSource_ActiveWindowTitle(t *testing.T) {
	s := newTestLinuxSource(t)
	if got := s.ActiveWindowTitle(); got != UnknownWindow {
		t.Fatalf("ActiveWindowTitle without X = %q, want %q", got, UnknownWindow)
	}

	s.runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "xprop" {
			t.Fatalf("ran %q, want xprop", name)
		}
		if args[0] == "-root" {
			return []byte("_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3a00007\n"), nil
		}
		if args[1] != "0x3a00007" {
			t.Fatalf("queried window %q, want 0x3a00007", args[1])
		}
		return []byte("_NET_WM_NAME(UTF8_STRING) = \"notes.txt - Visual Studio Code\"\nWM_NAME(STRING) = \"notes.txt\"\n"), nil
	}
	if got := s.ActiveWindowTitle(); got != "notes.txt - Visual Studio Code" {
		t.Fatalf("ActiveWindowTitle = %q", got)
	}
}

func TestParseActiveWindowID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3a00007", "0x3a00007"},
		{"_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3a00007, 0x0", "0x3a00007"},
		{"_NET_ACTIVE_WINDOW(WINDOW): window id # 0x0", ""},
		{"_NET_ACTIVE_WINDOW:  not found.", ""},
	}
	for _, tt := range tests {
		if got := parseActiveWindowID(tt.in); got != tt.want {
			t.Errorf("parseActiveWindowID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseWindowName(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"net wm name", "_NET_WM_NAME(UTF8_STRING) = \"Firefox\"\nWM_NAME(STRING) = \"Old\"", "Firefox"},
		{"fallback", "_NET_WM_NAME:  not found.\nWM_NAME(STRING) = \"xterm\"", "xterm"},
		{"escaped quotes", `WM_NAME(STRING) = "say \"hi\""`, `say "hi"`},
		{"nothing", "WM_NAME:  not found.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseWindowName(tt.in); got != tt.want {
				t.Fatalf("parseWindowName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLinuxSource_CollectAllMetrics(t *testing.T) {
	s := newTestLinuxSource(t)
	m := s.CollectAllMetrics()
	if m.OS != "Linux" || m.DiskTotalGB != 250 || m.RAMTotalMB != 8192 || m.ActiveWindow != UnknownWindow {
		t.Fatalf("sample = %+v", m)
	}
	if m.CPUPercent != 0 {
		t.Fatalf("CPUPercent = %v, want 0", m.CPUPercent)
	}
}

func setTestInputGlob(t *testing.T, pattern string) {
	t.Helper()
	old := devInputGlob
	devInputGlob = pattern
	t.Cleanup(func() { devInputGlob = old })
}

func TestLinuxSource_InputFromDevices(t *testing.T) {
	dir := t.TempDir()
	data := encodeEvents(evdevEventSize,
		inputEvent{Type: evKey, Code: 30, Value: 1},
		inputEvent{Type: evKey, Code: 31, Value: 1},
		inputEvent{Type: evKey, Code: 0x110, Value: 1},
		inputEvent{Type: evRel, Code: relX, Value: 5},
		inputEvent{Type: evSyn},
	)
	if err := os.WriteFile(filepath.Join(dir, "event0"), data, 0o644); err != nil {
		t.Fatalf("write event0: %v", err)
	}
	setTestInputGlob(t, filepath.Join(dir, "event*"))

	s := newTestLinuxSource(t)
	s.StartInputMonitoring()
	defer s.StopInputMonitoring()

	deadline := time.Now().Add(2 * time.Second)
	for {
		in := s.InputStats()
		if in.Keys == 2 && in.Clicks == 1 && in.Moves == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("InputStats = %+v, want 2 keys, 1 click, 1 move", in)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLinuxSource_InputWithoutDevices(t *testing.T) {
	setTestInputGlob(t, filepath.Join(t.TempDir(), "event*"))

	s := newTestLinuxSource(t)
	s.StartInputMonitoring()
	s.StopInputMonitoring()
	s.StopInputMonitoring()

	if in := s.InputStats(); in.Keys != 0 || in.Clicks != 0 || in.Moves != 0 {
		t.Fatalf("InputStats = %+v, want zero counters", in)
	}
}

func TestLinuxSource_StopIsPrompt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "event0"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	setTestInputGlob(t, filepath.Join(dir, "event*"))

	s := newTestLinuxSource(t)
	s.StartInputMonitoring()
	time.Sleep(20 * time.Millisecond)

	begin := time.Now()
	s.StopInputMonitoring()
	if elapsed := time.Since(begin); elapsed > 500*time.Millisecond {
		t.Fatalf("StopInputMonitoring took %v", elapsed)
	}
}

func TestEvdevEventSize(t *testing.T) {
	if evdevEventSize != 16 && evdevEventSize != 24 {
		t.Fatalf("evdevEventSize = %d, want 16 or 24", evdevEventSize)
	}
	if !strings.HasPrefix(devInputGlob, "/dev/input/") {
		t.Fatalf("devInputGlob = %q", devInputGlob)
	}
}
