package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/collector"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/storage"
)

func writeTestConfig(t *testing.T) (configPath, dbPath string) {
	t.Helper()

	dir := t.TempDir()
	dbPath = filepath.Join(dir, "data", "test.db")
	configPath = filepath.Join(dir, "config.toml")
	contents := fmt.Sprintf("[storage]\ndb_path = %q\n\n[user]\nname = \"alice\"\n", dbPath)
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, dbPath
}

func run(t *testing.T, configPath, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestUserAddAndCheck(t *testing.T) {
	cfg, _ := writeTestConfig(t)

	out, err := run(t, cfg, "secret1\n", "user", "add", "alice")
	if err != nil {
		t.Fatalf("user add error = %v", err)
	}
	if !strings.Contains(out, "created user alice") {
		t.Fatalf("user add output = %q", out)
	}

	if _, err := run(t, cfg, "", "user", "add", "alice", "--password", "secret1"); err == nil {
		t.Fatal("duplicate user add error = nil")
	}
	if out, err := run(t, cfg, "", "user", "check", "alice", "--password", "secret1"); err != nil || !strings.HasPrefix(out, "ok: alice") {
		t.Fatalf("user check = %q, %v", out, err)
	}
	if _, err := run(t, cfg, "", "user", "check", "alice", "--password", "wrong!"); err == nil {
		t.Fatal("user check with wrong password error = nil")
	}
}

func TestIdleCommands(t *testing.T) {
	cfg, _ := writeTestConfig(t)
	if _, err := run(t, cfg, "", "user", "add", "alice", "--password", "secret1"); err != nil {
		t.Fatal(err)
	}

	if out, err := run(t, cfg, "", "idle", "status"); err != nil || !strings.Contains(out, "no idle session open") {
		t.Fatalf("idle status = %q, %v", out, err)
	}
	if out, err := run(t, cfg, "", "idle", "start"); err != nil || !strings.Contains(out, "open since") {
		t.Fatalf("idle start = %q, %v", out, err)
	}
	if out, err := run(t, cfg, "", "idle", "status"); err != nil || !strings.Contains(out, "manual reason") {
		t.Fatalf("idle status = %q, %v", out, err)
	}
	if out, err := run(t, cfg, "", "idle", "end"); err != nil || !strings.Contains(out, "closed after") {
		t.Fatalf("idle end = %q, %v", out, err)
	}
	if _, err := run(t, cfg, "", "idle", "start", "--user", "nobody"); err == nil {
		t.Fatal("idle start for unknown user error = nil")
	}
}

func TestReportLifecycle(t *testing.T) {
	cfg, dbPath := writeTestConfig(t)
	if _, err := run(t, cfg, "", "user", "add", "alice", "--password", "secret1"); err != nil {
		t.Fatal(err)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	u, err := db.UserByName("alice")
	if err != nil {
		t.Fatal(err)
	}
	day := time.Date(2024, 5, 1, 9, 15, 0, 0, time.Local)
	for i, title := range []string{"Slack", "Slack", "Mozilla Firefox", "Unknown"} {
		s := collector.MetricSample{CPUPercent: 10, RAMUsedMB: 500, ActiveWindow: title, RecordedAt: day.Add(time.Duration(i) * time.Minute)}
		if err := db.SaveSample(u.ID, s); err != nil {
			t.Fatal(err)
		}
	}
	db.Close()

	out, err := run(t, cfg, "", "report", "generate", "--from", "2024-05-01", "--name", "may day", "--save", "--hourly")
	if err != nil {
		t.Fatalf("report generate error = %v", err)
	}
	for _, want := range []string{"Report #1", "may day (2024-05-01 to 2024-05-01)", "Slack", "09:00  CPU: 10.00%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report generate output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, cfg, "", "report", "list")
	if err != nil || !strings.Contains(out, "may day") {
		t.Fatalf("report list = %q, %v", out, err)
	}

	out, err = run(t, cfg, "", "report", "show", "1", "--json")
	if err != nil || !strings.Contains(out, `"Slack": 50`) {
		t.Fatalf("report show = %q, %v", out, err)
	}

	if _, err := run(t, cfg, "", "report", "generate", "--from", "2024-05-02", "--to", "2024-05-01"); err == nil {
		t.Fatal("report generate with inverted range error = nil")
	}

	if out, err := run(t, cfg, "", "report", "delete", "1"); err != nil || !strings.Contains(out, "deleted report 1") {
		t.Fatalf("report delete = %q, %v", out, err)
	}
	if _, err := run(t, cfg, "", "report", "show", "1"); err == nil {
		t.Fatal("report show after delete error = nil")
	}
	if _, err := run(t, cfg, "", "report", "show", "abc"); err == nil {
		t.Fatal("report show with bad id error = nil")
	}
}

func TestReadPassword(t *testing.T) {
	if pw, err := readPassword("flag", strings.NewReader("ignored\n"), &bytes.Buffer{}); err != nil || pw != "flag" {
		t.Fatalf("readPassword(flag) = %q, %v", pw, err)
	}
	if pw, err := readPassword("", strings.NewReader("typed\r\n"), &bytes.Buffer{}); err != nil || pw != "typed" {
		t.Fatalf("readPassword(stdin) = %q, %v", pw, err)
	}
	if pw, err := readPassword("", strings.NewReader("noeol"), &bytes.Buffer{}); err != nil || pw != "noeol" {
		t.Fatalf("readPassword(no newline) = %q, %v", pw, err)
	}
	if _, err := readPassword("", strings.NewReader(""), &bytes.Buffer{}); err == nil {
		t.Fatal("readPassword(empty stdin) error = nil")
	}
}
