package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/config"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/logging"
)

func TestSourceOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Collection.InputPollMillis = 40

	var buf bytes.Buffer
	logger, closer := logging.New(logging.Options{Topics: logging.TopicMetrics, Output: &buf, Level: slog.LevelDebug})
	defer closer.Close()

	opts := sourceOptions(cfg, logger)
	if opts.InputPollInterval != 40*time.Millisecond {
		t.Fatalf("InputPollInterval = %v, want 40ms", opts.InputPollInterval)
	}
	if opts.InputStopTimeout != 200*time.Millisecond {
		t.Fatalf("InputStopTimeout = %v, want 200ms", opts.InputStopTimeout)
	}

	opts.Logger.Debug("read cpu times failed")
	opts.Logger.Debug("opened input devices", "topic", logging.TopicInput)

	out := buf.String()
	if !strings.Contains(out, "read cpu times failed") || !strings.Contains(out, "topic=metrics") {
		t.Fatalf("metrics record missing from %q", out)
	}
	if strings.Contains(out, "opened input devices") {
		t.Fatalf("input record logged with only metrics enabled: %q", out)
	}
}
