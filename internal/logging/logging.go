// Package logging builds the slog logger shared by the daemon and the CLI.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log topics. Records tagged with a topic are dropped unless it is enabled.
const (
	TopicMetrics = "metrics"
	TopicInput   = "input"
	TopicIdle    = "idle"
	TopicReport  = "report"
	TopicStorage = "storage"
	TopicDBus    = "dbus"
)

// TopicHandler wraps an slog.Handler and filters records by a "topic" attribute.
// Records without a topic attribute always pass through (startup messages, errors).
// Records with a topic only pass if that topic is enabled.
type TopicHandler struct {
	inner  slog.Handler
	topics map[string]bool
	topic  string // set when WithAttrs includes a "topic" key
}

func NewTopicHandler(inner slog.Handler, topics map[string]bool) *TopicHandler {
	if topics == nil {
		topics = map[string]bool{}
	}
	return &TopicHandler{inner: inner, topics: topics}
}

func (h *TopicHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *TopicHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.topics["all"] {
		return h.inner.Handle(ctx, r)
	}
	topic := h.topic
	// Record-level attrs win over the handler's.
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "topic" {
			topic = a.Value.String()
			return false
		}
		return true
	})
	if topic != "" && !h.topics[topic] {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *TopicHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	topic := h.topic
	for _, a := range attrs {
		if a.Key == "topic" {
			topic = a.Value.String()
		}
	}
	return &TopicHandler{inner: h.inner.WithAttrs(attrs), topics: h.topics, topic: topic}
}

func (h *TopicHandler) WithGroup(name string) slog.Handler {
	return &TopicHandler{inner: h.inner.WithGroup(name), topics: h.topics, topic: h.topic}
}

// ParseTopics turns the -verbose and -log flags into an enabled-topic set.
func ParseTopics(verbose bool, list string) map[string]bool {
	topics := make(map[string]bool)
	if verbose {
		topics["all"] = true
	}
	for _, t := range strings.Split(list, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics[t] = true
		}
	}
	return topics
}

// Options configures New.
type Options struct {
	Verbose bool
	Topics  string

	// File, when set, receives a copy of every record and is rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Output defaults to os.Stderr.
	Output io.Writer
	Level  slog.Level
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a topic-filtered text logger. The returned Closer releases the
// log file, if any.
func New(opts Options) (*slog.Logger, io.Closer) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			LocalTime:  true,
		}
		out = io.MultiWriter(out, rotator)
		closer = rotator
	}

	handler := NewTopicHandler(
		slog.NewTextHandler(out, &slog.HandlerOptions{Level: opts.Level}),
		ParseTopics(opts.Verbose, opts.Topics),
	)
	return slog.New(handler), closer
}
