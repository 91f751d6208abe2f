package logging_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"gamearbiter/internal/logging"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []logging.LogEvent
}

func (r *eventRecorder) PublishLog(evt logging.LogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) all() []logging.LogEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]logging.LogEvent(nil), r.events...)
}

func TestTeeStreamsRecordsAndKeepsBaseOutput(t *testing.T) {
	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := &eventRecorder{}
	logger := logging.NewComponentLogger(logging.Tee(base, rec, slog.LevelInfo), "arbiter")

	logger.Debug("resolving")
	logger.Warn("launch failed",
		logging.Error(errors.New("fifo closed")),
		logging.String(logging.FieldSystem, "PSX"),
		slog.Group("match", slog.Int("score", 87)),
	)
	logging.WithContext(logging.WithRequestID(context.Background(), "req-7"), logger).Info("accepted")

	if !strings.Contains(buf.String(), "resolving") || !strings.Contains(buf.String(), "launch failed") {
		t.Fatalf("base output incomplete: %q", buf.String())
	}
	want := []logging.LogEvent{
		{
			Level:     "WARN",
			Message:   "launch failed",
			Component: "arbiter",
			Fields:    map[string]string{"error": "fifo closed", "system": "PSX", "match.score": "87"},
		},
		{Level: "INFO", Message: "accepted", Component: "arbiter", RequestID: "req-7"},
	}
	if diff := cmp.Diff(want, rec.all(), cmpopts.IgnoreFields(logging.LogEvent{}, "Time")); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestTeeWithoutSinkReturnsBase(t *testing.T) {
	base := logging.NewNop()
	if got := logging.Tee(base, nil, slog.LevelInfo); got != base {
		t.Fatal("expected base logger when no sink is set")
	}
}

func TestTeeStreamsWhenBaseIsSilent(t *testing.T) {
	rec := &eventRecorder{}
	logger := logging.Tee(logging.NewNop(), rec, slog.LevelWarn)
	logger.Info("quiet")
	logger.Error("loud")

	events := rec.all()
	if len(events) != 1 || events[0].Message != "loud" || events[0].Level != "ERROR" {
		t.Fatalf("events = %+v", events)
	}
}
