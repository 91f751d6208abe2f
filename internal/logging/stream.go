package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LogEvent is one log record flattened for remote clients.
type LogEvent struct {
	Time      time.Time         `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// EventSink receives streamed log events. PublishLog is called on the
// logging goroutine and must not block or log.
type EventSink interface {
	PublishLog(LogEvent)
}

// Tee returns a logger that keeps writing through base and also streams
// records at or above level to sink.
func Tee(base *slog.Logger, sink EventSink, level slog.Leveler) *slog.Logger {
	if sink == nil {
		return base
	}
	if level == nil {
		level = slog.LevelInfo
	}
	stream := &streamHandler{sink: sink, level: level}
	if base == nil {
		return slog.New(stream)
	}
	return slog.New(&teeHandler{primary: base.Handler(), stream: stream})
}

// teeHandler writes every record to primary and, when enabled, to stream.
type teeHandler struct {
	primary slog.Handler
	stream  slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.stream.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var primaryErr, streamErr error
	if h.primary.Enabled(ctx, record.Level) {
		primaryErr = h.primary.Handle(ctx, record.Clone())
	}
	if h.stream.Enabled(ctx, record.Level) {
		streamErr = h.stream.Handle(ctx, record)
	}
	return errors.Join(primaryErr, streamErr)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{primary: h.primary.WithAttrs(attrs), stream: h.stream.WithAttrs(attrs)}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{primary: h.primary.WithGroup(name), stream: h.stream.WithGroup(name)}
}

type streamHandler struct {
	sink   EventSink
	level  slog.Leveler
	fields []kv
	groups []string
}

func (h *streamHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	kvs := make([]kv, 0, len(h.fields)+record.NumAttrs())
	kvs = append(kvs, h.fields...)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})

	event := LogEvent{
		Time:    record.Time.UTC(),
		Level:   levelLabel(record.Level),
		Message: strings.TrimSpace(record.Message),
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		event.RequestID = id
	}
	for _, item := range kvs {
		switch item.key {
		case "":
		case FieldComponent:
			if event.Component == "" {
				event.Component = item.value.String()
			}
		case FieldRequestID:
			event.RequestID = item.value.String()
		default:
			if event.Fields == nil {
				event.Fields = make(map[string]string, len(kvs))
			}
			event.Fields[item.key] = fieldValue(item.value)
		}
	}
	h.sink.PublishLog(event)
	return nil
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.fields = append([]kv(nil), h.fields...)
	flattenAttrs(&clone.fields, h.groups, attrs)
	return &clone
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// fieldValue renders v without the console quoting.
func fieldValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return formatValue(v)
	}
}
