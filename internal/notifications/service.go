package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"gamearbiter/internal/config"
	"gamearbiter/internal/logging"
)

// Event enumerates notification kinds.
type Event string

const (
	EventLaunched      Event = "launched"
	EventNotFound      Event = "not_found"
	EventAmbiguous     Event = "ambiguous"
	EventLaunchTimeout Event = "launch_timeout"
	EventExited        Event = "exited"
	EventError         Event = "error"
	EventTest          Event = "test"
)

// Payload carries event fields. Recognized keys: title, system, identifier,
// choices ([]string), context, error.
type Payload map[string]any

// ErrDropped is returned when a notifier discards a message on purpose.
var ErrDropped = errors.New("notification dropped")

// Message is the rendered form of one event.
type Message struct {
	Event    Event
	Title    string
	Text     string
	Tags     []string
	Priority string
}

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// Sink delivers rendered messages.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the notifier stack described by cfg. With neither an OSD path
// nor an ntfy topic the result is a no-op.
func New(cfg *config.Config, logger *slog.Logger) Service {
	var sinks []Sink
	if path := strings.TrimSpace(cfg.Notifications.OSDPath); path != "" {
		osd := NewOSD(path)
		sinks = append(sinks, NewLimited(osd, rate.Every(cfg.OSDInterval()), cfg.Notifications.OSDBurst))
	}
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		sinks = append(sinks, Filter(NewNtfy(topic, timeout), ntfyEvents(cfg.Notifications)))
	}
	if len(sinks) == 0 {
		return noopService{}
	}
	return &service{
		sink:   Fanout(sinks...),
		logger: logging.NewComponentLogger(logger, "notifications"),
	}
}

func ntfyEvents(cfg config.Notifications) map[Event]bool {
	allowed := map[Event]bool{EventTest: true}
	if cfg.Launches {
		allowed[EventLaunched] = true
		allowed[EventExited] = true
	}
	if cfg.NotFound {
		allowed[EventNotFound] = true
		allowed[EventAmbiguous] = true
	}
	if cfg.Errors {
		allowed[EventError] = true
		allowed[EventLaunchTimeout] = true
	}
	return allowed
}

// NewService wraps a single sink, mainly for tests and the CLI test command.
func NewService(sink Sink, logger *slog.Logger) Service {
	return &service{sink: sink, logger: logging.NewComponentLogger(logger, "notifications")}
}

type service struct {
	sink   Sink
	logger *slog.Logger
}

func (s *service) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := Render(event, payload)
	if !ok {
		return nil
	}
	err := s.sink.Send(ctx, msg)
	if errors.Is(err, ErrDropped) {
		s.logger.Debug("notification suppressed", logging.String("event", string(event)))
		return nil
	}
	return err
}

// Render formats an event. Unknown events are reported as not ok.
func Render(event Event, payload Payload) (Message, bool) {
	title := payload.text("title")
	system := payload.text("system")
	switch event {
	case EventLaunched:
		return Message{
			Event: event,
			Title: "Game Arbiter - Launching",
			Text:  fmt.Sprintf("Launching %s%s", title, bracket(system)),
			Tags:  []string{"arbiter", "launch"},
		}, true
	case EventNotFound:
		identifier := payload.text("identifier")
		return Message{
			Event: event,
			Title: "Game Arbiter - Not Found",
			Text:  fmt.Sprintf("No game found for %s%s", identifier, bracket(system)),
			Tags:  []string{"arbiter", "not_found"},
		}, true
	case EventAmbiguous:
		var parts []string
		for i, choice := range payload.list("choices") {
			parts = append(parts, fmt.Sprintf("%d) %s", i+1, choice))
		}
		return Message{
			Event: event,
			Title: "Game Arbiter - Choose a Game",
			Text:  "Choose: " + strings.Join(parts, " "),
			Tags:  []string{"arbiter", "ambiguous"},
		}, true
	case EventLaunchTimeout:
		return Message{
			Event:    event,
			Title:    "Game Arbiter - Launcher Timeout",
			Text:     fmt.Sprintf("Launcher did not respond for %s", title),
			Tags:     []string{"arbiter", "launch", "timeout"},
			Priority: "high",
		}, true
	case EventExited:
		return Message{
			Event: event,
			Title: "Game Arbiter - Exited",
			Text:  "Game exited",
			Tags:  []string{"arbiter", "exit"},
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("Error")
		if label := payload.text("context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if msg := payload.text("error"); msg != "" {
			b.WriteString(msg)
		} else {
			b.WriteString("unknown")
		}
		return Message{
			Event:    event,
			Title:    "Game Arbiter - Error",
			Text:     b.String(),
			Tags:     []string{"arbiter", "error", "alert"},
			Priority: "high",
		}, true
	case EventTest:
		return Message{
			Event:    event,
			Title:    "Game Arbiter - Test",
			Text:     "Notification system test",
			Tags:     []string{"arbiter", "test"},
			Priority: "low",
		}, true
	default:
		return Message{}, false
	}
}

func bracket(system string) string {
	if system == "" {
		return ""
	}
	return " [" + system + "]"
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case error:
		return strings.TrimSpace(v.Error())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) list(key string) []string {
	if p == nil {
		return nil
	}
	values, _ := p[key].([]string)
	return values
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
