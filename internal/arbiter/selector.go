package arbiter

import (
	"context"
	"errors"
	"time"

	"gamearbiter/internal/catalog"
	"gamearbiter/internal/notifications"
)

// Prompt asks the player to choose between close matches.
type Prompt struct {
	RequestID string          `json:"request_id"`
	System    string          `json:"system"`
	Query     string          `json:"query"`
	Choices   []catalog.Entry `json:"choices"`
	Deadline  time.Time       `json:"deadline"`
}

// Selector presents prompts to whatever UI can answer them. Answers come
// back through Arbiter.Choose.
type Selector interface {
	Prompt(ctx context.Context, p Prompt) error
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(ctx context.Context, p Prompt) error

// Prompt calls f.
func (f SelectorFunc) Prompt(ctx context.Context, p Prompt) error { return f(ctx, p) }

// NotifySelector shows prompts as a notification line.
func NotifySelector(n notifications.Service) Selector {
	return SelectorFunc(func(ctx context.Context, p Prompt) error {
		labels := make([]string, len(p.Choices))
		for i, c := range p.Choices {
			labels[i] = c.Label()
		}
		return n.Publish(ctx, notifications.EventAmbiguous, notifications.Payload{
			"system":  p.System,
			"choices": labels,
		})
	})
}

// Selectors fans a prompt out to several selectors.
func Selectors(selectors ...Selector) Selector {
	return SelectorFunc(func(ctx context.Context, p Prompt) error {
		var errs []error
		for _, s := range selectors {
			if s == nil {
				continue
			}
			if err := s.Prompt(ctx, p); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
