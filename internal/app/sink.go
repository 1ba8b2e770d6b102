package app

import (
	"context"
	"log/slog"

	"github.com/ayusman/signbridge/internal/event"
)

// Sink receives every event the app emits. Publish must not block for long;
// errors are logged and otherwise ignored.
type Sink interface {
	Publish(ctx context.Context, ev event.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev event.Event) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, ev event.Event) error {
	return f(ctx, ev)
}

// AddSink registers s for all future events.
func (a *App) AddSink(s Sink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinks = append(a.sinks, s)
}

func (a *App) publish(ctx context.Context, ev event.Event) {
	a.mu.RLock()
	sinks := a.sinks
	a.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Publish(ctx, ev); err != nil {
			a.log.Warn("sink publish failed",
				slog.String("kind", string(ev.Kind)),
				slog.String("error", err.Error()),
			)
		}
	}
}
