// Package publishers delivers post action events to external sinks: webhooks,
// SQS queues, SNS topics and Pub/Sub topics.
package publishers

import (
	"context"
	"io"

	"github.com/samvad-hq/postdesk/internal/logger"
)

// Publisher delivers one event to one sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// ActionFilter is implemented by publishers subscribed to a subset of actions.
type ActionFilter interface {
	Accepts(action string) bool
}

// Logger is the structured logging surface publishers rely on.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger {
	return logger.Ensure(log)
}

// routed restricts a publisher to the actions listed in its config entry.
type routed struct {
	Publisher
	actions []string
}

func withActions(p Publisher, actions []string) Publisher {
	if len(actions) == 0 {
		return p
	}
	return &routed{Publisher: p, actions: actions}
}

func (r *routed) Accepts(action string) bool {
	return PublisherConfig{Actions: r.actions}.Accepts(action)
}

func (r *routed) Close() error {
	if c, ok := r.Publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
