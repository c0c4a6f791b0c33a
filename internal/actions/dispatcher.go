// Package actions maps page triggers to the post operations they start.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/samvad-hq/postdesk/internal/domain"
)

// ErrUnknownAction is returned when no handler is registered for a trigger.
var ErrUnknownAction = errors.New("unknown action")

// Handler runs one action against the post a page is showing.
type Handler func(ctx context.Context, post domain.PostContext, trigger domain.Trigger) error

// Dispatcher routes triggers to registered handlers by action name.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register binds a handler to an action name, replacing any previous binding.
func (d *Dispatcher) Register(name string, h Handler) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("action name is required")
	}
	if h == nil {
		return fmt.Errorf("action %q: handler is nil", name)
	}

	d.mu.Lock()
	d.handlers[name] = h
	d.mu.Unlock()
	return nil
}

// Dispatch runs the handler registered for trigger.Action.
func (d *Dispatcher) Dispatch(ctx context.Context, post domain.PostContext, trigger domain.Trigger) error {
	name := strings.TrimSpace(trigger.Action)

	d.mu.RLock()
	h, ok := d.handlers[name]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return h(ctx, post, trigger)
}

// Actions lists the registered action names in sorted order.
func (d *Dispatcher) Actions() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
