package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Fanout delivers each event to every publisher subscribed to its action.
// Publishers run in order; one failing does not stop the rest.
type Fanout struct {
	sinks []Publisher
}

// NewFanout drops nil entries and keeps the rest in order.
func NewFanout(pubs []Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range pubs {
		if p != nil {
			f.sinks = append(f.sinks, p)
		}
	}
	return f
}

// Publish returns how many sinks accepted the event together with the joined
// delivery errors. Sinks filtered out by action count as neither.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil {
		return 0, nil
	}
	delivered := 0
	var errs []error
	for _, sink := range f.sinks {
		if filter, ok := sink.(ActionFilter); ok && !filter.Accepts(evt.Action) {
			continue
		}
		if err := sink.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", sink.Type(), sink.ID(), err))
			continue
		}
		delivered++
	}
	return delivered, errors.Join(errs...)
}

// Size is the number of sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}

// Close releases sinks holding connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeAll(f.sinks)
}

func closeAll(pubs []Publisher) error {
	var errs []error
	for _, p := range pubs {
		c, ok := p.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s %q: %w", p.Type(), p.ID(), err))
		}
	}
	return errors.Join(errs...)
}
