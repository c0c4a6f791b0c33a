package publishers

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Builder turns a config entry into a publisher.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry resolves publisher types to builders.
type Registry interface {
	Register(typ string, builder Builder)
	PublisherFor(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)
}

type builderSet struct {
	mu     sync.RWMutex
	byType map[string]Builder
}

// NewRegistry returns a registry seeded with builders.
func NewRegistry(builders map[string]Builder) Registry {
	set := &builderSet{byType: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		set.Register(typ, b)
	}
	return set
}

// DefaultRegistry knows every built in sink type.
func DefaultRegistry() Registry {
	return NewRegistry(map[string]Builder{
		TypeHTTP:      newWebhookPublisher,
		TypeSQS:       newQueuePublisher,
		TypeSNS:       newTopicPublisher,
		TypeGCPPubSub: newPubSubPublisher,
	})
}

// Register replaces the builder for typ. Blank types and nil builders are ignored.
func (s *builderSet) Register(typ string, builder Builder) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" || builder == nil {
		return
	}
	s.mu.Lock()
	s.byType[typ] = builder
	s.mu.Unlock()
}

func (s *builderSet) PublisherFor(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	typ := strings.ToLower(strings.TrimSpace(cfg.Type))
	if typ == "" {
		return nil, fmt.Errorf("publisher %q: type is required", cfg.ID)
	}
	s.mu.RLock()
	build, ok := s.byType[typ]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("publisher %q: unsupported type %q", cfg.ID, cfg.Type)
	}
	pub, err := build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return withActions(pub, cfg.Actions), nil
}

// BuildAll builds a publisher per entry. If one fails, the ones already built
// are closed before the error is returned.
func BuildAll(ctx context.Context, reg Registry, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	if reg == nil {
		return nil, nil
	}
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := reg.PublisherFor(ctx, cfg, log)
		if err != nil {
			_ = closeAll(pubs)
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}
