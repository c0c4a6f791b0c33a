package publishers

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// pubsubPublisher publishes events on a Google Cloud Pub/Sub topic.
type pubsubPublisher struct {
	id      string
	ordered bool
	client  *pubsub.Client
	topic   *pubsub.Topic
	log     Logger
}

func newPubSubPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.GCP == nil {
		return nil, fmt.Errorf("publisher %q: gcp_pubsub is required", cfg.ID)
	}
	p, err := dialPubSub(ctx, cfg.GCP, log)
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	p.id = cfg.ID
	return p, nil
}

// dialPubSub connects to the project. The client library honours
// PUBSUB_EMULATOR_HOST.
func dialPubSub(ctx context.Context, cfg *GCPQueueConfig, log Logger) (*pubsubPublisher, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(cfg.Topic)
	topic.EnableMessageOrdering = cfg.Ordered

	return &pubsubPublisher{
		ordered: cfg.Ordered,
		client:  client,
		topic:   topic,
		log:     ensureLogger(log),
	}, nil
}

func (p *pubsubPublisher) ID() string   { return p.id }
func (p *pubsubPublisher) Type() string { return TypeGCPPubSub }

// Publish waits for the server to acknowledge the message. Ordered topics key
// messages by post; a failed key is resumed so later events for it can go out.
func (p *pubsubPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := evt.encode()
	if err != nil {
		return err
	}
	msg := &pubsub.Message{Data: []byte(body), Attributes: evt.attributes()}
	if p.ordered {
		msg.OrderingKey = evt.orderingKey()
	}

	serverID, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		if p.ordered {
			p.topic.ResumePublish(msg.OrderingKey)
		}
		p.log.ErrorObj("pubsub publish failed", "publisher_pubsub_error", map[string]any{
			"publisher_id": p.id,
			"event_id":     evt.ID,
			"action":       evt.Action,
			"error":        err.Error(),
		})
		return fmt.Errorf("pubsub publish: %w", err)
	}
	p.log.DebugObj("pubsub accepted event", "publisher_pubsub_delivery", map[string]any{
		"publisher_id": p.id,
		"event_id":     evt.ID,
		"message_id":   serverID,
	})
	return nil
}

// Close flushes pending messages and releases the client.
func (p *pubsubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
