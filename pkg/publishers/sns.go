package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// topicPublisher broadcasts events on an SNS topic.
type topicPublisher struct {
	id       string
	topicARN string
	fifo     bool
	client   snsAPI
	log      Logger
}

func newTopicPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("publisher %q: sns is required", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.Region, cfg.SNS.Credentials)
	if err != nil {
		return nil, err
	}
	return &topicPublisher{
		id:       cfg.ID,
		topicARN: cfg.SNS.TopicARN,
		fifo:     strings.HasSuffix(cfg.SNS.TopicARN, ".fifo"),
		client:   sns.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

func (t *topicPublisher) ID() string   { return t.id }
func (t *topicPublisher) Type() string { return TypeSNS }

// Publish sends the event with attributes subscribers can filter on.
func (t *topicPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := evt.encode()
	if err != nil {
		return err
	}

	input := &sns.PublishInput{
		TopicArn:          aws.String(t.topicARN),
		Message:           aws.String(body),
		MessageAttributes: snsAttributes(evt),
	}
	if t.fifo {
		input.MessageGroupId = aws.String(evt.orderingKey())
		input.MessageDeduplicationId = aws.String(evt.ID)
	}

	out, err := t.client.Publish(ctx, input)
	if err != nil {
		t.log.ErrorObj("sns publish failed", "publisher_sns_error", map[string]any{
			"publisher_id": t.id,
			"event_id":     evt.ID,
			"action":       evt.Action,
			"error":        err.Error(),
		})
		return fmt.Errorf("sns publish: %w", err)
	}
	t.log.DebugObj("sns accepted event", "publisher_sns_delivery", map[string]any{
		"publisher_id": t.id,
		"event_id":     evt.ID,
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}

func snsAttributes(evt Event) map[string]types.MessageAttributeValue {
	out := make(map[string]types.MessageAttributeValue)
	for name, value := range evt.attributes() {
		out[name] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(value)}
	}
	return out
}
