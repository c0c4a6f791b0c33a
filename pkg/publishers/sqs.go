package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// queuePublisher enqueues events on an SQS queue.
type queuePublisher struct {
	id       string
	queueURL string
	fifo     bool
	client   sqsAPI
	log      Logger
}

func newQueuePublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("publisher %q: sqs is required", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.SQS.Region, cfg.SQS.Credentials)
	if err != nil {
		return nil, err
	}
	return &queuePublisher{
		id:       cfg.ID,
		queueURL: cfg.SQS.QueueURL,
		fifo:     strings.HasSuffix(cfg.SQS.QueueURL, ".fifo"),
		client:   sqs.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

func (q *queuePublisher) ID() string   { return q.id }
func (q *queuePublisher) Type() string { return TypeSQS }

// Publish sends the event body with its attributes. On FIFO queues the post
// is the message group and the event id deduplicates retries.
func (q *queuePublisher) Publish(ctx context.Context, evt Event) error {
	body, err := evt.encode()
	if err != nil {
		return err
	}

	input := &sqs.SendMessageInput{
		QueueUrl:          aws.String(q.queueURL),
		MessageBody:       aws.String(body),
		MessageAttributes: sqsAttributes(evt),
	}
	if q.fifo {
		input.MessageGroupId = aws.String(evt.orderingKey())
		input.MessageDeduplicationId = aws.String(evt.ID)
	}

	out, err := q.client.SendMessage(ctx, input)
	if err != nil {
		q.log.ErrorObj("sqs send failed", "publisher_sqs_error", map[string]any{
			"publisher_id": q.id,
			"event_id":     evt.ID,
			"action":       evt.Action,
			"error":        err.Error(),
		})
		return fmt.Errorf("sqs send: %w", err)
	}
	q.log.DebugObj("sqs accepted event", "publisher_sqs_delivery", map[string]any{
		"publisher_id": q.id,
		"event_id":     evt.ID,
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}

func sqsAttributes(evt Event) map[string]types.MessageAttributeValue {
	out := make(map[string]types.MessageAttributeValue)
	for name, value := range evt.attributes() {
		out[name] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(value)}
	}
	return out
}
