package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/samvad-hq/postdesk/internal/domain"
	"github.com/samvad-hq/postdesk/internal/logger"
)

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestQueuePublisherSendsAttributes(t *testing.T) {
	api := &fakeSQS{}
	q := &queuePublisher{id: "q", queueURL: "https://sqs.local/123/post-actions", client: api, log: logger.NopLogger{}}

	evt := NewEvent(domain.ActionChangeStatus, domain.PostContext{ID: "42", Status: "published"}, "draft", "")
	if err := q.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	in := api.input
	if aws.ToString(in.QueueUrl) != "https://sqs.local/123/post-actions" {
		t.Fatalf("QueueUrl = %s", aws.ToString(in.QueueUrl))
	}
	for name, want := range map[string]string{"post_id": "42", "action": "change-status", "new_status": "draft"} {
		attr, ok := in.MessageAttributes[name]
		if !ok || aws.ToString(attr.StringValue) != want || aws.ToString(attr.DataType) != "String" {
			t.Fatalf("attribute %s = %#v", name, attr)
		}
	}
	if !strings.Contains(aws.ToString(in.MessageBody), `"old_status":"published"`) {
		t.Fatalf("body = %s", aws.ToString(in.MessageBody))
	}
	if in.MessageGroupId != nil || in.MessageDeduplicationId != nil {
		t.Fatalf("standard queue should not get FIFO fields")
	}
}

func TestQueuePublisherFIFOGroupsByPost(t *testing.T) {
	api := &fakeSQS{}
	q := &queuePublisher{id: "q", queueURL: "https://sqs.local/123/post-actions.fifo", fifo: true, client: api, log: logger.NopLogger{}}

	evt := NewEvent(domain.ActionDelete, domain.PostContext{ID: "9"}, "", "")
	if err := q.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if aws.ToString(api.input.MessageGroupId) != "post-9" || aws.ToString(api.input.MessageDeduplicationId) != evt.ID {
		t.Fatalf("fifo fields = %v %v", aws.ToString(api.input.MessageGroupId), aws.ToString(api.input.MessageDeduplicationId))
	}
	if _, ok := api.input.MessageAttributes["new_status"]; ok {
		t.Fatalf("empty new_status should be omitted")
	}
}

func TestQueuePublisherWrapsSendError(t *testing.T) {
	sendErr := errors.New("throttled")
	q := &queuePublisher{id: "q", client: &fakeSQS{err: sendErr}, log: logger.NopLogger{}}
	if err := q.Publish(context.Background(), Event{PostID: "1"}); !errors.Is(err, sendErr) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}
