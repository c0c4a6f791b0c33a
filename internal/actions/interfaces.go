package actions

import (
	"context"

	"github.com/samvad-hq/postdesk/internal/domain"
	"github.com/samvad-hq/postdesk/pkg/publishers"
)

// PostAPI performs the mutating post calls.
type PostAPI interface {
	DeletePost(ctx context.Context, id string) (domain.OperationResult, error)
	ChangePostStatus(ctx context.Context, id, status string) (domain.OperationResult, error)
}

// Notifier shows blocking messages to the user and asks for confirmation.
type Notifier interface {
	Alert(msg string)
	Confirm(msg string) (bool, error)
}

// Navigator moves the user to another view or refreshes the current one.
type Navigator interface {
	Navigate(ctx context.Context, path string) error
	Reload(ctx context.Context) error
}

// EventPublisher publishes action outcomes downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
