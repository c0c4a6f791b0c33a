package actions

import (
	"context"
	"errors"
	"strings"

	"github.com/samvad-hq/postdesk/internal/domain"
	"github.com/samvad-hq/postdesk/internal/logger"
	"github.com/samvad-hq/postdesk/pkg/blogapi"
	"github.com/samvad-hq/postdesk/pkg/publishers"
)

// User facing messages.
const (
	ConfirmDeleteMessage  = "Do you indeed want to delete this post?"
	DeletedMessage        = "Post successfully deleted. Redirecting..."
	StatusChangedMessage  = "Status has been successfully changed."
	StatusChangeFailedMsg = "Error occurred while changing post status. Try again."

	defaultListingPath = "/posts"
)

// PostActions implements the delete and change-status handlers.
type PostActions struct {
	api         PostAPI
	notifier    Notifier
	navigator   Navigator
	events      EventPublisher
	log         logger.Logger
	listingPath string
}

// Options configures PostActions. Events may be nil.
type Options struct {
	API         PostAPI
	Notifier    Notifier
	Navigator   Navigator
	Events      EventPublisher
	Log         logger.Logger
	ListingPath string
}

// NewPostActions wires the post handlers with their collaborators.
func NewPostActions(opts Options) (*PostActions, error) {
	if opts.API == nil {
		return nil, errors.New("actions: post api is required")
	}
	if opts.Notifier == nil {
		return nil, errors.New("actions: notifier is required")
	}
	if opts.Navigator == nil {
		return nil, errors.New("actions: navigator is required")
	}

	listing := strings.TrimSpace(opts.ListingPath)
	if listing == "" {
		listing = defaultListingPath
	}

	return &PostActions{
		api:         opts.API,
		notifier:    opts.Notifier,
		navigator:   opts.Navigator,
		events:      opts.Events,
		log:         logger.Ensure(opts.Log),
		listingPath: listing,
	}, nil
}

// Register binds both handlers on d.
func (p *PostActions) Register(d *Dispatcher) error {
	if err := d.Register(domain.ActionDelete, p.Delete); err != nil {
		return err
	}
	return d.Register(domain.ActionChangeStatus, p.ChangeStatus)
}

// Delete asks for confirmation, deletes the post and navigates to the listing.
// Failures are logged only; the user sees nothing and stays on the page.
func (p *PostActions) Delete(ctx context.Context, post domain.PostContext, _ domain.Trigger) error {
	if strings.TrimSpace(post.ID) == "" {
		return blogapi.ErrMissingPostID
	}

	ok, err := p.notifier.Confirm(ConfirmDeleteMessage)
	if err != nil {
		return err
	}
	if !ok {
		p.log.InfoObj("post delete declined", "action", actionFields(domain.ActionDelete, post, ""))
		return nil
	}

	res, err := p.api.DeletePost(ctx, post.ID)
	if err != nil {
		fields := actionFields(domain.ActionDelete, post, "")
		fields["error"] = err.Error()
		p.log.ErrorObj("post delete failed", "action_error", fields)
		return err
	}

	p.notifier.Alert(DeletedMessage)
	p.publish(ctx, publishers.NewEvent(domain.ActionDelete, post, "", res.Message))

	if err := p.navigator.Navigate(ctx, p.listingPath); err != nil {
		p.log.WarnObj("navigation after delete failed", "navigation_error", map[string]any{
			"path":  p.listingPath,
			"error": err.Error(),
		})
	}
	return nil
}

// ChangeStatus moves the post to trigger.NewStatus and reloads the page.
// Failures are logged and reported with a fixed message; the page is not reloaded.
func (p *PostActions) ChangeStatus(ctx context.Context, post domain.PostContext, trigger domain.Trigger) error {
	if strings.TrimSpace(post.ID) == "" {
		return blogapi.ErrMissingPostID
	}
	if strings.TrimSpace(trigger.NewStatus) == "" {
		return blogapi.ErrMissingStatus
	}

	res, err := p.api.ChangePostStatus(ctx, post.ID, trigger.NewStatus)
	if err != nil {
		fields := actionFields(domain.ActionChangeStatus, post, trigger.NewStatus)
		fields["error"] = err.Error()
		p.log.ErrorObj("post status change failed", "action_error", fields)
		p.notifier.Alert(StatusChangeFailedMsg)
		return err
	}

	p.notifier.Alert(StatusChangedMessage)
	p.publish(ctx, publishers.NewEvent(domain.ActionChangeStatus, post, trigger.NewStatus, res.Message))

	if err := p.navigator.Reload(ctx); err != nil {
		p.log.WarnObj("reload after status change failed", "navigation_error", map[string]any{
			"post_id": post.ID,
			"error":   err.Error(),
		})
	}
	return nil
}

func (p *PostActions) publish(ctx context.Context, evt publishers.Event) {
	if p.events == nil {
		return
	}
	delivered, err := p.events.Publish(ctx, evt)
	if err != nil {
		p.log.WarnObj("action event publish failed", "publish_error", map[string]any{
			"event_id":  evt.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
		return
	}
	p.log.DebugObj("action event published", "publish_result", map[string]any{
		"event_id":  evt.ID,
		"delivered": delivered,
	})
}

func actionFields(action string, post domain.PostContext, newStatus string) map[string]any {
	fields := map[string]any{
		"action":      action,
		"post_id":     post.ID,
		"post_status": post.Status,
		"post_author": post.Author,
	}
	if newStatus != "" {
		fields["new_status"] = newStatus
	}
	return fields
}
