package publishers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/postdesk/internal/domain"
)

// Event records the outcome of a post action.
type Event struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	PostID     string    `json:"post_id"`
	PostAuthor string    `json:"post_author,omitempty"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status,omitempty"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent stamps a fresh id and the current time on an action applied to post.
// The post's status at dispatch time becomes OldStatus.
func NewEvent(action string, post domain.PostContext, newStatus, message string) Event {
	return Event{
		ID:         uuid.NewString(),
		Action:     action,
		PostID:     post.ID,
		PostAuthor: post.Author,
		OldStatus:  post.Status,
		NewStatus:  newStatus,
		Message:    message,
		OccurredAt: time.Now().UTC(),
	}
}

func (e Event) encode() (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal event %s: %w", e.ID, err)
	}
	return string(raw), nil
}

// attributes are the filterable keys sent next to the body. Empty values are left out.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{}
	if e.Action != "" {
		attrs["action"] = e.Action
	}
	if e.PostID != "" {
		attrs["post_id"] = e.PostID
	}
	if e.NewStatus != "" {
		attrs["new_status"] = e.NewStatus
	}
	return attrs
}

// orderingKey groups events of one post in FIFO and ordered sinks.
func (e Event) orderingKey() string {
	if e.PostID == "" {
		return "post-unknown"
	}
	return "post-" + e.PostID
}
