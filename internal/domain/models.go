package domain

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Domain contains core models shared by the API client, page reader and actions.

// Post statuses accepted by the blog server.
const (
	StatusPublished = "published"
	StatusDraft     = "draft"
)

// Action names carried by trigger elements in data-action.
const (
	ActionDelete       = "delete"
	ActionChangeStatus = "change-status"
)

// Trigger is one user-activatable action found on a post page.
type Trigger struct {
	Action    string `json:"action"`
	NewStatus string `json:"new_status,omitempty"`
}

// PostContext is the read-only snapshot of the post a page is showing.
type PostContext struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Author string `json:"author"`
}

// Tag is a post label.
type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Post is the full post representation returned by the API.
type Post struct {
	ID          int       `json:"id"`
	Author      int       `json:"author"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Description string    `json:"description"`
	CreatedAt   Timestamp `json:"created_at"`
	Status      string    `json:"status"`
	Tags        []Tag     `json:"tags"`
	AuthorID    *int      `json:"author_id"`
	AuthorName  *string   `json:"author_name"`
}

// PostPage is one page of the published posts listing.
type PostPage struct {
	Page         int    `json:"page"`
	TotalPages   int    `json:"total_pages"`
	NumberOfRows int    `json:"number_of_rows"`
	Posts        []Post `json:"posts"`
}

// OperationResult is the server's answer to a mutating post call.
type OperationResult struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	PostID        int    `json:"post_id,omitempty"`
	NewStatus     string `json:"new_status,omitempty"`
	CurrentStatus string `json:"current_status,omitempty"`
}

// User is the authenticated account as reported by /me/.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	RoleID   int    `json:"role_id"`
	RoleName string `json:"role_name"`
}

// Timestamp accepts RFC 3339 and the server's zone-less ISO 8601 datetimes (read as UTC).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.UTC().Format(time.RFC3339Nano))), nil
}
