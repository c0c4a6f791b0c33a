// Package blogapi wraps the blog's REST endpoints on top of the shared JSON request client.
package blogapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/samvad-hq/postdesk/internal/domain"
	"github.com/samvad-hq/postdesk/pkg/httpclient"
)

const (
	postsPath    = "/api/posts"
	registerPath = "/register"
	loginPath    = "/login"
	logoutPath   = "/logout"
	mePath       = "/me/"

	// SessionCookie is the cookie the server uses to identify the logged in user.
	SessionCookie = "user_access_token"

	minPageSize = 3
	maxPageSize = 100
)

var (
	// ErrPostNotFound is returned when the server reports a missing or inaccessible post.
	ErrPostNotFound = errors.New("post not found")
	// ErrMissingPostID is returned before any request when the post id is blank.
	ErrMissingPostID = errors.New("post id is required")
	// ErrMissingStatus is returned before any request when the new status is blank.
	ErrMissingStatus = errors.New("new status is required")
)

// Client calls the blog API. Paths are relative; the JSON client resolves them
// against its base URL.
type Client struct {
	http httpclient.JSONClient
}

// New creates a blog API client.
func New(client httpclient.JSONClient) *Client {
	return &Client{http: client}
}

// PostPath returns the API path of a single post.
func PostPath(id string) string {
	return postsPath + "/" + url.PathEscape(strings.TrimSpace(id))
}

// DeletePost issues DELETE /api/posts/{id}.
func (c *Client) DeletePost(ctx context.Context, id string) (domain.OperationResult, error) {
	if strings.TrimSpace(id) == "" {
		return domain.OperationResult{}, ErrMissingPostID
	}

	var res domain.OperationResult
	err := c.http.DoInto(ctx, httpclient.Request{
		URL:    PostPath(id),
		Method: http.MethodDelete,
	}, &res)
	if err != nil {
		return domain.OperationResult{}, err
	}
	return res, nil
}

// ChangePostStatus issues PATCH /api/posts/{id}?new_status=<status>.
func (c *Client) ChangePostStatus(ctx context.Context, id, status string) (domain.OperationResult, error) {
	if strings.TrimSpace(id) == "" {
		return domain.OperationResult{}, ErrMissingPostID
	}
	if strings.TrimSpace(status) == "" {
		return domain.OperationResult{}, ErrMissingStatus
	}

	var res domain.OperationResult
	err := c.http.DoInto(ctx, httpclient.Request{
		URL:    PostPath(id),
		Method: http.MethodPatch,
		Query:  map[string]string{"new_status": status},
	}, &res)
	if err != nil {
		return domain.OperationResult{}, err
	}
	return res, nil
}

// GetPost fetches the full post. Drafts are only visible to their author.
func (c *Client) GetPost(ctx context.Context, id string) (domain.Post, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Post{}, ErrMissingPostID
	}

	// The server answers 200 with {"message","status":"error"} for missing posts,
	// so decode into a union of both shapes.
	var body struct {
		domain.Post
		Message string `json:"message"`
		State   string `json:"status"`
	}
	if err := c.http.DoInto(ctx, httpclient.Request{URL: PostPath(id), Method: http.MethodGet}, &body); err != nil {
		return domain.Post{}, err
	}
	if body.State == "error" {
		return domain.Post{}, fmt.Errorf("%w: %s", ErrPostNotFound, body.Message)
	}
	post := body.Post
	post.Status = body.State
	return post, nil
}

// ListOptions filters and pages the published posts listing.
type ListOptions struct {
	AuthorID int
	Tag      string
	Page     int
	PageSize int
}

// Query renders the options as query parameters, clamping paging to the server's bounds.
func (o ListOptions) Query() map[string]string {
	page := o.page()
	size := o.PageSize
	if size < minPageSize {
		size = minPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	q := map[string]string{
		"page":      strconv.Itoa(page),
		"page_size": strconv.Itoa(size),
	}
	if o.AuthorID > 0 {
		q["author_id"] = strconv.Itoa(o.AuthorID)
	}
	if tag := strings.TrimSpace(o.Tag); tag != "" {
		q["tag"] = tag
	}
	return q
}

func (o ListOptions) page() int {
	if o.Page < 1 {
		return 1
	}
	return o.Page
}

// ListPosts fetches one page of published posts. An empty result is not an error.
func (c *Client) ListPosts(ctx context.Context, opts ListOptions) (domain.PostPage, error) {
	var body struct {
		domain.PostPage
		Message string `json:"message"`
		State   string `json:"status"`
	}
	err := c.http.DoInto(ctx, httpclient.Request{
		URL:    postsPath,
		Method: http.MethodGet,
		Query:  opts.Query(),
	}, &body)
	if err != nil {
		return domain.PostPage{}, err
	}
	if body.State == "error" {
		return domain.PostPage{Page: opts.page()}, nil
	}
	return body.PostPage, nil
}

// NewPost is the payload for creating a post.
type NewPost struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// CreatePost issues POST /api/posts and returns the server's confirmation.
func (c *Client) CreatePost(ctx context.Context, p NewPost) (domain.OperationResult, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return domain.OperationResult{}, errors.New("post title is required")
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	var res domain.OperationResult
	err := c.http.DoInto(ctx, httpclient.Request{
		URL:    postsPath,
		Method: http.MethodPost,
		Body:   p,
	}, &res)
	if err != nil {
		return domain.OperationResult{}, err
	}
	return res, nil
}

type credentials struct {
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password,omitempty"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, password, confirm string) (string, error) {
	var res struct {
		Message string `json:"message"`
	}
	err := c.http.DoInto(ctx, httpclient.Request{
		URL:    registerPath,
		Method: http.MethodPost,
		Body:   credentials{Name: name, Password: password, ConfirmPassword: confirm},
	}, &res)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

// Login authenticates; the server answers with the session cookie which the
// JSON client's jar keeps for subsequent calls.
func (c *Client) Login(ctx context.Context, name, password string) (string, error) {
	var res struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}
	err := c.http.DoInto(ctx, httpclient.Request{
		URL:    loginPath,
		Method: http.MethodPost,
		Body:   credentials{Name: name, Password: password},
	}, &res)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

// Logout asks the server to drop the session cookie.
func (c *Client) Logout(ctx context.Context) (string, error) {
	var res struct {
		Message string `json:"message"`
	}
	if err := c.http.DoInto(ctx, httpclient.Request{URL: logoutPath, Method: http.MethodPost}, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// Me returns the logged in user.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var u domain.User
	if err := c.http.DoInto(ctx, httpclient.Request{URL: mePath, Method: http.MethodGet}, &u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
