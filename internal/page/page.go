// Package page reads the post page's data attributes into explicit values so
// actions never depend on a live document.
package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/postdesk/internal/domain"
	"github.com/samvad-hq/postdesk/internal/logger"
	"github.com/samvad-hq/postdesk/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB

	articleSelector = ".article-container"
	postIDSelector  = "[data-post-id]"
	actionSelector  = "[data-action]"
)

// ErrNoArticle is returned when the page has no element carrying the post context.
var ErrNoArticle = errors.New("article container not found")

// Page is everything the actions need from a rendered post page.
type Page struct {
	Post     domain.PostContext `json:"post"`
	Triggers []domain.Trigger   `json:"triggers"`
}

// Trigger returns the first trigger for the given action.
func (p Page) Trigger(action string) (domain.Trigger, bool) {
	for _, t := range p.Triggers {
		if t.Action == action {
			return t, true
		}
	}
	return domain.Trigger{}, false
}

// Context builds a PostContext from explicit values.
func Context(id, status, author string) domain.PostContext {
	return domain.PostContext{
		ID:     strings.TrimSpace(id),
		Status: strings.TrimSpace(status),
		Author: strings.TrimSpace(author),
	}
}

// Parse extracts the post context and action triggers from page HTML.
func Parse(body []byte) (Page, error) {
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}

	article := doc.Find(articleSelector).First()
	if article.Length() == 0 {
		article = doc.Find(postIDSelector).First()
	}
	if article.Length() == 0 {
		return Page{}, ErrNoArticle
	}

	pg := Page{
		Post: Context(
			attr(article, "data-post-id"),
			attr(article, "data-post-status"),
			attr(article, "data-post-author"),
		),
	}

	seen := make(map[domain.Trigger]struct{})
	doc.Find(actionSelector).Each(func(_ int, s *goquery.Selection) {
		t := domain.Trigger{
			Action:    attr(s, "data-action"),
			NewStatus: attr(s, "data-new-status"),
		}
		if t.Action == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		pg.Triggers = append(pg.Triggers, t)
	})

	return pg, nil
}

func attr(s *goquery.Selection, name string) string {
	val, _ := s.Attr(name)
	return strings.TrimSpace(val)
}

// Reader fetches rendered post pages over the shared HTTP client.
type Reader struct {
	client  httpclient.Client
	baseURL string
	log     logger.Logger
}

// NewReader builds a reader for pages served under baseURL.
func NewReader(client httpclient.Client, baseURL string, log logger.Logger) *Reader {
	return &Reader{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     logger.Ensure(log),
	}
}

// PagePath returns the site path of a post page.
func PagePath(id string) string {
	return "/posts/" + url.PathEscape(strings.TrimSpace(id)) + "/"
}

// Read fetches /posts/{id}/ and parses it.
func (r *Reader) Read(ctx context.Context, postID string) (Page, error) {
	if strings.TrimSpace(postID) == "" {
		return Page{}, errors.New("post id is required")
	}

	target := r.baseURL + PagePath(postID)
	resp, err := r.client.Get(ctx, target, map[string]string{"Accept": "text/html"})
	if err != nil {
		return Page{}, fmt.Errorf("fetch post page: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return Page{}, fmt.Errorf("fetch post page: status %d body: %s", resp.StatusCode(), snippet)
	}

	pg, err := Parse(resp.Body())
	if err != nil {
		r.log.WarnObj("post page parse failed", "page_error", map[string]any{
			"url":   target,
			"error": err.Error(),
		})
		return Page{}, err
	}

	r.log.DebugObj("post page loaded", "post_data", pg)
	return pg, nil
}
