package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/postdesk/internal/domain"
	"github.com/samvad-hq/postdesk/internal/page"
	"github.com/samvad-hq/postdesk/pkg/blogapi"
)

// ErrNoCurrentPage is returned by Reload before any page was opened.
var ErrNoCurrentPage = errors.New("no page is open")

// Lister fetches a page of the posts listing.
type Lister interface {
	ListPosts(ctx context.Context, opts blogapi.ListOptions) (domain.PostPage, error)
}

// PageReader fetches and parses a post page.
type PageReader interface {
	Read(ctx context.Context, postID string) (page.Page, error)
}

// Navigator moves between the listing and post views on a terminal.
type Navigator struct {
	term        *Terminal
	lister      Lister
	reader      PageReader
	listingPath string
	current     string
}

// NewNavigator creates a navigator that renders through term.
func NewNavigator(term *Terminal, lister Lister, reader PageReader, listingPath string) *Navigator {
	if strings.TrimSpace(listingPath) == "" {
		listingPath = "/posts"
	}
	return &Navigator{
		term:        term,
		lister:      lister,
		reader:      reader,
		listingPath: strings.TrimRight(listingPath, "/"),
	}
}

// Open reads, renders and remembers a post page.
func (n *Navigator) Open(ctx context.Context, postID string) (page.Page, error) {
	pg, err := n.reader.Read(ctx, postID)
	if err != nil {
		return page.Page{}, err
	}
	n.current = pg.Post.ID
	if n.current == "" {
		n.current = strings.TrimSpace(postID)
	}
	n.term.RenderPage(pg)
	return pg, nil
}

// Focus marks postID as the current page without fetching it.
func (n *Navigator) Focus(postID string) {
	n.current = strings.TrimSpace(postID)
}

// Navigate renders the view at path. The listing path shows the first page of
// posts and /posts/{id} opens that post.
func (n *Navigator) Navigate(ctx context.Context, path string) error {
	clean := strings.TrimRight(strings.TrimSpace(path), "/")
	if clean == n.listingPath {
		n.current = ""
		pg, err := n.lister.ListPosts(ctx, blogapi.ListOptions{Page: 1})
		if err != nil {
			return fmt.Errorf("load listing: %w", err)
		}
		n.term.RenderListing(pg)
		return nil
	}

	if id, ok := strings.CutPrefix(clean, n.listingPath+"/"); ok && id != "" && !strings.Contains(id, "/") {
		_, err := n.Open(ctx, id)
		return err
	}
	return fmt.Errorf("cannot navigate to %q", path)
}

// Reload re-reads the page that was last opened.
func (n *Navigator) Reload(ctx context.Context) error {
	if n.current == "" {
		return ErrNoCurrentPage
	}
	_, err := n.Open(ctx, n.current)
	return err
}
