// Package ui renders post views and user prompts on a terminal.
package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/samvad-hq/postdesk/internal/domain"
	"github.com/samvad-hq/postdesk/internal/page"
)

const listingTitleWidth = 60

// Terminal shows alerts, asks confirmations and renders posts.
type Terminal struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
	st        styles
}

// NewTerminal creates a terminal UI over in/out. With assumeYes every
// confirmation is accepted without reading input.
func NewTerminal(in io.Reader, out io.Writer, assumeYes bool) *Terminal {
	if in == nil {
		in = strings.NewReader("")
	}
	return &Terminal{
		in:        bufio.NewReader(in),
		out:       out,
		assumeYes: assumeYes,
		st:        newStyles(lipgloss.NewRenderer(out)),
	}
}

// Alert prints a message on its own line.
func (t *Terminal) Alert(msg string) {
	fmt.Fprintln(t.out, t.st.alert.Render(msg))
}

// Error prints an error message.
func (t *Terminal) Error(msg string) {
	fmt.Fprintln(t.out, t.st.errorMsg.Render(msg))
}

// Confirm asks a yes/no question. Anything but y or yes is a no, including EOF.
func (t *Terminal) Confirm(msg string) (bool, error) {
	prompt := t.st.prompt.Render(msg + " [y/N]: ")
	if t.assumeYes {
		fmt.Fprintln(t.out, prompt+"y")
		return true, nil
	}

	fmt.Fprint(t.out, prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		fmt.Fprintln(t.out)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Prompt reads one line of input after showing label.
func (t *Terminal) Prompt(label string) (string, error) {
	fmt.Fprint(t.out, t.st.prompt.Render(label+": "))
	line, err := t.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// RenderPage prints the post context a page shows and its available actions.
func (t *Terminal) RenderPage(pg page.Page) {
	post := pg.Post
	fmt.Fprintf(t.out, "%s %s\n",
		t.st.title.Render("Post #"+post.ID),
		t.st.statusStyle(post.Status).Render("["+post.Status+"]"),
	)
	if post.Author != "" {
		fmt.Fprintln(t.out, t.st.meta.Render("author "+post.Author))
	}
	if len(pg.Triggers) == 0 {
		fmt.Fprintln(t.out, t.st.dim.Render("no actions available"))
		return
	}
	for _, tr := range pg.Triggers {
		label := tr.Action
		if tr.NewStatus != "" {
			label += " -> " + tr.NewStatus
		}
		fmt.Fprintln(t.out, "  "+t.st.action.Render(label))
	}
}

// RenderPost prints a full post.
func (t *Terminal) RenderPost(p domain.Post) {
	fmt.Fprintf(t.out, "%s %s\n",
		t.st.title.Render(p.Title),
		t.st.statusStyle(p.Status).Render("["+p.Status+"]"),
	)

	meta := []string{"#" + strconv.Itoa(p.ID)}
	if p.AuthorName != nil && *p.AuthorName != "" {
		meta = append(meta, "by "+*p.AuthorName)
	} else if p.Author != 0 {
		meta = append(meta, "by user "+strconv.Itoa(p.Author))
	}
	if !p.CreatedAt.IsZero() {
		meta = append(meta, p.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(t.out, t.st.meta.Render(strings.Join(meta, " · ")))

	if tags := tagNames(p.Tags); len(tags) > 0 {
		fmt.Fprintln(t.out, t.st.tag.Render(strings.Join(tags, " ")))
	}
	if p.Description != "" {
		fmt.Fprintln(t.out, t.st.dim.Render(p.Description))
	}
	if p.Content != "" {
		fmt.Fprintln(t.out)
		fmt.Fprintln(t.out, t.st.content.Render(p.Content))
	}
}

// RenderListing prints one page of posts.
func (t *Terminal) RenderListing(pg domain.PostPage) {
	if len(pg.Posts) == 0 {
		fmt.Fprintln(t.out, t.st.dim.Render("no posts"))
		return
	}
	for _, p := range pg.Posts {
		title := p.Title
		if ansi.StringWidth(title) > listingTitleWidth {
			title = ansi.Truncate(title, listingTitleWidth, "…")
		}
		line := fmt.Sprintf("%s %s", t.st.meta.Render(fmt.Sprintf("%5d", p.ID)), t.st.title.Render(title))
		if p.AuthorName != nil && *p.AuthorName != "" {
			line += " " + t.st.meta.Render("by "+*p.AuthorName)
		}
		if tags := tagNames(p.Tags); len(tags) > 0 {
			line += " " + t.st.tag.Render(strings.Join(tags, " "))
		}
		fmt.Fprintln(t.out, line)
	}
	fmt.Fprintln(t.out, t.st.dim.Render(fmt.Sprintf("page %d of %d (%d posts)", pg.Page, pg.TotalPages, pg.NumberOfRows)))
}

// RenderUser prints the logged in account.
func (t *Terminal) RenderUser(u domain.User) {
	fmt.Fprintf(t.out, "%s %s\n",
		t.st.title.Render(u.Name),
		t.st.meta.Render(fmt.Sprintf("#%d %s", u.ID, u.RoleName)),
	)
}

func tagNames(tags []domain.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag.Name != "" {
			out = append(out, "#"+tag.Name)
		}
	}
	return out
}
