package blogapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samvad-hq/postdesk/pkg/httpclient"
)

// recordingClient captures requests and replies with a canned JSON body.
type recordingClient struct {
	requests []httpclient.Request
	reply    string
	err      error
}

func (r *recordingClient) Do(ctx context.Context, req httpclient.Request) (any, error) {
	var out any
	err := r.DoInto(ctx, req, &out)
	return out, err
}

func (r *recordingClient) DoInto(_ context.Context, req httpclient.Request, out any) error {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return r.err
	}
	if out == nil || r.reply == "" {
		return nil
	}
	return json.Unmarshal([]byte(r.reply), out)
}

func TestDeletePostIssuesSingleDelete(t *testing.T) {
	rc := &recordingClient{reply: `{"message":"Post with ID 5 has been successfully deleted.","status":"success"}`}
	res, err := New(rc).DeletePost(context.Background(), "5")
	if err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if len(rc.requests) != 1 {
		t.Fatalf("expected exactly one request, got %d", len(rc.requests))
	}
	req := rc.requests[0]
	if req.Method != http.MethodDelete || req.URL != "/api/posts/5" || req.Body != nil {
		t.Fatalf("unexpected request %#v", req)
	}
	if res.Status != "success" {
		t.Fatalf("unexpected result %#v", res)
	}
}

func TestChangePostStatusSendsQuery(t *testing.T) {
	rc := &recordingClient{reply: `{"status":"success","post_id":42,"new_status":"archived"}`}
	res, err := New(rc).ChangePostStatus(context.Background(), "42", "archived")
	if err != nil {
		t.Fatalf("ChangePostStatus: %v", err)
	}
	req := rc.requests[0]
	if req.Method != http.MethodPatch || req.URL != "/api/posts/42" || req.Query["new_status"] != "archived" {
		t.Fatalf("unexpected request %#v", req)
	}
	if res.PostID != 42 || res.NewStatus != "archived" {
		t.Fatalf("unexpected result %#v", res)
	}
}

func TestChangePostStatusValidatesBeforeRequest(t *testing.T) {
	rc := &recordingClient{}
	c := New(rc)
	if _, err := c.ChangePostStatus(context.Background(), "", "draft"); !errors.Is(err, ErrMissingPostID) {
		t.Fatalf("expected ErrMissingPostID, got %v", err)
	}
	if _, err := c.ChangePostStatus(context.Background(), "1", " "); !errors.Is(err, ErrMissingStatus) {
		t.Fatalf("expected ErrMissingStatus, got %v", err)
	}
	if len(rc.requests) != 0 {
		t.Fatalf("expected no requests, got %d", len(rc.requests))
	}
}

func TestPostPathEscapesID(t *testing.T) {
	if got := PostPath("a/b"); got != "/api/posts/a%2Fb" {
		t.Fatalf("PostPath = %q", got)
	}
}

func TestGetPostMapsErrorBodyToNotFound(t *testing.T) {
	rc := &recordingClient{reply: `{"message":"Post with ID 9 not found.","status":"error"}`}
	_, err := New(rc).GetPost(context.Background(), "9")
	if !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestGetPostDecodesPost(t *testing.T) {
	rc := &recordingClient{reply: `{"id":9,"author":2,"title":"Hi","content":"c","description":"d",
		"created_at":"2025-02-01T10:00:00","status":"draft","tags":[],"author_id":2,"author_name":"bo"}`}
	p, err := New(rc).GetPost(context.Background(), "9")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if p.ID != 9 || p.Status != "draft" || p.Title != "Hi" {
		t.Fatalf("unexpected post %#v", p)
	}
}

func TestListOptionsClampsPaging(t *testing.T) {
	q := ListOptions{Page: 0, PageSize: 500, Tag: " go ", AuthorID: 3}.Query()
	if q["page"] != "1" || q["page_size"] != "100" || q["tag"] != "go" || q["author_id"] != "3" {
		t.Fatalf("unexpected query %#v", q)
	}
	q = ListOptions{PageSize: 1}.Query()
	if q["page_size"] != "3" {
		t.Fatalf("expected minimum page size, got %#v", q)
	}
	if _, ok := q["tag"]; ok {
		t.Fatalf("empty tag should be omitted")
	}
}

func TestListPostsEmptyIsNotError(t *testing.T) {
	rc := &recordingClient{reply: `{"message":"Posts not found","status":"error"}`}
	page, err := New(rc).ListPosts(context.Background(), ListOptions{Page: 2})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(page.Posts) != 0 || page.Page != 2 {
		t.Fatalf("unexpected page %#v", page)
	}
	for _, requested := range []int{0, -3} {
		page, err := New(rc).ListPosts(context.Background(), ListOptions{Page: requested})
		if err != nil {
			t.Fatalf("ListPosts(page %d): %v", requested, err)
		}
		if page.Page != 1 {
			t.Fatalf("page %d should clamp to 1, got %d", requested, page.Page)
		}
	}
}

func TestCreatePostSendsTags(t *testing.T) {
	rc := &recordingClient{reply: `{"status":"success","message":"Post with ID 1 has been successfully added"}`}
	if _, err := New(rc).CreatePost(context.Background(), NewPost{Title: " T ", Content: "c"}); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	body, ok := rc.requests[0].Body.(NewPost)
	if !ok {
		t.Fatalf("unexpected body type %T", rc.requests[0].Body)
	}
	if body.Title != "T" || body.Tags == nil {
		t.Fatalf("unexpected body %#v", body)
	}
}

func TestChangePostStatusOverHTTP(t *testing.T) {
	var gotURI, gotMethod string
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotURI = r.URL.RequestURI()
		gotMethod = r.Method
		_, _ = io.WriteString(w, `{"status":"success","post_id":42,"new_status":"archived"}`)
	}))
	defer srv.Close()

	hc, err := httpclient.New(httpclient.Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("httpclient.New: %v", err)
	}
	if _, err := New(hc).ChangePostStatus(context.Background(), "42", "archived"); err != nil {
		t.Fatalf("ChangePostStatus: %v", err)
	}
	if calls != 1 || gotMethod != http.MethodPatch || gotURI != "/api/posts/42?new_status=archived" {
		t.Fatalf("unexpected call count=%d method=%s uri=%s", calls, gotMethod, gotURI)
	}
}

func TestLoginKeepsSessionForMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "4", Path: "/"})
			_, _ = io.WriteString(w, `{"ok":true,"message":"Successful authorization"}`)
		case "/me/":
			if c, err := r.Cookie(SessionCookie); err != nil || c.Value != "4" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"detail":"User's not found"}`)
				return
			}
			_, _ = io.WriteString(w, `{"id":4,"name":"ann","role_id":1,"role_name":"user"}`)
		}
	}))
	defer srv.Close()

	hc, err := httpclient.New(httpclient.Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("httpclient.New: %v", err)
	}
	api := New(hc)

	if _, err := api.Me(context.Background()); err == nil || err.Error() != "User's not found" {
		t.Fatalf("expected detail error before login, got %v", err)
	}
	if msg, err := api.Login(context.Background(), "ann", "secret"); err != nil || msg != "Successful authorization" {
		t.Fatalf("Login: %q %v", msg, err)
	}
	u, err := api.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if u.ID != 4 || u.Name != "ann" {
		t.Fatalf("unexpected user %#v", u)
	}
}
