package httpclient

import (
	"context"
	"net/http"
	"net/url"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// Request describes a single JSON API call. A nil Body sends no payload.
type Request struct {
	URL    string
	Method string
	Body   any
	Query  map[string]string
}

// JSONClient performs JSON API calls with session credentials and error translation.
type JSONClient interface {
	// Do returns the parsed JSON value of a successful response.
	Do(ctx context.Context, req Request) (any, error)
	// DoInto decodes a successful response into out.
	DoInto(ctx context.Context, req Request, out any) error
}

// CookieStore exposes the client's session cookies for persistence.
type CookieStore interface {
	Cookies(u *url.URL) []*http.Cookie
	SetCookies(u *url.URL, cookies []*http.Cookie)
}

// Logger defines the logging surface the client relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}
