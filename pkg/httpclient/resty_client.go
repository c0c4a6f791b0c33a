package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
)

const (
	headerAccept      = "Accept"
	headerContentType = "Content-Type"
	mimeJSON          = "application/json"
)

var jsonNull = []byte("null")

// Options configures a RestyClient.
type Options struct {
	// BaseURL is prepended to relative request URLs.
	BaseURL string
	Timeout time.Duration
	Logger  Logger
	// RestyLogger receives resty's own diagnostics (zap's SugaredLogger fits).
	RestyLogger resty.Logger
	// Jar holds session cookies. A public-suffix aware jar is created when nil.
	Jar http.CookieJar
}

// RestyClient adapts resty.Client to the Client and JSONClient interfaces.
type RestyClient struct {
	client *resty.Client
	jar    http.CookieJar
	log    Logger
}

// New creates a RestyClient from options.
func New(opts Options) (*RestyClient, error) {
	jar := opts.Jar
	if jar == nil {
		var err error
		jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
	}

	c := newRestyBaseClient(opts.Timeout)
	c.SetCookieJar(jar)
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		c.SetBaseURL(strings.TrimRight(base, "/"))
	}
	if opts.RestyLogger != nil {
		c.SetLogger(opts.RestyLogger)
	}

	log := opts.Logger
	if log == nil {
		log = noopLogger{}
	}
	return &RestyClient{client: c, jar: jar, log: log}, nil
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
// Non-2xx responses are returned as-is; only transport failures produce an error.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, URL: url, Err: err}
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// Do performs the call and returns the parsed JSON value of a successful response.
// An empty success body yields nil.
func (r *RestyClient) Do(ctx context.Context, req Request) (any, error) {
	var out any
	if err := r.DoInto(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DoInto performs the call and decodes a successful response into out.
// out may be nil when the caller does not need the body.
func (r *RestyClient) DoInto(ctx context.Context, req Request, out any) error {
	method, status, body, err := r.execute(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		decodeErr := &DecodeError{Method: method, URL: req.URL, StatusCode: status, Err: err}
		r.log.WarnObj("response decode failed", "request_error", map[string]any{
			"method": method,
			"url":    req.URL,
			"status": status,
			"error":  err.Error(),
		})
		return decodeErr
	}
	return nil
}

// execute sends the request and translates transport and HTTP failures.
func (r *RestyClient) execute(ctx context.Context, req Request) (string, int, []byte, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	if strings.TrimSpace(req.URL) == "" {
		return method, 0, nil, errors.New("request url is empty")
	}

	rr := r.client.R().
		SetContext(ctx).
		SetHeader(headerAccept, mimeJSON).
		SetHeader(headerContentType, mimeJSON)

	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return method, 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		// A nil pointer, map or slice inside req.Body marshals to null.
		if !bytes.Equal(payload, jsonNull) {
			rr.SetBody(payload)
		}
	}
	if len(req.Query) > 0 {
		rr.SetQueryParams(req.Query)
	}

	r.log.DebugObj("sending request", "request", map[string]any{
		"method": method,
		"url":    req.URL,
		"query":  req.Query,
	})

	resp, err := rr.Execute(method, req.URL)
	if err != nil {
		r.log.WarnObj("network request failed", "request_error", map[string]any{
			"method": method,
			"url":    req.URL,
			"error":  err.Error(),
		})
		return method, 0, nil, &TransportError{Method: method, URL: req.URL, Err: err}
	}

	status := resp.StatusCode()
	body := resp.Body()
	if status < 200 || status >= 300 {
		msg, parseErr := errorMessage(status, body)
		fields := map[string]any{
			"method":  method,
			"url":     req.URL,
			"status":  status,
			"message": msg,
		}
		if parseErr != nil {
			fields["body_parse_error"] = parseErr.Error()
		}
		r.log.WarnObj("request failed", "request_error", fields)
		return method, status, body, &HTTPError{
			Method:     method,
			URL:        req.URL,
			StatusCode: status,
			Message:    msg,
			Body:       body,
		}
	}

	return method, status, body, nil
}

// Cookies returns the session cookies the jar would send to u.
func (r *RestyClient) Cookies(u *url.URL) []*http.Cookie {
	return r.jar.Cookies(u)
}

// SetCookies seeds the jar, typically from a persisted session.
func (r *RestyClient) SetCookies(u *url.URL, cookies []*http.Cookie) {
	r.jar.SetCookies(u, cookies)
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte    { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }
