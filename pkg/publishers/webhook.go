package publishers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/postdesk/pkg/httpclient"
)

// Webhook request headers.
const (
	HeaderEventID     = "X-Event-ID"
	HeaderEventAction = "X-Event-Action"
	HeaderSignature   = "X-Postdesk-Signature"
)

const maxErrorBody = 512

type webhookPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	secret  []byte
	client  *resty.Client
	log     Logger
}

func newWebhookPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q: http is required", cfg.ID)
	}
	method := cfg.HTTP.Method
	if method == "" {
		method = webhookDefaultMethod
	}
	timeout := cfg.HTTP.TimeoutSeconds
	if timeout <= 0 {
		timeout = webhookDefaultTimeout
	}
	w := &webhookPublisher{
		id:      cfg.ID,
		method:  method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyHTTPClient(time.Duration(timeout) * time.Second),
		log:     ensureLogger(log),
	}
	if cfg.HTTP.Secret != "" {
		w.secret = []byte(cfg.HTTP.Secret)
	}
	return w, nil
}

func (w *webhookPublisher) ID() string   { return w.id }
func (w *webhookPublisher) Type() string { return TypeHTTP }

// Publish sends the event as JSON. Any non-2xx answer is an error carrying
// the start of the response body.
func (w *webhookPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req := w.client.R().
		SetContext(ctx).
		SetHeaders(w.headers).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderEventID, evt.ID).
		SetHeader(HeaderEventAction, evt.Action).
		SetBody(body)
	if len(w.secret) > 0 {
		req.SetHeader(HeaderSignature, Sign(w.secret, body))
	}

	resp, err := req.Execute(w.method, w.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("webhook answered %d: %s", resp.StatusCode(), errorBody(resp.Body()))
	}
	w.log.DebugObj("webhook delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": w.id,
		"event_id":     evt.ID,
		"action":       evt.Action,
		"status":       resp.StatusCode(),
	})
	return nil
}

// Sign returns the signature header value for body: "sha256=" followed by
// the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether header is the signature of body under secret.
func VerifySignature(secret, body []byte, header string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(strings.TrimSpace(header)))
}

func errorBody(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}
