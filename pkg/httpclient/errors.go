package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// HTTPError is returned when the server answers with a non-2xx status.
// Error() is the human readable message: the body's "detail" field when present,
// otherwise "HTTP Error: <status>".
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string { return e.Message }

// TransportError is returned when the request never produced an HTTP response
// (connection refused, DNS, TLS, timeout, cancelled context).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is returned when a successful response body is not valid JSON.
type DecodeError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s %s response (status %d): %v", e.Method, e.URL, e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// errorMessage extracts the message for a failed call from its body.
func errorMessage(status int, body []byte) (string, error) {
	fallback := fmt.Sprintf("HTTP Error: %d", status)

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback, err
	}

	detail := bytes.TrimSpace(payload.Detail)
	switch string(detail) {
	case "", "null", "false", "0":
		return fallback, nil
	}

	var text string
	if err := json.Unmarshal(detail, &text); err == nil {
		if text == "" {
			return fallback, nil
		}
		return text, nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, detail); err != nil {
		return fallback, nil
	}
	return compact.String(), nil
}
