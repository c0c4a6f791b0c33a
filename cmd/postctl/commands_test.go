package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/samvad-hq/postdesk/pkg/blogapi"
	"github.com/samvad-hq/postdesk/pkg/httpclient"
)

func TestParseKnownCommand(t *testing.T) {
	var stderr bytes.Buffer
	inv, err := parse([]string{"status", "--yes", "42", "draft"}, &stderr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if inv.name != "status" || !inv.assumeYes {
		t.Fatalf("unexpected invocation %#v", inv)
	}
	if len(inv.args) != 2 || inv.args[0] != "42" || inv.args[1] != "draft" {
		t.Fatalf("unexpected args %v", inv.args)
	}
}

func TestParseRejectsWrongArgCount(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parse([]string{"delete"}, &stderr)
	if err == nil || !strings.Contains(err.Error(), "expected 1 argument") {
		t.Fatalf("expected argument count error, got %v", err)
	}
	if got := exitCode(err); got != 2 {
		t.Fatalf("exitCode = %d, want 2", got)
	}
	if isQuiet(err) {
		t.Fatalf("argument count error should be printed")
	}
	if !strings.Contains(stderr.String(), "usage: postctl delete <post-id>") {
		t.Fatalf("expected command usage, got %q", stderr.String())
	}
}

func TestParseRejectsUnknownFlag(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parse([]string{"list", "--bogus"}, &stderr)
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("expected unknown flag error, got %v", err)
	}
	if got := exitCode(err); got != 2 {
		t.Fatalf("exitCode = %d, want 2", got)
	}
	if isQuiet(err) {
		t.Fatalf("unknown flag error should be printed")
	}
}

func TestParseUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parse([]string{"archive", "1"}, &stderr)
	if err == nil || !strings.Contains(err.Error(), `unknown command "archive"`) {
		t.Fatalf("expected error for unknown command, got %v", err)
	}
	if got := exitCode(err); got != 2 {
		t.Fatalf("exitCode = %d, want 2", got)
	}
	if isQuiet(err) {
		t.Fatalf("unknown command error should be printed")
	}
	for _, name := range []string{"delete", "status", "trigger", "login", "list"} {
		if !strings.Contains(stderr.String(), name) {
			t.Fatalf("usage should list %q: %q", name, stderr.String())
		}
	}
}

func TestParseHelp(t *testing.T) {
	var stderr bytes.Buffer
	if _, err := parse(nil, &stderr); !errors.Is(err, errUsage) {
		t.Fatalf("expected errUsage, got %v", err)
	}
	if _, err := parse([]string{"list", "--help"}, &stderr); !errors.Is(err, errUsage) {
		t.Fatalf("expected errUsage for --help, got %v", err)
	}
}

func TestExitCodes(t *testing.T) {
	unauthorized := &httpclient.HTTPError{StatusCode: 401, Message: "Not authenticated"}
	cases := []struct {
		err   error
		code  int
		quiet bool
	}{
		{nil, 0, false},
		{errUsage, 2, true},
		{fmt.Errorf("%w: unknown command %q", errUsage, "archive"), 2, false},
		{unauthorized, 3, false},
		{quiet(unauthorized), 3, true},
		{quiet(&httpclient.TransportError{Method: "DELETE", URL: "/api/posts/1", Err: errors.New("refused")}), 1, true},
		{quiet(fmt.Errorf("delete: %w", &httpclient.DecodeError{Err: errors.New("bad json")})), 1, true},
		{quiet(blogapi.ErrMissingPostID), 1, false},
		{quiet(errors.New("read confirmation: EOF")), 1, false},
		{errors.New("boom"), 1, false},
	}
	for _, c := range cases {
		if got := exitCode(c.err); got != c.code {
			t.Fatalf("exitCode(%v) = %d, want %d", c.err, got, c.code)
		}
		if c.err != nil && isQuiet(c.err) != c.quiet {
			t.Fatalf("isQuiet(%v) = %v, want %v", c.err, !c.quiet, c.quiet)
		}
	}
}
