package publishers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadRegistryNormalizesEntries(t *testing.T) {
	path := writeConfig(t, "publishers.yaml", `
publishers:
  - id: paused
    type: http
    enabled: false
    http:
      url: https://hooks.example.com/paused
  - id: " moderation "
    type: HTTP
    actions: [" Delete ", delete]
    http:
      url: https://hooks.example.com/moderation
      secret: s3cret
      headers:
        " Authorization ": " Bearer x "
        X-Empty: ""
  - id: activity
    type: sns
    sns:
      topic_arn: " arn:aws:sns:eu-west-1:1:posts "
      region: eu-west-1
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	var ids []string
	for _, c := range reg.Enabled() {
		ids = append(ids, c.ID)
	}
	if got := strings.Join(ids, ","); got != "moderation,activity" {
		t.Fatalf("enabled = %q", got)
	}

	mod, ok := reg.ByID("moderation")
	if !ok {
		t.Fatalf("moderation entry missing")
	}
	if mod.Type != TypeHTTP || mod.HTTP.Method != "POST" || mod.HTTP.TimeoutSeconds != 5 {
		t.Fatalf("webhook defaults not applied: %#v", mod.HTTP)
	}
	if len(mod.Actions) != 1 || mod.Actions[0] != "delete" {
		t.Fatalf("actions = %#v", mod.Actions)
	}
	if len(mod.HTTP.Headers) != 1 || mod.HTTP.Headers["Authorization"] != "Bearer x" {
		t.Fatalf("headers = %#v", mod.HTTP.Headers)
	}
	if !mod.Accepts("delete") || mod.Accepts("change-status") {
		t.Fatalf("moderation should only accept delete")
	}

	activity, _ := reg.ByID("activity")
	if activity.SNS.TopicARN != "arn:aws:sns:eu-west-1:1:posts" {
		t.Fatalf("topic arn not trimmed: %q", activity.SNS.TopicARN)
	}
	if !activity.Accepts("change-status") {
		t.Fatalf("entry without actions should accept everything")
	}
	if len(reg.All()) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(reg.All()))
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeConfig(t, "publishers.json",
		`{"publishers":[{"id":"ps","type":"gcp_pubsub","gcp_pubsub":{"project_id":"p","topic":"t","ordered":true}}]}`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	all := reg.All()
	if len(all) != 1 || all[0].GCP.Topic != "t" || !all[0].GCP.Ordered {
		t.Fatalf("unexpected registry %#v", all)
	}
}

func TestLoadRegistryRejects(t *testing.T) {
	cases := map[string]struct {
		name string
		raw  string
		want string
	}{
		"empty file":      {name: "p.yaml", raw: "", want: "no publishers"},
		"unknown key":     {name: "p.yaml", raw: "publishers:\n  - id: a\n    type: http\n    htp: {}\n", want: "htp"},
		"unknown json":    {name: "p.json", raw: `{"publishers":[{"id":"a","type":"http","extra":1}]}`, want: "extra"},
		"duplicate id":    {name: "p.yaml", raw: "publishers:\n  - {id: a, type: http, http: {url: x}}\n  - {id: a, type: http, http: {url: y}}\n", want: "duplicate id"},
		"unknown action":  {name: "p.yaml", raw: "publishers:\n  - {id: a, type: http, actions: [publish], http: {url: x}}\n", want: `unknown action "publish"`},
		"missing sqs uri": {name: "p.yaml", raw: "publishers:\n  - {id: q, type: sqs, sqs: {region: eu-west-1}}\n", want: "sqs.uri"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRegistry(writeConfig(t, tc.name, tc.raw))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestValidateRequiresTypeBlock(t *testing.T) {
	cases := []PublisherConfig{
		{ID: "h", Type: TypeHTTP},
		{ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "eu-west-1"}},
		{ID: "g", Type: TypeGCPPubSub, GCP: &GCPQueueConfig{ProjectID: "p"}},
		{ID: "", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "x"}},
	}
	for _, c := range cases {
		if err := c.normalized().validate(); err == nil {
			t.Errorf("expected validation error for %#v", c)
		}
	}
	if err := (PublisherConfig{ID: "k", Type: "kafka"}).validate(); err != nil {
		t.Fatalf("unknown types are left to the registry, got %v", err)
	}
}
