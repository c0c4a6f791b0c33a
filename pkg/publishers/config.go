package publishers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/samvad-hq/postdesk/internal/domain"
	"gopkg.in/yaml.v3"
)

// Supported publisher types.
const (
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeHTTP      = "http"
	TypeGCPPubSub = "gcp_pubsub"
)

const (
	webhookDefaultMethod  = "POST"
	webhookDefaultTimeout = 5
)

// routableActions are the action names a publisher entry may subscribe to.
var routableActions = []string{domain.ActionDelete, domain.ActionChangeStatus}

type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one sink declared in the publishers file. Actions limits
// the sink to events of those actions; empty means every action.
type PublisherConfig struct {
	ID      string               `json:"id" yaml:"id"`
	Type    string               `json:"type" yaml:"type"`
	Enabled *bool                `json:"enabled" yaml:"enabled"`
	Actions []string             `json:"actions" yaml:"actions"`
	SQS     *SQSPublisherConfig  `json:"sqs" yaml:"sqs"`
	SNS     *SNSPublisherConfig  `json:"sns" yaml:"sns"`
	HTTP    *HTTPPublisherConfig `json:"http" yaml:"http"`
	GCP     *GCPQueueConfig      `json:"gcp_pubsub" yaml:"gcp_pubsub"`
}

// AWSStaticKeys overrides the default AWS credential chain.
type AWSStaticKeys struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

// SQSPublisherConfig points at a queue. FIFO queues (".fifo" suffix) are
// grouped by post so events for one post stay ordered.
type SQSPublisherConfig struct {
	QueueURL    string         `json:"uri" yaml:"uri"`
	Region      string         `json:"region" yaml:"region"`
	Credentials *AWSStaticKeys `json:"credentials" yaml:"credentials"`
}

// SNSPublisherConfig points at a topic. FIFO topics are grouped like FIFO queues.
type SNSPublisherConfig struct {
	TopicARN    string         `json:"topic_arn" yaml:"topic_arn"`
	Region      string         `json:"region" yaml:"region"`
	Credentials *AWSStaticKeys `json:"credentials" yaml:"credentials"`
}

// GCPQueueConfig points at a Pub/Sub topic. Ordered publishes with the post
// id as ordering key.
type GCPQueueConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	Ordered         bool   `json:"ordered" yaml:"ordered"`
}

// HTTPPublisherConfig describes a webhook. When Secret is set every body is
// signed with HMAC-SHA256.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	Secret         string            `json:"secret" yaml:"secret"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// ConfigRegistry holds the validated entries of a publishers file in file order.
type ConfigRegistry struct {
	mu      sync.RWMutex
	entries []PublisherConfig
	byID    map[string]int
}

// LoadRegistry reads a publishers file. Files ending in .json are decoded as
// JSON, everything else as YAML. Unknown keys are rejected.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	file, err := decodeConfigFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file declares no publishers")
	}

	reg := &ConfigRegistry{
		entries: make([]PublisherConfig, 0, len(file.Publishers)),
		byID:    make(map[string]int, len(file.Publishers)),
	}
	for i, entry := range file.Publishers {
		entry = entry.normalized()
		if err := entry.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.byID[entry.ID]; dup {
			return nil, fmt.Errorf("publishers[%d]: duplicate id %q", i, entry.ID)
		}
		reg.byID[entry.ID] = len(reg.entries)
		reg.entries = append(reg.entries, entry)
	}
	return reg, nil
}

func decodeConfigFile(raw []byte, ext string) (configFile, error) {
	var file configFile
	if strings.EqualFold(ext, ".json") {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return configFile{}, err
		}
		return file, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return configFile{}, err
	}
	return file, nil
}

// normalized trims every field and fills defaults.
func (c PublisherConfig) normalized() PublisherConfig {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	if c.Enabled == nil {
		on := true
		c.Enabled = &on
	}
	c.Actions = normalizeActions(c.Actions)

	if c.SQS != nil {
		q := *c.SQS
		q.QueueURL, q.Region = strings.TrimSpace(q.QueueURL), strings.TrimSpace(q.Region)
		c.SQS = &q
	}
	if c.SNS != nil {
		t := *c.SNS
		t.TopicARN, t.Region = strings.TrimSpace(t.TopicARN), strings.TrimSpace(t.Region)
		c.SNS = &t
	}
	if c.GCP != nil {
		g := *c.GCP
		g.ProjectID = strings.TrimSpace(g.ProjectID)
		g.Topic = strings.TrimSpace(g.Topic)
		g.CredentialsFile = strings.TrimSpace(g.CredentialsFile)
		g.Endpoint = strings.TrimSpace(g.Endpoint)
		c.GCP = &g
	}
	if c.HTTP != nil {
		h := *c.HTTP
		h.URL = strings.TrimSpace(h.URL)
		if h.Method = strings.ToUpper(strings.TrimSpace(h.Method)); h.Method == "" {
			h.Method = webhookDefaultMethod
		}
		if h.TimeoutSeconds <= 0 {
			h.TimeoutSeconds = webhookDefaultTimeout
		}
		h.Headers = trimHeaders(h.Headers)
		c.HTTP = &h
	}
	return c
}

func normalizeActions(actions []string) []string {
	var out []string
	for _, a := range actions {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" && !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}

func trimHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validate checks the block required by the entry's type. Unknown types pass
// here and fail when a registry has no builder for them.
func (c PublisherConfig) validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if c.Type == "" {
		return fmt.Errorf("publisher %q: type is required", c.ID)
	}
	for _, a := range c.Actions {
		if !slices.Contains(routableActions, a) {
			return fmt.Errorf("publisher %q: unknown action %q (want one of %s)", c.ID, a, strings.Join(routableActions, ", "))
		}
	}

	var missing string
	switch c.Type {
	case TypeSQS:
		switch {
		case c.SQS == nil:
			missing = "sqs"
		case c.SQS.QueueURL == "":
			missing = "sqs.uri"
		case c.SQS.Region == "":
			missing = "sqs.region"
		}
	case TypeSNS:
		switch {
		case c.SNS == nil:
			missing = "sns"
		case c.SNS.TopicARN == "":
			missing = "sns.topic_arn"
		case c.SNS.Region == "":
			missing = "sns.region"
		}
	case TypeGCPPubSub:
		switch {
		case c.GCP == nil:
			missing = "gcp_pubsub"
		case c.GCP.ProjectID == "":
			missing = "gcp_pubsub.project_id"
		case c.GCP.Topic == "":
			missing = "gcp_pubsub.topic"
		}
	case TypeHTTP:
		switch {
		case c.HTTP == nil:
			missing = "http"
		case c.HTTP.URL == "":
			missing = "http.url"
		}
	}
	if missing != "" {
		return fmt.Errorf("publisher %q: %s is required", c.ID, missing)
	}
	return nil
}

// EnabledValue reports whether the entry is on. Entries default to enabled.
func (c PublisherConfig) EnabledValue() bool {
	return c.Enabled == nil || *c.Enabled
}

// Accepts reports whether events of action are routed to this entry.
func (c PublisherConfig) Accepts(action string) bool {
	return len(c.Actions) == 0 || slices.Contains(c.Actions, action)
}

// ByID looks up an entry.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.entries[i], true
}

// All returns every entry in file order.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries)
}

// Enabled returns the entries that are switched on.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	var out []PublisherConfig
	for _, c := range r.All() {
		if c.EnabledValue() {
			out = append(out, c)
		}
	}
	return out
}
