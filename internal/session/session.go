// Package session persists API session cookies between command invocations.
package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store keeps the cookies of one logged in session per site (scheme://host).
// Sessions expire SessionTTL after they were last saved.
type Store interface {
	Close() error
	Load(site string) ([]*http.Cookie, error)
	Save(site string, cookies []*http.Cookie) error
	Clear(site string) error
}

// Options tunes retention. Zero values take the defaults.
type Options struct {
	SessionTTL      time.Duration
	CleanupInterval time.Duration

	// now overrides the clock in tests.
	now func() time.Time
}

const (
	defaultSessionTTL      = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore opens the backend named by typ: "bbolt", "sqlite", or "none".
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	opts = normalizeOptions(opts)

	if typ == "" || typ == "none" || typ == "disabled" {
		return noopStore{}, nil
	}
	if typ != "bbolt" && typ != "sqlite" {
		return nil, fmt.Errorf("unsupported session store type %q", typ)
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s session store requires a path", typ)
	}
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	var (
		store Store
		err   error
	)
	if typ == "sqlite" {
		store, err = openSQLite(path, opts)
	} else {
		store, err = openBolt(path, opts)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func normalizeOptions(opts Options) Options {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	return opts
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	return nil
}

// storedCookie is the persisted part of a cookie. Domain and expiry are
// dropped: the jar scopes restored cookies to the site and the store owns expiry.
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Path  string `json:"path,omitempty"`
}

func encodeCookies(cookies []*http.Cookie) ([]byte, error) {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		if c != nil && c.Name != "" {
			stored = append(stored, storedCookie{Name: c.Name, Value: c.Value, Path: c.Path})
		}
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode cookies: %w", err)
	}
	return raw, nil
}

func decodeCookies(raw []byte) ([]*http.Cookie, error) {
	var stored []storedCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode cookies: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: s.Path})
	}
	return cookies, nil
}

type noopStore struct{}

func (noopStore) Close() error                        { return nil }
func (noopStore) Load(string) ([]*http.Cookie, error) { return nil, nil }
func (noopStore) Save(string, []*http.Cookie) error   { return nil }
func (noopStore) Clear(string) error                  { return nil }
