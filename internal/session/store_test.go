package session

import (
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

const site = "http://127.0.0.1:8000"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// eachBackend runs fn against a fresh bbolt and a fresh sqlite store sharing a fake clock.
func eachBackend(t *testing.T, ttl time.Duration, fn func(t *testing.T, store Store, clock *fakeClock)) {
	t.Helper()
	for _, typ := range []string{"bbolt", "sqlite"} {
		t.Run(typ, func(t *testing.T) {
			clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
			store, err := NewStore(typ, filepath.Join(t.TempDir(), "state", "session.db"), Options{
				SessionTTL:      ttl,
				CleanupInterval: time.Minute,
				now:             clock.now,
			})
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			defer store.Close()
			fn(t, store, clock)
		})
	}
}

func TestStoreRoundTrip(t *testing.T) {
	eachBackend(t, time.Hour, func(t *testing.T, store Store, _ *fakeClock) {
		if cookies, err := store.Load(site); err != nil || len(cookies) != 0 {
			t.Fatalf("expected no session, cookies=%v err=%v", cookies, err)
		}
		if err := store.Save(site, []*http.Cookie{{Name: "user_access_token", Value: "7", Path: "/"}, nil, {Name: ""}}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := store.Save(site, []*http.Cookie{{Name: "user_access_token", Value: "8", Path: "/"}}); err != nil {
			t.Fatalf("Save overwrite: %v", err)
		}

		cookies, err := store.Load(site)
		if err != nil || len(cookies) != 1 {
			t.Fatalf("expected one cookie, got %v err=%v", cookies, err)
		}
		if c := cookies[0]; c.Name != "user_access_token" || c.Value != "8" || c.Path != "/" {
			t.Fatalf("unexpected cookie %#v", c)
		}
	})
}

func TestStoreExpiresAfterTTL(t *testing.T) {
	eachBackend(t, time.Hour, func(t *testing.T, store Store, clock *fakeClock) {
		if err := store.Save(site, []*http.Cookie{{Name: "a", Value: "1"}}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		clock.advance(59 * time.Minute)
		if cookies, _ := store.Load(site); len(cookies) != 1 {
			t.Fatalf("session should still be valid, got %v", cookies)
		}
		clock.advance(time.Minute)
		cookies, err := store.Load(site)
		if err != nil {
			t.Fatalf("Load after expiry: %v", err)
		}
		if len(cookies) != 0 {
			t.Fatalf("expected expired session, got %v", cookies)
		}
	})
}

func TestStoreSaveRestartsTTL(t *testing.T) {
	eachBackend(t, time.Hour, func(t *testing.T, store Store, clock *fakeClock) {
		cookies := []*http.Cookie{{Name: "a", Value: "1"}}
		if err := store.Save(site, cookies); err != nil {
			t.Fatalf("Save: %v", err)
		}
		clock.advance(45 * time.Minute)
		if err := store.Save(site, cookies); err != nil {
			t.Fatalf("Save again: %v", err)
		}
		clock.advance(45 * time.Minute)
		if got, _ := store.Load(site); len(got) != 1 {
			t.Fatalf("resaved session should survive, got %v", got)
		}
	})
}

func TestStoreClearAndEmptySave(t *testing.T) {
	eachBackend(t, time.Hour, func(t *testing.T, store Store, _ *fakeClock) {
		if err := store.Save(site, []*http.Cookie{{Name: "a", Value: "1"}}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := store.Clear(site); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if cookies, _ := store.Load(site); len(cookies) != 0 {
			t.Fatalf("expected cleared session, got %v", cookies)
		}

		if err := store.Save(site, []*http.Cookie{{Name: "a", Value: "1"}}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := store.Save(site, nil); err != nil {
			t.Fatalf("Save(nil): %v", err)
		}
		if cookies, _ := store.Load(site); len(cookies) != 0 {
			t.Fatalf("empty save should clear, got %v", cookies)
		}
	})
}

func TestStoreSeparatesSites(t *testing.T) {
	eachBackend(t, time.Hour, func(t *testing.T, store Store, _ *fakeClock) {
		if err := store.Save("https://a.example", []*http.Cookie{{Name: "t", Value: "a"}}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if cookies, _ := store.Load("https://b.example"); len(cookies) != 0 {
			t.Fatalf("expected no cookies for other site, got %v", cookies)
		}
	})
}

func TestBoltSweepDropsOtherExpiredSites(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store, err := openBolt(filepath.Join(t.TempDir(), "session.db"), normalizeOptions(Options{
		SessionTTL:      time.Hour,
		CleanupInterval: 10 * time.Minute,
		now:             clock.now,
	}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	if err := store.Save("https://stale.example", []*http.Cookie{{Name: "t", Value: "1"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	clock.advance(2 * time.Hour)
	if _, err := store.Load(site); err != nil {
		t.Fatalf("Load: %v", err)
	}

	var keys int
	err = store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(_, _ []byte) error {
			keys++
			return nil
		})
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if keys != 0 {
		t.Fatalf("sweep should have removed the stale site, %d records left", keys)
	}
}

func TestSplitRecordRejectsMalformed(t *testing.T) {
	for _, rec := range [][]byte{nil, {1, 2, 3}, make([]byte, 8)} {
		if _, _, ok := splitRecord(rec); ok {
			t.Fatalf("record %v should be rejected", rec)
		}
	}
}

func TestNewStoreNoop(t *testing.T) {
	for _, typ := range []string{"", "none", "Disabled"} {
		store, err := NewStore(typ, "", Options{})
		if err != nil {
			t.Fatalf("NewStore %q: %v", typ, err)
		}
		if err := store.Save(site, []*http.Cookie{{Name: "x"}}); err != nil {
			t.Fatalf("noop Save: %v", err)
		}
		if cookies, _ := store.Load(site); cookies != nil {
			t.Fatalf("noop store should not return cookies")
		}
	}
}

func TestNewStoreRejects(t *testing.T) {
	if _, err := NewStore("redis", "x", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	for _, typ := range []string{"bbolt", "sqlite"} {
		if _, err := NewStore(typ, " ", Options{}); err == nil {
			t.Fatalf("expected %s to require a path", typ)
		}
	}
}
