package session

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var sessionsBucket = []byte("sessions")

var errNoBucket = errors.New("sessions bucket missing")

// boltStore keeps one record per site. A record is the expiry as 8 big-endian
// bytes of unix seconds followed by the JSON cookies. Expired records are
// dropped when read and swept from the whole bucket every CleanupInterval.
type boltStore struct {
	db   *bolt.DB
	opts Options

	sweepMu   sync.Mutex
	lastSweep time.Time
}

func openBolt(path string, opts Options) (*boltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt session store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}
	return &boltStore{db: db, opts: opts, lastSweep: opts.now()}, nil
}

func (b *boltStore) Close() error {
	return b.db.Close()
}

func (b *boltStore) Load(site string) ([]*http.Cookie, error) {
	now := b.opts.now()
	if err := b.sweep(now); err != nil {
		return nil, err
	}

	var cookies []*http.Cookie
	err := b.update(func(bucket *bolt.Bucket) error {
		key := []byte(site)
		expiry, body, ok := splitRecord(bucket.Get(key))
		if !ok {
			return nil
		}
		if !expiry.After(now) {
			return bucket.Delete(key)
		}
		decoded, err := decodeCookies(body)
		if err != nil {
			return bucket.Delete(key)
		}
		cookies = decoded
		return nil
	})
	return cookies, err
}

// Save replaces the site's cookies and restarts its TTL. No cookies clears it.
func (b *boltStore) Save(site string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return b.Clear(site)
	}
	now := b.opts.now()
	if err := b.sweep(now); err != nil {
		return err
	}
	body, err := encodeCookies(cookies)
	if err != nil {
		return err
	}

	record := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint64(record, uint64(now.Add(b.opts.SessionTTL).Unix()))
	record = append(record, body...)
	return b.update(func(bucket *bolt.Bucket) error {
		return bucket.Put([]byte(site), record)
	})
}

func (b *boltStore) Clear(site string) error {
	return b.update(func(bucket *bolt.Bucket) error {
		return bucket.Delete([]byte(site))
	})
}

// sweep deletes every expired record at most once per CleanupInterval.
func (b *boltStore) sweep(now time.Time) error {
	b.sweepMu.Lock()
	defer b.sweepMu.Unlock()
	if now.Sub(b.lastSweep) < b.opts.CleanupInterval {
		return nil
	}

	err := b.update(func(bucket *bolt.Bucket) error {
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if expiry, _, ok := splitRecord(v); ok && expiry.After(now) {
				continue
			}
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sweep expired sessions: %w", err)
	}
	b.lastSweep = now
	return nil
}

func (b *boltStore) update(fn func(*bolt.Bucket) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		if bucket == nil {
			return errNoBucket
		}
		return fn(bucket)
	})
}

// splitRecord returns a record's expiry and cookie body. ok is false for
// missing or malformed records.
func splitRecord(record []byte) (expiry time.Time, body []byte, ok bool) {
	if len(record) < 8 {
		return time.Time{}, nil, false
	}
	secs := int64(binary.BigEndian.Uint64(record[:8]))
	if secs <= 0 {
		return time.Time{}, nil, false
	}
	return time.Unix(secs, 0), record[8:], true
}
