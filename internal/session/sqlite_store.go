package session

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	site       TEXT PRIMARY KEY,
	cookies    TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`

// sqliteStore keeps sessions in a single table. Expired rows are purged on
// every Load.
type sqliteStore struct {
	db   *sql.DB
	opts Options
}

func openSQLite(path string, opts Options) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite session store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sessions schema: %w", err)
	}
	return &sqliteStore{db: db, opts: opts}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) Load(site string) ([]*http.Cookie, error) {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, s.opts.now().Unix()); err != nil {
		return nil, fmt.Errorf("purge expired sessions: %w", err)
	}

	var raw string
	err := s.db.QueryRow(`SELECT cookies FROM sessions WHERE site = ?`, site).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	cookies, err := decodeCookies([]byte(raw))
	if err != nil {
		return nil, s.Clear(site)
	}
	return cookies, nil
}

func (s *sqliteStore) Save(site string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return s.Clear(site)
	}
	body, err := encodeCookies(cookies)
	if err != nil {
		return err
	}

	expires := s.opts.now().Add(s.opts.SessionTTL).Unix()
	_, err = s.db.Exec(`
		INSERT INTO sessions (site, cookies, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(site) DO UPDATE SET cookies = excluded.cookies, expires_at = excluded.expires_at`,
		site, string(body), expires)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *sqliteStore) Clear(site string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE site = ?`, site); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
