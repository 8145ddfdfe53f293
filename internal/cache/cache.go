package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrMiss is returned when nothing is cached under the requested key.
var ErrMiss = errors.New("cache miss")

// Cache keeps API payloads verbatim, keyed by collection kind and item slug.
type Cache struct {
	readDB  *sql.DB
	writeDB *sql.DB
	now     func() time.Time
}

func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	c := &Cache{writeDB: writeDB, now: time.Now}
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}

	// The read handle is opened after the schema exists so read-only mode
	// never races table creation.
	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}
	c.readDB = readDB
	return c, nil
}

func (c *Cache) init() error {
	_, err := c.writeDB.Exec(`
		PRAGMA journal_mode=WAL;

		CREATE TABLE IF NOT EXISTS collections (
			kind       TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			fetched_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS items (
			kind       TEXT NOT NULL,
			slug       TEXT NOT NULL,
			payload    TEXT NOT NULL,
			fetched_at DATETIME NOT NULL,
			PRIMARY KEY (kind, slug)
		);
		CREATE INDEX IF NOT EXISTS idx_items_fetched ON items(fetched_at);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		errs = append(errs, c.readDB.Close())
	}
	if c.writeDB != nil {
		errs = append(errs, c.writeDB.Close())
	}
	return errors.Join(errs...)
}

// Entry is a cached payload and when it was fetched.
type Entry struct {
	Payload   json.RawMessage
	FetchedAt time.Time
}

// Age is how long ago the entry was fetched.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

func (c *Cache) PutCollection(kind string, payload json.RawMessage) error {
	_, err := c.writeDB.Exec(`
		INSERT INTO collections (kind, payload, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`, kind, string(payload), c.now().UTC())
	if err != nil {
		return fmt.Errorf("storing collection %s: %w", kind, err)
	}
	return nil
}

func (c *Cache) Collection(kind string) (Entry, error) {
	var (
		e       Entry
		payload string
	)
	err := c.readDB.QueryRow(`SELECT payload, fetched_at FROM collections WHERE kind = ?`, kind).
		Scan(&payload, &e.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrMiss
	}
	if err != nil {
		return e, fmt.Errorf("reading collection %s: %w", kind, err)
	}
	e.Payload = json.RawMessage(payload)
	return e, nil
}

func (c *Cache) PutItem(kind, slug string, payload json.RawMessage) error {
	_, err := c.writeDB.Exec(`
		INSERT INTO items (kind, slug, payload, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, slug) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`, kind, slug, string(payload), c.now().UTC())
	if err != nil {
		return fmt.Errorf("storing item %s/%s: %w", kind, slug, err)
	}
	return nil
}

func (c *Cache) Item(kind, slug string) (Entry, error) {
	var (
		e       Entry
		payload string
	)
	err := c.readDB.QueryRow(`SELECT payload, fetched_at FROM items WHERE kind = ? AND slug = ?`, kind, slug).
		Scan(&payload, &e.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrMiss
	}
	if err != nil {
		return e, fmt.Errorf("reading item %s/%s: %w", kind, slug, err)
	}
	e.Payload = json.RawMessage(payload)
	return e, nil
}

// Invalidate drops the collection and every item cached for kind.
func (c *Cache) Invalidate(kind string) error {
	tx, err := c.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM collections WHERE kind = ?`, kind); err != nil {
		return fmt.Errorf("invalidating collection %s: %w", kind, err)
	}
	if _, err := tx.Exec(`DELETE FROM items WHERE kind = ?`, kind); err != nil {
		return fmt.Errorf("invalidating items %s: %w", kind, err)
	}
	return tx.Commit()
}

// NeedsRefresh reports whether the collection for kind is missing or older
// than interval.
func (c *Cache) NeedsRefresh(kind string, interval time.Duration) bool {
	e, err := c.Collection(kind)
	if err != nil {
		return true
	}
	return e.Age(c.now()) >= interval
}

func (c *Cache) SetLastRefresh() error {
	return c.setMeta("last_refresh", c.now().UTC().Format(time.RFC3339))
}

func (c *Cache) LastRefresh() (time.Time, error) {
	v, err := c.getMeta("last_refresh")
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}

func (c *Cache) setMeta(key, value string) error {
	_, err := c.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (c *Cache) getMeta(key string) (string, error) {
	var value string
	err := c.readDB.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrMiss
	}
	return value, err
}

// Prune deletes item payloads not refreshed within retention. Collections are
// kept: they are the fallback when the API is unreachable.
func (c *Cache) Prune(retention time.Duration) (int64, error) {
	cutoff := c.now().UTC().Add(-retention)
	res, err := c.writeDB.Exec(`DELETE FROM items WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning items: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		c.writeDB.Exec(`VACUUM`)
	}
	return n, nil
}

// Stats holds the counts reported by the stats command.
type Stats struct {
	Collections int
	Items       int
	SizeBytes   int64
}

func (c *Cache) Stats(dbPath string) (Stats, error) {
	var s Stats
	if err := c.readDB.QueryRow(`SELECT COUNT(*) FROM collections`).Scan(&s.Collections); err != nil {
		return s, fmt.Errorf("counting collections: %w", err)
	}
	if err := c.readDB.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&s.Items); err != nil {
		return s, fmt.Errorf("counting items: %w", err)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return s, fmt.Errorf("stat cache file: %w", err)
	}
	s.SizeBytes = info.Size()
	return s, nil
}
