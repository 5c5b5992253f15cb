// Package cache is a content-addressed build cache. Compiled object files
// are stored in SQLite keyed by the sha256 of their source text.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/stackc/pkg/bytecode"
)

// ErrMiss indicates the key has no usable entry.
var ErrMiss = errors.New("cache miss")

var log = commonlog.GetLogger("stackc.cache")

// Cache stores compiled objects.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries int
	Bytes   int64
	Hits    int64
}

const schema = `CREATE TABLE IF NOT EXISTS objects (
	key     TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	name    TEXT NOT NULL,
	data    BLOB NOT NULL,
	created INTEGER NOT NULL,
	hits    INTEGER NOT NULL DEFAULT 0
)`

// Open opens or creates the cache database at path. The path ":memory:"
// gives a private in-memory cache.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	// One connection keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Cache{db: db, path: path}, nil
}

// Key returns the cache key for a source text.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Path returns the database path the cache was opened with.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the object stored under key. Entries written by another
// object format version are misses.
func (c *Cache) Get(key string) (*bytecode.Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var version int
	var data []byte
	err := c.db.QueryRow("SELECT version, data FROM objects WHERE key = ?", key).Scan(&version, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debugf("miss %s", short(key))
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("querying cache: %w", err)
	}
	if version != int(bytecode.FormatVersion) {
		log.Debugf("stale %s (version %d)", short(key), version)
		return nil, ErrMiss
	}

	obj, err := bytecode.UnmarshalObject(data)
	if err != nil {
		log.Warningf("dropping corrupt entry %s: %s", short(key), err)
		if _, derr := c.db.Exec("DELETE FROM objects WHERE key = ?", key); derr != nil {
			return nil, fmt.Errorf("deleting corrupt entry: %w", derr)
		}
		return nil, ErrMiss
	}

	if _, err := c.db.Exec("UPDATE objects SET hits = hits + 1 WHERE key = ?", key); err != nil {
		return nil, fmt.Errorf("updating hits: %w", err)
	}
	log.Debugf("hit %s", short(key))
	return obj, nil
}

// Put stores obj under key, replacing any previous entry.
func (c *Cache) Put(key string, obj *bytecode.Object) error {
	data, err := bytecode.MarshalObject(obj)
	if err != nil {
		return fmt.Errorf("encoding object: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO objects (key, version, name, data, created) VALUES (?, ?, ?, ?, ?)",
		key, int(obj.Version), obj.Source, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving object: %w", err)
	}
	return nil
}

// Clear removes every entry and returns how many were removed.
func (c *Cache) Clear() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.Exec("DELETE FROM objects")
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	return res.RowsAffected()
}

// Stats reports the number of entries, their total size and total hits.
func (c *Cache) Stats() (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Stats
	err := c.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(LENGTH(data)), 0), COALESCE(SUM(hits), 0) FROM objects",
	).Scan(&s.Entries, &s.Bytes, &s.Hits)
	if err != nil {
		return Stats{}, fmt.Errorf("reading stats: %w", err)
	}
	return s, nil
}

func short(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
