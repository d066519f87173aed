// Package cache stores semantic reports in SQLite, keyed by the content hash
// of the checked program and the fingerprint of the check options.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/RocioCM/tinyrust-compiler/compiler"
	"github.com/RocioCM/tinyrust-compiler/compiler/hash"
)

var log = commonlog.GetLogger("tinyrust.cache")

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	hash    TEXT NOT NULL,
	options TEXT NOT NULL,
	id      TEXT NOT NULL,
	created INTEGER NOT NULL,
	report  BLOB NOT NULL,
	PRIMARY KEY (hash, options)
);
CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created);
`

// Cache is a report cache backed by a SQLite database.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex // serializes writers; SQLite allows one at a time
	now  func() time.Time
}

// Open creates or opens the cache database at path. The parent directory is
// created when missing.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	log.Debugf("opened report cache %s", path)
	return &Cache{db: db, path: path, now: time.Now}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Get returns the cached report for a program hash and options fingerprint.
// A miss returns (nil, false, nil).
func (c *Cache) Get(ctx context.Context, hash, options string) (*compiler.Report, bool, error) {
	var id string
	var blob []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT id, report FROM reports WHERE hash = ? AND options = ?`,
		hash, options).Scan(&id, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}

	var r compiler.Report
	if err := json.Unmarshal(blob, &r); err != nil {
		return nil, false, fmt.Errorf("cache entry %s is corrupt: %w", id, err)
	}
	r.ID = id
	return &r, true, nil
}

// Put stores r under hash and options, replacing any previous entry. Reports
// without an ID are assigned a fresh one, which is returned.
func (c *Cache) Put(ctx context.Context, hash, options string, r *compiler.Report) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	blob, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO reports (hash, options, id, created, report) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(hash, options) DO UPDATE SET id = excluded.id, created = excluded.created, report = excluded.report`,
		hash, options, r.ID, c.now().UnixNano(), blob)
	if err != nil {
		return "", fmt.Errorf("cache store: %w", err)
	}
	return r.ID, nil
}

// Prune deletes entries created more than olderThan ago and returns how many
// were removed.
func (c *Cache) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := c.now().Add(-olderThan).UnixNano()

	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.db.ExecContext(ctx, `DELETE FROM reports WHERE created < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Infof("pruned %d cached reports", n)
	}
	return n, nil
}

// Len returns the number of cached reports.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return n, nil
}

// Check returns the cached report for prog under opts, or checks prog and
// caches the result. The second result reports a cache hit. Cached reports
// carry no symbol table.
func (c *Cache) Check(ctx context.Context, prog *compiler.Program, opts compiler.Options) (*compiler.Report, bool, error) {
	key := hash.Hex(prog)
	fp := opts.Fingerprint()

	r, ok, err := c.Get(ctx, key, fp)
	if err != nil {
		log.Warningf("%s: %v; checking again", prog.Name, err)
	} else if ok {
		log.Debugf("%s: cache hit %s", prog.Name, r.ID)
		return r, true, nil
	}

	r = compiler.Check(prog, opts)
	if _, err := c.Put(ctx, key, fp, r); err != nil {
		return r, false, err
	}
	return r, false, nil
}
