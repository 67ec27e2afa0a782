// Package cache provides the durable TTL cache that backs every external
// service call. Entries live in a SQLite database so results survive process
// restarts; expired entries read as absent and are evicted lazily on access.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"subflow/internal/config"
	"subflow/internal/services"
)

// schemaVersion prefixes every key. Bumping it orphans old entries instead
// of forcing decode-error handling on format changes; Clear removes only
// rows in the current namespace.
const schemaVersion = 1

const sqliteBusyCode = 5

var busyPolicy = services.RetryPolicy{
	Attempts:     5,
	InitialDelay: 10 * time.Millisecond,
	MaxDelay:     200 * time.Millisecond,
	Multiplier:   2,
}

// Store is the durable TTL key-value cache.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
	ttl  time.Duration
	now  func() time.Time
}

// Open initializes or connects to the cache database under the configured
// cache directory. A file lock next to the database keeps concurrent
// processes from sharing it.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrIO, "cache", "open", "ensure directories", err)
	}

	dbPath := filepath.Join(cfg.Paths.CacheDir, "cache.db")
	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "cache", "open", "acquire cache lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "cache", "open", "cache database is in use by another process", nil)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, services.Wrap(services.ErrIO, "cache", "open", "open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, services.Wrap(services.ErrIO, "cache", "open", fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &Store{
		db:   db,
		path: dbPath,
		lock: lock,
		ttl:  cfg.CacheTTL(),
		now:  time.Now,
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
    key          TEXT PRIMARY KEY,
    value        TEXT NOT NULL,
    stored_at_ms INTEGER NOT NULL,
    ttl_ms       INTEGER NOT NULL
)`
	if err := s.execWithRetry(ctx, schema); err != nil {
		return services.Wrap(services.ErrIO, "cache", "init", "create schema", err)
	}
	return nil
}

// Close closes the database and releases the process lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value stored at key, or ok=false when the key is absent
// or its entry has expired. An expired row is deleted on the way out;
// callers cannot distinguish expired from never set.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	nsKey := s.namespace(key)
	var (
		value    string
		storedAt int64
		ttlMS    int64
	)
	err := s.queryRowWithRetry(ctx,
		`SELECT value, stored_at_ms, ttl_ms FROM cache_entries WHERE key = ?`, nsKey,
		&value, &storedAt, &ttlMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, services.Wrap(services.ErrIO, "cache", "get", "read entry", err)
	}

	age := s.now().UnixMilli() - storedAt
	if age >= ttlMS {
		// Lazy eviction. A failure here does not affect the answer.
		_ = s.execWithRetry(ctx, `DELETE FROM cache_entries WHERE key = ?`, nsKey)
		return nil, false, nil
	}
	return []byte(value), true, nil
}

// Set stores value at key with the given ttl, replacing any previous entry.
// Concurrent writers computing the same key produce equivalent values, so
// last-writer-wins is safe. A non-positive ttl falls back to the default.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO cache_entries (key, value, stored_at_ms, ttl_ms) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		     stored_at_ms = excluded.stored_at_ms, ttl_ms = excluded.ttl_ms`,
		s.namespace(key), string(value), s.now().UnixMilli(), ttl.Milliseconds())
	if err != nil {
		return services.Wrap(services.ErrIO, "cache", "set", "write entry", err)
	}
	return nil
}

// GetJSON unmarshals the cached value at key into out.
func (s *Store) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// A corrupt entry reads as absent; drop it so it is rewritten.
		_ = s.execWithRetry(ctx, `DELETE FROM cache_entries WHERE key = ?`, s.namespace(key))
		return false, nil
	}
	return true, nil
}

// SetJSON marshals value and stores it at key.
func (s *Store) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return services.Wrap(services.ErrValidation, "cache", "set", "encode value", err)
	}
	return s.Set(ctx, key, raw, ttl)
}

// Clear removes every entry in the current schema namespace. It is the
// single reset path; callers never delete individual keys.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.execWithRetry(ctx,
		`DELETE FROM cache_entries WHERE key LIKE ?`, s.namespacePrefix()+"%"); err != nil {
		return services.Wrap(services.ErrIO, "cache", "clear", "delete entries", err)
	}
	return nil
}

// Stats summarizes the current namespace: total rows and the subset whose
// ttl has not yet elapsed.
type Stats struct {
	Entries int64
	Live    int64
}

// Stats counts entries in the current schema namespace.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	pattern := s.namespacePrefix() + "%"
	if err := s.queryRowWithRetry(ctx,
		`SELECT COUNT(*) FROM cache_entries WHERE key LIKE ?`, pattern, &st.Entries); err != nil {
		return Stats{}, services.Wrap(services.ErrIO, "cache", "stats", "count entries", err)
	}
	err := services.Retry(ensureContext(ctx), busyPolicy, isSQLiteBusy, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM cache_entries WHERE key LIKE ? AND stored_at_ms + ttl_ms > ?`,
			pattern, s.now().UnixMilli()).Scan(&st.Live)
	})
	if err != nil {
		return Stats{}, services.Wrap(services.ErrIO, "cache", "stats", "count live entries", err)
	}
	return st, nil
}

func (s *Store) namespacePrefix() string {
	return fmt.Sprintf("v%d|", schemaVersion)
}

func (s *Store) namespace(key string) string {
	return s.namespacePrefix() + key
}

// Key builds the deterministic cache key for an external call: the endpoint
// name plus the input fingerprint.
func Key(endpoint, fingerprint string) string {
	return endpoint + "|" + strings.ToLower(strings.TrimSpace(fingerprint))
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return services.Retry(ctx, busyPolicy, isSQLiteBusy, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func (s *Store) queryRowWithRetry(ctx context.Context, query string, key string, dest ...any) error {
	ctx = ensureContext(ctx)
	return services.Retry(ctx, busyPolicy, isSQLiteBusy, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, query, key).Scan(dest...)
	})
}
