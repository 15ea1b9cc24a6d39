package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCache implements BytesCache on a local SQLite file. Writes are
// synchronous so a Set is durable once it returns.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (or creates) the database and runs migrations.
func NewSQLiteCache(opts ...SQLiteOption) (*SQLiteCache, error) {
	cfg := &SQLiteConfig{
		Path:        "data/chartdeck.db",
		BusyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps the single-file store consistent without retry loops
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	c := &SQLiteCache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`)
	return err
}

func (c *SQLiteCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value     []byte
		expiresAt int64
	)
	err := c.db.QueryRowContext(ctx, `SELECT value, expires_at FROM kv WHERE key = ?`, key).Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("sqlite get: %w", err)
	}
	if expiresAt > 0 && time.Now().Unix() > expiresAt {
		_, _ = c.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
		return nil, false, nil
	}
	return value, true, nil
}

func (c *SQLiteCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("sqlite set: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("sqlite delete: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
