package cache

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"pdfspeak/pkg/db"
)

// Cacher defines the caching interface.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// SQLiteCache implements Cacher using pkg/db.
type SQLiteCache struct {
	db *db.DB
}

// NewSQLiteCache creates a new cache.
func NewSQLiteCache(d *db.DB) *SQLiteCache {
	return &SQLiteCache{db: d}
}

// GetCache returns the stored value. Read errors count as a miss.
func (c *SQLiteCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	err := c.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		slog.Warn("Cache read failed", "key", key, "error", err)
		return nil, false
	}
	return val, true
}

// SetCache stores val under key, replacing any previous value.
func (c *SQLiteCache) SetCache(ctx context.Context, key string, val []byte) error {
	query := `INSERT OR REPLACE INTO cache (key, value, created_at) VALUES (?, ?, ?)`
	_, err := c.db.ExecContext(ctx, query, key, val, time.Now().UTC().Format(db.TimeFormat))
	return err
}

// Nop is a Cacher that never stores anything.
type Nop struct{}

func (Nop) GetCache(context.Context, string) ([]byte, bool) { return nil, false }

func (Nop) SetCache(context.Context, string, []byte) error { return nil }
