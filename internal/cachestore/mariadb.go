package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MariaDB stores cache entries in a single MariaDB/MySQL table.
type MariaDB struct {
	db *sql.DB
}

// NewMariaDB opens a MariaDB-backed store and ensures its schema.
func NewMariaDB(ctx context.Context, dsn string) (*MariaDB, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	s := &MariaDB{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MariaDB) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS image_cache (
			cache_key VARCHAR(512) PRIMARY KEY,
			data LONGBLOB NOT NULL,
			cached_at BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create image_cache table: %w", err)
	}
	return nil
}

func (s *MariaDB) Get(ctx context.Context, key string) (Entry, bool, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx,
		"SELECT data, cached_at FROM image_cache WHERE cache_key = ?", key,
	).Scan(&e.Blob, &e.CachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query cache entry: %w", err)
	}
	e.Key = key
	e.Size = int64(len(e.Blob))
	return e, true, nil
}

func (s *MariaDB) Put(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO image_cache (cache_key, data, cached_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			data = VALUES(data),
			cached_at = VALUES(cached_at)
	`, e.Key, e.Blob, e.CachedAt)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (s *MariaDB) Touch(ctx context.Context, key string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE image_cache SET cached_at = ? WHERE cache_key = ?",
		EpochMs(at), key)
	if err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}
	return nil
}

func (s *MariaDB) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM image_cache WHERE cache_key = ?", key)
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

func (s *MariaDB) Len(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM image_cache").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}

func (s *MariaDB) Size(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(LENGTH(data)), 0) FROM image_cache").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum cache entry sizes: %w", err)
	}
	return total, nil
}

func (s *MariaDB) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM image_cache"); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func (s *MariaDB) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}
