package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Postgres stores cache entries in a single PostgreSQL table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a PostgreSQL-backed store and ensures its schema.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	if url == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Postgres{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS image_cache (
			cache_key TEXT PRIMARY KEY,
			data BYTEA NOT NULL,
			cached_at BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create image_cache table: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, key string) (Entry, bool, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx,
		"SELECT data, cached_at FROM image_cache WHERE cache_key = $1", key,
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

func (s *Postgres) Put(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO image_cache (cache_key, data, cached_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE SET
			data = EXCLUDED.data,
			cached_at = EXCLUDED.cached_at
	`, e.Key, e.Blob, e.CachedAt)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (s *Postgres) Touch(ctx context.Context, key string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE image_cache SET cached_at = $2 WHERE cache_key = $1",
		key, EpochMs(at))
	if err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM image_cache WHERE cache_key = $1", key)
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

func (s *Postgres) Len(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM image_cache").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}

func (s *Postgres) Size(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(LENGTH(data)), 0) FROM image_cache").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum cache entry sizes: %w", err)
	}
	return total, nil
}

func (s *Postgres) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM image_cache"); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func (s *Postgres) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}
