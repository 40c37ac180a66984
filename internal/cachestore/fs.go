package cachestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	blobSuffix = ".bin"
	keySuffix  = ".key"
)

// FS stores one blob file per key in a directory, with a sidecar file
// holding the original key. The blob file's mtime carries CachedAt, so a
// touch is a Chtimes call and the store survives restarts for free.
type FS struct {
	dir string
}

// NewFS opens (creating if needed) a directory-backed store.
func NewFS(dir string) (*FS, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FS{dir: dir}, nil
}

// path returns the blob path for key. Keys are URLs, so the filename is a
// digest of the key rather than the key itself.
func (s *FS) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+blobSuffix)
}

func (s *FS) Get(_ context.Context, key string) (Entry, bool, error) {
	p := s.path(key)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("stat cache entry: %w", err)
	}

	blob, err := os.ReadFile(p)
	if err != nil {
		return Entry{}, false, fmt.Errorf("read cache entry: %w", err)
	}
	return Entry{
		Key:      key,
		Blob:     blob,
		CachedAt: EpochMs(info.ModTime()),
		Size:     int64(len(blob)),
	}, true, nil
}

func (s *FS) Put(_ context.Context, e Entry) error {
	p := s.path(e.Key)

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, e.Blob, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit cache entry: %w", err)
	}
	if e.CachedAt > 0 {
		at := time.UnixMilli(e.CachedAt)
		if err := os.Chtimes(p, at, at); err != nil {
			return fmt.Errorf("set cache entry time: %w", err)
		}
	}

	keyPath := strings.TrimSuffix(p, blobSuffix) + keySuffix
	if err := os.WriteFile(keyPath, []byte(e.Key), 0o644); err != nil {
		return fmt.Errorf("write cache key sidecar: %w", err)
	}
	return nil
}

func (s *FS) Touch(_ context.Context, key string, at time.Time) error {
	err := os.Chtimes(s.path(key), at, at)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}
	return nil
}

func (s *FS) Delete(_ context.Context, key string) error {
	p := s.path(key)
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	keyPath := strings.TrimSuffix(p, blobSuffix) + keySuffix
	if err := os.Remove(keyPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete cache key sidecar: %w", err)
	}
	return nil
}

func (s *FS) Len(_ context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache directory: %w", err)
	}
	count := 0
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), blobSuffix) {
			count++
		}
	}
	return count, nil
}

func (s *FS) Size(_ context.Context) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache directory: %w", err)
	}
	var total int64
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), blobSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

func (s *FS) Clear(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read cache directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, blobSuffix) && !strings.HasSuffix(name, keySuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return fmt.Errorf("clear cache entry %s: %w", name, err)
		}
	}
	return nil
}

func (s *FS) Close() error {
	return nil
}
