package cachestore

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestFS_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}

	at := time.Now().Add(-time.Hour).Truncate(time.Second)
	entry := Entry{
		Key:      "https://cards.example.com/img/front?id=abc123",
		Blob:     []byte("png bytes"),
		CachedAt: EpochMs(at),
	}
	if err := store.Put(ctx, entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := store.Get(ctx, entry.Key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected entry to exist")
	}
	if !bytes.Equal(got.Blob, entry.Blob) {
		t.Errorf("blob mismatch: %q", got.Blob)
	}
	if got.Size != int64(len(entry.Blob)) {
		t.Errorf("size = %d, want %d", got.Size, len(entry.Blob))
	}
	// mtime carries CachedAt, allow a second of filesystem rounding.
	if diff := got.CachedAt - entry.CachedAt; diff < -1000 || diff > 1000 {
		t.Errorf("CachedAt = %d, want about %d", got.CachedAt, entry.CachedAt)
	}
}

func TestFS_GetMissingKey(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}

	_, ok, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected miss for unknown key")
	}
}

func TestFS_TouchRefreshesTimestamp(t *testing.T) {
	ctx := context.Background()
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}

	old := time.Now().Add(-48 * time.Hour)
	if err := store.Put(ctx, Entry{Key: "k", Blob: []byte("x"), CachedAt: EpochMs(old)}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	now := time.Now().Truncate(time.Second)
	if err := store.Touch(ctx, "k", now); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	got, _, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.CachedAt < EpochMs(now)-1000 {
		t.Errorf("CachedAt = %d, want refreshed to about %d", got.CachedAt, EpochMs(now))
	}

	// Touching a missing key must not fail.
	if err := store.Touch(ctx, "missing", now); err != nil {
		t.Errorf("Touch on missing key: %v", err)
	}
}

func TestFS_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}

	for _, k := range []string{"a", "b", "c"} {
		if err := store.Put(ctx, Entry{Key: k, Blob: []byte(k + k)}); err != nil {
			t.Fatalf("Put %s failed: %v", k, err)
		}
	}

	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "b"); ok {
		t.Error("deleted entry still present")
	}

	n, err := store.Len(ctx)
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}

	size, err := store.Size(ctx)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 4 {
		t.Errorf("Size = %d, want 4", size)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := store.Len(ctx); n != 0 {
		t.Errorf("Len after Clear = %d, want 0", n)
	}
}

func TestFS_DeleteMissingKeyIsNoop(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}
	if err := store.Delete(context.Background(), "missing"); err != nil {
		t.Errorf("Delete on missing key: %v", err)
	}
}
