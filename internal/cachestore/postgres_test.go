//go:build integration

package cachestore

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Postgres, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	store, err := NewPostgres(ctx, dbURL)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create store: %v", err)
	}

	cleanup := func() {
		store.Close()
		container.Terminate(ctx)
	}
	return store, cleanup
}

func TestPostgres_PutGetTouchDelete(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	entry := Entry{
		Key:      "https://cards.example.com/img/front?id=abc123",
		Blob:     []byte("png bytes"),
		CachedAt: EpochMs(time.Now().Add(-time.Hour)),
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
	if !bytes.Equal(got.Blob, entry.Blob) || got.CachedAt != entry.CachedAt {
		t.Errorf("round trip mismatch: %+v", got)
	}

	// Upsert replaces the blob.
	entry.Blob = []byte("new bytes")
	if err := store.Put(ctx, entry); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	got, _, _ = store.Get(ctx, entry.Key)
	if !bytes.Equal(got.Blob, entry.Blob) {
		t.Errorf("upsert did not replace blob: %q", got.Blob)
	}

	now := time.Now()
	if err := store.Touch(ctx, entry.Key, now); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	got, _, _ = store.Get(ctx, entry.Key)
	if got.CachedAt != EpochMs(now) {
		t.Errorf("Touch: CachedAt = %d, want %d", got.CachedAt, EpochMs(now))
	}

	n, err := store.Len(ctx)
	if err != nil || n != 1 {
		t.Errorf("Len = %d (%v), want 1", n, err)
	}
	size, err := store.Size(ctx)
	if err != nil || size != int64(len(entry.Blob)) {
		t.Errorf("Size = %d (%v), want %d", size, err, len(entry.Blob))
	}

	if err := store.Delete(ctx, entry.Key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, entry.Key); ok {
		t.Error("deleted entry still present")
	}
}
