package imagecache

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cardforge/cardforge/internal/cachestore"
)

func countingServer(t *testing.T, calls *atomic.Int32, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolve_CachesOnFirstFetch(t *testing.T) {
	var calls atomic.Int32
	srv := countingServer(t, &calls, []byte("artwork"))

	store := cachestore.NewMock()
	cache := New(store, testFetcher(), WithGraceDelay(time.Millisecond))

	blob, err := cache.Resolve(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	if !bytes.Equal(blob, []byte("artwork")) {
		t.Errorf("blob = %q", blob)
	}

	// Second resolve must come from the store, not the network.
	blob, err = cache.Resolve(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if !bytes.Equal(blob, []byte("artwork")) {
		t.Errorf("cached blob = %q", blob)
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1", calls.Load())
	}
}

func TestResolve_ConcurrentCallersShareOneFetch(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte("shared"))
	}))
	defer srv.Close()

	cache := New(cachestore.NewMock(), testFetcher(), WithGraceDelay(time.Millisecond))

	const waiters = 8
	var wg sync.WaitGroup
	results := make([][]byte, waiters)
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Resolve(context.Background(), srv.URL)
		}(i)
	}

	// Give every goroutine time to join the flight before the response.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d failed: %v", i, errs[i])
		}
		if !bytes.Equal(results[i], []byte("shared")) {
			t.Errorf("waiter %d got %q", i, results[i])
		}
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1", calls.Load())
	}
}

func TestResolve_StaleEntryRefetches(t *testing.T) {
	var calls atomic.Int32
	srv := countingServer(t, &calls, []byte("fresh"))

	store := cachestore.NewMock()
	stale := time.Now().Add(-8 * 24 * time.Hour)
	key := NormalizeKey(srv.URL)
	store.Put(context.Background(), cachestore.Entry{
		Key: key, Blob: []byte("stale"), CachedAt: cachestore.EpochMs(stale),
	})

	cache := New(store, testFetcher(), WithGraceDelay(time.Millisecond))
	blob, err := cache.Resolve(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !bytes.Equal(blob, []byte("fresh")) {
		t.Errorf("blob = %q, want refetched content", blob)
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1", calls.Load())
	}
}

func TestResolve_HitRefreshesTimestamp(t *testing.T) {
	store := cachestore.NewMock()
	old := time.Now().Add(-3 * 24 * time.Hour)
	store.Put(context.Background(), cachestore.Entry{
		Key: "k", Blob: []byte("hot"), CachedAt: cachestore.EpochMs(old),
	})

	cache := New(store, testFetcher())
	blob, err := cache.Resolve(context.Background(), "k")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !bytes.Equal(blob, []byte("hot")) {
		t.Errorf("blob = %q", blob)
	}

	got, _, _ := store.Get(context.Background(), "k")
	if got.CachedAt <= cachestore.EpochMs(old) {
		t.Error("hit did not refresh CachedAt")
	}
}

func TestResolve_StoreFailureIsAMiss(t *testing.T) {
	var calls atomic.Int32
	srv := countingServer(t, &calls, []byte("works anyway"))

	store := cachestore.NewMock()
	store.GetError = errors.New("db down")

	cache := New(store, testFetcher(), WithGraceDelay(time.Millisecond))
	blob, err := cache.Resolve(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !bytes.Equal(blob, []byte("works anyway")) {
		t.Errorf("blob = %q", blob)
	}
}

func TestResolve_FailureClearsInflightImmediately(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cache := New(cachestore.NewMock(), testFetcher(), WithGraceDelay(time.Hour))

	if _, err := cache.Resolve(context.Background(), srv.URL); err == nil {
		t.Fatal("expected first Resolve to fail")
	}
	// A second attempt must issue a new fetch, not get the poisoned flight.
	if _, err := cache.Resolve(context.Background(), srv.URL); err == nil {
		t.Fatal("expected second Resolve to fail")
	}
	if calls.Load() != 2 {
		t.Errorf("server called %d times, want 2", calls.Load())
	}
}

func TestResolve_CancelingWaiterDoesNotPoisonFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte("late but fine"))
	}))
	defer srv.Close()

	store := cachestore.NewMock()
	cache := New(store, testFetcher(), WithGraceDelay(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, err := cache.Resolve(ctx, srv.URL); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The detached fetch must still complete and populate the store.
	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok, _ := store.Get(context.Background(), NormalizeKey(srv.URL)); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("detached fetch never populated the store")
		}
		time.Sleep(5 * time.Millisecond)
	}

	blob, err := cache.Resolve(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("follow-up Resolve failed: %v", err)
	}
	if !bytes.Equal(blob, []byte("late but fine")) {
		t.Errorf("blob = %q", blob)
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1", calls.Load())
	}
}
