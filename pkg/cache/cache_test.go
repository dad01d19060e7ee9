package cache

import (
	"context"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always miss")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("expected miss for unknown key")
	}

	if err := c.Set(ctx, "k", []byte("analysis"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit {
		t.Fatalf("Get = %v, hit=%v", err, hit)
	}
	if string(data) != "analysis" {
		t.Errorf("data = %q", data)
	}

	// Expired entries read as misses and are dropped.
	if err := c.Set(ctx, "short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry should miss")
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("deleted entry should miss")
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(2)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "a", []byte("1"), 0); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "b", []byte("2"), 0); err != nil {
		t.Fatal(err)
	}
	if data, hit, _ := c.Get(ctx, "a"); !hit || string(data) != "1" {
		t.Errorf("Get(a) = %q, hit=%v", data, hit)
	}

	// Capacity 2: adding a third key evicts the least recently used.
	if err := c.Set(ctx, "c", []byte("3"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "b"); hit {
		t.Error("b should have been evicted")
	}

	// TTL expiry.
	if err := c.Set(ctx, "ttl", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "ttl"); hit {
		t.Error("expired entry should miss")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}
	if h3 := Hash([]byte("world")); h1 == h3 {
		t.Error("different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	now := time.Now()

	k1 := k.ArchiveKey("/lib/app.jar", 1024, now)
	k2 := k.ArchiveKey("/lib/app.jar", 1024, now)
	if k1 != k2 {
		t.Error("ArchiveKey should be deterministic")
	}
	if k3 := k.ArchiveKey("/lib/app.jar", 2048, now); k1 == k3 {
		t.Error("size change should change the key")
	}
	if k4 := k.ArchiveKey("/lib/app.jar", 1024, now.Add(time.Second)); k1 == k4 {
		t.Error("mtime change should change the key")
	}

	scoped := NewScopedKeyer(nil, "proj:")
	if got := scoped.ArchiveKey("/lib/app.jar", 1024, now); got != "proj:"+k1 {
		t.Errorf("scoped key = %q", got)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	// Non-retryable errors fail immediately.
	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return context.Canceled
	})
	if err == nil || calls != 1 {
		t.Errorf("non-retryable: err=%v calls=%d", err, calls)
	}

	// Retryable errors retry until success.
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(context.DeadlineExceeded)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("retryable: err=%v calls=%d", err, calls)
	}
}
