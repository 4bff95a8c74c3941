package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// exerciseKV runs the behaviour every KV implementation shares.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := kv.Set(ctx, "cart", `[{"id":1,"amount":1}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, "cart", `[{"id":1,"amount":2}]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := kv.Set(ctx, "other", `[]`); err != nil {
		t.Fatalf("set other: %v", err)
	}

	v, ok, err := kv.Get(ctx, "cart")
	if err != nil || !ok || v != `[{"id":1,"amount":2}]` {
		t.Fatalf("unexpected value %q ok=%v err=%v", v, ok, err)
	}
	v, ok, _ = kv.Get(ctx, "other")
	if !ok || v != "[]" {
		t.Fatalf("unexpected other value %q ok=%v", v, ok)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseKV(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cart.json")
	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	exerciseKV(t, fs)

	// a second store on the same file sees what the first one wrote
	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, ok, err := reopened.Get(context.Background(), "cart")
	if err != nil || !ok || v != `[{"id":1,"amount":2}]` {
		t.Fatalf("value did not survive reopen: %q ok=%v err=%v", v, ok, err)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs, _ := NewFileStore(path)
	if _, _, err := fs.Get(context.Background(), "cart"); err == nil {
		t.Fatalf("expected parse error for corrupt file")
	}
	if _, err := NewFileStore(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseKV(t, NewRedisStoreWithClient(client, 0))

	if ttl := mr.TTL("cart"); ttl != 0 {
		t.Fatalf("expected no ttl, got %v", ttl)
	}
}

func TestRedisStoreTTLAndConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	rs, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer rs.Close()

	if err := rs.Set(context.Background(), "cart", "[]"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL("cart"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	if _, err := NewRedisStore(context.Background(), "not a url", 0); err == nil {
		t.Fatalf("expected invalid url error")
	}
}
