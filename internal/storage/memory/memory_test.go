package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStorePutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	value := []byte(`[1,2]`)
	if err := s.Put(ctx, "k", value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'x'

	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(got) != "[1,2]" {
		t.Fatalf("unexpected get: %q ok=%v err=%v", got, ok, err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	keys, _ := s.Keys(ctx)
	if len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestNewFromDirSeeds(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("finance-manager-wallets.json", `[]`)
	mustWrite("finance-manager-currency.json", `"EUR"`)
	mustWrite("notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	s := NewFromDir(dir)
	keys, _ := s.Keys(context.Background())
	if len(keys) != 2 || keys[0] != "finance-manager-currency" || keys[1] != "finance-manager-wallets" {
		t.Fatalf("unexpected keys: %v", keys)
	}
	v, _, _ := s.Get(context.Background(), "finance-manager-currency")
	if string(v) != `"EUR"` {
		t.Fatalf("unexpected value %q", v)
	}
}

func TestNewFromDirMissing(t *testing.T) {
	s := NewFromDir(filepath.Join(t.TempDir(), "nope"))
	keys, _ := s.Keys(context.Background())
	if len(keys) != 0 {
		t.Fatalf("expected empty store, got %v", keys)
	}
	if keys, _ := NewFromDir("").Keys(context.Background()); len(keys) != 0 {
		t.Fatalf("expected empty store for empty dir")
	}
}

func TestStorePutMany(t *testing.T) {
	ctx := context.Background()
	s := New()
	entries := map[string][]byte{"a": []byte("1"), "b": []byte("2")}
	if err := s.PutMany(ctx, entries); err != nil {
		t.Fatalf("put many: %v", err)
	}
	entries["a"][0] = 'x'

	got, ok, _ := s.Get(ctx, "a")
	if !ok || string(got) != "1" {
		t.Fatalf("unexpected a: %q ok=%v", got, ok)
	}
	keys, _ := s.Keys(ctx)
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
}
