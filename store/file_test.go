package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackend_Contract(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	exerciseBackend(t, b)
}

func TestFileBackend_PersistsAcrossInstances(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "store")
	ctx := context.Background()

	b1, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	if err := b1.Set(ctx, DefaultProductsKey, []byte(`[]`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultProductsKey+".json")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultProductsKey+".json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}

	b2, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	v, ok, err := b2.Get(ctx, DefaultProductsKey)
	if err != nil || !ok || string(v) != `[]` {
		t.Fatalf("reopened value = %q ok=%v err=%v", v, ok, err)
	}
}

func TestFileBackend_RejectsPathKeys(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", `a\b`, ".."} {
		if err := b.Set(ctx, key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestFileBackend_UnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileBackend(filepath.Join(blocker, "sub")); err == nil {
		t.Fatal("expected error creating store under a regular file")
	}
}
