package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteBackend_Contract(t *testing.T) {
	b, err := OpenSQLiteBackend(":memory:")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	exerciseBackend(t, b)
}

func TestSQLiteBackend_PersistsAcrossOpens(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	b1, err := OpenSQLiteBackend(dsn)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := b1.Set(ctx, "k", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := b1.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	b2, err := OpenSQLiteBackend(dsn)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer b2.Close()
	v, ok, err := b2.Get(ctx, "k")
	if err != nil || !ok || string(v) != `{"a":1}` {
		t.Fatalf("value = %q ok=%v err=%v", v, ok, err)
	}
}
