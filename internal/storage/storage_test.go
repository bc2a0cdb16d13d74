package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type testDoc struct {
	FetchedAt int64    `json:"fetchedAt"`
	Links     []string `json:"links"`
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := NewFileStore(path)

	in := testDoc{FetchedAt: 123, Links: []string{"a", "b"}}
	if err := store.Set("news:bts", in); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var out testDoc
	ok, err := store.Get("news:bts", &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected document to exist")
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestFileStore_MissingKey(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "cache.json"))

	var out testDoc
	ok, err := store.Get("nope", &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected miss for unknown key")
	}
}

func TestFileStore_KeepsOtherKeys(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "cache.json"))

	if err := store.Set("a", testDoc{FetchedAt: 1}); err != nil {
		t.Fatalf("Set a: %v", err)
	}
	if err := store.Set("b", testDoc{FetchedAt: 2}); err != nil {
		t.Fatalf("Set b: %v", err)
	}

	var out testDoc
	if ok, _ := store.Get("a", &out); !ok || out.FetchedAt != 1 {
		t.Errorf("key a lost after writing b: ok=%v doc=%+v", ok, out)
	}
}

func TestFileStore_RecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(path)

	if err := store.Set("a", testDoc{FetchedAt: 1}); err != nil {
		t.Fatalf("Set over corrupt file failed: %v", err)
	}
	var out testDoc
	if ok, err := store.Get("a", &out); err != nil || !ok {
		t.Errorf("Get after recovery: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()

	in := testDoc{FetchedAt: 9, Links: []string{"x"}}
	if err := store.Set("k", in); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var out testDoc
	ok, err := store.Get("k", &out)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}

	var miss testDoc
	if ok, _ := store.Get("other", &miss); ok {
		t.Error("expected miss for unknown key")
	}
}
