package session

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sessions", "sessions.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutValidDelete(t *testing.T) {
	store := openTestStore(t)
	if err := store.Put("tok", 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ok, err := store.Valid("tok")
	if err != nil || !ok {
		t.Fatalf("expected token to be valid, ok=%v err=%v", ok, err)
	}
	if err := store.Delete("tok"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err = store.Valid("tok")
	if err != nil || ok {
		t.Fatalf("expected token to be revoked, ok=%v err=%v", ok, err)
	}
	if err := store.Delete("tok"); err != nil {
		t.Fatalf("deleting twice should succeed: %v", err)
	}
}

func TestValidEmptyToken(t *testing.T) {
	store := openTestStore(t)
	if ok, _ := store.Valid(""); ok {
		t.Fatalf("empty token must not be valid")
	}
}

func TestPruneRemovesOldSessions(t *testing.T) {
	store := openTestStore(t)
	base := time.Now()
	store.now = func() time.Time { return base.Add(-48 * time.Hour) }
	if err := store.Put("old", 1); err != nil {
		t.Fatalf("Put old: %v", err)
	}
	store.now = func() time.Time { return base }
	if err := store.Put("new", 2); err != nil {
		t.Fatalf("Put new: %v", err)
	}
	removed, err := store.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if ok, _ := store.Valid("old"); ok {
		t.Fatalf("old session should be pruned")
	}
	if ok, _ := store.Valid("new"); !ok {
		t.Fatalf("new session should survive")
	}
}
