package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *Cache {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// at pins the cache clock.
func at(db *Cache, t time.Time) {
	db.now = func() time.Time { return t }
}

func TestCollectionRoundTrip(t *testing.T) {
	db := testDB(t)
	payload := json.RawMessage(`[{"_id":"1","title":"Award"}]`)

	if err := db.PutCollection("news", payload); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Collection("news")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Payload) != string(payload) {
		t.Errorf("payload = %s, want %s", got.Payload, payload)
	}
	if time.Since(got.FetchedAt) > time.Minute {
		t.Errorf("unexpected fetched_at %v", got.FetchedAt)
	}
}

func TestCollectionUpsertReplaces(t *testing.T) {
	db := testDB(t)
	db.PutCollection("news", json.RawMessage(`[]`))
	if err := db.PutCollection("news", json.RawMessage(`[{"_id":"2"}]`)); err != nil {
		t.Fatalf("second put: %v", err)
	}
	got, _ := db.Collection("news")
	if string(got.Payload) != `[{"_id":"2"}]` {
		t.Errorf("expected replaced payload, got %s", got.Payload)
	}
}

func TestMiss(t *testing.T) {
	db := testDB(t)
	if _, err := db.Collection("projects"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss for collection, got %v", err)
	}
	if _, err := db.Item("projects", "nope"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss for item, got %v", err)
	}
	if _, err := db.LastRefresh(); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss for last refresh, got %v", err)
	}
}

func TestItemRoundTrip(t *testing.T) {
	db := testDB(t)
	if err := db.PutItem("projects", "radar", json.RawMessage(`{"slug":"radar"}`)); err != nil {
		t.Fatalf("put item: %v", err)
	}
	got, err := db.Item("projects", "radar")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if string(got.Payload) != `{"slug":"radar"}` {
		t.Errorf("unexpected payload %s", got.Payload)
	}
	// same slug under another kind is independent
	if _, err := db.Item("news", "radar"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected miss for other kind, got %v", err)
	}
}

func TestNeedsRefresh(t *testing.T) {
	db := testDB(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	at(db, base)

	if !db.NeedsRefresh("news", time.Hour) {
		t.Error("expected NeedsRefresh=true for empty cache")
	}

	db.PutCollection("news", json.RawMessage(`[]`))
	if db.NeedsRefresh("news", time.Hour) {
		t.Error("expected NeedsRefresh=false right after storing")
	}
	if !db.NeedsRefresh("news", 0) {
		t.Error("expected NeedsRefresh=true with zero interval")
	}

	at(db, base.Add(2*time.Hour))
	if !db.NeedsRefresh("news", time.Hour) {
		t.Error("expected NeedsRefresh=true after interval elapsed")
	}
}

func TestInvalidate(t *testing.T) {
	db := testDB(t)
	db.PutCollection("news", json.RawMessage(`[]`))
	db.PutItem("news", "a", json.RawMessage(`{}`))
	db.PutCollection("projects", json.RawMessage(`[]`))

	if err := db.Invalidate("news"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := db.Collection("news"); !errors.Is(err, ErrMiss) {
		t.Errorf("news collection should be gone, got %v", err)
	}
	if _, err := db.Item("news", "a"); !errors.Is(err, ErrMiss) {
		t.Errorf("news item should be gone, got %v", err)
	}
	if _, err := db.Collection("projects"); err != nil {
		t.Errorf("projects should survive: %v", err)
	}
}

func TestPruneDeletesOldItems(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	at(db, now.Add(-48*time.Hour))
	db.PutItem("news", "old", json.RawMessage(`{}`))
	db.PutCollection("news", json.RawMessage(`[]`))
	at(db, now.Add(-1*time.Hour))
	db.PutItem("news", "fresh", json.RawMessage(`{}`))
	at(db, now)

	deleted, err := db.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned, got %d", deleted)
	}
	if _, err := db.Item("news", "fresh"); err != nil {
		t.Errorf("fresh item pruned: %v", err)
	}
	if _, err := db.Collection("news"); err != nil {
		t.Errorf("collections must survive prune: %v", err)
	}
}

func TestPruneNothingToDelete(t *testing.T) {
	db := testDB(t)
	db.PutItem("news", "a", json.RawMessage(`{}`))

	deleted, err := db.Prune(365 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 pruned, got %d", deleted)
	}
}

func TestLastRefresh(t *testing.T) {
	db := testDB(t)
	if err := db.SetLastRefresh(); err != nil {
		t.Fatalf("SetLastRefresh: %v", err)
	}
	got, err := db.LastRefresh()
	if err != nil {
		t.Fatalf("LastRefresh: %v", err)
	}
	if time.Since(got) > 2*time.Second {
		t.Errorf("last refresh too old: %v", got)
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	db.PutCollection("news", json.RawMessage(`[]`))
	db.PutCollection("projects", json.RawMessage(`[]`))
	db.PutItem("news", "a", json.RawMessage(`{}`))

	s, err := db.Stats(dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if s.Collections != 2 || s.Items != 1 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.SizeBytes == 0 {
		t.Error("expected non-zero db size")
	}
}

func TestOpenCreatesDir(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "deep", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("opening db in nested dir: %v", err)
	}
	db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}
