package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pders01/ranobe/internal/catalog"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	tmpDir, err := os.MkdirTemp("", "store-test-*")
	if err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	store, err := NewStore(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatal(err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func strPtr(s string) *string { return &s }

func TestStore_LocalItems(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	if _, err := store.GetItem("reading-settings"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}

	if err := store.SetItem("reading-settings", `{"theme":"dark"}`); err != nil {
		t.Fatalf("failed to set item: %v", err)
	}

	got, err := store.GetItem("reading-settings")
	if err != nil {
		t.Fatalf("failed to get item: %v", err)
	}
	if got != `{"theme":"dark"}` {
		t.Errorf("unexpected value %q", got)
	}

	if err := store.RemoveItem("reading-settings"); err != nil {
		t.Fatalf("failed to remove item: %v", err)
	}
	if err := store.RemoveItem("reading-settings"); err != nil {
		t.Errorf("removing a missing key should not fail: %v", err)
	}
	if _, err := store.GetItem("reading-settings"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestStore_KeysByPrefix(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	for _, k := range []string{"reading-position-b", "reading-position-a", "reading-settings", "other"} {
		if err := store.SetItem(k, "{}"); err != nil {
			t.Fatal(err)
		}
	}

	keys, err := store.Keys("reading-position-")
	if err != nil {
		t.Fatalf("failed to list keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "reading-position-a" || keys[1] != "reading-position-b" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestStore_SaveAndGetNovel(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	novel := &catalog.NovelDetail{
		ID:          "n1",
		Title:       "Tensei Shitara",
		Description: strPtr("A slime story"),
		Volumes: []catalog.Volume{
			{ID: "v1", NovelID: "n1", Chapters: []catalog.ChapterBrief{{ID: "c1", VolumeID: "v1"}}},
		},
	}

	if err := store.SaveNovel(novel); err != nil {
		t.Fatalf("failed to save novel: %v", err)
	}

	cached, err := store.GetNovel("n1")
	if err != nil {
		t.Fatalf("failed to get novel: %v", err)
	}
	if cached.Novel.Title != novel.Title {
		t.Errorf("expected title %s, got %s", novel.Title, cached.Novel.Title)
	}
	if cached.Novel.ChapterCount() != 1 {
		t.Errorf("expected 1 chapter, got %d", cached.Novel.ChapterCount())
	}
	if cached.CachedAt.IsZero() {
		t.Error("expected cached_at to be set")
	}

	if _, err := store.GetNovel("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_GetAllNovels_SortedByTitle(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	for _, n := range []*catalog.NovelDetail{
		{ID: "1", Title: "overlord"},
		{ID: "2", Title: "Arifureta"},
		{ID: "3", Title: "Mushoku Tensei"},
	} {
		if err := store.SaveNovel(n); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.GetAllNovels()
	if err != nil {
		t.Fatalf("failed to get novels: %v", err)
	}
	want := []string{"Arifureta", "Mushoku Tensei", "overlord"}
	for i, title := range want {
		if all[i].Novel.Title != title {
			t.Errorf("position %d: expected %s, got %s", i, title, all[i].Novel.Title)
		}
	}
}

func TestStore_DeleteNovelRemovesChapters(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	if err := store.SaveNovel(&catalog.NovelDetail{ID: "n1", Title: "A"}); err != nil {
		t.Fatal(err)
	}

	chapters := []*catalog.ChapterDetail{
		{ID: "c1", Novel: catalog.NovelInfo{ID: "n1"}},
		{ID: "c2", Novel: catalog.NovelInfo{ID: "n1"}},
		{ID: "c3", Novel: catalog.NovelInfo{ID: "n2"}},
	}
	if err := store.SaveChapters(chapters); err != nil {
		t.Fatalf("failed to save chapters: %v", err)
	}

	ids, err := store.ChapterIDs("n1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || !ids["c1"] || !ids["c2"] {
		t.Errorf("unexpected chapter ids %v", ids)
	}

	if err := store.DeleteNovel("n1"); err != nil {
		t.Fatalf("failed to delete novel: %v", err)
	}

	if _, err := store.GetChapter("c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected c1 removed, got %v", err)
	}
	if _, err := store.GetChapter("c3"); err != nil {
		t.Errorf("chapter of another novel should remain: %v", err)
	}
}

func TestStore_Releases(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	releases := make([]*Release, 10)
	for i := 0; i < 10; i++ {
		releases[i] = &Release{
			ID:        fmt.Sprintf("r%d", i),
			Title:     fmt.Sprintf("Chapter %d", i),
			Published: time.Now().Add(time.Duration(-i) * time.Hour),
		}
	}
	if err := store.SaveReleases(releases); err != nil {
		t.Fatalf("failed to save releases: %v", err)
	}

	if err := store.MarkReleaseSeen("r0"); err != nil {
		t.Fatalf("failed to mark seen: %v", err)
	}

	// A refetch must not reset the seen flag.
	if err := store.SaveReleases([]*Release{{ID: "r0", Title: "Chapter 0", Published: releases[0].Published}}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetReleases(3)
	if err != nil {
		t.Fatalf("failed to get releases: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 releases, got %d", len(got))
	}
	if got[0].ID != "r0" || !got[0].Seen {
		t.Errorf("expected newest release r0 marked seen, got %+v", got[0])
	}

	if err := store.MarkReleaseSeen("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_FetchMetadata(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	meta := &FetchMetadata{URL: "http://example.com/rss", ETag: `"abc"`, LastModified: "Wed, 01 Jan 2025 00:00:00 GMT"}
	if err := store.SaveFetchMetadata(meta); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetFetchMetadata(meta.URL)
	if err != nil {
		t.Fatalf("failed to get metadata: %v", err)
	}
	if got.ETag != meta.ETag {
		t.Errorf("expected etag %s, got %s", meta.ETag, got.ETag)
	}
}
