package storage

import (
	"time"

	"github.com/pders01/ranobe/internal/catalog"
)

type CachedNovel struct {
	Novel    catalog.NovelDetail `json:"novel"`
	CachedAt time.Time           `json:"cached_at"`
}

type CachedChapter struct {
	NovelID  string                `json:"novel_id"`
	Chapter  catalog.ChapterDetail `json:"chapter"`
	CachedAt time.Time             `json:"cached_at"`
}

// Release is one entry of the upstream "latest updates" feed.
type Release struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
	NovelID   string    `json:"novel_id,omitempty"`
	ChapterID string    `json:"chapter_id,omitempty"`
	Seen      bool      `json:"seen"`
}

type FetchMetadata struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	LastFetched  time.Time `json:"last_fetched"`
}
