package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/pders01/ranobe/internal/api"
	"github.com/pders01/ranobe/internal/catalog"
	"github.com/pders01/ranobe/internal/debuglog"
	"github.com/pders01/ranobe/internal/reader"
	"github.com/pders01/ranobe/internal/storage"
)

// Source is the remote side of the library. *api.Client implements it.
type Source interface {
	ListNovels(ctx context.Context, q catalog.NovelQuery) ([]catalog.NovelBrief, error)
	GetNovel(ctx context.Context, id string) (*catalog.NovelDetail, error)
	GetChapter(ctx context.Context, id string) (*catalog.ChapterDetail, error)
}

// Indexer receives every novel the library caches.
type Indexer interface {
	Index(novel *catalog.NovelDetail) error
}

// Library serves novels and chapters from the API and keeps copies in the
// local store. Downloaded chapters are read offline.
type Library struct {
	source  Source
	store   *storage.Store
	indexer Indexer
}

func New(source Source, store *storage.Store) *Library {
	return &Library{source: source, store: store}
}

// SetIndexer attaches a search index that is updated whenever a novel is cached.
func (l *Library) SetIndexer(ix Indexer) { l.indexer = ix }

func (l *Library) Store() *storage.Store { return l.store }

func (l *Library) List(ctx context.Context, q catalog.NovelQuery) ([]catalog.NovelBrief, error) {
	if l.source == nil {
		return l.cachedBriefs()
	}
	return l.source.ListNovels(ctx, q)
}

func (l *Library) cachedBriefs() ([]catalog.NovelBrief, error) {
	cached, err := l.store.GetAllNovels()
	if err != nil {
		return nil, err
	}
	out := make([]catalog.NovelBrief, len(cached))
	for i, c := range cached {
		out[i] = c.Novel.Brief()
	}
	return out, nil
}

// Novel fetches a novel and refreshes its cached copy. When the API cannot
// be reached the cached copy is returned instead. Not-found is never masked.
func (l *Library) Novel(ctx context.Context, id string) (*catalog.NovelDetail, error) {
	if l.source == nil {
		return l.cachedNovel(id)
	}
	novel, err := l.source.GetNovel(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		if cached, cerr := l.cachedNovel(id); cerr == nil {
			debuglog.Warnf("serving cached novel %s: %v", id, err)
			return cached, nil
		}
		return nil, err
	}

	if err := l.store.SaveNovel(novel); err != nil {
		debuglog.Warnf("caching novel %s: %v", id, err)
	}
	if l.indexer != nil {
		if err := l.indexer.Index(novel); err != nil {
			debuglog.Warnf("indexing novel %s: %v", id, err)
		}
	}
	return novel, nil
}

func (l *Library) cachedNovel(id string) (*catalog.NovelDetail, error) {
	cached, err := l.store.GetNovel(id)
	if err != nil {
		return nil, err
	}
	return &cached.Novel, nil
}

// Chapter prefers a downloaded copy and falls back to the API.
func (l *Library) Chapter(ctx context.Context, id string) (*catalog.ChapterDetail, error) {
	if cached, err := l.store.GetChapter(id); err == nil {
		return &cached.Chapter, nil
	}
	if l.source == nil {
		return nil, fmt.Errorf("chapter %s: %w", id, storage.ErrNotFound)
	}
	return l.source.GetChapter(ctx, id)
}

// Progress reports download progress.
type Progress func(done, total int)

// Download stores every chapter of the novel locally. Chapters already
// downloaded are skipped. A failing chapter aborts the download; chapters
// fetched before it stay cached.
func (l *Library) Download(ctx context.Context, novelID string, progress Progress) (int, error) {
	if l.source == nil {
		return 0, errors.New("download needs an api source")
	}
	novel, err := l.Novel(ctx, novelID)
	if err != nil {
		return 0, err
	}

	have, err := l.store.ChapterIDs(novelID)
	if err != nil {
		return 0, fmt.Errorf("listing cached chapters: %w", err)
	}

	chapters := reader.Flatten(*novel)
	total := len(chapters)
	fetched := 0
	for i, brief := range chapters {
		if err := ctx.Err(); err != nil {
			return fetched, err
		}
		if !have[brief.ID] {
			ch, err := l.source.GetChapter(ctx, brief.ID)
			if err != nil {
				return fetched, fmt.Errorf("downloading chapter %s: %w", brief.ID, err)
			}
			if ch.Novel.ID == "" {
				ch.Novel.ID = novelID
			}
			if err := l.store.SaveChapters([]*catalog.ChapterDetail{ch}); err != nil {
				return fetched, fmt.Errorf("saving chapter %s: %w", brief.ID, err)
			}
			fetched++
		}
		if progress != nil {
			progress(i+1, total)
		}
	}

	debuglog.Infof("downloaded novel %s: %d new of %d chapters", novelID, fetched, total)
	return fetched, nil
}

// Downloaded reports which chapters of a novel are available offline.
func (l *Library) Downloaded(novelID string) (map[string]bool, error) {
	return l.store.ChapterIDs(novelID)
}

// Remove drops a novel and its downloaded chapters from the cache.
func (l *Library) Remove(novelID string) error {
	return l.store.DeleteNovel(novelID)
}

func isNotFound(err error) bool {
	return errors.Is(err, api.ErrNotFound) || errors.Is(err, storage.ErrNotFound)
}
