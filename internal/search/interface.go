package search

import (
	"github.com/pders01/ranobe/internal/catalog"
	"github.com/pders01/ranobe/internal/debuglog"
	"github.com/pders01/ranobe/internal/storage"
)

// Searcher defines the minimal search API used by the TUI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// Indexer can be implemented by search engines that maintain an external
// index and want to be told about novels entering the cache.
type Indexer interface {
	Index(novel *catalog.NovelDetail) error
}

// Remover is notified when a novel leaves the cache.
type Remover interface {
	OnNovelRemoved(novelID string)
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}

// Open returns the bleve engine for indexPath, or the in-process engine when
// no path is configured or the index cannot be opened.
func Open(store *storage.Store, indexPath string) Searcher {
	if indexPath == "" {
		return NewEngine(store)
	}
	eng, err := NewBleveEngine(store, indexPath)
	if err != nil {
		debuglog.Warnf("search index %s unavailable, using fallback: %v", indexPath, err)
		return NewEngine(store)
	}
	return eng
}
