package search

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/ranobe/internal/catalog"
	"github.com/pders01/ranobe/internal/debuglog"
	"github.com/pders01/ranobe/internal/storage"
)

type bleveEngine struct {
	store *storage.Store
	idx   bleve.Index
}

// NewBleveEngine creates or opens a Bleve index at indexPath and indexes
// every cached novel.
func NewBleveEngine(store *storage.Store, indexPath string) (*bleveEngine, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, err
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, err
		}
	}

	be := &bleveEngine{store: store, idx: idx}
	if err := be.reindexAll(); err != nil {
		idx.Close()
		return nil, err
	}
	return be, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	others := bleve.NewTextFieldMapping()
	others.Analyzer = standard.Name
	others.Store = false

	people := bleve.NewTextFieldMapping()
	people.Analyzer = standard.Name
	people.Store = false

	tags := bleve.NewTextFieldMapping()
	tags.Analyzer = standard.Name
	tags.Store = false

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = false

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("other_titles", others)
	dm.AddFieldMappingsAt("authors", people)
	dm.AddFieldMappingsAt("tags", tags)
	dm.AddFieldMappingsAt("description", desc)

	im.DefaultMapping = dm
	return im
}

// document folds every text field so queries match without diacritics.
func document(n *catalog.NovelDetail) map[string]any {
	return map[string]any{
		"title":        Fold(n.Title),
		"other_titles": Fold(strings.Join(n.OtherTitles, " ")),
		"authors":      Fold(strings.Join(append(append([]string{}, n.Authors...), n.Artists...), " ")),
		"tags":         Fold(strings.Join(n.Tags, " ")),
		"description":  Fold(n.DescriptionOrEmpty()),
	}
}

func (b *bleveEngine) reindexAll() error {
	novels, err := b.store.GetAllNovels()
	if err != nil {
		return err
	}
	batch := b.idx.NewBatch()
	for _, c := range novels {
		_ = batch.Index(c.Novel.ID, document(&c.Novel))
	}
	return b.idx.Batch(batch)
}

// Index adds or replaces a novel document.
func (b *bleveEngine) Index(n *catalog.NovelDetail) error {
	return b.idx.Index(n.ID, document(n))
}

func (b *bleveEngine) OnNovelRemoved(novelID string) {
	if err := b.idx.Delete(novelID); err != nil {
		debuglog.Warnf("removing %s from index: %v", novelID, err)
	}
}

var fieldBoosts = []struct {
	field string
	boost float64
}{
	{"title", 4.0},
	{"other_titles", 3.0},
	{"authors", 2.0},
	{"tags", 1.5},
	{"description", 1.0},
}

func (b *bleveEngine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		for _, fb := range fieldBoosts {
			m := bleve.NewMatchQuery(tok)
			m.SetField(fb.field)
			m.SetBoost(fb.boost)
			qs = append(qs, m)

			p := bleve.NewPrefixQuery(tok)
			p.SetField(fb.field)
			p.SetBoost(fb.boost * 0.8)
			qs = append(qs, p)
		}
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"title"}
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		r := &Result{Score: h.Score}
		if cached, err := b.store.GetNovel(h.ID); err == nil {
			r.Novel = cached.Novel.Brief()
		} else {
			r.Novel = catalog.NovelBrief{ID: h.ID}
			if t, ok := h.Fields["title"].(string); ok {
				r.Novel.Title = t
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// DocCount reports total documents in the index.
func (b *bleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	return int(n), err
}

func (b *bleveEngine) Close() error {
	return b.idx.Close()
}
