package plugins

import (
	"context"
	"errors"
	"sort"
)

// ErrNoResolver is returned when no registered resolver handles a URL.
var ErrNoResolver = errors.New("no resolver for url")

// Target is what a link points at inside the catalog. ChapterID is empty
// for links to a novel page.
type Target struct {
	URL       string
	NovelID   string
	ChapterID string
	// Resolver names the resolver that produced the target
	Resolver string
}

// IsChapter reports whether the target is a single chapter.
func (t *Target) IsChapter() bool {
	return t != nil && t.ChapterID != ""
}

// Resolver maps a URL from the outside world (browser address bar, feed
// entry, shared link) to a catalog target.
type Resolver interface {
	Name() string

	// CanHandle reports whether Resolve should be attempted for url
	CanHandle(url string) bool

	Resolve(ctx context.Context, url string) (*Target, error)

	// Priority orders resolvers that can handle the same URL (higher wins)
	Priority() int
}

// Registry manages all registered resolvers
type Registry struct {
	resolvers []Resolver
}

func NewRegistry() *Registry {
	return &Registry{resolvers: make([]Resolver, 0)}
}

// Register adds r and keeps the list ordered by descending priority.
func (r *Registry) Register(res Resolver) {
	r.resolvers = append(r.resolvers, res)
	sort.SliceStable(r.resolvers, func(i, j int) bool {
		return r.resolvers[i].Priority() > r.resolvers[j].Priority()
	})
}

// Find returns the highest priority resolver that can handle url, or nil.
func (r *Registry) Find(url string) Resolver {
	for _, res := range r.resolvers {
		if res.CanHandle(url) {
			return res
		}
	}
	return nil
}

// Resolve runs the best resolver for url.
func (r *Registry) Resolve(ctx context.Context, url string) (*Target, error) {
	res := r.Find(url)
	if res == nil {
		return nil, ErrNoResolver
	}
	t, err := res.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}
	t.Resolver = res.Name()
	return t, nil
}

// List returns a copy of the registered resolvers in priority order.
func (r *Registry) List() []Resolver {
	return append([]Resolver(nil), r.resolvers...)
}
