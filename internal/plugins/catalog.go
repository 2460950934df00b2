package plugins

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// CatalogResolver understands the web frontend routes /novel/{id} and
// /novel/{id}/chapter/{chapterId} as well as the data API routes
// /api/novels/{id} and /api/chapters/{id}.
type CatalogResolver struct {
	hosts map[string]bool
}

// NewCatalogResolver accepts links on the hosts of the given base URLs.
// With no usable base URL any host is accepted.
func NewCatalogResolver(baseURLs ...string) *CatalogResolver {
	hosts := make(map[string]bool)
	for _, b := range baseURLs {
		if u, err := url.Parse(b); err == nil && u.Host != "" {
			hosts[strings.ToLower(u.Host)] = true
		}
	}
	return &CatalogResolver{hosts: hosts}
}

func (c *CatalogResolver) Name() string { return "catalog" }

func (c *CatalogResolver) Priority() int { return 10 }

func (c *CatalogResolver) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if len(c.hosts) > 0 && !c.hosts[strings.ToLower(u.Host)] {
		return false
	}
	_, _, ok := matchRoute(u.Path)
	return ok
}

func (c *CatalogResolver) Resolve(_ context.Context, rawURL string) (*Target, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", rawURL, err)
	}
	novelID, chapterID, ok := matchRoute(u.Path)
	if !ok {
		return nil, ErrNoResolver
	}
	for _, id := range []string{novelID, chapterID} {
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid id %q in %s: %w", id, rawURL, err)
		}
	}
	return &Target{URL: rawURL, NovelID: novelID, ChapterID: chapterID}, nil
}

// matchRoute extracts ids from a catalog path. /api/chapters/{id} yields
// only a chapter id.
func matchRoute(path string) (novelID, chapterID string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "novel":
		return parts[1], "", parts[1] != ""
	case len(parts) == 4 && parts[0] == "novel" && parts[2] == "chapter":
		return parts[1], parts[3], parts[1] != "" && parts[3] != ""
	case len(parts) == 3 && parts[0] == "api" && parts[1] == "novels":
		return parts[2], "", parts[2] != ""
	case len(parts) == 3 && parts[0] == "api" && parts[1] == "chapters":
		return "", parts[2], parts[2] != ""
	}
	return "", "", false
}

// WebURL builds the frontend link for a novel, or for one of its chapters
// when chapterID is set.
func WebURL(base, novelID, chapterID string) string {
	base = strings.TrimRight(base, "/")
	if chapterID == "" {
		return fmt.Sprintf("%s/novel/%s", base, novelID)
	}
	return fmt.Sprintf("%s/novel/%s/chapter/%s", base, novelID, chapterID)
}
