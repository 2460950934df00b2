package feed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/pders01/ranobe/internal/debuglog"
	"github.com/pders01/ranobe/internal/plugins"
	"github.com/pders01/ranobe/internal/storage"
)

const maxSummaryLength = 280

type Parser struct {
	parser   *gofeed.Parser
	resolver *plugins.Registry
	strip    *bluemonday.Policy
}

// NewParser returns a parser that links releases to catalog ids through
// resolver. A nil resolver leaves NovelID and ChapterID empty.
func NewParser(resolver *plugins.Registry) *Parser {
	return &Parser{
		parser:   gofeed.NewParser(),
		resolver: resolver,
		strip:    bluemonday.StrictPolicy(),
	}
}

func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]*storage.Release, error) {
	feed, err := p.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	releases := make([]*storage.Release, 0, len(feed.Items))
	for _, item := range feed.Items {
		rel := &storage.Release{
			ID:      releaseID(item),
			Title:   strings.TrimSpace(item.Title),
			Summary: p.summary(item),
			Link:    item.Link,
		}

		switch {
		case item.PublishedParsed != nil:
			rel.Published = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			rel.Published = *item.UpdatedParsed
		}

		if p.resolver != nil && item.Link != "" {
			if target, err := p.resolver.Resolve(ctx, item.Link); err == nil {
				rel.NovelID = target.NovelID
				rel.ChapterID = target.ChapterID
			} else {
				debuglog.Debugf("release link %s not resolved: %v", item.Link, err)
			}
		}

		releases = append(releases, rel)
	}

	return releases, nil
}

// summary returns the item description as plain text.
func (p *Parser) summary(item *gofeed.Item) string {
	text := item.Description
	if text == "" {
		text = item.Content
	}
	text = html.UnescapeString(p.strip.Sanitize(text))
	text = strings.Join(strings.Fields(text), " ")

	if r := []rune(text); len(r) > maxSummaryLength {
		text = string(r[:maxSummaryLength-1]) + "…"
	}
	return text
}

// releaseID is stable across fetches: the guid when present, else the link,
// else title plus publication date.
func releaseID(item *gofeed.Item) string {
	key := item.GUID
	if key == "" {
		key = item.Link
	}
	if key == "" {
		key = item.Title + "|" + item.Published
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))[:16]
}
