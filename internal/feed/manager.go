package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pders01/ranobe/internal/config"
	"github.com/pders01/ranobe/internal/debuglog"
	"github.com/pders01/ranobe/internal/plugins"
	"github.com/pders01/ranobe/internal/storage"
	"github.com/pders01/ranobe/internal/validation"
)

// ErrNoFeed is returned by Refresh when no updates feed is configured.
var ErrNoFeed = errors.New("no updates feed configured")

// Manager keeps the "latest releases" list in sync with the upstream feed.
type Manager struct {
	store        *storage.Store
	fetcher      *Fetcher
	parser       *Parser
	feedURL      string
	interval     time.Duration
	urlValidator *validation.URLValidator

	mu      sync.Mutex
	retryAt time.Time
}

func NewManager(store *storage.Store, cfg *config.Config, resolver *plugins.Registry) *Manager {
	v := validation.NewURLValidator()
	// A feed served by the configured API host is as trusted as the API.
	if sameHost(cfg.API.UpdatesFeed, cfg.API.BaseURL) {
		v.AllowLocalhost = true
		v.AllowPrivateIPs = true
	}
	return &Manager{
		store:        store,
		fetcher:      NewFetcher(cfg),
		parser:       NewParser(resolver),
		feedURL:      cfg.API.UpdatesFeed,
		interval:     cfg.API.UpdatesRefresh,
		urlValidator: v,
	}
}

func sameHost(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil || ua.Hostname() == "" {
		return false
	}
	return strings.EqualFold(ua.Hostname(), ub.Hostname())
}

func (m *Manager) Enabled() bool {
	return m.feedURL != ""
}

// Refresh fetches the feed and stores its releases, returning how many were
// not stored before. Unless force is set the call is a no-op within the
// refresh interval or while the server asked us to back off.
func (m *Manager) Refresh(ctx context.Context, force bool) (int, error) {
	if !m.Enabled() {
		return 0, ErrNoFeed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	feedURL, err := m.urlValidator.ValidateAndNormalize(m.feedURL)
	if err != nil {
		return 0, fmt.Errorf("invalid feed URL: %w", err)
	}

	if !force && time.Now().Before(m.retryAt) {
		debuglog.Debugf("feed refresh deferred until %s", m.retryAt.Format(time.RFC3339))
		return 0, nil
	}

	meta, err := m.store.GetFetchMetadata(feedURL)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		meta = &storage.FetchMetadata{URL: feedURL}
	case err != nil:
		return 0, fmt.Errorf("getting feed metadata: %w", err)
	}

	if !force && !meta.LastFetched.IsZero() && time.Since(meta.LastFetched) < m.interval {
		return 0, nil
	}

	m.fetcher.SetIgnoreCache(force)
	resp, updated, err := m.fetcher.Fetch(ctx, meta)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && (httpErr.Status == http.StatusTooManyRequests || httpErr.Status == http.StatusServiceUnavailable) {
			m.retryAt = time.Now().Add(httpErr.RetryAfter)
		}
		return 0, fmt.Errorf("fetching feed: %w", err)
	}

	if !updated || resp == nil {
		meta.LastFetched = time.Now()
		if err := m.store.SaveFetchMetadata(meta); err != nil {
			return 0, fmt.Errorf("saving feed metadata: %w", err)
		}
		return 0, nil
	}
	defer resp.Body.Close()

	releases, err := m.parser.Parse(ctx, resp.Body)
	if err != nil {
		return 0, err
	}

	known, err := m.store.GetReleases(0)
	if err != nil {
		return 0, fmt.Errorf("loading releases: %w", err)
	}
	seen := make(map[string]bool, len(known))
	for _, r := range known {
		seen[r.ID] = true
	}
	fresh := 0
	for _, r := range releases {
		if !seen[r.ID] {
			fresh++
		}
	}

	if err := m.store.SaveReleases(releases); err != nil {
		return 0, fmt.Errorf("saving releases: %w", err)
	}

	m.fetcher.UpdateMetadata(meta, resp)
	if err := m.store.SaveFetchMetadata(meta); err != nil {
		return 0, fmt.Errorf("saving feed metadata: %w", err)
	}

	debuglog.WithFields(map[string]any{"url": feedURL, "items": len(releases), "new": fresh}).Infof("feed refreshed")
	return fresh, nil
}

// Latest returns stored releases, newest first.
func (m *Manager) Latest(limit int) ([]*storage.Release, error) {
	return m.store.GetReleases(limit)
}

func (m *Manager) MarkSeen(id string) error {
	return m.store.MarkReleaseSeen(id)
}

// UnseenCount reports releases not yet opened.
func (m *Manager) UnseenCount() (int, error) {
	releases, err := m.store.GetReleases(0)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range releases {
		if !r.Seen {
			n++
		}
	}
	return n, nil
}
