package feed

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pders01/ranobe/internal/config"
	"github.com/pders01/ranobe/internal/storage"
)

// HTTPError is a non-2xx, non-304 answer from the feed server.
type HTTPError struct {
	Status     int
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.Status)
}

type Fetcher struct {
	client            *http.Client
	userAgent         string
	defaultRetryAfter time.Duration
	ignoreCache       bool
}

func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{
		client:            &http.Client{Timeout: cfg.API.HTTPTimeout},
		userAgent:         cfg.API.UserAgent,
		defaultRetryAfter: cfg.API.DefaultRetryAfter,
	}
}

// SetIgnoreCache makes Fetch skip the conditional request headers.
func (f *Fetcher) SetIgnoreCache(ignore bool) {
	f.ignoreCache = ignore
}

// Fetch performs a conditional GET for meta.URL. A 304 answer yields a nil
// response and updated=false.
func (f *Fetcher) Fetch(ctx context.Context, meta *storage.FetchMetadata) (*http.Response, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	if !f.ignoreCache {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetching feed: %w", err)
	}

	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		return nil, false, nil
	}

	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, false, &HTTPError{Status: resp.StatusCode, RetryAfter: f.RetryAfter(resp)}
	}

	return resp, true, nil
}

func (f *Fetcher) UpdateMetadata(meta *storage.FetchMetadata, resp *http.Response) {
	if etag := resp.Header.Get("ETag"); etag != "" {
		meta.ETag = etag
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		meta.LastModified = lastMod
	}
	meta.LastFetched = time.Now()
}

// RetryAfter reads Retry-After as delay seconds or an HTTP date and falls
// back to the configured default.
func (f *Fetcher) RetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return f.defaultRetryAfter
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
		return 0
	}
	return f.defaultRetryAfter
}
