package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pders01/ranobe/internal/catalog"
	"github.com/pders01/ranobe/internal/debuglog"
)

const (
	defaultUserAgent = "ranobe/1.0 (terminal reader; github.com/pders01/ranobe)"
	defaultTimeout   = 30 * time.Second
	maxErrorBody     = 64 << 10
)

type Options struct {
	BaseURL           string
	Token             string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client talks to the novel data API. Failed requests are never retried.
type Client struct {
	baseURL   *url.URL
	token     string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:   base,
		token:     opts.Token,
		userAgent: ua,
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, burst),
	}, nil
}

// HasToken reports whether history calls can be made.
func (c *Client) HasToken() bool { return c.token != "" }

func (c *Client) ListNovels(ctx context.Context, q catalog.NovelQuery) ([]catalog.NovelBrief, error) {
	var out []catalog.NovelBrief
	if err := c.do(ctx, http.MethodGet, "/api/novels", q.Values(), nil, false, &out); err != nil {
		return nil, fmt.Errorf("listing novels: %w", err)
	}
	return out, nil
}

func (c *Client) GetNovel(ctx context.Context, id string) (*catalog.NovelDetail, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var out catalog.NovelDetail
	if err := c.do(ctx, http.MethodGet, "/api/novels/"+url.PathEscape(id), nil, nil, false, &out); err != nil {
		return nil, fmt.Errorf("fetching novel %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) GetChapter(ctx context.Context, id string) (*catalog.ChapterDetail, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var out catalog.ChapterDetail
	if err := c.do(ctx, http.MethodGet, "/api/chapters/"+url.PathEscape(id), nil, nil, false, &out); err != nil {
		return nil, fmt.Errorf("fetching chapter %s: %w", id, err)
	}
	return &out, nil
}

// LastRead returns the signed-in user's most recent history entry for a novel.
func (c *Client) LastRead(ctx context.Context, novelID string) (*catalog.HistoryEntry, error) {
	if err := checkID(novelID); err != nil {
		return nil, err
	}
	var out catalog.HistoryEntry
	if err := c.do(ctx, http.MethodGet, "/api/histories/last-read/"+url.PathEscape(novelID), nil, nil, true, &out); err != nil {
		return nil, fmt.Errorf("fetching last read for %s: %w", novelID, err)
	}
	return &out, nil
}

// RecordHistory marks chapterID as read in the user's server-side history.
func (c *Client) RecordHistory(ctx context.Context, novelID, chapterID string) error {
	if err := checkID(novelID); err != nil {
		return err
	}
	if err := checkID(chapterID); err != nil {
		return err
	}
	body := map[string]string{"novel_id": novelID, "chapter_id": chapterID}
	if err := c.do(ctx, http.MethodPost, "/api/histories", nil, body, true, nil); err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	return nil
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, auth bool, out any) error {
	if auth && c.token == "" {
		return ErrUnauthorized
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	debuglog.WithFields(map[string]interface{}{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debugf("api request")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Status: resp.StatusCode, Detail: parseDetail(data)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
