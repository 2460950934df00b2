package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/ranobe/internal/api"
	"github.com/pders01/ranobe/internal/catalog"
	"github.com/pders01/ranobe/internal/config"
	"github.com/pders01/ranobe/internal/content"
	"github.com/pders01/ranobe/internal/feed"
	"github.com/pders01/ranobe/internal/library"
	"github.com/pders01/ranobe/internal/plugins"
	"github.com/pders01/ranobe/internal/reader"
	"github.com/pders01/ranobe/internal/search"
	"github.com/pders01/ranobe/internal/storage"
)

const (
	testNovelID = "11111111-1111-4111-8111-111111111111"
	testCh1     = "22222222-2222-4222-8222-222222222221"
	testCh2     = "22222222-2222-4222-8222-222222222222"
	testCh3     = "22222222-2222-4222-8222-222222222223"
	missingID   = "33333333-3333-4333-8333-333333333333"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func testNovel() *catalog.NovelDetail {
	return &catalog.NovelDetail{
		ID:          testNovelID,
		Title:       "That Time I Got Reincarnated",
		Authors:     []string{"Fuse"},
		Status:      strPtr("ongoing"),
		Description: strPtr("<p>A <b>slime</b> story.</p>"),
		ImageURL:    strPtr("https://example.com/covers/slime.jpg"),
		Meta:        catalog.Meta{"rating": 4.5},
		Volumes: []catalog.Volume{
			{ID: "v2", NovelID: testNovelID, Title: strPtr("Volume 2"), Order: intPtr(2), Chapters: []catalog.ChapterBrief{
				{ID: testCh3, VolumeID: "v2", Title: strPtr("Reunion"), Order: intPtr(1)},
			}},
			{ID: "v1", NovelID: testNovelID, Title: strPtr("Volume 1"), Order: intPtr(1), Chapters: []catalog.ChapterBrief{
				{ID: testCh2, VolumeID: "v1", Title: strPtr("The Beginning"), Order: intPtr(2)},
				{ID: testCh1, VolumeID: "v1", Title: strPtr("Prologue"), Order: intPtr(1)},
			}},
		},
	}
}

func testChapter(id, title, volume string) *catalog.ChapterDetail {
	var b strings.Builder
	for i := 1; i <= 80; i++ {
		fmt.Fprintf(&b, "<p>Paragraph %d of %s.</p>", i, title)
	}
	return &catalog.ChapterDetail{
		ID:       id,
		VolumeID: volume,
		Title:    strPtr(title),
		Content:  strPtr(b.String()),
		Volume:   catalog.VolumeBrief{ID: volume, NovelID: testNovelID},
		Novel:    catalog.NovelInfo{ID: testNovelID, Title: "That Time I Got Reincarnated"},
	}
}

type fakeSource struct {
	mu       sync.Mutex
	novels   map[string]*catalog.NovelDetail
	chapters map[string]*catalog.ChapterDetail
	queries  []catalog.NovelQuery
}

func newFakeSource() *fakeSource {
	n := testNovel()
	return &fakeSource{
		novels: map[string]*catalog.NovelDetail{n.ID: n},
		chapters: map[string]*catalog.ChapterDetail{
			testCh1: testChapter(testCh1, "Prologue", "v1"),
			testCh2: testChapter(testCh2, "The Beginning", "v1"),
			testCh3: testChapter(testCh3, "Reunion", "v2"),
		},
	}
}

func (f *fakeSource) ListNovels(_ context.Context, q catalog.NovelQuery) ([]catalog.NovelBrief, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	var out []catalog.NovelBrief
	for _, n := range f.novels {
		if q.Keyword != "" && !strings.Contains(strings.ToLower(n.Title), strings.ToLower(q.Keyword)) {
			continue
		}
		out = append(out, n.Brief())
	}
	return out, nil
}

func (f *fakeSource) GetNovel(_ context.Context, id string) (*catalog.NovelDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.novels[id]
	if !ok {
		return nil, fmt.Errorf("novel %s: %w", id, api.ErrNotFound)
	}
	cp := *n
	return &cp, nil
}

func (f *fakeSource) GetChapter(_ context.Context, id string) (*catalog.ChapterDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.chapters[id]
	if !ok {
		return nil, fmt.Errorf("chapter %s: %w", id, api.ErrNotFound)
	}
	cp := *ch
	return &cp, nil
}

type fakeHistory struct {
	mu       sync.Mutex
	token    bool
	last     string
	recorded []string
}

func (h *fakeHistory) HasToken() bool { return h.token }

func (h *fakeHistory) LastRead(_ context.Context, novelID string) (*catalog.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == "" {
		return nil, api.ErrNotFound
	}
	return &catalog.HistoryEntry{NovelID: novelID, ChapterID: h.last}, nil
}

func (h *fakeHistory) RecordHistory(_ context.Context, _, chapterID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recorded = append(h.recorded, chapterID)
	return nil
}

func (h *fakeHistory) Recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.recorded...)
}

type fixture struct {
	app       *App
	cfg       *config.Config
	src       *fakeSource
	store     *storage.Store
	lib       *library.Library
	settings  *reader.SettingsStore
	positions *reader.PositionMemory
	history   *fakeHistory
}

// instantTick fires short timers at once and drops long ones, so tests
// see frames but never wait on status or debounce timers.
func instantTick(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
	if d >= 100*time.Millisecond {
		return nil
	}
	return func() tea.Msg { return fn(time.Now()) }
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.TestConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "tui.db")

	store, err := storage.NewStore(cfg.Database.Path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		cfg:       cfg,
		src:       newFakeSource(),
		store:     store,
		settings:  reader.NewSettingsStoreWithDefaults(store, cfg.ReadingDefaults()),
		positions: reader.NewPositionMemory(store),
		history:   &fakeHistory{},
	}
	f.lib = library.New(f.src, store)
	f.app = NewApp(cfg, Deps{
		Library:   f.lib,
		Searcher:  search.NewEngine(store),
		Feed:      feed.NewManager(store, cfg, plugins.NewRegistry()),
		Settings:  f.settings,
		Positions: f.positions,
		Renderer:  content.NewPlainRenderer(),
		History:   f.history,
	})
	f.app.tick = instantTick
	f.app.searchInput.Cursor.SetMode(cursor.CursorStatic)
	t.Cleanup(f.app.Close)

	f.app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return f
}

// drain runs cmd and every command it produces, feeding the messages back
// into the app. Spinner ticks are dropped.
func drain(t *testing.T, a *App, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 500, "command loop did not settle")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := runCmd(t, c).(type) {
		case nil, tea.QuitMsg, spinner.TickMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, next := a.Update(msg)
			queue = append(queue, next)
		}
	}
}

func runCmd(t *testing.T, c tea.Cmd) tea.Msg {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- c() }()
	select {
	case msg := <-done:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("command did not return")
		return nil
	}
}

func press(t *testing.T, a *App, keys ...string) {
	t.Helper()
	for _, k := range keys {
		_, cmd := a.Update(keyMsg(k))
		drain(t, a, cmd)
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "pgdown":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	case "pgup":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestInitLoadsCatalog(t *testing.T) {
	f := newFixture(t)
	drain(t, f.app, f.app.Init())

	require.Len(t, f.app.novels, 1)
	assert.Equal(t, testNovelID, f.app.novels[0].ID)
	assert.Len(t, f.app.catalogList.Items(), 1)
	assert.False(t, f.app.loading)

	require.NotEmpty(t, f.src.queries)
	assert.Equal(t, f.cfg.UI.PageSize, f.src.queries[0].Limit)
}

func TestViewStateTransitions(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(*testing.T, *fixture)
		keys         []string
		expectedView View
	}{
		{
			name:         "catalog to novel on enter",
			keys:         []string{"enter"},
			expectedView: ViewNovel,
		},
		{
			name:         "novel back to catalog on esc",
			keys:         []string{"enter", "esc"},
			expectedView: ViewCatalog,
		},
		{
			name:         "novel to reader on enter",
			keys:         []string{"enter", "enter"},
			expectedView: ViewReader,
		},
		{
			name:         "reader back to novel on esc",
			keys:         []string{"enter", "enter", "esc"},
			expectedView: ViewNovel,
		},
		{
			name:         "catalog to releases",
			keys:         []string{"u"},
			expectedView: ViewReleases,
		},
		{
			name:         "releases back to catalog",
			keys:         []string{"u", "esc"},
			expectedView: ViewCatalog,
		},
		{
			name:         "catalog to search",
			keys:         []string{"/"},
			expectedView: ViewSearch,
		},
		{
			name:         "search back to catalog",
			keys:         []string{"/", "esc"},
			expectedView: ViewCatalog,
		},
		{
			name:         "catalog to remove confirm",
			keys:         []string{"x"},
			expectedView: ViewRemoveConfirm,
		},
		{
			name:         "remove confirm cancelled",
			keys:         []string{"x", "esc"},
			expectedView: ViewCatalog,
		},
		{
			name:         "novel to download confirm",
			keys:         []string{"enter", "d"},
			expectedView: ViewDownloadConfirm,
		},
		{
			name:         "download confirm cancelled",
			keys:         []string{"enter", "d", "esc"},
			expectedView: ViewNovel,
		},
		{
			name:         "modifier binding works",
			keys:         []string{"ctrl+r"},
			expectedView: ViewCatalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			drain(t, f.app, f.app.Init())
			if tt.setup != nil {
				tt.setup(t, f)
			}
			press(t, f.app, tt.keys...)
			assert.Equal(t, tt.expectedView, f.app.view)
		})
	}
}

func TestQuitKeys(t *testing.T) {
	f := newFixture(t)
	for _, k := range []string{"q", "ctrl+c"} {
		_, cmd := f.app.Update(keyMsg(k))
		require.NotNil(t, cmd, k)
		assert.Equal(t, tea.QuitMsg{}, cmd(), k)
	}
}

func TestNovelViewShowsChapters(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.positions.Save(testCh2, 10, 42))

	drain(t, f.app, f.app.openNovel(testNovelID))

	require.NotNil(t, f.app.novel)
	items := f.app.chapterList.Items()
	require.Len(t, items, 3)

	var titles []string
	for _, it := range items {
		titles = append(titles, it.(chapterItem).chapter.DisplayTitle())
	}
	assert.Equal(t, []string{"Prologue", "The Beginning", "Reunion"}, titles)

	second := items[1].(chapterItem)
	assert.True(t, second.hasProgress)
	assert.InDelta(t, 42, second.progress, 0.01)
	assert.Equal(t, "Volume 1", second.volume)
	assert.Contains(t, second.Description(), "42% read")

	view := f.app.View()
	assert.Contains(t, view, "That Time I Got Reincarnated")
	assert.Contains(t, view, "story.")
	assert.Contains(t, view, "Fuse")
}

func TestNovelNotFound(t *testing.T) {
	f := newFixture(t)
	drain(t, f.app, f.app.openNovel(missingID))

	assert.Nil(t, f.app.novel)
	assert.Nil(t, f.app.err, "not found is a page, not an error")
	assert.Contains(t, f.app.View(), "Novel not found")
}

func TestContinueReading(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*fixture)
		expected string
	}{
		{
			name:     "first chapter without history",
			expected: testCh1,
		},
		{
			name: "latest local position",
			setup: func(f *fixture) {
				require.NoError(t, f.positions.Save(testCh3, 5, 10))
			},
			expected: testCh3,
		},
		{
			name: "account history wins when signed in",
			setup: func(f *fixture) {
				require.NoError(t, f.positions.Save(testCh3, 5, 10))
				f.history.token = true
				f.history.last = testCh2
			},
			expected: testCh2,
		},
		{
			name: "history without token is ignored",
			setup: func(f *fixture) {
				f.history.last = testCh2
			},
			expected: testCh1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			drain(t, f.app, f.app.openNovel(testNovelID))
			press(t, f.app, "c")

			assert.Equal(t, ViewReader, f.app.view)
			require.NotNil(t, f.app.chapter)
			assert.Equal(t, tt.expected, f.app.chapter.ID)
		})
	}
}

func TestDownloadFlow(t *testing.T) {
	f := newFixture(t)
	drain(t, f.app, f.app.openNovel(testNovelID))

	press(t, f.app, "d")
	require.Equal(t, ViewDownloadConfirm, f.app.view)
	assert.Contains(t, f.app.View(), "Download every chapter")

	press(t, f.app, "enter")

	assert.False(t, f.app.downloading)
	assert.Equal(t, ViewNovel, f.app.view)
	assert.Nil(t, f.app.err)
	assert.Contains(t, f.app.status, "3 new of 3 chapters")

	ids, err := f.lib.Downloaded(testNovelID)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Len(t, f.app.downloaded, 3)
	assert.True(t, f.app.chapterList.Items()[0].(chapterItem).downloaded)
}

func TestRemoveFlow(t *testing.T) {
	f := newFixture(t)
	drain(t, f.app, f.app.openNovel(testNovelID))
	drain(t, f.app, f.app.startDownload())

	press(t, f.app, "x")
	require.Equal(t, ViewRemoveConfirm, f.app.view)
	assert.Contains(t, f.app.View(), "That Time I Got Reincarnated")

	press(t, f.app, "enter")
	assert.Equal(t, ViewCatalog, f.app.view)
	assert.Nil(t, f.app.novel)
	assert.Equal(t, MsgNovelRemoved, f.app.status)

	ids, err := f.lib.Downloaded(testNovelID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSearchLocalAndCatalog(t *testing.T) {
	f := newFixture(t)
	// the local index only knows cached novels
	drain(t, f.app, f.app.openNovel(testNovelID))
	press(t, f.app, "esc", "/")
	require.Equal(t, ViewSearch, f.app.view)
	require.True(t, f.app.searchInput.Focused())

	press(t, f.app, "s", "l", "i", "m", "e")
	assert.Equal(t, "slime", f.app.pendingSearchQuery)

	// the debounce timer is dropped in tests; fire it by hand
	_, cmd := f.app.Update(searchDebounceFireMsg{seq: f.app.searchSeq})
	drain(t, f.app, cmd)

	items := f.app.searchList.Items()
	require.Len(t, items, 1)
	local := items[0].(searchResultItem)
	assert.False(t, local.remote)
	assert.Equal(t, testNovelID, local.novel.ID)

	press(t, f.app, "enter")
	items = f.app.searchList.Items()
	require.Len(t, items, 0, "catalog keyword search is by title")

	f.app.searchInput.SetValue("reincarnated")
	press(t, f.app, "enter")
	items = f.app.searchList.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].(searchResultItem).remote)

	press(t, f.app, "tab", "enter")
	assert.Equal(t, ViewNovel, f.app.view)
}

func TestStaleSearchResultsIgnored(t *testing.T) {
	f := newFixture(t)
	press(t, f.app, "/")
	f.app.pendingSearchQuery = "new"

	f.app.Update(searchResultsMsg{query: "old", results: []searchResultItem{{novel: catalog.NovelBrief{ID: "x"}}}})
	assert.Empty(t, f.app.searchList.Items())
}

func TestReleasesOpenChapter(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SaveReleases([]*storage.Release{
		{ID: "r1", Title: "Reunion released", NovelID: testNovelID, ChapterID: testCh3, Published: time.Now()},
	}))
	drain(t, f.app, f.app.loadReleases())
	require.Len(t, f.app.releases, 1)
	f.app.view = ViewReleases

	assert.Contains(t, f.app.releaseList.Items()[0].(releaseItem).Title(), "●")
	assert.Equal(t, "› latest releases (1 new)", f.app.releaseList.Title)

	press(t, f.app, "enter")
	assert.Equal(t, ViewReader, f.app.view)
	require.NotNil(t, f.app.chapter)
	assert.Equal(t, testCh3, f.app.chapter.ID)
	assert.True(t, f.app.releases[0].Seen)

	drain(t, f.app, f.app.loadReleases())
	assert.Equal(t, "› latest releases", f.app.releaseList.Title)
}

func TestReleasesWithoutFeed(t *testing.T) {
	f := newFixture(t)
	press(t, f.app, "u")
	assert.Contains(t, f.app.View(), MsgNoFeed)

	press(t, f.app, "r")
	assert.Equal(t, MsgNoFeed, f.app.status)
}

func TestStatusClearsBySequence(t *testing.T) {
	f := newFixture(t)
	f.app.setStatus("first", StatusInfo)
	seq := f.app.statusSeq
	f.app.setStatus("second", StatusInfo)

	f.app.Update(statusClearMsg{seq: seq})
	assert.Equal(t, "second", f.app.status)

	f.app.Update(statusClearMsg{seq: f.app.statusSeq})
	assert.Empty(t, f.app.status)
}

func TestErrorDismissedByKey(t *testing.T) {
	f := newFixture(t)
	f.app.Update(errorMsg{err: fmt.Errorf("boom")})
	assert.Contains(t, f.app.View(), "boom")

	press(t, f.app, "j")
	assert.Nil(t, f.app.err)
}

func TestWelcomeOnEmptyCatalog(t *testing.T) {
	f := newFixture(t)
	f.src.novels = map[string]*catalog.NovelDetail{}
	drain(t, f.app, f.app.Init())

	assert.Contains(t, f.app.View(), "The catalog is empty")
}

func TestStartAt(t *testing.T) {
	tests := []struct {
		name      string
		chapterID string
		want      View
	}{
		{"novel link", "", ViewNovel},
		{"chapter link", testCh2, ViewReader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.app.StartAt(testNovelID, tt.chapterID)
			drain(t, f.app, f.app.Init())

			assert.Equal(t, tt.want, f.app.view)
			if tt.chapterID == "" {
				require.NotNil(t, f.app.novel)
				assert.Equal(t, testNovelID, f.app.novel.ID)
			} else {
				require.NotNil(t, f.app.chapter)
				require.NotNil(t, f.app.nav)
				assert.Equal(t, tt.chapterID, f.app.chapter.ID)
				assert.Equal(t, ViewCatalog, f.app.readerReturn)
			}
		})
	}
}
