package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/ranobe/internal/catalog"
	"github.com/pders01/ranobe/internal/config"
	"github.com/pders01/ranobe/internal/content"
	"github.com/pders01/ranobe/internal/feed"
	"github.com/pders01/ranobe/internal/library"
	"github.com/pders01/ranobe/internal/media"
	"github.com/pders01/ranobe/internal/reader"
	"github.com/pders01/ranobe/internal/search"
	"github.com/pders01/ranobe/internal/storage"
)

// HistoryClient syncs reading history with the API. *api.Client implements it.
type HistoryClient interface {
	HasToken() bool
	LastRead(ctx context.Context, novelID string) (*catalog.HistoryEntry, error)
	RecordHistory(ctx context.Context, novelID, chapterID string) error
}

// Deps are the services the TUI drives. Feed, Launcher and History are optional.
type Deps struct {
	Library   *library.Library
	Searcher  search.Searcher
	Feed      *feed.Manager
	Settings  *reader.SettingsStore
	Positions *reader.PositionMemory
	Renderer  *content.Renderer
	Launcher  *media.Launcher
	History   HistoryClient
}

const (
	searchDebounce     = 200 * time.Millisecond
	statusTTL          = 4 * time.Second
	autoScrollInterval = 120 * time.Millisecond
	searchLimit        = 20
	// progress, navbar, action strip, footer and status line
	readerChromeLines = 5
)

type App struct {
	config     *config.Config
	deps       Deps
	ctx        context.Context
	cancel     context.CancelFunc
	keyHandler *KeyHandler
	// startNovel and startChapter are set by StartAt
	startNovel   string
	startChapter string
	// tick schedules timed messages; tests replace it to avoid sleeping
	tick func(time.Duration, func(time.Time) tea.Msg) tea.Cmd

	catalogList list.Model
	releaseList list.Model
	searchList  list.Model
	chapterList list.Model
	searchInput textinput.Model
	viewport    viewport.Model
	help        help.Model
	spinner     spinner.Model
	progress    progress.Model
	downloadBar progress.Model
	readerKeys  readerKeyMap
	panelKeys   panelKeyMap

	view         View
	previousView View
	novelReturn  View
	readerReturn View

	novels   []catalog.NovelBrief
	releases []*storage.Release

	// novel view
	novel            *catalog.NovelDetail
	novelErr         error
	downloaded       map[string]bool
	novelDescription string
	novelToRemove    *catalog.NovelBrief

	// reader view
	session        *reader.Session
	chapter        *catalog.ChapterDetail
	nav            *reader.Navigation
	chapterErr     error
	loadingChapter bool
	scroll         reader.ScrollState
	settings       reader.Settings
	showSettings   bool
	settingsCursor int
	showTOC        bool
	tocCursor      int
	autoScrollSeq  int
	renderSeq      int
	restored       bool

	// download
	downloading    bool
	downloadDone   int
	downloadTotal  int
	downloadCh     <-chan tea.Msg
	downloadCancel context.CancelFunc

	// search
	searchSeq          int
	pendingSearchQuery string

	status     string
	statusKind StatusKind
	statusSeq  int
	loading    bool

	width  int
	height int
	err    error
}

func newList(title string, showHelp bool) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetShowHelp(showHelp)
	return l
}

func NewApp(cfg *config.Config, deps Deps) *App {
	catalogList := newList("› catalog", true)
	catalogList.SetFilteringEnabled(true)

	releaseList := newList(releasesTitle(0), true)
	releaseList.SetFilteringEnabled(true)

	searchList := newList("› search results", false)
	searchList.SetFilteringEnabled(false)

	chapterList := newList("› chapters", false)
	chapterList.SetFilteringEnabled(true)

	si := textinput.New()
	si.Placeholder = "Search titles, authors, tags…"
	si.CharLimit = 256

	ctx, cancel := context.WithCancel(context.Background())

	settings := cfg.ReadingDefaults()
	if deps.Settings != nil {
		settings = deps.Settings.Get()
	}

	app := &App{
		config:       cfg,
		deps:         deps,
		tick:         tea.Tick,
		ctx:          ctx,
		cancel:       cancel,
		catalogList:  catalogList,
		releaseList:  releaseList,
		searchList:   searchList,
		chapterList:  chapterList,
		searchInput:  si,
		viewport:     viewport.New(0, 0),
		help:         help.New(),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress:     newProgressBar(settings.Theme, 0),
		downloadBar:  progress.New(progress.WithDefaultGradient()),
		readerKeys:   newReaderKeyMap(),
		panelKeys:    newPanelKeyMap(),
		view:         ViewCatalog,
		previousView: ViewCatalog,
		novelReturn:  ViewCatalog,
		readerReturn: ViewNovel,
		settings:     settings,
		scroll:       reader.ScrollState{IsNavbarVisible: true},
	}
	app.spinner.Style = lipgloss.NewStyle().Foreground(AccentColor)
	app.keyHandler = NewKeyHandler(app, cfg)

	return app
}

// Close ends the reading session and cancels background work. Call it after
// the program exits.
func (a *App) Close() {
	a.closeSession()
	if a.downloadCancel != nil {
		a.downloadCancel()
	}
	a.cancel()
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		a.startLoading(MsgLoadingCatalog),
		a.loadNovels(),
		a.loadReleases(),
	}
	if a.deps.Feed != nil && a.deps.Feed.Enabled() {
		cmds = append(cmds, a.refreshFeed(false))
	}
	switch {
	case a.startChapter != "":
		cmds = append(cmds, a.openChapter(a.startNovel, a.startChapter))
	case a.startNovel != "":
		cmds = append(cmds, a.openNovel(a.startNovel))
	}
	return tea.Batch(cmds...)
}

// StartAt makes the program open a novel, or one of its chapters when
// chapterID is set, instead of the catalog. It must be called before Init.
func (a *App) StartAt(novelID, chapterID string) {
	a.startNovel, a.startChapter = novelID, chapterID
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return a, a.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case tea.MouseMsg:
		if a.view == ViewReader && !a.showSettings && !a.showTOC {
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			return a, tea.Batch(cmd, a.observeScroll())
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loading && !a.downloading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case statusClearMsg:
		if msg.seq == a.statusSeq {
			a.status = ""
		}
		return a, nil

	case novelsLoadedMsg:
		a.stopLoading()
		a.novels = msg.novels
		items := make([]list.Item, len(msg.novels))
		for i, n := range msg.novels {
			items[i] = novelItem{novel: n}
		}
		return a, a.catalogList.SetItems(items)

	case releasesLoadedMsg:
		a.releases = msg.releases
		items := make([]list.Item, len(msg.releases))
		for i, r := range msg.releases {
			items[i] = releaseItem{release: r}
		}
		a.releaseList.Title = releasesTitle(msg.unseen)
		return a, a.releaseList.SetItems(items)

	case feedRefreshedMsg:
		if msg.err != nil {
			return a, a.setStatus(wrapErr("updates feed", msg.err).Error(), StatusWarn)
		}
		cmds = append(cmds, a.loadReleases())
		if msg.forced {
			cmds = append(cmds, a.setStatus(MsgRefreshSummary(len(a.novels), msg.fresh, a.docCount()), StatusSuccess))
		}
		return a, tea.Batch(cmds...)

	case novelLoadedMsg:
		return a, a.handleNovelLoaded(msg)

	case continueTargetMsg:
		if a.novel == nil || a.novel.ID != msg.novelID {
			return a, nil
		}
		return a, a.openChapter(msg.novelID, msg.chapterID)

	case chapterLoadedMsg:
		return a, a.handleChapterLoaded(msg)

	case chapterRenderedMsg:
		return a, a.handleChapterRendered(msg)

	case positionRestoreMsg:
		return a, a.handlePositionRestore(msg)

	case frameMsg:
		a.handleFrame(msg)
		return a, nil

	case autoScrollTickMsg:
		return a, a.handleAutoScroll(msg)

	case searchDebounceFireMsg:
		if msg.seq != a.searchSeq || a.view != ViewSearch {
			return a, nil
		}
		q := a.pendingSearchQuery
		if len([]rune(q)) < 2 {
			return a, a.searchList.SetItems(nil)
		}
		return a, a.performSearch(q)

	case searchResultsMsg:
		if a.view != ViewSearch || msg.query != a.pendingSearchQuery {
			return a, nil
		}
		a.stopLoading()
		items := make([]list.Item, len(msg.results))
		for i, r := range msg.results {
			items[i] = r
		}
		cmds = append(cmds, a.searchList.SetItems(items))
		if len(items) == 0 {
			cmds = append(cmds, a.setStatus(MsgNoResults, StatusInfo))
		} else {
			cmds = append(cmds, a.setStatus(MsgResultsCount(len(items)), StatusInfo))
		}
		return a, tea.Batch(cmds...)

	case downloadProgressMsg:
		a.downloadDone, a.downloadTotal = msg.done, msg.total
		return a, waitForDownload(a.downloadCh)

	case downloadDoneMsg:
		return a, a.handleDownloadDone(msg)

	case novelRemovedMsg:
		a.stopLoading()
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		if a.novel != nil && a.novel.ID == msg.novelID {
			a.novel = nil
			a.view = ViewCatalog
		} else if a.view == ViewRemoveConfirm {
			a.view = a.previousView
		}
		a.novelToRemove = nil
		return a, tea.Batch(a.loadNovels(), a.setStatus(MsgNovelRemoved, StatusSuccess))

	case statusMsg:
		return a, a.setStatus(msg.text, msg.kind)

	case errorMsg:
		a.stopLoading()
		a.err = msg.err
		return a, nil
	}

	// cursor blink and other input internals
	if a.view == ViewSearch {
		var cmd tea.Cmd
		a.searchInput, cmd = a.searchInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

// resize lays out every view for a new terminal size.
func (a *App) resize(width, height int) tea.Cmd {
	a.width = width
	a.height = height

	listHeight := max(height-2, 1)
	a.catalogList.SetSize(width, listHeight)
	a.releaseList.SetSize(width, listHeight)
	a.searchList.SetSize(width, max(height-8, 5))
	a.chapterList.SetSize(width, max(listHeight-a.novelHeaderHeight(), 3))
	a.searchInput.Width = max(width-8, 10)

	a.viewport.Width = width
	a.viewport.Height = max(height-readerChromeLines, 1)
	a.progress.Width = width
	a.downloadBar.Width = min(max(width/2, 20), 60)
	a.help.Width = width

	if a.view == ViewReader && a.chapter != nil && a.session != nil {
		return a.renderChapter(true)
	}
	return nil
}

func (a *App) startLoading(text string) tea.Cmd {
	a.loading = true
	a.status = text
	a.statusKind = StatusInfo
	a.err = nil
	return a.spinner.Tick
}

func (a *App) stopLoading() {
	if a.loading {
		a.loading = false
		a.status = ""
	}
}

// setStatus shows text until it is replaced or statusTTL passes.
func (a *App) setStatus(text string, kind StatusKind) tea.Cmd {
	a.statusSeq++
	seq := a.statusSeq
	a.status = text
	a.statusKind = kind
	a.loading = false
	return a.tick(statusTTL, func(time.Time) tea.Msg { return statusClearMsg{seq: seq} })
}

func (a *App) docCount() int {
	if ds, ok := a.deps.Searcher.(search.DebugStatser); ok {
		if n, err := ds.DocCount(); err == nil {
			return n
		}
	}
	return -1
}

func (a *App) View() string {
	var body string

	switch a.view {
	case ViewCatalog:
		if len(a.novels) == 0 && !a.loading {
			body = renderCentered(a.width, a.height-2, GetWelcomeMessage(a.config.Keys.Bindings.Refresh))
		} else {
			body = a.catalogList.View()
		}
	case ViewReleases:
		if len(a.releases) == 0 {
			msg := "No releases yet"
			if a.deps.Feed == nil || !a.deps.Feed.Enabled() {
				msg = MsgNoFeed
			}
			body = renderCentered(a.width, a.height-2, renderMuted(msg))
		} else {
			body = a.releaseList.View()
		}
	case ViewSearch:
		body = a.searchView()
	case ViewNovel:
		body = a.novelView()
	case ViewReader:
		return a.readerView()
	case ViewDownloadConfirm:
		body = a.downloadView()
	case ViewRemoveConfirm:
		title := "this novel"
		if a.novelToRemove != nil {
			title = a.novelToRemove.Title
		}
		body = renderModal(a.width, a.height-2, "⚠ Remove Novel", "Remove this novel from the library?", title,
			"Downloaded chapters are deleted. Reading positions stay.", "enter: confirm • esc: cancel")
	}

	separator := SeparatorStyle.Render(strings.Repeat("─", max(a.width, 0)))
	return lipgloss.JoinVertical(lipgloss.Top, ContentWrapper(a.width, max(a.height-2, 0)).Render(body), separator, a.statusLine())
}

// statusLine shows, in order of priority, the last error, a running
// operation, a transient status or the view's key hints.
func (a *App) statusLine() string {
	style := StatusBarStyle.Width(a.width)
	switch {
	case a.err != nil:
		return style.Render(ErrorMessageStyle.Render(fmt.Sprintf("✗ %v", a.err)))
	case a.loading || a.downloading:
		return style.Render(a.spinner.View() + " " + a.status)
	case a.status != "":
		return style.Render(a.statusKind.style().Render(a.status))
	}
	return style.Render(strings.Join(a.keyHandler.GetHelpForCurrentView(), " • "))
}

func (a *App) searchView() string {
	header := renderHeader("› search", "local index as you type • enter searches the catalog", a.width)

	helpText := "Type to search • Tab/↓: results • Enter: catalog search • Esc: back"
	if !a.searchInput.Focused() {
		if len(a.searchList.Items()) > 0 {
			helpText = "↑↓: navigate • Enter: open • Tab/↑: search box • Esc: back"
		} else {
			helpText = "No results found • Tab/↑: search box • Esc: back"
		}
	}

	return lipgloss.JoinVertical(
		lipgloss.Top,
		header,
		"",
		renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width),
		renderMuted(helpText),
		"",
		a.searchList.View(),
	)
}

func (a *App) downloadView() string {
	title := "this novel"
	chapters := 0
	if a.novel != nil {
		title = a.novel.Title
		chapters = a.novel.ChapterCount()
	}
	if !a.downloading {
		have := len(a.downloaded)
		note := fmt.Sprintf("%s chapters, %s already offline.", content.GroupedCount(chapters), content.GroupedCount(have))
		return renderModal(a.width, a.height-2, "⬇ Download", "Download every chapter for offline reading?", title,
			note, "enter: start • esc: cancel")
	}

	pct := 0.0
	if a.downloadTotal > 0 {
		pct = float64(a.downloadDone) / float64(a.downloadTotal)
	}
	return renderCentered(a.width, a.height-2, lipgloss.JoinVertical(
		lipgloss.Center,
		HeaderStyle.Render("⬇ "+truncateEnd(title, a.width-6)),
		"",
		a.downloadBar.ViewAs(pct),
		"",
		renderMuted(fmt.Sprintf("%d / %d chapters", a.downloadDone, a.downloadTotal)),
		"",
		renderHelp("esc: cancel"),
	))
}

type novelItem struct {
	novel catalog.NovelBrief
}

func (i novelItem) Title() string { return i.novel.Title }

func (i novelItem) Description() string {
	var parts []string
	if len(i.novel.Authors) > 0 {
		parts = append(parts, strings.Join(i.novel.Authors, ", "))
	}
	if s := i.novel.StatusOrEmpty(); s != "" {
		parts = append(parts, s)
	}
	if r := i.novel.Rating(); r > 0 {
		parts = append(parts, fmt.Sprintf("★ %.1f", r))
	}
	if i.novel.LastUpdated != nil {
		parts = append(parts, TimeStyle.Render(i.novel.LastUpdated.Format("Jan 2, 2006")))
	}
	return strings.Join(parts, " • ")
}

func (i novelItem) FilterValue() string {
	return i.novel.Title + " " + strings.Join(i.novel.Authors, " ")
}

type releaseItem struct {
	release *storage.Release
}

func (i releaseItem) Title() string {
	if i.release.Seen {
		return ReadItemStyle.Render(i.release.Title)
	}
	return UnreadItemStyle.Render("● " + i.release.Title)
}

func (i releaseItem) Description() string {
	desc := truncateEnd(i.release.Summary, 80)
	timeStr := ""
	if !i.release.Published.IsZero() {
		timeStr = TimeStyle.Render(" • " + i.release.Published.Format("Jan 2, 15:04"))
	}
	return lipgloss.NewStyle().Foreground(MutedColor).Render(desc) + timeStr
}

func (i releaseItem) FilterValue() string { return i.release.Title }

type searchResultItem struct {
	novel   catalog.NovelBrief
	snippet string
	remote  bool
}

func (i searchResultItem) Title() string {
	prefix := "📖 "
	if i.remote {
		prefix = "🌐 "
	}
	return NovelTitleStyle.Render(prefix + i.novel.Title)
}

func (i searchResultItem) Description() string {
	if i.snippet != "" {
		return renderMuted(truncateEnd(i.snippet, 80))
	}
	return renderMuted(strings.Join(i.novel.Authors, ", "))
}

func (i searchResultItem) FilterValue() string { return i.novel.Title }

type chapterItem struct {
	chapter     catalog.ChapterBrief
	volume      string
	downloaded  bool
	progress    float64
	hasProgress bool
}

func (i chapterItem) Title() string {
	title := i.chapter.DisplayTitle()
	if i.downloaded {
		title = "✓ " + title
	}
	if i.hasProgress {
		return ReadItemStyle.Render(title)
	}
	return title
}

func (i chapterItem) Description() string {
	parts := []string{}
	if i.volume != "" {
		parts = append(parts, i.volume)
	}
	if v := i.chapter.Views(); v > 0 {
		parts = append(parts, content.CompactCount(v)+" views")
	}
	if i.hasProgress {
		parts = append(parts, fmt.Sprintf("%.0f%% read", i.progress))
	}
	return renderMuted(strings.Join(parts, " • "))
}

func (i chapterItem) FilterValue() string { return i.chapter.DisplayTitle() + " " + i.volume }

type novelsLoadedMsg struct {
	novels []catalog.NovelBrief
}

type releasesLoadedMsg struct {
	releases []*storage.Release
	unseen   int
}

func releasesTitle(unseen int) string {
	if unseen > 0 {
		return fmt.Sprintf("› latest releases (%d new)", unseen)
	}
	return "› latest releases"
}

type feedRefreshedMsg struct {
	fresh  int
	forced bool
	err    error
}

type novelLoadedMsg struct {
	novel      *catalog.NovelDetail
	downloaded map[string]bool
	positions  map[string]reader.ReadingPosition
	err        error
}

type continueTargetMsg struct {
	novelID   string
	chapterID string
}

type searchDebounceFireMsg struct {
	seq int
}

type searchResultsMsg struct {
	query   string
	results []searchResultItem
}

type downloadProgressMsg struct {
	done, total int
}

type downloadDoneMsg struct {
	novelID string
	title   string
	fetched int
	total   int
	err     error
}

type novelRemovedMsg struct {
	novelID string
	err     error
}

type statusMsg struct {
	text string
	kind StatusKind
}

type statusClearMsg struct {
	seq int
}

type errorMsg struct {
	err error
}
