package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/ranobe/internal/config"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	bindings    config.KeyBindings
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	return &KeyHandler{app: app, config: cfg, bindings: cfg.Keys.Bindings, modifierKey: modifierKey}
}

// matches accepts a configured binding with or without the modifier.
func (kh *KeyHandler) matches(pressed, binding string) bool {
	return binding != "" && (pressed == binding || pressed == kh.modifierKey+binding)
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if k == "ctrl+c" {
		return kh.app, tea.Quit
	}
	// any key dismisses the last error
	kh.app.err = nil

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}
	if kh.app.view == ViewReader {
		return kh.handleReaderKeys(msg)
	}
	if kh.isFiltering() {
		return kh.delegateToCharm(msg)
	}
	if model, cmd, handled := kh.handleCustomKeys(k); handled {
		return model, cmd
	}
	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.view == ViewSearch && kh.app.searchInput.Focused()
}

func (kh *KeyHandler) activeList() *list.Model {
	switch kh.app.view {
	case ViewCatalog:
		return &kh.app.catalogList
	case ViewReleases:
		return &kh.app.releaseList
	case ViewNovel:
		return &kh.app.chapterList
	case ViewSearch:
		return &kh.app.searchList
	default:
		return nil
	}
}

func (kh *KeyHandler) isFiltering() bool {
	l := kh.activeList()
	return l != nil && l.FilterState() == list.Filtering
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return kh.navigateBack()
	case "enter":
		q := kh.sanitizeSearchInput(kh.app.searchInput.Value())
		if q == "" {
			return kh.app, nil
		}
		kh.app.pendingSearchQuery = q
		kh.app.searchSeq++
		return kh.app, kh.app.searchCatalog(q)
	case "tab", "down":
		if len(kh.app.searchList.Items()) > 0 {
			kh.app.searchInput.Blur()
			kh.app.searchList.Select(0)
		}
		return kh.app, nil
	default:
		return kh.delegateToTextInput(msg)
	}
}

// delegateToTextInput feeds the search box and schedules a debounced
// local search when the query changed.
func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	prev := kh.sanitizeSearchInput(kh.app.searchInput.Value())
	var cmd tea.Cmd
	kh.app.searchInput, cmd = kh.app.searchInput.Update(msg)

	next := kh.sanitizeSearchInput(kh.app.searchInput.Value())
	if next == prev {
		return kh.app, cmd
	}
	kh.app.pendingSearchQuery = next
	kh.app.searchSeq++
	seq := kh.app.searchSeq
	return kh.app, tea.Batch(cmd, kh.app.tick(searchDebounce, func(time.Time) tea.Msg {
		return searchDebounceFireMsg{seq: seq}
	}))
}

// handleCustomKeys handles the configured action keys outside the reader.
func (kh *KeyHandler) handleCustomKeys(k string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	b := kh.bindings

	switch a.view {
	case ViewDownloadConfirm:
		return kh.handleDownloadConfirmKeys(k)
	case ViewRemoveConfirm:
		return kh.handleRemoveConfirmKeys(k)
	}

	switch {
	case kh.matches(k, b.Quit):
		return a, tea.Quit, true
	case kh.matches(k, b.Back):
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case kh.matches(k, b.Search) && a.view != ViewSearch:
		model, cmd := kh.enterSearchMode()
		return model, cmd, true
	}

	switch a.view {
	case ViewCatalog:
		return kh.handleCatalogKeys(k)
	case ViewReleases:
		return kh.handleReleasesKeys(k)
	case ViewNovel:
		return kh.handleNovelKeys(k)
	case ViewSearch:
		return kh.handleSearchKeys(k)
	}
	return a, nil, false
}

func (kh *KeyHandler) handleCatalogKeys(k string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	b := kh.bindings
	switch {
	case kh.matches(k, b.Refresh):
		return a, a.refresh(), true
	case kh.matches(k, b.Releases):
		a.view = ViewReleases
		return a, a.loadReleases(), true
	case kh.matches(k, b.Remove):
		if i, ok := a.catalogList.SelectedItem().(novelItem); ok {
			n := i.novel
			a.novelToRemove = &n
			a.previousView = a.view
			a.view = ViewRemoveConfirm
		}
		return a, nil, true
	case kh.matches(k, b.Open):
		if i, ok := a.catalogList.SelectedItem().(novelItem); ok {
			return a, a.openWeb(i.novel.ID, ""), true
		}
		return a, nil, true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleReleasesKeys(k string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	b := kh.bindings
	switch {
	case kh.matches(k, b.Refresh):
		if a.deps.Feed == nil || !a.deps.Feed.Enabled() {
			return a, a.setStatus(MsgNoFeed, StatusWarn), true
		}
		return a, tea.Batch(a.startLoading(MsgRefreshing), a.refreshFeed(true)), true
	case kh.matches(k, b.Releases):
		a.view = ViewCatalog
		return a, nil, true
	case kh.matches(k, b.Open):
		if i, ok := a.releaseList.SelectedItem().(releaseItem); ok && i.release.Link != "" {
			return a, a.openTarget(i.release.Link), true
		}
		return a, nil, true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleNovelKeys(k string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	b := kh.bindings
	if a.novel == nil {
		return a, nil, false
	}
	switch {
	case k == "c":
		return a, a.continueReading(), true
	case k == "i":
		if img := a.novel.ImageOrEmpty(); img != "" {
			return a, a.openTarget(img), true
		}
		return a, a.setStatus("No cover image", StatusInfo), true
	case kh.matches(k, b.Download):
		a.previousView = a.view
		a.view = ViewDownloadConfirm
		return a, nil, true
	case kh.matches(k, b.Remove):
		n := a.novel.Brief()
		a.novelToRemove = &n
		a.previousView = a.view
		a.view = ViewRemoveConfirm
		return a, nil, true
	case kh.matches(k, b.Open):
		return a, a.openWeb(a.novel.ID, ""), true
	case kh.matches(k, b.Refresh):
		return a, a.openNovel(a.novel.ID), true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleSearchKeys(k string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	switch k {
	case "tab", "shift+tab", "/", "i":
		a.searchInput.Focus()
		return a, nil, true
	case "up":
		if a.searchList.Index() == 0 {
			a.searchInput.Focus()
			return a, nil, true
		}
	}
	return a, nil, false
}

func (kh *KeyHandler) handleDownloadConfirmKeys(k string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	switch {
	case kh.matches(k, kh.bindings.Back):
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case k == "enter" && !a.downloading:
		return a, a.startDownload(), true
	}
	return a, nil, true
}

func (kh *KeyHandler) handleRemoveConfirmKeys(k string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	switch {
	case kh.matches(k, kh.bindings.Back):
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case k == "enter" && a.novelToRemove != nil:
		return a, a.removeNovel(a.novelToRemove.ID), true
	}
	return a, nil, true
}

// delegateToCharm lets the active list handle navigation, filtering and
// help, then acts on enter.
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	l := kh.activeList()
	if l == nil {
		return a, nil
	}
	filtering := l.FilterState() == list.Filtering

	var cmd tea.Cmd
	*l, cmd = l.Update(msg)
	if msg.String() != "enter" || filtering {
		return a, cmd
	}

	switch item := l.SelectedItem().(type) {
	case novelItem:
		return a, tea.Batch(cmd, a.openNovel(item.novel.ID))
	case searchResultItem:
		return a, tea.Batch(cmd, a.openNovel(item.novel.ID))
	case chapterItem:
		return a, tea.Batch(cmd, a.openChapter(a.novel.ID, item.chapter.ID))
	case releaseItem:
		return a, tea.Batch(cmd, kh.openRelease(item))
	}
	return a, cmd
}

// openRelease marks the release seen and follows it into the reader, the
// novel page or, for links outside the catalog, the browser.
func (kh *KeyHandler) openRelease(item releaseItem) tea.Cmd {
	a := kh.app
	r := item.release
	if !r.Seen && a.deps.Feed != nil {
		if err := a.deps.Feed.MarkSeen(r.ID); err != nil {
			a.err = wrapErr("marking release", err)
		} else {
			r.Seen = true
		}
	}
	switch {
	case r.ChapterID != "":
		return a.openChapter(r.NovelID, r.ChapterID)
	case r.NovelID != "":
		return a.openNovel(r.NovelID)
	case r.Link != "":
		return a.openTarget(r.Link)
	}
	return nil
}

// handleReaderKeys drives the fixed reader key surface. Open panels take
// the keys first.
func (kh *KeyHandler) handleReaderKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	if a.showSettings {
		return a, kh.handleSettingsPanel(msg)
	}
	if a.showTOC {
		return a, kh.handleContentsPanel(msg)
	}
	if a.help.ShowAll {
		a.help.ShowAll = false
		return a, nil
	}

	k := a.readerKeys
	switch {
	case key.Matches(msg, k.Back):
		return a, a.leaveReader()
	case kh.matches(msg.String(), kh.bindings.Quit):
		return a, tea.Quit
	case kh.matches(msg.String(), kh.bindings.Help):
		a.help.ShowAll = true
		return a, nil
	}
	if a.chapter == nil {
		return a, nil
	}

	switch {
	case key.Matches(msg, k.Prev):
		return a, a.goToAdjacent(-1)
	case key.Matches(msg, k.Next):
		return a, a.goToAdjacent(1)
	case key.Matches(msg, k.Top):
		return a, a.scrollToTop()
	case key.Matches(msg, k.Bottom):
		return a, a.scrollToBottom()
	case key.Matches(msg, k.LineDown):
		return a, a.scrollBy(1)
	case key.Matches(msg, k.LineUp):
		return a, a.scrollBy(-1)
	case key.Matches(msg, k.PageDown):
		return a, a.scrollBy(a.viewport.Height)
	case key.Matches(msg, k.PageUp):
		return a, a.scrollBy(-a.viewport.Height)
	case key.Matches(msg, k.Settings):
		a.showSettings = true
		a.settingsCursor = 0
		return a, nil
	case key.Matches(msg, k.Contents):
		return a, a.openContents()
	case key.Matches(msg, k.AutoScroll):
		return a, a.cycleAutoScroll()
	case key.Matches(msg, k.Open):
		novelID := a.chapter.Novel.ID
		if a.nav != nil {
			novelID = a.nav.Novel.ID
		}
		return a, a.openWeb(novelID, a.chapter.ID)
	}
	return a, nil
}

func (kh *KeyHandler) handleSettingsPanel(msg tea.KeyMsg) tea.Cmd {
	a := kh.app
	p := a.panelKeys
	switch {
	case key.Matches(msg, p.Close), key.Matches(msg, a.readerKeys.Settings):
		a.showSettings = false
	case key.Matches(msg, p.Up):
		a.settingsCursor = (a.settingsCursor - 1 + int(settingsRowCount)) % int(settingsRowCount)
	case key.Matches(msg, p.Down):
		a.settingsCursor = (a.settingsCursor + 1) % int(settingsRowCount)
	case key.Matches(msg, p.Left):
		return a.adjustSetting(-1)
	case key.Matches(msg, p.Right), key.Matches(msg, p.Select):
		return a.adjustSetting(1)
	}
	return nil
}

func (kh *KeyHandler) handleContentsPanel(msg tea.KeyMsg) tea.Cmd {
	a := kh.app
	p := a.panelKeys
	n := len(a.tocRows())
	switch {
	case key.Matches(msg, p.Close), key.Matches(msg, a.readerKeys.Contents):
		a.showTOC = false
	case key.Matches(msg, p.Up):
		if a.tocCursor > 0 {
			a.tocCursor--
		}
	case key.Matches(msg, p.Down):
		if a.tocCursor < n-1 {
			a.tocCursor++
		}
	case key.Matches(msg, a.readerKeys.PageUp):
		a.tocCursor = max(a.tocCursor-10, 0)
	case key.Matches(msg, a.readerKeys.PageDown):
		a.tocCursor = max(min(a.tocCursor+10, n-1), 0)
	case key.Matches(msg, p.Select):
		return a.selectContentsEntry()
	}
	return nil
}

// navigateBack implements smart back navigation
func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	a := kh.app
	switch a.view {
	case ViewSearch:
		a.view = a.previousView
		a.searchInput.Reset()
		a.searchInput.Blur()
		a.pendingSearchQuery = ""
		a.searchSeq++
		return a, a.searchList.SetItems([]list.Item{})

	case ViewReleases:
		a.view = ViewCatalog
		return a, nil

	case ViewNovel:
		a.view = a.novelReturn
		if a.view == ViewNovel || a.view == ViewReader {
			a.view = ViewCatalog
		}
		return a, nil

	case ViewDownloadConfirm:
		if a.downloading {
			if a.downloadCancel != nil {
				a.downloadCancel()
			}
			return a, nil
		}
		a.view = ViewNovel
		return a, nil

	case ViewRemoveConfirm:
		a.view = a.previousView
		a.novelToRemove = nil
		return a, nil

	case ViewReader:
		return a, a.leaveReader()
	}
	return a, nil
}

// enterSearchMode transitions to search view
func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd) {
	a := kh.app
	a.previousView = a.view
	a.view = ViewSearch
	a.searchInput.Reset()
	a.pendingSearchQuery = ""
	cmd := a.searchList.SetItems([]list.Item{})
	return a, tea.Batch(cmd, a.searchInput.Focus())
}

// sanitizeSearchInput trims, flattens and limits search input.
func (kh *KeyHandler) sanitizeSearchInput(input string) string {
	input = strings.Join(strings.Fields(input), " ")
	if r := []rune(input); len(r) > 256 {
		input = string(r[:256])
	}
	return input
}

// GetHelpForCurrentView returns the action keys of the current view. The
// lists render their own navigation help.
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	b := kh.bindings
	a := kh.app
	switch a.view {
	case ViewCatalog:
		help := []string{"enter: open", b.Search + ": search", b.Refresh + ": refresh", b.Releases + ": releases"}
		if len(a.novels) > 0 {
			help = append(help, b.Remove+": remove", b.Open+": web")
		}
		return append(help, b.Quit+": quit")
	case ViewReleases:
		return []string{"enter: read", b.Open + ": open link", b.Refresh + ": refresh", b.Back + ": back"}
	case ViewNovel:
		return []string{"enter: read", "c: continue", b.Download + ": download", b.Remove + ": remove", b.Open + ": web", "i: cover", b.Back + ": back"}
	case ViewSearch:
		return []string{"enter: open", b.Back + ": back"}
	case ViewDownloadConfirm:
		if a.downloading {
			return []string{b.Back + ": cancel"}
		}
		return []string{"enter: start", b.Back + ": cancel"}
	case ViewRemoveConfirm:
		return []string{"enter: confirm", b.Back + ": cancel"}
	default:
		return []string{}
	}
}
