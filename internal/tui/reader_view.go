package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/ranobe/internal/catalog"
	"github.com/pders01/ranobe/internal/content"
	"github.com/pders01/ranobe/internal/debuglog"
	"github.com/pders01/ranobe/internal/reader"
)

type chapterLoadedMsg struct {
	gen     uint64
	chapter *catalog.ChapterDetail
	nav     *reader.Navigation
	err     error
}

type chapterRenderedMsg struct {
	gen     uint64
	seq     int
	content string
	// progress to keep after a re-layout, negative on first render
	progress float64
	err      error
}

type positionRestoreMsg struct {
	gen uint64
}

type frameMsg struct {
	gen uint64
}

type autoScrollTickMsg struct {
	gen uint64
	seq int
}

type settingsRow int

const (
	rowTheme settingsRow = iota
	rowFont
	rowFontSize
	rowLineHeight
	rowWidth
	rowAlign
	rowAutoScroll
	rowReset
	settingsRowCount
)

type tocRow struct {
	chapter catalog.ChapterBrief
	volume  string
}

func newProgressBar(theme reader.Theme, width int) progress.Model {
	p := PaletteFor(theme)
	bar := progress.New(progress.WithGradient(p.ProgressFrom, p.ProgressTo), progress.WithoutPercentage())
	bar.Width = width
	return bar
}

// openChapter tears down the current reading session, starts a new one
// for chapterID and loads the chapter. novelID may be empty when only the
// chapter is known; it is then taken from the chapter record.
func (a *App) openChapter(novelID, chapterID string) tea.Cmd {
	a.closeSession()
	novel := a.novel
	if a.nav != nil && (novelID == "" || a.nav.Novel.ID == novelID) {
		novel = &a.nav.Novel
	}
	if a.view != ViewReader {
		a.readerReturn = a.view
	}
	a.view = ViewReader
	a.showSettings, a.showTOC = false, false
	a.chapter, a.nav, a.chapterErr = nil, nil, nil
	a.loadingChapter = true
	a.restored = false
	a.scroll = reader.ScrollState{IsNavbarVisible: true}
	a.viewport.SetContent("")
	a.viewport.GotoTop()

	a.session = reader.NewSession(a.ctx, reader.SessionDeps{
		Settings:  a.deps.Settings,
		Positions: a.deps.Positions,
		Options:   a.config.SessionOptions(),
	}, chapterID)
	a.settings = a.session.Settings()
	a.session.OnSettings(func(s reader.Settings) { a.settings = s })
	a.session.OnScroll(func(st reader.ScrollState) { a.scroll = st })

	gen := a.session.Generation()
	lib := a.deps.Library
	load := func() tea.Msg {
		ch, err := lib.Chapter(a.ctx, chapterID)
		if err != nil {
			return chapterLoadedMsg{gen: gen, err: err}
		}
		nid := novelID
		if nid == "" {
			nid = ch.Novel.ID
		}
		if nid != "" && (novel == nil || novel.ID != nid) {
			n, err := lib.Novel(a.ctx, nid)
			if err != nil {
				debuglog.Warnf("loading novel %s for navigation: %v", nid, err)
				novel = nil
			} else {
				novel = n
			}
		}
		var nav *reader.Navigation
		if novel != nil {
			nav = reader.Resolve(*novel, chapterID)
		}
		return chapterLoadedMsg{gen: gen, chapter: ch, nav: nav}
	}
	return tea.Batch(a.startLoading(MsgLoadingChapter), load)
}

// closeSession stops the session's autosave and subscriptions and any
// running auto scroll.
func (a *App) closeSession() {
	a.autoScrollSeq++
	if a.session == nil {
		return
	}
	a.session.Close()
	a.session = nil
}

func (a *App) sessionGen() (uint64, bool) {
	if a.session == nil {
		return 0, false
	}
	return a.session.Generation(), true
}

func (a *App) isCurrent(gen uint64) bool {
	cur, ok := a.sessionGen()
	return ok && cur == gen
}

func (a *App) handleChapterLoaded(msg chapterLoadedMsg) tea.Cmd {
	if !a.isCurrent(msg.gen) {
		return nil
	}
	a.stopLoading()
	a.loadingChapter = false
	if msg.err != nil {
		a.chapterErr = msg.err
		if !isNotFound(msg.err) {
			a.err = wrapErr("loading chapter", msg.err)
		}
		return nil
	}
	a.chapter = msg.chapter
	a.nav = msg.nav

	novelID := msg.chapter.Novel.ID
	if a.nav != nil {
		novelID = a.nav.Novel.ID
	}
	return tea.Batch(a.renderChapter(false), a.recordHistory(novelID, msg.chapter.ID))
}

// renderChapter lays the chapter out for the current width and settings.
// With keepProgress the reader stays at the same proportion of the text.
func (a *App) renderChapter(keepProgress bool) tea.Cmd {
	gen, ok := a.sessionGen()
	if !ok || a.chapter == nil || a.deps.Renderer == nil {
		return nil
	}
	a.renderSeq++
	seq := a.renderSeq
	ch := a.chapter
	settings := a.settings
	width := a.viewport.Width
	keep := -1.0
	if keepProgress {
		keep = reader.ComputeProgress(a.scrollSample())
	}
	renderer := a.deps.Renderer
	return func() tea.Msg {
		body, err := renderer.Render(ch, settings, width)
		if err != nil {
			return chapterRenderedMsg{gen: gen, seq: seq, err: err}
		}
		return chapterRenderedMsg{gen: gen, seq: seq, content: layoutChapter(ch, body, settings, width), progress: keep}
	}
}

// layoutChapter centers the header block and body in the viewport.
func layoutChapter(ch *catalog.ChapterDetail, body string, s reader.Settings, width int) string {
	p := PaletteFor(s.Theme)
	h := content.ChapterHeader(ch)
	wrap := s.WrapWidth(width)

	title := h.Chapter
	if h.Volume != "" {
		title = h.Volume + " · " + h.Chapter
	}
	rows := []string{
		p.muted().Render(truncateEnd(h.Novel, wrap)),
		p.accent().Render(truncateEnd(title, wrap)),
		p.muted().Render(truncateEnd(h.Stats, wrap)),
		"",
	}
	if strings.TrimSpace(body) == "" {
		rows = append(rows, "", p.muted().Italic(true).Render("This chapter has no content yet."))
	} else {
		rows = append(rows, strings.TrimRight(body, "\n"))
	}
	rows = append(rows, "", "")

	block := lipgloss.NewStyle().Width(wrap).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	if width <= wrap {
		return block
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, block)
}

func (a *App) handleChapterRendered(msg chapterRenderedMsg) tea.Cmd {
	if !a.isCurrent(msg.gen) || msg.seq != a.renderSeq {
		return nil
	}
	a.stopLoading()
	if msg.err != nil {
		a.err = wrapErr("rendering chapter", msg.err)
		return nil
	}
	a.viewport.SetContent(msg.content)

	if !a.restored {
		// The saved offset is applied one message after the content is laid out.
		gen := msg.gen
		return func() tea.Msg { return positionRestoreMsg{gen: gen} }
	}
	if msg.progress >= 0 {
		maxOffset := max(a.viewport.TotalLineCount()-a.viewport.Height, 0)
		a.viewport.SetYOffset(int(math.Round(msg.progress / 100 * float64(maxOffset))))
	}
	return a.observeScroll()
}

func (a *App) handlePositionRestore(msg positionRestoreMsg) tea.Cmd {
	if !a.isCurrent(msg.gen) {
		return nil
	}
	a.restored = true
	if y, ok := a.session.PendingRestore(); ok {
		a.viewport.SetYOffset(y)
	}
	return tea.Batch(a.observeScroll(), a.startAutoScroll())
}

func (a *App) scrollSample() reader.ScrollSample {
	return reader.ScrollSample{
		ScrollTop:      a.viewport.YOffset,
		DocumentHeight: a.viewport.TotalLineCount(),
		WindowHeight:   a.viewport.Height,
	}
}

// observeScroll reports the viewport offset and schedules one frame when
// none is pending.
func (a *App) observeScroll() tea.Cmd {
	if a.session == nil {
		return nil
	}
	if !a.session.Observe(a.scrollSample()) {
		return nil
	}
	gen := a.session.Generation()
	interval := a.config.Reader.FrameInterval
	if interval <= 0 {
		interval = reader.FrameInterval
	}
	return a.tick(interval, func(time.Time) tea.Msg { return frameMsg{gen: gen} })
}

func (a *App) handleFrame(msg frameMsg) {
	if a.session == nil {
		return
	}
	a.session.Flush(msg.gen)
}

func (a *App) scrollBy(n int) tea.Cmd {
	a.viewport.SetYOffset(a.viewport.YOffset + n)
	return a.observeScroll()
}

func (a *App) scrollToTop() tea.Cmd {
	a.viewport.GotoTop()
	return a.observeScroll()
}

func (a *App) scrollToBottom() tea.Cmd {
	a.viewport.GotoBottom()
	return a.observeScroll()
}

func (a *App) startAutoScroll() tea.Cmd {
	a.autoScrollSeq++
	if a.session == nil || a.settings.AutoScrollSpeed.LinesPerTick() == 0 {
		return nil
	}
	return a.autoScrollTick()
}

func (a *App) autoScrollTick() tea.Cmd {
	gen, seq := a.session.Generation(), a.autoScrollSeq
	return a.tick(autoScrollInterval, func(time.Time) tea.Msg {
		return autoScrollTickMsg{gen: gen, seq: seq}
	})
}

func (a *App) handleAutoScroll(msg autoScrollTickMsg) tea.Cmd {
	if !a.isCurrent(msg.gen) || msg.seq != a.autoScrollSeq {
		return nil
	}
	n := a.settings.AutoScrollSpeed.LinesPerTick()
	if n == 0 {
		return nil
	}
	// paused while a panel covers the text
	if a.showSettings || a.showTOC {
		return a.autoScrollTick()
	}
	if a.viewport.AtBottom() {
		return nil
	}
	return tea.Batch(a.scrollBy(n), a.autoScrollTick())
}

func (a *App) goToAdjacent(step int) tea.Cmd {
	if a.nav == nil {
		return nil
	}
	ref := a.nav.Next
	if step < 0 {
		ref = a.nav.Previous
	}
	if ref == nil {
		if step < 0 {
			return a.setStatus(MsgFirstChapter, StatusInfo)
		}
		return a.setStatus(MsgLastChapter, StatusInfo)
	}
	return a.openChapter(a.nav.Novel.ID, ref.Chapter.ID)
}

func (a *App) leaveReader() tea.Cmd {
	a.closeSession()
	a.showSettings, a.showTOC = false, false
	a.chapter, a.chapterErr = nil, nil
	a.stopLoading()
	a.view = a.readerReturn
	if a.view == ViewReader {
		a.view = ViewCatalog
	}
	// reading progress in the chapter list is stale now
	if a.view == ViewNovel && a.novel != nil {
		return a.loadNovel(a.novel.ID)
	}
	return nil
}

func (a *App) cycleAutoScroll() tea.Cmd {
	return a.applySettings(reader.WithAutoScroll(reader.CycleAutoScroll(a.settings.AutoScrollSpeed, 1)))
}

func (a *App) adjustSetting(step int) tea.Cmd {
	s := a.settings
	var patch reader.SettingsPatch
	switch settingsRow(a.settingsCursor) {
	case rowTheme:
		patch = reader.WithTheme(reader.CycleTheme(s.Theme, step))
	case rowFont:
		patch = reader.WithFontFamily(reader.CycleFontFamily(s.FontFamily, step))
	case rowFontSize:
		if step > 0 {
			patch = reader.WithFontSize(reader.NextFontSize(s.FontSize))
		} else {
			patch = reader.WithFontSize(reader.PrevFontSize(s.FontSize))
		}
	case rowLineHeight:
		if step > 0 {
			patch = reader.WithLineHeight(reader.NextLineHeight(s.LineHeight))
		} else {
			patch = reader.WithLineHeight(reader.PrevLineHeight(s.LineHeight))
		}
	case rowWidth:
		patch = reader.WithMaxWidth(reader.CycleMaxWidth(s.MaxWidth, step))
	case rowAlign:
		patch = reader.WithTextAlign(reader.CycleTextAlign(s.TextAlign, step))
	case rowAutoScroll:
		patch = reader.WithAutoScroll(reader.CycleAutoScroll(s.AutoScrollSpeed, step))
	case rowReset:
		return a.resetSettings()
	}
	return a.applySettings(patch)
}

// applySettings persists a change. An open session picks it up through its
// subscription before Update returns.
func (a *App) applySettings(patch reader.SettingsPatch) tea.Cmd {
	prev := a.settings
	if a.deps.Settings == nil {
		a.settings = patch.Apply(a.settings)
	} else {
		if err := a.deps.Settings.Update(patch); err != nil {
			return a.setStatus(wrapErr("saving settings", err).Error(), StatusError)
		}
		if a.session == nil {
			a.settings = a.deps.Settings.Get()
		}
	}
	return a.settingsChanged(prev)
}

func (a *App) resetSettings() tea.Cmd {
	prev := a.settings
	if a.deps.Settings == nil {
		a.settings = a.config.ReadingDefaults()
	} else {
		if err := a.deps.Settings.Reset(); err != nil {
			return a.setStatus(wrapErr("resetting settings", err).Error(), StatusError)
		}
		if a.session == nil {
			a.settings = a.deps.Settings.Get()
		}
	}
	return tea.Batch(a.settingsChanged(prev), a.setStatus(MsgSettingsReset, StatusSuccess))
}

func (a *App) settingsChanged(prev reader.Settings) tea.Cmd {
	var cmds []tea.Cmd
	s := a.settings
	if s.Theme != prev.Theme {
		a.progress = newProgressBar(s.Theme, a.width)
	}
	if s.AutoScrollSpeed != prev.AutoScrollSpeed {
		cmds = append(cmds, a.startAutoScroll())
	}
	if s.Theme != prev.Theme || s.FontSize != prev.FontSize || s.LineHeight != prev.LineHeight ||
		s.MaxWidth != prev.MaxWidth || s.TextAlign != prev.TextAlign {
		cmds = append(cmds, a.renderChapter(true))
	}
	return tea.Batch(cmds...)
}

func (a *App) tocRows() []tocRow {
	if a.nav == nil {
		return nil
	}
	var rows []tocRow
	for _, entry := range reader.TableOfContents(a.nav.Novel) {
		for _, ch := range entry.Chapters {
			rows = append(rows, tocRow{chapter: ch, volume: entry.Volume.TitleOrEmpty()})
		}
	}
	return rows
}

func (a *App) openContents() tea.Cmd {
	if a.nav == nil {
		return a.setStatus("No chapter list for this chapter", StatusWarn)
	}
	a.showTOC = true
	a.showSettings = false
	a.tocCursor = a.nav.Index
	return nil
}

func (a *App) selectContentsEntry() tea.Cmd {
	rows := a.tocRows()
	if a.tocCursor < 0 || a.tocCursor >= len(rows) {
		return nil
	}
	a.showTOC = false
	target := rows[a.tocCursor].chapter.ID
	if a.chapter != nil && target == a.chapter.ID {
		return nil
	}
	return a.openChapter(a.nav.Novel.ID, target)
}

func (a *App) readerView() string {
	palette := PaletteFor(a.settings.Theme)
	w := a.width
	bodyHeight := a.viewport.Height

	var body string
	switch {
	case a.chapterErr != nil && isNotFound(a.chapterErr):
		body = renderNotFound(w, bodyHeight, "Chapter", "esc: back")
	case a.chapter == nil:
		body = renderCentered(w, bodyHeight, palette.muted().Render(MsgLoadingChapter))
	case a.help.ShowAll:
		body = lipgloss.Place(w, bodyHeight, lipgloss.Center, lipgloss.Center,
			palette.panel().Render(a.help.FullHelpView(a.readerKeys.FullHelp())))
	case a.showSettings:
		body = lipgloss.Place(w, bodyHeight, lipgloss.Center, lipgloss.Center, a.settingsPanel(palette))
	case a.showTOC:
		body = lipgloss.Place(w, bodyHeight, lipgloss.Left, lipgloss.Top, a.contentsPanel(palette, bodyHeight))
	default:
		body = a.viewport.View()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		a.progress.ViewAs(a.scroll.ProgressPercent/100),
		a.navbarLine(palette),
		ContentWrapper(w, bodyHeight).Render(body),
		a.actionStrip(palette),
		a.chapterFooter(palette),
		a.readerStatusLine(palette),
	)
}

// navbarLine is blank while hidden so the layout does not jump.
func (a *App) navbarLine(p Palette) string {
	if !a.scroll.IsNavbarVisible || a.chapter == nil {
		return ""
	}
	h := content.ChapterHeader(a.chapter)
	parts := []string{h.Novel}
	if h.Volume != "" {
		parts = append(parts, h.Volume)
	}
	parts = append(parts, h.Chapter)
	left := p.text().Bold(true).Render(strings.Join(parts, " · "))

	right := ""
	if a.nav != nil {
		right = p.muted().Render(fmt.Sprintf("Chapter %d/%d", a.nav.Index+1, a.nav.TotalChapters))
	}
	leftWidth := max(a.width-lipgloss.Width(right)-2, 10)
	return spread(" "+truncateStyled(left, leftWidth), right+" ", a.width)
}

// actionStrip holds the scroll-to-top and settings shortcuts once the
// reader has scrolled past the threshold.
func (a *App) actionStrip(p Palette) string {
	if !a.scroll.IsScrolled || a.chapter == nil {
		return ""
	}
	left := p.accent().Render(fmt.Sprintf(" %.0f%%", a.scroll.ProgressPercent))
	right := p.muted().Render("↑ top  ⚙ s settings ")
	return spread(left, right, a.width)
}

func (a *App) chapterFooter(p Palette) string {
	if a.nav == nil {
		return ""
	}
	half := max(a.width/2-4, 8)
	left := p.muted().Render(" ← start")
	if a.nav.Previous != nil {
		left = p.text().Render(" ← " + truncateEnd(a.nav.Previous.Chapter.DisplayTitle(), half))
	}
	right := p.muted().Render("end → ")
	if a.nav.Next != nil {
		right = p.text().Render(truncateEnd(a.nav.Next.Chapter.DisplayTitle(), half) + " → ")
	}
	return spread(left, right, a.width)
}

func (a *App) readerStatusLine(p Palette) string {
	style := StatusBarStyle.Width(a.width)
	switch {
	case a.err != nil:
		return style.Render(ErrorMessageStyle.Render(fmt.Sprintf("✗ %v", a.err)))
	case a.loading:
		return style.Render(a.spinner.View() + " " + a.status)
	case a.status != "":
		return style.Render(a.statusKind.style().Render(a.status))
	case a.showSettings || a.showTOC:
		return style.Render(a.help.ShortHelpView(a.panelKeys.ShortHelp()))
	}
	return style.Render(a.help.ShortHelpView(a.readerKeys.ShortHelp()))
}

func (a *App) settingValue(row settingsRow) string {
	s := a.settings
	switch row {
	case rowTheme:
		return string(s.Theme)
	case rowFont:
		return string(s.FontFamily)
	case rowFontSize:
		return fmt.Sprintf("%dpx", s.FontSize)
	case rowLineHeight:
		return fmt.Sprintf("%.1f", s.LineHeight)
	case rowWidth:
		return string(s.MaxWidth)
	case rowAlign:
		return string(s.TextAlign)
	case rowAutoScroll:
		return string(s.AutoScrollSpeed)
	default:
		return ""
	}
}

var settingLabels = [...]string{
	rowTheme:      "Theme",
	rowFont:       "Font",
	rowFontSize:   "Font size",
	rowLineHeight: "Line height",
	rowWidth:      "Width",
	rowAlign:      "Align",
	rowAutoScroll: "Auto scroll",
	rowReset:      "Reset to defaults",
}

func (a *App) settingsPanel(p Palette) string {
	const width = 34
	rows := []string{p.accent().Render("Reading settings"), ""}
	for i := settingsRow(0); i < settingsRowCount; i++ {
		label := settingLabels[i]
		value := a.settingValue(i)
		if value != "" {
			value = "‹ " + value + " ›"
		}
		line := spread(label, value, width)
		if int(i) == a.settingsCursor {
			line = SelectedItemStyle.Render(line)
		} else {
			line = p.text().Render(line)
		}
		if i == rowReset {
			rows = append(rows, "")
		}
		rows = append(rows, line)
	}
	return p.panel().Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a *App) contentsPanel(p Palette, height int) string {
	rows := a.tocRows()
	width := min(max(a.width/2, 30), a.width-4)
	visible := max(height-4, 1)

	start := 0
	if a.tocCursor >= visible {
		start = a.tocCursor - visible + 1
	}
	end := min(start+visible, len(rows))

	current := ""
	if a.chapter != nil {
		current = a.chapter.ID
	}
	lines := []string{p.accent().Render(truncateEnd(a.nav.Novel.Title, width)), ""}
	for i := start; i < end; i++ {
		r := rows[i]
		marker := "  "
		if r.chapter.ID == current {
			marker = "▸ "
		}
		line := spread(marker+truncateEnd(r.chapter.DisplayTitle(), width/2), truncateEnd(r.volume, width/2-4), width)
		switch {
		case i == a.tocCursor:
			line = SelectedItemStyle.Render(line)
		case r.chapter.ID == current:
			line = p.accent().Render(line)
		default:
			line = p.text().Render(line)
		}
		lines = append(lines, line)
	}
	return p.panel().Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
