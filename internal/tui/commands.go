package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/ranobe/internal/catalog"
	"github.com/pders01/ranobe/internal/debuglog"
	"github.com/pders01/ranobe/internal/feed"
	"github.com/pders01/ranobe/internal/plugins"
	"github.com/pders01/ranobe/internal/reader"
	"github.com/pders01/ranobe/internal/search"
)

func (a *App) loadNovels() tea.Cmd {
	q := catalog.NovelQuery{Limit: a.config.UI.PageSize}.Normalize()
	return func() tea.Msg {
		novels, err := a.deps.Library.List(a.ctx, q)
		if err != nil {
			return errorMsg{err: wrapErr("loading catalog", err)}
		}
		return novelsLoadedMsg{novels: novels}
	}
}

func (a *App) loadReleases() tea.Cmd {
	if a.deps.Feed == nil {
		return nil
	}
	limit := a.config.UI.ReleasesLimit
	return func() tea.Msg {
		releases, err := a.deps.Feed.Latest(limit)
		if err != nil {
			return errorMsg{err: wrapErr("loading releases", err)}
		}
		unseen, err := a.deps.Feed.UnseenCount()
		if err != nil {
			debuglog.Warnf("counting unseen releases: %v", err)
		}
		return releasesLoadedMsg{releases: releases, unseen: unseen}
	}
}

func (a *App) refreshFeed(force bool) tea.Cmd {
	if a.deps.Feed == nil || !a.deps.Feed.Enabled() {
		return nil
	}
	return func() tea.Msg {
		fresh, err := a.deps.Feed.Refresh(a.ctx, force)
		if errors.Is(err, feed.ErrNoFeed) {
			err = nil
		}
		return feedRefreshedMsg{fresh: fresh, forced: force, err: err}
	}
}

// refresh reloads the catalog and forces a feed fetch.
func (a *App) refresh() tea.Cmd {
	cmds := []tea.Cmd{a.startLoading(MsgRefreshing), a.loadNovels()}
	if a.deps.Feed != nil && a.deps.Feed.Enabled() {
		cmds = append(cmds, a.refreshFeed(true))
	}
	return tea.Batch(cmds...)
}

// openNovel switches to the novel view and loads the novel with its
// offline and reading state.
func (a *App) openNovel(novelID string) tea.Cmd {
	if a.view != ViewNovel {
		a.novelReturn = a.view
	}
	a.view = ViewNovel
	if a.novel == nil || a.novel.ID != novelID {
		a.novel = nil
		a.novelDescription = ""
		a.chapterList.SetItems(nil)
	}
	a.novelErr = nil
	return tea.Batch(a.startLoading(MsgLoadingNovel), a.loadNovel(novelID))
}

func (a *App) loadNovel(novelID string) tea.Cmd {
	return func() tea.Msg {
		novel, err := a.deps.Library.Novel(a.ctx, novelID)
		if err != nil {
			return novelLoadedMsg{err: err}
		}
		downloaded, err := a.deps.Library.Downloaded(novelID)
		if err != nil {
			debuglog.Warnf("listing downloads for %s: %v", novelID, err)
		}
		return novelLoadedMsg{novel: novel, downloaded: downloaded, positions: a.novelPositions(novel)}
	}
}

// novelPositions collects the saved reading positions of the novel's chapters.
func (a *App) novelPositions(novel *catalog.NovelDetail) map[string]reader.ReadingPosition {
	out := map[string]reader.ReadingPosition{}
	if a.deps.Positions == nil {
		return out
	}
	all, err := a.deps.Positions.List()
	if err != nil {
		debuglog.Warnf("listing positions: %v", err)
		return out
	}
	ids := map[string]bool{}
	for _, ch := range reader.Flatten(*novel) {
		ids[ch.ID] = true
	}
	for _, p := range all {
		if ids[p.ChapterID] {
			out[p.ChapterID] = p
		}
	}
	return out
}

func (a *App) handleNovelLoaded(msg novelLoadedMsg) tea.Cmd {
	a.stopLoading()
	if msg.err != nil {
		a.novelErr = msg.err
		if !isNotFound(msg.err) {
			a.err = wrapErr("loading novel", msg.err)
		}
		return nil
	}
	a.novel = msg.novel
	a.downloaded = msg.downloaded
	if a.downloaded == nil {
		a.downloaded = map[string]bool{}
	}
	a.novelDescription = a.renderDescription(msg.novel)
	a.chapterList.SetSize(a.width, max(a.height-2-a.novelHeaderHeight(), 3))

	return a.chapterList.SetItems(chapterItems(msg.novel, a.downloaded, msg.positions))
}

// continueReading picks the chapter to resume: the account's last read
// chapter when signed in, else the most recently saved local position,
// else the first chapter.
func (a *App) continueReading() tea.Cmd {
	novel := a.novel
	if novel == nil {
		return nil
	}
	chapters := reader.Flatten(*novel)
	if len(chapters) == 0 {
		return a.setStatus("This novel has no chapters yet", StatusWarn)
	}
	history := a.deps.History
	positions := a.novelPositions(novel)
	return func() tea.Msg {
		if history != nil && history.HasToken() {
			entry, err := history.LastRead(a.ctx, novel.ID)
			if err == nil && entry != nil && entry.ChapterID != "" {
				return continueTargetMsg{novelID: novel.ID, chapterID: entry.ChapterID}
			}
			if err != nil && !isNotFound(err) {
				debuglog.Warnf("last read for %s: %v", novel.ID, err)
			}
		}
		if len(positions) > 0 {
			latest := make([]reader.ReadingPosition, 0, len(positions))
			for _, p := range positions {
				latest = append(latest, p)
			}
			sort.Slice(latest, func(i, j int) bool { return latest[i].Timestamp > latest[j].Timestamp })
			return continueTargetMsg{novelID: novel.ID, chapterID: latest[0].ChapterID}
		}
		return continueTargetMsg{novelID: novel.ID, chapterID: chapters[0].ID}
	}
}

func (a *App) performSearch(query string) tea.Cmd {
	searcher := a.deps.Searcher
	return tea.Batch(a.startLoading("Searching…"), func() tea.Msg {
		if searcher == nil {
			return searchResultsMsg{query: query}
		}
		results, err := searcher.Search(query, searchLimit)
		if err != nil {
			return errorMsg{err: wrapErr("search", err)}
		}
		return searchResultsMsg{query: query, results: localResults(results)}
	})
}

// searchCatalog runs the query against the API keyword filter.
func (a *App) searchCatalog(query string) tea.Cmd {
	q := catalog.NovelQuery{Keyword: query, Limit: searchLimit}.Normalize()
	return tea.Batch(a.startLoading("Searching catalog…"), func() tea.Msg {
		novels, err := a.deps.Library.List(a.ctx, q)
		if err != nil {
			return errorMsg{err: wrapErr("catalog search", err)}
		}
		items := make([]searchResultItem, len(novels))
		for i, n := range novels {
			items[i] = searchResultItem{novel: n, remote: true}
		}
		return searchResultsMsg{query: query, results: items}
	})
}

func localResults(results []*search.Result) []searchResultItem {
	items := make([]searchResultItem, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		item := searchResultItem{novel: r.Novel}
		if len(r.Matches) > 0 {
			item.snippet = r.Matches[0].Field + ": " + r.Matches[0].Text
		}
		items = append(items, item)
	}
	return items
}

// startDownload runs the download in the background and streams progress
// back through a channel read by waitForDownload.
func (a *App) startDownload() tea.Cmd {
	if a.novel == nil || a.downloading {
		return nil
	}
	novelID, title := a.novel.ID, a.novel.Title

	ctx, cancel := context.WithCancel(a.ctx)
	ch := make(chan tea.Msg, 16)
	a.downloading = true
	a.downloadDone, a.downloadTotal = 0, a.novel.ChapterCount()
	a.downloadCh = ch
	a.downloadCancel = cancel
	a.status = MsgDownloading

	lib := a.deps.Library
	go func() {
		defer close(ch)
		defer cancel()
		chapters := 0
		fetched, err := lib.Download(ctx, novelID, func(done, total int) {
			chapters = total
			select {
			case ch <- downloadProgressMsg{done: done, total: total}:
			default:
			}
		})
		ch <- downloadDoneMsg{novelID: novelID, title: title, fetched: fetched, total: chapters, err: err}
	}()

	return tea.Batch(a.spinner.Tick, waitForDownload(ch))
}

func waitForDownload(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (a *App) handleDownloadDone(msg downloadDoneMsg) tea.Cmd {
	a.downloading = false
	a.status = ""
	a.downloadCh = nil
	a.downloadCancel = nil
	if a.view == ViewDownloadConfirm {
		a.view = ViewNovel
	}

	var cmds []tea.Cmd
	if a.novel != nil && a.novel.ID == msg.novelID {
		cmds = append(cmds, a.loadNovel(msg.novelID))
	}
	switch {
	case errors.Is(msg.err, context.Canceled):
		cmds = append(cmds, a.setStatus(fmt.Sprintf("Download cancelled after %d chapters", msg.fetched), StatusWarn))
	case msg.err != nil:
		a.err = wrapErr("download", msg.err)
	default:
		cmds = append(cmds, a.setStatus(MsgDownloaded(msg.title, msg.fetched, msg.total), StatusSuccess))
	}
	return tea.Batch(cmds...)
}

func (a *App) removeNovel(novelID string) tea.Cmd {
	searcher := a.deps.Searcher
	return tea.Batch(a.startLoading(MsgRemoving), func() tea.Msg {
		if err := a.deps.Library.Remove(novelID); err != nil {
			return novelRemovedMsg{novelID: novelID, err: wrapErr("removing novel", err)}
		}
		if r, ok := searcher.(search.Remover); ok {
			r.OnNovelRemoved(novelID)
		}
		return novelRemovedMsg{novelID: novelID}
	})
}

// openTarget opens a URL with the configured launcher.
func (a *App) openTarget(target string) tea.Cmd {
	launcher := a.deps.Launcher
	if launcher == nil {
		return a.setStatus("No opener configured", StatusWarn)
	}
	return func() tea.Msg {
		if err := launcher.Open(target); err != nil {
			return errorMsg{err: fmt.Errorf("failed to open %s: %w", target, err)}
		}
		return statusMsg{text: "Opened " + truncateMiddle(target, 60), kind: StatusInfo}
	}
}

// openWeb opens the frontend page of a novel or chapter.
func (a *App) openWeb(novelID, chapterID string) tea.Cmd {
	if a.config.API.WebURL == "" {
		return a.setStatus("No web_url configured", StatusWarn)
	}
	return a.openTarget(plugins.WebURL(a.config.API.WebURL, novelID, chapterID))
}

// recordHistory reports the opened chapter to the account history.
func (a *App) recordHistory(novelID, chapterID string) tea.Cmd {
	history := a.deps.History
	if history == nil || !history.HasToken() || novelID == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
		defer cancel()
		if err := history.RecordHistory(ctx, novelID, chapterID); err != nil {
			debuglog.Warnf("recording history for %s: %v", chapterID, err)
		}
		return nil
	}
}
