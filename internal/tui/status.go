package tui

import (
	"fmt"
	"strings"

	"github.com/pders01/ranobe/internal/content"
)

// Canonical short status messages used across the app.
const (
	MsgLoadingCatalog = "Loading catalog…"
	MsgLoadingNovel   = "Loading novel…"
	MsgLoadingChapter = "Loading chapter…"
	MsgRefreshing     = "Refreshing…"
	MsgDownloading    = "Downloading…"
	MsgRemoving       = "Removing…"
	MsgNoResults      = "No results"
	MsgNovelRemoved   = "Removed from library"
	MsgSettingsReset  = "Settings reset"
	MsgNoFeed         = "No updates feed configured"
	MsgFirstChapter   = "Already at the first chapter"
	MsgLastChapter    = "Already at the last chapter"
)

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%s results", content.GroupedCount(n))
}

func MsgDownloaded(title string, fetched, total int) string {
	return fmt.Sprintf("Downloaded '%s' (%d new of %d chapters)", strings.TrimSpace(title), fetched, total)
}

func MsgRefreshSummary(novels, fresh, docCount int) string {
	base := fmt.Sprintf("Refreshed: %d novels", novels)
	if fresh > 0 {
		base += fmt.Sprintf(" • %d new releases", fresh)
	}
	if docCount >= 0 {
		base += fmt.Sprintf(" • idx: %d docs", docCount)
	}
	return base
}
