package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/ranobe/internal/catalog"
	"github.com/pders01/ranobe/internal/content"
	"github.com/pders01/ranobe/internal/debuglog"
	"github.com/pders01/ranobe/internal/reader"
)

const descriptionLines = 3

// title, two meta rows, the description and the blank rows around it
func (a *App) novelHeaderHeight() int {
	return 3 + 1 + descriptionLines + 1
}

// renderDescription converts the description to plain text on one line.
// The view wraps it to the current width.
func (a *App) renderDescription(n *catalog.NovelDetail) string {
	desc := n.DescriptionOrEmpty()
	if desc == "" {
		return ""
	}
	if a.deps.Renderer != nil {
		md, err := a.deps.Renderer.Markdown(desc)
		if err != nil {
			debuglog.Warnf("converting description of %s: %v", n.ID, err)
		} else {
			desc = md
		}
	}
	return strings.Join(strings.Fields(desc), " ")
}

func chapterItems(n *catalog.NovelDetail, downloaded map[string]bool, positions map[string]reader.ReadingPosition) []list.Item {
	var items []list.Item
	for _, entry := range reader.TableOfContents(*n) {
		volume := entry.Volume.TitleOrEmpty()
		for _, ch := range entry.Chapters {
			item := chapterItem{chapter: ch, volume: volume, downloaded: downloaded[ch.ID]}
			if p, ok := positions[ch.ID]; ok {
				item.hasProgress = true
				if p.Progress != nil {
					item.progress = *p.Progress
				}
			}
			items = append(items, item)
		}
	}
	return items
}

func (a *App) novelView() string {
	height := max(a.height-2, 0)
	if a.novel == nil {
		if a.novelErr != nil && isNotFound(a.novelErr) {
			return renderNotFound(a.width, height, "Novel", "esc: back")
		}
		return renderCentered(a.width, height, renderMuted(MsgLoadingNovel))
	}
	n := a.novel
	width := max(a.width-2, 10)

	var meta []string
	if len(n.Authors) > 0 {
		meta = append(meta, strings.Join(n.Authors, ", "))
	}
	if s := n.StatusOrEmpty(); s != "" {
		meta = append(meta, s)
	}
	if t := n.TypeOrEmpty(); t != "" {
		meta = append(meta, t)
	}

	total := n.ChapterCount()
	stats := []string{fmt.Sprintf("%s chapters", content.GroupedCount(total))}
	if r := n.Rating(); r > 0 {
		stats = append(stats, fmt.Sprintf("★ %.1f", r))
	}
	if v := n.TotalViews(); v > 0 {
		stats = append(stats, content.CompactCount(v)+" views")
	}
	if len(a.downloaded) > 0 {
		stats = append(stats, fmt.Sprintf("%d/%d offline", len(a.downloaded), total))
	}

	desc := lipgloss.NewStyle().
		Width(width).
		Height(descriptionLines).
		MaxHeight(descriptionLines).
		Foreground(TextColor).
		Render(a.novelDescription)

	header := lipgloss.JoinVertical(
		lipgloss.Left,
		NovelTitleStyle.Render(truncateEnd(n.Title, width)),
		renderMuted(truncateEnd(strings.Join(meta, " • "), width)),
		renderMuted(truncateEnd(strings.Join(stats, " • "), width)),
		"",
		desc,
		"",
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, a.chapterList.View())
}
